package granulefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "dimensions": {"time": 2, "range": 3},
  "attributes": {"date": "20170517", "campaign": "relampago"},
  "variables": {
    "time":  {"dims": ["time"], "data": [1.5, 2.5], "attrs": {"units": "hours"}},
    "range": {"dims": ["range"], "data": [100, 200, 300]},
    "ref":   {"dims": ["time", "range"], "data": [1, 2, 3, 4, 5, 6]}
  }
}`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "20170517_flight.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		g, err := Load(writeDoc(t, sampleDoc), nil)
		require.NoError(t, err)

		assert.Equal(t, map[string]int{"time": 2, "range": 3}, g.Dims)
		assert.Equal(t, "relampago", g.Attrs["campaign"])

		ref, ok := g.Var("ref")
		require.True(t, ok)
		assert.Equal(t, []int{2, 3}, ref.Shape)
		assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, ref.Values)

		tv, ok := g.Var("time")
		require.True(t, ok)
		assert.Equal(t, "hours", tv.Attr("units"))
		assert.False(t, tv.IsInstant())
	})

	t.Run("instant variables decode to UTC", func(t *testing.T) {
		doc := `{
  "dimensions": {"time": 2},
  "variables": {
    "time": {"dims": ["time"], "instants": ["2017-05-17T01:00:00Z", "2017-05-17T02:00:00+02:00"]}
  }
}`
		g, err := Load(writeDoc(t, doc), nil)
		require.NoError(t, err)

		tv, _ := g.Var("time")
		require.True(t, tv.IsInstant())
		assert.Equal(t, time.Date(2017, 5, 17, 1, 0, 0, 0, time.UTC), tv.Times[0])
		assert.Equal(t, time.Date(2017, 5, 17, 0, 0, 0, 0, time.UTC), tv.Times[1])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"), nil)
		require.Error(t, err)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := Load(writeDoc(t, "{broken"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode granule document")
	})

	t.Run("undeclared dimension", func(t *testing.T) {
		doc := `{"dimensions": {}, "variables": {"x": {"dims": ["ghost"], "data": [1]}}}`
		_, err := Load(writeDoc(t, doc), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared dimension")
	})

	t.Run("value count disagrees with shape", func(t *testing.T) {
		doc := `{"dimensions": {"time": 3}, "variables": {"time": {"dims": ["time"], "data": [1, 2]}}}`
		_, err := Load(writeDoc(t, doc), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shape wants 3")
	})

	t.Run("data and instants are mutually exclusive", func(t *testing.T) {
		doc := `{"dimensions": {"time": 1}, "variables": {"time": {"dims": ["time"], "data": [1], "instants": ["2017-05-17T00:00:00Z"]}}}`
		_, err := Load(writeDoc(t, doc), nil)
		require.Error(t, err)
	})

	t.Run("bad instant format", func(t *testing.T) {
		doc := `{"dimensions": {"time": 1}, "variables": {"time": {"dims": ["time"], "instants": ["17 May 2017"]}}}`
		_, err := Load(writeDoc(t, doc), nil)
		require.Error(t, err)
	})
}
