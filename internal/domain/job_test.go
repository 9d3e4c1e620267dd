package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawJob(t *testing.T) {
	t.Run("full job", func(t *testing.T) {
		raw := RawJob{Value: []byte(`{"granule_path":"/data/20170517_flight.nc","formats":["czml","chunks"],"output_dir":"/out"}`)}
		job, err := ParseRawJob(raw)
		require.NoError(t, err)
		assert.Equal(t, "/data/20170517_flight.nc", job.GranulePath)
		assert.Equal(t, []string{"czml", "chunks"}, job.Formats)
		assert.Equal(t, "/out", job.OutputDir)
	})

	t.Run("formats and output dir are optional", func(t *testing.T) {
		job, err := ParseRawJob(RawJob{Value: []byte(`{"granule_path":"/data/g.nc"}`)})
		require.NoError(t, err)
		assert.Empty(t, job.Formats)
		assert.Empty(t, job.OutputDir)
	})

	t.Run("missing granule path", func(t *testing.T) {
		_, err := ParseRawJob(RawJob{Value: []byte(`{}`)})
		require.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawJob(RawJob{Value: []byte(`{broken`)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse convert job")
	})
}
