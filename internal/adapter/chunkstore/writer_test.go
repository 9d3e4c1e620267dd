package chunkstore

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

func cloudOf(n int) *domain.PointCloud {
	base := time.Date(2017, 5, 17, 12, 0, 0, 0, time.UTC)
	c := &domain.PointCloud{
		Attrs: map[string]string{"converted_by": "geolocation-projector", "projection": "slant-range"},
	}
	for i := 0; i < n; i++ {
		c.Lat.Values = append(c.Lat.Values, 40.0+float64(i))
		c.Lon.Values = append(c.Lon.Values, -105.0-float64(i))
		c.Alt.Values = append(c.Alt.Values, 1000.0*float64(i+1))
		c.Ref.Values = append(c.Ref.Values, float64(10*(i+1)))
		c.Time.Values = append(c.Time.Values, base.Add(time.Duration(i)*10*time.Second))
	}
	return c
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func readFloat32s(t *testing.T, path string) []float32 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Zero(t, len(data)%4)
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func readInt64s(t *testing.T, path string) []int64 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Zero(t, len(data)%8)
	out := make([]int64, len(data)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out
}

func TestNewWriterDefaultsChunkSize(t *testing.T) {
	assert.Equal(t, DefaultChunkSize, NewWriter(0).ChunkSize)
	assert.Equal(t, 256, NewWriter(256).ChunkSize)
	assert.Equal(t, "chunks", NewWriter(0).Format())
}

func TestWriteLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, NewWriter(2).Write(cloudOf(5), dir))

	group := readJSON(t, filepath.Join(dir, ".zgroup"))
	assert.Equal(t, float64(2), group["zarr_format"])

	attrs := readJSON(t, filepath.Join(dir, ".zattrs"))
	assert.Equal(t, "point-cloud", attrs["format"])
	assert.Equal(t, "geolocation-projector", attrs["converted_by"])
	assert.Equal(t, "slant-range", attrs["projection"])
	epoch := time.Date(2017, 5, 17, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, float64(epoch), attrs["epoch"])

	locMeta := readJSON(t, filepath.Join(dir, "location", ".zarray"))
	assert.Equal(t, []any{float64(5), float64(3)}, locMeta["shape"])
	assert.Equal(t, []any{float64(2), float64(3)}, locMeta["chunks"])
	assert.Equal(t, "<f4", locMeta["dtype"])
	assert.Equal(t, "C", locMeta["order"])
	assert.Nil(t, locMeta["compressor"])

	locAttrs := readJSON(t, filepath.Join(dir, "location", ".zattrs"))
	assert.Equal(t, []any{"point", "component"}, locAttrs["_ARRAY_DIMENSIONS"])

	// 5 points at chunk size 2 means chunks of 2, 2 and 1 rows.
	assert.Equal(t, []float32{-105, 40, 1000, -106, 41, 2000},
		readFloat32s(t, filepath.Join(dir, "location", "0.0")))
	assert.Equal(t, []float32{-109, 44, 5000},
		readFloat32s(t, filepath.Join(dir, "location", "2.0")))

	assert.Equal(t, []float32{10, 20}, readFloat32s(t, filepath.Join(dir, "ref", "0")))
	assert.Equal(t, []float32{50}, readFloat32s(t, filepath.Join(dir, "ref", "2")))

	timeMeta := readJSON(t, filepath.Join(dir, "time", ".zarray"))
	assert.Equal(t, "<i4", timeMeta["dtype"])
	timeData, err := os.ReadFile(filepath.Join(dir, "time", "1"))
	require.NoError(t, err)
	assert.Equal(t, int32(20), int32(binary.LittleEndian.Uint32(timeData)))
	assert.Equal(t, int32(30), int32(binary.LittleEndian.Uint32(timeData[4:])))
}

func TestWriteChunkIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, NewWriter(2).Write(cloudOf(5), dir))

	meta := readJSON(t, filepath.Join(dir, "internal", "chunk_id", ".zarray"))
	assert.Equal(t, []any{float64(3), float64(2)}, meta["shape"])
	assert.Equal(t, "<i8", meta["dtype"])

	rows := readInt64s(t, filepath.Join(dir, "internal", "chunk_id", "0.0"))
	assert.Equal(t, []int64{0, 0, 2, 20, 4, 40}, rows)
}

func TestWriteReplacesExistingStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "stale.bin")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	require.NoError(t, NewWriter(2).Write(cloudOf(3), dir))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteEmptyCloud(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, NewWriter(2).Write(&domain.PointCloud{}, dir))

	attrs := readJSON(t, filepath.Join(dir, ".zattrs"))
	assert.Equal(t, float64(0), attrs["epoch"])

	meta := readJSON(t, filepath.Join(dir, "internal", "chunk_id", ".zarray"))
	assert.Equal(t, []any{float64(0), float64(2)}, meta["shape"])

	entries, err := os.ReadDir(filepath.Join(dir, "location"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
