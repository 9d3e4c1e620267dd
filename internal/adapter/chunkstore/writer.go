// Package chunkstore serializes point clouds as a zarr v2 directory
// hierarchy of fixed-size binary chunks, suitable for range-request
// streaming without reading the whole store.
package chunkstore

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldtrace/granule-etl-service/internal/domain"
)

// DefaultChunkSize is the number of points per chunk when none is
// configured.
const DefaultChunkSize = 10000

const zarrFormat = 2

type arrayMeta struct {
	ZarrFormat int    `json:"zarr_format"`
	Shape      []int  `json:"shape"`
	Chunks     []int  `json:"chunks"`
	DType      string `json:"dtype"`
	Compressor any    `json:"compressor"`
	FillValue  any    `json:"fill_value"`
	Order      string `json:"order"`
	Filters    any    `json:"filters"`
}

func newArrayMeta(shape, chunks []int, dtype string) arrayMeta {
	return arrayMeta{
		ZarrFormat: zarrFormat,
		Shape:      shape,
		Chunks:     chunks,
		DType:      dtype,
		Order:      "C",
	}
}

// Writer renders point clouds as chunked zarr stores. Path arguments to
// Write name the store directory, which is replaced wholesale.
type Writer struct {
	ChunkSize int
}

func NewWriter(chunkSize int) *Writer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Writer{ChunkSize: chunkSize}
}

func (w *Writer) Format() string { return "chunks" }

// Write lays out the store:
//
//	.zgroup .zattrs
//	location/  (n, 3) <f4, lon lat alt per row
//	time/      (n,)   <i4, seconds since the store epoch
//	ref/       (n,)   <f4
//	internal/chunk_id/ (nChunks, 2) <i8, [start index, start seconds]
//
// The epoch attribute is the unix time of the first point. Points are
// already time-ordered, so chunk k spans rows [k*chunk, (k+1)*chunk).
func (w *Writer) Write(cloud *domain.PointCloud, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clear chunk store %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create chunk store %s: %w", path, err)
	}

	if err := writeJSONFile(filepath.Join(path, ".zgroup"), map[string]int{"zarr_format": zarrFormat}); err != nil {
		return err
	}

	n := cloud.Len()
	var epoch time.Time
	var epochSec int64
	if n > 0 {
		epoch = cloud.Time.Values[0]
		epochSec = epoch.Unix()
	}

	rootAttrs := map[string]any{
		"format": "point-cloud",
		"epoch":  epochSec,
	}
	for k, v := range cloud.Attrs {
		rootAttrs[k] = v
	}
	if err := writeJSONFile(filepath.Join(path, ".zattrs"), rootAttrs); err != nil {
		return err
	}

	seconds := make([]int32, n)
	for i, t := range cloud.Time.Values {
		seconds[i] = int32(t.Sub(epoch) / time.Second)
	}

	if err := w.writeLocation(path, cloud); err != nil {
		return err
	}
	if err := w.writeInt32Array(filepath.Join(path, "time"), seconds); err != nil {
		return err
	}
	if err := w.writeFloat32Array(filepath.Join(path, "ref"), cloud.Ref.Values); err != nil {
		return err
	}
	return w.writeChunkIndex(path, seconds)
}

func (w *Writer) writeLocation(root string, cloud *domain.PointCloud) error {
	n := cloud.Len()
	dir := filepath.Join(root, "location")
	meta := newArrayMeta([]int{n, 3}, []int{w.ChunkSize, 3}, "<f4")
	if err := writeArrayMeta(dir, meta, []string{"point", "component"}); err != nil {
		return err
	}
	for c := 0; c < chunkCount(n, w.ChunkSize); c++ {
		lo, hi := w.chunkBounds(c, n)
		buf := new(bytes.Buffer)
		for i := lo; i < hi; i++ {
			writeFloat32(buf, cloud.Lon.Values[i])
			writeFloat32(buf, cloud.Lat.Values[i])
			writeFloat32(buf, cloud.Alt.Values[i])
		}
		if err := writeChunkFile(filepath.Join(dir, fmt.Sprintf("%d.0", c)), buf); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeFloat32Array(dir string, values []float64) error {
	n := len(values)
	meta := newArrayMeta([]int{n}, []int{w.ChunkSize}, "<f4")
	if err := writeArrayMeta(dir, meta, []string{"point"}); err != nil {
		return err
	}
	for c := 0; c < chunkCount(n, w.ChunkSize); c++ {
		lo, hi := w.chunkBounds(c, n)
		buf := new(bytes.Buffer)
		for i := lo; i < hi; i++ {
			writeFloat32(buf, values[i])
		}
		if err := writeChunkFile(filepath.Join(dir, fmt.Sprintf("%d", c)), buf); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeInt32Array(dir string, values []int32) error {
	n := len(values)
	meta := newArrayMeta([]int{n}, []int{w.ChunkSize}, "<i4")
	if err := writeArrayMeta(dir, meta, []string{"point"}); err != nil {
		return err
	}
	for c := 0; c < chunkCount(n, w.ChunkSize); c++ {
		lo, hi := w.chunkBounds(c, n)
		buf := new(bytes.Buffer)
		for i := lo; i < hi; i++ {
			binary.Write(buf, binary.LittleEndian, values[i])
		}
		if err := writeChunkFile(filepath.Join(dir, fmt.Sprintf("%d", c)), buf); err != nil {
			return err
		}
	}
	return nil
}

// writeChunkIndex emits the internal/chunk_id side table mapping each
// chunk to its starting row and starting time, so readers can seek to a
// time window without scanning every chunk.
func (w *Writer) writeChunkIndex(root string, seconds []int32) error {
	internal := filepath.Join(root, "internal")
	if err := os.MkdirAll(internal, 0o755); err != nil {
		return fmt.Errorf("create chunk store group %s: %w", internal, err)
	}
	if err := writeJSONFile(filepath.Join(internal, ".zgroup"), map[string]int{"zarr_format": zarrFormat}); err != nil {
		return err
	}

	nChunks := chunkCount(len(seconds), w.ChunkSize)
	dir := filepath.Join(internal, "chunk_id")
	meta := newArrayMeta([]int{nChunks, 2}, []int{nChunks, 2}, "<i8")
	if nChunks == 0 {
		meta.Chunks = []int{1, 2}
	}
	if err := writeArrayMeta(dir, meta, []string{"chunk", "field"}); err != nil {
		return err
	}
	if nChunks == 0 {
		return nil
	}

	buf := new(bytes.Buffer)
	for c := 0; c < nChunks; c++ {
		start := c * w.ChunkSize
		binary.Write(buf, binary.LittleEndian, int64(start))
		binary.Write(buf, binary.LittleEndian, int64(seconds[start]))
	}
	return writeChunkFile(filepath.Join(dir, "0.0"), buf)
}

func (w *Writer) chunkBounds(c, n int) (int, int) {
	lo := c * w.ChunkSize
	hi := lo + w.ChunkSize
	if hi > n {
		hi = n
	}
	return lo, hi
}

func chunkCount(n, size int) int {
	return (n + size - 1) / size
}

func writeArrayMeta(dir string, meta arrayMeta, dims []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create chunk store array %s: %w", dir, err)
	}
	if err := writeJSONFile(filepath.Join(dir, ".zarray"), meta); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(dir, ".zattrs"), map[string]any{"_ARRAY_DIMENSIONS": dims})
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeChunkFile(path string, buf *bytes.Buffer) error {
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chunk %s: %w", path, err)
	}
	return nil
}

func writeFloat32(buf *bytes.Buffer, v float64) {
	binary.Write(buf, binary.LittleEndian, math.Float32bits(float32(v)))
}
