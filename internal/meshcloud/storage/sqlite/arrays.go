package sqlite

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
)

// Array names and element types as stored in dataset_arrays.
const (
	ArrayVertices = "vertices"
	ArrayColors   = "colors"
	ArrayObjIDs   = "obj_ids"
	ArraySemIDs   = "sem_ids"

	DTypeFloat32 = "float32"
	DTypeUint8   = "uint8"
	DTypeInt32   = "int32"
)

// Array is one stored array: a rows x cols matrix of dtype elements.
type Array struct {
	Name  string
	DType string
	Rows  int
	Cols  int
	Data  interface{} // []float32, []uint8 or []int32, row major
}

func dtypeSize(dtype string) int {
	switch dtype {
	case DTypeFloat32, DTypeInt32:
		return 4
	case DTypeUint8:
		return 1
	}
	return 0
}

// cloudArrays flattens c into the four stored arrays. Positions are
// narrowed to float32.
func cloudArrays(c *pointcloud.Cloud) []Array {
	n := c.Len()
	verts := make([]float32, 0, 3*n)
	for _, p := range c.Positions {
		verts = append(verts, float32(p.X), float32(p.Y), float32(p.Z))
	}
	cols := make([]uint8, 0, 3*n)
	for _, col := range c.Colors {
		cols = append(cols, col[0], col[1], col[2])
	}
	obj := make([]int32, n)
	for i, id := range c.InstanceIDs {
		obj[i] = int32(id)
	}
	sem := make([]int32, n)
	for i, id := range c.SemanticIDs {
		sem[i] = int32(id)
	}
	return []Array{
		{Name: ArrayVertices, DType: DTypeFloat32, Rows: n, Cols: 3, Data: verts},
		{Name: ArrayColors, DType: DTypeUint8, Rows: n, Cols: 3, Data: cols},
		{Name: ArrayObjIDs, DType: DTypeInt32, Rows: n, Cols: 1, Data: obj},
		{Name: ArraySemIDs, DType: DTypeInt32, Rows: n, Cols: 1, Data: sem},
	}
}

// encodeBlob gzips the little-endian encoding of data.
func encodeBlob(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := binary.Write(gz, binary.LittleEndian, data); err != nil {
		gz.Close()
		return nil, fmt.Errorf("encode array: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress array: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeArray inflates a stored blob into a typed slice.
func decodeArray(name, dtype string, rows, cols int, blob []byte) (Array, error) {
	a := Array{Name: name, DType: dtype, Rows: rows, Cols: cols}
	size := dtypeSize(dtype)
	if size == 0 {
		return a, fmt.Errorf("array %s: unknown dtype %q", name, dtype)
	}
	if rows < 0 || cols < 1 {
		return a, fmt.Errorf("array %s: bad shape %dx%d", name, rows, cols)
	}

	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return a, fmt.Errorf("array %s: %w", name, err)
	}
	defer gz.Close()
	raw, err := io.ReadAll(gz)
	if err != nil {
		return a, fmt.Errorf("array %s: %w", name, err)
	}
	n := rows * cols
	if len(raw) != n*size {
		return a, fmt.Errorf("array %s: %d bytes for shape %dx%d %s", name, len(raw), rows, cols, dtype)
	}

	switch dtype {
	case DTypeFloat32:
		v := make([]float32, n)
		err = binary.Read(bytes.NewReader(raw), binary.LittleEndian, v)
		a.Data = v
	case DTypeInt32:
		v := make([]int32, n)
		err = binary.Read(bytes.NewReader(raw), binary.LittleEndian, v)
		a.Data = v
	case DTypeUint8:
		a.Data = raw
	}
	if err != nil {
		return a, fmt.Errorf("array %s: %w", name, err)
	}
	return a, nil
}

// assembleCloud rebuilds a Cloud from the four stored arrays.
func assembleCloud(arrays map[string]Array) (*pointcloud.Cloud, error) {
	want := []struct {
		name, dtype string
		cols        int
	}{
		{ArrayVertices, DTypeFloat32, 3},
		{ArrayColors, DTypeUint8, 3},
		{ArrayObjIDs, DTypeInt32, 1},
		{ArraySemIDs, DTypeInt32, 1},
	}
	n := -1
	for _, w := range want {
		a, ok := arrays[w.name]
		if !ok {
			return nil, fmt.Errorf("container lacks array %s", w.name)
		}
		if a.DType != w.dtype || a.Cols != w.cols {
			return nil, fmt.Errorf("array %s is %dx%d %s, want Nx%d %s", w.name, a.Rows, a.Cols, a.DType, w.cols, w.dtype)
		}
		if n >= 0 && a.Rows != n {
			return nil, fmt.Errorf("array %s has %d rows, want %d", w.name, a.Rows, n)
		}
		n = a.Rows
	}

	c := pointcloud.New(n)
	verts := arrays[ArrayVertices].Data.([]float32)
	cols := arrays[ArrayColors].Data.([]uint8)
	obj := arrays[ArrayObjIDs].Data.([]int32)
	sem := arrays[ArraySemIDs].Data.([]int32)
	for i := 0; i < n; i++ {
		c.Positions[i] = r3.Vec{X: float64(verts[3*i]), Y: float64(verts[3*i+1]), Z: float64(verts[3*i+2])}
		c.Colors[i] = meshcloud.Color{cols[3*i], cols[3*i+1], cols[3*i+2]}
		c.InstanceIDs[i] = meshcloud.ObjectID(obj[i])
		c.SemanticIDs[i] = meshcloud.SemanticID(sem[i])
	}
	return c, nil
}
