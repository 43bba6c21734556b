// Package testutil provides shared test fixtures: .house text and
// semantic .ply meshes built in memory.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// HouseBuilder accumulates .house records.
type HouseBuilder struct {
	lines []string
}

// NewHouse starts a house file with the ASCII header line.
func NewHouse() *HouseBuilder {
	return &HouseBuilder{lines: []string{"ASCII 1.1"}}
}

// Level adds an L record.
func (b *HouseBuilder) Level(index int) *HouseBuilder {
	b.lines = append(b.lines, fmt.Sprintf("L  %d 1 level  0 0 0  0 0 0  1 1 1  0 0 0 0 0", index))
	return b
}

// Region adds an R record.
func (b *HouseBuilder) Region(index, level int, label string) *HouseBuilder {
	b.lines = append(b.lines, fmt.Sprintf("R  %d %d 0 0 %s  0 0 0  0 0 0  1 1 1  2.5  0 0 0 0", index, level, encode(label)))
	return b
}

// Category adds a C record with a raw name and its mpcat40 mapping.
func (b *HouseBuilder) Category(index int, raw string, mpcat40Index int, mpcat40 string) *HouseBuilder {
	b.lines = append(b.lines, fmt.Sprintf("C  %d %d %s %d %s 0 0 0 0 0", index, index+1, encode(raw), mpcat40Index, encode(mpcat40)))
	return b
}

// Object adds an O record.
func (b *HouseBuilder) Object(index, region, category int) *HouseBuilder {
	b.lines = append(b.lines, fmt.Sprintf("O  %d %d %d  0 0 0  1 0 0  0 1 0  0.5 0.5 0.5  0 0 0 0 0 0 0 0", index, region, category))
	return b
}

// Bytes renders the house file.
func (b *HouseBuilder) Bytes() []byte {
	return []byte(strings.Join(b.lines, "\n") + "\n")
}

func encode(s string) string {
	return strings.ReplaceAll(s, " ", "#")
}

// PLYFace is a polygon with the id of the object it belongs to.
type PLYFace struct {
	V      []int
	Object int
}

// PLYMesh is a semantic mesh fixture.
type PLYMesh struct {
	Vertices [][3]float64
	Faces    []PLYFace
}

func (m PLYMesh) header(format string) string {
	var h strings.Builder
	h.WriteString("ply\n")
	fmt.Fprintf(&h, "format %s 1.0\n", format)
	h.WriteString("comment semantic mesh fixture\n")
	fmt.Fprintf(&h, "element vertex %d\n", len(m.Vertices))
	h.WriteString("property float x\nproperty float y\nproperty float z\n")
	h.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	fmt.Fprintf(&h, "element face %d\n", len(m.Faces))
	h.WriteString("property list uchar int vertex_indices\n")
	h.WriteString("property int object_id\n")
	h.WriteString("end_header\n")
	return h.String()
}

// ASCII renders the mesh as an ascii PLY.
func (m PLYMesh) ASCII() []byte {
	var buf bytes.Buffer
	buf.WriteString(m.header("ascii"))
	for _, v := range m.Vertices {
		fmt.Fprintf(&buf, "%g %g %g 128 128 128\n", v[0], v[1], v[2])
	}
	for _, f := range m.Faces {
		fmt.Fprintf(&buf, "%d", len(f.V))
		for _, i := range f.V {
			fmt.Fprintf(&buf, " %d", i)
		}
		fmt.Fprintf(&buf, " %d\n", f.Object)
	}
	return buf.Bytes()
}

// Binary renders the mesh as a binary PLY in the given byte order.
func (m PLYMesh) Binary(order binary.ByteOrder) []byte {
	format := "binary_little_endian"
	if order == binary.BigEndian {
		format = "binary_big_endian"
	}
	var buf bytes.Buffer
	buf.WriteString(m.header(format))
	var b4 [4]byte
	for _, v := range m.Vertices {
		for _, c := range v {
			order.PutUint32(b4[:], math.Float32bits(float32(c)))
			buf.Write(b4[:])
		}
		buf.Write([]byte{128, 128, 128})
	}
	for _, f := range m.Faces {
		buf.WriteByte(byte(len(f.V)))
		for _, i := range f.V {
			order.PutUint32(b4[:], uint32(int32(i)))
			buf.Write(b4[:])
		}
		order.PutUint32(b4[:], uint32(int32(f.Object)))
		buf.Write(b4[:])
	}
	return buf.Bytes()
}

// UnitRightTriangle is the mesh with corners (0,0,0), (1,0,0), (0,1,0)
// owned by object.
func UnitRightTriangle(object int) PLYMesh {
	return PLYMesh{
		Vertices: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    []PLYFace{{V: []int{0, 1, 2}, Object: object}},
	}
}
