package meshcloud

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ObjectID identifies one physical object occurrence in a scene. It is
// also the instance id carried by every generated point.
type ObjectID int32

// SemanticID is a class label. Id 0 is reserved for unlabeled points;
// whitelist entry i maps to id i+1.
type SemanticID int32

// Unlabeled is the implicit background class.
const Unlabeled SemanticID = 0

// Color is an 8-bit RGB triple.
type Color [3]uint8

// Hex returns the colour as a #rrggbb string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// Vertex is a mesh vertex position in the mesh's native frame.
type Vertex = r3.Vec

// Face is a triangle of the semantic mesh: three indices into the vertex
// array plus the id of the object that produced it.
type Face struct {
	V      [3]int
	Object ObjectID
}

// Mesh is the read-only geometry consumed by the densifier.
type Mesh struct {
	Vertices []Vertex
	Faces    []Face
}

// Corners returns the three native-frame corner positions of f.
// The caller guarantees f's indices are in range.
func (m *Mesh) Corners(f Face) (Vertex, Vertex, Vertex) {
	return m.Vertices[f.V[0]], m.Vertices[f.V[1]], m.Vertices[f.V[2]]
}

// ObjectLabel is the resolved labeling for one retained object.
type ObjectLabel struct {
	Object   ObjectID
	Category string
	Semantic SemanticID
	Color    Color
}

// SceneObject is one labeled object read from the scene source. Its
// category resolves under two naming conventions: Coarse is the mapped
// (mpcat40) name and Fine is the raw annotation name.
type SceneObject struct {
	ID     ObjectID
	Coarse string
	Fine   string
}
