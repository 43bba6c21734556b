package plymesh

import (
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/meshcloud/internal/fsutil"
	"github.com/banshee-data/meshcloud/internal/meshcloud"
)

// LoadMesh opens and decodes a semantic mesh. Every failure wraps
// meshcloud.ErrMissingSceneAsset; decode failures also wrap
// meshcloud.ErrMalformedMesh.
func LoadMesh(fsys fsutil.FileSystem, path string) (*meshcloud.Mesh, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mesh %s: %w: %w", path, meshcloud.ErrMissingSceneAsset, err)
	}
	defer f.Close()

	m, err := ReadMesh(f)
	if err != nil {
		return nil, fmt.Errorf("read mesh %s: %w: %w", path, meshcloud.ErrMissingSceneAsset, err)
	}
	return m, nil
}

// ReadMesh decodes a PLY with a vertex element (x, y, z) and a face
// element carrying a vertex index list and an object_id. Polygons with
// more than three corners are fan triangulated; each triangle keeps the
// polygon's object id.
func ReadMesh(r io.Reader) (*meshcloud.Mesh, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", meshcloud.ErrMalformedMesh, err)
	}
	hdr := rd.Header()
	if hdr.Element("vertex") == nil {
		return nil, fmt.Errorf("%w: no vertex element", meshcloud.ErrMalformedMesh)
	}
	if hdr.Element("face") == nil {
		return nil, fmt.Errorf("%w: no face element", meshcloud.ErrMalformedMesh)
	}

	m := &meshcloud.Mesh{}
	for i := range hdr.Elements {
		e := &hdr.Elements[i]
		switch e.Name {
		case "vertex":
			err = readVertices(rd, e, m)
		case "face":
			err = readFaces(rd, e, m)
		default:
			err = rd.SkipElement(e)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", meshcloud.ErrMalformedMesh, err)
		}
	}

	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, v := range f.V {
			if v < 0 || v >= n {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d", meshcloud.ErrMalformedMesh, i, v, n)
			}
		}
	}
	return m, nil
}

func readVertices(rd *Reader, e *Element, m *meshcloud.Mesh) error {
	ix, iy, iz := e.Index("x"), e.Index("y"), e.Index("z")
	if ix < 0 || iy < 0 || iz < 0 {
		return fmt.Errorf("vertex element lacks x, y or z")
	}
	for _, i := range []int{ix, iy, iz} {
		if e.Properties[i].IsList {
			return fmt.Errorf("vertex coordinate %s is a list", e.Properties[i].Name)
		}
	}
	m.Vertices = make([]meshcloud.Vertex, 0, e.Count)
	var row Row
	for k := 0; k < e.Count; k++ {
		if err := rd.ReadRow(e, &row); err != nil {
			return fmt.Errorf("vertex %d: %w", k, err)
		}
		m.Vertices = append(m.Vertices, meshcloud.Vertex{
			X: row.Scalars[ix],
			Y: row.Scalars[iy],
			Z: row.Scalars[iz],
		})
	}
	return nil
}

func readFaces(rd *Reader, e *Element, m *meshcloud.Mesh) error {
	il := e.Index("vertex_indices")
	if il < 0 {
		il = e.Index("vertex_index")
	}
	if il < 0 || !e.Properties[il].IsList {
		return fmt.Errorf("face element lacks a vertex_indices list")
	}
	iobj := e.Index("object_id")
	if iobj < 0 || e.Properties[iobj].IsList {
		return fmt.Errorf("face element lacks a scalar object_id")
	}

	m.Faces = make([]meshcloud.Face, 0, e.Count)
	var row Row
	for k := 0; k < e.Count; k++ {
		if err := rd.ReadRow(e, &row); err != nil {
			return fmt.Errorf("face %d: %w", k, err)
		}
		idx := row.Lists[il]
		if len(idx) < 3 {
			return fmt.Errorf("face %d has %d corners", k, len(idx))
		}
		oid := row.Scalars[iobj]
		if oid != math.Trunc(oid) || oid < math.MinInt32 || oid > math.MaxInt32 {
			return fmt.Errorf("face %d object_id %g is not an int32", k, oid)
		}
		for j := 1; j+1 < len(idx); j++ {
			m.Faces = append(m.Faces, meshcloud.Face{
				V:      [3]int{int(idx[0]), int(idx[j]), int(idx[j+1])},
				Object: meshcloud.ObjectID(oid),
			})
		}
	}
	return nil
}
