// Package densify expands the labeled faces of a semantic mesh into a
// dense point cloud: every retained triangle contributes its three
// corners plus a regular grid of interior samples.
//
// The interior grid walks the two edges leaving corner 0. The edge
// directions are not orthogonalised, so the grid is sheared for
// non-right triangles; near the far edge a few samples may fall just
// outside the triangle. Output is reproducible bit for bit: every product
// is rounded before it is added, so no platform fuses them.
package densify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
)

// degenerateEdge is the edge length below which a face is treated as
// having no interior.
const degenerateEdge = 1e-12

// DefaultMaxPoints caps the size of one cloud when Options.MaxPoints is
// unset.
const DefaultMaxPoints = math.MaxInt32

// ErrPointLimit reports a run whose point count would exceed the cap,
// usually because the resolution is far too fine for the mesh.
var ErrPointLimit = errors.New("point limit exceeded")

// Options controls a densify run.
type Options struct {
	// Resolution is the interior sample spacing in scene units.
	Resolution float64
	// Workers is the number of goroutines filling the output. Values
	// below 1 mean 1.
	Workers int
	// ProgressEvery logs progress after every N filled faces. Zero
	// disables progress logging.
	ProgressEvery int
	// MaxPoints caps the total number of emitted points. Values below 1
	// mean DefaultMaxPoints.
	MaxPoints int
}

// Stats summarises a densify run.
type Stats struct {
	Faces      int // faces in the mesh
	Retained   int // faces owned by a labeled object
	Degenerate int // retained faces whose interior sampling was skipped
	Corners    int
	Interior   int
}

// Points returns the total number of emitted points.
func (s Stats) Points() int { return s.Corners + s.Interior }

// CountFace returns the number of interior samples generated for a face
// whose edges from corner 0 have lengths d1 and d2, at spacing s. It
// returns 0 for degenerate faces and saturates at math.MaxInt.
func CountFace(d1, d2, s float64) int {
	n, ok := countFace(d1, d2, s, math.MaxInt)
	if !ok {
		return math.MaxInt
	}
	return n
}

// countFace counts interior samples, giving up with ok == false once the
// count would exceed budget.
func countFace(d1, d2, s float64, budget int) (n int, ok bool) {
	if degenerate(d1, d2) {
		return 0, true
	}
	// Every row holds at least one sample.
	if d1/s > float64(budget) || d2/s > float64(budget) {
		return 0, false
	}
	rows := steps(d1, s)
	for k := 0; k < rows; k++ {
		c := steps(width(d1, d2, offset(k, s)), s)
		if c > budget-n {
			return 0, false
		}
		n += c
	}
	return n, true
}

// FaceSamples returns every point generated for one triangle given in
// the mesh's native frame: the three reoriented corners followed by the
// interior grid. For a degenerate triangle it returns only the corners
// together with an error wrapping meshcloud.ErrDegenerateFace. A face
// that would exceed DefaultMaxPoints fails with ErrPointLimit.
func FaceSamples(v0, v1, v2 meshcloud.Vertex, s float64) ([]r3.Vec, error) {
	if !(s > 0) {
		return nil, fmt.Errorf("resolution must be positive, got %g", s)
	}
	f, err := newFace(v0, v1, v2, s, DefaultMaxPoints-3)
	if err != nil {
		return nil, err
	}
	out := make([]r3.Vec, 3+f.interior)
	fillFace(out, f, s)
	if f.degenerate {
		return out, fmt.Errorf("edge lengths %g, %g: %w", f.d1, f.d2, meshcloud.ErrDegenerateFace)
	}
	return out, nil
}

// Densify emits the points of every face whose object has a label.
// Faces of objects absent from labels are skipped. The output order is
// face order, then corners, then interior rows, for any worker count.
func Densify(ctx context.Context, mesh *meshcloud.Mesh, labels map[meshcloud.ObjectID]meshcloud.ObjectLabel, opts Options) (*pointcloud.Cloud, Stats, error) {
	s := opts.Resolution
	if !(s > 0) {
		return nil, Stats{}, fmt.Errorf("resolution must be positive, got %g", s)
	}
	limit := opts.MaxPoints
	if limit < 1 {
		limit = DefaultMaxPoints
	}
	stats := Stats{Faces: len(mesh.Faces)}

	plans, total, err := planFaces(ctx, mesh, labels, s, limit, &stats)
	if err != nil {
		return nil, stats, err
	}
	diagf("%d of %d faces retained, %d degenerate, %d points (%d corners, %d interior) at resolution %g",
		stats.Retained, stats.Faces, stats.Degenerate, total, stats.Corners, stats.Interior, s)

	cloud := pointcloud.New(total)
	if err := fill(ctx, cloud, plans, s, opts); err != nil {
		return nil, stats, err
	}
	return cloud, stats, nil
}

// face is the reoriented geometry of one retained triangle and the slot
// of the output it fills.
type face struct {
	p0, p1, p2 r3.Vec
	n1, n2     r3.Vec
	d1, d2     float64
	degenerate bool
	interior   int

	offset int
	label  meshcloud.ObjectLabel
}

// newFace plans one triangle. budget is the number of interior samples
// the face may still contribute.
func newFace(v0, v1, v2 meshcloud.Vertex, s float64, budget int) (face, error) {
	f := face{
		p0: meshcloud.Reorient(v0),
		p1: meshcloud.Reorient(v1),
		p2: meshcloud.Reorient(v2),
	}
	e1 := r3.Sub(f.p1, f.p0)
	e2 := r3.Sub(f.p2, f.p0)
	f.d1, f.d2 = length(e1), length(e2)
	if degenerate(f.d1, f.d2) {
		f.degenerate = true
		return f, nil
	}
	f.n1 = r3.Scale(1/f.d1, e1)
	f.n2 = r3.Scale(1/f.d2, e2)
	n, ok := countFace(f.d1, f.d2, s, budget)
	if !ok {
		return f, fmt.Errorf("edge lengths %g, %g at resolution %g: %w", f.d1, f.d2, s, ErrPointLimit)
	}
	f.interior = n
	return f, nil
}

func (f *face) points() int { return 3 + f.interior }

func planFaces(ctx context.Context, mesh *meshcloud.Mesh, labels map[meshcloud.ObjectID]meshcloud.ObjectLabel, s float64, limit int, stats *Stats) ([]face, int, error) {
	n := len(mesh.Vertices)
	var plans []face
	total := 0
	for i, mf := range mesh.Faces {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		l, ok := labels[mf.Object]
		if !ok {
			continue
		}
		for _, v := range mf.V {
			if v < 0 || v >= n {
				return nil, 0, fmt.Errorf("face %d references vertex %d of %d: %w", i, v, n, meshcloud.ErrMalformedMesh)
			}
		}
		budget := limit - total - 3
		if budget < 0 {
			return nil, 0, fmt.Errorf("face %d: more than %d points: %w", i, limit, ErrPointLimit)
		}
		v0, v1, v2 := mesh.Corners(mf)
		f, err := newFace(v0, v1, v2, s, budget)
		if err != nil {
			return nil, 0, fmt.Errorf("face %d: more than %d points: %w", i, limit, err)
		}
		f.offset = total
		f.label = l
		if f.degenerate {
			stats.Degenerate++
			tracef("face %d object %d degenerate (d1=%g d2=%g)", i, mf.Object, f.d1, f.d2)
		}
		stats.Retained++
		stats.Corners += 3
		stats.Interior += f.interior
		total += f.points()
		plans = append(plans, f)
	}
	return plans, total, nil
}

func fill(ctx context.Context, cloud *pointcloud.Cloud, plans []face, s float64, opts Options) error {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(plans) {
		workers = max(len(plans), 1)
	}

	var done atomic.Int64
	every := int64(opts.ProgressEvery)
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range split(plans, workers) {
		g.Go(func() error {
			tracef("worker filling faces [%d, %d)", r.lo, r.hi)
			for k := r.lo; k < r.hi; k++ {
				if k%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				f := &plans[k]
				dst := cloud.Positions[f.offset : f.offset+f.points()]
				fillFace(dst, *f, s)
				for i := f.offset; i < f.offset+len(dst); i++ {
					cloud.Colors[i] = f.label.Color
					cloud.SemanticIDs[i] = f.label.Semantic
					cloud.InstanceIDs[i] = f.label.Object
				}
				if n := done.Add(1); every > 0 && n%every == 0 {
					diagf("%d/%d faces", n, len(plans))
				}
			}
			return nil
		})
	}
	return g.Wait()
}

type faceRange struct{ lo, hi int }

// split partitions plans into at most n contiguous ranges of roughly
// equal point counts.
func split(plans []face, n int) []faceRange {
	if len(plans) == 0 {
		return nil
	}
	total := 0
	for i := range plans {
		total += plans[i].points()
	}
	target := (total + n - 1) / n
	var out []faceRange
	lo, acc := 0, 0
	for i := range plans {
		acc += plans[i].points()
		if acc >= target && len(out) < n-1 {
			out = append(out, faceRange{lo, i + 1})
			lo, acc = i+1, 0
		}
	}
	if lo < len(plans) {
		out = append(out, faceRange{lo, len(plans)})
	}
	return out
}

// fillFace writes the corners and interior grid of f into dst, which
// must have length 3+f.interior.
func fillFace(dst []r3.Vec, f face, s float64) {
	dst[0], dst[1], dst[2] = f.p0, f.p1, f.p2
	if f.degenerate {
		return
	}
	w := 3
	rows := steps(f.d1, s)
	for k := 0; k < rows; k++ {
		i := offset(k, s)
		row := step(f.p0, i, f.n1)
		cols := steps(width(f.d1, f.d2, i), s)
		for m := 0; m < cols; m++ {
			dst[w] = step(row, offset(m, s), f.n2)
			w++
		}
	}
}

// step returns p + a*n. Each product is rounded on its own so the sum
// is never fused.
func step(p r3.Vec, a float64, n r3.Vec) r3.Vec {
	return r3.Vec{
		X: p.X + float64(a*n.X),
		Y: p.Y + float64(a*n.Y),
		Z: p.Z + float64(a*n.Z),
	}
}

// length is the Euclidean norm of v, rounded like step.
func length(v r3.Vec) float64 {
	return math.Sqrt(float64(v.X*v.X) + float64(v.Y*v.Y) + float64(v.Z*v.Z))
}

func degenerate(d1, d2 float64) bool {
	return !(d1 > degenerateEdge && d2 > degenerateEdge) || math.IsInf(d1, 0) || math.IsInf(d2, 0)
}

// steps is the number of values k*s in [0, limit).
func steps(limit, s float64) int {
	if !(limit > 0) {
		return 0
	}
	return int(math.Ceil(limit / s))
}

// offset is the k-th multiple of s. The conversion keeps the product
// from being fused into a later addition.
func offset(k int, s float64) float64 {
	return float64(float64(k) * s)
}

// width is the extent of the grid row at distance i along the first edge.
func width(d1, d2, i float64) float64 {
	return (d1 - i) * d2 / d1
}
