package densify

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/labels"
)

// referenceCount is the textbook double loop: rows at multiples of s in
// [0, d1), each row holding multiples of s in [0, b).
func referenceCount(d1, d2, s float64) int {
	n := 0
	rows := int(math.Ceil(d1 / s))
	for k := 0; k < rows; k++ {
		i := float64(float64(k) * s)
		b := (d1 - i) * d2 / d1
		if b > 0 {
			n += int(math.Ceil(b / s))
		}
	}
	return n
}

func TestCountFace(t *testing.T) {
	tests := []struct {
		d1, d2, s float64
		want      int
	}{
		{1, 1, 0.1, 55},
		{1, 1, 0.5, 3},
		{1, 1, 0.3, 10},
		{2, 1, 0.25, 20},
		{3, 4, 0.1, 630},
		{2, 2, 0.5, 10},
		{1, 2, 0.5, 6},
		{0.05, 0.05, 0.1, 1},
		{0, 1, 0.1, 0},
		{1, 0, 0.1, 0},
		{math.NaN(), 1, 0.1, 0},
		{1, 1, 1e-300, math.MaxInt},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountFace(tt.d1, tt.d2, tt.s), "CountFace(%g, %g, %g)", tt.d1, tt.d2, tt.s)
	}
}

func TestCountFace_MatchesReferenceLoop(t *testing.T) {
	for _, s := range []float64{0.01, 0.03, 0.1, 0.25, 0.7} {
		for _, d := range [][2]float64{{1, 1}, {1.7, 0.4}, {0.3, 2.9}, {5, 5}} {
			assert.Equal(t, referenceCount(d[0], d[1], s), CountFace(d[0], d[1], s), "d=%v s=%g", d, s)
		}
	}
}

func TestFaceSamples_EndToEnd(t *testing.T) {
	got, err := FaceSamples(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, 0.5)
	require.NoError(t, err)
	want := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: -0.5},
		{X: 0.5, Y: 0, Z: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestFaceSamples_Degenerate(t *testing.T) {
	v0, v1, v2 := r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 4, Y: 5, Z: 6}
	got, err := FaceSamples(v0, v1, v2, 0.01)
	require.Error(t, err)
	assert.True(t, errors.Is(err, meshcloud.ErrDegenerateFace))
	assert.Equal(t, []r3.Vec{meshcloud.Reorient(v0), meshcloud.Reorient(v1), meshcloud.Reorient(v2)}, got)

	_, err = FaceSamples(v0, v1, v2, 0)
	assert.Error(t, err)
}

func TestFaceSamples_InverseIsAffineCombination(t *testing.T) {
	v0 := r3.Vec{X: 0.2, Y: -1.3, Z: 0.7}
	v1 := r3.Vec{X: 1.9, Y: -0.4, Z: 1.1}
	v2 := r3.Vec{X: -0.5, Y: 0.8, Z: 2.4}
	got, err := FaceSamples(v0, v1, v2, 0.1)
	require.NoError(t, err)
	require.Greater(t, len(got), 3)

	e1, e2 := r3.Sub(v1, v0), r3.Sub(v2, v0)
	g11, g12, g22 := r3.Dot(e1, e1), r3.Dot(e1, e2), r3.Dot(e2, e2)
	det := g11*g22 - g12*g12
	for _, p := range got {
		q := r3.Sub(meshcloud.Unorient(p), v0)
		r1, r2 := r3.Dot(q, e1), r3.Dot(q, e2)
		a := (g22*r1 - g12*r2) / det
		b := (g11*r2 - g12*r1) / det
		back := r3.Add(v0, r3.Add(r3.Scale(a, e1), r3.Scale(b, e2)))
		assert.InDelta(t, 0, r3.Norm(r3.Sub(back, meshcloud.Unorient(p))), 1e-9, "point %v", p)
	}
}

func testTables(t *testing.T) *labels.Tables {
	t.Helper()
	tb, err := labels.NewTables(
		[]string{"chair", "table", "washing machine"},
		[]string{"appliances"},
		[]meshcloud.Color{{0, 0, 0}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}},
	)
	require.NoError(t, err)
	return tb
}

func testScene() []meshcloud.SceneObject {
	return []meshcloud.SceneObject{
		{ID: 5, Coarse: "table", Fine: "dining table"},
		{ID: 7, Coarse: "chair", Fine: "office chair"},
		{ID: 9, Coarse: "appliances", Fine: "washing machine"},
	}
}

// testMesh has faces for objects 5, 7, 9 and 11; 11 has no label.
func testMesh() *meshcloud.Mesh {
	return &meshcloud.Mesh{
		Vertices: []meshcloud.Vertex{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 2, Y: 0, Z: 1}, {X: 3.5, Y: 0.2, Z: 1}, {X: 2.1, Y: 1.4, Z: 1.3},
			{X: -1, Y: -1, Z: 0}, {X: -1, Y: -1, Z: 0}, {X: -2, Y: 0, Z: 0},
		},
		Faces: []meshcloud.Face{
			{V: [3]int{0, 1, 2}, Object: 5},
			{V: [3]int{3, 4, 5}, Object: 7},
			{V: [3]int{0, 2, 8}, Object: 11},
			{V: [3]int{6, 7, 8}, Object: 9},
			{V: [3]int{2, 1, 4}, Object: 9},
			{V: [3]int{5, 4, 3}, Object: 5},
		},
	}
}

func TestDensify_Properties(t *testing.T) {
	tb := testTables(t)
	a, err := labels.Assign(testScene(), tb)
	require.NoError(t, err)
	mesh := testMesh()

	cloud, stats, err := Densify(context.Background(), mesh, a.ByObject, Options{Resolution: 0.1, Workers: 1})
	require.NoError(t, err)
	require.NoError(t, cloud.Validate())

	assert.Equal(t, 6, stats.Faces)
	assert.Equal(t, 5, stats.Retained)
	assert.Equal(t, 1, stats.Degenerate)
	assert.Equal(t, 15, stats.Corners)
	assert.Equal(t, cloud.Len(), stats.Points())
	assert.Equal(t, 55, CountFace(1, 1, 0.1))

	t.Run("retention", func(t *testing.T) {
		for _, oid := range cloud.InstanceIDs {
			_, ok := a.ByObject[oid]
			assert.True(t, ok, "instance %d not retained", oid)
		}
		assert.NotContains(t, cloud.InstanceIDs, meshcloud.ObjectID(11))
	})

	t.Run("corner inclusion", func(t *testing.T) {
		present := make(map[r3.Vec]bool, cloud.Len())
		for _, p := range cloud.Positions {
			present[p] = true
		}
		for _, f := range mesh.Faces {
			if _, ok := a.ByObject[f.Object]; !ok {
				continue
			}
			v0, v1, v2 := mesh.Corners(f)
			for _, v := range []r3.Vec{v0, v1, v2} {
				assert.True(t, present[meshcloud.Reorient(v)], "corner %v missing", v)
			}
		}
	})

	t.Run("colour and class consistency", func(t *testing.T) {
		objects := make(map[meshcloud.ObjectID]meshcloud.SceneObject)
		for _, o := range testScene() {
			objects[o.ID] = o
		}
		for i := range cloud.Positions {
			sem := cloud.SemanticIDs[i]
			col, ok := tb.Color(sem)
			require.True(t, ok)
			assert.Equal(t, col, cloud.Colors[i])
			want, ok := tb.SemanticID(tb.ResolveName(objects[cloud.InstanceIDs[i]]))
			require.True(t, ok)
			assert.Equal(t, want, sem)
		}
	})

	t.Run("fine grained class", func(t *testing.T) {
		assert.Equal(t, meshcloud.SemanticID(3), a.ByObject[9].Semantic)
	})
}

func TestDensify_EndToEndTriangle(t *testing.T) {
	mesh := &meshcloud.Mesh{
		Vertices: []meshcloud.Vertex{{}, {X: 1}, {Y: 1}},
		Faces:    []meshcloud.Face{{V: [3]int{0, 1, 2}, Object: 5}},
	}
	red := meshcloud.Color{255, 0, 0}
	lbls := map[meshcloud.ObjectID]meshcloud.ObjectLabel{
		5: {Object: 5, Category: "table", Semantic: 2, Color: red},
	}

	cloud, stats, err := Densify(context.Background(), mesh, lbls, Options{Resolution: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Interior)
	require.Equal(t, 6, cloud.Len())
	assert.Equal(t, []r3.Vec{{}, {X: 1}, {Z: -1}, {}, {Z: -0.5}, {X: 0.5}}, cloud.Positions)
	for i := 0; i < cloud.Len(); i++ {
		assert.Equal(t, red, cloud.Colors[i])
		assert.Equal(t, meshcloud.SemanticID(2), cloud.SemanticIDs[i])
		assert.Equal(t, meshcloud.ObjectID(5), cloud.InstanceIDs[i])
	}
}

func TestDensify_WorkersProduceIdenticalOutput(t *testing.T) {
	a, err := labels.Assign(testScene(), testTables(t))
	require.NoError(t, err)
	mesh := testMesh()

	seq, seqStats, err := Densify(context.Background(), mesh, a.ByObject, Options{Resolution: 0.05, Workers: 1})
	require.NoError(t, err)
	for _, w := range []int{2, 3, 8, 64} {
		par, parStats, err := Densify(context.Background(), mesh, a.ByObject, Options{Resolution: 0.05, Workers: w, ProgressEvery: 1})
		require.NoError(t, err)
		assert.Equal(t, seqStats, parStats)
		if diff := cmp.Diff(seq, par); diff != "" {
			t.Errorf("workers=%d output differs (-seq +par):\n%s", w, diff)
		}
	}
}

func TestDensify_Errors(t *testing.T) {
	lbls := map[meshcloud.ObjectID]meshcloud.ObjectLabel{1: {Object: 1, Semantic: 1}}
	mesh := &meshcloud.Mesh{
		Vertices: []meshcloud.Vertex{{}, {X: 1}},
		Faces:    []meshcloud.Face{{V: [3]int{0, 1, 2}, Object: 1}},
	}

	_, _, err := Densify(context.Background(), mesh, lbls, Options{Resolution: 0})
	assert.Error(t, err)

	_, _, err = Densify(context.Background(), mesh, lbls, Options{Resolution: 0.1})
	assert.ErrorIs(t, err, meshcloud.ErrMalformedMesh)

	mesh.Vertices = append(mesh.Vertices, meshcloud.Vertex{Y: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Densify(ctx, mesh, lbls, Options{Resolution: 0.1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDensify_PointLimit(t *testing.T) {
	mesh := &meshcloud.Mesh{
		Vertices: []meshcloud.Vertex{{}, {X: 1}, {Y: 1}},
		Faces:    []meshcloud.Face{{V: [3]int{0, 1, 2}, Object: 5}},
	}
	lbls := map[meshcloud.ObjectID]meshcloud.ObjectLabel{5: {Object: 5, Semantic: 1}}

	tests := []struct {
		name string
		opts Options
	}{
		{name: "resolution too fine", opts: Options{Resolution: 1e-7}},
		{name: "resolution absurd", opts: Options{Resolution: 1e-300, Workers: 4}},
		{name: "explicit cap", opts: Options{Resolution: 0.5, MaxPoints: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, _, err = Densify(context.Background(), mesh, lbls, tt.opts)
			})
			assert.ErrorIs(t, err, ErrPointLimit)
		})
	}

	cloud, _, err := Densify(context.Background(), mesh, lbls, Options{Resolution: 0.5, MaxPoints: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, cloud.Len())

	_, err = FaceSamples(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, 1e-7)
	assert.ErrorIs(t, err, ErrPointLimit)
}

func TestDensify_CancelledWhilePlanning(t *testing.T) {
	mesh := &meshcloud.Mesh{Vertices: []meshcloud.Vertex{{}, {X: 1}, {Y: 1}}}
	for i := 0; i < 3000; i++ {
		mesh.Faces = append(mesh.Faces, meshcloud.Face{V: [3]int{0, 1, 2}, Object: 5})
	}
	lbls := map[meshcloud.ObjectID]meshcloud.ObjectLabel{5: {Object: 5, Semantic: 1}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, stats, err := Densify(ctx, mesh, lbls, Options{Resolution: 0.1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Retained, "planning should stop before any face")
}

func TestStep_RoundsProductBeforeAdding(t *testing.T) {
	a := 1 + math.Ldexp(1, -30)
	got := step(r3.Vec{X: -1, Y: -1, Z: -1}, a, r3.Vec{X: a, Y: a, Z: a})
	want := math.Ldexp(1, -29)
	assert.Equal(t, r3.Vec{X: want, Y: want, Z: want}, got)
	assert.NotEqual(t, math.FMA(a, a, -1), got.X, "product was fused")
}

func TestDensify_NoRetainedFaces(t *testing.T) {
	cloud, stats, err := Densify(context.Background(), testMesh(), nil, Options{Resolution: 0.1, Workers: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, cloud.Len())
	assert.Equal(t, 0, stats.Retained)
	assert.Equal(t, 6, stats.Faces)
}

func TestSplit(t *testing.T) {
	plans := make([]face, 10)
	for i := range plans {
		plans[i].interior = i
	}
	for _, n := range []int{1, 2, 3, 7, 10} {
		ranges := split(plans, n)
		require.NotEmpty(t, ranges)
		assert.LessOrEqual(t, len(ranges), n)
		assert.Equal(t, 0, ranges[0].lo)
		assert.Equal(t, len(plans), ranges[len(ranges)-1].hi)
		for i := 1; i < len(ranges); i++ {
			assert.Equal(t, ranges[i-1].hi, ranges[i].lo)
		}
	}
	assert.Nil(t, split(nil, 4))
}
