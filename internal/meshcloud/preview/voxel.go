// Package preview renders quick-look artifacts for a densified cloud: a
// top-down HTML scatter and a per-class bar chart.
package preview

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
)

type voxelKey [3]int64

type voxelAcc struct {
	sum  r3.Vec
	n    int
	best int
	dist float64
}

// Downsample returns the indices of a representative subset of c, in
// ascending order. With a positive leaf size, each occupied voxel keeps
// the point nearest the voxel's centroid. The result is then thinned by
// a constant stride to at most maxPoints (when maxPoints > 0).
func Downsample(c *pointcloud.Cloud, leaf float64, maxPoints int) []int {
	var idx []int
	if leaf > 0 {
		idx = voxelIndices(c, leaf)
	} else {
		idx = make([]int, c.Len())
		for i := range idx {
			idx[i] = i
		}
	}

	if maxPoints > 0 && len(idx) > maxPoints {
		stride := int(math.Ceil(float64(len(idx)) / float64(maxPoints)))
		kept := idx[:0]
		for i := 0; i < len(idx); i += stride {
			kept = append(kept, idx[i])
		}
		idx = kept
	}
	return idx
}

func voxelIndices(c *pointcloud.Cloud, leaf float64) []int {
	voxels := make(map[voxelKey]*voxelAcc)
	keys := make([]voxelKey, c.Len())
	for i, p := range c.Positions {
		k := voxelKey{
			int64(math.Floor(p.X / leaf)),
			int64(math.Floor(p.Y / leaf)),
			int64(math.Floor(p.Z / leaf)),
		}
		keys[i] = k
		v, ok := voxels[k]
		if !ok {
			v = &voxelAcc{best: -1}
			voxels[k] = v
		}
		v.sum = r3.Add(v.sum, p)
		v.n++
	}

	for i, p := range c.Positions {
		v := voxels[keys[i]]
		centroid := r3.Scale(1/float64(v.n), v.sum)
		d := r3.Norm2(r3.Sub(p, centroid))
		if v.best < 0 || d < v.dist {
			v.best, v.dist = i, d
		}
	}

	out := make([]int, 0, len(voxels))
	for _, v := range voxels {
		out = append(out, v.best)
	}
	sort.Ints(out)
	return out
}
