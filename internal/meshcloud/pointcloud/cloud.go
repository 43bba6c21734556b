// Package pointcloud holds densified output as four index-aligned arrays
// and exports it to common point cloud formats.
package pointcloud

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
)

// Cloud is a labeled point cloud. Index i of every slice refers to the
// same point.
type Cloud struct {
	Positions   []r3.Vec
	Colors      []meshcloud.Color
	SemanticIDs []meshcloud.SemanticID
	InstanceIDs []meshcloud.ObjectID
}

// New returns a Cloud of n zero points, ready to be filled by index.
func New(n int) *Cloud {
	return &Cloud{
		Positions:   make([]r3.Vec, n),
		Colors:      make([]meshcloud.Color, n),
		SemanticIDs: make([]meshcloud.SemanticID, n),
		InstanceIDs: make([]meshcloud.ObjectID, n),
	}
}

// Len returns the number of points.
func (c *Cloud) Len() int { return len(c.Positions) }

// Set overwrites point i.
func (c *Cloud) Set(i int, p r3.Vec, l meshcloud.ObjectLabel) {
	c.Positions[i] = p
	c.Colors[i] = l.Color
	c.SemanticIDs[i] = l.Semantic
	c.InstanceIDs[i] = l.Object
}

// Append adds one point to the end of each array.
func (c *Cloud) Append(p r3.Vec, l meshcloud.ObjectLabel) {
	c.Positions = append(c.Positions, p)
	c.Colors = append(c.Colors, l.Color)
	c.SemanticIDs = append(c.SemanticIDs, l.Semantic)
	c.InstanceIDs = append(c.InstanceIDs, l.Object)
}

// Validate checks that the four arrays have the same length.
func (c *Cloud) Validate() error {
	n := len(c.Positions)
	if len(c.Colors) != n || len(c.SemanticIDs) != n || len(c.InstanceIDs) != n {
		return fmt.Errorf("misaligned cloud: positions=%d colors=%d sem_ids=%d obj_ids=%d",
			n, len(c.Colors), len(c.SemanticIDs), len(c.InstanceIDs))
	}
	return nil
}

// ClassCount is the number of points carrying one semantic id.
type ClassCount struct {
	Semantic meshcloud.SemanticID
	Points   int
}

// Summary describes a cloud for logs and inspection.
type Summary struct {
	Points    int
	Instances int
	Min, Max  r3.Vec
	Classes   []ClassCount
}

// Summarize computes bounds and per-class counts. Classes are ordered by
// semantic id.
func (c *Cloud) Summarize() Summary {
	s := Summary{Points: c.Len()}
	if s.Points == 0 {
		return s
	}

	xs := make([]float64, s.Points)
	ys := make([]float64, s.Points)
	zs := make([]float64, s.Points)
	for i, p := range c.Positions {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	s.Min = r3.Vec{X: floats.Min(xs), Y: floats.Min(ys), Z: floats.Min(zs)}
	s.Max = r3.Vec{X: floats.Max(xs), Y: floats.Max(ys), Z: floats.Max(zs)}

	perClass := make(map[meshcloud.SemanticID]int)
	instances := make(map[meshcloud.ObjectID]struct{})
	for i, sem := range c.SemanticIDs {
		perClass[sem]++
		instances[c.InstanceIDs[i]] = struct{}{}
	}
	s.Instances = len(instances)
	for sem, n := range perClass {
		s.Classes = append(s.Classes, ClassCount{Semantic: sem, Points: n})
	}
	sort.Slice(s.Classes, func(i, j int) bool { return s.Classes[i].Semantic < s.Classes[j].Semantic })
	return s
}
