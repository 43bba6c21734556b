package labels

import (
	"fmt"
	"sort"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
)

// Assignment maps every retained object to its semantic id and colour.
type Assignment struct {
	ByObject map[meshcloud.ObjectID]meshcloud.ObjectLabel
}

// Assign resolves a semantic id and colour for each object. Any object
// whose resolved name is not whitelisted fails the whole assignment with
// ErrUnrecognizedCategory: upstream filtering should have removed it.
func Assign(objects []meshcloud.SceneObject, t *Tables) (*Assignment, error) {
	a := &Assignment{ByObject: make(map[meshcloud.ObjectID]meshcloud.ObjectLabel, len(objects))}
	for _, o := range objects {
		name := t.ResolveName(o)
		sid, ok := t.SemanticID(name)
		if !ok {
			return nil, fmt.Errorf("object %d category %q (coarse %q): %w", o.ID, name, o.Coarse, meshcloud.ErrUnrecognizedCategory)
		}
		color, ok := t.Color(sid)
		if !ok {
			return nil, fmt.Errorf("object %d semantic id %d has no colour: %w", o.ID, sid, meshcloud.ErrUnrecognizedCategory)
		}
		if prev, dup := a.ByObject[o.ID]; dup && prev.Semantic != sid {
			return nil, fmt.Errorf("object %d listed twice with classes %d and %d: %w", o.ID, prev.Semantic, sid, meshcloud.ErrConflictingLabel)
		}
		a.ByObject[o.ID] = meshcloud.ObjectLabel{
			Object:   o.ID,
			Category: name,
			Semantic: sid,
			Color:    color,
		}
	}
	return a, nil
}

// SemanticIDs returns the object id to semantic id mapping.
func (a *Assignment) SemanticIDs() map[meshcloud.ObjectID]meshcloud.SemanticID {
	out := make(map[meshcloud.ObjectID]meshcloud.SemanticID, len(a.ByObject))
	for oid, l := range a.ByObject {
		out[oid] = l.Semantic
	}
	return out
}

// Colors returns the object id to colour mapping.
func (a *Assignment) Colors() map[meshcloud.ObjectID]meshcloud.Color {
	out := make(map[meshcloud.ObjectID]meshcloud.Color, len(a.ByObject))
	for oid, l := range a.ByObject {
		out[oid] = l.Color
	}
	return out
}

// Sorted returns the labels ordered by object id.
func (a *Assignment) Sorted() []meshcloud.ObjectLabel {
	out := make([]meshcloud.ObjectLabel, 0, len(a.ByObject))
	for _, l := range a.ByObject {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Object < out[j].Object })
	return out
}
