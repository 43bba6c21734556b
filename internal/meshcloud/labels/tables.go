// Package labels assigns semantic class ids and display colours to the
// objects retained from a scene.
package labels

import (
	"fmt"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
)

// Tables is the immutable label configuration: the ordered category
// whitelist, the set of coarse names that need fine-grained
// re-resolution, and the semantic id to colour table.
type Tables struct {
	whitelist []string
	index     map[string]meshcloud.SemanticID
	useFine   map[string]bool
	colors    []meshcloud.Color
}

// NewTables builds Tables. colors is indexed by semantic id and must have
// an entry for every id in 0..len(whitelist).
func NewTables(whitelist, useFine []string, colors []meshcloud.Color) (*Tables, error) {
	if len(whitelist) == 0 {
		return nil, fmt.Errorf("empty whitelist")
	}
	if len(colors) < len(whitelist)+1 {
		return nil, fmt.Errorf("colour table has %d entries, need %d", len(colors), len(whitelist)+1)
	}
	t := &Tables{
		whitelist: append([]string(nil), whitelist...),
		index:     make(map[string]meshcloud.SemanticID, len(whitelist)),
		useFine:   make(map[string]bool, len(useFine)),
		colors:    append([]meshcloud.Color(nil), colors...),
	}
	for i, name := range whitelist {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("whitelist contains %q twice", name)
		}
		t.index[name] = meshcloud.SemanticID(i + 1)
	}
	for _, name := range useFine {
		t.useFine[name] = true
	}
	return t, nil
}

// ResolveName picks the naming convention for an object: the fine name
// when the coarse name is in the use-fine set, otherwise the coarse name.
func (t *Tables) ResolveName(o meshcloud.SceneObject) string {
	if t.useFine[o.Coarse] {
		return o.Fine
	}
	return o.Coarse
}

// SemanticID returns 1 + the whitelist position of name.
func (t *Tables) SemanticID(name string) (meshcloud.SemanticID, bool) {
	id, ok := t.index[name]
	return id, ok
}

// Color returns the table colour for a semantic id.
func (t *Tables) Color(id meshcloud.SemanticID) (meshcloud.Color, bool) {
	if id < 0 || int(id) >= len(t.colors) {
		return meshcloud.Color{}, false
	}
	return t.colors[id], true
}

// Name returns the category name of a semantic id, "unlabeled" for 0.
func (t *Tables) Name(id meshcloud.SemanticID) string {
	if id == meshcloud.Unlabeled {
		return "unlabeled"
	}
	if id < 0 || int(id) > len(t.whitelist) {
		return fmt.Sprintf("class_%d", id)
	}
	return t.whitelist[id-1]
}

// Len returns the number of whitelisted classes.
func (t *Tables) Len() int { return len(t.whitelist) }

// Retains reports whether o's resolved name is whitelisted.
func (t *Tables) Retains(o meshcloud.SceneObject) bool {
	_, ok := t.index[t.ResolveName(o)]
	return ok
}
