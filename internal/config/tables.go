package config

import (
	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/labels"
)

// Tables converts the JSON tables into the immutable form consumed by the
// label assigner.
func (t *SemanticTables) Tables() (*labels.Tables, error) {
	colors := make([]meshcloud.Color, len(t.LabelColours))
	for i, c := range t.LabelColours {
		colors[i] = meshcloud.Color(c)
	}
	return labels.NewTables(t.ObjectWhitelist, t.UseFine, colors)
}
