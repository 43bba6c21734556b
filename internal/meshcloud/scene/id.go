package scene

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
)

// ID names one level of one house, written <house>_<level>, for example
// "17DRP5sb8fy_0".
type ID struct {
	House string
	Level int
}

// ParseID splits a scene identifier on its last underscore.
func ParseID(s string) (ID, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return ID{}, fmt.Errorf("%q: want <house>_<level>: %w", s, meshcloud.ErrInvalidSceneID)
	}
	level, err := strconv.Atoi(s[i+1:])
	if err != nil || level < 0 {
		return ID{}, fmt.Errorf("%q: level must be a non-negative integer: %w", s, meshcloud.ErrInvalidSceneID)
	}
	house := s[:i]
	if strings.ContainsAny(house, `/\`) || house == "." || house == ".." {
		return ID{}, fmt.Errorf("%q: house must be a plain name: %w", s, meshcloud.ErrInvalidSceneID)
	}
	return ID{House: house, Level: level}, nil
}

// String returns the canonical <house>_<level> form.
func (id ID) String() string {
	return fmt.Sprintf("%s_%d", id.House, id.Level)
}

// HousePath returns <dataDir>/<house>/<house>.house.
func (id ID) HousePath(dataDir string) string {
	return filepath.Join(dataDir, id.House, id.House+".house")
}

// MeshPath returns <dataDir>/<house>/<house>_semantic.ply.
func (id ID) MeshPath(dataDir string) string {
	return filepath.Join(dataDir, id.House, id.House+"_semantic.ply")
}
