package scene

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/meshcloud/internal/fsutil"
	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/labels"
)

// Category is a "C" record: one annotation category with its raw name and
// its mpcat40 mapping.
type Category struct {
	Index        int
	RawIndex     int
	Raw          string
	MPCat40Index int
	MPCat40      string
}

// Region is an "R" record.
type Region struct {
	Index int
	Level int
	Label string
}

// Object is an "O" record.
type Object struct {
	Index    int
	Region   int
	Category int
}

// House is the subset of a .house file needed to label mesh faces.
type House struct {
	Levels     map[int]bool
	Regions    map[int]Region
	Categories map[int]Category
	Objects    []Object
}

// LoadHouse reads and parses a .house file.
func LoadHouse(fsys fsutil.FileSystem, path string) (*House, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read house %s: %w: %w", path, meshcloud.ErrMissingSceneAsset, err)
	}
	h, err := ParseHouse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse house %s: %w: %w", path, meshcloud.ErrMissingSceneAsset, err)
	}
	diagf("loaded %s: %d levels, %d regions, %d categories, %d objects",
		path, len(h.Levels), len(h.Regions), len(h.Categories), len(h.Objects))
	return h, nil
}

// ParseHouse parses the ASCII .house format. Records other than L, R, C
// and O are skipped. Names encode spaces as '#'.
func ParseHouse(r io.Reader) (*House, error) {
	h := &House{
		Levels:     make(map[int]bool),
		Regions:    make(map[int]Region),
		Categories: make(map[int]Category),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "L":
			err = h.parseLevel(fields)
		case "R":
			err = h.parseRegion(fields)
		case "C":
			err = h.parseCategory(fields)
		case "O":
			err = h.parseObject(fields)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *House) parseLevel(f []string) error {
	v, err := ints(f, 1)
	if err != nil {
		return fmt.Errorf("L record: %w", err)
	}
	h.Levels[v[0]] = true
	return nil
}

// R region_index level_index 0 0 label px py pz ...
func (h *House) parseRegion(f []string) error {
	v, err := ints(f, 1, 2)
	if err != nil {
		return fmt.Errorf("R record: %w", err)
	}
	label := ""
	if len(f) > 5 {
		label = decodeName(f[5])
	}
	h.Regions[v[0]] = Region{Index: v[0], Level: v[1], Label: label}
	h.Levels[v[1]] = true
	return nil
}

// C category_index category_mapping_index category_mapping_name
// mpcat40_index mpcat40_name ...
func (h *House) parseCategory(f []string) error {
	v, err := ints(f, 1, 2, 4)
	if err != nil {
		return fmt.Errorf("C record: %w", err)
	}
	if len(f) < 6 {
		return fmt.Errorf("C record: want at least 6 fields, got %d", len(f))
	}
	h.Categories[v[0]] = Category{
		Index:        v[0],
		RawIndex:     v[1],
		Raw:          decodeName(f[3]),
		MPCat40Index: v[2],
		MPCat40:      decodeName(f[5]),
	}
	return nil
}

// O object_index region_index category_index px py pz ...
func (h *House) parseObject(f []string) error {
	v, err := ints(f, 1, 2, 3)
	if err != nil {
		return fmt.Errorf("O record: %w", err)
	}
	h.Objects = append(h.Objects, Object{Index: v[0], Region: v[1], Category: v[2]})
	tracef("object %d region %d category %d", v[0], v[1], v[2])
	return nil
}

func ints(f []string, idx ...int) ([]int, error) {
	out := make([]int, len(idx))
	for i, j := range idx {
		if j >= len(f) {
			return nil, fmt.Errorf("missing field %d", j)
		}
		n, err := strconv.Atoi(f[j])
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", j, err)
		}
		out[i] = n
	}
	return out, nil
}

func decodeName(s string) string {
	return strings.ReplaceAll(s, "#", " ")
}

// ObjectsInLevel returns the labeled objects whose region lies in level,
// ordered by object index. Objects without a category (index -1 or an
// unknown index) are dropped.
func (h *House) ObjectsInLevel(level int) ([]meshcloud.SceneObject, error) {
	if !h.Levels[level] {
		return nil, fmt.Errorf("level %d not present in house: %w", level, meshcloud.ErrInvalidSceneID)
	}
	var out []meshcloud.SceneObject
	unlabeled := 0
	for _, o := range h.Objects {
		reg, ok := h.Regions[o.Region]
		if !ok || reg.Level != level {
			continue
		}
		if o.Category < 0 {
			unlabeled++
			continue
		}
		cat, ok := h.Categories[o.Category]
		if !ok {
			opsf("object %d references unknown category %d; treating as unlabeled", o.Index, o.Category)
			unlabeled++
			continue
		}
		out = append(out, meshcloud.SceneObject{
			ID:     meshcloud.ObjectID(o.Index),
			Coarse: cat.MPCat40,
			Fine:   cat.Raw,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	diagf("level %d: %d labeled objects, %d unlabeled", level, len(out), unlabeled)
	return out, nil
}

// KeepWhitelisted reduces objects to those whose resolved category is in
// the whitelist.
func KeepWhitelisted(objects []meshcloud.SceneObject, t *labels.Tables) []meshcloud.SceneObject {
	out := make([]meshcloud.SceneObject, 0, len(objects))
	for _, o := range objects {
		if t.Retains(o) {
			out = append(out, o)
		}
	}
	diagf("whitelist kept %d of %d objects", len(out), len(objects))
	return out
}

// Resolve loads the house for id and returns its whitelisted objects.
func Resolve(fsys fsutil.FileSystem, dataDir string, id ID, t *labels.Tables) ([]meshcloud.SceneObject, error) {
	h, err := LoadHouse(fsys, id.HousePath(dataDir))
	if err != nil {
		return nil, err
	}
	objects, err := h.ObjectsInLevel(id.Level)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", id, err)
	}
	return KeepWhitelisted(objects, t), nil
}
