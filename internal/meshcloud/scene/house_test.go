package scene

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/meshcloud/internal/fsutil"
	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/labels"
	"github.com/banshee-data/meshcloud/internal/testutil"
)

func twoLevelHouse() []byte {
	return testutil.NewHouse().
		Level(0).
		Level(1).
		Region(0, 0, "kitchen").
		Region(1, 0, "living room").
		Region(2, 1, "bedroom").
		Category(0, "wall", 1, "wall").
		Category(1, "dining chair", 3, "chair").
		Category(2, "refrigerator", 37, "appliances").
		Category(3, "toaster", 37, "appliances").
		Category(4, "bed", 11, "bed").
		Object(4, 0, 1).
		Object(2, 0, 0).
		Object(7, 1, 2).
		Object(8, 1, 3).
		Object(9, 1, -1).
		Object(10, 2, 4).
		Bytes()
}

func testTables(t *testing.T) *labels.Tables {
	t.Helper()
	tables, err := labels.NewTables(
		[]string{"chair", "bed", "refrigerator"},
		[]string{"appliances"},
		[]meshcloud.Color{{}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}},
	)
	require.NoError(t, err)
	return tables
}

func TestParseHouse(t *testing.T) {
	h, err := ParseHouse(strings.NewReader(string(twoLevelHouse())))
	require.NoError(t, err)

	assert.True(t, h.Levels[0])
	assert.True(t, h.Levels[1])
	assert.Len(t, h.Regions, 3)
	assert.Equal(t, "living room", h.Regions[1].Label)
	assert.Len(t, h.Categories, 5)
	assert.Equal(t, Category{Index: 1, RawIndex: 2, Raw: "dining chair", MPCat40Index: 3, MPCat40: "chair"}, h.Categories[1])
	assert.Len(t, h.Objects, 6)
}

func TestParseHouse_SkipsUnknownRecords(t *testing.T) {
	text := "ASCII 1.1\nH x 0 0 0\nV 0 0 0\n\nL 0 1 level\nE 0 0 0 0\n"
	h, err := ParseHouse(strings.NewReader(text))
	require.NoError(t, err)
	assert.True(t, h.Levels[0])
	assert.Empty(t, h.Objects)
}

func TestParseHouse_Malformed(t *testing.T) {
	tests := map[string]string{
		"bad object index": "O x 0 0\n",
		"short object":     "O 1 0\n",
		"short category":   "C 1 2 chair 3\n",
		"bad region level": "R 0 zero 0 0 room\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHouse(strings.NewReader(text))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestObjectsInLevel(t *testing.T) {
	h, err := ParseHouse(strings.NewReader(string(twoLevelHouse())))
	require.NoError(t, err)

	got, err := h.ObjectsInLevel(0)
	require.NoError(t, err)
	want := []meshcloud.SceneObject{
		{ID: 2, Coarse: "wall", Fine: "wall"},
		{ID: 4, Coarse: "chair", Fine: "dining chair"},
		{ID: 7, Coarse: "appliances", Fine: "refrigerator"},
		{ID: 8, Coarse: "appliances", Fine: "toaster"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ObjectsInLevel(0) mismatch (-want +got):\n%s", diff)
	}

	got, err = h.ObjectsInLevel(1)
	require.NoError(t, err)
	assert.Equal(t, []meshcloud.SceneObject{{ID: 10, Coarse: "bed", Fine: "bed"}}, got)

	_, err = h.ObjectsInLevel(3)
	assert.True(t, errors.Is(err, meshcloud.ErrInvalidSceneID))
}

func TestObjectsInLevel_UnknownCategory(t *testing.T) {
	data := testutil.NewHouse().Level(0).Region(0, 0, "hall").Object(1, 0, 42).Bytes()
	h, err := ParseHouse(strings.NewReader(string(data)))
	require.NoError(t, err)
	got, err := h.ObjectsInLevel(0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeepWhitelisted(t *testing.T) {
	h, err := ParseHouse(strings.NewReader(string(twoLevelHouse())))
	require.NoError(t, err)
	objects, err := h.ObjectsInLevel(0)
	require.NoError(t, err)

	kept := KeepWhitelisted(objects, testTables(t))
	ids := make([]meshcloud.ObjectID, len(kept))
	for i, o := range kept {
		ids[i] = o.ID
	}
	// wall is not whitelisted; toaster re-resolves to a fine name that is not.
	assert.Equal(t, []meshcloud.ObjectID{4, 7}, ids)
}

func TestResolve(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	id := ID{House: "17DRP5sb8fy", Level: 0}
	m.AddFile(id.HousePath("data"), twoLevelHouse())

	objects, err := Resolve(m, "data", id, testTables(t))
	require.NoError(t, err)
	assert.Len(t, objects, 2)

	_, err = Resolve(m, "elsewhere", id, testTables(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, meshcloud.ErrMissingSceneAsset))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = Resolve(m, "data", ID{House: "17DRP5sb8fy", Level: 5}, testTables(t))
	assert.True(t, errors.Is(err, meshcloud.ErrInvalidSceneID))
}

func TestLoadHouse_ParseErrorIsMissingAsset(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	m.AddFile("bad.house", []byte("O nope\n"))
	_, err := LoadHouse(m, "bad.house")
	assert.True(t, errors.Is(err, meshcloud.ErrMissingSceneAsset))
}
