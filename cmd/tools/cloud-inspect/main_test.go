package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/storage/sqlite"
	"github.com/banshee-data/meshcloud/internal/timeutil"
)

func TestReport(t *testing.T) {
	sofa := meshcloud.ObjectLabel{Object: 2, Category: "sofa", Semantic: 6, Color: meshcloud.Color{1, 2, 3}}
	c := pointcloud.New(0)
	c.Append(r3.Vec{X: 1, Y: 2, Z: 3}, sofa)
	c.Append(r3.Vec{X: -1, Y: 0, Z: 0.5}, sofa)

	path := filepath.Join(t.TempDir(), "h_0.db")
	ds := &sqlite.Dataset{SceneID: "h_0", HouseID: "h", Resolution: 0.1, ToolVersion: "meshcloud/dev"}
	clock := timeutil.NewMockClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, sqlite.NewWriter(clock).Write(path, ds, c, []meshcloud.ObjectLabel{sofa}))

	contents, err := sqlite.ReadDataset(path)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, report(&buf, contents))

	out := buf.String()
	assert.Contains(t, out, "scene      h_0 (house h, level 0)")
	assert.Contains(t, out, "written    2026-01-02T03:04:05Z by meshcloud/dev")
	assert.Contains(t, out, "points     2")
	assert.Contains(t, out, "vertices  float32 [2 x 3]")
	assert.Contains(t, out, "sofa")
	assert.Contains(t, out, "instances  1")
}

func TestReport_Misaligned(t *testing.T) {
	c := pointcloud.New(2)
	c.SemanticIDs = c.SemanticIDs[:1]
	err := report(&bytes.Buffer{}, &sqlite.Contents{Cloud: c})
	assert.Error(t, err)
}
