package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/meshcloud/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		*resolution, *configPath, *dataDir, *outDir = 0, "", "", ""
		*workers, *formats = 0, ""
	})
}

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, "", *sceneID)
	assert.Equal(t, 0.0, *resolution)
	assert.False(t, *withPreview)
	assert.False(t, *trace)
	assert.False(t, *showVersion)
}

func TestBuildConfig_Defaults(t *testing.T) {
	resetFlags(t)
	cfg, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.GetSamplingResolution())
	assert.Equal(t, []string{config.FormatSQLite}, cfg.GetFormats())
	assert.Equal(t, 1, cfg.GetWorkers())
}

func TestBuildConfig_FlagsOverrideFile(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sampling_resolution": 0.2, "workers": 3, "data_dir": "/mnt/mp3d"}`), 0o644))

	*configPath = path
	*resolution = 0.05
	*outDir = "/tmp/clouds"
	*formats = "PLY, pcd"

	cfg, err := buildConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.GetSamplingResolution())
	assert.Equal(t, 3, cfg.GetWorkers())
	assert.Equal(t, "/mnt/mp3d", cfg.GetDataDir())
	assert.Equal(t, "/tmp/clouds", cfg.GetOutputDir())
	assert.Equal(t, []string{"ply", "pcd"}, cfg.GetFormats())
}

func TestBuildConfig_Invalid(t *testing.T) {
	resetFlags(t)
	*resolution = -1
	_, err := buildConfig()
	assert.Error(t, err)

	*resolution = 0
	*formats = "hdf5"
	_, err = buildConfig()
	assert.Error(t, err)

	*formats = ""
	*configPath = "config.yaml"
	_, err = buildConfig()
	assert.Error(t, err)
}
