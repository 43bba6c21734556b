// Command meshcloud densifies the semantic mesh of one scene level into a
// labeled point cloud.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/meshcloud/internal/config"
	"github.com/banshee-data/meshcloud/internal/meshcloud/densify"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pipeline"
	"github.com/banshee-data/meshcloud/internal/meshcloud/scene"
	"github.com/banshee-data/meshcloud/internal/meshcloud/storage/sqlite"
	"github.com/banshee-data/meshcloud/internal/version"
)

var (
	sceneID     = flag.String("scene", "", "scene to process, <house>_<level> (required)")
	resolution  = flag.Float64("resolution", 0, "interior sample spacing in scene units (overrides config)")
	configPath  = flag.String("config", "", "path to a JSON config overlaying the built-in defaults")
	dataDir     = flag.String("data-dir", "", "scene asset root (overrides config)")
	outDir      = flag.String("out-dir", "", "output directory (overrides config)")
	workers     = flag.Int("workers", 0, "densify goroutines (overrides config)")
	formats     = flag.String("format", "", "comma separated output formats: sqlite,ply,pcd (overrides config)")
	withPreview = flag.Bool("preview", false, "also write an HTML scatter and a class histogram")
	trace       = flag.Bool("trace", false, "enable trace logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

// buildConfig loads the config file, if any, and applies flag overrides.
func buildConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return nil, err
		}
	}
	if *resolution != 0 {
		cfg.SetSamplingResolution(*resolution)
	}
	if *dataDir != "" {
		cfg.SetDataDir(*dataDir)
	}
	if *outDir != "" {
		cfg.SetOutputDir(*outDir)
	}
	if *workers != 0 {
		cfg.SetWorkers(*workers)
	}
	if *formats != "" {
		cfg.SetFormats(*formats)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func setLogWriters(ops, diag io.Writer, traceOn bool) {
	var tr io.Writer
	if traceOn {
		tr = diag
	}
	scene.SetLogWriters(ops, diag, tr)
	densify.SetLogWriters(ops, diag, tr)
	sqlite.SetLogWriters(ops, diag, tr)
	pipeline.SetLogWriters(ops, diag, tr)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("meshcloud", version.String())
		return
	}
	if *sceneID == "" {
		log.Fatal("-scene is required")
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	setLogWriters(os.Stderr, os.Stderr, *trace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, pipeline.Params{
		SceneID: *sceneID,
		Config:  cfg,
		Preview: *withPreview,
	})
	if err != nil {
		log.Fatalf("scene %s failed: %v", *sceneID, err)
	}
	for _, p := range res.Artifacts {
		fmt.Println(p)
	}
}
