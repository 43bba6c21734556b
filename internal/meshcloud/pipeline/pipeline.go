// Package pipeline runs one scene through resolve, label, densify and
// write, in that order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/meshcloud/internal/config"
	"github.com/banshee-data/meshcloud/internal/fsutil"
	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/densify"
	"github.com/banshee-data/meshcloud/internal/meshcloud/labels"
	"github.com/banshee-data/meshcloud/internal/meshcloud/plymesh"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/preview"
	"github.com/banshee-data/meshcloud/internal/meshcloud/scene"
	"github.com/banshee-data/meshcloud/internal/meshcloud/storage/sqlite"
	"github.com/banshee-data/meshcloud/internal/security"
	"github.com/banshee-data/meshcloud/internal/timeutil"
	"github.com/banshee-data/meshcloud/internal/version"
)

// Params configures a run. FS and Clock default to the OS filesystem
// and the wall clock.
type Params struct {
	SceneID string
	Config  *config.Config
	Preview bool

	FS    fsutil.FileSystem
	Clock timeutil.Clock
}

// Result describes a completed run.
type Result struct {
	Scene     scene.ID
	Stats     densify.Stats
	Summary   pointcloud.Summary
	Artifacts []string
	Elapsed   time.Duration
}

// Run processes one scene. Any error aborts the run. Each artifact is
// written atomically, and when a later artifact fails the ones already
// written by this run are removed, so a failed run leaves no output.
func Run(ctx context.Context, p Params) (*Result, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fsys := p.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	clock := p.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()

	id, err := scene.ParseID(p.SceneID)
	if err != nil {
		return nil, err
	}
	tables, err := cfg.GetSemanticTables().Tables()
	if err != nil {
		return nil, fmt.Errorf("semantic tables: %w", err)
	}

	dataDir := cfg.GetDataDir()
	objects, err := scene.Resolve(fsys, dataDir, id, tables)
	if err != nil {
		return nil, err
	}
	assignment, err := labels.Assign(objects, tables)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", id, err)
	}
	for _, l := range assignment.Sorted() {
		tracef("object %d -> %s (semantic %d, colour %s)", l.Object, l.Category, l.Semantic, l.Color.Hex())
	}

	mesh, err := plymesh.LoadMesh(fsys, id.MeshPath(dataDir))
	if err != nil {
		return nil, err
	}
	diagf("mesh %s: %d vertices, %d faces", id.MeshPath(dataDir), len(mesh.Vertices), len(mesh.Faces))

	cloud, stats, err := densify.Densify(ctx, mesh, assignment.ByObject, densify.Options{
		Resolution:    cfg.GetSamplingResolution(),
		Workers:       cfg.GetWorkers(),
		ProgressEvery: cfg.GetProgressEvery(),
		MaxPoints:     cfg.GetMaxPoints(),
	})
	if err != nil {
		return nil, fmt.Errorf("densify %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Scene: id, Stats: stats, Summary: cloud.Summarize()}
	w := &writer{
		fsys:   fsys,
		outDir: cfg.GetOutputDir(),
		id:     id,
	}
	if err := fsys.MkdirAll(w.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", meshcloud.ErrWriteFailure, err)
	}

	if err := w.writeAll(clock, cfg, p.Preview, stats, cloud, assignment, tables, res); err != nil {
		w.discard()
		return nil, err
	}

	res.Elapsed = clock.Since(start)
	opsf("scene %s: %d points from %d/%d faces in %s", id, stats.Points(), stats.Retained, stats.Faces, res.Elapsed)
	for _, cc := range res.Summary.Classes {
		diagf("  %-20s %9d points", tables.Name(cc.Semantic), cc.Points)
	}
	return res, nil
}

type writer struct {
	fsys    fsutil.FileSystem
	outDir  string
	id      scene.ID
	written []artifact
}

// artifact is one file written by the current run. Containers live on
// the OS filesystem, everything else on fsys.
type artifact struct {
	path   string
	onDisk bool
}

func (w *writer) writeAll(clock timeutil.Clock, cfg *config.Config, withPreview bool, stats densify.Stats,
	cloud *pointcloud.Cloud, assignment *labels.Assignment, tables *labels.Tables, res *Result) error {
	for _, format := range cfg.GetFormats() {
		var (
			path string
			err  error
		)
		switch format {
		case config.FormatSQLite:
			path, err = w.container(clock, cfg, stats, cloud, assignment.Sorted())
		case config.FormatPLY:
			path, err = w.stream(".ply", func(out io.Writer) error { return pointcloud.WritePLY(out, cloud) })
		case config.FormatPCD:
			path, err = w.stream(".pcd", func(out io.Writer) error { return pointcloud.WritePCD(out, cloud) })
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return err
		}
		res.Artifacts = append(res.Artifacts, path)
	}
	if !withPreview {
		return nil
	}

	idx := preview.Downsample(cloud, cfg.GetPreviewVoxelSize(), cfg.GetPreviewMaxPoints())
	path, err := w.stream("_preview.html", func(out io.Writer) error {
		return preview.WriteScatterHTML(out, w.id.String(), cloud, idx, tables)
	})
	if err != nil {
		return err
	}
	res.Artifacts = append(res.Artifacts, path)

	path, err = w.stream("_classes.png", func(out io.Writer) error {
		return preview.WriteClassHistogram(out, w.id.String(), res.Summary, tables)
	})
	if err != nil {
		return err
	}
	res.Artifacts = append(res.Artifacts, path)
	return nil
}

// discard removes every artifact written so far.
func (w *writer) discard() {
	for _, a := range w.written {
		var err error
		if a.onDisk {
			err = os.Remove(a.path)
		} else {
			err = w.fsys.Remove(a.path)
		}
		if err != nil {
			opsf("failed to remove %s: %v", a.path, err)
			continue
		}
		opsf("removed %s", a.path)
	}
	w.written = nil
}

func (w *writer) path(suffix string) (string, error) {
	p, err := security.OutputPath(w.outDir, w.id.String(), suffix)
	if err != nil {
		return "", fmt.Errorf("%w: %v", meshcloud.ErrWriteFailure, err)
	}
	return p, nil
}

func (w *writer) stream(suffix string, write func(io.Writer) error) (string, error) {
	p, err := w.path(suffix)
	if err != nil {
		return "", err
	}
	if err := fsutil.WriteAtomic(w.fsys, p, write); err != nil {
		return "", fmt.Errorf("%w: %s: %v", meshcloud.ErrWriteFailure, p, err)
	}
	w.written = append(w.written, artifact{path: p})
	opsf("wrote %s", p)
	return p, nil
}

// container writes the SQLite dataset. SQLite needs a real file, so it
// bypasses the FileSystem seam.
func (w *writer) container(clock timeutil.Clock, cfg *config.Config, stats densify.Stats, cloud *pointcloud.Cloud, lbls []meshcloud.ObjectLabel) (string, error) {
	p, err := w.path(".db")
	if err != nil {
		return "", err
	}
	ds := &sqlite.Dataset{
		SceneID:         w.id.String(),
		HouseID:         w.id.House,
		Level:           w.id.Level,
		Resolution:      cfg.GetSamplingResolution(),
		Faces:           stats.Faces,
		RetainedFaces:   stats.Retained,
		DegenerateFaces: stats.Degenerate,
		ToolVersion:     version.Tool(),
	}
	if err := sqlite.NewWriter(clock).Write(p, ds, cloud, lbls); err != nil {
		return "", err
	}
	w.written = append(w.written, artifact{path: p, onDisk: true})
	return p, nil
}
