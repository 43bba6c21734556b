package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/pointcloud"
	"github.com/banshee-data/meshcloud/internal/timeutil"
)

// Dataset is the datasets row describing one densify run.
type Dataset struct {
	DatasetID       string
	SceneID         string
	HouseID         string
	Level           int
	Resolution      float64
	Points          int
	Faces           int
	RetainedFaces   int
	DegenerateFaces int
	ToolVersion     string
	CreatedAt       int64 // unix nanoseconds
}

// Contents is everything read back from a container.
type Contents struct {
	Dataset Dataset
	Arrays  map[string]Array
	Cloud   *pointcloud.Cloud
	Labels  []meshcloud.ObjectLabel
}

// Writer writes containers.
type Writer struct {
	clock timeutil.Clock
}

// NewWriter returns a Writer stamping datasets with clock. A nil clock
// uses the wall clock.
func NewWriter(clock timeutil.Clock) *Writer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Writer{clock: clock}
}

// Write stores ds, c and labels as a fresh container at path, replacing
// any existing file. The container is built beside path and renamed into
// place, so path never holds a partial container. Failures wrap
// meshcloud.ErrWriteFailure.
func (w *Writer) Write(path string, ds *Dataset, c *pointcloud.Cloud, labels []meshcloud.ObjectLabel) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", meshcloud.ErrWriteFailure, err)
	}
	if ds.DatasetID == "" {
		ds.DatasetID = uuid.New().String()
	}
	if ds.CreatedAt == 0 {
		ds.CreatedAt = w.clock.Now().UnixNano()
	}
	ds.Points = c.Len()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", meshcloud.ErrWriteFailure, err)
	}
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove stale %s: %v", meshcloud.ErrWriteFailure, tmp, err)
	}
	if err := writeContainer(tmp, ds, c, labels); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %s: %v", meshcloud.ErrWriteFailure, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", meshcloud.ErrWriteFailure, err)
	}
	opsf("wrote %s: %d points, dataset %s", path, ds.Points, ds.DatasetID)
	return nil
}

func writeContainer(path string, ds *Dataset, c *pointcloud.Cloud, labels []meshcloud.ObjectLabel) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO datasets (
			dataset_id, scene_id, house_id, level, resolution,
			point_count, face_count, retained_face_count, degenerate_face_count,
			tool_version, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.DatasetID, ds.SceneID, ds.HouseID, ds.Level, ds.Resolution,
		ds.Points, ds.Faces, ds.RetainedFaces, ds.DegenerateFaces,
		ds.ToolVersion, ds.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}

	for _, a := range cloudArrays(c) {
		blob, err := encodeBlob(a.Data)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO dataset_arrays (dataset_id, name, dtype, row_count, col_count, data)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ds.DatasetID, a.Name, a.DType, a.Rows, a.Cols, blob,
		)
		if err != nil {
			return fmt.Errorf("insert array %s: %w", a.Name, err)
		}
		diagf("array %s %dx%d %s: %d compressed bytes", a.Name, a.Rows, a.Cols, a.DType, len(blob))
	}

	for _, l := range labels {
		_, err = tx.Exec(`
			INSERT INTO dataset_labels (dataset_id, object_id, semantic_id, category, r, g, b)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ds.DatasetID, l.Object, l.Semantic, l.Category, l.Color[0], l.Color[1], l.Color[2],
		)
		if err != nil {
			return fmt.Errorf("insert label for object %d: %w", l.Object, err)
		}
	}
	return tx.Commit()
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=DELETE",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// ReadDataset opens the container at path and returns its single
// dataset.
func ReadDataset(path string) (*Contents, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	out := &Contents{Arrays: make(map[string]Array)}
	ds := &out.Dataset
	err = db.QueryRow(`
		SELECT dataset_id, scene_id, house_id, level, resolution,
		       point_count, face_count, retained_face_count, degenerate_face_count,
		       tool_version, created_at_ns
		FROM datasets
		ORDER BY created_at_ns DESC
		LIMIT 1`).Scan(
		&ds.DatasetID, &ds.SceneID, &ds.HouseID, &ds.Level, &ds.Resolution,
		&ds.Points, &ds.Faces, &ds.RetainedFaces, &ds.DegenerateFaces,
		&ds.ToolVersion, &ds.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	rows, err := db.Query(`
		SELECT name, dtype, row_count, col_count, data
		FROM dataset_arrays
		WHERE dataset_id = ?`, ds.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("query arrays: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name, dtype        string
			rowCount, colCount int
			blob               []byte
		)
		if err := rows.Scan(&name, &dtype, &rowCount, &colCount, &blob); err != nil {
			return nil, err
		}
		a, err := decodeArray(name, dtype, rowCount, colCount, blob)
		if err != nil {
			return nil, err
		}
		out.Arrays[name] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out.Cloud, err = assembleCloud(out.Arrays)
	if err != nil {
		return nil, err
	}
	if out.Cloud.Len() != ds.Points {
		return nil, fmt.Errorf("dataset records %d points, arrays hold %d", ds.Points, out.Cloud.Len())
	}

	out.Labels, err = readLabels(db, ds.DatasetID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readLabels(db *sql.DB, datasetID string) ([]meshcloud.ObjectLabel, error) {
	rows, err := db.Query(`
		SELECT object_id, semantic_id, category, r, g, b
		FROM dataset_labels
		WHERE dataset_id = ?
		ORDER BY object_id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var out []meshcloud.ObjectLabel
	for rows.Next() {
		var l meshcloud.ObjectLabel
		if err := rows.Scan(&l.Object, &l.Semantic, &l.Category, &l.Color[0], &l.Color[1], &l.Color[2]); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
