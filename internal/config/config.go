package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the conventional location of a user override file.
// The canonical defaults are embedded in the binary.
const DefaultConfigPath = "config/meshcloud.json"

//go:embed semantic.defaults.json
var defaultsJSON []byte

// Output formats understood by the writer stage.
const (
	FormatSQLite = "sqlite"
	FormatPLY    = "ply"
	FormatPCD    = "pcd"
)

var knownFormats = map[string]bool{
	FormatSQLite: true,
	FormatPLY:    true,
	FormatPCD:    true,
}

// Config is the root configuration for a densification run. Every field
// is optional; the Get* accessors fall back to the built-in default so
// partial override files are safe.
type Config struct {
	DataDir            *string  `json:"data_dir,omitempty"`
	OutputDir          *string  `json:"output_dir,omitempty"`
	SamplingResolution *float64 `json:"sampling_resolution,omitempty"`
	Workers            *int     `json:"workers,omitempty"`
	Formats            []string `json:"formats,omitempty"`
	ProgressEvery      *int     `json:"progress_every,omitempty"`
	MaxPoints          *int     `json:"max_points,omitempty"`

	// Preview params
	PreviewVoxelSize *float64 `json:"preview_voxel_size,omitempty"`
	PreviewMaxPoints *int     `json:"preview_max_points,omitempty"`

	SemanticTables *SemanticTables `json:"semantic_tables,omitempty"`
}

// SemanticTables is the JSON form of the static label tables.
type SemanticTables struct {
	// ObjectWhitelist is ordered: entry i has semantic id i+1.
	ObjectWhitelist []string `json:"object_whitelist"`
	// UseFine lists coarse names that must be re-resolved with the
	// fine-grained naming convention.
	UseFine []string `json:"use_fine"`
	// LabelColours is indexed by semantic id, including id 0.
	LabelColours [][3]uint8 `json:"label_colours"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyConfig returns a Config with every field unset.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns the embedded defaults. It panics if the embedded
// file is corrupt, which is a build defect rather than a runtime error.
func DefaultConfig() *Config {
	cfg := EmptyConfig()
	if err := json.Unmarshal(defaultsJSON, cfg); err != nil {
		panic(fmt.Sprintf("embedded defaults: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("embedded defaults: %v", err))
	}
	return cfg
}

// LoadConfig loads a Config from a JSON file and overlays it on the
// embedded defaults. The file must have a .json extension and be at most
// 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	override := EmptyConfig()
	if err := json.Unmarshal(data, override); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Merge copies every field set in o onto c. Semantic tables are replaced
// as a unit since their entries are index-aligned.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	if o.DataDir != nil {
		c.DataDir = o.DataDir
	}
	if o.OutputDir != nil {
		c.OutputDir = o.OutputDir
	}
	if o.SamplingResolution != nil {
		c.SamplingResolution = o.SamplingResolution
	}
	if o.Workers != nil {
		c.Workers = o.Workers
	}
	if o.Formats != nil {
		c.Formats = o.Formats
	}
	if o.ProgressEvery != nil {
		c.ProgressEvery = o.ProgressEvery
	}
	if o.MaxPoints != nil {
		c.MaxPoints = o.MaxPoints
	}
	if o.PreviewVoxelSize != nil {
		c.PreviewVoxelSize = o.PreviewVoxelSize
	}
	if o.PreviewMaxPoints != nil {
		c.PreviewMaxPoints = o.PreviewMaxPoints
	}
	if o.SemanticTables != nil {
		c.SemanticTables = o.SemanticTables
	}
}

// Validate checks that every set value is usable.
func (c *Config) Validate() error {
	if c.SamplingResolution != nil {
		if !(*c.SamplingResolution > 0) {
			return fmt.Errorf("sampling_resolution must be positive, got %g", *c.SamplingResolution)
		}
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must be non-negative, got %d", *c.ProgressEvery)
	}
	if c.MaxPoints != nil && *c.MaxPoints < 1 {
		return fmt.Errorf("max_points must be at least 1, got %d", *c.MaxPoints)
	}
	if c.PreviewVoxelSize != nil && *c.PreviewVoxelSize < 0 {
		return fmt.Errorf("preview_voxel_size must be non-negative, got %g", *c.PreviewVoxelSize)
	}
	if c.PreviewMaxPoints != nil && *c.PreviewMaxPoints < 1 {
		return fmt.Errorf("preview_max_points must be at least 1, got %d", *c.PreviewMaxPoints)
	}
	for _, f := range c.Formats {
		if !knownFormats[f] {
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	if c.SemanticTables != nil {
		if err := c.SemanticTables.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks table consistency: a non-empty whitelist without
// duplicates and a colour for every semantic id including 0.
func (t *SemanticTables) Validate() error {
	if len(t.ObjectWhitelist) == 0 {
		return fmt.Errorf("object_whitelist must not be empty")
	}
	seen := make(map[string]bool, len(t.ObjectWhitelist))
	for _, name := range t.ObjectWhitelist {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("object_whitelist contains an empty name")
		}
		if seen[name] {
			return fmt.Errorf("object_whitelist contains %q twice", name)
		}
		seen[name] = true
	}
	if want := len(t.ObjectWhitelist) + 1; len(t.LabelColours) < want {
		return fmt.Errorf("label_colours has %d entries, need %d (ids 0..%d)", len(t.LabelColours), want, want-1)
	}
	return nil
}

// GetDataDir returns the root of the scene asset tree.
func (c *Config) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "data/mp3d"
	}
	return *c.DataDir
}

// GetOutputDir returns the directory containers are written to.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "data/object_point_clouds"
	}
	return *c.OutputDir
}

// GetSamplingResolution returns the interior sample spacing in scene units.
func (c *Config) GetSamplingResolution() float64 {
	if c.SamplingResolution == nil {
		return 0.01
	}
	return *c.SamplingResolution
}

// GetWorkers returns the number of densify workers.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetFormats returns the output formats to write.
func (c *Config) GetFormats() []string {
	if len(c.Formats) == 0 {
		return []string{FormatSQLite}
	}
	return c.Formats
}

// GetProgressEvery returns the face interval between progress logs.
// Zero disables progress logging.
func (c *Config) GetProgressEvery() int {
	if c.ProgressEvery == nil {
		return 10000
	}
	return *c.ProgressEvery
}

// GetMaxPoints returns the cap on points in one cloud.
func (c *Config) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return math.MaxInt32
	}
	return *c.MaxPoints
}

// GetPreviewVoxelSize returns the voxel leaf size used for previews.
func (c *Config) GetPreviewVoxelSize() float64 {
	if c.PreviewVoxelSize == nil {
		return 0.05
	}
	return *c.PreviewVoxelSize
}

// GetPreviewMaxPoints returns the preview point cap.
func (c *Config) GetPreviewMaxPoints() int {
	if c.PreviewMaxPoints == nil {
		return 20000
	}
	return *c.PreviewMaxPoints
}

// GetSemanticTables returns the configured tables, or the embedded
// defaults when none are set.
func (c *Config) GetSemanticTables() *SemanticTables {
	if c.SemanticTables == nil {
		return DefaultConfig().SemanticTables
	}
	return c.SemanticTables
}

// SetDataDir, SetOutputDir and friends apply command-line overrides.

func (c *Config) SetDataDir(v string)             { c.DataDir = ptrString(v) }
func (c *Config) SetOutputDir(v string)           { c.OutputDir = ptrString(v) }
func (c *Config) SetSamplingResolution(v float64) { c.SamplingResolution = ptrFloat64(v) }
func (c *Config) SetWorkers(v int)                { c.Workers = ptrInt(v) }

// SetFormats parses a comma separated list such as "sqlite,ply".
func (c *Config) SetFormats(list string) {
	var out []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	c.Formats = out
}
