package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"variant-compositor/internal/identity"
	"variant-compositor/internal/raster"
)

// Config holds all configurable paths and compositing settings.
type Config struct {
	// Paths
	BaseDir     string `json:"base_dir"`
	InputDir    string `json:"input_dir"`
	OutputDir   string `json:"output_dir"`
	Catalog     string `json:"catalog"`
	MaterialMap string `json:"material_map"`

	// MaterialManifest is an EXR whose cryptomatte manifest names the
	// materials, used when MaterialMap is empty.
	MaterialManifest string `json:"material_manifest"`

	// Frame selection
	BaseResolution int `json:"base_resolution"`
	Level          int `json:"level"`
	Frame          int `json:"frame"`

	// Output settings
	Format         string `json:"format"`
	IdentityPolicy string `json:"identity_policy"`
	Overwrite      bool   `json:"overwrite"`
	PreviewSize    int    `json:"preview_size"`
	Workers        int    `json:"workers"`
	Metal          bool   `json:"metal"`

	Turntable *Turntable `json:"turntable,omitempty"`
}

// Turntable configures the rotating-rig depth policy. Angles are degrees.
type Turntable struct {
	Enabled        bool    `json:"enabled"`
	Epsilon        float32 `json:"epsilon"`
	ThresholdX     int     `json:"threshold_x"`
	AngleTolerance float64 `json:"angle_tolerance"`
	FramesPerTurn  int     `json:"frames_per_turn"`
	Plane          string  `json:"plane"`
	PlaneChannel   string  `json:"plane_channel"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with auto-detected defaults.
// CLI flags take priority when set.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.DataDir != "" {
		c.BaseDir = flags.DataDir
	}
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Catalog != "" {
		c.Catalog = flags.Catalog
	}
	if flags.Level >= 0 {
		c.Level = flags.Level
	}
	if flags.Frame >= 0 {
		c.Frame = flags.Frame
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Policy != "" {
		c.IdentityPolicy = flags.Policy
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Overwrite {
		c.Overwrite = true
	}
	if flags.Metal {
		c.Metal = true
	}

	// Auto-detect base dir if still empty
	if c.BaseDir == "" {
		c.BaseDir = detectBaseDir()
	}

	// Resolve relative paths against base dir
	if c.BaseDir != "" {
		c.InputDir = resolvePath(c.BaseDir, c.InputDir, "renders")
		c.OutputDir = resolvePath(c.BaseDir, c.OutputDir, "composites")
		c.Catalog = resolvePath(c.BaseDir, c.Catalog, "")
		c.MaterialMap = resolvePath(c.BaseDir, c.MaterialMap, "")
		c.MaterialManifest = resolvePath(c.BaseDir, c.MaterialManifest, "")
		if c.Turntable != nil {
			c.Turntable.Plane = resolvePath(c.BaseDir, c.Turntable.Plane, "")
		}
	}

	// Defaults for compositing settings
	if c.BaseResolution <= 0 {
		c.BaseResolution = 360
	}
	if c.Format == "" {
		c.Format = string(raster.FormatWebP)
	}
	if c.IdentityPolicy == "" {
		c.IdentityPolicy = identity.PolicyFail.String()
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if t := c.Turntable; t != nil {
		if t.FramesPerTurn <= 0 {
			t.FramesPerTurn = 144
		}
		if t.AngleTolerance <= 0 {
			t.AngleTolerance = 1
		}
		if t.PlaneChannel == "" {
			t.PlaneChannel = "Depth.Z"
		}
	}
}

// Validate reports settings that cannot produce output.
func (c *Config) Validate() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("config: input_dir not set and no base dir detected"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("config: output_dir not set and no base dir detected"))
	}
	if c.Level < 0 {
		errs = append(errs, fmt.Errorf("config: level %d is negative", c.Level))
	}
	if c.Frame < 0 {
		errs = append(errs, fmt.Errorf("config: frame %d is negative", c.Frame))
	}
	if c.PreviewSize < 0 {
		errs = append(errs, fmt.Errorf("config: preview_size %d is negative", c.PreviewSize))
	}
	if _, err := raster.ParseFormat(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if _, err := identity.ParsePolicy(c.IdentityPolicy); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if t := c.Turntable; t != nil && t.Enabled && t.Epsilon < 0 {
		errs = append(errs, fmt.Errorf("config: turntable epsilon %g is negative", t.Epsilon))
	}
	return errors.Join(errs...)
}

// Flags holds CLI flag values that override config file settings.
// Level and Frame are unset when negative.
type Flags struct {
	DataDir   string
	InputDir  string
	OutputDir string
	Catalog   string
	Level     int
	Frame     int
	Format    string
	Policy    string
	Workers   int
	Overwrite bool
	Metal     bool
}

// resolvePath joins a relative path onto base. An empty path becomes
// base/def, or stays empty when def is empty.
func resolvePath(base, path, def string) string {
	switch {
	case path == "" && def == "":
		return ""
	case path == "":
		return filepath.Join(base, def)
	case filepath.IsAbs(path):
		return path
	}
	return filepath.Join(base, path)
}

func detectBaseDir() string {
	// Try relative to executable
	exe, _ := os.Executable()
	if exe != "" {
		dir := filepath.Dir(exe)
		for _, base := range []string{dir, filepath.Dir(dir), filepath.Join(dir, "..", "..")} {
			if hasRenders(base) {
				return base
			}
		}
	}

	// Try current working directory, then its parent
	cwd, _ := os.Getwd()
	if hasRenders(cwd) {
		return cwd
	}
	if parent := filepath.Dir(cwd); hasRenders(parent) {
		return parent
	}

	return ""
}

func hasRenders(base string) bool {
	_, err := os.Stat(filepath.Join(base, "renders", "Diffuse"))
	return err == nil
}
