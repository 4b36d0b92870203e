package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"variant-compositor/internal/layer"
)

// Manifest describes one batch run over a single frame.
type Manifest struct {
	CatalogVersion string          `json:"catalog_version"`
	BaseResolution int             `json:"base_resolution"`
	Level          int             `json:"level"`
	Resolution     int             `json:"resolution"`
	Frame          string          `json:"frame"`
	Format         string          `json:"format"`
	Configurations []ManifestEntry `json:"configurations"`
}

// ManifestEntry represents one global configuration in the output manifest.
type ManifestEntry struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Assets   []string `json:"assets"`
	Outputs  []string `json:"outputs,omitempty"`
	Status   string   `json:"status"`
	Degraded int      `json:"degraded,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Status values of a manifest entry.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// NewManifest summarizes results. Outputs are listed only for
// configurations whose files exist.
func NewManifest(cfg Config, results []Result) Manifest {
	m := Manifest{
		CatalogVersion: cfg.Catalog.Version(),
		BaseResolution: cfg.Layout.BaseResolution,
		Level:          cfg.Layout.Level,
		Resolution:     cfg.Layout.Resolution(),
		Frame:          layer.FrameName(cfg.Layout.Frame),
		Format:         string(cfg.Format),
		Configurations: make([]ManifestEntry, len(results)),
	}
	for i, r := range results {
		e := ManifestEntry{
			Name:     r.Name,
			Type:     r.Type.String(),
			Assets:   r.Assets,
			Degraded: r.Degraded,
			Error:    r.Error,
		}
		switch {
		case r.Skipped:
			e.Status = StatusSkipped
			e.Outputs = r.Outputs
		case r.Success:
			e.Status = StatusOK
			e.Outputs = r.Outputs
		default:
			e.Status = StatusFailed
		}
		m.Configurations[i] = e
	}
	return m
}

// ManifestPath returns the manifest file of the run's frame. Runs over
// other resolutions or frames write their own manifest next to it.
func ManifestPath(cfg Config) string {
	l := cfg.Layout
	name := fmt.Sprintf("manifest-%d-%d-%s.json", l.BaseResolution, l.Level, layer.FrameName(l.Frame))
	return filepath.Join(cfg.OutputDir, name)
}

// WriteManifest writes the manifest of results to path.
func WriteManifest(path string, cfg Config, results []Result) error {
	data, err := json.MarshalIndent(NewManifest(cfg, results), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
