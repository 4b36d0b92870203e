package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"variant-compositor/internal/catalog"
	"variant-compositor/internal/composite"
	"variant-compositor/internal/layer"
	"variant-compositor/internal/logging"
	"variant-compositor/internal/raster"
)

// Output file stems, one per raster.
const (
	LightFile   = "light"
	IndexFile   = "index"
	MatteFile   = "matte"
	MetalFile   = "metal"
	PreviewFile = "preview.webp"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Catalog     *catalog.Catalog
	Layout      layer.Layout
	Store       layer.Store
	Compositor  *composite.Compositor
	OutputDir   string
	Format      raster.Format
	Overwrite   bool
	PreviewSize int
	Workers     int

	// Metal writes the metal finish raster; the store must load metal passes.
	Metal bool

	// Types restricts the run to these section types; nil runs all.
	Types []catalog.SectionType
}

// Result holds the outcome of one global configuration.
type Result struct {
	Name     string
	Type     catalog.SectionType
	Assets   []string
	Outputs  []string // relative to the output directory
	Success  bool
	Skipped  bool
	Degraded int
	Error    string
}

// outputDir returns the directory holding the rasters of one configuration.
func (cfg Config) outputDir(name string) string {
	return filepath.Join(cfg.OutputDir, relDir(cfg.Layout, name))
}

func relDir(l layer.Layout, name string) string {
	return filepath.Join(name, strconv.Itoa(l.BaseResolution), strconv.Itoa(l.Level), layer.FrameName(l.Frame))
}

// outputs returns the relative paths of the files written for name.
func (cfg Config) outputs(name string) []string {
	dir := relDir(cfg.Layout, name)
	out := []string{
		filepath.Join(dir, LightFile+cfg.Format.Ext()),
		filepath.Join(dir, IndexFile+cfg.Format.Ext()),
		filepath.Join(dir, MatteFile+cfg.Format.Ext()),
	}
	if cfg.Metal {
		out = append(out, filepath.Join(dir, MetalFile+cfg.Format.Ext()))
	}
	if cfg.PreviewSize > 0 {
		out = append(out, filepath.Join(dir, PreviewFile))
	}
	return out
}

// Run composites every global configuration of every section type. A
// failed configuration never stops its siblings; a cancelled context stops
// handing out new configurations.
func Run(ctx context.Context, cfg Config) []Result {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Format == "" {
		cfg.Format = raster.FormatWebP
	}

	types := cfg.Types
	if types == nil {
		types = catalog.SectionTypes
	}

	var results []Result
	for _, t := range types {
		if len(cfg.Catalog.SectionsOf(t)) == 0 {
			continue
		}
		results = append(results, runType(ctx, cfg, t)...)
	}
	return results
}

func runType(ctx context.Context, cfg Config, t catalog.SectionType) []Result {
	globals := cfg.Catalog.GlobalConfigs(t)
	results := make([]Result, len(globals))

	// Skip-if-exists is decided up front so finished configurations do not
	// pull their assets into the cache.
	var pending []int
	needed := make(map[string]bool)
	var assets []string
	for i, g := range globals {
		name := g.Name()
		results[i] = Result{
			Name:    name,
			Type:    t,
			Assets:  cfg.Catalog.SectionNames(g),
			Outputs: cfg.outputs(name),
		}
		if !cfg.Overwrite && cfg.complete(results[i].Outputs) {
			results[i].Success = true
			results[i].Skipped = true
			continue
		}
		pending = append(pending, i)
		for _, a := range results[i].Assets {
			if !needed[a] {
				needed[a] = true
				assets = append(assets, a)
			}
		}
	}
	if len(pending) == 0 {
		logging.Logger().Info("batch: all configurations present", "type", t, "configs", len(globals))
		return results
	}

	fmt.Printf("%s: %d configurations (%d skipped), %d assets\n", t, len(globals), len(globals)-len(pending), len(assets))

	cache := layer.NewCache(cfg.Store, cfg.Layout.Resolution())
	failed, err := cache.Preload(ctx, assets, cfg.Workers)
	if err != nil {
		for _, i := range pending {
			results[i].Error = err.Error()
		}
		return results
	}
	if failed > 0 {
		fmt.Printf("  %d of %d assets failed to load\n", failed, len(assets))
	}

	total := len(pending)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f configs/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	idxChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxChan {
				processConfig(cfg, cache, &results[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	sent := 0
send:
	for _, i := range pending {
		select {
		case <-ctx.Done():
			break send
		case idxChan <- i:
			sent++
		}
	}
	close(idxChan)

	wg.Wait()
	close(done)

	for _, i := range pending[sent:] {
		results[i].Error = ctx.Err().Error()
	}
	return results
}

// complete reports whether every output file exists.
func (cfg Config) complete(outputs []string) bool {
	for _, rel := range outputs {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, rel)); err != nil {
			return false
		}
	}
	return true
}

type outputFile struct {
	stem string
	img  *raster.Raster
}

func processConfig(cfg Config, cache *layer.Cache, r *Result) {
	bundles := make([]*layer.Bundle, len(r.Assets))
	for i, name := range r.Assets {
		b, err := cache.Get(name)
		if err != nil {
			r.Error = err.Error()
			return
		}
		bundles[i] = b
	}

	res, err := cfg.Compositor.Compose(bundles)
	if err != nil {
		r.Error = err.Error()
		return
	}
	if cfg.Metal && res.Metal == nil {
		r.Error = fmt.Sprintf("batch: %s: no metal passes loaded", r.Name)
		return
	}
	r.Degraded = res.Degraded
	if res.Degraded > 0 {
		logging.Logger().Warn("batch: unknown identities degraded", "config", r.Name, "hashes", res.Degraded)
	}

	dir := cfg.outputDir(r.Name)
	writes := []outputFile{
		{LightFile, res.Light},
		{IndexFile, res.Index},
		{MatteFile, res.Matte},
	}
	if cfg.Metal {
		writes = append(writes, outputFile{MetalFile, res.Metal})
	}
	for _, w := range writes {
		path := filepath.Join(dir, w.stem+cfg.Format.Ext())
		if err := raster.WriteFile(path, w.img.ToNRGBA(), cfg.Format); err != nil {
			r.Error = err.Error()
			return
		}
	}
	if cfg.PreviewSize > 0 {
		preview := raster.Preview(res.Light, cfg.PreviewSize)
		if err := raster.WriteFile(filepath.Join(dir, PreviewFile), preview, raster.FormatWebP); err != nil {
			r.Error = err.Error()
			return
		}
	}

	logging.Logger().Debug("batch: composited", "config", r.Name, "dir", dir)
	r.Success = true
}
