package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"variant-compositor/internal/batch"
	"variant-compositor/internal/catalog"
	"variant-compositor/internal/composite"
	"variant-compositor/internal/config"
	"variant-compositor/internal/depth"
	"variant-compositor/internal/identity"
	"variant-compositor/internal/layer"
	"variant-compositor/internal/logging"
	"variant-compositor/internal/raster"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	dataDir := flag.String("data", "", "Path to base directory (default: auto-detect)")
	inputDir := flag.String("input", "", "Rendered passes directory (default: <data>/renders)")
	outputDir := flag.String("output", "", "Output directory (default: <data>/composites)")
	catalogFile := flag.String("catalog", "", "Catalog JSON (default: built-in)")
	level := flag.Int("level", -1, "Resolution level, resolution = base << level (default: 0)")
	frame := flag.Int("frame", -1, "Frame offset from the first rendered frame (default: 0)")
	format := flag.String("format", "", "Output format: webp, png, tga (default: webp)")
	policy := flag.String("policy", "", "Unknown identity policy: fail, degrade (default: fail)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	overwrite := flag.Bool("overwrite", false, "Recomposite configurations whose outputs exist")
	metal := flag.Bool("metal", false, "Also composite the raw/polish metal finish raster")
	sectionType := flag.String("type", "", "Composite only this section type: upper, lower")
	verbose := flag.Bool("v", false, "Debug logging on stderr")

	flag.Parse()

	logging.SetLogger(logging.NewText(os.Stderr, *verbose))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fatalf("Error loading config: %v", err)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		DataDir:   *dataDir,
		InputDir:  *inputDir,
		OutputDir: *outputDir,
		Catalog:   *catalogFile,
		Level:     *level,
		Frame:     *frame,
		Format:    *format,
		Policy:    *policy,
		Workers:   *workers,
		Overwrite: *overwrite,
		Metal:     *metal,
	})
	if err := cfg.Validate(); err != nil {
		fatalf("Error: %v", err)
	}

	cat := catalog.Default()
	if cfg.Catalog != "" {
		var err error
		if cat, err = catalog.Load(cfg.Catalog); err != nil {
			fatalf("Error loading catalog: %v", err)
		}
	}

	var types []catalog.SectionType
	if *sectionType != "" {
		t, err := catalog.ParseSectionType(*sectionType)
		if err != nil {
			fatalf("Error: %v", err)
		}
		types = []catalog.SectionType{t}
	}

	table, err := loadTable(cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Printf("Materials: %d identities\n", table.Len())
	pol, _ := identity.ParsePolicy(cfg.IdentityPolicy)
	outFormat, _ := raster.ParseFormat(cfg.Format)

	layout := layer.Layout{
		InputDir:       cfg.InputDir,
		BaseResolution: cfg.BaseResolution,
		Level:          cfg.Level,
		Frame:          cfg.Frame,
	}

	resolver, err := newResolver(cfg, layout)
	if err != nil {
		fatalf("Error: %v", err)
	}

	// Index rendered assets
	index, err := layer.BuildIndex(layout)
	if err != nil {
		fatalf("Error: %v", err)
	}
	var wanted []string
	for _, t := range catalog.SectionTypes {
		wanted = append(wanted, cat.TypeAssets(t)...)
	}
	missing := index.Missing(wanted)
	fmt.Printf("Assets: %d indexed, %d of %d missing\n", index.Len(), len(missing), len(wanted))
	for _, n := range missing {
		logging.Logger().Debug("asset not rendered", "asset", n)
	}

	// Print summary
	fmt.Printf("Variant compositor → %s (catalog %s)\n", outFormat, cat.Version())
	fmt.Printf("Resolution: %d, Frame: %s, Workers: %d, Policy: %s\n",
		layout.Resolution(), layer.FrameName(layout.Frame), cfg.Workers, pol)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	comp := composite.New(resolver, identity.NewDecoder(table, pol), cfg.Workers)
	defer comp.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store := layer.NewEXRStore(layout)
	store.Metal = cfg.Metal

	// Run batch
	batchCfg := batch.Config{
		Catalog:     cat,
		Layout:      layout,
		Store:       store,
		Compositor:  comp,
		OutputDir:   cfg.OutputDir,
		Format:      outFormat,
		Overwrite:   cfg.Overwrite,
		PreviewSize: cfg.PreviewSize,
		Workers:     cfg.Workers,
		Metal:       cfg.Metal,
		Types:       types,
	}

	results := batch.Run(ctx, batchCfg)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, skipped, degraded := 0, 0, 0
	var failures []batch.Result
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Success:
			success++
		default:
			failures = append(failures, r)
		}
		if r.Degraded > 0 {
			degraded++
		}
	}

	fmt.Printf("Composited: %d/%d (skipped %d, degraded %d)\n", success, len(results), skipped, degraded)

	if len(failures) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failures))
		for _, f := range failures[:min(20, len(failures))] {
			fmt.Printf("  %s: %s\n", f.Name, f.Error)
		}
	}

	// Write manifest
	manifestPath := batch.ManifestPath(batchCfg)
	if err := batch.WriteManifest(manifestPath, batchCfg, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if len(failures) > 0 {
		comp.Close()
		os.Exit(1)
	}
}

// loadTable picks the identity table: material map, then cryptomatte
// manifest, then the built-in table.
func loadTable(cfg config.Config) (*identity.Table, error) {
	switch {
	case cfg.MaterialMap != "":
		return identity.LoadMaterialMap(cfg.MaterialMap)
	case cfg.MaterialManifest != "":
		g, err := layer.LoadManifest(cfg.MaterialManifest, layer.DefaultChannels().Hash[0])
		if err != nil {
			return nil, err
		}
		return identity.FromManifest(g)
	}
	return identity.Default(), nil
}

// newResolver returns the depth policy for the configured frame.
func newResolver(cfg config.Config, layout layer.Layout) (depth.Resolver, error) {
	tt := cfg.Turntable
	if tt == nil || !tt.Enabled {
		return depth.Nearest{}, nil
	}

	r := depth.Turntable{
		Angle:          depth.FrameAngle(layout.Frame, tt.FramesPerTurn),
		AngleTolerance: tt.AngleTolerance,
		Epsilon:        tt.Epsilon,
		ThresholdX:     tt.ThresholdX,
	}
	if tt.Plane != "" {
		plane, w, h, err := layer.LoadDepth(tt.Plane, tt.PlaneChannel)
		if err != nil {
			return nil, fmt.Errorf("reference plane: %w", err)
		}
		if res := layout.Resolution(); w != res || h != res {
			return nil, fmt.Errorf("reference plane is %dx%d, want %dx%d", w, h, res, res)
		}
		r.Plane = plane
	}
	logging.Logger().Info("turntable depth policy", "angle", r.Angle, "epsilon", r.Epsilon, "threshold_x", r.ThresholdX, "plane", tt.Plane != "")
	return r, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
