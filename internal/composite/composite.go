// Package composite merges the section bundles of one global configuration
// into the light, identity and matte rasters.
package composite

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"variant-compositor/internal/depth"
	"variant-compositor/internal/identity"
	"variant-compositor/internal/layer"
	"variant-compositor/internal/pack"
	"variant-compositor/internal/raster"
)

// bandsPerWorker splits the frame finer than the worker count so uneven
// rows do not leave workers idle.
const bandsPerWorker = 4

// Result holds the three output rasters of one pass.
type Result struct {
	Light *raster.Raster
	Index *raster.Raster
	Matte *raster.Raster
	// Metal is nil unless the bundles carry metal passes.
	Metal *raster.Raster

	// Degraded counts hashes replaced by None under PolicyDegrade.
	Degraded int
}

// Compositor runs compositing passes on a shared worker pool. It is safe for
// concurrent use.
type Compositor struct {
	resolver depth.Resolver
	decoder  *identity.Decoder
	pool     worker.DynamicWorkerPool
	workers  int
	taskID   atomic.Int64 // unique across concurrent passes
}

// New creates a compositor with a pool of the given size.
func New(resolver depth.Resolver, decoder *identity.Decoder, workers int) *Compositor {
	if workers < 1 {
		workers = 1
	}
	return &Compositor{
		resolver: resolver,
		decoder:  decoder,
		pool:     worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers:  workers,
	}
}

// Close stops the worker pool.
func (c *Compositor) Close() {
	c.pool.Stop()
}

// Compose composites bundles, given in section order. All bundles must share
// one size.
func (c *Compositor) Compose(bundles []*layer.Bundle) (*Result, error) {
	w, h, metal, err := checkBundles(bundles)
	if err != nil {
		return nil, err
	}

	depths := make([][]float32, len(bundles))
	for s, b := range bundles {
		depths[s] = b.Depth
	}
	ranking, err := c.resolver.Resolve(w, h, depths)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	res := &Result{
		Light: raster.New(w, h),
		Index: raster.New(w, h),
		Matte: raster.New(w, h),
	}
	if metal {
		res.Metal = raster.New(w, h)
	}

	nbands := min(h, c.workers*bandsPerWorker)
	errs := make([]error, nbands)
	degraded := make([]int, nbands)

	// The pool's own Wait blocks until workers idle out, so a WaitGroup
	// is the per-pass barrier.
	var wg sync.WaitGroup
	for band := 0; band < nbands; band++ {
		y0 := band * h / nbands
		y1 := (band + 1) * h / nbands
		wg.Add(1)
		c.pool.SubmitTask(worker.Task{
			ID: int(c.taskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				degraded[band], errs[band] = c.composeRows(bundles, ranking, res, y0, y1)
				return nil, errs[band]
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for _, n := range degraded {
		res.Degraded += n
	}
	return res, nil
}

func (c *Compositor) composeRows(bundles []*layer.Bundle, ranking *depth.Ranking, res *Result, y0, y1 int) (int, error) {
	w := ranking.Width
	degraded := 0
	for i := y0 * w; i < y1*w; i++ {
		b := visible(bundles, ranking.At(i), i)
		if b == nil {
			continue
		}

		res.Light.Set(i, light(b, i))
		if res.Metal != nil {
			res.Metal.Set(i, metalFinish(b, i))
		}

		var codes [layer.Ranks]identity.Code
		for k := range codes {
			code, deg, err := c.decoder.Decode(b.Hash[i*layer.Ranks+k])
			if err != nil {
				return 0, fmt.Errorf("composite: %s: pixel (%d,%d) rank %d: %w", b.Name, i%w, i/w, k, err)
			}
			if deg {
				degraded++
			}
			codes[k] = code
		}
		idx, err := pack.PackIdentity(codes)
		if err != nil {
			return 0, fmt.Errorf("composite: %s: pixel (%d,%d): %w", b.Name, i%w, i/w, err)
		}
		res.Index.Set(i, idx)

		wt := b.Weight[i*layer.Ranks : (i+1)*layer.Ranks]
		res.Matte.Set(i, [raster.Channels]uint8{
			pack.MatteByte(wt[1]),
			pack.MatteByte(wt[2]),
			pack.MatteByte(wt[3]),
		})
	}
	return degraded, nil
}

// visible returns the first ranked bundle whose primary material at pixel i
// is not void, or nil for background.
func visible(bundles []*layer.Bundle, order []int8, i int) *layer.Bundle {
	for _, s := range order {
		if s == depth.NoCoverage {
			break
		}
		b := bundles[s]
		if identity.IsVoid(b.Hash[i*layer.Ranks]) {
			continue
		}
		return b
	}
	return nil
}

// light tone maps the diffuse, glossy and AO passes of pixel i.
func light(b *layer.Bundle, i int) [raster.Channels]uint8 {
	var out [raster.Channels]uint8
	for p, pass := range [raster.Channels][]float32{b.Diffuse, b.Glossy, b.AO} {
		rgb := pass[i*3 : i*3+3]
		out[p] = pack.Encode(pack.Luma(rgb[0], rgb[1], rgb[2]))
	}
	return out
}

var errNoBundles = errors.New("composite: no bundles")

// checkBundles returns the shared size and whether every bundle carries
// metal passes. Bundles must agree on both.
func checkBundles(bundles []*layer.Bundle) (w, h int, metal bool, err error) {
	if len(bundles) == 0 {
		return 0, 0, false, errNoBundles
	}
	for s, b := range bundles {
		if b == nil {
			return 0, 0, false, fmt.Errorf("composite: section %d: nil bundle", s)
		}
		if s == 0 {
			w, h, metal = b.Width, b.Height, b.HasMetal()
		}
		if b.Width != w || b.Height != h {
			return 0, 0, false, fmt.Errorf("composite: %s is %dx%d, want %dx%d", b.Name, b.Width, b.Height, w, h)
		}
		if b.HasMetal() != metal {
			return 0, 0, false, fmt.Errorf("composite: %s: metal passes loaded for some sections only", b.Name)
		}
		if err := b.Validate(); err != nil {
			return 0, 0, false, fmt.Errorf("composite: %w", err)
		}
	}
	return w, h, metal, nil
}
