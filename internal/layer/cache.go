package layer

import (
	"context"
	"fmt"
	"sync"

	"variant-compositor/internal/logging"
)

// Cache is a concurrency-safe bundle cache for one resolution. It is
// populated with Preload before any compositing pass and only read after.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	store Store
	res   int
}

type cacheEntry struct {
	bundle *Bundle
	err    error // load failure, kept so every consumer sees it
}

// NewCache creates a cache backed by store.
func NewCache(store Store, res int) *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		store: store,
		res:   res,
	}
}

// Resolution returns the resolution every cached bundle has.
func (c *Cache) Resolution() int { return c.res }

// Load returns the bundle of name, loading it from the store on first use.
// Failures are cached too.
func (c *Cache) Load(name string, res int) (*Bundle, error) {
	if res != c.res {
		return nil, fmt.Errorf("layer: cache holds %dpx bundles, asked for %dpx", c.res, res)
	}

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[name]; exists {
		c.mu.RUnlock()
		return entry.bundle, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load outside the lock
	b, err := c.store.Load(name, res)
	if err == nil {
		err = b.Validate()
	}
	if err != nil {
		b = nil
	}

	// Write lock with double-check
	c.mu.Lock()
	if entry, exists := c.items[name]; exists {
		c.mu.Unlock()
		return entry.bundle, entry.err
	}
	c.items[name] = &cacheEntry{bundle: b, err: err}
	c.mu.Unlock()

	return b, err
}

// Get returns a cached bundle without touching the store.
func (c *Cache) Get(name string) (*Bundle, error) {
	c.mu.RLock()
	entry, exists := c.items[name]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("layer: %s not preloaded", name)
	}
	return entry.bundle, entry.err
}

// Preload loads every name with the given number of workers and returns
// once all of them are cached. Individual load failures are cached, not
// returned; the returned count is the number of failed names. Only a
// cancelled context aborts the preload.
func (c *Cache) Preload(ctx context.Context, names []string, workers int) (failed int, err error) {
	if workers <= 0 {
		workers = 1
	}

	nameChan := make(chan string, workers*2)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fails int
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range nameChan {
				if _, err := c.Load(name, c.res); err != nil {
					logging.Logger().Warn("layer: preload failed", "asset", name, "err", err)
					mu.Lock()
					fails++
					mu.Unlock()
				}
			}
		}()
	}

send:
	for _, n := range names {
		select {
		case <-ctx.Done():
			break send
		case nameChan <- n:
		}
	}
	close(nameChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fails, err
	}
	logging.Logger().Debug("layer: preload complete", "assets", len(names), "failed", fails, "res", c.res)
	return fails, nil
}

// Len returns the number of cached entries, failures included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
