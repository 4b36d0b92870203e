// Package layer supplies the per-section raster passes the compositor works
// on: loading them from EXR files, locating them on disk and caching them
// for every configuration that shares an asset.
package layer

import (
	"errors"
	"fmt"
)

// Ranks is the number of (hash, weight) pairs stored per pixel.
const Ranks = 4

// Bundle holds the passes of one asset at one resolution. Multi-channel
// buffers are interleaved per pixel.
type Bundle struct {
	Name   string
	Width  int
	Height int

	AO      []float32 // RGB, len = W*H*3
	Diffuse []float32 // RGB, len = W*H*3
	Glossy  []float32 // RGB, len = W*H*3
	Depth   []float32 // len = W*H
	Hash    []float32 // ranks 0..3, len = W*H*4
	Weight  []float32 // ranks 0..3, len = W*H*4

	// Glossy passes of the raw and polished metal finishes. Both are nil
	// unless the store loads metal passes.
	MetalRaw    []float32 // RGB, len = W*H*3
	MetalPolish []float32 // RGB, len = W*H*3
}

// NewBundle allocates zeroed buffers for a w x h asset.
func NewBundle(name string, w, h int) *Bundle {
	n := w * h
	return &Bundle{
		Name:    name,
		Width:   w,
		Height:  h,
		AO:      make([]float32, n*3),
		Diffuse: make([]float32, n*3),
		Glossy:  make([]float32, n*3),
		Depth:   make([]float32, n),
		Hash:    make([]float32, n*Ranks),
		Weight:  make([]float32, n*Ranks),
	}
}

// HasMetal reports whether the metal finish passes are loaded.
func (b *Bundle) HasMetal() bool { return b.MetalRaw != nil || b.MetalPolish != nil }

// Pixels returns Width*Height.
func (b *Bundle) Pixels() int { return b.Width * b.Height }

type bufferCheck struct {
	name string
	buf  []float32
	want int
}

// Validate checks every buffer against the bundle size.
func (b *Bundle) Validate() error {
	n := b.Pixels()
	checks := []bufferCheck{
		{"ao", b.AO, n * 3},
		{"diffuse", b.Diffuse, n * 3},
		{"glossy", b.Glossy, n * 3},
		{"depth", b.Depth, n},
		{"hash", b.Hash, n * Ranks},
		{"weight", b.Weight, n * Ranks},
	}
	if b.HasMetal() {
		checks = append(checks,
			bufferCheck{"metal raw", b.MetalRaw, n * 3},
			bufferCheck{"metal polish", b.MetalPolish, n * 3},
		)
	}
	for _, c := range checks {
		if len(c.buf) != c.want {
			return fmt.Errorf("layer: %s: %s buffer has %d values, want %d", b.Name, c.name, len(c.buf), c.want)
		}
	}
	return nil
}

// ErrMissingAsset is wrapped by every MissingAssetError.
var ErrMissingAsset = errors.New("layer: missing asset")

// MissingAssetError reports an asset without rendered passes.
type MissingAssetError struct {
	Name string
	Path string
}

func (e *MissingAssetError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("layer: missing asset %s", e.Name)
	}
	return fmt.Sprintf("layer: missing asset %s: %s", e.Name, e.Path)
}

func (e *MissingAssetError) Unwrap() error { return ErrMissingAsset }

// Store loads the bundle of one asset at a square resolution.
type Store interface {
	Load(name string, res int) (*Bundle, error)
}

// MemoryStore serves bundles held in memory, keyed by asset name.
type MemoryStore map[string]*Bundle

// Load implements Store.
func (m MemoryStore) Load(name string, res int) (*Bundle, error) {
	b, ok := m[name]
	if !ok {
		return nil, &MissingAssetError{Name: name}
	}
	if b.Width != res || b.Height != res {
		return nil, fmt.Errorf("layer: %s: size %dx%d, want %dx%d", name, b.Width, b.Height, res, res)
	}
	return b, nil
}
