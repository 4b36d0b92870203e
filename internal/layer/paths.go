package layer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FirstFrame is the number of the first rendered frame on disk.
const FirstFrame = 121

// Pass names the directory an EXR pass is stored under.
type Pass string

const (
	PassLight Pass = "Diffuse"
	PassMask  Pass = "Mask"

	// Glossy renders of the metal sections with the raw and polished finish.
	PassMetalRaw    Pass = "MetalRaw"
	PassMetalPolish Pass = "MetalPolish"
)

// Layout locates rendered assets:
//
//	<InputDir>/<Pass>/<asset>/<BaseResolution>/<Level>/<FirstFrame+Frame>.exr
type Layout struct {
	InputDir       string
	BaseResolution int
	Level          int
	Frame          int
}

// Resolution returns BaseResolution * 2^Level.
func (l Layout) Resolution() int {
	return l.BaseResolution << l.Level
}

// FrameName returns the zero-padded on-disk frame number.
func FrameName(frame int) string {
	return fmt.Sprintf("%04d", FirstFrame+frame)
}

// AssetPath returns the EXR file of one pass of an asset.
func (l Layout) AssetPath(pass Pass, name string) string {
	return filepath.Join(l.InputDir, string(pass), name,
		fmt.Sprint(l.BaseResolution), fmt.Sprint(l.Level), FrameName(l.Frame)+".exr")
}

// Index lists which assets have both passes rendered for a layout.
type Index struct {
	layout  Layout
	entries map[string]bool
}

// BuildIndex scans the light pass directory of the layout. An asset is
// indexed when its light and mask files both exist for the layout's frame.
// An unreadable light pass directory is an error.
func BuildIndex(l Layout) (*Index, error) {
	idx := &Index{layout: l, entries: make(map[string]bool)}

	root := filepath.Join(l.InputDir, string(PassLight))
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("layer: index %s: %w", root, err)
	}
	for _, d := range dirs {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		name := d.Name()
		if !fileExists(l.AssetPath(PassLight, name)) || !fileExists(l.AssetPath(PassMask, name)) {
			continue
		}
		idx.entries[name] = true
	}
	return idx, nil
}

// Has reports whether both passes of name exist.
func (idx *Index) Has(name string) bool {
	return idx.entries[name]
}

// Missing returns the names without rendered passes, in input order.
func (idx *Index) Missing(names []string) []string {
	var out []string
	for _, n := range names {
		if !idx.entries[n] {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of indexed assets.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
