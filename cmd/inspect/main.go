package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/exrid"
	"github.com/mrjoshuak/go-openexr/exrutil"

	"variant-compositor/internal/identity"
	"variant-compositor/internal/layer"
)

func main() {
	materialMap := flag.String("materials", "", "Material map JSON to check manifest hashes against (default: built-in table)")
	showLayers := flag.Bool("layers", true, "List channels grouped by layer")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: inspect [-materials map.json] file.exr...")
		os.Exit(2)
	}

	table := identity.Default()
	if *materialMap != "" {
		var err error
		if table, err = identity.LoadMaterialMap(*materialMap); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	failed := false
	for _, path := range flag.Args() {
		if err := inspect(path, table, *showLayers); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspect(path string, table *identity.Table, showLayers bool) error {
	info, err := exrutil.GetFileInfo(path)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", path)
	fmt.Printf("  Size: %dx%d, Compression: %v, Channels: %d\n", info.Width, info.Height, info.Compression, len(info.Channels))
	if info.IsTiled {
		fmt.Printf("  Tiled: %dx%d\n", info.TileWidth, info.TileHeight)
	}
	if info.IsMultiPart {
		fmt.Printf("  Parts: %d (only part 0 is read)\n", info.NumParts)
	}
	if info.IsDeep {
		fmt.Println("  Deep data: not supported by the layer store")
	}

	f, err := exr.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	h := f.Header(0)

	if showLayers {
		groups := exrutil.SplitLayers(h)
		if root, ok := groups[""]; ok {
			fmt.Printf("  (root): %s\n", strings.Join(root, " "))
		}
		for _, l := range exrutil.ListLayers(h) {
			fmt.Printf("  %s: %s\n", l, strings.Join(groups[l], " "))
		}
	}

	checkBundleChannels(h)

	if !exrid.HasManifest(h) {
		return nil
	}
	m, err := exrid.GetManifest(h)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	for _, g := range m.Groups {
		printManifestGroup(g, table)
	}
	return nil
}

// checkBundleChannels reports which default bundle channels the file carries.
func checkBundleChannels(h *exr.Header) {
	ch := layer.DefaultChannels()
	want := []string{ch.Depth}
	want = append(want, ch.AO[:]...)
	want = append(want, ch.Diffuse[:]...)
	want = append(want, ch.Glossy[:]...)
	want = append(want, ch.Hash[:]...)
	want = append(want, ch.Weight[:]...)

	cl := h.Channels()
	var found, missing []string
	for _, w := range want {
		ok := false
		if cl != nil {
			for _, c := range cl.Channels() {
				if c.Name == w || strings.HasSuffix(c.Name, "."+w) {
					ok = true
					break
				}
			}
		}
		if ok {
			found = append(found, w)
		} else {
			missing = append(missing, w)
		}
	}
	// A light file and a mask file each carry only part of the bundle.
	fmt.Printf("  Bundle channels: %d found, %d absent\n", len(found), len(missing))
	if len(missing) > 0 && len(missing) < len(want) {
		fmt.Printf("    absent: %s\n", strings.Join(missing, " "))
	}
}

func printManifestGroup(g exrid.ChannelGroupManifest, table *identity.Table) {
	fmt.Printf("  Manifest %s: %d names\n", strings.Join(g.Channels, ","), len(g.Entries))

	ids := make([]uint64, 0, len(g.Entries))
	for id := range g.Entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		return strings.Join(g.Entries[ids[a]], "/") < strings.Join(g.Entries[ids[b]], "/")
	})

	unknown := 0
	for _, id := range ids {
		hash := math.Float32frombits(uint32(id))
		name := strings.Join(g.Entries[id], "/")
		if code, ok := table.Lookup(hash); ok {
			fmt.Printf("    %-32s %08x  code %2d\n", name, uint32(id), code)
			continue
		}
		unknown++
		fmt.Printf("    %-32s %08x  unknown (%g)\n", name, uint32(id), hash)
	}
	if unknown > 0 {
		fmt.Printf("  %d names not in the material table\n", unknown)
	}

	if t, err := identity.FromManifest(&g); err == nil {
		fmt.Printf("  Table from manifest: %d identities\n", t.Len())
	} else {
		fmt.Printf("  Table from manifest: %v\n", err)
	}
}
