package layer

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/exrid"
	"github.com/mrjoshuak/go-openexr/exrutil"
)

// Channels names the EXR channels a bundle is read from. Names match a
// file channel exactly or as its last dotted components, so "Depth.Z"
// also matches "ViewLayer.Depth.Z".
type Channels struct {
	AO      [3]string
	Diffuse [3]string
	Glossy  [3]string
	Depth   string
	Hash    [Ranks]string
	Weight  [Ranks]string
}

// DefaultChannels returns the channel names written by the product renders.
// Ranks 0 and 1 live in CryptoAsset00, ranks 2 and 3 in CryptoAsset01.
func DefaultChannels() Channels {
	return Channels{
		AO:      [3]string{"AO.R", "AO.G", "AO.B"},
		Diffuse: [3]string{"Diffuse.R", "Diffuse.G", "Diffuse.B"},
		Glossy:  [3]string{"Glossy.R", "Glossy.G", "Glossy.B"},
		Depth:   "Depth.Z",
		Hash:    [Ranks]string{"CryptoAsset00.R", "CryptoAsset00.B", "CryptoAsset01.R", "CryptoAsset01.B"},
		Weight:  [Ranks]string{"CryptoAsset00.G", "CryptoAsset00.A", "CryptoAsset01.G", "CryptoAsset01.A"},
	}
}

// EXRStore loads bundles from the light and mask EXR passes of a Layout.
// With Metal set it also reads the glossy channels of the raw and polished
// metal passes.
type EXRStore struct {
	Layout   Layout
	Channels Channels
	Metal    bool
}

// NewEXRStore returns a store reading the default channels.
func NewEXRStore(l Layout) *EXRStore {
	return &EXRStore{Layout: l, Channels: DefaultChannels()}
}

// target scatters one channel into an interleaved buffer.
type target struct {
	channel string
	dst     []float32
	stride  int
	offset  int
}

// Load implements Store.
func (s *EXRStore) Load(name string, res int) (*Bundle, error) {
	b := NewBundle(name, res, res)
	ch := s.Channels

	var light []target
	for c := 0; c < 3; c++ {
		light = append(light,
			target{ch.AO[c], b.AO, 3, c},
			target{ch.Diffuse[c], b.Diffuse, 3, c},
			target{ch.Glossy[c], b.Glossy, 3, c},
		)
	}
	mask := []target{{ch.Depth, b.Depth, 1, 0}}
	for r := 0; r < Ranks; r++ {
		mask = append(mask,
			target{ch.Hash[r], b.Hash, Ranks, r},
			target{ch.Weight[r], b.Weight, Ranks, r},
		)
	}

	if err := readTargets(name, s.Layout.AssetPath(PassLight, name), res, light); err != nil {
		return nil, err
	}
	if err := readTargets(name, s.Layout.AssetPath(PassMask, name), res, mask); err != nil {
		return nil, err
	}

	if s.Metal {
		b.MetalRaw = make([]float32, res*res*3)
		b.MetalPolish = make([]float32, res*res*3)
		metal := []struct {
			pass Pass
			dst  []float32
		}{
			{PassMetalRaw, b.MetalRaw},
			{PassMetalPolish, b.MetalPolish},
		}
		for _, m := range metal {
			var glossy []target
			for c := 0; c < 3; c++ {
				glossy = append(glossy, target{ch.Glossy[c], m.dst, 3, c})
			}
			if err := readTargets(name, s.Layout.AssetPath(m.pass, name), res, glossy); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func readTargets(name, path string, res int, targets []target) error {
	f, err := exr.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingAssetError{Name: name, Path: path}
		}
		return fmt.Errorf("layer: open %s: %w", path, err)
	}
	defer f.Close()

	h := f.Header(0)
	if h.Width() != res || h.Height() != res {
		return fmt.Errorf("layer: %s: size %dx%d, want %dx%d", path, h.Width(), h.Height(), res, res)
	}

	cl := h.Channels()
	if cl == nil {
		return fmt.Errorf("layer: %s: no channels", path)
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		chName, ok := matchChannel(cl, t.channel)
		if !ok {
			return fmt.Errorf("layer: %s: no channel %q", path, t.channel)
		}
		names[i] = chName
	}

	data, err := exrutil.ExtractChannels(f, names...)
	if err != nil {
		return fmt.Errorf("layer: read %s: %w", path, err)
	}
	for i, t := range targets {
		for p, v := range data[names[i]] {
			t.dst[p*t.stride+t.offset] = v
		}
	}
	return nil
}

// matchChannel finds want among the file's channels, exactly or as a
// dotted suffix.
func matchChannel(cl *exr.ChannelList, want string) (string, bool) {
	if cl.Get(want) != nil {
		return want, true
	}
	suffix := "." + want
	for _, c := range cl.Channels() {
		if strings.HasSuffix(c.Name, suffix) {
			return c.Name, true
		}
	}
	return "", false
}

// LoadDepth reads one depth channel of an EXR file, such as the turntable
// reference plane.
func LoadDepth(path, channel string) ([]float32, int, int, error) {
	f, err := exr.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, 0, &MissingAssetError{Name: channel, Path: path}
		}
		return nil, 0, 0, fmt.Errorf("layer: open %s: %w", path, err)
	}
	defer f.Close()

	h := f.Header(0)
	cl := h.Channels()
	if cl == nil {
		return nil, 0, 0, fmt.Errorf("layer: %s: no channels", path)
	}
	name, ok := matchChannel(cl, channel)
	if !ok {
		return nil, 0, 0, fmt.Errorf("layer: %s: no channel %q", path, channel)
	}
	data, err := exrutil.ExtractChannel(f, name)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("layer: read %s: %w", path, err)
	}
	return data, h.Width(), h.Height(), nil
}

// LoadManifest reads the ID manifest of an EXR file and returns the group
// covering channel. A group covers a channel it lists, or whose
// cryptomatte layer name prefixes it. An empty channel selects the only group.
func LoadManifest(path, channel string) (*exrid.ChannelGroupManifest, error) {
	f, err := exr.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingAssetError{Name: "manifest", Path: path}
		}
		return nil, fmt.Errorf("layer: open %s: %w", path, err)
	}
	defer f.Close()

	h := f.Header(0)
	if !exrid.HasManifest(h) {
		return nil, fmt.Errorf("layer: %s: no ID manifest", path)
	}
	m, err := exrid.GetManifest(h)
	if err != nil {
		return nil, fmt.Errorf("layer: %s: %w", path, err)
	}

	if channel == "" {
		if len(m.Groups) != 1 {
			return nil, fmt.Errorf("layer: %s: %d manifest groups, name a channel", path, len(m.Groups))
		}
		return &m.Groups[0], nil
	}
	for i := range m.Groups {
		g := &m.Groups[i]
		for _, c := range g.Channels {
			if c != "" && (c == channel || strings.HasSuffix(c, "."+channel) || strings.HasPrefix(channel, c)) {
				return g, nil
			}
		}
	}
	return nil, fmt.Errorf("layer: %s: no manifest group for %q", path, channel)
}
