package composite

import (
	"errors"
	"math/rand"
	"testing"

	"variant-compositor/internal/depth"
	"variant-compositor/internal/identity"
	"variant-compositor/internal/layer"
	"variant-compositor/internal/raster"
)

const (
	steelHash   float32 = 2.5
	woodHash    float32 = 3.5
	unknownHash float32 = 9.75
)

func testDecoder(t *testing.T, p identity.Policy) *identity.Decoder {
	t.Helper()
	tbl, err := identity.NewTable([]identity.Entry{
		{Name: "steel", Hash: steelHash, Code: 2},
		{Name: "wood", Hash: woodHash, Code: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	return identity.NewDecoder(tbl, p)
}

func setRGB(buf []float32, i int, v float32) {
	buf[i*3], buf[i*3+1], buf[i*3+2] = v, v, v
}

func setRanks(buf []float32, i int, v ...float32) {
	copy(buf[i*layer.Ranks:(i+1)*layer.Ranks], v)
}

// fixture builds two 2x2 sections:
//
//	pixel 0: both covered, A nearer with steel/wood
//	pixel 1: both covered, A nearer but void, falls through to B
//	pixel 2: nothing covered
//	pixel 3: only B covered, void
func fixture() []*layer.Bundle {
	a := layer.NewBundle("a", 2, 2)
	b := layer.NewBundle("b", 2, 2)

	a.Depth = []float32{5, 5, 0, 0}
	b.Depth = []float32{3, 3, depth.Sentinel, 2}

	setRGB(a.Diffuse, 0, 1)
	setRGB(a.Glossy, 0, 0.5)
	setRanks(a.Hash, 0, steelHash, woodHash, 0, 0)
	setRanks(a.Weight, 0, 0.6, 0.25, 0.125, 0)

	setRGB(a.Diffuse, 1, 1)
	setRanks(a.Hash, 1, identity.VoidHash)

	setRGB(b.Diffuse, 1, 0.5)
	setRGB(b.Glossy, 1, 1)
	setRGB(b.AO, 1, 0.25)
	setRanks(b.Hash, 1, woodHash)
	setRanks(b.Weight, 1, 1)

	setRGB(b.Diffuse, 3, 1)
	setRanks(b.Hash, 3, identity.VoidHash)
	return []*layer.Bundle{a, b}
}

func TestComposeFixture(t *testing.T) {
	c := New(depth.Nearest{}, testDecoder(t, identity.PolicyFail), 2)
	defer c.Close()

	res, err := c.Compose(fixture())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	tests := []struct {
		name  string
		img   *raster.Raster
		pixel int
		want  [raster.Channels]uint8
	}{
		{"light/front", res.Light, 0, [3]uint8{254, 234, 0}},
		{"index/front", res.Index, 0, [3]uint8{194, 0, 0}},
		{"matte/front", res.Matte, 0, [3]uint8{127, 63, 0}},
		{"light/fallthrough", res.Light, 1, [3]uint8{234, 254, 213}},
		{"index/fallthrough", res.Index, 1, [3]uint8{3, 0, 0}},
		{"matte/fallthrough", res.Matte, 1, [3]uint8{0, 0, 0}},
		{"light/background", res.Light, 2, [3]uint8{}},
		{"index/background", res.Index, 2, [3]uint8{}},
		{"light/void", res.Light, 3, [3]uint8{}},
		{"index/void", res.Index, 3, [3]uint8{}},
		{"matte/void", res.Matte, 3, [3]uint8{}},
	}
	for _, tt := range tests {
		if got := tt.img.At(tt.pixel); got != tt.want {
			t.Errorf("%s: pixel %d = %v, want %v", tt.name, tt.pixel, got, tt.want)
		}
	}
	if res.Degraded != 0 {
		t.Errorf("Degraded = %d, want 0", res.Degraded)
	}
}

func TestComposeMetal(t *testing.T) {
	bundles := fixture()
	for _, b := range bundles {
		b.MetalRaw = make([]float32, 4*3)
		b.MetalPolish = make([]float32, 4*3)
	}
	a, b := bundles[0], bundles[1]
	setRGB(a.MetalRaw, 0, 1)
	setRGB(a.MetalPolish, 0, 0.5)
	setRGB(a.MetalRaw, 1, 1) // hidden: pixel 1 falls through to b
	setRGB(b.MetalRaw, 1, 0.25)
	setRGB(b.MetalRaw, 3, 1) // void

	c := New(depth.Nearest{}, testDecoder(t, identity.PolicyFail), 2)
	defer c.Close()
	res, err := c.Compose(bundles)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Metal == nil {
		t.Fatal("Metal raster missing")
	}
	want := [][raster.Channels]uint8{{254, 234, 0}, {213, 0, 0}, {}, {}}
	for i, w := range want {
		if got := res.Metal.At(i); got != w {
			t.Errorf("metal pixel %d = %v, want %v", i, got, w)
		}
	}

	plain, err := c.Compose(fixture())
	if err != nil {
		t.Fatal(err)
	}
	if plain.Metal != nil {
		t.Error("Metal raster produced without metal passes")
	}

	mixed := fixture()
	mixed[1].MetalRaw = make([]float32, 4*3)
	mixed[1].MetalPolish = make([]float32, 4*3)
	if _, err := c.Compose(mixed); err == nil {
		t.Error("metal passes on one section only accepted")
	}
}

func TestComposeUnknownHash(t *testing.T) {
	bundles := fixture()
	setRanks(bundles[0].Hash, 0, steelHash, unknownHash, unknownHash, 0)

	c := New(depth.Nearest{}, testDecoder(t, identity.PolicyFail), 2)
	defer c.Close()
	_, err := c.Compose(bundles)
	var uerr *identity.UnknownIdentityError
	if !errors.As(err, &uerr) || uerr.Hash != unknownHash {
		t.Fatalf("err = %v, want UnknownIdentityError", err)
	}

	d := New(depth.Nearest{}, testDecoder(t, identity.PolicyDegrade), 2)
	defer d.Close()
	res, err := d.Compose(bundles)
	if err != nil {
		t.Fatalf("degrade: %v", err)
	}
	if res.Degraded != 2 {
		t.Errorf("Degraded = %d, want 2", res.Degraded)
	}
	if got := res.Index.At(0); got != [3]uint8{2, 0, 0} {
		t.Errorf("degraded index = %v, want [2 0 0]", got)
	}
}

func TestComposeErrors(t *testing.T) {
	c := New(depth.Nearest{}, testDecoder(t, identity.PolicyFail), 1)
	defer c.Close()

	if _, err := c.Compose(nil); !errors.Is(err, errNoBundles) {
		t.Errorf("no bundles: err = %v", err)
	}

	odd := fixture()
	odd[1] = layer.NewBundle("b", 3, 2)
	if _, err := c.Compose(odd); err == nil {
		t.Error("size mismatch accepted")
	}

	short := fixture()
	short[0].Hash = short[0].Hash[:3]
	if _, err := c.Compose(short); err == nil {
		t.Error("invalid bundle accepted")
	}

	if _, err := c.Compose([]*layer.Bundle{nil}); err == nil {
		t.Error("nil bundle accepted")
	}
}

type failingResolver struct{}

var errResolve = errors.New("resolve failed")

func (failingResolver) Resolve(int, int, [][]float32) (*depth.Ranking, error) {
	return nil, errResolve
}

func TestComposeResolverError(t *testing.T) {
	c := New(failingResolver{}, testDecoder(t, identity.PolicyFail), 1)
	defer c.Close()
	if _, err := c.Compose(fixture()); !errors.Is(err, errResolve) {
		t.Errorf("err = %v, want resolver error", err)
	}
}

// Band splitting must not change the output.
func TestComposeParallelMatchesSerial(t *testing.T) {
	const w, h = 17, 23
	rng := rand.New(rand.NewSource(7))
	hashes := []float32{0, identity.VoidHash, steelHash, woodHash}

	bundles := make([]*layer.Bundle, 3)
	for s := range bundles {
		b := layer.NewBundle("s", w, h)
		for i := range b.Depth {
			b.Depth[i] = float32(rng.Intn(4))
		}
		for i := range b.Diffuse {
			b.Diffuse[i] = rng.Float32() * 2
			b.Glossy[i] = rng.Float32()
			b.AO[i] = rng.Float32()
		}
		for i := range b.Hash {
			b.Hash[i] = hashes[rng.Intn(len(hashes))]
			b.Weight[i] = rng.Float32() * 0.5
		}
		bundles[s] = b
	}

	serial := New(depth.Nearest{}, testDecoder(t, identity.PolicyFail), 1)
	defer serial.Close()
	parallel := New(depth.Nearest{}, testDecoder(t, identity.PolicyFail), 8)
	defer parallel.Close()

	want, err := serial.Compose(bundles)
	if err != nil {
		t.Fatal(err)
	}
	for run := 0; run < 3; run++ {
		got, err := parallel.Compose(bundles)
		if err != nil {
			t.Fatal(err)
		}
		for _, pair := range [][2]*raster.Raster{{got.Light, want.Light}, {got.Index, want.Index}, {got.Matte, want.Matte}} {
			for i := range pair[0].Pix {
				if pair[0].Pix[i] != pair[1].Pix[i] {
					t.Fatalf("run %d: byte %d = %d, want %d", run, i, pair[0].Pix[i], pair[1].Pix[i])
				}
			}
		}
	}
}
