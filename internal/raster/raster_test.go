package raster

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"
)

func pattern(w, h int) *Raster {
	r := New(w, h)
	for i := 0; i < w*h; i++ {
		r.Set(i, [Channels]uint8{uint8(i), uint8(i * 7), uint8(255 - i)})
	}
	return r
}

func TestSetAt(t *testing.T) {
	r := New(2, 2)
	r.Set(3, [Channels]uint8{1, 2, 3})
	if got := r.At(3); got != [Channels]uint8{1, 2, 3} {
		t.Errorf("At(3) = %v", got)
	}
	if got := r.At(0); got != [Channels]uint8{} {
		t.Errorf("At(0) = %v, want zero", got)
	}
	if len(r.Pix) != 12 {
		t.Errorf("len(Pix) = %d, want 12", len(r.Pix))
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatWebP, true},
		{"webp", FormatWebP, true},
		{"PNG", FormatPNG, true},
		{"tga", FormatTGA, true},
		{"jpeg", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if FormatPNG.Ext() != ".png" {
		t.Errorf("Ext() = %q", FormatPNG.Ext())
	}
}

// Every format must give back the exact bytes: identity rasters depend on it.
func TestEncodeLossless(t *testing.T) {
	decoders := map[Format]func(*bytes.Reader) (image.Image, error){
		FormatWebP: func(r *bytes.Reader) (image.Image, error) { return webp.Decode(r) },
		FormatPNG:  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		FormatTGA:  func(r *bytes.Reader) (image.Image, error) { return tga.Decode(r) },
	}
	src := pattern(5, 3)

	for f, decode := range decoders {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, src.ToNRGBA(), f); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			img, err := decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 3 {
				t.Fatalf("bounds = %v", b)
			}
			for y := 0; y < 3; y++ {
				for x := 0; x < 5; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					want := src.At(y*5 + x)
					if uint8(r>>8) != want[0] || uint8(g>>8) != want[1] || uint8(b>>8) != want[2] {
						t.Fatalf("pixel (%d,%d) = %d %d %d, want %v", x, y, r>>8, g>>8, b>>8, want)
					}
				}
			}
		})
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, New(1, 1).ToNRGBA(), "bmp"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "light.png")
	if err := WriteFile(path, pattern(2, 2).ToNRGBA(), FormatPNG); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(t.TempDir(), "bad.bmp")
	if err := WriteFile(bad, New(1, 1).ToNRGBA(), "bmp"); err == nil {
		t.Error("unknown format accepted")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		w, h, size int
		wantW      int
		wantH      int
	}{
		{8, 8, 4, 4, 4},
		{8, 4, 4, 4, 2},
		{4, 8, 2, 1, 2},
		{3, 3, 8, 3, 3},
		{3, 3, 0, 3, 3},
	}
	for _, tt := range tests {
		img := Preview(New(tt.w, tt.h), tt.size)
		if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("Preview(%dx%d, %d) = %v, want %dx%d", tt.w, tt.h, tt.size, b, tt.wantW, tt.wantH)
		}
	}

	// A flat image stays flat.
	r := New(8, 8)
	for i := 0; i < 64; i++ {
		r.Set(i, [Channels]uint8{200, 100, 50})
	}
	img := Preview(r, 4)
	if c := img.NRGBAAt(1, 1); c.R != 200 || c.G != 100 || c.B != 50 || c.A != 255 {
		t.Errorf("flat preview pixel = %v", c)
	}
}
