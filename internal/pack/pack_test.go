package pack

import (
	"errors"
	"math"
	"testing"

	"variant-compositor/internal/identity"
)

func TestEncodePinned(t *testing.T) {
	tests := []struct {
		luma float32
		want uint8
	}{
		{1.0, 254},
		{0.5, 234},
		{0, 0},
		{-1, 0},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 255},
		{1e-9, 0},
		{1e6, 255},
	}
	for _, tt := range tests {
		if got := Encode(tt.luma); got != tt.want {
			t.Errorf("Encode(%g) = %d, want %d", tt.luma, got, tt.want)
		}
	}
}

func TestEncodeMonotonic(t *testing.T) {
	prev := Encode(0)
	for e := -20.0; e <= 4; e += 0.01 {
		got := Encode(float32(math.Exp2(e)))
		if got < prev {
			t.Fatalf("Encode(2^%.2f) = %d < %d", e, got, prev)
		}
		prev = got
	}
}

func TestLuma(t *testing.T) {
	if got := Luma(1, 1, 1); math.Abs(float64(got)-1) > 1e-6 {
		t.Errorf("Luma(1,1,1) = %g", got)
	}
	if got := Luma(0, 1, 0); math.Abs(float64(got)-LumaG) > 1e-6 {
		t.Errorf("Luma(0,1,0) = %g", got)
	}
}

func TestMatteByte(t *testing.T) {
	tests := []struct {
		w    float32
		want uint8
	}{
		{0, 0},
		{0.25, 127},
		{0.5, 255},
		{1, 255},
		{-0.1, 0},
	}
	for _, tt := range tests {
		if got := MatteByte(tt.w); got != tt.want {
			t.Errorf("MatteByte(%g) = %d, want %d", tt.w, got, tt.want)
		}
	}
}

func TestPackIdentityLayout(t *testing.T) {
	tests := []struct {
		codes [4]identity.Code
		want  [3]uint8
	}{
		{[4]identity.Code{0, 0, 0, 0}, [3]uint8{0, 0, 0}},
		{[4]identity.Code{63, 63, 63, 63}, [3]uint8{0xff, 0xff, 0xff}},
		{[4]identity.Code{1, 0, 0, 0}, [3]uint8{0x01, 0, 0}},
		{[4]identity.Code{0, 3, 0, 0}, [3]uint8{0xc0, 0, 0}},
		{[4]identity.Code{0, 4, 0, 0}, [3]uint8{0, 0x01, 0}},
		{[4]identity.Code{0, 0, 16, 0}, [3]uint8{0, 0, 0x01}},
		{[4]identity.Code{0, 0, 0, 1}, [3]uint8{0, 0, 0x04}},
		{[4]identity.Code{5, 2, 0, 0}, [3]uint8{0x85, 0, 0}},
	}
	for _, tt := range tests {
		got, err := PackIdentity(tt.codes)
		if err != nil {
			t.Fatalf("PackIdentity(%v): %v", tt.codes, err)
		}
		if got != tt.want {
			t.Errorf("PackIdentity(%v) = %#v, want %#v", tt.codes, got, tt.want)
		}
	}
}

func TestPackRoundTrip(t *testing.T) {
	for c0 := identity.Code(0); c0 < identity.MaxCode; c0++ {
		for c1 := identity.Code(0); c1 < identity.MaxCode; c1++ {
			for c2 := identity.Code(0); c2 < identity.MaxCode; c2++ {
				for c3 := identity.Code(0); c3 < identity.MaxCode; c3++ {
					in := [4]identity.Code{c0, c1, c2, c3}
					b, err := PackIdentity(in)
					if err != nil {
						t.Fatal(err)
					}
					if out := UnpackIdentity(b); out != in {
						t.Fatalf("round trip %v -> %v -> %v", in, b, out)
					}
				}
			}
		}
	}
}

func TestPackOverflow(t *testing.T) {
	for rank := 0; rank < 4; rank++ {
		var c [4]identity.Code
		c[rank] = identity.MaxCode
		if _, err := PackIdentity(c); !errors.Is(err, ErrPackingOverflow) {
			t.Errorf("rank %d: err = %v, want ErrPackingOverflow", rank, err)
		}
	}
}
