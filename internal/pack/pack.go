// Package pack converts resolved per-pixel values into 8-bit output
// channels: tone-mapped luma, 4x6-bit identity codes in three bytes, and
// matte weights.
package pack

import (
	"errors"
	"fmt"
	"math"

	"variant-compositor/internal/identity"
)

// Rec. 709 luma weights.
const (
	LumaR = 0.2126
	LumaG = 0.7152
	LumaB = 0.0722
)

// Tone map constants. Scale is 0.04*2*255; Encode(1.0) == 254.
const (
	ExposureOffset = 12.473931188
	Scale          = 0.04 * 2 * 255
)

// MatteScale maps a coverage weight to a byte before clamping.
const MatteScale = 2 * 255

// ErrPackingOverflow is returned when an identity code does not fit in six bits.
var ErrPackingOverflow = errors.New("pack: identity code overflows 6 bits")

// Luma returns the Rec. 709 luma of an RGB radiance triple.
func Luma(r, g, b float32) float32 {
	return LumaR*r + LumaG*g + LumaB*b
}

// Encode tone-maps a luma value to a byte. Non-positive and NaN luma
// encode to 0.
func Encode(luma float32) uint8 {
	if !(luma > 0) {
		return 0
	}
	return clamp8((math.Log2(float64(luma)) + ExposureOffset) * Scale)
}

// MatteByte scales a coverage weight in [0,1] to a byte.
func MatteByte(w float32) uint8 {
	if !(w > 0) {
		return 0
	}
	return clamp8(float64(w) * MatteScale)
}

// PackIdentity packs four 6-bit codes into three bytes:
//
//	b0 = c0 | (c1&0x03)<<6
//	b1 = (c1&0x3c)>>2 | (c2&0x0f)<<4
//	b2 = (c2&0x30)>>4 | (c3&0x3f)<<2
func PackIdentity(c [4]identity.Code) ([3]uint8, error) {
	for i, v := range c {
		if v >= identity.MaxCode {
			return [3]uint8{}, fmt.Errorf("%w: rank %d code %d", ErrPackingOverflow, i, v)
		}
	}
	return [3]uint8{
		uint8(c[0]) | uint8(c[1]&0x03)<<6,
		uint8(c[1]&0x3c)>>2 | uint8(c[2]&0x0f)<<4,
		uint8(c[2]&0x30)>>4 | uint8(c[3]&0x3f)<<2,
	}, nil
}

// UnpackIdentity is the inverse of PackIdentity.
func UnpackIdentity(b [3]uint8) [4]identity.Code {
	return [4]identity.Code{
		identity.Code(b[0] & 0x3f),
		identity.Code(b[0]>>6 | (b[1]&0x0f)<<2),
		identity.Code(b[1]>>4 | (b[2]&0x03)<<4),
		identity.Code(b[2] >> 2),
	}
}

// clamp8 truncates like a saturating float-to-byte cast.
func clamp8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
