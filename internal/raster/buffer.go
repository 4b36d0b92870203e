// Package raster holds the 8-bit output images of a compositing pass and
// writes them to disk.
package raster

import "image"

// Channels is the number of bytes per pixel of every output raster.
const Channels = 3

// Raster is a 3-channel 8-bit image stored as a flat slice for cache locality.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8 // interleaved, len = W*H*3
}

// New allocates a zeroed raster.
func New(w, h int) *Raster {
	return &Raster{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*Channels),
	}
}

// Set writes the three bytes of pixel i.
func (r *Raster) Set(i int, px [Channels]uint8) {
	copy(r.Pix[i*Channels:i*Channels+Channels], px[:])
}

// At returns the three bytes of pixel i.
func (r *Raster) At(i int) [Channels]uint8 {
	var px [Channels]uint8
	copy(px[:], r.Pix[i*Channels:i*Channels+Channels])
	return px
}

// ToNRGBA returns an opaque copy for the image encoders.
func (r *Raster) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i < len(r.Pix); i, j = i+Channels, j+4 {
		img.Pix[j] = r.Pix[i]
		img.Pix[j+1] = r.Pix[i+1]
		img.Pix[j+2] = r.Pix[i+2]
		img.Pix[j+3] = 255
	}
	return img
}
