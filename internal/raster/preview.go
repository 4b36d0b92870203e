package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Preview downsamples the light raster to fit size x size, keeping the
// aspect ratio. Rasters already small enough are returned unscaled.
// Identity and matte rasters must never go through here: resampling mixes
// packed codes.
func Preview(r *Raster, size int) *image.NRGBA {
	src := r.ToNRGBA()
	if size <= 0 || (r.Width <= size && r.Height <= size) {
		return src
	}

	w, h := size, size
	if r.Width > r.Height {
		h = max(1, r.Height*size/r.Width)
	} else if r.Height > r.Width {
		w = max(1, r.Width*size/r.Height)
	}

	// Opaque source, so no premultiply round trip is needed.
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
