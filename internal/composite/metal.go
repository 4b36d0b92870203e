package composite

import (
	"variant-compositor/internal/layer"
	"variant-compositor/internal/pack"
	"variant-compositor/internal/raster"
)

// metalFinish tone maps the glossy brightness of pixel i under both metal
// finishes: raw in the first channel, polished in the second. The third
// channel stays zero.
func metalFinish(b *layer.Bundle, i int) [raster.Channels]uint8 {
	raw := b.MetalRaw[i*3 : i*3+3]
	polish := b.MetalPolish[i*3 : i*3+3]
	return [raster.Channels]uint8{
		pack.Encode(pack.Luma(raw[0], raw[1], raw[2])),
		pack.Encode(pack.Luma(polish[0], polish[1], polish[2])),
		0,
	}
}
