package depth

import (
	"fmt"
	"math"
)

// FramesPerTurn is the number of frames in one full turntable rotation.
const FramesPerTurn = 144

// FrameAngle returns the rig rotation of frame in degrees.
func FrameAngle(frame, framesPerTurn int) float64 {
	return float64(frame) * 360 / float64(framesPerTurn)
}

// Turntable resolves sections that share one rotating camera rig. Section
// order is priority order: section 0 wins every tie it takes part in.
//
// On top of the nearest-first ranking, the top two candidates of a pixel
// are treated as coplanar when their depths differ by at most Epsilon.
// Near 0 degrees columns left of ThresholdX go to the higher-priority
// section, near 180 degrees the rule is mirrored, and at any other angle
// the shared depth is compared with the reference plane. Without a plane
// the higher-priority section keeps the pixel. Finally every
// section's owned area is grown by one pixel into unowned pixels.
type Turntable struct {
	// Angle and AngleTolerance are in degrees.
	Angle          float64
	AngleTolerance float64
	Epsilon        float32
	ThresholdX     int
	// Plane holds the reference-plane depth, one value per pixel.
	Plane []float32
}

// Resolve implements Resolver.
func (t Turntable) Resolve(w, h int, depths [][]float32) (*Ranking, error) {
	if t.Plane != nil && len(t.Plane) != w*h {
		return nil, fmt.Errorf("depth: reference plane has %d values, want %d", len(t.Plane), w*h)
	}
	r, err := Nearest{}.Resolve(w, h, depths)
	if err != nil {
		return nil, err
	}

	t.fixCoplanar(r, depths)
	closeSeams(r)
	return r, nil
}

func (t Turntable) fixCoplanar(r *Ranking, depths [][]float32) {
	if r.Candidates < 2 {
		return
	}
	a := math.Mod(t.Angle, 360)
	if a < 0 {
		a += 360
	}
	near0 := math.Min(a, 360-a) <= t.AngleTolerance
	near180 := math.Abs(a-180) <= t.AngleTolerance

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			i := y*r.Width + x
			order := r.At(i)
			if order[1] == NoCoverage {
				continue
			}
			d0, d1 := depths[order[0]][i], depths[order[1]][i]
			if float32(math.Abs(float64(d0-d1))) > t.Epsilon {
				continue
			}

			hi, lo := order[0], order[1]
			if lo < hi {
				hi, lo = lo, hi
			}

			var front bool
			switch {
			case near0:
				front = x < t.ThresholdX
			case near180:
				front = x >= t.ThresholdX
			case t.Plane == nil:
				front = true
			default:
				front = d0 > t.Plane[i]
			}

			if front {
				order[0], order[1] = hi, lo
			} else {
				order[0], order[1] = lo, hi
			}
		}
	}
}

// closeSeams grows each section's owned pixels by one pixel (3x3) into
// pixels nobody owns. Where several sections reach the same pixel, the
// lowest section index wins.
func closeSeams(r *Ranking) {
	w, h := r.Width, r.Height
	owner := make([]int8, w*h)
	for i := range owner {
		owner[i] = int8(r.Winner(i))
	}

	claim := make([]int8, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if owner[i] != NoCoverage {
				continue
			}
			best := int8(NoCoverage)
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					o := owner[ny*w+nx]
					if o != NoCoverage && (best == NoCoverage || o < best) {
						best = o
					}
				}
			}
			if best != NoCoverage {
				claim[0] = best
				r.Set(i, claim)
			}
		}
	}
}
