// Package depth decides which section is visible at each pixel.
//
// A larger depth value is nearer to the camera. A pixel is covered by a
// section when its depth is positive, finite and below Sentinel.
package depth

import (
	"fmt"
)

// Sentinel is the depth the renderer writes for background pixels.
const Sentinel = 1e10

// NoCoverage pads a pixel's candidate list.
const NoCoverage = -1

// MaxCandidates bounds the number of sections one ranking can hold.
const MaxCandidates = 127

// Covers reports whether depth d marks the pixel as covered.
func Covers(d float32) bool {
	return d > 0 && d < Sentinel
}

// Rank appends to order[:0] the indices of the covered candidates, nearest
// first. Ties keep candidate order.
func Rank(depths []float32, order []int8) []int8 {
	order = order[:0]
	for i, d := range depths {
		if !Covers(d) {
			continue
		}
		j := len(order)
		order = append(order, int8(i))
		for j > 0 && depths[order[j-1]] < d {
			order[j] = order[j-1]
			j--
		}
		order[j] = int8(i)
	}
	return order
}

// Ranking holds an ordered candidate list for every pixel of a frame.
// Lists are padded with NoCoverage.
type Ranking struct {
	Width      int
	Height     int
	Candidates int
	Order      []int8 // len = Width*Height*Candidates
}

// NewRanking allocates a ranking with every pixel uncovered.
func NewRanking(w, h, candidates int) *Ranking {
	order := make([]int8, w*h*candidates)
	for i := range order {
		order[i] = NoCoverage
	}
	return &Ranking{Width: w, Height: h, Candidates: candidates, Order: order}
}

// At returns the padded candidate list of pixel i.
func (r *Ranking) At(i int) []int8 {
	return r.Order[i*r.Candidates : (i+1)*r.Candidates]
}

// Winner returns the first candidate of pixel i, or NoCoverage.
func (r *Ranking) Winner(i int) int {
	if r.Candidates == 0 {
		return NoCoverage
	}
	return int(r.Order[i*r.Candidates])
}

// Set replaces the candidate list of pixel i.
func (r *Ranking) Set(i int, order []int8) {
	slot := r.At(i)
	n := copy(slot, order)
	for k := n; k < len(slot); k++ {
		slot[k] = NoCoverage
	}
}

// Resolver ranks the sections of one frame. depths[s] is the depth buffer
// of section s, in section order.
type Resolver interface {
	Resolve(w, h int, depths [][]float32) (*Ranking, error)
}

// Nearest ranks every pixel independently, nearest first.
type Nearest struct{}

// Resolve implements Resolver.
func (Nearest) Resolve(w, h int, depths [][]float32) (*Ranking, error) {
	if err := checkDepths(w, h, depths); err != nil {
		return nil, err
	}

	k := len(depths)
	r := NewRanking(w, h, k)
	px := make([]float32, k)
	order := make([]int8, 0, k)
	for i := 0; i < w*h; i++ {
		for s := range depths {
			px[s] = depths[s][i]
		}
		order = Rank(px, order)
		r.Set(i, order)
	}
	return r, nil
}

func checkDepths(w, h int, depths [][]float32) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("depth: invalid frame size %dx%d", w, h)
	}
	if len(depths) > MaxCandidates {
		return fmt.Errorf("depth: %d sections exceed %d", len(depths), MaxCandidates)
	}
	for s, d := range depths {
		if len(d) != w*h {
			return fmt.Errorf("depth: section %d: buffer has %d values, want %d", s, len(d), w*h)
		}
	}
	return nil
}
