package climate

import (
	"errors"
	"image/color"
	"math"
	"sort"
)

// ErrEmptyField is returned when a field has no finite values to scale.
var ErrEmptyField = errors.New("field has no finite values")

const (
	lowPercentile  = 2
	highPercentile = 98
)

// Normalizer maps temperatures to palette colours over a robust display range.
type Normalizer struct {
	Low     float64
	High    float64
	Palette Palette
}

// NewNormalizer computes the 2nd/98th percentile range of the finite values.
// A degenerate range (high <= low, e.g. a constant field) is widened to
// [low, low+1].
func NewNormalizer(values []float32, p Palette) (Normalizer, error) {
	finite := finiteSorted(values)
	if len(finite) == 0 {
		return Normalizer{}, ErrEmptyField
	}

	low := percentileSorted(finite, lowPercentile)
	high := percentileSorted(finite, highPercentile)
	if high <= low {
		high = low + 1.0
	}
	return Normalizer{Low: low, High: high, Palette: p}, nil
}

// Norm scales v linearly so that Low maps to 0 and High to 1. The result is
// not clamped.
func (n Normalizer) Norm(v float64) float64 {
	return (v - n.Low) / (n.High - n.Low)
}

// RGB returns the 8-bit colour channels for v. Channels are truncated, not
// rounded, from the palette's [0, 1] output. Values outside [Low, High] take
// the palette's end colours. v must be finite.
func (n Normalizer) RGB(v float64) (r, g, b uint8) {
	c := n.Palette.At(n.Norm(v))
	return channel(c.R), channel(c.G), channel(c.B)
}

// Color returns the colour for v with the given alpha.
func (n Normalizer) Color(v float64, alpha uint8) color.NRGBA {
	r, g, b := n.RGB(v)
	return color.NRGBA{R: r, G: g, B: b, A: alpha}
}

func channel(c float64) uint8 {
	v := math.Trunc(c * 255)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// Percentile returns the p-th percentile (0-100) of the finite values using
// linear interpolation between closest ranks. NaN is returned when no finite
// value exists.
func Percentile(values []float32, p float64) float64 {
	finite := finiteSorted(values)
	if len(finite) == 0 {
		return math.NaN()
	}
	return percentileSorted(finite, p)
}

// percentileSorted expects an ascending slice with at least one element.
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func finiteSorted(values []float32) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out = append(out, f)
	}
	sort.Float64s(out)
	return out
}
