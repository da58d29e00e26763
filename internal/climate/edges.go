package climate

import (
	"math"
	"sort"
)

// Edges converts N equally spaced cell centres into N+1 cell boundaries.
// Interior boundaries are midpoints between neighbouring centres; the two
// outer boundaries extend half a step beyond the first and last centre. The
// step is the median absolute difference between neighbours, or 1 for a
// single centre. Descending centres produce descending edges.
func Edges(centers []float64) []float64 {
	n := len(centers)
	if n == 0 {
		return nil
	}

	step := 1.0
	if n > 1 {
		diffs := make([]float64, n-1)
		for i := 1; i < n; i++ {
			diffs[i-1] = math.Abs(centers[i] - centers[i-1])
		}
		step = median(diffs)
	}

	edges := make([]float64, n+1)
	for i := 1; i < n; i++ {
		edges[i] = (centers[i-1] + centers[i]) / 2
	}

	// Outer edges follow the axis direction.
	dir := 1.0
	if n > 1 && centers[n-1] < centers[0] {
		dir = -1.0
	}
	edges[0] = centers[0] - dir*step/2
	edges[n] = centers[n-1] + dir*step/2
	return edges
}

// median sorts a copy of xs and returns its middle value (mean of the two
// middle values for even lengths).
func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
