package climate

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of rendered cell temperatures.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P5    float64 `json:"p5"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Max   float64 `json:"max"`
}

// Summarize computes count, mean, sample standard deviation, extremes and the
// 5/50/95 percentiles of the rendered cells. An empty render yields a zero
// Summary.
func Summarize(r Render) Summary {
	values := r.Values()
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Summary{
		Count: len(values),
		Mean:  mean,
		Std:   std,
		Min:   floats.Min(values),
		P5:    percentileSorted(values, 5),
		P50:   percentileSorted(values, 50),
		P95:   percentileSorted(values, 95),
		Max:   floats.Max(values),
	}
}
