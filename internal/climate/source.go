package climate

import (
	"context"
	"time"
)

// Source is one opened data file: a time series of 2-D temperature grids in
// Kelvin on native axes (longitudes as stored, possibly 0..360).
type Source interface {
	// Name identifies the file in error messages.
	Name() string
	Times() []time.Time
	Latitudes() []float64
	Longitudes() []float64
	// Slice returns the grid at timestamp index t, row-major latitude by
	// longitude. Missing values are NaN.
	Slice(t int) ([]float64, error)
	// Point returns the full per-timestamp record at native cell (i, j).
	Point(i, j int) ([]float64, error)
	Close() error
}

// Opener resolves a selector to its data file.
type Opener interface {
	Open(sel Selector) (Source, error)
}

// Cache memoises computations by key. Implementations must not cache errors.
type Cache[V any] interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error)
}

// passthrough computes every time.
type passthrough[V any] struct{}

func (passthrough[V]) Do(ctx context.Context, _ string, fn func(ctx context.Context) (V, error)) (V, error) {
	return fn(ctx)
}
