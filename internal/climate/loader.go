package climate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
)

// ErrNoData is returned when a file holds no timestamp for the requested year.
var ErrNoData = errors.New("no data")

// Loader serves fields, renders and point series for all selectors. Opened
// files are kept for the lifetime of the Loader; results are memoised through
// the configured caches.
type Loader struct {
	opener Opener
	logger *slog.Logger

	fields  Cache[Field]
	renders Cache[Render]
	points  Cache[Series]

	mu      sync.Mutex
	sources map[Selector]Source
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFieldCache memoises Field results.
func WithFieldCache(c Cache[Field]) LoaderOption {
	return func(l *Loader) { l.fields = c }
}

// WithRenderCache memoises Render results.
func WithRenderCache(c Cache[Render]) LoaderOption {
	return func(l *Loader) { l.renders = c }
}

// WithPointCache memoises Point results.
func WithPointCache(c Cache[Series]) LoaderOption {
	return func(l *Loader) { l.points = c }
}

// NewLoader creates a Loader. Without cache options every call recomputes.
func NewLoader(opener Opener, logger *slog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		opener:  opener,
		logger:  logger,
		fields:  passthrough[Field]{},
		renders: passthrough[Render]{},
		points:  passthrough[Series]{},
		sources: make(map[Selector]Source),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close closes every opened source.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for sel, src := range l.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", src.Name(), err))
		}
		delete(l.sources, sel)
	}
	return errors.Join(errs...)
}

func (l *Loader) source(sel Selector) (Source, error) {
	if !sel.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSelector, int(sel))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if src, ok := l.sources[sel]; ok {
		return src, nil
	}
	src, err := l.opener.Open(sel)
	if err != nil {
		return nil, err
	}
	l.logger.Info("opened data source", "selector", sel.String(), "file", src.Name(),
		"times", len(src.Times()), "lat", len(src.Latitudes()), "lon", len(src.Longitudes()))
	l.sources[sel] = src
	return src, nil
}

// Years returns the sorted distinct calendar years present for sel.
func (l *Loader) Years(sel Selector) ([]int, error) {
	src, err := l.source(sel)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{})
	years := make([]int, 0)
	for _, t := range src.Times() {
		y := t.UTC().Year()
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// Field returns the Celsius grid for sel and year with longitudes in
// [-180, 180) sorted ascending. Several timestamps in the year are averaged.
func (l *Loader) Field(ctx context.Context, sel Selector, year int) (Field, error) {
	key := fmt.Sprintf("field:%s:%d", sel, year)
	return l.fields.Do(ctx, key, func(context.Context) (Field, error) {
		return l.loadField(sel, year)
	})
}

func (l *Loader) loadField(sel Selector, year int) (Field, error) {
	src, err := l.source(sel)
	if err != nil {
		return Field{}, err
	}

	var idx []int
	for t, ts := range src.Times() {
		if ts.UTC().Year() == year {
			idx = append(idx, t)
		}
	}
	if len(idx) == 0 {
		return Field{}, fmt.Errorf("%w for year=%d in %s", ErrNoData, year, src.Name())
	}

	lat := src.Latitudes()
	nativeLon := src.Longitudes()
	nlat, nlon := len(lat), len(nativeLon)

	sum := make([]float64, nlat*nlon)
	count := make([]int, nlat*nlon)
	for _, t := range idx {
		grid, err := src.Slice(t)
		if err != nil {
			return Field{}, fmt.Errorf("read %s time index %d: %w", src.Name(), t, err)
		}
		if len(grid) != nlat*nlon {
			return Field{}, fmt.Errorf("read %s time index %d: got %d values, want %d", src.Name(), t, len(grid), nlat*nlon)
		}
		for k, v := range grid {
			if math.IsNaN(v) {
				continue
			}
			sum[k] += v
			count[k]++
		}
	}

	lon, perm := sortedLongitudes(nativeLon)
	values := make([]float32, nlat*nlon)
	for i := 0; i < nlat; i++ {
		for j, native := range perm {
			k := i*nlon + native
			if count[k] == 0 {
				values[i*nlon+j] = float32(math.NaN())
				continue
			}
			values[i*nlon+j] = float32(KelvinToCelsius(sum[k] / float64(count[k])))
		}
	}

	l.logger.Debug("loaded field", "selector", sel.String(), "year", year, "samples", len(idx))
	return Field{
		Selector: sel,
		Year:     year,
		Source:   src.Name(),
		Lat:      append([]float64(nil), lat...),
		Lon:      lon,
		Values:   values,
	}, nil
}

// Render returns the coloured cells for sel and year under the named palette.
func (l *Loader) Render(ctx context.Context, sel Selector, year int, paletteName string, alpha uint8) (Render, error) {
	p, err := LookupPalette(paletteName)
	if err != nil {
		return Render{}, err
	}
	key := fmt.Sprintf("render:%s:%d:%s:%d", sel, year, p.Name(), alpha)
	return l.renders.Do(ctx, key, func(ctx context.Context) (Render, error) {
		f, err := l.Field(ctx, sel, year)
		if err != nil {
			return Render{}, err
		}
		return BuildCells(f, p, alpha)
	})
}

// sortedLongitudes normalises lon into [-180, 180) and sorts it ascending.
// perm[j] is the native index of sorted position j.
func sortedLongitudes(native []float64) (sorted []float64, perm []int) {
	perm = make([]int, len(native))
	for j := range perm {
		perm[j] = j
	}
	norm := make([]float64, len(native))
	for j, v := range native {
		norm[j] = NormalizeLon(v)
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return norm[perm[a]] < norm[perm[b]]
	})
	sorted = make([]float64, len(native))
	for j, src := range perm {
		sorted[j] = norm[src]
	}
	return sorted, perm
}
