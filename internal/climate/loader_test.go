package climate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a fully in-memory Source: grids[t] is row-major lat x lon.
type fakeSource struct {
	name   string
	times  []time.Time
	lat    []float64
	lon    []float64
	grids  [][]float64
	reads  atomic.Int32
	closed bool
}

func (s *fakeSource) Name() string          { return s.name }
func (s *fakeSource) Times() []time.Time    { return s.times }
func (s *fakeSource) Latitudes() []float64  { return s.lat }
func (s *fakeSource) Longitudes() []float64 { return s.lon }
func (s *fakeSource) Close() error          { s.closed = true; return nil }

func (s *fakeSource) Slice(t int) ([]float64, error) {
	s.reads.Add(1)
	if t < 0 || t >= len(s.grids) {
		return nil, fmt.Errorf("time index %d out of range", t)
	}
	return append([]float64(nil), s.grids[t]...), nil
}

func (s *fakeSource) Point(i, j int) ([]float64, error) {
	out := make([]float64, len(s.grids))
	for t, g := range s.grids {
		out[t] = g[i*len(s.lon)+j]
	}
	return out, nil
}

type fakeOpener struct {
	sources map[Selector]*fakeSource
	opens   atomic.Int32
}

func (o *fakeOpener) Open(sel Selector) (Source, error) {
	o.opens.Add(1)
	src, ok := o.sources[sel]
	if !ok {
		return nil, errors.New("no file for " + sel.String())
	}
	return src, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jan(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// yearlySource has one timestamp per year in [from, to]. Every cell holds
// 273.15 + year - 2000 + 0.1*j so values are easy to predict.
func yearlySource(name string, from, to int, lat, lon []float64) *fakeSource {
	s := &fakeSource{name: name, lat: lat, lon: lon}
	for y := from; y <= to; y++ {
		s.times = append(s.times, jan(y))
		g := make([]float64, len(lat)*len(lon))
		for i := range lat {
			for j := range lon {
				g[i*len(lon)+j] = 273.15 + float64(y-2000) + 0.1*float64(j)
			}
		}
		s.grids = append(s.grids, g)
	}
	return s
}

func TestLoader_FieldMissingYear(t *testing.T) {
	src := yearlySource("t2m_2deg_annual_mean.nc", 2000, 2024, []float64{0}, []float64{0})
	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}, discardLogger())

	_, err := l.Field(context.Background(), Annual, 1999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "1999")
	assert.Contains(t, err.Error(), "t2m_2deg_annual_mean.nc")
}

func TestLoader_FieldAveragesTimestampsAndConverts(t *testing.T) {
	nan := math.NaN()
	src := &fakeSource{
		name: "t2m_2deg_month_01.nc",
		lat:  []float64{0},
		lon:  []float64{0, 10},
		times: []time.Time{
			time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2010, 1, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		grids: [][]float64{
			{273.15, nan},
			{275.15, nan},
			{300, 300},
		},
	}
	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Month(1): src}}, discardLogger())

	f, err := l.Field(context.Background(), Month(1), 2010)
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.InDelta(t, 1.0, float64(f.At(0, 0)), 1e-5)
	assert.True(t, math.IsNaN(float64(f.At(0, 1))))
	assert.Equal(t, "t2m_2deg_month_01.nc", f.Source)
	assert.Equal(t, 2010, f.Year)
}

func TestLoader_FieldSortsLongitudes(t *testing.T) {
	lon := []float64{0, 90, 180, 270}
	src := yearlySource("a.nc", 2000, 2000, []float64{-10, 10}, lon)
	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}, discardLogger())

	f, err := l.Field(context.Background(), Annual, 2000)
	require.NoError(t, err)
	assert.Equal(t, []float64{-180, -90, 0, 90}, f.Lon)
	// native column 2 (180) moved to the front, carrying its value with it.
	assert.InDelta(t, 0.2, float64(f.At(0, 0)), 1e-5)
	assert.InDelta(t, 0.3, float64(f.At(1, 1)), 1e-5)
	assert.InDelta(t, 0.0, float64(f.At(1, 2)), 1e-5)
}

func TestLoader_Years(t *testing.T) {
	src := yearlySource("a.nc", 1940, 1945, []float64{0}, []float64{0})
	src.times = append(src.times, time.Date(1945, 6, 1, 0, 0, 0, 0, time.UTC))
	src.grids = append(src.grids, src.grids[0])
	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}, discardLogger())

	years, err := l.Years(Annual)
	require.NoError(t, err)
	assert.Equal(t, []int{1940, 1941, 1942, 1943, 1944, 1945}, years)
}

func TestLoader_OpensEachSourceOnce(t *testing.T) {
	src := yearlySource("a.nc", 2000, 2001, []float64{0}, []float64{0})
	opener := &fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}
	l := NewLoader(opener, discardLogger())

	_, err := l.Field(context.Background(), Annual, 2000)
	require.NoError(t, err)
	_, err = l.Years(Annual)
	require.NoError(t, err)
	_, err = l.Point(context.Background(), Annual, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), opener.opens.Load())

	require.NoError(t, l.Close())
	assert.True(t, src.closed)
}

func TestLoader_InvalidSelector(t *testing.T) {
	l := NewLoader(&fakeOpener{}, discardLogger())
	_, err := l.Field(context.Background(), Selector(13), 2000)
	assert.ErrorIs(t, err, ErrInvalidSelector)
}

func TestLoader_Render(t *testing.T) {
	src := yearlySource("a.nc", 2000, 2000, []float64{10, 20}, []float64{0, 2, 4})
	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}, discardLogger())

	r, err := l.Render(context.Background(), Annual, 2000, "plasma", 100)
	require.NoError(t, err)
	assert.Len(t, r.Cells, 6)
	assert.Equal(t, "plasma", r.Palette)
	assert.Equal(t, uint8(100), r.Cells[0].FillColor[3])

	_, err = l.Render(context.Background(), Annual, 2000, "nope", 100)
	assert.ErrorIs(t, err, ErrUnknownPalette)
}

type countingCache[V any] struct {
	values map[string]V
	calls  int
}

func (c *countingCache[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	c.calls++
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	c.values[key] = v
	return v, nil
}

func TestLoader_UsesCaches(t *testing.T) {
	src := yearlySource("a.nc", 2000, 2000, []float64{0}, []float64{0, 1})
	fields := &countingCache[Field]{values: map[string]Field{}}
	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}, discardLogger(), WithFieldCache(fields))

	for range 3 {
		_, err := l.Field(context.Background(), Annual, 2000)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fields.calls)
	assert.Equal(t, int32(1), src.reads.Load())
	assert.Contains(t, fields.values, "field:annual:2000")
}

func TestLoader_PointNearestAndYearly(t *testing.T) {
	lat := []float64{90, 88, 86}
	lon := []float64{0, 2, 358}
	src := &fakeSource{name: "p.nc", lat: lat, lon: lon}
	add := func(ts time.Time, v float64) {
		src.times = append(src.times, ts)
		g := make([]float64, len(lat)*len(lon))
		for k := range g {
			g[k] = v
		}
		src.grids = append(src.grids, g)
	}
	add(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), 273.15)
	add(time.Date(2001, 7, 1, 0, 0, 0, 0, time.UTC), 283.15)
	add(time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC), math.NaN())
	add(time.Date(2003, 1, 1, 0, 0, 0, 0, time.UTC), 263.15)

	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}, discardLogger())

	s, err := l.Point(context.Background(), Annual, 87.2, 358.6)
	require.NoError(t, err)
	assert.Equal(t, 88.0, s.GridLat)
	assert.Equal(t, -2.0, s.GridLon)
	assert.Equal(t, 87.2, s.ClickLat)
	assert.Equal(t, 358.6, s.ClickLon)
	assert.Equal(t, "p.nc", s.Source)

	require.Len(t, s.Points, 2)
	assert.Equal(t, YearValue{Year: 2001, TempC: 5}, roundYear(s.Points[0]))
	assert.Equal(t, YearValue{Year: 2003, TempC: -10}, roundYear(s.Points[1]))

	again, err := l.Point(context.Background(), Annual, 87.2, 358.6)
	require.NoError(t, err)
	assert.Equal(t, s, again)

	first, last, ok := s.YearRange()
	assert.True(t, ok)
	assert.Equal(t, 2001, first)
	assert.Equal(t, 2003, last)
	assert.Len(t, s.Window(2002, 2010).Points, 1)
	assert.Less(t, s.DistanceKm(), 150.0)
}

func TestLoader_PointResolvesCellBeforeCaching(t *testing.T) {
	src := yearlySource("p.nc", 2000, 2000, []float64{0, 2}, []float64{0, 10})
	points := &countingCache[Series]{values: map[string]Series{}}
	l := NewLoader(&fakeOpener{sources: map[Selector]*fakeSource{Annual: src}}, discardLogger(), WithPointCache(points))

	below, err := l.Point(context.Background(), Annual, 0.99996, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, below.GridLat)
	assert.Equal(t, 0.99996, below.ClickLat)

	above, err := l.Point(context.Background(), Annual, 1.00004, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, above.GridLat)

	// another click inside the first cell reuses its entry
	near, err := l.Point(context.Background(), Annual, 0.3, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, near.GridLat)
	assert.Equal(t, 0.3, near.ClickLat)

	assert.Equal(t, 2, points.calls)
	assert.Contains(t, points.values, "point:annual:0:0")
	assert.Contains(t, points.values, "point:annual:1:0")
}

func roundYear(v YearValue) YearValue {
	v.TempC = math.Round(v.TempC*1e6) / 1e6
	return v
}

func TestNearestIndex(t *testing.T) {
	assert.Equal(t, 1, nearestIndex([]float64{0, 2, 4}, 2.4))
	assert.Equal(t, 0, nearestIndex([]float64{0, 2, 4}, -100))
	assert.Equal(t, 2, nearestIndex([]float64{0, 2, 4}, 100))
	// midpoint resolves to the larger coordinate in either axis order
	assert.Equal(t, 1, nearestIndex([]float64{0, 2, 4}, 1))
	assert.Equal(t, 0, nearestIndex([]float64{2, 0}, 1))
	assert.Equal(t, -1, nearestIndex(nil, 0))
}

func TestSortedLongitudes(t *testing.T) {
	sorted, perm := sortedLongitudes([]float64{0, 120, 240, 359})
	assert.Equal(t, []int{2, 3, 0, 1}, perm)
	assert.InDeltaSlice(t, []float64{-120, -1, 0, 120}, sorted, 1e-9)
}
