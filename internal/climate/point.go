package climate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0

// YearValue is one yearly mean of a point series.
type YearValue struct {
	Year  int     `json:"year"`
	TempC float64 `json:"temp_c"`
}

// Series is the yearly temperature record of the grid cell nearest to a click.
// GridLat/GridLon are the coordinates actually used, with GridLon in
// [-180, 180).
type Series struct {
	Selector Selector    `json:"selector"`
	ClickLat float64     `json:"clicked_lat"`
	ClickLon float64     `json:"clicked_lon"`
	GridLat  float64     `json:"nearest_grid_lat"`
	GridLon  float64     `json:"nearest_grid_lon"`
	Source   string      `json:"source"`
	Points   []YearValue `json:"points"`
}

// Window returns a copy of s holding only years in [from, to].
func (s Series) Window(from, to int) Series {
	out := s
	out.Points = make([]YearValue, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Year >= from && p.Year <= to {
			out.Points = append(out.Points, p)
		}
	}
	return out
}

// YearRange returns the first and last year of the series; ok is false when
// it is empty.
func (s Series) YearRange() (first, last int, ok bool) {
	if len(s.Points) == 0 {
		return 0, 0, false
	}
	return s.Points[0].Year, s.Points[len(s.Points)-1].Year, true
}

// DistanceKm is the great-circle distance between the click and the resolved
// grid cell centre.
func (s Series) DistanceKm() float64 {
	a := s2.PointFromLatLng(s2.LatLngFromDegrees(s.ClickLat, NormalizeLon(s.ClickLon)))
	b := s2.PointFromLatLng(s2.LatLngFromDegrees(s.GridLat, s.GridLon))
	return a.Distance(b).Radians() * earthRadiusKm
}

// Point resolves (lat, lon) to the nearest native grid cell for sel and
// returns its record averaged per calendar year, in Celsius. lon may use any
// convention; it is normalised into [-180, 180) first.
func (l *Loader) Point(ctx context.Context, sel Selector, lat, lon float64) (Series, error) {
	src, err := l.source(sel)
	if err != nil {
		return Series{}, err
	}

	lats := src.Latitudes()
	sortedLon, perm := sortedLongitudes(src.Longitudes())
	if len(lats) == 0 || len(sortedLon) == 0 {
		return Series{}, fmt.Errorf("%s has an empty grid", src.Name())
	}
	i := nearestIndex(lats, lat)
	j := nearestIndex(sortedLon, NormalizeLon(lon))

	key := fmt.Sprintf("point:%s:%d:%d", sel, i, j)
	s, err := l.points.Do(ctx, key, func(context.Context) (Series, error) {
		s, err := cellRecord(src, i, perm[j])
		if err != nil {
			return Series{}, err
		}
		s.Selector = sel
		s.GridLat, s.GridLon = lats[i], sortedLon[j]
		return s, nil
	})
	if err != nil {
		return Series{}, err
	}
	s.ClickLat, s.ClickLon = lat, lon
	return s, nil
}

// cellRecord reads the record of cell (i, k) in file order and averages it
// per calendar year.
func cellRecord(src Source, i, k int) (Series, error) {
	record, err := src.Point(i, k)
	if err != nil {
		return Series{}, fmt.Errorf("read %s cell (%d, %d): %w", src.Name(), i, k, err)
	}
	times := src.Times()
	if len(record) != len(times) {
		return Series{}, fmt.Errorf("read %s cell (%d, %d): got %d samples, want %d", src.Name(), i, k, len(record), len(times))
	}

	type acc struct {
		sum float64
		n   int
	}
	byYear := make(map[int]*acc)
	for t, v := range record {
		if math.IsNaN(v) {
			continue
		}
		y := times[t].UTC().Year()
		a, ok := byYear[y]
		if !ok {
			a = &acc{}
			byYear[y] = a
		}
		a.sum += v
		a.n++
	}

	points := make([]YearValue, 0, len(byYear))
	for y, a := range byYear {
		points = append(points, YearValue{Year: y, TempC: KelvinToCelsius(a.sum / float64(a.n))})
	}
	sort.Slice(points, func(a, b int) bool { return points[a].Year < points[b].Year })

	return Series{Source: src.Name(), Points: points}, nil
}

// nearestIndex returns the index of the axis value closest to x. The axis may
// be ascending, descending or irregular. An exact midpoint resolves to the
// larger coordinate value.
func nearestIndex(axis []float64, x float64) int {
	best := -1
	bestDist := math.Inf(1)
	for k, v := range axis {
		d := math.Abs(v - x)
		if best < 0 || d < bestDist || (d == bestDist && v > axis[best]) {
			best, bestDist = k, d
		}
	}
	return best
}
