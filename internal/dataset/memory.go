package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/i474232898/warming-map/internal/climate"
)

// Memory is an in-memory climate.Source. Grids[t] is row-major latitude by
// longitude, in Kelvin.
type Memory struct {
	FileName   string
	Timestamps []time.Time
	Lat        []float64
	Lon        []float64
	Grids      [][]float64
}

func (m *Memory) Name() string          { return m.FileName }
func (m *Memory) Times() []time.Time    { return m.Timestamps }
func (m *Memory) Latitudes() []float64  { return m.Lat }
func (m *Memory) Longitudes() []float64 { return m.Lon }
func (m *Memory) Close() error          { return nil }

func (m *Memory) Slice(t int) ([]float64, error) {
	if t < 0 || t >= len(m.Grids) {
		return nil, fmt.Errorf("time index %d out of range [0, %d)", t, len(m.Grids))
	}
	return append([]float64(nil), m.Grids[t]...), nil
}

func (m *Memory) Point(i, j int) ([]float64, error) {
	if i < 0 || i >= len(m.Lat) || j < 0 || j >= len(m.Lon) {
		return nil, fmt.Errorf("cell (%d, %d) outside %d x %d grid", i, j, len(m.Lat), len(m.Lon))
	}
	out := make([]float64, len(m.Grids))
	for t, g := range m.Grids {
		out[t] = g[i*len(m.Lon)+j]
	}
	return out, nil
}

// MemoryCatalog serves Memory sources keyed by selector.
type MemoryCatalog map[climate.Selector]*Memory

// Open implements climate.Opener.
func (c MemoryCatalog) Open(sel climate.Selector) (climate.Source, error) {
	m, ok := c[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingFiles, FileName(sel))
	}
	return m, nil
}

// Synthetic builds a Memory source on a regular grid with one January
// timestamp per year in [from, to]. Temperatures fall off with latitude and
// rise by warming degrees per year; the exact shape is for fixtures only.
func Synthetic(sel climate.Selector, step float64, from, to int, warming float64) *Memory {
	m := &Memory{FileName: FileName(sel)}
	for lat := 90.0; lat >= -90; lat -= step {
		m.Lat = append(m.Lat, lat)
	}
	for lon := 0.0; lon < 360; lon += step {
		m.Lon = append(m.Lon, lon)
	}
	month := time.January
	if !sel.IsAnnual() {
		month = time.Month(int(sel))
	}
	for y := from; y <= to; y++ {
		m.Timestamps = append(m.Timestamps, time.Date(y, month, 1, 0, 0, 0, 0, time.UTC))
		g := make([]float64, len(m.Lat)*len(m.Lon))
		for i, lat := range m.Lat {
			base := 300 - 40*math.Abs(lat)/90
			for j := range m.Lon {
				g[i*len(m.Lon)+j] = base + warming*float64(y-from)
			}
		}
		m.Grids = append(m.Grids, g)
	}
	return m
}
