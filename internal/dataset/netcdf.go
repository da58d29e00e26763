package dataset

import (
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// NetCDF is a climate.Source backed by one NetCDF file with a
// (time, latitude, longitude) temperature variable.
type NetCDF struct {
	path  string
	nc    api.Group
	value api.VarGetter
	pack  packing

	times []time.Time
	lat   []float64
	lon   []float64

	// The decoder keeps file state, so reads are serialised.
	mu   sync.Mutex
	cube []float64
}

// packing describes how raw stored numbers map to physical values.
type packing struct {
	scale   float64
	offset  float64
	fill    []float64
	hasFill bool
}

func (p packing) decode(raw float64) float64 {
	if math.IsNaN(raw) {
		return raw
	}
	if p.hasFill {
		for _, f := range p.fill {
			if raw == f {
				return math.NaN()
			}
		}
	}
	return raw*p.scale + p.offset
}

// OpenNetCDF opens path and reads its axes. variable names the temperature
// variable; the time axis is "valid_time" or, failing that, "time".
func OpenNetCDF(path, variable string) (*NetCDF, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &NetCDF{path: path, nc: nc}
	if err := s.init(variable); err != nil {
		nc.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

func (s *NetCDF) init(variable string) error {
	var err error
	if s.lat, err = axis(s.nc, "latitude"); err != nil {
		return err
	}
	if s.lon, err = axis(s.nc, "longitude"); err != nil {
		return err
	}

	timeVar, err := s.nc.GetVarGetter("valid_time")
	if err != nil {
		if timeVar, err = s.nc.GetVarGetter("time"); err != nil {
			return fmt.Errorf("no valid_time or time variable: %w", err)
		}
	}
	raw, err := timeVar.Values()
	if err != nil {
		return fmt.Errorf("read time axis: %w", err)
	}
	offsets, err := toFloat64s(raw)
	if err != nil {
		return fmt.Errorf("time axis: %w", err)
	}
	units, _ := stringAttr(timeVar.Attributes(), "units")
	if s.times, err = DecodeTimes(offsets, units); err != nil {
		return err
	}

	if s.value, err = s.nc.GetVarGetter(variable); err != nil {
		return fmt.Errorf("variable %s: %w", variable, err)
	}
	s.pack = readPacking(s.value.Attributes())
	if n := s.value.Len(); n != int64(len(s.times)) {
		return fmt.Errorf("variable %s has %d steps, time axis has %d", variable, n, len(s.times))
	}
	return nil
}

func axis(nc api.Group, name string) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", name, err)
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", name, err)
	}
	values, err := toFloat64s(raw)
	if err != nil {
		return nil, fmt.Errorf("axis %s: %w", name, err)
	}
	return values, nil
}

func readPacking(attrs api.AttributeMap) packing {
	p := packing{scale: 1}
	if v, ok := numberAttr(attrs, "scale_factor"); ok {
		p.scale = v
	}
	if v, ok := numberAttr(attrs, "add_offset"); ok {
		p.offset = v
	}
	for _, key := range []string{"_FillValue", "missing_value"} {
		if v, ok := numberAttr(attrs, key); ok {
			p.fill = append(p.fill, v)
			p.hasFill = true
		}
	}
	return p
}

// Name returns the file's base name.
func (s *NetCDF) Name() string { return filepath.Base(s.path) }

func (s *NetCDF) Times() []time.Time    { return s.times }
func (s *NetCDF) Latitudes() []float64  { return s.lat }
func (s *NetCDF) Longitudes() []float64 { return s.lon }

// Slice returns the decoded grid at time index t.
func (s *NetCDF) Slice(t int) ([]float64, error) {
	if t < 0 || t >= len(s.times) {
		return nil, fmt.Errorf("time index %d out of range [0, %d)", t, len(s.times))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cube != nil {
		n := len(s.lat) * len(s.lon)
		return append([]float64(nil), s.cube[t*n:(t+1)*n]...), nil
	}

	raw, err := s.value.GetSlice(int64(t), int64(t+1))
	if err != nil {
		return nil, err
	}
	flat, err := flatten(raw)
	if err != nil {
		return nil, err
	}
	if len(flat) != len(s.lat)*len(s.lon) {
		return nil, fmt.Errorf("slice has %d values, want %d", len(flat), len(s.lat)*len(s.lon))
	}
	for k, v := range flat {
		flat[k] = s.pack.decode(v)
	}
	return flat, nil
}

// Point returns the decoded record of cell (i, j) across all timestamps.
// The first call loads the whole variable; later calls are served from it.
func (s *NetCDF) Point(i, j int) ([]float64, error) {
	if i < 0 || i >= len(s.lat) || j < 0 || j >= len(s.lon) {
		return nil, fmt.Errorf("cell (%d, %d) outside %d x %d grid", i, j, len(s.lat), len(s.lon))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadCube(); err != nil {
		return nil, err
	}
	n := len(s.lat) * len(s.lon)
	k := i*len(s.lon) + j
	out := make([]float64, len(s.times))
	for t := range out {
		out[t] = s.cube[t*n+k]
	}
	return out, nil
}

func (s *NetCDF) loadCube() error {
	if s.cube != nil {
		return nil
	}
	raw, err := s.value.Values()
	if err != nil {
		return err
	}
	flat, err := flatten(raw)
	if err != nil {
		return err
	}
	if want := len(s.times) * len(s.lat) * len(s.lon); len(flat) != want {
		return fmt.Errorf("variable has %d values, want %d", len(flat), want)
	}
	for k, v := range flat {
		flat[k] = s.pack.decode(v)
	}
	s.cube = flat
	return nil
}

// Close releases the file.
func (s *NetCDF) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cube = nil
	s.nc.Close()
	return nil
}
