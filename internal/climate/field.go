package climate

import (
	"fmt"
	"math"
)

// Field is one selector/year temperature grid in degrees Celsius. Values are
// stored row-major: Values[i*len(Lon)+j] belongs to Lat[i], Lon[j].
type Field struct {
	Selector Selector  `json:"selector"`
	Year     int       `json:"year"`
	Source   string    `json:"source"`
	Lat      []float64 `json:"lat"`
	Lon      []float64 `json:"lon"`
	Values   []float32 `json:"-"`
}

// Validate checks that the value grid matches the two axes.
func (f Field) Validate() error {
	if len(f.Lat) == 0 || len(f.Lon) == 0 {
		return fmt.Errorf("field has empty axis: lat=%d lon=%d", len(f.Lat), len(f.Lon))
	}
	if len(f.Values) != len(f.Lat)*len(f.Lon) {
		return fmt.Errorf("field has %d values, want %d x %d", len(f.Values), len(f.Lat), len(f.Lon))
	}
	return nil
}

// At returns the value at row i (latitude) and column j (longitude).
func (f Field) At(i, j int) float32 {
	return f.Values[i*len(f.Lon)+j]
}

// KelvinToCelsius converts an absolute temperature.
func KelvinToCelsius(k float64) float64 {
	return k - 273.15
}

// NormalizeLon maps any longitude into [-180, 180) via ((lon+180) mod 360) - 180.
func NormalizeLon(lon float64) float64 {
	v := math.Mod(lon+180, 360)
	if v < 0 {
		v += 360
	}
	// Mod can round up to exactly 360 for tiny negative inputs.
	if v >= 360 {
		v -= 360
	}
	return v - 180
}
