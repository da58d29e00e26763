// Package chart draws the colour legend and point trend plots as PNG.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/i474232898/warming-map/internal/climate"
)

// TemperatureLabel is the axis label shared by all temperature charts.
const TemperatureLabel = "Temperature (°C)"

// ErrEmptySeries is returned when a series has no points to plot.
var ErrEmptySeries = errors.New("series has no points")

// Default sizes.
var (
	ColorbarWidth  = 6 * vg.Inch
	ColorbarHeight = 1.2 * vg.Inch
	SeriesWidth    = 8 * vg.Inch
	SeriesHeight   = 4 * vg.Inch
)

// colorMap exposes a climate.Palette over [min, max] as a plot colour map.
type colorMap struct {
	p        climate.Palette
	min, max float64
	alpha    float64
}

// NewColorMap returns a palette.ColorMap that colours values exactly as
// climate.Normalizer does for the same range.
func NewColorMap(p climate.Palette, low, high float64) palette.ColorMap {
	return &colorMap{p: p, min: low, max: high, alpha: 1}
}

func (m *colorMap) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < m.min:
		return nil, palette.ErrUnderflow
	case v > m.max:
		return nil, palette.ErrOverflow
	}
	n := climate.Normalizer{Low: m.min, High: m.max, Palette: m.p}
	return n.Color(v, uint8(m.alpha*255)), nil
}

func (m *colorMap) Max() float64       { return m.max }
func (m *colorMap) SetMax(v float64)   { m.max = v }
func (m *colorMap) Min() float64       { return m.min }
func (m *colorMap) SetMin(v float64)   { m.min = v }
func (m *colorMap) Alpha() float64     { return m.alpha }
func (m *colorMap) SetAlpha(a float64) {
	if a < 0 || a > 1 {
		panic(fmt.Sprintf("chart: alpha %v outside [0, 1]", a))
	}
	m.alpha = a
}

func (m *colorMap) Palette(n int) palette.Palette {
	colors := make(colorList, n)
	for i := range colors {
		v := m.min
		if n > 1 {
			v += (m.max - m.min) * float64(i) / float64(n-1)
		}
		c, _ := m.At(v)
		colors[i] = c
	}
	return colors
}

type colorList []color.Color

func (l colorList) Colors() []color.Color { return l }

// Colorbar writes a horizontal PNG legend of p over [low, high].
func Colorbar(w io.Writer, p climate.Palette, low, high float64) error {
	if !(high > low) {
		return fmt.Errorf("colorbar range [%v, %v] is empty", low, high)
	}
	pl := plot.New()
	pl.HideY()
	pl.X.Label.Text = TemperatureLabel
	pl.Add(&plotter.ColorBar{ColorMap: NewColorMap(p, low, high)})
	return writePNG(w, pl, ColorbarWidth, ColorbarHeight)
}

// Series writes a PNG line plot of the yearly means of s, titled after its
// selector and resolved grid cell.
func Series(w io.Writer, s climate.Series) error {
	if len(s.Points) == 0 {
		return ErrEmptySeries
	}
	xys := make(plotter.XYs, len(s.Points))
	for i, pt := range s.Points {
		xys[i].X = float64(pt.Year)
		xys[i].Y = pt.TempC
	}

	pl := plot.New()
	pl.Title.Text = s.Selector.TrendTitle(s.GridLat, s.GridLon)
	pl.X.Label.Text = "Year"
	pl.Y.Label.Text = TemperatureLabel
	pl.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(1.5)
	pl.Add(line, points)

	return writePNG(w, pl, SeriesWidth, SeriesHeight)
}

func writePNG(w io.Writer, pl *plot.Plot, width, height vg.Length) error {
	c := vgimg.New(width, height)
	pl.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
