package chart

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette"

	"github.com/i474232898/warming-map/internal/climate"
)

func turbo(t *testing.T) climate.Palette {
	t.Helper()
	p, err := climate.LookupPalette("turbo")
	require.NoError(t, err)
	return p
}

func TestColorMap_MatchesNormalizer(t *testing.T) {
	p := turbo(t)
	cm := NewColorMap(p, -10, 30)
	n := climate.Normalizer{Low: -10, High: 30, Palette: p}

	for _, v := range []float64{-10, 0, 12.5, 30} {
		got, err := cm.At(v)
		require.NoError(t, err)
		assert.Equal(t, n.Color(v, 255), got)
	}

	_, err := cm.At(-11)
	assert.ErrorIs(t, err, palette.ErrUnderflow)
	_, err = cm.At(31)
	assert.ErrorIs(t, err, palette.ErrOverflow)
	_, err = cm.At(math.NaN())
	assert.ErrorIs(t, err, palette.ErrNaN)

	cm.SetAlpha(0.5)
	c, err := cm.At(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(127), c.(color.NRGBA).A)
	assert.Panics(t, func() { cm.SetAlpha(2) })

	colors := cm.Palette(5).Colors()
	require.Len(t, colors, 5)
	first, _ := cm.At(-10)
	assert.Equal(t, first, colors[0])
}

func TestColorbar_WritesPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Colorbar(&buf, turbo(t), -20, 35))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())

	assert.Error(t, Colorbar(&buf, turbo(t), 5, 5))
}

func TestSeries_WritesPNG(t *testing.T) {
	s := climate.Series{
		Selector: climate.Month(7),
		GridLat:  40,
		GridLon:  116,
		Points: []climate.YearValue{
			{Year: 1940, TempC: 24.1},
			{Year: 1941, TempC: 24.5},
			{Year: 1942, TempC: 23.9},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Series(&buf, s))

	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, 0)

	s.Points = nil
	assert.ErrorIs(t, Series(&buf, s), ErrEmptySeries)
}
