package climate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPalette(t *testing.T, name string) Palette {
	t.Helper()
	p, err := LookupPalette(name)
	require.NoError(t, err)
	return p
}

func TestNewNormalizer_ConstantFieldIsWidened(t *testing.T) {
	values := []float32{7, 7, 7, 7}
	n, err := NewNormalizer(values, mustPalette(t, "turbo"))
	require.NoError(t, err)
	assert.Equal(t, 7.0, n.Low)
	assert.Equal(t, 8.0, n.High)
}

func TestNewNormalizer_IgnoresNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	n, err := NewNormalizer([]float32{nan, 0, inf, 100, nan}, mustPalette(t, "viridis"))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, n.Low, 1e-9)
	assert.InDelta(t, 98.0, n.High, 1e-9)
}

func TestNewNormalizer_EmptyField(t *testing.T) {
	nan := float32(math.NaN())
	_, err := NewNormalizer([]float32{nan, nan}, mustPalette(t, "turbo"))
	assert.ErrorIs(t, err, ErrEmptyField)
}

func TestPercentile_LinearBetweenRanks(t *testing.T) {
	values := []float32{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.08, Percentile(values, 2), 1e-6)
	assert.InDelta(t, 3.0, Percentile(values, 50), 1e-6)
	assert.InDelta(t, 4.92, Percentile(values, 98), 1e-6)
	assert.True(t, math.IsNaN(Percentile(nil, 50)))
}

func TestNormalizer_ClampsToPaletteEnds(t *testing.T) {
	p := mustPalette(t, "inferno")
	n := Normalizer{Low: 0, High: 10, Palette: p}

	r, g, b := n.RGB(-50)
	r0, g0, b0 := n.RGB(0)
	assert.Equal(t, []uint8{r0, g0, b0}, []uint8{r, g, b})

	r, g, b = n.RGB(500)
	r1, g1, b1 := n.RGB(10)
	assert.Equal(t, []uint8{r1, g1, b1}, []uint8{r, g, b})

	// inferno starts at #000004 and ends at #fcffa4.
	assert.InDelta(t, 4, float64(b0), 1)
	assert.Equal(t, uint8(0), r0)
	assert.InDelta(t, 252, float64(r1), 1)
	assert.InDelta(t, 164, float64(b1), 1)
}

func TestNormalizer_ColorCarriesAlpha(t *testing.T) {
	n := Normalizer{Low: 0, High: 1, Palette: mustPalette(t, "plasma")}
	c := n.Color(0.5, 42)
	assert.Equal(t, uint8(42), c.A)
}

func TestChannelTruncates(t *testing.T) {
	assert.Equal(t, uint8(127), channel(0.5))
	assert.Equal(t, uint8(254), channel(0.999))
	assert.Equal(t, uint8(255), channel(1))
	assert.Equal(t, uint8(0), channel(-0.2))
}

func TestLookupPalette(t *testing.T) {
	p, err := LookupPalette("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPalette, p.Name())

	_, err = LookupPalette("rainbow")
	assert.ErrorIs(t, err, ErrUnknownPalette)

	assert.Equal(t, []string{"turbo", "inferno", "plasma", "viridis"}, PaletteNames())
}
