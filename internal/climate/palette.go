package climate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is used when a request does not name one.
const DefaultPalette = "turbo"

// ErrUnknownPalette is returned for a palette name that is not registered.
var ErrUnknownPalette = errors.New("unknown palette")

// Palette is a named continuous colour scale sampled at evenly spaced stops
// and linearly interpolated in RGB between them.
type Palette struct {
	name  string
	stops []colorful.Color
}

// Stop positions are implicit: stop k of n sits at k/(n-1).
var paletteHex = map[string][]string{
	"turbo": {
		"#30123b", "#4454c4", "#4490fe", "#1fc8de", "#29efa2", "#7eff55",
		"#c3f134", "#f9ba38", "#fb7e21", "#d23105", "#7a0403",
	},
	"viridis": {
		"#440154", "#482374", "#404387", "#345e8d", "#29788e", "#20908c",
		"#22a784", "#44be70", "#79d151", "#bdde26", "#fde725",
	},
	"plasma": {
		"#0d0887", "#4b03a1", "#7d03a8", "#a82296", "#cb4679", "#e56b5d",
		"#f89441", "#fdc328", "#f0f921",
	},
	"inferno": {
		"#000004", "#280b54", "#65156e", "#9f2a63", "#d44842", "#f57d15",
		"#fac127", "#fcffa4",
	},
}

var palettes = func() map[string]Palette {
	out := make(map[string]Palette, len(paletteHex))
	for name, hexes := range paletteHex {
		stops := make([]colorful.Color, len(hexes))
		for i, h := range hexes {
			c, err := colorful.Hex(h)
			if err != nil {
				panic(fmt.Sprintf("palette %s: %v", name, err))
			}
			stops[i] = c
		}
		out[name] = Palette{name: name, stops: stops}
	}
	return out
}()

// PaletteNames lists the supported palettes, DefaultPalette first.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		if name != DefaultPalette {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{DefaultPalette}, names...)
}

// LookupPalette returns the palette registered under name. An empty name
// yields DefaultPalette.
func LookupPalette(name string) (Palette, error) {
	if name == "" {
		name = DefaultPalette
	}
	p, ok := palettes[name]
	if !ok {
		return Palette{}, fmt.Errorf("%w %q", ErrUnknownPalette, name)
	}
	return p, nil
}

// Name returns the palette name.
func (p Palette) Name() string {
	return p.name
}

// At returns the palette colour at t, with t clamped to [0, 1]. Channels are
// in [0, 1].
func (p Palette) At(t float64) colorful.Color {
	if len(p.stops) == 0 {
		return colorful.Color{}
	}
	if math.IsNaN(t) || t <= 0 {
		return p.stops[0]
	}
	if t >= 1 {
		return p.stops[len(p.stops)-1]
	}

	pos := t * float64(len(p.stops)-1)
	lower := int(pos)
	if lower >= len(p.stops)-1 {
		return p.stops[len(p.stops)-1]
	}
	frac := pos - float64(lower)
	return p.stops[lower].BlendRgb(p.stops[lower+1], frac).Clamped()
}
