package climate

import (
	"math"
)

// DefaultAlpha is the fill opacity applied to every cell of a render.
const DefaultAlpha uint8 = 190

// Cell is one renderable grid cell: a quadrilateral traced lower-left,
// lower-right, upper-right, upper-left (closure implicit), its temperature
// and its RGBA fill.
type Cell struct {
	Polygon   [4][2]float64 `json:"polygon"`
	TempC     float64       `json:"temp_c"`
	FillColor [4]uint8      `json:"fill_color"`
}

// Render is the output of BuildCells: the cells in row-major order and the
// colour range used to paint them.
type Render struct {
	Cells   []Cell  `json:"cells"`
	Low     float64 `json:"vmin"`
	High    float64 `json:"vmax"`
	Palette string  `json:"palette"`
	Alpha   uint8   `json:"alpha"`
}

// BuildCells emits one Cell per finite value of f, latitude-major then
// longitude, coloured by the 2nd/98th percentile normalisation of f under p.
// Non-finite values produce no cell.
func BuildCells(f Field, p Palette, alpha uint8) (Render, error) {
	if err := f.Validate(); err != nil {
		return Render{}, err
	}
	norm, err := NewNormalizer(f.Values, p)
	if err != nil {
		return Render{}, err
	}

	latEdges := Edges(f.Lat)
	lonEdges := Edges(f.Lon)

	cells := make([]Cell, 0, len(f.Values))
	for i := range f.Lat {
		lat0, lat1 := latEdges[i], latEdges[i+1]
		for j := range f.Lon {
			v := float64(f.At(i, j))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lon0, lon1 := lonEdges[j], lonEdges[j+1]
			r, g, b := norm.RGB(v)
			cells = append(cells, Cell{
				Polygon: [4][2]float64{
					{lon0, lat0},
					{lon1, lat0},
					{lon1, lat1},
					{lon0, lat1},
				},
				TempC:     v,
				FillColor: [4]uint8{r, g, b, alpha},
			})
		}
	}

	return Render{
		Cells:   cells,
		Low:     norm.Low,
		High:    norm.High,
		Palette: p.Name(),
		Alpha:   alpha,
	}, nil
}

// Values returns the temperatures of the rendered cells in order.
func (r Render) Values() []float64 {
	out := make([]float64, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.TempC
	}
	return out
}
