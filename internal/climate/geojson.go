package climate

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders the cells as GeoJSON polygons. GeoJSON requires
// closed rings, so the first corner is repeated at the end of each ring.
func (r Render) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range r.Cells {
		ring := make(orb.Ring, 0, 5)
		for _, p := range c.Polygon {
			ring = append(ring, orb.Point{p[0], p[1]})
		}
		ring = append(ring, ring[0])

		feature := geojson.NewFeature(orb.Polygon{ring})
		feature.Properties["temp_c"] = c.TempC
		feature.Properties["fill_color"] = []int{
			int(c.FillColor[0]), int(c.FillColor[1]), int(c.FillColor[2]), int(c.FillColor[3]),
		}
		fc.Append(feature)
	}
	return fc
}
