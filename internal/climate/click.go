package climate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Click is a map coordinate picked by the user.
type Click struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseClick extracts a coordinate from a loosely shaped map event. Shapes are
// tried in order:
//
//	{"coordinate": [lon, lat, ...]}
//	{"lngLat": [lon, lat]} or {"lnglat": [lon, lat]}
//	{"lat": ..., "lon": ...}
//	{"latitude": ..., "longitude": ...}
//
// ok is false when no shape matches; an unrecognised payload means "no click
// yet", not an error.
func ParseClick(event map[string]any) (Click, bool) {
	if event == nil {
		return Click{}, false
	}

	if c, ok := pairLonLat(event["coordinate"]); ok {
		return c, true
	}
	for _, key := range []string{"lngLat", "lnglat"} {
		if c, ok := pairLonLat(event[key]); ok {
			return c, true
		}
	}
	if c, ok := fieldsLatLon(event, "lat", "lon"); ok {
		return c, true
	}
	if c, ok := fieldsLatLon(event, "latitude", "longitude"); ok {
		return c, true
	}
	return Click{}, false
}

// ParseClickJSON decodes raw JSON and applies ParseClick. Invalid JSON or a
// non-object payload is treated as no click.
func ParseClickJSON(data []byte) (Click, bool) {
	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		return Click{}, false
	}
	return ParseClick(event)
}

func pairLonLat(v any) (Click, bool) {
	list, ok := v.([]any)
	if !ok || len(list) < 2 {
		return Click{}, false
	}
	lon, ok := toFloat(list[0])
	if !ok {
		return Click{}, false
	}
	lat, ok := toFloat(list[1])
	if !ok {
		return Click{}, false
	}
	return Click{Lat: lat, Lon: lon}, true
}

func fieldsLatLon(event map[string]any, latKey, lonKey string) (Click, bool) {
	rawLat, hasLat := event[latKey]
	rawLon, hasLon := event[lonKey]
	if !hasLat || !hasLon {
		return Click{}, false
	}
	lat, ok := toFloat(rawLat)
	if !ok {
		return Click{}, false
	}
	lon, ok := toFloat(rawLon)
	if !ok {
		return Click{}, false
	}
	return Click{Lat: lat, Lon: lon}, true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
