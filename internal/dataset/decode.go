package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// ErrUnsupportedType is returned for variable element types that cannot be
// read as numbers.
var ErrUnsupportedType = errors.New("unsupported variable type")

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func widen2[T number](in [][]T) []float64 {
	var out []float64
	for _, row := range in {
		for _, v := range row {
			out = append(out, float64(v))
		}
	}
	return out
}

func widen3[T number](in [][][]T) []float64 {
	var out []float64
	for _, plane := range in {
		for _, row := range plane {
			for _, v := range row {
				out = append(out, float64(v))
			}
		}
	}
	return out
}

// toFloat64s converts a 1-D value slice as returned by the decoder.
func toFloat64s(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case []float64:
		return append([]float64(nil), v...), nil
	case []float32:
		return widen(v), nil
	case []int64:
		return widen(v), nil
	case []int32:
		return widen(v), nil
	case []int16:
		return widen(v), nil
	case []int8:
		return widen(v), nil
	case []uint64:
		return widen(v), nil
	case []uint32:
		return widen(v), nil
	case []uint16:
		return widen(v), nil
	case []uint8:
		return widen(v), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, raw)
}

// flatten converts a 1-, 2- or 3-D value slice to a row-major vector.
func flatten(raw any) ([]float64, error) {
	switch v := raw.(type) {
	case [][][]float32:
		return widen3(v), nil
	case [][][]float64:
		return widen3(v), nil
	case [][][]int16:
		return widen3(v), nil
	case [][][]int32:
		return widen3(v), nil
	case [][][]int64:
		return widen3(v), nil
	case [][][]int8:
		return widen3(v), nil
	case [][]float32:
		return widen2(v), nil
	case [][]float64:
		return widen2(v), nil
	case [][]int16:
		return widen2(v), nil
	case [][]int32:
		return widen2(v), nil
	case [][]int64:
		return widen2(v), nil
	}
	return toFloat64s(raw)
}

// numberAttr reads a numeric attribute stored either as a scalar or as a
// one-element vector.
func numberAttr(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	return scalar(raw)
}

func scalar(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	values, err := toFloat64s(raw)
	if err != nil || len(values) == 0 || math.IsNaN(values[0]) {
		return 0, false
	}
	return values[0], true
}

func stringAttr(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	raw, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

var referenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
}

// DecodeTimes converts CF offsets ("<unit> since <reference>") to UTC
// timestamps. An empty units string is read as seconds since the Unix epoch.
func DecodeTimes(offsets []float64, units string) ([]time.Time, error) {
	step, ref, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(offsets))
	for i, off := range offsets {
		if math.IsNaN(off) || math.IsInf(off, 0) {
			return nil, fmt.Errorf("time offset %d is not finite", i)
		}
		secs := off * step.Seconds()
		whole := math.Floor(secs)
		nanos := int64(math.Round((secs - whole) * 1e9))
		out[i] = time.Unix(ref.Unix()+int64(whole), nanos).UTC()
	}
	return out, nil
}

func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	units = strings.TrimSpace(units)
	if units == "" {
		return time.Second, time.Unix(0, 0).UTC(), nil
	}
	unit, since, ok := strings.Cut(units, " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("time units %q: expected \"<unit> since <date>\"", units)
	}

	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("time units %q: unsupported unit %q", units, unit)
	}

	since = strings.TrimSpace(since)
	since = strings.TrimSuffix(since, " UTC")
	since = strings.TrimSuffix(since, "Z")
	for _, layout := range referenceLayouts {
		if ref, err := time.ParseInLocation(layout, since, time.UTC); err == nil {
			return step, ref, nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("time units %q: unparseable reference date", units)
}
