package climate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSelector is returned when a selector string is neither a month nor "annual".
var ErrInvalidSelector = errors.New("invalid selector")

// Selector is the time-aggregation mode of a field: a calendar month (1-12)
// or the annual mean (0).
type Selector int

// Annual selects the annual-mean file.
const Annual Selector = 0

// Month returns the selector for calendar month m (1-12).
func Month(m int) Selector {
	return Selector(m)
}

// Selectors returns every selector in display order: Annual first, then January..December.
func Selectors() []Selector {
	out := make([]Selector, 0, 13)
	out = append(out, Annual)
	for m := 1; m <= 12; m++ {
		out = append(out, Month(m))
	}
	return out
}

// ParseSelector accepts "annual" (any case), "1".."12" or zero-padded "01".."12".
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "annual") {
		return Annual, nil
	}
	m, err := strconv.Atoi(s)
	if err != nil || m < 1 || m > 12 {
		return Annual, fmt.Errorf("%w: %q", ErrInvalidSelector, s)
	}
	return Month(m), nil
}

// IsAnnual reports whether s selects the annual mean.
func (s Selector) IsAnnual() bool {
	return s == Annual
}

// Valid reports whether s is Annual or a month in 1..12.
func (s Selector) Valid() bool {
	return s >= 0 && s <= 12
}

// String returns the canonical query form: "annual" or a zero-padded month.
func (s Selector) String() string {
	if s.IsAnnual() {
		return "annual"
	}
	return fmt.Sprintf("%02d", int(s))
}

func (s Selector) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSelector, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Selector) UnmarshalText(text []byte) error {
	v, err := ParseSelector(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Label is the human-readable name used in titles.
func (s Selector) Label() string {
	if s.IsAnnual() {
		return "Annual"
	}
	return fmt.Sprintf("Month %02d", int(s))
}

// FieldTitle is the map heading for a selector and year.
func (s Selector) FieldTitle(year int) string {
	if s.IsAnnual() {
		return fmt.Sprintf("%d — Annual Mean Temperature", year)
	}
	return fmt.Sprintf("%d — Month %02d Mean Temperature", year, int(s))
}

// TrendTitle is the heading of a point time-series plot.
func (s Selector) TrendTitle(lat, lon float64) string {
	if s.IsAnnual() {
		return fmt.Sprintf("Annual Mean Temperature Trend @ nearest grid (%.2f, %.2f)", lat, lon)
	}
	return fmt.Sprintf("Month %02d Temperature Trend @ nearest grid (%.2f, %.2f)", int(s), lat, lon)
}
