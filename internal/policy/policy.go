// Package policy serves the climate commitments text of a fixed set of
// countries.
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/biter777/countries"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var (
	ErrUnknownCountry = errors.New("unknown country")
	ErrMissingPolicy  = errors.New("missing policy file")
)

// Country is one selectable country.
type Country struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Flag string `json:"flag"`
}

var supported = []countries.CountryCode{
	countries.CHN,
	countries.DEU,
	countries.AUS,
	countries.IND,
	countries.CAN,
}

// file and display names; the package's own English names differ for some
// codes.
var displayNames = map[countries.CountryCode]string{
	countries.CHN: "China",
	countries.DEU: "Germany",
	countries.AUS: "Australia",
	countries.IND: "India",
	countries.CAN: "Canada",
}

func newCountry(code countries.CountryCode) Country {
	return Country{Name: displayNames[code], Code: code.Alpha2(), Flag: code.Emoji()}
}

// Countries lists the supported countries in display order.
func Countries() []Country {
	out := make([]Country, 0, len(supported))
	for _, code := range supported {
		out = append(out, newCountry(code))
	}
	return out
}

// Lookup resolves a country by name or ISO code, case-insensitively.
func Lookup(name string) (Country, error) {
	code := countries.ByName(name)
	if _, ok := displayNames[code]; !ok {
		return Country{}, fmt.Errorf("%w: %q", ErrUnknownCountry, name)
	}
	return newCountry(code), nil
}

// Policy is the markdown text for one country.
type Policy struct {
	Country  Country `json:"country"`
	Markdown string  `json:"markdown"`
}

// Library reads policy files named "<Country>.txt" from Dir.
type Library struct {
	Dir string
}

// Policy loads the text for the named country. Files are read as UTF-8 and
// fall back to GBK when they are not valid UTF-8.
func (l Library) Policy(name string) (Policy, error) {
	c, err := Lookup(name)
	if err != nil {
		return Policy{}, err
	}
	file := c.Name + ".txt"
	data, err := os.ReadFile(filepath.Join(l.Dir, file))
	if errors.Is(err, fs.ErrNotExist) {
		return Policy{}, fmt.Errorf("%w: %s", ErrMissingPolicy, file)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("read %s: %w", file, err)
	}
	text, err := decodeText(data)
	if err != nil {
		return Policy{}, fmt.Errorf("decode %s: %w", file, err)
	}
	return Policy{Country: c, Markdown: text}, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
