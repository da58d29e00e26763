package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/warming-map/internal/chart"
	"github.com/i474232898/warming-map/internal/climate"
)

// fieldQuery selects one rendered map. Year 0 means the latest year on file
// and Alpha -1 means the configured default.
type fieldQuery struct {
	Selector string `query:"selector"`
	Year     int    `query:"year" validate:"omitempty,gte=1900,lte=2200"`
	Palette  string `query:"palette"`
	Alpha    int    `query:"alpha" validate:"gte=-1,lte=255"`
	Format   string `query:"format" validate:"omitempty,oneof=json geojson"`
}

type selectorOption struct {
	Value climate.Selector `json:"value"`
	Label string           `json:"label"`
}

type fieldResponse struct {
	Selector climate.Selector `json:"selector"`
	Year     int              `json:"year"`
	Title    string           `json:"title"`
	climate.Render
}

type summaryResponse struct {
	Selector climate.Selector `json:"selector"`
	Year     int              `json:"year"`
	Title    string           `json:"title"`
	Low      float64          `json:"vmin"`
	High     float64          `json:"vmax"`
	climate.Summary
}

// selectors lists what the map can show.
func (h *handlers) selectors(c *fiber.Ctx) error {
	sels := climate.Selectors()
	opts := make([]selectorOption, len(sels))
	for i, s := range sels {
		opts[i] = selectorOption{Value: s, Label: s.Label()}
	}
	return c.JSON(fiber.Map{
		"selectors":       opts,
		"palettes":        climate.PaletteNames(),
		"default_palette": climate.DefaultPalette,
		"default_alpha":   h.DefaultAlpha,
		"series_from":     h.SeriesFrom,
		"series_to":       h.SeriesTo,
	})
}

func (h *handlers) years(c *fiber.Ctx) error {
	sel, err := parseSelector(c.Query("selector"))
	if err != nil {
		return badRequest(err)
	}
	years, err := h.Loader.Years(sel)
	if err != nil {
		return h.httpError(err)
	}
	if len(years) == 0 {
		return h.httpError(fmt.Errorf("%w for selector %s", climate.ErrNoData, sel))
	}
	return c.JSON(fiber.Map{
		"selector": sel,
		"years":    years,
		"min":      years[0],
		"max":      years[len(years)-1],
	})
}

func (h *handlers) field(c *fiber.Ctx) error {
	q, err := h.bindField(c)
	if err != nil {
		return err
	}
	resp, err := h.render(c.UserContext(), q)
	if err != nil {
		return err
	}

	if q.Format == "geojson" {
		data, err := resp.FeatureCollection().MarshalJSON()
		if err != nil {
			return h.httpError(err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
	return c.JSON(resp)
}

// fieldSummary reports distribution statistics of the rendered cells.
func (h *handlers) fieldSummary(c *fiber.Ctx) error {
	q, err := h.bindField(c)
	if err != nil {
		return err
	}
	resp, err := h.render(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(summaryResponse{
		Selector: resp.Selector,
		Year:     resp.Year,
		Title:    resp.Title,
		Low:      resp.Low,
		High:     resp.High,
		Summary:  climate.Summarize(resp.Render),
	})
}

// colorbar draws the legend for an explicit low/high range or, when either is
// missing, for the range of the selected field.
func (h *handlers) colorbar(c *fiber.Ctx) error {
	q, err := h.bindField(c)
	if err != nil {
		return err
	}
	p, err := climate.LookupPalette(orDefault(q.Palette, climate.DefaultPalette))
	if err != nil {
		return badRequest(err)
	}

	var low, high float64
	if c.Query("low") != "" && c.Query("high") != "" {
		if low, err = strconv.ParseFloat(c.Query("low"), 64); err != nil {
			return badRequest(errors.New("low must be a number"))
		}
		if high, err = strconv.ParseFloat(c.Query("high"), 64); err != nil {
			return badRequest(errors.New("high must be a number"))
		}
	} else {
		resp, err := h.render(c.UserContext(), q)
		if err != nil {
			return err
		}
		low, high = resp.Low, resp.High
	}

	var buf bytes.Buffer
	if err := chart.Colorbar(&buf, p, low, high); err != nil {
		return badRequest(err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

func (h *handlers) bindField(c *fiber.Ctx) (fieldQuery, error) {
	q := fieldQuery{Alpha: -1}
	if err := c.QueryParser(&q); err != nil {
		return q, badRequest(err)
	}
	if err := validate.Struct(q); err != nil {
		return q, badRequest(err)
	}
	return q, nil
}

func (h *handlers) render(ctx context.Context, q fieldQuery) (fieldResponse, error) {
	sel, err := parseSelector(q.Selector)
	if err != nil {
		return fieldResponse{}, badRequest(err)
	}
	alpha := h.DefaultAlpha
	if q.Alpha >= 0 {
		alpha = uint8(q.Alpha)
	}

	done := h.Metrics.Time("render")
	defer done()

	year := q.Year
	if year == 0 {
		if year, err = h.latestYear(sel); err != nil {
			return fieldResponse{}, h.computeError("render", err)
		}
	}
	r, err := h.Loader.Render(ctx, sel, year, orDefault(q.Palette, climate.DefaultPalette), alpha)
	if err != nil {
		return fieldResponse{}, h.computeError("render", err)
	}
	return fieldResponse{Selector: sel, Year: year, Title: sel.FieldTitle(year), Render: r}, nil
}

func (h *handlers) latestYear(sel climate.Selector) (int, error) {
	years, err := h.Loader.Years(sel)
	if err != nil {
		return 0, err
	}
	if len(years) == 0 {
		return 0, fmt.Errorf("%w for selector %s", climate.ErrNoData, sel)
	}
	return years[len(years)-1], nil
}

// parseSelector defaults an empty value to the annual mean.
func parseSelector(s string) (climate.Selector, error) {
	if s == "" {
		return climate.Annual, nil
	}
	return climate.ParseSelector(s)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
