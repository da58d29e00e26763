package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/warming-map/internal/chart"
	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/providers"
)

type pointQuery struct {
	Selector string  `query:"selector"`
	Lat      float64 `query:"lat" validate:"gte=-90,lte=90"`
	Lon      float64 `query:"lon" validate:"gte=-1000000,lte=1000000"`
	From     int     `query:"from" validate:"omitempty,gte=1900"`
	To       int     `query:"to" validate:"omitempty,gtefield=From"`
}

// pointResponse is a windowed point series with its provenance.
type pointResponse struct {
	climate.Series
	DistanceKm float64          `json:"distance_km"`
	From       int              `json:"from"`
	To         int              `json:"to"`
	FirstYear  int              `json:"first_year,omitempty"`
	LastYear   int              `json:"last_year,omitempty"`
	Place      *providers.Place `json:"place,omitempty"`
	Message    string           `json:"message,omitempty"`
}

func (h *handlers) point(c *fiber.Ctx) error {
	q, err := h.bindPoint(c)
	if err != nil {
		return err
	}
	sel, err := parseSelector(q.Selector)
	if err != nil {
		return badRequest(err)
	}
	resp, err := h.pointSeries(c.UserContext(), sel, climate.Click{Lat: q.Lat, Lon: q.Lon}, q.From, q.To)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// pointFromClick accepts a raw map click payload. A payload without a
// recognisable coordinate yields 204 No Content.
func (h *handlers) pointFromClick(c *fiber.Ctx) error {
	sel, err := parseSelector(c.Query("selector"))
	if err != nil {
		return badRequest(err)
	}
	click, ok := h.parseClick(c.Body())
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	resp, err := h.pointSeries(c.UserContext(), sel, click, 0, 0)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *handlers) pointPlot(c *fiber.Ctx) error {
	q, err := h.bindPoint(c)
	if err != nil {
		return err
	}
	sel, err := parseSelector(q.Selector)
	if err != nil {
		return badRequest(err)
	}
	resp, err := h.pointSeries(c.UserContext(), sel, climate.Click{Lat: q.Lat, Lon: q.Lon}, q.From, q.To)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := chart.Series(&buf, resp.Series); err != nil {
		if errors.Is(err, chart.ErrEmptySeries) {
			return fiber.NewError(fiber.StatusNotFound, resp.Message)
		}
		return h.httpError(err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

func (h *handlers) bindPoint(c *fiber.Ctx) (pointQuery, error) {
	var q pointQuery
	if c.Query("lat") == "" || c.Query("lon") == "" {
		return q, badRequest(errors.New("lat and lon query parameters are required"))
	}
	if err := c.QueryParser(&q); err != nil {
		return q, badRequest(err)
	}
	if err := validate.Struct(q); err != nil {
		return q, badRequest(err)
	}
	return q, nil
}

func (h *handlers) parseClick(body []byte) (climate.Click, bool) {
	click, ok := climate.ParseClickJSON(body)
	if ok {
		h.Metrics.ClicksParsed.WithLabelValues("resolved").Inc()
	} else {
		h.Metrics.ClicksParsed.WithLabelValues("ignored").Inc()
	}
	return click, ok
}

// pointSeries resolves click for sel and restricts the series to [from, to],
// falling back to the configured window for zero bounds. An empty window is
// reported in Message rather than as an error.
func (h *handlers) pointSeries(ctx context.Context, sel climate.Selector, click climate.Click, from, to int) (pointResponse, error) {
	if from == 0 {
		from = h.SeriesFrom
	}
	if to == 0 {
		to = h.SeriesTo
	}

	done := h.Metrics.Time("point")
	s, err := h.Loader.Point(ctx, sel, click.Lat, click.Lon)
	done()
	if err != nil {
		return pointResponse{}, h.computeError("point", err)
	}

	resp := pointResponse{
		Series:     s.Window(from, to),
		DistanceKm: s.DistanceKm(),
		From:       from,
		To:         to,
	}
	if first, last, ok := resp.Series.YearRange(); ok {
		resp.FirstYear, resp.LastYear = first, last
	} else {
		resp.Message = fmt.Sprintf("no data between %d and %d", from, to)
	}
	if place, ok := h.Places.Lookup(ctx, s.GridLat, s.GridLon); ok {
		resp.Place = &place
	}
	return resp, nil
}
