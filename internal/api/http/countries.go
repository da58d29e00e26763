package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/warming-map/internal/policy"
)

func (h *handlers) countries(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"countries": policy.Countries()})
}

func (h *handlers) countryPolicy(c *fiber.Ctx) error {
	p, err := h.Policies.Policy(c.Params("name"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(p)
}

// basemapStyle proxies the map style document. A copy served after a failed
// refresh carries X-Basemap-Stale: true.
func (h *handlers) basemapStyle(c *fiber.Ctx) error {
	if h.Basemap == nil {
		return fiber.NewError(fiber.StatusNotFound, "basemap proxy disabled")
	}
	s, err := h.Basemap.Style(c.UserContext())
	if err != nil {
		return h.httpError(err)
	}
	if s.Stale {
		c.Set("X-Basemap-Stale", "true")
	}
	c.Set(fiber.HeaderContentType, s.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=300")
	return c.Send(s.Body)
}
