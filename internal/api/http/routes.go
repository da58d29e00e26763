package httpapi

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/observability"
	"github.com/i474232898/warming-map/internal/policy"
	"github.com/i474232898/warming-map/internal/providers"
	"github.com/i474232898/warming-map/internal/quiz"
	"github.com/i474232898/warming-map/internal/session"
)

var validate = validator.New()

// Deps are the services the handlers call. Basemap, Places, Metrics and Rand
// may be nil.
type Deps struct {
	Loader   *climate.Loader
	Sessions *session.Manager
	Bank     quiz.Bank
	Policies policy.Library
	Basemap  *providers.Basemap
	Places   *providers.PlaceResolver
	Metrics  *observability.Metrics
	Logger   *slog.Logger

	DefaultAlpha uint8
	// SeriesFrom and SeriesTo bound the years returned for a point.
	SeriesFrom int
	SeriesTo   int

	// Rand draws quiz questions; nil uses the global source.
	Rand *rand.Rand
}

type handlers struct {
	Deps
	rngMu sync.Mutex
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handlers{Deps: deps}

	v1 := app.Group("/api/v1")

	v1.Get("/selectors", h.selectors)
	v1.Get("/years", h.years)
	v1.Get("/field", h.field)
	v1.Get("/field/summary", h.fieldSummary)
	v1.Get("/colorbar.png", h.colorbar)

	v1.Get("/point", h.point)
	v1.Post("/point", h.pointFromClick)
	v1.Get("/point/plot.png", h.pointPlot)

	sessions := v1.Group("/sessions")
	sessions.Post("/", h.createSession)
	sessions.Get("/:id", h.getSession)
	sessions.Post("/:id/click", h.sessionClick)
	sessions.Post("/:id/quiz/start", h.quizStart)
	sessions.Get("/:id/quiz", h.quizState)
	sessions.Post("/:id/quiz/answer", h.quizAnswer)
	sessions.Post("/:id/quiz/next", h.quizNext)
	sessions.Post("/:id/quiz/reset", h.quizReset)

	v1.Get("/countries", h.countries)
	v1.Get("/countries/:name/policy", h.countryPolicy)

	v1.Get("/basemap/style", h.basemapStyle)
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
