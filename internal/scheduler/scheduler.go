package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/warming-map/internal/climate"
	"github.com/i474232898/warming-map/internal/observability"
)

// Renderer is the part of climate.Loader the warm-up job needs.
type Renderer interface {
	Years(sel climate.Selector) ([]int, error)
	Render(ctx context.Context, sel climate.Selector, year int, palette string, alpha uint8) (climate.Render, error)
}

// Sweeper drops expired sessions.
type Sweeper interface {
	Sweep() int
	Len() int
}

// Scheduler periodically warms the render cache with the latest year of every
// selector and sweeps expired sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	renderer  Renderer
	sessions  Sweeper
	metrics   *observability.Metrics
	logger    *slog.Logger
	interval  time.Duration
	alpha     uint8
	// parallel bounds concurrent selector renders.
	parallel int
}

// New creates a new Scheduler.
func New(renderer Renderer, sessions Sweeper, interval time.Duration, alpha uint8, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		renderer:  renderer,
		sessions:  sessions,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		alpha:     alpha,
		parallel:  4,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		s.Run(ctx)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Run performs one sweep and warm-up pass.
func (s *Scheduler) Run(ctx context.Context) {
	if s.sessions != nil {
		if n := s.sessions.Sweep(); n > 0 {
			s.logger.Info("expired sessions removed", "count", n)
		}
		if s.metrics != nil {
			s.metrics.SessionsActive.Set(float64(s.sessions.Len()))
		}
	}

	start := time.Now()
	warmed := s.Warm(ctx)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.WarmupRuns.Inc()
		s.metrics.WarmupDuration.Observe(elapsed.Seconds())
	}
	s.logger.Info("cache warm-up completed", "selectors", warmed, "duration", elapsed)
}

// Warm renders the latest year of every selector with the default palette and
// returns how many succeeded. Failures are logged and skipped.
func (s *Scheduler) Warm(ctx context.Context) int {
	selectors := climate.Selectors()
	ok := make([]bool, len(selectors))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, sel := range selectors {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			years, err := s.renderer.Years(sel)
			if err != nil || len(years) == 0 {
				s.logger.Warn("warm-up skipped selector", "selector", sel.String(), "error", err)
				return nil
			}
			latest := years[len(years)-1]
			if _, err := s.renderer.Render(ctx, sel, latest, climate.DefaultPalette, s.alpha); err != nil {
				s.logger.Warn("warm-up render failed", "selector", sel.String(), "year", latest, "error", err)
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var n int
	for _, v := range ok {
		if v {
			n++
		}
	}
	return n
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
