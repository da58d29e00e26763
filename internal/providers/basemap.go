package providers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
)

// DefaultBasemapURL is the Carto Positron vector style.
const DefaultBasemapURL = "https://basemaps.cartocdn.com/gl/positron-gl-style/style.json"

// Style is a fetched basemap style document.
type Style struct {
	Body        []byte
	ContentType string
	FetchedAt   time.Time
	Stale       bool
}

// Basemap proxies the map style document and caches it for a TTL. When a
// refresh fails the last good copy is served and marked stale.
type Basemap struct {
	url     string
	ttl     time.Duration
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	logger  *slog.Logger

	mu     sync.Mutex
	cached *Style
}

// BasemapOption configures a Basemap.
type BasemapOption func(*Basemap)

// WithBackoff overrides DefaultBackoff.
func WithBackoff(b BackoffConfig) BasemapOption {
	return func(m *Basemap) { m.backoff = b }
}

// WithClock sets the clock used for TTL checks.
func WithClock(c clockwork.Clock) BasemapOption {
	return func(m *Basemap) { m.clock = c }
}

// NewBasemap creates a proxy for url. An empty url selects DefaultBasemapURL.
func NewBasemap(client *http.Client, url string, ttl time.Duration, logger *slog.Logger, opts ...BasemapOption) *Basemap {
	if url == "" {
		url = DefaultBasemapURL
	}
	m := &Basemap{
		url:     url,
		ttl:     ttl,
		client:  client,
		backoff: DefaultBackoff,
		circuit: newBreaker("basemap"),
		clock:   clockwork.NewRealClock(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// URL returns the upstream style address.
func (m *Basemap) URL() string {
	return m.url
}

// Style returns the cached style or fetches a fresh one.
func (m *Basemap) Style(ctx context.Context) (Style, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.clock.Since(m.cached.FetchedAt) < m.ttl {
		return *m.cached, nil
	}

	body, contentType, err := fetch(ctx, m.client, m.backoff, m.circuit, m.url)
	if err != nil {
		if m.cached != nil {
			m.logger.Warn("basemap refresh failed, serving stale style", "url", m.url, "error", err)
			stale := *m.cached
			stale.Stale = true
			return stale, nil
		}
		return Style{}, err
	}
	if contentType == "" {
		contentType = "application/json"
	}
	m.cached = &Style{Body: body, ContentType: contentType, FetchedAt: m.clock.Now()}
	return *m.cached, nil
}
