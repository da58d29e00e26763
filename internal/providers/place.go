package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"

	"github.com/i474232898/warming-map/internal/store"
)

// ErrNoPlace is returned when the geocoder knows nothing about a point,
// typically over the ocean.
var ErrNoPlace = errors.New("no place found")

// Place is the human-readable location of a grid cell.
type Place struct {
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// placeBudget bounds one Resolve call, retries included.
const placeBudget = 2 * time.Second

// placeBackoff keeps geocoding retries inside placeBudget.
var placeBackoff = BackoffConfig{
	MaxRetries:      1,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     200 * time.Millisecond,
}

// reverseFunc matches geocoder.GeocodingReverse.
type reverseFunc func(geocoder.Location) ([]geocoder.Address, error)

// PlaceResolver reverse-geocodes grid cells through the Google Geocoding API.
// Results are cached per cell, including cells with no place.
type PlaceResolver struct {
	reverse reverseFunc
	backoff BackoffConfig
	budget  time.Duration
	circuit *gobreaker.CircuitBreaker
	cache   *store.LRU[Place]
	logger  *slog.Logger
}

// NewPlaceResolver configures the geocoder with apiKey. It returns nil when
// apiKey is empty; a nil resolver resolves nothing.
func NewPlaceResolver(apiKey string, cacheSize int, logger *slog.Logger) *PlaceResolver {
	if apiKey == "" {
		return nil
	}
	geocoder.ApiKey = apiKey
	return newPlaceResolver(geocoder.GeocodingReverse, placeBackoff, cacheSize, logger)
}

func newPlaceResolver(reverse reverseFunc, backoff BackoffConfig, cacheSize int, logger *slog.Logger) *PlaceResolver {
	return &PlaceResolver{
		reverse: reverse,
		backoff: backoff,
		budget:  placeBudget,
		circuit: newBreaker("geocoder"),
		cache:   store.NewLRU[Place](cacheSize),
		logger:  logger,
	}
}

// Resolve names the place at (lat, lon). It gives up once the lookup budget
// or ctx runs out.
func (r *PlaceResolver) Resolve(ctx context.Context, lat, lon float64) (Place, error) {
	if r == nil {
		return Place{}, ErrNoPlace
	}
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	if p, ok := r.cache.Get(key); ok {
		if p.Name == "" {
			return Place{}, ErrNoPlace
		}
		return p, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()
	p, err := withResilience(ctx, r.backoff, r.circuit, func(ctx context.Context) (Place, error) {
		return r.reverseOnce(ctx, lat, lon)
	})
	if err != nil {
		return Place{}, err
	}
	r.cache.Put(key, p)
	if p.Name == "" {
		return Place{}, ErrNoPlace
	}
	return p, nil
}

// reverseOnce runs one geocoder request. The geocoder takes no context, so
// the request is abandoned rather than cancelled when ctx ends.
func (r *PlaceResolver) reverseOnce(ctx context.Context, lat, lon float64) (Place, error) {
	type result struct {
		addresses []geocoder.Address
		err       error
	}
	done := make(chan result, 1)
	go func() {
		addresses, err := r.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		done <- result{addresses, err}
	}()

	select {
	case <-ctx.Done():
		return Place{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return Place{}, res.err
		}
		for _, a := range res.addresses {
			if name := strings.TrimSpace(a.FormattedAddress); name != "" {
				return Place{Name: name, Country: a.Country}, nil
			}
		}
		return Place{}, nil
	}
}

// Lookup is Resolve for callers that treat geocoding as optional: failures
// are logged and reported as ok=false.
func (r *PlaceResolver) Lookup(ctx context.Context, lat, lon float64) (Place, bool) {
	if r == nil {
		return Place{}, false
	}
	p, err := r.Resolve(ctx, lat, lon)
	if err != nil {
		if !errors.Is(err, ErrNoPlace) {
			r.logger.Warn("reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		}
		return Place{}, false
	}
	return p, true
}
