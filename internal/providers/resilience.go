// Package providers wraps the external services the dashboard depends on:
// the basemap style host and the reverse geocoder.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is used by providers that are not given one.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("server error")
	ErrUnexpected  = errors.New("unexpected status code")
	ErrCircuitOpen = errors.New("circuit breaker open")

	errInvalidConfig = errors.New("invalid backoff configuration")
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// withResilience runs op through the circuit breaker, retrying failures with
// exponential backoff until MaxRetries is exhausted or ctx ends. An open
// circuit is not retried.
func withResilience[T any](
	ctx context.Context,
	backoff BackoffConfig,
	cb *gobreaker.CircuitBreaker,
	op func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	if backoff.MaxRetries < 0 || backoff.InitialInterval <= 0 {
		return zero, errInvalidConfig
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := cb.Execute(func() (interface{}, error) {
			return op(ctx)
		})
		if err == nil {
			v, ok := result.(T)
			if !ok {
				return zero, fmt.Errorf("unexpected result type %T from circuit breaker", result)
			}
			return v, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		if attempt >= backoff.MaxRetries {
			return zero, err
		}

		delay := backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > backoff.MaxInterval && backoff.MaxInterval > 0 {
			delay = backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// fetch performs a GET through withResilience and returns the body of a 2xx
// response. Rate limiting and 5xx responses count as failures.
func fetch(ctx context.Context, client *http.Client, backoff BackoffConfig, cb *gobreaker.CircuitBreaker, url string) ([]byte, string, error) {
	type page struct {
		body        []byte
		contentType string
	}
	p, err := withResilience(ctx, backoff, cb, func(ctx context.Context) (page, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return page{}, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return page{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return page{}, ErrRateLimited
		case resp.StatusCode >= 500:
			return page{}, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return page{}, fmt.Errorf("%w: %d", ErrUnexpected, resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return page{}, err
		}
		return page{body: body, contentType: resp.Header.Get("Content-Type")}, nil
	})
	return p.body, p.contentType, err
}
