package providers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithResilience_RetriesThenSucceeds(t *testing.T) {
	var calls int
	v, err := withResilience(context.Background(), fastBackoff, newBreaker("t"), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 9, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	assert.Equal(t, 3, calls)
}

func TestWithResilience_GivesUp(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	_, err := withResilience(context.Background(), fastBackoff, newBreaker("t"), func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	_, err = withResilience(context.Background(), BackoffConfig{}, newBreaker("t"), func(context.Context) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, errInvalidConfig)
}

func TestWithResilience_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := withResilience(ctx, fastBackoff, newBreaker("t"), func(context.Context) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBasemap_CachesAndServesStale(t *testing.T) {
	var hits atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":8}`))
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	m := NewBasemap(srv.Client(), srv.URL, time.Hour, discard(), WithBackoff(fastBackoff), WithClock(clock))

	s, err := m.Style(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":8}`, string(s.Body))
	assert.Equal(t, "application/json", s.ContentType)
	assert.False(t, s.Stale)

	_, err = m.Style(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	failing.Store(true)
	clock.Advance(2 * time.Hour)
	s, err = m.Style(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Stale)
	assert.JSONEq(t, `{"version":8}`, string(s.Body))
}

func TestBasemap_UpstreamErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := NewBasemap(srv.Client(), srv.URL, time.Hour, discard(), WithBackoff(fastBackoff))
	_, err := m.Style(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, srv.URL, m.URL())

	assert.Equal(t, DefaultBasemapURL, NewBasemap(http.DefaultClient, "", time.Hour, discard()).URL())
}

func TestPlaceResolver(t *testing.T) {
	var calls int
	reverse := func(loc geocoder.Location) ([]geocoder.Address, error) {
		calls++
		if loc.Latitude < -60 {
			return nil, nil
		}
		return []geocoder.Address{{FormattedAddress: "Beijing, China", Country: "China"}}, nil
	}
	r := newPlaceResolver(reverse, fastBackoff, 16, discard())

	p, err := r.Resolve(context.Background(), 40, 116)
	require.NoError(t, err)
	assert.Equal(t, Place{Name: "Beijing, China", Country: "China"}, p)

	_, err = r.Resolve(context.Background(), 40.001, 116.001)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = r.Resolve(context.Background(), -80, 0)
	assert.ErrorIs(t, err, ErrNoPlace)
	_, ok := r.Lookup(context.Background(), -80, 0)
	assert.False(t, ok)
	assert.Equal(t, 2, calls, "cells without a place are cached too")
}

func TestPlaceResolver_GivesUpAfterBudget(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	var calls atomic.Int32
	reverse := func(geocoder.Location) ([]geocoder.Address, error) {
		calls.Add(1)
		<-release
		return nil, nil
	}
	r := newPlaceResolver(reverse, BackoffConfig{InitialInterval: time.Millisecond}, 16, discard())
	r.budget = 20 * time.Millisecond

	start := time.Now()
	_, err := r.Resolve(context.Background(), 10, 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	_, ok := r.Lookup(context.Background(), 10, 10)
	assert.False(t, ok)
	assert.Equal(t, int32(2), calls.Load(), "timeouts are not cached")
}

func TestPlaceResolver_Disabled(t *testing.T) {
	r := NewPlaceResolver("", 16, discard())
	assert.Nil(t, r)
	_, ok := r.Lookup(context.Background(), 0, 0)
	assert.False(t, ok)
}
