package store

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Remote is an optional shared second cache tier.
type Remote[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
}

// Cache lookup outcomes reported to the observer.
const (
	OutcomeHit       = "hit"
	OutcomeRemoteHit = "remote_hit"
	OutcomeMiss      = "miss"
	OutcomeError     = "error"
)

// Memo memoises computations by key in a bounded LRU, backed optionally by a
// Remote tier. Concurrent calls for one key share a single computation and
// failed computations are never stored.
type Memo[V any] struct {
	name    string
	local   *LRU[V]
	remote  Remote[V]
	group   singleflight.Group
	observe func(cache, outcome string)
	logger  *slog.Logger
}

// MemoOption configures a Memo.
type MemoOption[V any] func(*Memo[V])

// WithRemote adds a shared tier consulted after the local LRU.
func WithRemote[V any](r Remote[V]) MemoOption[V] {
	return func(m *Memo[V]) { m.remote = r }
}

// WithObserver registers a callback for every lookup outcome.
func WithObserver[V any](fn func(cache, outcome string)) MemoOption[V] {
	return func(m *Memo[V]) { m.observe = fn }
}

// WithLogger sets the logger for remote tier failures.
func WithLogger[V any](l *slog.Logger) MemoOption[V] {
	return func(m *Memo[V]) { m.logger = l }
}

// NewMemo creates a Memo named name holding up to size entries locally.
func NewMemo[V any](name string, size int, opts ...MemoOption[V]) *Memo[V] {
	m := &Memo[V]{
		name:    name,
		local:   NewLRU[V](size),
		observe: func(string, string) {},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do returns the cached value for key or computes it with fn. The shared
// computation is detached from the first caller's cancellation.
func (m *Memo[V]) Do(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := m.local.Get(key); ok {
		m.observe(m.name, OutcomeHit)
		return v, nil
	}

	res, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.local.Get(key); ok {
			m.observe(m.name, OutcomeHit)
			return v, nil
		}

		detached := context.WithoutCancel(ctx)
		if m.remote != nil {
			v, ok, err := m.remote.Get(detached, key)
			if err != nil {
				m.logger.Warn("remote cache get failed", "cache", m.name, "key", key, "error", err)
			} else if ok {
				m.local.Put(key, v)
				m.observe(m.name, OutcomeRemoteHit)
				return v, nil
			}
		}

		m.observe(m.name, OutcomeMiss)
		v, err := fn(detached)
		if err != nil {
			m.observe(m.name, OutcomeError)
			return v, err
		}
		m.local.Put(key, v)
		if m.remote != nil {
			if err := m.remote.Set(detached, key, v); err != nil {
				m.logger.Warn("remote cache set failed", "cache", m.name, "key", key, "error", err)
			}
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of locally cached entries.
func (m *Memo[V]) Len() int {
	return m.local.Len()
}
