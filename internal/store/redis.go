package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Redis is a Remote tier storing gob-encoded values with a TTL. Gob keeps
// NaN grid values intact.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Remote under prefix. A non-positive ttl keeps keys
// forever.
func NewRedis[V any](client *redis.Client, prefix string, ttl time.Duration) *Redis[V] {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis[V]) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	var v V
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return zero, false, fmt.Errorf("decode %s: %w", r.key(key), err)
	}
	return v, true, nil
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", r.key(key), err)
	}
	return r.client.Set(ctx, r.key(key), buf.Bytes(), r.ttl).Err()
}
