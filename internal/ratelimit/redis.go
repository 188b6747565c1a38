// Package ratelimit implements a fixed-window request limiter for the login
// endpoints, backed by Redis so the limit holds across multiple instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per key in fixed windows.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// New constructs a Redis-backed limiter allowing limit requests per window.
func New(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window}
}

// Connect opens a Redis client from a URL and verifies connectivity.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Allow reports whether the request identified by key may proceed, and a
// retry-after hint when it may not. INCR and EXPIRE run in one pipeline so
// concurrent requests cannot leave a counter without an expiry.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	rk := "ratelimit:" + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.ExpireNX(ctx, rk, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() <= int64(l.limit) {
		return true, 0, nil
	}
	ttl, err := l.rdb.TTL(ctx, rk).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}
