// Package ratelimit implements fixed-window request limits backed by Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more hit for scope fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, error)
}

type cmdable interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

type RedisLimiter struct {
	store  cmdable
	prefix string
}

func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return newRedisLimiter(client, prefix)
}

func newRedisLimiter(store cmdable, prefix string) *RedisLimiter {
	return &RedisLimiter{store: store, prefix: strings.Trim(prefix, ":")}
}

// Allow increments the window counter and sets its TTL on the first hit.
func (l *RedisLimiter) Allow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, error) {
	if l == nil || l.store == nil {
		return false, errors.New("redis limiter not initialized")
	}
	key := l.Key(scope)
	count, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", key, err)
	}
	if window > 0 && count == 1 {
		if err := l.store.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count <= limit, nil
}

func (l *RedisLimiter) Key(scope string) string {
	parts := []string{"rate_limit", scope}
	if l.prefix != "" {
		parts = append([]string{l.prefix}, parts...)
	}
	return strings.Join(parts, ":")
}

// NoopLimiter allows everything; used when Redis is disabled.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string, int64, time.Duration) (bool, error) {
	return true, nil
}
