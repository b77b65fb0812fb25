package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if f.incrErr != nil {
		cmd.SetErr(f.incrErr)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.expires[key] = expiration
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	cmd.SetVal(true)
	return cmd
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	store := newFakeStore()
	limiter := newRedisLimiter(store, "church")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "confirm:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}

	ok, err := limiter.Allow(ctx, "confirm:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, time.Minute, store.expires["church:rate_limit:confirm:1.2.3.4"])
}

func TestRedisLimiterPropagatesErrors(t *testing.T) {
	store := newFakeStore()
	store.incrErr = errors.New("connection refused")
	limiter := newRedisLimiter(store, "")

	ok, err := limiter.Allow(context.Background(), "scope", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rate_limit:a", newRedisLimiter(newFakeStore(), "").Key("a"))
	assert.Equal(t, "p:rate_limit:a", newRedisLimiter(newFakeStore(), ":p:").Key("a"))
}

func TestNoopLimiter(t *testing.T) {
	ok, err := NoopLimiter{}.Allow(context.Background(), "x", 0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
