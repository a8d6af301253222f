package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Allow(ctx, "a@b.io"))
	}
	assert.ErrorIs(t, limiter.Allow(ctx, "a@b.io"), ErrRateLimited)
	assert.NoError(t, limiter.Allow(ctx, "other@b.io"))

	assert.Equal(t, time.Minute, mr.TTL("otp:rate:a@b.io"))
	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, limiter.Allow(ctx, "a@b.io"))
}

func TestRateLimiterWindowStartsOnFirstRequest(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, 5, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Allow(ctx, "a@b.io"))
	assert.Equal(t, time.Minute, mr.TTL("otp:rate:a@b.io"))

	mr.FastForward(40 * time.Second)
	require.NoError(t, limiter.Allow(ctx, "a@b.io"))
	assert.Equal(t, 20*time.Second, mr.TTL("otp:rate:a@b.io"))

	mr.FastForward(21 * time.Second)
	assert.False(t, mr.Exists("otp:rate:a@b.io"))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, 1, time.Minute)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.Allow(context.Background(), "a@b.io"))
	}
}

func TestNilRateLimiterAllows(t *testing.T) {
	var limiter *RateLimiter
	assert.NoError(t, limiter.Allow(context.Background(), "x"))
	assert.NoError(t, NewRateLimiter(nil, 5, time.Minute).Allow(context.Background(), "x"))
}
