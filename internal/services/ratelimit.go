package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RateLimiter caps OTP requests per contact with a fixed window counter.
// Redis errors let the request through.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (r *RateLimiter) Allow(ctx context.Context, key string) error {
	if r == nil || r.client == nil || r.limit <= 0 {
		return nil
	}

	redisKey := "otp:rate:" + key
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		logger.WarnContext(ctx, "rate limiter unavailable", "error", err)
		return nil
	}

	count := incr.Val()
	if count > int64(r.limit) {
		return fmt.Errorf("%w: try again later", ErrRateLimited)
	}
	return nil
}
