package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prperemyshlev/account-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimitResult is the verdict for a single request against a
// sliding window counter.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the oldest entry leaves the window.
	// Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// RateLimiter implements a sliding window log over a Redis sorted set.
// Each request is a set member scored by its unix timestamp.
type RateLimiter struct {
	redis *database.Redis
}

func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow prunes entries older than the window, counts what remains and
// records the request if the limit has not been reached.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key

	windowStart := strconv.FormatInt(now.Add(-window).Unix(), 10)
	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", windowStart).Err(); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to prune rate limit window: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	if count >= int64(limit) {
		res := RateLimitResult{RetryAfter: window}
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			age := now.Sub(time.Unix(int64(oldest[0].Score), 0))
			if retry := window - age; retry > 0 {
				res.RetryAfter = retry
			}
		}
		return res, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.Unix()),
		Member: member,
	}).Err(); err != nil {
		return RateLimitResult{}, fmt.Errorf("failed to record request: %w", err)
	}

	// Let idle keys expire on their own.
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	remaining := limit - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitResult{Allowed: true, Remaining: remaining}, nil
}
