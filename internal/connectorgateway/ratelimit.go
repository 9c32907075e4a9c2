package connectorgateway

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a configuration-driven per-minute ceiling on tool
// calls per binding ("configuration-driven per-minute ceiling; over-limit
// requests return 429"), using a Redis INCR counter over a fixed one-minute
// window that starts at the first call counted for the binding (EXPIRE is
// set when the counter is created).
type RateLimiter struct {
	redis     *redis.Client
	perMinute int
}

// NewRateLimiter builds a RateLimiter allowing perMinute calls per binding
// per one-minute window. perMinute <= 0 disables limiting.
func NewRateLimiter(rdb *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{redis: rdb, perMinute: perMinute}
}

// Allow reports whether another call for bindingID is permitted in the
// current window. Every attempt is counted, including rejected ones.
func (rl *RateLimiter) Allow(ctx context.Context, bindingID string) (bool, error) {
	if rl.perMinute <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("connector_ratelimit:%s", bindingID)

	n, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("recording rate limit attempt: %w", err)
	}
	if n == 1 {
		if err := rl.redis.Expire(ctx, key, time.Minute).Err(); err != nil {
			return false, fmt.Errorf("starting rate limit window: %w", err)
		}
	}

	return n <= int64(rl.perMinute), nil
}
