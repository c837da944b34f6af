package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter. Allow reports whether another
// call may proceed within the window; Wait reports how long until the
// window resets when it may not.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// Wait returns the remaining window for key, or zero when none is set.
func (r *RateLimiter) Wait(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, key)
	if err != nil || ttl < 0 {
		return 0, err
	}
	return ttl, nil
}

func ProviderKey(provider string) string {
	return fmt.Sprintf("rate_limit:provider:%s", provider)
}
