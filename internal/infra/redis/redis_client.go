package redis

import (
	"context"
	"time"

	"convmonitor/internal/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient is the thin command surface the rate limiter needs. The
// locker holds the raw client instead; scripted unlock is not worth
// widening this interface for.
type RedisClient interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	PTTL(ctx context.Context, key string) (time.Duration, error)
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Incr(ctx context.Context, key string) (int64, error) {
	return c.cli.Incr(ctx, key).Result()
}

func (c *redClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.cli.Expire(ctx, key, expiration).Err()
}

func (c *redClient) PTTL(ctx context.Context, key string) (time.Duration, error) {
	return c.cli.PTTL(ctx, key).Result()
}

func (c *redClient) Close() error { return c.cli.Close() }
