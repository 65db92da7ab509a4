package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/receiptwise/backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace    = "rw"
	rateLimitPrefix = "rate_limit"
)

// Client wraps the redis connection used for request throttling counters.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New bootstraps a redis client and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{raw: raw}, nil
}

// Ping verifies the connection is healthy.
func (c *Client) Ping(ctx context.Context) error {
	return c.raw.Ping(ctx).Err()
}

// Close releases the pooled connections.
func (c *Client) Close() error {
	return c.raw.Close()
}

// IncrWithTTL increments a counter and applies the TTL on the first increment.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.raw.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 && count == 1 {
		if _, expErr := c.raw.Expire(ctx, key, ttl).Result(); expErr != nil {
			return count, expErr
		}
	}
	return count, nil
}

// RateLimitKey returns a namespaced key for rate limit counters.
func (c *Client) RateLimitKey(parts ...string) string {
	return strings.Join(append([]string{keyNamespace, rateLimitPrefix}, parts...), ":")
}
