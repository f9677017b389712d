package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces summary keys.
const RedisKeyPrefix = "newsbrief:summary:"

// RedisCache is a SummaryCache on Redis. Expiry is left to Redis TTLs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to url, which may be a redis:// URL or a host:port address.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	if url == "" {
		return nil, fmt.Errorf("redis cache requires a URL")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get implements SummaryCache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, RedisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read summary: %w", err)
	}
	return v, true, nil
}

// Set implements SummaryCache.
func (c *RedisCache) Set(ctx context.Context, key, summary string) error {
	if err := c.client.Set(ctx, RedisKeyPrefix+key, summary, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

// Delete removes a key. Used by tests and cache maintenance.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, RedisKeyPrefix+key).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
