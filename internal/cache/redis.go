package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores items as JSON strings with a TTL (SETEX semantics).
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg config.Cache) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return &RedisCache{rdb: rdb}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get loads and decodes the item at key.
func (c *RedisCache) Get(ctx context.Context, key string) (core.ContentItem, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return core.ContentItem{}, false, nil
	}
	if err != nil {
		return core.ContentItem{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var item core.ContentItem
	if err := json.Unmarshal([]byte(val), &item); err != nil {
		return core.ContentItem{}, false, fmt.Errorf("decode cached item %s: %w", key, err)
	}
	return item, true, nil
}

// Set encodes item and stores it with ttl.
func (c *RedisCache) Set(ctx context.Context, key string, item core.ContentItem, ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
