// Package cache stores generated content items for a short time so repeated
// runs for the same dealer, car and platform reuse them.
package cache

import (
	"context"
	"fmt"
	"time"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"
)

// ContentCache is the get/setex contract the pipeline relies on. Get returns
// found=false on a miss; errors are reserved for backend failures.
type ContentCache interface {
	Get(ctx context.Context, key string) (core.ContentItem, bool, error)
	Set(ctx context.Context, key string, item core.ContentItem, ttl time.Duration) error
	Close() error
}

// Key builds the namespaced cache key content:{dealerId}:{carId}:{platform}.
func Key(dealerID, carID string, platform core.Platform) string {
	return fmt.Sprintf("content:%s:%s:%s", dealerID, carID, platform)
}

// New builds the cache selected by cfg. A disabled cache is a Noop.
func New(ctx context.Context, cfg config.Cache) (ContentCache, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	switch cfg.Driver {
	case "redis":
		return NewRedisCache(ctx, cfg)
	case "sqlite":
		return NewSQLiteCache(cfg.SQLitePath)
	case "memory", "":
		return NewMemoryCache(nil), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// Noop never stores anything.
type Noop struct{}

// Get always misses.
func (Noop) Get(ctx context.Context, key string) (core.ContentItem, bool, error) {
	return core.ContentItem{}, false, nil
}

// Set discards the item.
func (Noop) Set(ctx context.Context, key string, item core.ContentItem, ttl time.Duration) error {
	return nil
}

// Close does nothing.
func (Noop) Close() error { return nil }
