package cache

import (
	"context"
	"sync"
	"time"

	"dealerstudio/internal/core"
)

type memoryEntry struct {
	item      core.ContentItem
	expiresAt time.Time
}

// MemoryCache is an in-process cache for single instance deployments and tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty cache. A nil now uses time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{entries: make(map[string]memoryEntry), now: now}
}

// Get returns the item if present and not expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (core.ContentItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return core.ContentItem{}, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return core.ContentItem{}, false, nil
	}
	return e.item, true, nil
}

// Set stores item for ttl.
func (c *MemoryCache) Set(ctx context.Context, key string, item core.ContentItem, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{item: item, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close drops all entries.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}
