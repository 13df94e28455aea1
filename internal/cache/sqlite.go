package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dealerstudio/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteCache keeps content items in a local SQLite file. It suits CLI runs
// where no Redis is available and entries should survive between invocations.
type SQLiteCache struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteCache opens (and creates if needed) the cache database at path.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &SQLiteCache{db: db, path: path, now: time.Now}
	if err := c.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) initialize() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS content_cache (
		cache_key TEXT PRIMARY KEY,
		item TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_content_cache_expires ON content_cache(expires_at);`)
	return err
}

// Get returns the item at key if it has not expired.
func (c *SQLiteCache) Get(ctx context.Context, key string) (core.ContentItem, bool, error) {
	var (
		raw       string
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT item, expires_at FROM content_cache WHERE cache_key = ?`, key).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ContentItem{}, false, nil
	}
	if err != nil {
		return core.ContentItem{}, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if c.now().UnixNano() >= expiresAt {
		return core.ContentItem{}, false, nil
	}

	var item core.ContentItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return core.ContentItem{}, false, fmt.Errorf("decode cached item %s: %w", key, err)
	}
	return item, true, nil
}

// Set upserts item with ttl.
func (c *SQLiteCache) Set(ctx context.Context, key string, item core.ContentItem, ttl time.Duration) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", key, err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO content_cache (cache_key, item, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET item = excluded.item, expires_at = excluded.expires_at`,
		key, string(data), c.now().Add(ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Cleanup removes expired entries and reports how many were deleted.
func (c *SQLiteCache) Cleanup(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM content_cache WHERE expires_at <= ?`, c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to clean cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
