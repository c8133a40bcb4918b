package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marker-finder/markersum/pkg/models"
)

// Cache is a summary cache backed by SQLite, one row per identifier.
type Cache struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS summary_cache (
	marker_id TEXT PRIMARY KEY,
	summary TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New opens (or creates) the cache database at dbPath.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get retrieves a cached summary. A missing or empty row is a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var summary string
	err := c.db.QueryRowContext(ctx,
		`SELECT summary FROM summary_cache WHERE marker_id = ?`, key,
	).Scan(&summary)

	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		c.misses.Add(1)
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	if summary == "" {
		c.misses.Add(1)
		return "", false, nil
	}

	c.hits.Add(1)
	return summary, true, nil
}

// Put stores or replaces the summary for key.
func (c *Cache) Put(ctx context.Context, key, summary string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO summary_cache (marker_id, summary, updated_at) VALUES (?, ?, ?)`,
		key, summary, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Stats returns entry counts and this process's hit/miss counters.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var count, size int64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(CAST(summary AS BLOB))), 0) FROM summary_cache`,
	).Scan(&count, &size)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Bytes:   size,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes all cache entries.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM summary_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
