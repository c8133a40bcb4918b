// Package cache maps record identifiers to previously generated summaries.
//
// Backends implement Store and report I/O failures as errors. Callers in
// the pipeline go through BestEffort, which turns those failures into
// warnings: a failed read is a miss and a failed write is dropped.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/marker-finder/markersum/pkg/cache/file"
	"github.com/marker-finder/markersum/pkg/cache/sqlite"
	"github.com/marker-finder/markersum/pkg/config"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/models"
)

// Store is a durable identifier → summary map.
type Store interface {
	// Get returns the cached summary for key. A missing entry is
	// ("", false, nil); err is only set for I/O failures.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put writes or overwrites the entry for key.
	Put(ctx context.Context, key, summary string) error
}

// Admin is implemented by backends that can report on and wipe their contents.
type Admin interface {
	Stats(ctx context.Context) (models.CacheStats, error)
	Clear(ctx context.Context) error
}

// Key returns the canonical cache key for an identifier. Identifiers that
// render to the same key share one entry.
func Key(identifier string) string {
	return strings.TrimSpace(identifier)
}

// BestEffort wraps a Store so cache failures never reach the caller.
type BestEffort struct {
	store Store
}

// NewBestEffort wraps s. A nil s yields a cache that always misses.
func NewBestEffort(s Store) *BestEffort {
	return &BestEffort{store: s}
}

// Get returns the summary for identifier, or false on a miss or read failure.
func (b *BestEffort) Get(ctx context.Context, identifier string) (string, bool) {
	if b == nil || b.store == nil {
		return "", false
	}
	key := Key(identifier)
	summary, ok, err := b.store.Get(ctx, key)
	if err != nil {
		logger.Logger.Warnw("Error reading cache", "marker_id", key, "error", err)
		return "", false
	}
	return summary, ok
}

// Put stores summary for identifier, logging and dropping write failures.
func (b *BestEffort) Put(ctx context.Context, identifier, summary string) {
	if b == nil || b.store == nil {
		return
	}
	key := Key(identifier)
	if err := b.store.Put(ctx, key, summary); err != nil {
		logger.Logger.Warnw("Error saving cache", "marker_id", key, "error", err)
	}
}

// Open builds the backend selected by cfg. The returned close func is
// never nil.
func Open(cfg config.CacheConfig) (Store, func() error, error) {
	switch cfg.Backend {
	case config.CacheFile:
		s, err := file.New(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case config.CacheSQLite:
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
