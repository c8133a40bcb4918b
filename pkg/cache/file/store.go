// Package file stores one plain-text summary file per identifier.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/marker-finder/markersum/pkg/models"
)

const (
	filePrefix = "summary_"
	fileSuffix = ".txt"
)

// Store keeps summaries as <dir>/summary_<key>.txt.
type Store struct {
	dir    string
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates dir if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file that holds key. Bytes that are unsafe in a file
// name are percent-escaped, so keys cannot leave the cache directory.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, filePrefix+url.PathEscape(key)+fileSuffix)
}

// Get reads the entry for key. Empty entries count as misses.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		s.misses.Add(1)
		return "", false, nil
	}
	if err != nil {
		s.misses.Add(1)
		return "", false, fmt.Errorf("read cache entry: %w", err)
	}

	summary := strings.TrimSpace(string(data))
	if summary == "" {
		s.misses.Add(1)
		return "", false, nil
	}
	s.hits.Add(1)
	return summary, true, nil
}

// Put writes the entry through a temp file and a rename, so readers see
// either the old content or the new one.
func (s *Store) Put(_ context.Context, key, summary string) error {
	tmp, err := os.CreateTemp(s.dir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(summary); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Stats counts entry files and their total size.
func (s *Store) Stats(_ context.Context) (models.CacheStats, error) {
	entries, err := s.entries()
	if err != nil {
		return models.CacheStats{}, err
	}

	stats := models.CacheStats{Hits: s.hits.Load(), Misses: s.misses.Load()}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.Bytes += info.Size()
	}
	return stats, nil
}

// Clear removes every entry file. Other files in the directory are left alone.
func (s *Store) Clear(_ context.Context) error {
	entries, err := s.entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cache clear: %w", err)
		}
	}
	return nil
}

func (s *Store) entries() ([]fs.DirEntry, error) {
	all, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	var out []fs.DirEntry
	for _, e := range all {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			out = append(out, e)
		}
	}
	return out, nil
}
