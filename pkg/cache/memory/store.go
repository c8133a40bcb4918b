// Package memory is an in-process cache Store, used in tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/marker-finder/markersum/pkg/models"
)

// Store keeps summaries in a map. GetErr and PutErr, when set, are
// returned by every Get and Put to simulate I/O failures.
type Store struct {
	mu      sync.Mutex
	entries map[string]string
	gets    int
	puts    int

	GetErr error
	PutErr error
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]string)}
}

// Get implements cache.Store.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.GetErr != nil {
		return "", false, s.GetErr
	}
	v, ok := s.entries[key]
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// Put implements cache.Store.
func (s *Store) Put(_ context.Context, key, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.PutErr != nil {
		return s.PutErr
	}
	s.entries[key] = summary
	return nil
}

// Stats implements cache.Admin.
func (s *Store) Stats(_ context.Context) (models.CacheStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats models.CacheStats
	for _, v := range s.entries {
		stats.Entries++
		stats.Bytes += int64(len(v))
	}
	return stats, nil
}

// Clear implements cache.Admin.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]string)
	return nil
}

// Entry returns the raw stored value, bypassing error injection.
func (s *Store) Entry(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	return v, ok
}

// Puts reports how many times Put was called.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// Gets reports how many times Get was called.
func (s *Store) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}
