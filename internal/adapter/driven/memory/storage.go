// Package memory implements the Storage port in process memory. Values live
// only as long as the process and are used when no persistent store is
// configured or reachable.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
)

// Ensure interfaces are met.
var _ driven.Storage = (*Storage)(nil)

// Storage is a mutex-guarded map.
type Storage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewStorage creates an empty in-memory Storage.
func NewStorage() *Storage {
	return &Storage{values: make(map[string]string)}
}

// Load returns the values present for keys.
func (s *Storage) Load(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Save stores every entry under a single lock.
func (s *Storage) Save(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	maps.Copy(s.values, entries)
	return nil
}

// Remove deletes keys under a single lock.
func (s *Storage) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
