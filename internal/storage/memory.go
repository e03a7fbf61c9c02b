package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore implements Store with an in-memory map, suitable for tests and
// for running without a data directory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get returns the value for key, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	copied := make([]byte, len(value))
	copy(copied, value)

	s.mu.Lock()
	s.values[key] = copied
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// Keys returns all keys with the given prefix, sorted.
func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
