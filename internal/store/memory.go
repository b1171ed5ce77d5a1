package store

import (
	"context"
	"sync"
)

// MemoryStore keeps artifacts in process memory. It is not durable and exists
// for tests and dry runs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[Key][]byte
	puts  map[Key]int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[Key][]byte),
		puts:  make(map[Key]int),
	}
}

// Get returns a copy of the stored bytes
func (s *MemoryStore) Get(_ context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[key]
	if !ok {
		return nil, &OpError{Op: "get", Key: key, Cause: ErrNotFound}
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data
func (s *MemoryStore) Put(_ context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), data...)
	s.puts[key]++
	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// Has reports whether an artifact is stored for key
func (s *MemoryStore) Has(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[key]
	return ok
}

// Puts returns how many times key has been written
func (s *MemoryStore) Puts(key Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts[key]
}
