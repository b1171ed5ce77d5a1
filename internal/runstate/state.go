// Package runstate holds the state that lives for exactly one pipeline run:
// memoized entities and the set of cache keys already forced.
package runstate

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/nomcom-feedback/internal/store"
)

// State is owned by one run and shared by every stage call within it.
// It is safe for concurrent use.
type State struct {
	ID uuid.UUID

	mu     sync.Mutex
	memo   map[store.Key]any
	forced map[store.Key]struct{}
}

// New creates a State with a fresh run id
func New() *State {
	return &State{
		ID:     uuid.New(),
		memo:   make(map[store.Key]any),
		forced: make(map[store.Key]struct{}),
	}
}

// Memo returns the value memoized for key in this run
func (s *State) Memo(key store.Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.memo[key]
	return v, ok
}

// SetMemo records a value for key
func (s *State) SetMemo(key store.Key, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo[key] = v
}

// MarkForced reports whether a forced recomputation of key should happen now.
// It returns true only the first time it is called for a key in a run.
func (s *State) MarkForced(key store.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.forced[key]; done {
		return false
	}
	s.forced[key] = struct{}{}
	return true
}

// ShouldForce combines a caller's force flag with the once-per-run rule
func (s *State) ShouldForce(key store.Key, force bool) bool {
	return force && s.MarkForced(key)
}

// FlightKey names the in-flight load for key. Forced and unforced loads never
// share a flight, so a forced caller always gets a rebuilt value.
func FlightKey(key store.Key, forced bool) string {
	if forced {
		return key.String() + "#forced"
	}
	return key.String()
}

// Lookup returns the memoized value for key as T
func Lookup[T any](s *State, key store.Key) (T, bool) {
	var zero T
	v, ok := s.Memo(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
