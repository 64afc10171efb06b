package numerator

import (
	"context"
	"sync"

	corenumerator "kitanda/internal/core/numerator"
)

// MemoryStore keeps counters in process memory behind a mutex.
// Used by tests and STORAGE=memory dev mode; counters do not survive restarts.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[corenumerator.Key]int64
}

var _ corenumerator.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[corenumerator.Key]int64)}
}

// Next implements corenumerator.Store.
func (s *MemoryStore) Next(ctx context.Context, key corenumerator.Key) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

// Raise implements corenumerator.Store.
func (s *MemoryStore) Raise(ctx context.Context, key corenumerator.Key, value int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if value > s.counters[key] {
		s.counters[key] = value
	}
	return s.counters[key], nil
}

// Current implements corenumerator.Store.
func (s *MemoryStore) Current(_ context.Context, key corenumerator.Key) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}
