package secrets

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// MemoryOptions seeds an in-memory backend, mainly for tests and dry runs.
type MemoryOptions struct {
	Data map[string]map[string]string `mapstructure:"data"`
}

// MemoryStore keeps bundles in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string]map[string]string
}

// NewMemoryStore builds a memory-backed store seeded from options.
func NewMemoryStore(options MemoryOptions) *MemoryStore {
	bundles := make(map[string]map[string]string, len(options.Data))
	for path, kv := range options.Data {
		bundles[path] = maps.Clone(kv)
	}
	return &MemoryStore{bundles: bundles}
}

// Put stores a bundle under path, replacing any previous one.
func (s *MemoryStore) Put(path string, kv map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[path] = maps.Clone(kv)
}

// Fetch returns the bundle stored under path.
func (s *MemoryStore) Fetch(_ context.Context, path string) (Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kv, ok := s.bundles[path]
	if !ok {
		return Bundle{}, fmt.Errorf("%w: no bundle at %s", ErrFetchFailed, path)
	}
	return newBundle(path, kv), nil
}
