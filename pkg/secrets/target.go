package secrets

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Ref names a destination secret.
type Ref struct {
	Namespace string
	Name      string
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Namespace, r.Name)
}

// Target is a destination that holds materialized secrets.
type Target interface {
	// Exists reports whether the destination secret is present.
	Exists(ctx context.Context, ref Ref) (bool, error)
	// Create materializes the bundle as a new secret.
	Create(ctx context.Context, ref Ref, bundle Bundle) error
	// Replace swaps the secret's entire key set for the bundle's. Keys
	// absent from the bundle are removed from the destination.
	Replace(ctx context.Context, ref Ref, bundle Bundle) error
}

// MemoryTarget keeps materialized secrets in process memory and counts
// operations, mainly for tests and dry runs.
type MemoryTarget struct {
	mu       sync.Mutex
	secrets  map[string]map[string][]byte
	Creates  int
	Replaces int
}

// NewMemoryTarget returns an empty in-memory target.
func NewMemoryTarget() *MemoryTarget {
	return &MemoryTarget{secrets: make(map[string]map[string][]byte)}
}

func (t *MemoryTarget) Exists(_ context.Context, ref Ref) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.secrets[ref.String()]
	return ok, nil
}

func (t *MemoryTarget) Create(_ context.Context, ref Ref, bundle Bundle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.secrets[ref.String()]; ok {
		return fmt.Errorf("secret %s already exists", ref)
	}
	t.secrets[ref.String()] = cloneKeys(bundle.Keys)
	t.Creates++
	return nil
}

func (t *MemoryTarget) Replace(_ context.Context, ref Ref, bundle Bundle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.secrets[ref.String()]; !ok {
		return fmt.Errorf("secret %s does not exist", ref)
	}
	t.secrets[ref.String()] = cloneKeys(bundle.Keys)
	t.Replaces++
	return nil
}

// Keys returns the sorted key names currently held for ref.
func (t *MemoryTarget) Keys(ref Ref) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Sorted(maps.Keys(t.secrets[ref.String()]))
}

func cloneKeys(keys map[string][]byte) map[string][]byte {
	cloned := make(map[string][]byte, len(keys))
	for k, v := range keys {
		cloned[k] = slices.Clone(v)
	}
	return cloned
}
