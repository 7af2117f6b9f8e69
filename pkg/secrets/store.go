package secrets

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/systemstart/shipline/pkg/api"
)

// Store fetches secret bundles from one configured backend.
type Store interface {
	// Fetch retrieves the bundle stored at path. A path with no bundle
	// behind it is an error wrapping ErrFetchFailed, not an empty bundle.
	Fetch(ctx context.Context, path string) (Bundle, error)
}

// Registry maps store names to constructed backends.
type Registry map[string]Store

// NewRegistry constructs a backend for every store in the spec. Construction
// validates options but performs no network calls.
func NewRegistry(ctx context.Context, configs []api.StoreConfig) (Registry, error) {
	registry := make(Registry, len(configs))
	for _, cfg := range configs {
		store, err := newStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("configuring store %q: %w", cfg.Name, err)
		}
		registry[cfg.Name] = store
	}
	return registry, nil
}

func newStore(ctx context.Context, cfg api.StoreConfig) (Store, error) {
	switch cfg.Type {
	case api.StoreTypeSSM:
		var opts SSMOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewSSMStore(ctx, opts)
	case api.StoreTypeRedis:
		var opts RedisOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewRedisStore(opts)
	case api.StoreTypeFile:
		var opts FileOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewFileStore(opts)
	case api.StoreTypeMemory:
		var opts MemoryOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		return NewMemoryStore(opts), nil
	default:
		return nil, fmt.Errorf("store type %q is not supported", cfg.Type)
	}
}

// Get resolves a store by name. Unknown names report the configured set.
func (r Registry) Get(name string) (Store, error) {
	store, ok := r[name]
	if !ok {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: %q (no stores configured)", ErrUnknownStore, name)
		}
		known := slices.Sorted(maps.Keys(r))
		return nil, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownStore, name, strings.Join(known, ", "))
	}
	return store, nil
}

func parseOptions(options map[string]any, target any) error {
	if err := mapstructure.Decode(options, target); err != nil {
		return fmt.Errorf("parsing store options: %w", err)
	}
	return nil
}
