package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a Redis backend.
type RedisOptions struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// RedisStore reads bundles from Redis. Each bundle is one hash whose fields
// are the secret keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a Redis-backed store from options.
func NewRedisStore(options RedisOptions) (*RedisStore, error) {
	if options.URL == "" {
		return nil, errors.New("url is required")
	}
	opts, err := redis.ParseURL(options.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		prefix: options.Prefix,
	}, nil
}

// Fetch reads the hash behind path.
func (s *RedisStore) Fetch(ctx context.Context, path string) (Bundle, error) {
	key := s.key(path)

	kv, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: reading hash %s: %w", ErrFetchFailed, key, err)
	}
	// HGetAll returns an empty map for absent keys rather than an error.
	if len(kv) == 0 {
		return Bundle{}, fmt.Errorf("%w: no hash at %s", ErrFetchFailed, key)
	}

	return newBundle(path, kv), nil
}

func (s *RedisStore) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}
