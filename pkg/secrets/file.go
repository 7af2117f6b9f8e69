package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileOptions configures a local-file backend, mainly for development
// environments without reachable stores.
type FileOptions struct {
	Root string `mapstructure:"root"`
}

// FileStore reads bundles from YAML files under a root directory. The bundle
// at path p lives in <root>/<p>.yaml as a flat string-to-string mapping.
type FileStore struct {
	root string
}

// NewFileStore builds a file-backed store from options.
func NewFileStore(options FileOptions) (*FileStore, error) {
	if options.Root == "" {
		return nil, errors.New("root is required")
	}
	return &FileStore{root: options.Root}, nil
}

// Fetch reads the bundle file behind path.
func (s *FileStore) Fetch(_ context.Context, path string) (Bundle, error) {
	rel := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return Bundle{}, fmt.Errorf("%w: path %q escapes store root", ErrFetchFailed, path)
	}

	full := filepath.Join(s.root, rel+".yaml")
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Bundle{}, fmt.Errorf("%w: no bundle file at %s", ErrFetchFailed, full)
		}
		return Bundle{}, fmt.Errorf("%w: reading %s: %w", ErrFetchFailed, full, err)
	}

	// Decode errors omit the underlying error so no fragment of the file
	// content can reach logs.
	var kv map[string]string
	if err := yaml.Unmarshal(data, &kv); err != nil {
		return Bundle{}, fmt.Errorf("%w: %s is not a flat string mapping", ErrFetchFailed, full)
	}

	return newBundle(path, kv), nil
}
