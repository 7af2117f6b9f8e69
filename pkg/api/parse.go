package api

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/systemstart/shipline/pkg/config"
)

// LoadSpec reads a ship.yaml file, folds in per-environment overlay files
// from the environments/ directory next to it, sets Dir/FilePath, and
// validates the result.
func LoadSpec(filename string) (*Spec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing spec file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	s.FilePath = absPath
	s.Dir = filepath.Dir(absPath)

	if s.Environments == nil {
		s.Environments = map[string]map[string]any{}
	}
	for name, overlay := range s.Environments {
		if overlay == nil {
			s.Environments[name] = map[string]any{}
		}
	}

	if err := s.loadOverlayFiles(); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating spec %s: %w", filename, err)
	}

	return &s, nil
}

// loadOverlayFiles registers environments/<name>.yaml files as overlays.
// An environment defined both inline and as a file is ambiguous and refused.
func (s *Spec) loadOverlayFiles() error {
	matches, err := doublestar.Glob(os.DirFS(s.Dir), OverlayGlob)
	if err != nil {
		return fmt.Errorf("globbing environment overlays: %w", err)
	}
	slices.Sort(matches)

	for _, match := range matches {
		name := strings.TrimSuffix(filepath.Base(match), filepath.Ext(match))
		if _, exists := s.Environments[name]; exists {
			return fmt.Errorf("environment %q defined both inline and in %s", name, match)
		}

		data, err := os.ReadFile(filepath.Join(s.Dir, match))
		if err != nil {
			return fmt.Errorf("reading environment overlay %s: %w", match, err)
		}

		var overlay map[string]any
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return fmt.Errorf("parsing environment overlay %s: %w", match, err)
		}
		if overlay == nil {
			overlay = map[string]any{}
		}
		s.Environments[name] = overlay
	}

	return nil
}

// BaseTree returns the base configuration layer: the defaults tree with the
// service identity folded in under "service".
func (s *Spec) BaseTree() (map[string]any, error) {
	svc := map[string]any{}
	if s.Service.Name != "" {
		svc["name"] = s.Service.Name
	}
	if s.Service.Repo != "" {
		svc["repo"] = s.Service.Repo
	}
	if s.Service.Namespace != "" {
		svc["namespace"] = s.Service.Namespace
	}
	return config.MergeLayers(s.Defaults, map[string]any{"service": svc})
}
