package api

import (
	"fmt"
	"strings"
)

// Validate checks the spec for structural errors. Whether required
// configuration keys are present is checked after layer merging, not here,
// since overlays and runtime parameters may still supply them.
func (s *Spec) Validate() error {
	if len(s.Environments) == 0 {
		return fmt.Errorf("spec defines no environments")
	}

	for name := range s.Environments {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("environment with empty name")
		}
		if strings.ContainsAny(name, " /\\") {
			return fmt.Errorf("environment name %q contains path or space characters", name)
		}
	}

	storeNames := make(map[string]int)
	for i, store := range s.Stores {
		if store.Name == "" {
			return fmt.Errorf("store %d: name is required", i)
		}
		if store.Type == "" {
			return fmt.Errorf("store %q: type is required", store.Name)
		}
		if prev, exists := storeNames[store.Name]; exists {
			return fmt.Errorf("store %d: duplicate store name %q (first defined at store %d)", i, store.Name, prev)
		}
		storeNames[store.Name] = i
	}

	return nil
}

// Validate checks the batch configuration for errors.
func (b *Batch) Validate() error {
	if len(b.Targets) == 0 {
		return fmt.Errorf("batch has no targets")
	}

	seen := make(map[string]bool)
	for i, target := range b.Targets {
		if target.Spec == "" {
			return fmt.Errorf("target %d: spec is required", i)
		}
		if len(target.Environments) == 0 {
			return fmt.Errorf("target %q: environments list is empty", target.Spec)
		}
		for _, env := range target.Environments {
			if strings.TrimSpace(env) == "" {
				return fmt.Errorf("target %q: environment with empty name", target.Spec)
			}
			key := target.Spec + "\x00" + env
			if seen[key] {
				return fmt.Errorf("target %q: duplicate environment %q", target.Spec, env)
			}
			seen[key] = true
		}
	}

	return nil
}
