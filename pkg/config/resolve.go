package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RequiredKeys must be non-empty in the effective configuration after all
// layers are merged.
var RequiredKeys = []string{"service.name", "service.repo", "service.namespace"}

// Resolve builds the effective configuration for one run by layering the
// environment overlay and runtime parameters over the base tree, with
// precedence runtime parameter > environment overlay > base. The environment
// must be one of the registered overlay names and is checked before anything
// else, so a typo fails immediately. The validated name is recorded at key
// "environment" before template expressions are expanded.
func Resolve(base map[string]any, overlays map[string]map[string]any, environment string, params map[string]string) (*Effective, error) {
	overlay, ok := overlays[environment]
	if !ok {
		known := slices.Sorted(maps.Keys(overlays))
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownEnvironment, environment, strings.Join(known, ", "))
	}

	paramTree, err := ExpandParams(params)
	if err != nil {
		return nil, err
	}

	merged, err := MergeLayers(base, overlay, paramTree)
	if err != nil {
		return nil, err
	}
	merged["environment"] = environment

	if err := Interpolate(merged); err != nil {
		return nil, err
	}

	eff := &Effective{environment: environment, tree: merged}

	var missing []string
	for _, key := range RequiredKeys {
		if strings.TrimSpace(eff.String(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	return eff, nil
}
