package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// MergeLayers deep-merges configuration trees in order of increasing
// precedence. A later layer's scalar replaces the earlier value, maps are
// merged key by key so narrow overrides keep unrelated sibling keys, and
// sequences are replaced wholesale. Inputs are never mutated: every layer is
// deep-copied before merging.
func MergeLayers(layers ...map[string]any) (map[string]any, error) {
	merged := map[string]any{}
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		copied, err := normalize(layer)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(&merged, copied, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging configuration layer: %w", err)
		}
	}
	return merged, nil
}

// normalize round-trips a tree through YAML. The result shares no memory
// with the input, and nested containers come back as map[string]any and
// []any regardless of how the caller built them.
func normalize(tree map[string]any) (map[string]any, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("serializing configuration layer: %w", err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copying configuration layer: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// copyTree deep-copies an already-normalized tree. Unlike normalize it
// cannot fail, so getters can hand out isolated copies unconditionally.
func copyTree(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyTree(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// ExpandParams converts flat dotted runtime parameters into a nested tree,
// so {"service.version": "1.2.0"} becomes {service: {version: "1.2.0"}}.
// Parameters that disagree about the shape of a path, such as "a" next to
// "a.b", fail with ErrMergeConflict.
func ExpandParams(params map[string]string) (map[string]any, error) {
	tree := map[string]any{}
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if err := setPath(tree, key, params[key]); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func setPath(tree map[string]any, key, value string) error {
	segments := strings.Split(key, ".")
	for _, segment := range segments {
		if segment == "" {
			return fmt.Errorf("%w: parameter %q has an empty path segment", ErrMergeConflict, key)
		}
	}

	current := tree
	for i, segment := range segments[:len(segments)-1] {
		next, exists := current[segment]
		if !exists {
			child := map[string]any{}
			current[segment] = child
			current = child
			continue
		}
		childMap, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: parameter %q conflicts with parameter %q",
				ErrMergeConflict, key, strings.Join(segments[:i+1], "."))
		}
		current = childMap
	}

	last := segments[len(segments)-1]
	if _, exists := current[last]; exists {
		return fmt.Errorf("%w: parameter %q conflicts with a longer parameter path", ErrMergeConflict, key)
	}
	current[last] = value
	return nil
}
