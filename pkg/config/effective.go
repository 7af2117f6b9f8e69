package config

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Effective is the fully layered configuration for one run. It is immutable
// after Resolve: getters coerce scalars on the way out and return isolated
// copies of structured values, so no caller can change what another reads.
type Effective struct {
	environment string
	tree        map[string]any
}

// Environment returns the validated environment name this configuration was
// resolved for.
func (e *Effective) Environment() string { return e.environment }

// Has reports whether a value exists at the dotted path.
func (e *Effective) Has(path string) bool {
	_, ok := e.lookup(path)
	return ok
}

// String returns the value at path as a string, or "" when absent.
func (e *Effective) String(path string) string {
	return e.StringOr(path, "")
}

// StringOr returns the value at path as a string, or fallback when absent.
func (e *Effective) StringOr(path, fallback string) string {
	v, ok := e.lookup(path)
	if !ok || v == nil {
		return fallback
	}
	return cast.ToString(v)
}

// BoolOr returns the value at path as a bool, or fallback when absent.
func (e *Effective) BoolOr(path string, fallback bool) bool {
	v, ok := e.lookup(path)
	if !ok || v == nil {
		return fallback
	}
	return cast.ToBool(v)
}

// IntOr returns the value at path as an int, or fallback when absent.
func (e *Effective) IntOr(path string, fallback int) int {
	v, ok := e.lookup(path)
	if !ok || v == nil {
		return fallback
	}
	return cast.ToInt(v)
}

// DurationOr returns the value at path as a duration, or fallback when
// absent. Plain numbers are read as nanoseconds by the cast rules, so
// configuration should use unit strings like "90s" or "10m".
func (e *Effective) DurationOr(path string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(path)
	if !ok || v == nil {
		return fallback
	}
	return cast.ToDuration(v)
}

// Strings returns the value at path as a string slice, or nil when absent.
func (e *Effective) Strings(path string) []string {
	v, ok := e.lookup(path)
	if !ok || v == nil {
		return nil
	}
	return cast.ToStringSlice(v)
}

// Sub returns a deep copy of the map at path. Absent paths and non-map
// values yield an empty map.
func (e *Effective) Sub(path string) map[string]any {
	v, ok := e.lookup(path)
	if !ok {
		return map[string]any{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return copyTree(m)
}

// Tree returns a deep copy of the whole configuration tree.
func (e *Effective) Tree() map[string]any {
	return copyTree(e.tree)
}

func (e *Effective) lookup(path string) (any, bool) {
	var current any = e.tree
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
