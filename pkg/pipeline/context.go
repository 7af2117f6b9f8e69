package pipeline

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cast"
)

// Context carries values between the stages of one run. Every key is
// written exactly once, by the stage that declared it, and never changes
// afterwards. One run owns one Context; nothing is shared between runs.
type Context struct {
	values map[string]any
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Get returns the value for key and whether it has been produced.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the value for key coerced to a string, or "" if absent.
func (c *Context) String(key string) string {
	v, ok := c.values[key]
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// Bool returns the value for key coerced to a bool, or false if absent.
func (c *Context) Bool(key string) bool {
	v, ok := c.values[key]
	if !ok {
		return false
	}
	return cast.ToBool(v)
}

// Keys returns the produced keys in sorted order.
func (c *Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

func (c *Context) set(key string, value any) error {
	if _, exists := c.values[key]; exists {
		return fmt.Errorf("context key %q already produced", key)
	}
	c.values[key] = value
	return nil
}
