package config

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Interpolate expands template expressions in string values, in place. Every
// expression is rendered against a snapshot of the unexpanded tree, so the
// result does not depend on map iteration order and a single pass suffices.
// References to missing keys are errors. The function map is sprig's with
// the process-environment helpers removed: configuration must not read
// ambient state.
func Interpolate(tree map[string]any) error {
	snapshot := copyTree(tree)
	return interpolateMap(tree, snapshot, "")
}

func interpolateMap(m map[string]any, data map[string]any, path string) error {
	for k, v := range m {
		childPath := k
		if path != "" {
			childPath = path + "." + k
		}
		rendered, err := interpolateValue(v, data, childPath)
		if err != nil {
			return err
		}
		m[k] = rendered
	}
	return nil
}

func interpolateValue(v any, data map[string]any, path string) (any, error) {
	switch t := v.(type) {
	case string:
		if !strings.Contains(t, "{{") {
			return t, nil
		}
		return renderExpression(t, data, path)
	case map[string]any:
		if err := interpolateMap(t, data, path); err != nil {
			return nil, err
		}
		return t, nil
	case []any:
		for i, item := range t {
			rendered, err := interpolateValue(item, data, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			t[i] = rendered
		}
		return t, nil
	default:
		return v, nil
	}
}

func renderExpression(expr string, data map[string]any, path string) (string, error) {
	tmpl, err := template.New(path).Funcs(templateFuncs()).Option("missingkey=error").Parse(expr)
	if err != nil {
		return "", fmt.Errorf("parsing template at %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("expanding template at %s: %w", path, err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	funcs := sprig.FuncMap()
	delete(funcs, "env")
	delete(funcs, "expandenv")
	return funcs
}
