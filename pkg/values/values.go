package values

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/systemstart/shipline/pkg/config"
)

// ChartDefaultsFilename is the conventional defaults file inside a chart
// directory.
const ChartDefaultsFilename = "values.yaml"

// Values is the final merged tree handed to the deploy stage.
type Values map[string]any

// Compose deep-merges chart defaults, the environment value overlay, and
// per-run dynamic facts into the deployment values for one run. Precedence
// is facts > overlay > defaults, with the same merge rules as configuration
// resolution. The inputs are not mutated.
func Compose(chartDefaults, envOverlay, facts map[string]any) (Values, error) {
	merged, err := config.MergeLayers(chartDefaults, envOverlay, facts)
	if err != nil {
		return nil, fmt.Errorf("composing deployment values: %w", err)
	}
	return Values(merged), nil
}

// LoadChartDefaults reads values.yaml from a chart directory. A chart
// without a defaults file yields an empty tree, not an error.
func LoadChartDefaults(chartDir string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(chartDir, ChartDefaultsFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading chart defaults: %w", err)
	}

	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("parsing chart defaults: %w", err)
	}
	if defaults == nil {
		defaults = map[string]any{}
	}
	return defaults, nil
}

// YAML serializes the values tree.
func (v Values) YAML() ([]byte, error) {
	data, err := yaml.Marshal(map[string]any(v))
	if err != nil {
		return nil, fmt.Errorf("serializing deployment values: %w", err)
	}
	return data, nil
}

// WriteFile writes the values tree as YAML, creating parent directories as
// needed.
func (v Values) WriteFile(path string) error {
	data, err := v.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating values directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing values file: %w", err)
	}
	return nil
}
