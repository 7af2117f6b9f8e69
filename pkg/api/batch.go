package api

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadBatch reads a targets YAML file, unmarshals it, and validates.
func LoadBatch(filename string) (*Batch, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing batch file: %w", err)
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("validating batch file: %w", err)
	}

	return &b, nil
}
