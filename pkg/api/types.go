package api

const (
	DefaultSpecFilename = "ship.yaml"

	// OverlayGlob matches per-environment overlay files relative to the
	// spec directory. The file base name is the environment name.
	OverlayGlob = "environments/*.{yaml,yml}"

	StoreTypeSSM    = "aws-ssm"
	StoreTypeRedis  = "redis"
	StoreTypeFile   = "file"
	StoreTypeMemory = "memory"
)

// Spec is the ship.yaml configuration format: one service, its layered
// configuration, the closed set of target environments, and the secret
// stores the pipeline may fetch from.
type Spec struct {
	Service      ServiceConfig             `yaml:"service"`
	Defaults     map[string]any            `yaml:"defaults"`
	Environments map[string]map[string]any `yaml:"environments"`
	Stores       []StoreConfig             `yaml:"stores"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// ServiceConfig identifies the service a spec ships.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	Repo      string `yaml:"repo"`
	Namespace string `yaml:"namespace"`
}

// StoreConfig declares a named secret store connection.
type StoreConfig struct {
	Name    string         `yaml:"name"`
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options"`
}

// Batch is the targets.yaml format for running several spec/environment
// combinations in one invocation.
type Batch struct {
	Targets []BatchTarget `yaml:"targets"`
}

// BatchTarget names one spec file and the environments to run it against.
type BatchTarget struct {
	Spec         string   `yaml:"spec"`
	Environments []string `yaml:"environments"`
}
