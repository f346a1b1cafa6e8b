// Package config loads the YAML run spec: which resources to match,
// which tags to converge on, and how carefully to talk to the remote.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/retag-io/retag/internal/engine"
	"github.com/retag-io/retag/internal/ir"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Retry tunes the discovery retry policy and the pacing jitter.
type Retry struct {
	MaxRetries int      `yaml:"maxRetries"`
	BaseDelay  Duration `yaml:"baseDelay"`
	MaxDelay   Duration `yaml:"maxDelay"`
}

// S3Backup configures the remote snapshot sink.
type S3Backup struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// Backup configures where pre-change tag snapshots go.
type Backup struct {
	Disabled bool     `yaml:"disabled"`
	Dir      string   `yaml:"dir"`
	S3       S3Backup `yaml:"s3"`
}

// Config is the full run spec.
type Config struct {
	Region      string            `yaml:"region"`
	Profile     string            `yaml:"profile"`
	Kinds       []string          `yaml:"kinds"`
	Patterns    []string          `yaml:"patterns"`
	Tags        map[string]string `yaml:"tags"`
	Mode        string            `yaml:"mode"`
	Concurrency int               `yaml:"concurrency"`
	Backup      Backup            `yaml:"backup"`
	Retry       Retry             `yaml:"retry"`
}

// Default returns the baseline config: both kinds, merge mode,
// sequential apply, local backups.
func Default() *Config {
	return &Config{
		Region:      "us-east-1",
		Kinds:       []string{string(ir.KindRule), string(ir.KindBucket)},
		Mode:        string(ir.ModeMerge),
		Concurrency: 1,
		Backup: Backup{
			Dir: ".retag/backups",
		},
	}
}

// Load reads and validates a config file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enum fields and bounds.
func (c *Config) Validate() error {
	switch ir.Mode(c.Mode) {
	case ir.ModeMerge, ir.ModeReplace:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ir.ModeMerge, ir.ModeReplace, c.Mode)
	}

	valid := make(map[ir.Kind]bool)
	for _, k := range ir.ValidKinds() {
		valid[k] = true
	}
	for _, k := range c.Kinds {
		if !valid[ir.Kind(k)] {
			return fmt.Errorf("unknown resource kind %q", k)
		}
	}

	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Concurrency)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.maxRetries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	return nil
}

// ResolvedKinds converts the configured kind names.
func (c *Config) ResolvedKinds() []ir.Kind {
	kinds := make([]ir.Kind, 0, len(c.Kinds))
	for _, k := range c.Kinds {
		kinds = append(kinds, ir.Kind(k))
	}
	return kinds
}

// RetryPolicy builds the engine policy from the config, falling back
// to defaults for unset fields.
func (c *Config) RetryPolicy() *engine.RetryPolicy {
	policy := engine.DefaultRetryPolicy()
	if c.Retry.MaxRetries > 0 {
		policy.MaxRetries = c.Retry.MaxRetries
	}
	if c.Retry.BaseDelay > 0 {
		policy.BaseDelay = time.Duration(c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay > 0 {
		policy.MaxDelay = time.Duration(c.Retry.MaxDelay)
	}
	return policy
}
