package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for dotate.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Resolve    ResolveConfig    `yaml:"resolve"`
	Run        RunConfig        `yaml:"run"`
	Mapping    MappingConfig    `yaml:"mapping"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig holds domain-table parsing configuration.
type InputConfig struct {
	Layout string `yaml:"layout"` // "hmmsearch" (default) or "hmmscan"
}

// ThresholdsConfig holds the hit filter cutoffs.
type ThresholdsConfig struct {
	MaxIEvalue   float64 `yaml:"max_ievalue"`
	MinHMMCov    float64 `yaml:"min_hmm_cov"`
	MinDomainCov float64 `yaml:"min_domain_cov"`
}

// ResolveConfig holds overlap resolution configuration.
type ResolveConfig struct {
	OverlapTolerance float64 `yaml:"overlap_tolerance"` // fraction of a candidate allowed to overlap
	MinUnannotated   int     `yaml:"min_unannotated"`   // shortest gap worth reporting
}

// RunConfig holds parallelism configuration.
type RunConfig struct {
	Cores     int `yaml:"cores"`      // -1 = all CPUs but one
	ChunkSize int `yaml:"chunk_size"` // proteins per worker batch
}

// MappingConfig holds ECOD identifier mapping configuration.
type MappingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // .json, .tsv, or a compiled .db
}

// OutputConfig holds sink configuration. Empty paths disable a sink; with
// every sink disabled, annotate falls back to <input>.dotate.tsv.
type OutputConfig struct {
	TSV         string `yaml:"tsv"`
	Fasta       string `yaml:"fasta"`
	SourceFasta string `yaml:"source_fasta"` // switches the fasta sink to sequence records
	SQL         string `yaml:"sql"`          // SQLite database path
	Table       string `yaml:"table"`        // override the per-input table name
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Layout: "hmmsearch",
		},
		Thresholds: ThresholdsConfig{
			MaxIEvalue:   0.01,
			MinHMMCov:    0.75,
			MinDomainCov: 0,
		},
		Resolve: ResolveConfig{
			OverlapTolerance: 0,
			MinUnannotated:   50,
		},
		Run: RunConfig{
			Cores:     1,
			ChunkSize: 100,
		},
		Mapping: MappingConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration for values the run could not honor.
func (c *Config) Validate() error {
	switch c.Input.Layout {
	case "", "hmmsearch", "hmmscan":
	default:
		return &ValidationError{Field: "input.layout", Reason: fmt.Sprintf("unknown layout %q", c.Input.Layout)}
	}
	if c.Thresholds.MaxIEvalue < 0 {
		return &ValidationError{Field: "thresholds.max_ievalue", Reason: "must be non-negative"}
	}
	if c.Thresholds.MinHMMCov < 0 || c.Thresholds.MinHMMCov > 1 {
		return &ValidationError{Field: "thresholds.min_hmm_cov", Reason: "must be within [0, 1]"}
	}
	if c.Thresholds.MinDomainCov < 0 || c.Thresholds.MinDomainCov > 1 {
		return &ValidationError{Field: "thresholds.min_domain_cov", Reason: "must be within [0, 1]"}
	}
	if c.Resolve.OverlapTolerance < 0 || c.Resolve.OverlapTolerance > 1 {
		return &ValidationError{Field: "resolve.overlap_tolerance", Reason: "must be within [0, 1]"}
	}
	if c.Resolve.MinUnannotated < 0 {
		return &ValidationError{Field: "resolve.min_unannotated", Reason: "must be non-negative"}
	}
	if c.Run.Cores == 0 || c.Run.Cores < -1 {
		return &ValidationError{Field: "run.cores", Reason: "must be -1 or at least 1"}
	}
	if c.Run.ChunkSize < 1 {
		return &ValidationError{Field: "run.chunk_size", Reason: "must be at least 1"}
	}
	if c.Mapping.Enabled && c.Mapping.Path == "" {
		return &ValidationError{Field: "mapping.path", Reason: "required when mapping is enabled"}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for dotate.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try dotate.yaml in the directory
	path := filepath.Join(dir, "dotate.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .dotate/config.yaml
	path = filepath.Join(dir, ".dotate", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
