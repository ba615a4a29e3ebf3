// Package config provides configuration loading for the analysis pipeline.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wyy-yiyang/fungal-community-data/ordination"
)

// Config is the complete pipeline configuration.
type Config struct {
	Inputs    InputsConfig      `yaml:"inputs"`
	Output    OutputConfig      `yaml:"output"`
	Bootstrap BootstrapConfig   `yaml:"bootstrap"`
	NMDS      ordination.Config `yaml:"nmds"`
	Tests     TestsConfig       `yaml:"tests"`
	Metrics   MetricsConfig     `yaml:"metrics"`
}

// InputsConfig names the four input CSV files.
type InputsConfig struct {
	// SoilChemistry is the per-sample soil measurement table.
	SoilChemistry string `yaml:"soil_chemistry"`
	// Annotations is the per-OTU confidence/notes/functional-flag table.
	Annotations string `yaml:"annotations"`
	// Abundance is the tree-by-OTU count table with tree and site columns.
	Abundance string `yaml:"abundance"`
	// Traits is the OTU functional-trait table (optional; the chi-square
	// stage is skipped when empty).
	Traits string `yaml:"traits"`
}

// OutputConfig controls where summaries and figures are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// WriteRawRecords also dumps the raw bootstrap record table.
	WriteRawRecords bool `yaml:"write_raw_records"`
	// Plots enables the NMDS scatter/ellipse figures.
	Plots bool `yaml:"plots"`
}

// BootstrapConfig mirrors convergence.Config minus lowest_n, which the
// pipeline derives from the matrices being compared.
type BootstrapConfig struct {
	Resamples int    `yaml:"resamples"`
	Workers   int    `yaml:"workers"`
	Seed      uint64 `yaml:"seed"`
}

// TestsConfig bounds the permutation tests.
type TestsConfig struct {
	Permutations int `yaml:"permutations"`
}

// MetricsConfig optionally exposes Prometheus metrics during a run.
type MetricsConfig struct {
	// ListenAddr is the address for the /metrics listener; empty disables it.
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns a Config with the analysis defaults: 1000 resamples,
// 2-dimensional NMDS capped at 30 iterations, 999 permutations.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:   "results",
			Plots: true,
		},
		Bootstrap: BootstrapConfig{
			Resamples: 1000,
			Workers:   0, // GOMAXPROCS
			Seed:      0, // seeded from time at run start
		},
		NMDS:  ordination.DefaultConfig(),
		Tests: TestsConfig{Permutations: 999},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Inputs.Annotations == "" {
		return fmt.Errorf("inputs.annotations is required")
	}
	if c.Inputs.Abundance == "" {
		return fmt.Errorf("inputs.abundance is required")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Bootstrap.Resamples < 1 {
		return fmt.Errorf("bootstrap.resamples must be at least 1")
	}
	if c.Bootstrap.Workers < 0 {
		return fmt.Errorf("bootstrap.workers must not be negative")
	}
	if c.NMDS.Dimensions != 2 {
		return fmt.Errorf("nmds.dimensions must be 2 for this analysis")
	}
	if c.NMDS.MaxIterations < 1 {
		return fmt.Errorf("nmds.max_iterations must be at least 1")
	}
	if c.NMDS.ZeroAdjustment < 0 {
		return fmt.Errorf("nmds.zero_adjustment must not be negative")
	}
	if c.Tests.Permutations < 1 {
		return fmt.Errorf("tests.permutations must be at least 1")
	}
	return nil
}

// Load reads a YAML configuration file, applying defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
