// Package config provides configuration loading and management for itastack.
// Files are YAML, or TOML when the name ends in ".toml".
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"itastack/internal/models"
	"itastack/pkg/registration"
	"itastack/pkg/stack"
)

// Config represents the application configuration
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many scans are decoded concurrently
		NumCores int `yaml:"numCores" toml:"numCores"`
	} `yaml:"processing" toml:"processing"`

	// Shift correction applied when reading per-scan images
	Shift struct {
		// Mode is one of "roll", "const" or "nan"
		Mode string `yaml:"mode" toml:"mode"`

		// FillConstant is the fill value for the "const" mode
		FillConstant *float64 `yaml:"fillConstant,omitempty" toml:"fillConstant,omitempty"`
	} `yaml:"shift" toml:"shift"`

	// Drift estimation parameters
	Registration struct {
		// Recenter removes the mean shift from estimated tables
		Recenter bool `yaml:"recenter" toml:"recenter"`

		// FilterSigma is the Gaussian pre-filter width in pixels, 0 to disable
		FilterSigma float64 `yaml:"filterSigma" toml:"filterSigma"`
	} `yaml:"registration" toml:"registration"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose" toml:"verbose"`

		// Dir is where images and sections are written
		Dir string `yaml:"dir" toml:"dir"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Shift.Mode = stack.Roll.String()
	cfg.Registration.Recenter = true
	cfg.Output.Dir = "."
	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	var err error
	if isTOML(configPath) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate checks the shift and processing settings.
func (c *Config) Validate() error {
	mode, err := stack.ParseShiftMode(c.Shift.Mode)
	if err != nil {
		return err
	}
	if mode == stack.Const && c.Shift.FillConstant == nil {
		return &models.ConfigError{Field: "shift.fillConstant", Msg: "required by the const mode"}
	}
	if c.Registration.FilterSigma < 0 {
		return &models.ConfigError{Field: "registration.filterSigma", Msg: "must not be negative"}
	}
	return nil
}

// ShiftOptions builds reader options applying table with the configured mode.
func (c *Config) ShiftOptions(table models.ShiftTable) (*stack.ShiftOptions, error) {
	mode, err := stack.ParseShiftMode(c.Shift.Mode)
	if err != nil {
		return nil, err
	}
	return registration.Apply(table, mode, c.Shift.FillConstant), nil
}

// EstimatorOptions returns the drift estimator options derived from the registration section.
func (c *Config) EstimatorOptions() []registration.Option {
	return []registration.Option{
		registration.WithRecenter(c.Registration.Recenter),
		registration.WithFilter(registration.Gaussian(c.Registration.FilterSigma)),
	}
}
