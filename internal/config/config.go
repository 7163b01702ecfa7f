// Package config loads editor settings from a yaml file. Missing files are
// not an error: every field has a default.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HorizontalDivision int     `yaml:"horizontalDivision"`
	VerticalDivision   int     `yaml:"verticalDivision"`
	DefaultBPM         float64 `yaml:"defaultBpm"`
	MeasureCount       int     `yaml:"measureCount"`
	LogLevel           string  `yaml:"logLevel"`
}

func Default() *Config {
	return &Config{
		HorizontalDivision: 4,
		VerticalDivision:   4,
		DefaultBPM:         120,
		MeasureCount:       8,
		LogLevel:           "info",
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.HorizontalDivision < 1 || cfg.VerticalDivision < 1 {
		return nil, fmt.Errorf("config divisions must be positive")
	}
	return cfg, nil
}
