// Package config provides configuration loading for the formation extractor.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spherical/formation-extractor/internal/domain"
)

// Config holds all configuration for an extraction run.
type Config struct {
	Source        string              `yaml:"source"`
	Output        OutputConfig        `yaml:"output"`
	Raster        RasterConfig        `yaml:"raster"`
	Layout        LayoutConfig        `yaml:"layout"`
	Workers       int                 `yaml:"workers"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// OutputConfig holds asset output settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// RasterConfig holds document rendering settings.
type RasterConfig struct {
	Density float64       `yaml:"density"`
	Timeout time.Duration `yaml:"timeout"`
}

// LayoutConfig selects the page geometry.
type LayoutConfig struct {
	File  string `yaml:"file"`  // empty means the built-in USPA layout
	Pages []int  `yaml:"pages"` // empty means every page in the layout
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the reference settings.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir: "static/formations",
		},
		Raster: RasterConfig{
			Density: 300,
			Timeout: 2 * time.Minute,
		},
		Workers: runtime.NumCPU(),
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return domain.ConfigError("source document path is required", nil)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return domain.ConfigError("output directory is required", nil)
	}
	if c.Raster.Density <= 0 {
		return domain.ConfigError(fmt.Sprintf("invalid density: %v", c.Raster.Density), nil)
	}
	if c.Raster.Timeout <= 0 {
		return domain.ConfigError(fmt.Sprintf("invalid rasterization timeout: %v", c.Raster.Timeout), nil)
	}
	if c.Workers < 1 {
		return domain.ConfigError(fmt.Sprintf("workers must be at least 1, got %d", c.Workers), nil)
	}
	for _, p := range c.Layout.Pages {
		if p < 0 {
			return domain.ConfigError(fmt.Sprintf("invalid page index: %d", p), nil)
		}
	}
	if c.Observability.LogFormat != "console" && c.Observability.LogFormat != "json" {
		return domain.ConfigError(fmt.Sprintf("invalid log format: %s", c.Observability.LogFormat), nil)
	}
	return nil
}

// ParsePages parses a comma separated list of page indices such as "0,1,3".
func ParsePages(s string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("invalid page index %q", part), err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("FORMATION_SOURCE"); v != "" {
		cfg.Source = v
	}

	if v := os.Getenv("FORMATION_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if v := os.Getenv("FORMATION_DENSITY"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.ConfigError("invalid FORMATION_DENSITY", err)
		}
		cfg.Raster.Density = d
	}

	if v := os.Getenv("FORMATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return domain.ConfigError("invalid FORMATION_TIMEOUT", err)
		}
		cfg.Raster.Timeout = d
	}

	if v := os.Getenv("FORMATION_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.ConfigError("invalid FORMATION_WORKERS", err)
		}
		cfg.Workers = n
	}

	if v := os.Getenv("FORMATION_LAYOUT"); v != "" {
		cfg.Layout.File = v
	}

	if v := os.Getenv("FORMATION_PAGES"); v != "" {
		pages, err := ParsePages(v)
		if err != nil {
			return err
		}
		cfg.Layout.Pages = pages
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}
