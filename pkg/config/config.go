// Package config loads Cobral settings files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Color modes for diagnostics and error output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DefaultBatchThreshold is the number of output records buffered before a flush.
const DefaultBatchThreshold = 1000

// ProjectFile is the settings file looked up in the project directory.
const ProjectFile = ".cobral.yaml"

// Config holds the settings that shape a run.
type Config struct {
	LogBatchThreshold int      `yaml:"log_batch_threshold" json:"logBatchThreshold"`
	MaxIterations     int64    `yaml:"max_iterations" json:"maxIterations"`
	ImportPaths       []string `yaml:"import_paths" json:"importPaths,omitempty"`
	Color             string   `yaml:"color" json:"color"`
	ShowElapsed       bool     `yaml:"show_elapsed" json:"showElapsed"`
}

// Default returns the settings used when no file is found.
func Default() *Config {
	return &Config{
		LogBatchThreshold: DefaultBatchThreshold,
		Color:             ColorAuto,
		ShowElapsed:       true,
	}
}

// Load reads settings for projectDir.
// Precedence: project (.cobral.yaml) → user (~/.cobral/config.yaml) → defaults.
// It returns the path the settings came from, or "" for the defaults. A
// file that exists but cannot be decoded is an error.
func Load(projectDir string) (*Config, string, error) {
	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".cobral", "config.yaml"))
	}

	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}
	return Default(), "", nil
}

// LoadFile decodes a single settings file over the defaults. Relative
// import paths are resolved against the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, p := range cfg.ImportPaths {
		if !filepath.IsAbs(p) {
			cfg.ImportPaths[i] = filepath.Join(dir, p)
		}
	}
	return cfg, nil
}

// Parse decodes YAML settings over the defaults and validates them.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.LogBatchThreshold < 1 {
		return fmt.Errorf("log_batch_threshold must be positive, got %d", c.LogBatchThreshold)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations)
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	return nil
}

// UseColor resolves the color mode for an output that is or is not a terminal.
func (c *Config) UseColor(terminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return terminal
}
