// Package testutil provides shared test helpers for Cobral Go tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/cobral/pkg/config"
)

// ScenariosDir is the scenarios directory relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is one end-to-end case loaded from a scenario.yaml file.
type Scenario struct {
	// Cmd is "run" or "check".
	Cmd string `yaml:"cmd"`
	// Program is the entry file, relative to the scenario directory.
	Program string `yaml:"program"`
	// Inputs answer ler requests in order. A run that asks for more
	// input than provided is cancelled.
	Inputs []string `yaml:"inputs,omitempty"`
	// Config overrides settings on top of the defaults, using the keys of
	// a .cobral.yaml file.
	Config yaml.Node      `yaml:"config,omitempty"`
	Meta   *ScenarioMeta  `yaml:"meta,omitempty"`
	Expect ExpectedResult `yaml:"expect"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of a scenario.
type ExpectedResult struct {
	ExitCode int `yaml:"exitCode"`
	// Stdout and Stderr are the exact info and error records, in order.
	Stdout         []string `yaml:"stdout,omitempty"`
	Stderr         []string `yaml:"stderr,omitempty"`
	StdoutContains string   `yaml:"stdoutContains,omitempty"`
	StderrContains string   `yaml:"stderrContains,omitempty"`
	Cancelled      bool     `yaml:"cancelled,omitempty"`
	// Prompts are the ler prompts the program is expected to show.
	Prompts []string `yaml:"prompts,omitempty"`
	// Diagnostics must each match some reported diagnostic on the
	// fields they set.
	Diagnostics []map[string]any `yaml:"diagnostics,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.yaml.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.yaml"))
	if err != nil {
		return nil, err
	}
	s := Scenario{Program: "main.cob"}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if s.Cmd != "run" && s.Cmd != "check" {
		return nil, fmt.Errorf("%s: unsupported cmd %q", dir, s.Cmd)
	}
	if _, err := s.RunConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return &s, nil
}

// RunConfig returns the defaults with the scenario's overrides applied.
// Program output timing is always off so records are deterministic.
func (s *Scenario) RunConfig() (*config.Config, error) {
	cfg := config.Default()
	if s.Config.Kind != 0 {
		data, err := yaml.Marshal(&s.Config)
		if err != nil {
			return nil, err
		}
		if cfg, err = config.Parse(data); err != nil {
			return nil, err
		}
	}
	cfg.ShowElapsed = false
	return cfg, nil
}

// ListScenarios returns all scenario directories under root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.yaml")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the scenario's entry file and returns its source
// and path.
func ReadProgramFile(scenarioDir string, s *Scenario) (string, string, error) {
	path := filepath.Join(scenarioDir, s.Program)
	source, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(source), path, nil
}
