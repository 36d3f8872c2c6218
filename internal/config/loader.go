package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a workflow configuration from the given YAML file path.
// After parsing, it fills in defaults for fields the file doesn't set.
func Load(path string) (*WorkflowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg WorkflowConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a workflow config in standard locations and loads
// the first one found. Search order: ./workflow.yaml, ~/.specforge/config.yaml
func LoadDefault() (*WorkflowConfig, error) {
	candidates := []string{"workflow.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".specforge", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no workflow config found (searched: %v)", candidates)
}

// applyDefaults fills in the defaults for unset fields.
func applyDefaults(cfg *WorkflowConfig) {
	w := &cfg.Workflow

	if w.BaseBranch == "" {
		w.BaseBranch = "main"
	}
	if w.MergeMethod == "" {
		w.MergeMethod = "squash"
	}
	if w.MaxFixAttempts <= 0 {
		w.MaxFixAttempts = 3
	}
	if w.ParallelBranches <= 0 {
		w.ParallelBranches = 1
	}
	if w.CITimeoutSeconds <= 0 {
		w.CITimeoutSeconds = 1800
	}
	if w.CIPollSeconds <= 0 {
		w.CIPollSeconds = 30
	}
	if w.ReviewPollSeconds <= 0 {
		w.ReviewPollSeconds = 60
	}
	if w.ReviewBot == "" {
		w.ReviewBot = "claude"
	}
}
