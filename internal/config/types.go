package config

import "time"

// WorkflowConfig is the top-level configuration structure parsed from workflow YAML.
type WorkflowConfig struct {
	Workflow Workflow `yaml:"workflow"`
}

// Workflow defines the full workflow: repository coordinates, gate toggles,
// retry limits, and polling intervals.
type Workflow struct {
	Owner            string `yaml:"owner"`
	Repo             string `yaml:"repo"`
	BaseBranch       string `yaml:"base_branch"`
	AutoMerge        bool   `yaml:"auto_merge"`
	YoloMode         bool   `yaml:"yolo_mode"`
	MergeMethod      string `yaml:"merge_method"`
	MaxFixAttempts   int    `yaml:"max_fix_attempts"`
	ParallelBranches int    `yaml:"parallel_branches"`

	IterateOnPrecommit bool `yaml:"iterate_on_precommit"`
	IterateOnCI        bool `yaml:"iterate_on_ci"`
	IterateOnCoverage  bool `yaml:"iterate_on_coverage"`

	ClaudeCodeReview bool   `yaml:"claude_code_review"`
	ReviewBot        string `yaml:"review_bot"`

	CITimeoutSeconds  int `yaml:"ci_timeout_seconds"`
	CIPollSeconds     int `yaml:"ci_poll_interval"`
	ReviewPollSeconds int `yaml:"review_poll_interval"`

	Precommit Precommit `yaml:"precommit"`

	CoverageThresholds CoverageThresholds `yaml:"coverage_thresholds"`

	// ImplementationCommand is the shell command run as the implementation
	// routine for each issue. The issue and accumulated failure context are
	// passed via environment variables.
	ImplementationCommand string `yaml:"implementation_command"`

	// DatabaseURL is an optional Postgres DSN for the workflow event log.
	DatabaseURL string `yaml:"database_url"`
}

// Precommit defines the local quality gate command.
type Precommit struct {
	Command string `yaml:"command"`
	Timeout string `yaml:"timeout"`
}

// CoverageThresholds holds per-category minimum coverage percentages.
type CoverageThresholds struct {
	Overall int `yaml:"overall"`
	Logic   int `yaml:"logic"`
	UI      int `yaml:"ui"`
	Tests   int `yaml:"tests"`
}

// CITimeout returns the CI wait ceiling as a duration.
func (w *Workflow) CITimeout() time.Duration {
	return time.Duration(w.CITimeoutSeconds) * time.Second
}

// CIPollInterval returns the check-run polling interval as a duration.
func (w *Workflow) CIPollInterval() time.Duration {
	return time.Duration(w.CIPollSeconds) * time.Second
}

// ReviewPollInterval returns the review polling interval as a duration.
func (w *Workflow) ReviewPollInterval() time.Duration {
	return time.Duration(w.ReviewPollSeconds) * time.Second
}

// PrecommitTimeout parses the precommit timeout, falling back to 2 minutes.
func (w *Workflow) PrecommitTimeout() time.Duration {
	if w.Precommit.Timeout != "" {
		if d, err := time.ParseDuration(w.Precommit.Timeout); err == nil {
			return d
		}
	}
	return 2 * time.Minute
}
