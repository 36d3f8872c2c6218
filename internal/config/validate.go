package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedMergeMethods is the set of valid merge_method values.
var recognizedMergeMethods = map[string]bool{
	"merge":  true,
	"squash": true,
	"rebase": true,
}

// Validate checks a WorkflowConfig for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *WorkflowConfig) []ValidationError {
	var errs []ValidationError
	w := cfg.Workflow

	// Required fields
	if w.Owner == "" {
		errs = append(errs, ValidationError{Field: "workflow.owner", Message: "is required"})
	}
	if w.Repo == "" {
		errs = append(errs, ValidationError{Field: "workflow.repo", Message: "is required"})
	}
	if w.ImplementationCommand == "" {
		errs = append(errs, ValidationError{Field: "workflow.implementation_command", Message: "is required"})
	}

	if !recognizedMergeMethods[w.MergeMethod] {
		errs = append(errs, ValidationError{
			Field:   "workflow.merge_method",
			Message: fmt.Sprintf("unrecognized merge method %q", w.MergeMethod),
		})
	}

	if w.MaxFixAttempts < 1 {
		errs = append(errs, ValidationError{
			Field:   "workflow.max_fix_attempts",
			Message: "must be at least 1",
		})
	}
	if w.ParallelBranches < 1 {
		errs = append(errs, ValidationError{
			Field:   "workflow.parallel_branches",
			Message: "must be at least 1",
		})
	}

	if w.IterateOnPrecommit && w.Precommit.Command == "" {
		errs = append(errs, ValidationError{
			Field:   "workflow.precommit.command",
			Message: "is required when iterate_on_precommit is enabled",
		})
	}

	for _, t := range []struct {
		field string
		value int
	}{
		{"workflow.coverage_thresholds.overall", w.CoverageThresholds.Overall},
		{"workflow.coverage_thresholds.logic", w.CoverageThresholds.Logic},
		{"workflow.coverage_thresholds.ui", w.CoverageThresholds.UI},
		{"workflow.coverage_thresholds.tests", w.CoverageThresholds.Tests},
	} {
		if t.value < 0 || t.value > 100 {
			errs = append(errs, ValidationError{
				Field:   t.field,
				Message: "must be between 0 and 100",
			})
		}
	}

	if w.Precommit.Timeout != "" {
		if _, err := time.ParseDuration(w.Precommit.Timeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "workflow.precommit.timeout",
				Message: fmt.Sprintf("invalid duration %q", w.Precommit.Timeout),
			})
		}
	}

	return errs
}
