package workflow

import (
	"context"

	"github.com/specforge/specforge/internal/checks"
)

// runPrecommit runs the local quality gate. With iteration disabled the
// check runs exactly once. With iteration enabled it loops up to
// max_fix_attempts runs, feeding each failure's output back to the
// implementation routine between runs. Returns (false, nil) when the
// gate exhausts its budget; the issue is left in precommit_failed.
func (w *Workflow) runPrecommit(ctx context.Context, number int, impl Implementation) (bool, error) {
	if w.cfg.Precommit.Command == "" {
		return true, nil
	}

	checkCfg := checks.CheckConfig{
		Name:    "precommit",
		Command: w.cfg.Precommit.Command,
		Timeout: w.cfg.PrecommitTimeout(),
	}

	_ = w.store.Update(number, func(wi *WorkflowIssue) {
		wi.FixAttempts = 0
	})

	maxRuns := w.cfg.MaxFixAttempts
	if !w.cfg.IterateOnPrecommit {
		maxRuns = 1
	}

	for attempt := 1; attempt <= maxRuns; attempt++ {
		result, err := w.checks.Run(ctx, w.workDir, checkCfg)
		if err != nil {
			return false, err
		}
		if result.Passed {
			return true, nil
		}

		output := result.Output()
		if attempt == maxRuns {
			_ = w.store.Update(number, func(wi *WorkflowIssue) {
				wi.Status = StatusPrecommitFailed
				wi.ErrorMessage = output
			})
			w.report(ctx, number, string(StatusPrecommitFailed), result.Summary)
			return false, nil
		}

		wi, _ := w.store.Get(number)
		_ = w.store.Update(number, func(wi *WorkflowIssue) {
			wi.Status = StatusPrecommitFixing
			wi.FixAttempts++
			wi.ErrorMessage = output
		})
		w.report(ctx, number, string(StatusPrecommitFixing), result.Summary)

		if err := impl(ctx, wi.Issue, output); err != nil {
			return false, err
		}
	}
	return false, nil
}
