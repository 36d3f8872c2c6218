package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ciOutcome captures one observation of the remote check runs.
type ciOutcome struct {
	passed   bool
	coverage bool
	detail   string
}

// runCI waits for remote checks on the issue's branch, iterating on
// failure when the corresponding flag is enabled: fetch failure logs,
// feed them to the implementation routine, commit+push, and wait again.
// On success the issue moves to in_review. On exhausted attempts the
// last failed status (ci_failed or coverage_failed) is retained.
func (w *Workflow) runCI(ctx context.Context, number int, impl Implementation) (bool, error) {
	wi, ok := w.store.Get(number)
	if !ok || wi.PullRequest == nil {
		return true, nil
	}
	branch := wi.BranchName

	_ = w.store.Update(number, func(wi *WorkflowIssue) {
		wi.FixAttempts = 0
	})

	fixRounds := 0
	for {
		w.setStatus(number, StatusCIRunning)
		w.report(ctx, number, string(StatusCIRunning), branch)

		outcome, err := w.waitForChecks(ctx, branch)
		if err != nil {
			return false, err
		}
		if outcome.passed {
			w.setStatus(number, StatusInReview)
			w.report(ctx, number, string(StatusInReview), "")
			return true, nil
		}

		failStatus := StatusCIFailed
		fixStatus := StatusCIFixing
		iterate := w.cfg.IterateOnCI
		if outcome.coverage {
			failStatus = StatusCoverageFailed
			fixStatus = StatusCoverageFixing
			iterate = w.cfg.IterateOnCoverage
		}

		_ = w.store.Update(number, func(wi *WorkflowIssue) {
			wi.Status = failStatus
			wi.ErrorMessage = outcome.detail
		})
		w.report(ctx, number, string(failStatus), outcome.detail)

		if !iterate || fixRounds >= w.cfg.MaxFixAttempts {
			return false, nil
		}
		fixRounds++

		feedback := outcome.detail
		if logs := w.fetchFailureLogs(ctx, branch); logs != "" {
			feedback = feedback + "\n\nCI logs:\n" + logs
		}

		_ = w.store.Update(number, func(wi *WorkflowIssue) {
			wi.Status = fixStatus
			wi.FixAttempts++
		})
		w.report(ctx, number, string(fixStatus), fmt.Sprintf("attempt %d", fixRounds))

		if err := impl(ctx, wi.Issue, feedback); err != nil {
			return false, err
		}
		if err := w.commitAndPushFix(number, "fix failing checks"); err != nil {
			return false, err
		}
	}
}

// waitForChecks polls the check runs for a ref until they all complete
// successfully, any completes unsuccessfully, or the CI timeout elapses.
// Transient fetch errors count as "not yet passing". An empty check-run
// list is still pending, never a pass.
func (w *Workflow) waitForChecks(ctx context.Context, ref string) (*ciOutcome, error) {
	deadline := time.Now().Add(w.cfg.CITimeout())
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runs, err := w.gh.GetPRChecks(ctx, ref)
		if err != nil {
			w.logf("check fetch for %s failed, retrying: %v", ref, err)
		} else if len(runs) > 0 {
			allDone := true
			for _, run := range runs {
				if run.Status != "completed" {
					allDone = false
					continue
				}
				if run.Conclusion != "success" && run.Conclusion != "skipped" {
					return &ciOutcome{
						coverage: isCoverageCheck(run.Name),
						detail:   fmt.Sprintf("check %q concluded %s", run.Name, run.Conclusion),
					}, nil
				}
			}
			if allDone {
				return &ciOutcome{passed: true}, nil
			}
		}

		if time.Now().After(deadline) {
			return &ciOutcome{detail: fmt.Sprintf("timed out after %s waiting for checks", w.cfg.CITimeout())}, nil
		}
		if err := sleepCtx(ctx, w.cfg.CIPollInterval()); err != nil {
			return nil, err
		}
	}
}

// fetchFailureLogs pulls the logs of the most recent failed workflow run
// for a branch. Best-effort: any error yields empty feedback.
func (w *Workflow) fetchFailureLogs(ctx context.Context, branch string) string {
	runs, err := w.gh.GetWorkflowRuns(ctx, branch)
	if err != nil {
		return ""
	}
	for _, run := range runs {
		if run.Conclusion != "failure" {
			continue
		}
		logs, err := w.gh.GetWorkflowRunLogs(ctx, run.ID)
		if err != nil {
			return ""
		}
		return truncate(logs, 8000)
	}
	return ""
}

// isCoverageCheck reports whether a check name indicates a coverage tool.
func isCoverageCheck(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "coverage") || strings.Contains(lower, "codecov")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
