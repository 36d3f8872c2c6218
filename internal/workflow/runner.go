package workflow

import (
	"context"
	"sync"
)

// RunParallel is the main entry point: it repeatedly computes the ready
// set, dispatches up to parallel_branches pipelines concurrently, and
// awaits the full batch before recomputing readiness so merged items can
// unblock dependents. It returns once nothing is ready and nothing is in
// flight. Items left queued at that point can never become ready (a
// failed dependency or a dependency cycle) and are marked blocked.
func (w *Workflow) RunParallel(ctx context.Context, impl Implementation) map[string]int {
	// Guard against unvalidated configs: a zero limit would dispatch
	// empty batches forever.
	limit := w.cfg.ParallelBranches
	if limit < 1 {
		limit = 1
	}

	for {
		if ctx.Err() != nil {
			break
		}

		ready := w.store.ReadyIssues()
		if len(ready) == 0 {
			break
		}
		if len(ready) > limit {
			ready = ready[:limit]
		}

		var wg sync.WaitGroup
		for _, wi := range ready {
			wg.Add(1)
			go func(number int) {
				defer wg.Done()
				// Failures inside one item's pipeline never abort the
				// run; the item's terminal status carries the detail.
				if err := w.WorkOnIssue(ctx, number, impl); err != nil {
					w.logf("issue #%d pipeline error: %v", number, err)
				}
			}(wi.Issue.Number)
		}
		wg.Wait()
	}

	if ctx.Err() == nil {
		w.markStalled(ctx)
	}

	return w.store.StatusSummary()
}

// markStalled flags every still-queued issue as blocked once the run has
// drained with nothing ready.
func (w *Workflow) markStalled(ctx context.Context) {
	for _, number := range w.store.Numbers() {
		wi, ok := w.store.Get(number)
		if !ok || wi.Status != StatusQueued {
			continue
		}
		_ = w.store.Update(number, func(wi *WorkflowIssue) {
			wi.Status = StatusBlocked
			wi.ErrorMessage = "dependencies never satisfied"
		})
		w.report(ctx, number, string(StatusBlocked), "dependencies never satisfied")
	}
}
