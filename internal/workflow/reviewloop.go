package workflow

import (
	"context"
	"fmt"
	"strings"
)

// runReview polls reviews and comments on the issue's pull request and
// decides, in priority order: automated-reviewer feedback (when enabled)
// forces a fix round even over a human approval; any APPROVED review
// approves; no interaction at all approves, so unattended runs never
// stall; CHANGES_REQUESTED triggers a bounded fix round. Without a pull
// request this is a no-op.
func (w *Workflow) runReview(ctx context.Context, number int, impl Implementation) (bool, error) {
	wi, ok := w.store.Get(number)
	if !ok || wi.PullRequest == nil {
		return true, nil
	}
	prNumber := wi.PullRequest.Number

	_ = w.store.Update(number, func(wi *WorkflowIssue) {
		wi.FixAttempts = 0
	})

	fixRounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		reviews, err := w.gh.GetPRReviews(ctx, prNumber)
		if err != nil {
			w.logf("review fetch for PR #%d failed, retrying: %v", prNumber, err)
			if err := sleepCtx(ctx, w.cfg.ReviewPollInterval()); err != nil {
				return false, err
			}
			continue
		}
		comments, err := w.gh.GetPRComments(ctx, prNumber)
		if err != nil {
			w.logf("comment fetch for PR #%d failed, retrying: %v", prNumber, err)
			if err := sleepCtx(ctx, w.cfg.ReviewPollInterval()); err != nil {
				return false, err
			}
			continue
		}

		var feedback string
		actionable := false

		if w.cfg.ClaudeCodeReview {
			botApproved, botFeedback := CheckAutomatedReview(reviews, comments, w.cfg.ReviewBot)
			if !botApproved {
				actionable = true
				feedback = strings.Join(botFeedback, "\n")
			}
		}

		if !actionable {
			approved := false
			for _, r := range reviews {
				if r.State == "APPROVED" {
					approved = true
					break
				}
			}
			if !approved && len(reviews) == 0 && len(comments) == 0 {
				// Nothing to act on: unattended runs must not stall
				// waiting for a review that may never arrive.
				approved = true
			}
			if approved {
				w.setStatus(number, StatusApproved)
				w.report(ctx, number, string(StatusApproved), "")
				return true, nil
			}
			for _, r := range reviews {
				if r.State == "CHANGES_REQUESTED" {
					actionable = true
					feedback = r.Body
					break
				}
			}
		}

		if actionable {
			// A CHANGES_REQUESTED review can carry an empty body; give
			// the implementation routine something to work with.
			if strings.TrimSpace(feedback) == "" {
				feedback = "Changes were requested without written detail. Re-check the implementation against the issue description."
			}
			if fixRounds >= w.cfg.MaxFixAttempts {
				_ = w.store.Update(number, func(wi *WorkflowIssue) {
					wi.Status = StatusFailed
					wi.ErrorMessage = "review fix attempts exhausted: " + feedback
				})
				w.report(ctx, number, string(StatusFailed), "review fix attempts exhausted")
				return false, nil
			}
			fixRounds++

			_ = w.store.Update(number, func(wi *WorkflowIssue) {
				wi.Status = StatusChangesRequested
				wi.ErrorMessage = feedback
			})
			w.report(ctx, number, string(StatusChangesRequested), truncate(feedback, 200))

			_ = w.store.Update(number, func(wi *WorkflowIssue) {
				wi.Status = StatusReviewFixing
				wi.FixAttempts++
			})
			w.report(ctx, number, string(StatusReviewFixing), fmt.Sprintf("attempt %d", fixRounds))

			if err := impl(ctx, wi.Issue, feedback); err != nil {
				return false, err
			}
			if err := w.commitAndPushFix(number, "address review feedback"); err != nil {
				return false, err
			}
		}

		if err := sleepCtx(ctx, w.cfg.ReviewPollInterval()); err != nil {
			return false, err
		}
	}
}
