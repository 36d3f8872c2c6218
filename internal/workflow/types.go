package workflow

import (
	"context"

	"github.com/specforge/specforge/internal/github"
)

// IssueStatus is the lifecycle state of a workflow issue.
type IssueStatus string

const (
	StatusQueued           IssueStatus = "queued"
	StatusInProgress       IssueStatus = "in_progress"
	StatusPrecommitFailed  IssueStatus = "precommit_failed"
	StatusPrecommitFixing  IssueStatus = "precommit_fixing"
	StatusPRCreated        IssueStatus = "pr_created"
	StatusCIRunning        IssueStatus = "ci_running"
	StatusCIFailed         IssueStatus = "ci_failed"
	StatusCIFixing         IssueStatus = "ci_fixing"
	StatusCoverageFailed   IssueStatus = "coverage_failed"
	StatusCoverageFixing   IssueStatus = "coverage_fixing"
	StatusInReview         IssueStatus = "in_review"
	StatusChangesRequested IssueStatus = "changes_requested"
	StatusReviewFixing     IssueStatus = "review_fixing"
	StatusApproved         IssueStatus = "approved"
	StatusMerged           IssueStatus = "merged"
	StatusBlocked          IssueStatus = "blocked"
	StatusFailed           IssueStatus = "failed"
)

// Terminal reports whether no further automatic transition occurs.
func (s IssueStatus) Terminal() bool {
	switch s {
	case StatusMerged, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// WorkflowIssue wraps an issue with the engine's per-item state.
type WorkflowIssue struct {
	Issue        *github.Issue       `json:"issue"`
	Status       IssueStatus         `json:"status"`
	BranchName   string              `json:"branch_name,omitempty"`
	PullRequest  *github.PullRequest `json:"pull_request,omitempty"`
	Dependencies []int               `json:"dependencies,omitempty"`
	FixAttempts  int                 `json:"fix_attempts"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// Implementation is the caller-supplied routine that mutates the working
// tree to satisfy an issue. On retries, feedback carries the captured
// failure text from the gate that failed. Must be idempotent per issue.
type Implementation func(ctx context.Context, issue *github.Issue, feedback string) error

// ProgressFunc receives stage transitions for progress reporting.
// It must not block for long periods.
type ProgressFunc func(issue int, stage string, detail string)
