package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/specforge/specforge/internal/checks"
	"github.com/specforge/specforge/internal/config"
	"github.com/specforge/specforge/internal/git"
	"github.com/specforge/specforge/internal/github"
)

// GitHubService is the slice of the hosting-service client the engine uses.
type GitHubService interface {
	CreateIssue(ctx context.Context, title, body string, labels []string, milestone int) (*github.Issue, error)
	CreateLabel(ctx context.Context, name, color, description string) error
	CreateMilestone(ctx context.Context, title, description string) (int, error)
	CreatePullRequest(ctx context.Context, title, body, head, base string) (*github.PullRequest, error)
	GetPRChecks(ctx context.Context, ref string) ([]github.CheckRun, error)
	GetPRReviews(ctx context.Context, number int) ([]github.Review, error)
	GetPRComments(ctx context.Context, number int) ([]github.Comment, error)
	MergePullRequest(ctx context.Context, number int, method string) error
	GetWorkflowRuns(ctx context.Context, branch string) ([]github.WorkflowRun, error)
	GetWorkflowRunLogs(ctx context.Context, runID int64) (string, error)
}

// GitClient is the slice of the git wrapper the engine uses.
type GitClient interface {
	CreateBranch(name, base string) error
	CheckoutBranch(name string) error
	PushBranch(name string, force bool) error
	StageAll() error
	HasStagedChanges() (bool, error)
	Commit(message string) error
}

// CheckRunner runs the local quality gate command.
type CheckRunner interface {
	Run(ctx context.Context, dir string, cfg checks.CheckConfig) (*checks.Result, error)
}

// EventLogger records workflow events for later inspection. Optional.
type EventLogger interface {
	LogWorkflowEvent(ctx context.Context, issue int, event, stage string, attempt int, detail string) error
}

// Workflow drives issues from queued to merged through every gate.
type Workflow struct {
	cfg    config.Workflow
	store  *Store
	gh     GitHubService
	git    GitClient
	checks CheckRunner

	events   EventLogger
	progress ProgressFunc
	out      io.Writer
	workDir  string
}

// New creates a workflow engine over the given store and collaborators.
func New(cfg config.Workflow, store *Store, gh GitHubService, git GitClient, checkRunner CheckRunner) *Workflow {
	return &Workflow{
		cfg:    cfg,
		store:  store,
		gh:     gh,
		git:    git,
		checks: checkRunner,
	}
}

// Store exposes the engine's issue store.
func (w *Workflow) Store() *Store {
	return w.store
}

// SetEventLogger attaches an optional event log.
func (w *Workflow) SetEventLogger(l EventLogger) {
	w.events = l
}

// SetProgress attaches an optional progress callback.
func (w *Workflow) SetProgress(fn ProgressFunc) {
	w.progress = fn
}

// SetOutput directs human-readable progress lines to w.
func (w *Workflow) SetOutput(out io.Writer) {
	w.out = out
}

// SetWorkDir sets the working directory for local checks. Defaults to
// the current directory.
func (w *Workflow) SetWorkDir(dir string) {
	w.workDir = dir
}

func (w *Workflow) logf(format string, args ...interface{}) {
	if w.out != nil {
		fmt.Fprintf(w.out, format+"\n", args...)
	}
}

// report fans a stage transition out to the progress callback, the
// progress writer, and the event log.
func (w *Workflow) report(ctx context.Context, number int, stage, detail string) {
	if w.progress != nil {
		w.progress(number, stage, detail)
	}
	w.logf("issue #%d: %s %s", number, stage, detail)
	if w.events != nil {
		wi, _ := w.store.Get(number)
		_ = w.events.LogWorkflowEvent(ctx, number, "stage", stage, wi.FixAttempts, detail)
	}
}

func (w *Workflow) setStatus(number int, status IssueStatus) {
	_ = w.store.Update(number, func(wi *WorkflowIssue) {
		wi.Status = status
	})
}

// fail marks an issue terminally failed with the given error.
func (w *Workflow) fail(ctx context.Context, number int, err error) {
	_ = w.store.Update(number, func(wi *WorkflowIssue) {
		wi.Status = StatusFailed
		wi.ErrorMessage = err.Error()
	})
	w.report(ctx, number, string(StatusFailed), err.Error())
}

// WorkOnIssue runs the full per-item pipeline: branch, implement, local
// quality gate, PR, CI gate, review gate, merge. A gate that exhausts its
// attempt budget leaves the issue in that gate's failed status and stops;
// the returned error covers infrastructure failures only.
func (w *Workflow) WorkOnIssue(ctx context.Context, number int, impl Implementation) error {
	wi, ok := w.store.Get(number)
	if !ok {
		return fmt.Errorf("issue #%d not in store", number)
	}
	issue := wi.Issue

	w.setStatus(number, StatusInProgress)
	w.report(ctx, number, string(StatusInProgress), issue.Title)

	branch := Slugify(issue.Title)
	if err := w.git.CreateBranch(branch, w.cfg.BaseBranch); err != nil {
		// Branch left over from a previous run: reuse it.
		if errors.Is(err, git.ErrBranchExists) {
			if err := w.git.CheckoutBranch(branch); err != nil {
				w.fail(ctx, number, fmt.Errorf("checkout existing branch: %w", err))
				return err
			}
		} else {
			w.fail(ctx, number, fmt.Errorf("create branch: %w", err))
			return err
		}
	}
	_ = w.store.Update(number, func(wi *WorkflowIssue) {
		wi.BranchName = branch
	})

	if err := impl(ctx, issue, ""); err != nil {
		w.fail(ctx, number, fmt.Errorf("implementation: %w", err))
		return err
	}

	passed, err := w.runPrecommit(ctx, number, impl)
	if err != nil {
		w.fail(ctx, number, err)
		return err
	}
	if !passed {
		return nil
	}

	if err := w.git.PushBranch(branch, false); err != nil {
		w.fail(ctx, number, fmt.Errorf("push branch: %w", err))
		return err
	}

	pr, err := w.gh.CreatePullRequest(ctx, issue.Title, fmt.Sprintf("Closes #%d\n\n%s", number, issue.Body), branch, w.cfg.BaseBranch)
	if err != nil {
		w.fail(ctx, number, fmt.Errorf("create PR: %w", err))
		return err
	}
	_ = w.store.Update(number, func(wi *WorkflowIssue) {
		wi.PullRequest = pr
		wi.Status = StatusPRCreated
	})
	w.report(ctx, number, string(StatusPRCreated), pr.URL)

	passed, err = w.runCI(ctx, number, impl)
	if err != nil {
		return err
	}
	if !passed {
		return nil
	}

	passed, err = w.runReview(ctx, number, impl)
	if err != nil {
		return err
	}
	if !passed {
		return nil
	}

	if w.cfg.AutoMerge || w.cfg.YoloMode {
		if err := w.gh.MergePullRequest(ctx, pr.Number, w.cfg.MergeMethod); err != nil {
			w.fail(ctx, number, fmt.Errorf("merge PR #%d: %w", pr.Number, err))
			return err
		}
		w.setStatus(number, StatusMerged)
		w.report(ctx, number, string(StatusMerged), pr.URL)
	}

	return nil
}

// CreateMilestone creates a milestone on the repository.
func (w *Workflow) CreateMilestone(ctx context.Context, title, description string) (int, error) {
	return w.gh.CreateMilestone(ctx, title, description)
}
