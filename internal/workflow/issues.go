package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/specforge/specforge/internal/github"
)

// UserStory gives issue bodies their user-facing framing.
type UserStory struct {
	Role    string
	Action  string
	Outcome string
}

func (u *UserStory) String() string {
	return fmt.Sprintf("As a %s, I want to %s so that %s.", u.Role, u.Action, u.Outcome)
}

// standardLabels is the label palette ensured by SetupRepository.
var standardLabels = []struct {
	name        string
	color       string
	description string
}{
	{"specforge", "5319e7", "Created by the workflow engine"},
	{"setup", "0e8a16", "Project setup task"},
	{"feature", "1d76db", "Feature implementation"},
	{"testing", "fbca04", "Testing and coverage"},
	{"blocked", "b60205", "Blocked on a dependency"},
	{"in-progress", "c2e0c6", "Currently being worked"},
	{"ready-for-review", "bfdadc", "Awaiting review"},
}

// setupTitles are the project bootstrap issues every run starts with.
var setupTitles = []struct {
	title string
	body  string
}{
	{"[Setup] Initialize project structure", "Create the base directory layout, build configuration, and entry points for the project."},
	{"[Setup] Configure development tools", "Set up formatting, linting, and local quality gate tooling."},
	{"[Setup] Set up testing framework", "Install and configure the test runner with an example test."},
	{"[Setup] Create documentation", "Write the initial README covering setup, usage, and contribution basics."},
}

// SetupRepository idempotently ensures the standard label set exists.
func (w *Workflow) SetupRepository(ctx context.Context) error {
	for _, l := range standardLabels {
		if err := w.gh.CreateLabel(ctx, l.name, l.color, l.description); err != nil {
			return fmt.Errorf("setup repository: %w", err)
		}
	}
	return nil
}

// CreateIssuesFromSpec expands a specification into setup issues, one
// issue per feature, and a final testing issue, wiring the dependency
// graph: features depend on all setup issues, testing depends on all
// feature issues. Created issues are registered in the store as queued.
func (w *Workflow) CreateIssuesFromSpec(ctx context.Context, specText string, features []string, story *UserStory) ([]*github.Issue, error) {
	var created []*github.Issue

	var setupIDs []int
	for _, s := range setupTitles {
		issue, err := w.gh.CreateIssue(ctx, s.title, s.body, []string{"specforge", "setup"}, 0)
		if err != nil {
			return nil, fmt.Errorf("create setup issue: %w", err)
		}
		w.store.Add(issue, nil)
		setupIDs = append(setupIDs, issue.Number)
		created = append(created, issue)
	}

	var featureIDs []int
	for _, feature := range features {
		title := "[Feature] " + feature
		body := featureBody(feature, specText, story)
		issue, err := w.gh.CreateIssue(ctx, title, body, []string{"specforge", "feature"}, 0)
		if err != nil {
			return nil, fmt.Errorf("create feature issue: %w", err)
		}
		w.store.Add(issue, setupIDs)
		featureIDs = append(featureIDs, issue.Number)
		created = append(created, issue)
	}

	testBody := "Add integration tests covering every implemented feature and bring coverage up to the configured thresholds."
	testIssue, err := w.gh.CreateIssue(ctx, "[Testing] Integration tests and coverage", testBody, []string{"specforge", "testing"}, 0)
	if err != nil {
		return nil, fmt.Errorf("create testing issue: %w", err)
	}
	w.store.Add(testIssue, featureIDs)
	created = append(created, testIssue)

	return created, nil
}

// featureBody renders the issue body for a feature.
func featureBody(feature, specText string, story *UserStory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Implement: %s\n", feature)
	if story != nil {
		fmt.Fprintf(&b, "\n%s\n", story)
	}
	if specText != "" {
		fmt.Fprintf(&b, "\n## Specification\n\n%s\n", truncate(specText, 4000))
	}
	return b.String()
}
