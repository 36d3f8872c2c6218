package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/specforge/specforge/internal/checks"
	"github.com/specforge/specforge/internal/config"
	"github.com/specforge/specforge/internal/git"
	"github.com/specforge/specforge/internal/github"
	"github.com/specforge/specforge/internal/workflow"
)

// apiToken reads the hosting-service token from the environment.
func apiToken() (string, error) {
	for _, key := range []string{"SPECFORGE_TOKEN", "GITHUB_TOKEN"} {
		if v := os.Getenv(key); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("no API token found (set SPECFORGE_TOKEN or GITHUB_TOKEN)")
}

// buildWorkflow wires the engine from the loaded config and environment.
func buildWorkflow(cfg *config.WorkflowConfig) (*workflow.Workflow, error) {
	token, err := apiToken()
	if err != nil {
		return nil, err
	}

	w := cfg.Workflow
	gh := github.NewClient(token, w.Owner, w.Repo)
	gitClient := git.NewClient(&git.ExecGit{}, ".")
	checkRunner := checks.NewRunner(&checks.ExecRunner{})

	engine := workflow.New(w, workflow.NewStore(), gh, gitClient, checkRunner)
	engine.SetOutput(os.Stdout)
	return engine, nil
}

// commandImplementation runs the configured implementation command per
// issue, passing the issue and any gate feedback via the environment.
func commandImplementation(command string) workflow.Implementation {
	return func(ctx context.Context, issue *github.Issue, feedback string) error {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Env = append(os.Environ(),
			"ISSUE_NUMBER="+strconv.Itoa(issue.Number),
			"ISSUE_TITLE="+issue.Title,
			"ISSUE_BODY="+issue.Body,
			"FEEDBACK="+feedback,
		)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("implementation command for issue #%d: %w", issue.Number, err)
		}
		return nil
	}
}
