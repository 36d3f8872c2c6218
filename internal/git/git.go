package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrBranchExists reports that CreateBranch hit a branch that is already
// present. Callers check it with errors.Is and fall back to checkout.
var ErrBranchExists = errors.New("branch already exists")

// Runner provides git commands. Interface for testing.
type Runner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit implements Runner using exec.Command.
type ExecGit struct{}

func (g *ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Client wraps the branch, commit, and push operations the workflow needs,
// all against a single working directory.
type Client struct {
	git Runner
	dir string
}

// NewClient creates a git client for the given working directory.
func NewClient(git Runner, dir string) *Client {
	return &Client{git: git, dir: dir}
}

// CreateBranch checks out base, pulls the latest changes best-effort, and
// creates a new branch from it. Returns an error when the branch already
// exists; callers fall back to CheckoutBranch.
func (c *Client) CreateBranch(name, base string) error {
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("invalid branch name %q: must not start with -", name)
	}
	if _, err := c.git.Run(c.dir, "checkout", base); err != nil {
		return fmt.Errorf("checkout base %q: %w", base, err)
	}
	// Best-effort: a stale local base is fine if the pull fails (offline, no upstream).
	c.git.Run(c.dir, "pull", "--rebase", "origin", base)

	if _, err := c.git.Run(c.dir, "checkout", "-b", name); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("create branch %q: %w", name, ErrBranchExists)
		}
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return nil
}

// CheckoutBranch switches to an existing branch.
func (c *Client) CheckoutBranch(name string) error {
	if _, err := c.git.Run(c.dir, "checkout", name); err != nil {
		return fmt.Errorf("checkout branch %q: %w", name, err)
	}
	return nil
}

// PushBranch pushes a branch to origin, setting upstream.
func (c *Client) PushBranch(name string, force bool) error {
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("invalid branch name %q: must not start with -", name)
	}
	args := []string{"push", "-u", "origin", name}
	if force {
		args = append(args, "--force")
	}
	if _, err := c.git.Run(c.dir, args...); err != nil {
		return fmt.Errorf("push branch %q: %w", name, err)
	}
	return nil
}

// StageAll stages every change in the working tree.
func (c *Client) StageAll() error {
	if _, err := c.git.Run(c.dir, "add", "-A"); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	return nil
}

// HasStagedChanges reports whether anything is staged for commit.
func (c *Client) HasStagedChanges() (bool, error) {
	out, err := c.git.Run(c.dir, "diff", "--cached", "--stat")
	if err != nil {
		return false, fmt.Errorf("check staged changes: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// Commit records the staged changes with the given message.
func (c *Client) Commit(message string) error {
	if _, err := c.git.Run(c.dir, "commit", "-m", message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
