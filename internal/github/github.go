package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// Issue represents an issue on the hosting service.
type Issue struct {
	Number int     `json:"number"`
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	State  string  `json:"state"`
	Labels []Label `json:"labels"`
	URL    string  `json:"html_url"`

	// PullRequest is non-nil when the issue is actually a pull request.
	// The issues listing endpoint returns both.
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

// Label represents an issue label.
type Label struct {
	Name string `json:"name"`
}

// PullRequest represents a pull request.
type PullRequest struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	URL       string `json:"html_url"`
	Merged    bool   `json:"merged"`
	Mergeable *bool  `json:"mergeable"`
	Head      Ref    `json:"head"`
	Base      Ref    `json:"base"`
}

// Ref identifies a branch side of a pull request.
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// CheckRun represents a single CI check run on a commit.
type CheckRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

// Review represents a pull request review.
type Review struct {
	User  User   `json:"user"`
	State string `json:"state"`
	Body  string `json:"body"`
}

// Comment represents an issue or pull request comment.
type Comment struct {
	User User   `json:"user"`
	Body string `json:"body"`
}

// User is the author of a review or comment.
type User struct {
	Login string `json:"login"`
}

// WorkflowRun represents a CI workflow run.
type WorkflowRun struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	HeadBranch string `json:"head_branch"`
}

// ErrMergeBlocked is returned when the service refuses a merge because the
// pull request is not in a mergeable state (failing checks, missing reviews).
type ErrMergeBlocked struct {
	PR     int
	Detail string
}

func (e *ErrMergeBlocked) Error() string {
	return fmt.Sprintf("PR #%d not mergeable: %s", e.PR, e.Detail)
}

// ErrMergeConflict is returned when the head branch conflicts with base.
type ErrMergeConflict struct {
	PR int
}

func (e *ErrMergeConflict) Error() string {
	return fmt.Sprintf("PR #%d has merge conflicts", e.PR)
}

// Client talks to the hosting service's REST API for a single repository.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	owner   string
	repo    string
}

// NewClient creates a client for the given repository.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		token:   token,
		owner:   owner,
		repo:    repo,
	}
}

// WithBaseURL returns a copy of the client pointed at a different API root.
// Used by tests to target an httptest server.
func (c *Client) WithBaseURL(base string) *Client {
	copied := *c
	copied.baseURL = strings.TrimRight(base, "/")
	return &copied
}

// ParseRepoURL extracts owner and repo from a repository URL or
// owner/repo shorthand.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	s := strings.TrimSuffix(strings.TrimSpace(raw), ".git")
	s = strings.TrimSuffix(s, "/")

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", "", fmt.Errorf("parse repo URL %q: %w", raw, err)
		}
		s = strings.Trim(u.Path, "/")
	} else if at := strings.Index(s, "@"); at >= 0 && strings.Contains(s, ":") {
		// git@host:owner/repo
		s = s[strings.Index(s, ":")+1:]
	}

	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from %q", raw)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// apiError is a non-2xx response from the service.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	snippet := e.Body
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return fmt.Sprintf("API status %d: %s", e.StatusCode, snippet)
}

// do issues a request with auth headers and decodes a JSON response into out.
// A nil out discards the body. Non-2xx statuses return *apiError.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apiError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// repoPath builds a path under the current repository.
func (c *Client) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s%s", c.owner, c.repo, suffix)
}

// ValidateToken verifies the token by fetching the authenticated user.
func (c *Client) ValidateToken(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil); err != nil {
		return fmt.Errorf("validate token: %w", err)
	}
	return nil
}

// RepoExists reports whether the configured repository is reachable.
func (c *Client) RepoExists(ctx context.Context) (bool, error) {
	err := c.do(ctx, http.MethodGet, c.repoPath(""), nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("check repo: %w", err)
}

// CreateIssue opens a new issue. Milestone 0 means no milestone.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string, milestone int) (*Issue, error) {
	payload := map[string]interface{}{
		"title": title,
		"body":  body,
	}
	if len(labels) > 0 {
		payload["labels"] = labels
	}
	if milestone > 0 {
		payload["milestone"] = milestone
	}

	var issue Issue
	if err := c.do(ctx, http.MethodPost, c.repoPath("/issues"), payload, &issue); err != nil {
		return nil, fmt.Errorf("create issue %q: %w", title, err)
	}
	return &issue, nil
}

// GetIssues lists open issues, excluding pull requests.
func (c *Client) GetIssues(ctx context.Context, state string) ([]Issue, error) {
	if state == "" {
		state = "open"
	}
	var raw []Issue
	path := c.repoPath("/issues?state=" + url.QueryEscape(state) + "&per_page=100")
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	issues := make([]Issue, 0, len(raw))
	for _, is := range raw {
		if is.PullRequest != nil {
			continue
		}
		issues = append(issues, is)
	}
	return issues, nil
}

// CloseIssue closes an issue by number.
func (c *Client) CloseIssue(ctx context.Context, number int) error {
	payload := map[string]string{"state": "closed"}
	path := c.repoPath(fmt.Sprintf("/issues/%d", number))
	if err := c.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return fmt.Errorf("close issue #%d: %w", number, err)
	}
	return nil
}

// CreateMilestone creates a milestone and returns its number.
func (c *Client) CreateMilestone(ctx context.Context, title, description string) (int, error) {
	payload := map[string]string{
		"title":       title,
		"description": description,
	}
	var ms struct {
		Number int `json:"number"`
	}
	if err := c.do(ctx, http.MethodPost, c.repoPath("/milestones"), payload, &ms); err != nil {
		return 0, fmt.Errorf("create milestone %q: %w", title, err)
	}
	return ms.Number, nil
}

// CreateLabel creates a label. An already-existing label is not an error.
func (c *Client) CreateLabel(ctx context.Context, name, color, description string) error {
	payload := map[string]string{
		"name":        name,
		"color":       color,
		"description": description,
	}
	err := c.do(ctx, http.MethodPost, c.repoPath("/labels"), payload, nil)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
			return nil
		}
		return fmt.Errorf("create label %q: %w", name, err)
	}
	return nil
}

// CreatePullRequest opens a pull request from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, title, body, head, base string) (*PullRequest, error) {
	payload := map[string]string{
		"title": title,
		"body":  body,
		"head":  head,
		"base":  base,
	}
	var pr PullRequest
	if err := c.do(ctx, http.MethodPost, c.repoPath("/pulls"), payload, &pr); err != nil {
		return nil, fmt.Errorf("create PR %s -> %s: %w", head, base, err)
	}
	return &pr, nil
}

// GetPullRequest fetches a pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	var pr PullRequest
	path := c.repoPath(fmt.Sprintf("/pulls/%d", number))
	if err := c.do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, fmt.Errorf("get PR #%d: %w", number, err)
	}
	return &pr, nil
}

// GetPRChecks lists check runs for a commit ref (branch name or SHA).
func (c *Client) GetPRChecks(ctx context.Context, ref string) ([]CheckRun, error) {
	var out struct {
		CheckRuns []CheckRun `json:"check_runs"`
	}
	path := c.repoPath("/commits/" + url.PathEscape(ref) + "/check-runs")
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get checks for %s: %w", ref, err)
	}
	return out.CheckRuns, nil
}

// GetPRReviews lists reviews on a pull request.
func (c *Client) GetPRReviews(ctx context.Context, number int) ([]Review, error) {
	var reviews []Review
	path := c.repoPath(fmt.Sprintf("/pulls/%d/reviews", number))
	if err := c.do(ctx, http.MethodGet, path, nil, &reviews); err != nil {
		return nil, fmt.Errorf("get reviews for PR #%d: %w", number, err)
	}
	return reviews, nil
}

// GetPRComments lists issue-style comments on a pull request.
func (c *Client) GetPRComments(ctx context.Context, number int) ([]Comment, error) {
	var comments []Comment
	path := c.repoPath(fmt.Sprintf("/issues/%d/comments", number))
	if err := c.do(ctx, http.MethodGet, path, nil, &comments); err != nil {
		return nil, fmt.Errorf("get comments for PR #%d: %w", number, err)
	}
	return comments, nil
}

// MergePullRequest merges a pull request. A 405 means the PR is not
// mergeable (blocked by checks or reviews); a 409 means the head branch
// conflicts with base. Both get distinct error types so callers can react.
func (c *Client) MergePullRequest(ctx context.Context, number int, method string) error {
	if method == "" {
		method = "squash"
	}
	payload := map[string]string{"merge_method": method}
	path := c.repoPath(fmt.Sprintf("/pulls/%d/merge", number))
	err := c.do(ctx, http.MethodPut, path, payload, nil)
	if err == nil {
		return nil
	}

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusMethodNotAllowed:
			return &ErrMergeBlocked{PR: number, Detail: apiErr.Body}
		case http.StatusConflict:
			return &ErrMergeConflict{PR: number}
		}
	}
	return fmt.Errorf("merge PR #%d: %w", number, err)
}

// GetWorkflowRuns lists CI workflow runs for a branch, most recent first.
func (c *Client) GetWorkflowRuns(ctx context.Context, branch string) ([]WorkflowRun, error) {
	var out struct {
		WorkflowRuns []WorkflowRun `json:"workflow_runs"`
	}
	path := c.repoPath("/actions/runs?branch=" + url.QueryEscape(branch) + "&per_page=20")
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get workflow runs for %s: %w", branch, err)
	}
	return out.WorkflowRuns, nil
}

// GetWorkflowRunLogs fetches the raw logs of a workflow run. Runs whose
// logs have expired (404) yield an empty string, not an error.
func (c *Client) GetWorkflowRunLogs(ctx context.Context, runID int64) (string, error) {
	path := c.repoPath(fmt.Sprintf("/actions/runs/%d/logs", runID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("get run logs %d: %w", runID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read run logs: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apiError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return string(data), nil
}
