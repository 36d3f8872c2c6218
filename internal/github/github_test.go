package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-token", "example", "my-app").WithBaseURL(srv.URL)
	return c, srv
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		in        string
		owner     string
		repo      string
		expectErr bool
	}{
		{"https://github.com/example/my-app", "example", "my-app", false},
		{"https://github.com/example/my-app.git", "example", "my-app", false},
		{"https://github.com/example/my-app/", "example", "my-app", false},
		{"git@github.com:example/my-app.git", "example", "my-app", false},
		{"example/my-app", "example", "my-app", false},
		{"just-a-name", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		owner, repo, err := ParseRepoURL(tt.in)
		if tt.expectErr {
			if err == nil {
				t.Errorf("ParseRepoURL(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRepoURL(%q): %v", tt.in, err)
			continue
		}
		if owner != tt.owner || repo != tt.repo {
			t.Errorf("ParseRepoURL(%q) = (%q, %q), want (%q, %q)", tt.in, owner, repo, tt.owner, tt.repo)
		}
	}
}

func TestValidateToken(t *testing.T) {
	var gotAuth string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/user" {
			t.Errorf("path = %q, want /user", r.URL.Path)
		}
		fmt.Fprint(w, `{"login": "me"}`)
	}))

	if err := c.ValidateToken(context.Background()); err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestValidateTokenBad(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	}))

	if err := c.ValidateToken(context.Background()); err == nil {
		t.Fatal("expected error for bad token")
	}
}

func TestRepoExists(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/example/my-app" {
			fmt.Fprint(w, `{"name": "my-app"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	ok, err := c.RepoExists(context.Background())
	if err != nil {
		t.Fatalf("RepoExists: %v", err)
	}
	if !ok {
		t.Error("expected repo to exist")
	}
}

func TestRepoExistsNotFound(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))

	ok, err := c.RepoExists(context.Background())
	if err != nil {
		t.Fatalf("RepoExists: %v", err)
	}
	if ok {
		t.Error("expected repo to not exist")
	}
}

func TestCreateIssue(t *testing.T) {
	var gotBody map[string]interface{}
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/example/my-app/issues" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number": 7, "title": "Add login", "state": "open"}`)
	}))

	issue, err := c.CreateIssue(context.Background(), "Add login", "details", []string{"feature"}, 3)
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if issue.Number != 7 {
		t.Errorf("Number = %d, want 7", issue.Number)
	}
	if gotBody["title"] != "Add login" {
		t.Errorf("request title = %v", gotBody["title"])
	}
	if gotBody["milestone"] != float64(3) {
		t.Errorf("request milestone = %v", gotBody["milestone"])
	}
	labels, _ := gotBody["labels"].([]interface{})
	if len(labels) != 1 || labels[0] != "feature" {
		t.Errorf("request labels = %v", gotBody["labels"])
	}
}

func TestGetIssuesExcludesPullRequests(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "open" {
			t.Errorf("state = %q, want open", r.URL.Query().Get("state"))
		}
		fmt.Fprint(w, `[
			{"number": 1, "title": "A real issue"},
			{"number": 2, "title": "A PR in disguise", "pull_request": {}},
			{"number": 3, "title": "Another issue"}
		]`)
	}))

	issues, err := c.GetIssues(context.Background(), "")
	if err != nil {
		t.Fatalf("GetIssues: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("len(issues) = %d, want 2", len(issues))
	}
	if issues[0].Number != 1 || issues[1].Number != 3 {
		t.Errorf("issues = %+v", issues)
	}
}

func TestCloseIssue(t *testing.T) {
	var gotState string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/repos/example/my-app/issues/42" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotState = body["state"]
		fmt.Fprint(w, `{"number": 42, "state": "closed"}`)
	}))

	if err := c.CloseIssue(context.Background(), 42); err != nil {
		t.Fatalf("CloseIssue: %v", err)
	}
	if gotState != "closed" {
		t.Errorf("state = %q, want closed", gotState)
	}
}

func TestCreateMilestone(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number": 5, "title": "v1"}`)
	}))

	n, err := c.CreateMilestone(context.Background(), "v1", "first release")
	if err != nil {
		t.Fatalf("CreateMilestone: %v", err)
	}
	if n != 5 {
		t.Errorf("milestone number = %d, want 5", n)
	}
}

func TestCreateLabelAlreadyExists(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"code": "already_exists"}]}`)
	}))

	if err := c.CreateLabel(context.Background(), "feature", "00ff00", ""); err != nil {
		t.Fatalf("CreateLabel should ignore 422: %v", err)
	}
}

func TestCreateLabelOtherError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Forbidden"}`)
	}))

	if err := c.CreateLabel(context.Background(), "feature", "00ff00", ""); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestCreatePullRequest(t *testing.T) {
	var gotBody map[string]string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/example/my-app/pulls" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number": 12, "state": "open", "head": {"ref": "feature-x"}, "base": {"ref": "main"}}`)
	}))

	pr, err := c.CreatePullRequest(context.Background(), "Add X", "Closes #9", "feature-x", "main")
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}
	if pr.Number != 12 {
		t.Errorf("Number = %d, want 12", pr.Number)
	}
	if gotBody["head"] != "feature-x" || gotBody["base"] != "main" {
		t.Errorf("request = %v", gotBody)
	}
}

func TestGetPRChecks(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/example/my-app/commits/feature-x/check-runs" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"check_runs": [
			{"name": "build", "status": "completed", "conclusion": "success"},
			{"name": "coverage", "status": "completed", "conclusion": "failure"}
		]}`)
	}))

	checks, err := c.GetPRChecks(context.Background(), "feature-x")
	if err != nil {
		t.Fatalf("GetPRChecks: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("len(checks) = %d, want 2", len(checks))
	}
	if checks[1].Name != "coverage" || checks[1].Conclusion != "failure" {
		t.Errorf("checks[1] = %+v", checks[1])
	}
}

func TestGetPRReviewsAndComments(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/example/my-app/pulls/12/reviews":
			fmt.Fprint(w, `[{"user": {"login": "reviewer"}, "state": "APPROVED", "body": "LGTM"}]`)
		case "/repos/example/my-app/issues/12/comments":
			fmt.Fprint(w, `[{"user": {"login": "claude[bot]"}, "body": "Consider adding tests"}]`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))

	reviews, err := c.GetPRReviews(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetPRReviews: %v", err)
	}
	if len(reviews) != 1 || reviews[0].State != "APPROVED" {
		t.Errorf("reviews = %+v", reviews)
	}

	comments, err := c.GetPRComments(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetPRComments: %v", err)
	}
	if len(comments) != 1 || comments[0].User.Login != "claude[bot]" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestMergePullRequest(t *testing.T) {
	var gotMethod string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/repos/example/my-app/pulls/12/merge" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotMethod = body["merge_method"]
		fmt.Fprint(w, `{"merged": true}`)
	}))

	if err := c.MergePullRequest(context.Background(), 12, "squash"); err != nil {
		t.Fatalf("MergePullRequest: %v", err)
	}
	if gotMethod != "squash" {
		t.Errorf("merge_method = %q, want squash", gotMethod)
	}
}

func TestMergePullRequestBlocked(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprint(w, `{"message": "Pull Request is not mergeable"}`)
	}))

	err := c.MergePullRequest(context.Background(), 12, "squash")
	var blocked *ErrMergeBlocked
	if !errors.As(err, &blocked) {
		t.Fatalf("expected ErrMergeBlocked, got %v", err)
	}
	if blocked.PR != 12 {
		t.Errorf("PR = %d, want 12", blocked.PR)
	}
}

func TestMergePullRequestConflict(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message": "Head branch was modified"}`)
	}))

	err := c.MergePullRequest(context.Background(), 12, "squash")
	var conflict *ErrMergeConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrMergeConflict, got %v", err)
	}
}

func TestGetWorkflowRuns(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("branch") != "feature-x" {
			t.Errorf("branch = %q", r.URL.Query().Get("branch"))
		}
		fmt.Fprint(w, `{"workflow_runs": [
			{"id": 100, "status": "completed", "conclusion": "failure", "head_branch": "feature-x"}
		]}`)
	}))

	runs, err := c.GetWorkflowRuns(context.Background(), "feature-x")
	if err != nil {
		t.Fatalf("GetWorkflowRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != 100 || runs[0].Conclusion != "failure" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestGetWorkflowRunLogs(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "log line 1\nlog line 2\n")
	}))

	logs, err := c.GetWorkflowRunLogs(context.Background(), 100)
	if err != nil {
		t.Fatalf("GetWorkflowRunLogs: %v", err)
	}
	if logs != "log line 1\nlog line 2\n" {
		t.Errorf("logs = %q", logs)
	}
}

func TestGetWorkflowRunLogsExpired(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	logs, err := c.GetWorkflowRunLogs(context.Background(), 100)
	if err != nil {
		t.Fatalf("expired logs should not error: %v", err)
	}
	if logs != "" {
		t.Errorf("logs = %q, want empty", logs)
	}
}

func TestAPIErrorSnippet(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message": "boom"}`)
	}))

	_, err := c.GetPullRequest(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected apiError, got %T", err)
	}
	if apiErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}
