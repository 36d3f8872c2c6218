package workflow

import (
	"context"
	"testing"

	"github.com/specforge/specforge/internal/checks"
)

func TestPrecommitPassFirstTry(t *testing.T) {
	w, _, _, chk := newTestWorkflow(testWorkflowConfig())
	addIssue(w, 1, "A", nil)

	impl := &implRecorder{}
	ok, err := w.runPrecommit(context.Background(), 1, impl.fn)
	if err != nil {
		t.Fatalf("runPrecommit: %v", err)
	}
	if !ok {
		t.Error("expected pass")
	}
	if chk.calls != 1 {
		t.Errorf("check calls = %d, want 1", chk.calls)
	}
	if len(impl.calls) != 0 {
		t.Errorf("impl must not be called on a clean pass: %+v", impl.calls)
	}
}

func TestPrecommitFailOnceThenPass(t *testing.T) {
	w, _, _, chk := newTestWorkflow(testWorkflowConfig())
	addIssue(w, 1, "A", nil)
	chk.results = []*checks.Result{
		{CheckName: "precommit", Passed: false, ExitCode: 1, Stdout: "lint: unused variable"},
		{CheckName: "precommit", Passed: true},
	}

	impl := &implRecorder{}
	ok, err := w.runPrecommit(context.Background(), 1, impl.fn)
	if err != nil {
		t.Fatalf("runPrecommit: %v", err)
	}
	if !ok {
		t.Error("expected eventual pass")
	}

	wi, _ := w.store.Get(1)
	if wi.FixAttempts != 1 {
		t.Errorf("FixAttempts = %d, want 1", wi.FixAttempts)
	}
	if len(impl.calls) != 1 {
		t.Fatalf("impl calls = %d, want 1", len(impl.calls))
	}
	if impl.calls[0].feedback != "lint: unused variable" {
		t.Errorf("feedback = %q, want captured check output", impl.calls[0].feedback)
	}
}

func TestPrecommitAlwaysFailsBudgetOne(t *testing.T) {
	cfg := testWorkflowConfig()
	cfg.MaxFixAttempts = 1
	w, _, _, chk := newTestWorkflow(cfg)
	addIssue(w, 1, "A", nil)
	chk.results = []*checks.Result{
		{CheckName: "precommit", Passed: false, ExitCode: 1, Stderr: "tests failed"},
		{CheckName: "precommit", Passed: false, ExitCode: 1, Stderr: "tests failed"},
	}

	impl := &implRecorder{}
	ok, err := w.runPrecommit(context.Background(), 1, impl.fn)
	if err != nil {
		t.Fatalf("runPrecommit: %v", err)
	}
	if ok {
		t.Error("expected failure")
	}

	wi, _ := w.store.Get(1)
	if wi.Status != StatusPrecommitFailed {
		t.Errorf("status = %s, want precommit_failed", wi.Status)
	}
	if wi.ErrorMessage != "tests failed" {
		t.Errorf("ErrorMessage = %q", wi.ErrorMessage)
	}
	if chk.calls != 1 {
		t.Errorf("check calls = %d, want 1 (budget of one run)", chk.calls)
	}
	if len(impl.calls) != 0 {
		t.Errorf("no fix round fits in a budget of one: %+v", impl.calls)
	}
}

func TestPrecommitExhaustsBudget(t *testing.T) {
	cfg := testWorkflowConfig()
	cfg.MaxFixAttempts = 3
	w, _, _, chk := newTestWorkflow(cfg)
	addIssue(w, 1, "A", nil)
	chk.results = []*checks.Result{
		{CheckName: "precommit", Passed: false, ExitCode: 1, Stdout: "fail 1"},
		{CheckName: "precommit", Passed: false, ExitCode: 1, Stdout: "fail 2"},
		{CheckName: "precommit", Passed: false, ExitCode: 1, Stdout: "fail 3"},
	}

	impl := &implRecorder{}
	ok, _ := w.runPrecommit(context.Background(), 1, impl.fn)
	if ok {
		t.Error("expected failure")
	}

	wi, _ := w.store.Get(1)
	if wi.Status != StatusPrecommitFailed {
		t.Errorf("status = %s, want precommit_failed", wi.Status)
	}
	if chk.calls != 3 {
		t.Errorf("check calls = %d, want 3", chk.calls)
	}
	if len(impl.calls) != 2 {
		t.Errorf("impl calls = %d, want 2 fix rounds", len(impl.calls))
	}
	if wi.FixAttempts != 2 {
		t.Errorf("FixAttempts = %d, want 2", wi.FixAttempts)
	}
}

func TestPrecommitNoIterationRunsOnce(t *testing.T) {
	cfg := testWorkflowConfig()
	cfg.IterateOnPrecommit = false
	w, _, _, chk := newTestWorkflow(cfg)
	addIssue(w, 1, "A", nil)
	chk.results = []*checks.Result{
		{CheckName: "precommit", Passed: false, ExitCode: 1, Stdout: "fail"},
		{CheckName: "precommit", Passed: true},
	}

	impl := &implRecorder{}
	ok, _ := w.runPrecommit(context.Background(), 1, impl.fn)
	if ok {
		t.Error("expected single-run failure")
	}
	if chk.calls != 1 {
		t.Errorf("check calls = %d, want exactly 1 without iteration", chk.calls)
	}
	if len(impl.calls) != 0 {
		t.Errorf("impl must not be called without iteration: %+v", impl.calls)
	}
}

func TestPrecommitNoCommandConfigured(t *testing.T) {
	cfg := testWorkflowConfig()
	cfg.Precommit.Command = ""
	w, _, _, chk := newTestWorkflow(cfg)
	addIssue(w, 1, "A", nil)

	impl := &implRecorder{}
	ok, err := w.runPrecommit(context.Background(), 1, impl.fn)
	if err != nil || !ok {
		t.Fatalf("empty command should pass: ok=%v err=%v", ok, err)
	}
	if chk.calls != 0 {
		t.Errorf("no check should run, got %d", chk.calls)
	}
}
