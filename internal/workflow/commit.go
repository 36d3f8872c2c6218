package workflow

import "fmt"

// commitAndPushFix stages everything, and commits and pushes only when
// the staged diff is non-empty. A fix attempt that changed no files
// produces no commit and no push.
func (w *Workflow) commitAndPushFix(number int, message string) error {
	if err := w.git.StageAll(); err != nil {
		return fmt.Errorf("stage fix: %w", err)
	}

	hasChanges, err := w.git.HasStagedChanges()
	if err != nil {
		return fmt.Errorf("check staged fix: %w", err)
	}
	if !hasChanges {
		return nil
	}

	if err := w.git.Commit(message); err != nil {
		return fmt.Errorf("commit fix: %w", err)
	}

	wi, ok := w.store.Get(number)
	if !ok {
		return fmt.Errorf("issue #%d not in store", number)
	}
	if err := w.git.PushBranch(wi.BranchName, false); err != nil {
		return fmt.Errorf("push fix: %w", err)
	}
	return nil
}
