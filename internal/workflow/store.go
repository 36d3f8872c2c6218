package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/specforge/specforge/internal/github"
)

// Store holds every WorkflowIssue for a run, keyed by issue number.
// Concurrent pipelines each mutate only their own record, but readiness
// scans need a consistent snapshot, so all access goes through the mutex.
type Store struct {
	mu     sync.RWMutex
	issues map[int]*WorkflowIssue
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{issues: make(map[int]*WorkflowIssue)}
}

// Add registers an issue with its dependency list, starting as queued.
func (s *Store) Add(issue *github.Issue, deps []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues[issue.Number] = &WorkflowIssue{
		Issue:        issue,
		Status:       StatusQueued,
		Dependencies: append([]int(nil), deps...),
	}
}

// Get returns a copy of the record for an issue number.
func (s *Store) Get(number int) (WorkflowIssue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wi, ok := s.issues[number]
	if !ok {
		return WorkflowIssue{}, false
	}
	return *wi, true
}

// Update performs an atomic read-modify-write of an issue's record.
func (s *Store) Update(number int, fn func(*WorkflowIssue)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wi, ok := s.issues[number]
	if !ok {
		return fmt.Errorf("issue #%d not in store", number)
	}
	fn(wi)
	return nil
}

// ReadyIssues returns copies of every queued issue whose dependencies
// have all merged. Order is by issue number for determinism; callers
// must not rely on it.
func (s *Store) ReadyIssues() []WorkflowIssue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ready []WorkflowIssue
	for _, wi := range s.issues {
		if wi.Status != StatusQueued {
			continue
		}
		ok := true
		for _, dep := range wi.Dependencies {
			d, exists := s.issues[dep]
			if !exists || d.Status != StatusMerged {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, *wi)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return ready[i].Issue.Number < ready[j].Issue.Number
	})
	return ready
}

// StatusSummary returns per-status counts plus a total_issues entry.
func (s *Store) StatusSummary() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := make(map[string]int)
	for _, wi := range s.issues {
		summary[string(wi.Status)]++
	}
	summary["total_issues"] = len(s.issues)
	return summary
}

// Numbers returns every issue number in the store, sorted.
func (s *Store) Numbers() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nums := make([]int, 0, len(s.issues))
	for n := range s.issues {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// SaveSnapshot writes the full store state to path as indented JSON. The
// bytes go to a sibling .tmp file first and land via rename, so a crash
// mid-write never leaves a truncated snapshot at path.
func (s *Store) SaveSnapshot(path string) error {
	s.mu.RLock()
	snapshot := make(map[int]WorkflowIssue, len(s.issues))
	for n, wi := range s.issues {
		snapshot[n] = *wi
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot file written by SaveSnapshot.
func LoadSnapshot(path string) (map[int]WorkflowIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snapshot map[int]WorkflowIssue
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snapshot, nil
}
