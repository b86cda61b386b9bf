// Package store holds in-process implementations of the evaluation
// collaborators, used by the CLI dry run and by tests.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/itstheanurag/codejudge/internal/evaluation"
)

type userProblem struct {
	userID    int64
	problemID int64
}

// Memory implements every evaluation store interface over maps.
type Memory struct {
	mu          sync.RWMutex
	problems    map[int64]evaluation.Problem
	tests       map[int64][]evaluation.TestCase
	custom      map[userProblem][]evaluation.TestCase
	submissions map[int64]evaluation.Submission
	results     map[int64]evaluation.Result
	progress    map[userProblem]evaluation.Progress
	lastID      int64
}

func NewMemory() *Memory {
	return &Memory{
		problems:    make(map[int64]evaluation.Problem),
		tests:       make(map[int64][]evaluation.TestCase),
		custom:      make(map[userProblem][]evaluation.TestCase),
		submissions: make(map[int64]evaluation.Submission),
		results:     make(map[int64]evaluation.Result),
		progress:    make(map[userProblem]evaluation.Progress),
	}
}

func (m *Memory) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *Memory) AddProblem(p evaluation.Problem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.problems[p.ID] = p
}

// AddTestCase appends a built-in case, assigning an id when it has none.
func (m *Memory) AddTestCase(problemID int64, tc evaluation.TestCase) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tc.ID == 0 {
		tc.ID = m.nextID()
	}
	tc.Custom = false
	m.tests[problemID] = append(m.tests[problemID], tc)
	return tc.ID
}

func (m *Memory) AddCustomTestCase(problemID, userID int64, tc evaluation.TestCase) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tc.ID == 0 {
		tc.ID = m.nextID()
	}
	tc.Custom = true
	tc.Sample = false
	key := userProblem{userID, problemID}
	m.custom[key] = append(m.custom[key], tc)
	return tc.ID
}

func (m *Memory) Problem(_ context.Context, id int64) (*evaluation.Problem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.problems[id]
	if !ok {
		return nil, fmt.Errorf("problem %d: %w", id, evaluation.ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) TestCases(_ context.Context, problemID int64) ([]evaluation.TestCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tests[problemID]), nil
}

func (m *Memory) SampleTestCases(_ context.Context, problemID int64) ([]evaluation.TestCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []evaluation.TestCase
	for _, tc := range m.tests[problemID] {
		if tc.Sample {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (m *Memory) CustomTestCases(_ context.Context, problemID, userID int64) ([]evaluation.TestCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.custom[userProblem{userID, problemID}]), nil
}

func (m *Memory) CreateSubmission(_ context.Context, sub *evaluation.Submission) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *sub
	s.ID = m.nextID()
	m.submissions[s.ID] = s
	return s.ID, nil
}

func (m *Memory) Submission(_ context.Context, id int64) (*evaluation.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %d: %w", id, evaluation.ErrNotFound)
	}
	return &s, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id int64, status evaluation.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return fmt.Errorf("submission %d: %w", id, evaluation.ErrNotFound)
	}
	s.Status = status
	m.submissions[id] = s
	return nil
}

func (m *Memory) SaveResult(_ context.Context, res *evaluation.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[res.SubmissionID]
	if !ok {
		return fmt.Errorf("submission %d: %w", res.SubmissionID, evaluation.ErrNotFound)
	}
	s.Status = res.Status
	s.RuntimeMs = res.MaxRuntimeMs
	s.MemoryKb = res.MaxMemoryKb
	m.submissions[s.ID] = s

	saved := *res
	saved.Tests = slices.Clone(res.Tests)
	m.results[s.ID] = saved
	return nil
}

// Result returns the stored judgement of a submission.
func (m *Memory) Result(submissionID int64) (*evaluation.Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[submissionID]
	if !ok {
		return nil, false
	}
	return &r, true
}

func (m *Memory) MarkProgress(_ context.Context, userID, problemID int64, p evaluation.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userProblem{userID, problemID}
	if m.progress[key] == evaluation.ProgressSolved {
		return nil
	}
	m.progress[key] = p
	return nil
}

func (m *Memory) ProgressOf(userID, problemID int64) evaluation.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress[userProblem{userID, problemID}]
}
