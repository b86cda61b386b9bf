// Package evaluation judges submissions: it runs the generated harness
// against every test case of a problem and folds the per-case outcomes
// into one verdict.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itstheanurag/codejudge/internal/sandbox"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrAlreadyJudged is returned when a submission already has a final verdict.
	ErrAlreadyJudged = errors.New("submission already judged")
	// ErrNoTestCases is a validation error: nothing would be judged.
	ErrNoTestCases = fmt.Errorf("%w: no test cases available", sandbox.ErrValidation)
)

type Status string

const (
	StatusPending          Status = "PENDING"
	StatusRunning          Status = "RUNNING"
	StatusAccepted         Status = "ACCEPTED"
	StatusWrongAnswer      Status = "WRONG_ANSWER"
	StatusCompilationError Status = "COMPILATION_ERROR"
	StatusRuntimeError     Status = "RUNTIME_ERROR"
	StatusTimeLimit        Status = "TIME_LIMIT_EXCEEDED"
	StatusMemoryLimit      Status = "MEMORY_LIMIT_EXCEEDED"
	StatusSystemError      Status = "SYSTEM_ERROR"
)

// Terminal reports whether a submission in status s is finished.
func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusRunning && s != ""
}

type Progress string

const (
	ProgressSolved    Progress = "SOLVED"
	ProgressAttempted Progress = "ATTEMPTED"
)

type Problem struct {
	ID            int64
	Title         string
	TimeLimitMs   int
	MemoryLimitMb int
	// StarterCode holds the declaration of the function to implement,
	// keyed by language id.
	StarterCode map[string]string
	Tags        []string
}

type TestCase struct {
	ID             int64
	Input          string
	ExpectedOutput string
	Sample         bool
	Custom         bool
}

type Submission struct {
	ID          int64
	UserID      int64
	ProblemID   int64
	Code        string
	Language    string
	Status      Status
	RuntimeMs   int64
	MemoryKb    int64
	SubmittedAt time.Time
}

type TestResult struct {
	TestCaseID int64
	Custom     bool
	Passed     bool
	Verdict    Status
	Input      string
	Expected   string
	Actual     string
	Error      string
	RuntimeMs  int64
	MemoryKb   int64
}

// Result is the aggregate judgement. Tests holds only the cases that were
// judged; Total counts every case that was collected.
type Result struct {
	SubmissionID int64
	ProblemID    int64
	Status       Status
	Total        int
	Passed       int
	MaxRuntimeMs int64
	MaxMemoryKb  int64
	Tests        []TestResult
}

type ProblemStore interface {
	Problem(ctx context.Context, id int64) (*Problem, error)
}

type TestCaseStore interface {
	// TestCases returns the built-in cases of a problem in their fixed order.
	TestCases(ctx context.Context, problemID int64) ([]TestCase, error)
	SampleTestCases(ctx context.Context, problemID int64) ([]TestCase, error)
	CustomTestCases(ctx context.Context, problemID, userID int64) ([]TestCase, error)
}

type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub *Submission) (int64, error)
	Submission(ctx context.Context, id int64) (*Submission, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// SaveResult stores the final status, metrics and per-case records.
	SaveResult(ctx context.Context, res *Result) error
}

type ProgressStore interface {
	// MarkProgress records p for the user. Implementations never replace
	// SOLVED with ATTEMPTED.
	MarkProgress(ctx context.Context, userID, problemID int64, p Progress) error
}

// Enqueuer schedules a stored submission for asynchronous evaluation.
type Enqueuer interface {
	Enqueue(ctx context.Context, submissionID int64) error
}
