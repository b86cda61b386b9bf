package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/itstheanurag/codejudge/internal/evaluation"
	"github.com/jackc/pgx/v5"
)

// Store implements the evaluation collaborators on PostgreSQL.
type Store struct {
	db *Database
}

func NewStore(db *Database) *Store {
	return &Store{db: db}
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, evaluation.ErrNotFound)
	}
	return fmt.Errorf("loading %s %d: %w", what, id, err)
}

func (s *Store) Problem(ctx context.Context, id int64) (*evaluation.Problem, error) {
	var (
		p                      evaluation.Problem
		java, python, jsSource string
	)
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, title, time_limit_ms, memory_limit_mb,
		       COALESCE(starter_code_java, ''), COALESCE(starter_code_python, ''),
		       COALESCE(starter_code_javascript, ''), COALESCE(tags, '{}')
		FROM problems WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.TimeLimitMs, &p.MemoryLimitMb, &java, &python, &jsSource, &p.Tags)
	if err != nil {
		return nil, notFound(err, "problem", id)
	}
	p.StarterCode = map[string]string{
		"java":       java,
		"python":     python,
		"javascript": jsSource,
	}
	return &p, nil
}

func (s *Store) testCases(ctx context.Context, query string, args ...any) ([]evaluation.TestCase, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (evaluation.TestCase, error) {
		var tc evaluation.TestCase
		err := row.Scan(&tc.ID, &tc.Input, &tc.ExpectedOutput, &tc.Sample)
		return tc, err
	})
}

func (s *Store) TestCases(ctx context.Context, problemID int64) ([]evaluation.TestCase, error) {
	return s.testCases(ctx, `
		SELECT id, input, expected_output, is_sample
		FROM test_cases WHERE problem_id = $1
		ORDER BY order_index, id`, problemID)
}

func (s *Store) SampleTestCases(ctx context.Context, problemID int64) ([]evaluation.TestCase, error) {
	return s.testCases(ctx, `
		SELECT id, input, expected_output, is_sample
		FROM test_cases WHERE problem_id = $1 AND is_sample
		ORDER BY order_index, id`, problemID)
}

func (s *Store) CustomTestCases(ctx context.Context, problemID, userID int64) ([]evaluation.TestCase, error) {
	cases, err := s.testCases(ctx, `
		SELECT id, input, expected_output, false
		FROM custom_test_cases WHERE problem_id = $1 AND user_id = $2
		ORDER BY created_at, id`, problemID, userID)
	for i := range cases {
		cases[i].Custom = true
	}
	return cases, err
}

func (s *Store) CreateSubmission(ctx context.Context, sub *evaluation.Submission) (int64, error) {
	var id int64
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO submissions (user_id, problem_id, code, language, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		sub.UserID, sub.ProblemID, sub.Code, sub.Language, string(sub.Status), sub.SubmittedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting submission: %w", err)
	}
	return id, nil
}

func (s *Store) Submission(ctx context.Context, id int64) (*evaluation.Submission, error) {
	var (
		sub    evaluation.Submission
		status string
	)
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, problem_id, code, language, status,
		       COALESCE(runtime_ms, 0), COALESCE(memory_kb, 0), submitted_at
		FROM submissions WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Code, &sub.Language, &status,
		&sub.RuntimeMs, &sub.MemoryKb, &sub.SubmittedAt)
	if err != nil {
		return nil, notFound(err, "submission", id)
	}
	sub.Status = evaluation.Status(status)
	return &sub, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, status evaluation.Status) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE submissions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("updating submission %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submission %d: %w", id, evaluation.ErrNotFound)
	}
	return nil
}

var testResultColumns = []string{
	"submission_id", "test_case_id", "is_custom", "passed",
	"actual_output", "error_message", "runtime_ms", "memory_kb",
}

// SaveResult updates the submission and stores its test results in one
// transaction.
func (s *Store) SaveResult(ctx context.Context, res *evaluation.Result) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		return saveResult(ctx, tx, res)
	})
}

// saveResult writes the verdict and replaces the per-case rows of a
// previous run.
func saveResult(ctx context.Context, tx pgx.Tx, res *evaluation.Result) error {
	tag, err := tx.Exec(ctx, `
		UPDATE submissions SET status = $2, runtime_ms = $3, memory_kb = $4
		WHERE id = $1`,
		res.SubmissionID, string(res.Status), res.MaxRuntimeMs, res.MaxMemoryKb)
	if err != nil {
		return fmt.Errorf("updating submission %d: %w", res.SubmissionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submission %d: %w", res.SubmissionID, evaluation.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM test_results WHERE submission_id = $1`, res.SubmissionID); err != nil {
		return fmt.Errorf("clearing test results of %d: %w", res.SubmissionID, err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"test_results"},
		testResultColumns,
		pgx.CopyFromSlice(len(res.Tests), func(i int) ([]any, error) {
			tr := res.Tests[i]
			return []any{
				res.SubmissionID, tr.TestCaseID, tr.Custom, tr.Passed,
				tr.Actual, tr.Error, tr.RuntimeMs, tr.MemoryKb,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("inserting test results: %w", err)
	}
	return nil
}

func (s *Store) MarkProgress(ctx context.Context, userID, problemID int64, p evaluation.Progress) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO user_problem_status (user_id, problem_id, status, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, problem_id) DO UPDATE SET
			status = CASE WHEN user_problem_status.status = 'SOLVED'
			              THEN user_problem_status.status ELSE EXCLUDED.status END,
			updated_at = now()`,
		userID, problemID, string(p))
	if err != nil {
		return fmt.Errorf("updating progress: %w", err)
	}
	return nil
}
