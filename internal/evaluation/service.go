package evaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/itstheanurag/codejudge/internal/harness"
	"github.com/itstheanurag/codejudge/internal/languages"
	"github.com/itstheanurag/codejudge/internal/limits"
	"github.com/itstheanurag/codejudge/internal/metrics"
	"github.com/itstheanurag/codejudge/internal/sandbox"
	"github.com/itstheanurag/codejudge/internal/signature"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrNoQueue = errors.New("no evaluation queue configured")

// Stores groups the persistence collaborators.
type Stores struct {
	Problems    ProblemStore
	TestCases   TestCaseStore
	Submissions SubmissionStore
	Progress    ProgressStore
}

type Service struct {
	stores      Stores
	executor    sandbox.Executor
	languages   *languages.Registry
	emitters    *harness.Registry
	policy      limits.Policy
	queue       Enqueuer
	parallelism int
	logger      *zerolog.Logger
}

type Option func(*Service)

// WithParallelism runs up to n test cases of one evaluation at a time.
func WithParallelism(n int) Option {
	return func(s *Service) { s.parallelism = max(n, 1) }
}

func WithEnqueuer(q Enqueuer) Option {
	return func(s *Service) { s.queue = q }
}

func NewService(stores Stores, exec sandbox.Executor, langs *languages.Registry, emitters *harness.Registry, policy limits.Policy, logger *zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		stores:      stores,
		executor:    exec,
		languages:   langs,
		emitters:    emitters,
		policy:      policy,
		parallelism: 1,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// program is a submission ready to run: the harness wrapped around the
// user's code, or the code itself when the problem has no declaration for
// the language.
type program struct {
	language string
	source   string
	method   string
	ret      signature.DataType
}

func (s *Service) prepare(problem *Problem, language, code string) (*program, error) {
	lang, err := s.languages.Get(language)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sandbox.ErrValidation, err)
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: code is empty", sandbox.ErrValidation)
	}
	if len(code) > s.policy.MaxCodeBytes() {
		return nil, fmt.Errorf("%w: code is %d bytes, limit is %d", sandbox.ErrValidation, len(code), s.policy.MaxCodeBytes())
	}

	p := &program{language: lang.ID, source: code}
	starter := strings.TrimSpace(problem.StarterCode[lang.ID])
	if starter == "" {
		return p, nil
	}

	emitter, err := s.emitters.Get(lang.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sandbox.ErrValidation, lang.ID, err)
	}
	sig, err := emitter.ParseSignature(starter)
	if err != nil {
		return nil, fmt.Errorf("problem %d %s declaration: %w", problem.ID, lang.ID, err)
	}
	prog, err := emitter.Build(sig, code)
	if err != nil {
		return nil, fmt.Errorf("problem %d %s harness: %w", problem.ID, lang.ID, err)
	}

	p.source = prog.Source()
	p.method = starter
	if !sig.Void {
		p.ret = sig.Return
	}
	return p, nil
}

// collect returns the built-in cases followed by the user's custom ones.
func (s *Service) collect(ctx context.Context, problemID, userID int64) ([]TestCase, error) {
	builtin, err := s.stores.TestCases.TestCases(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("loading test cases: %w", err)
	}
	custom, err := s.stores.TestCases.CustomTestCases(ctx, problemID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading custom test cases: %w", err)
	}
	cases := make([]TestCase, 0, len(builtin)+len(custom))
	cases = append(cases, builtin...)
	for _, tc := range custom {
		tc.Custom = true
		cases = append(cases, tc)
	}
	return cases, nil
}

func (s *Service) newJudge(m mode, p *program, problem *Problem) judge {
	return judge{
		mode:        m,
		ret:         p.ret,
		timeLimitMs: s.policy.TimeLimit(problem.TimeLimitMs),
		memLimitMb:  s.policy.MemoryLimit(problem.MemoryLimitMb),
	}
}

// execute runs cases and returns their results in case order. Once a case
// stops the judge, later cases are not started; their slots stay nil.
func (s *Service) execute(ctx context.Context, p *program, j judge, cases []TestCase) ([]*sandbox.Result, error) {
	results := make([]*sandbox.Result, len(cases))
	run := func(ctx context.Context, i int) error {
		res, err := s.executor.Run(ctx, sandbox.Request{
			Code:          p.source,
			Language:      p.language,
			Method:        p.method,
			Stdin:         cases[i].Input,
			TimeLimitMs:   j.timeLimitMs,
			MemoryLimitMb: j.memLimitMb,
		})
		if err != nil {
			return fmt.Errorf("test case %d: %w", cases[i].ID, err)
		}
		results[i] = res
		return nil
	}

	if s.parallelism <= 1 {
		for i := range cases {
			if err := run(ctx, i); err != nil {
				return nil, err
			}
			if j.stops(j.verdict(cases[i], results[i])) {
				break
			}
		}
		return results, nil
	}

	var stopAt atomic.Int64
	stopAt.Store(int64(len(cases)))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range cases {
		g.Go(func() error {
			if int64(i) > stopAt.Load() {
				return nil
			}
			if err := run(gctx, i); err != nil {
				return err
			}
			if j.stops(j.verdict(cases[i], results[i])) {
				for {
					cur := stopAt.Load()
					if int64(i) >= cur || stopAt.CompareAndSwap(cur, int64(i)) {
						break
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Evaluate judges a stored submission against all built-in cases plus the
// author's custom cases, persists the outcome and updates user progress.
// A submission that already has a final verdict is left untouched and
// ErrAlreadyJudged is returned. If ctx is cancelled mid-run the submission
// stays RUNNING so a redelivery judges it again; any other error leaves it in
// SYSTEM_ERROR.
func (s *Service) Evaluate(ctx context.Context, submissionID int64) (res *Result, err error) {
	start := time.Now()
	sub, err := s.stores.Submissions.Submission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("loading submission %d: %w", submissionID, err)
	}
	if sub.Status.Terminal() {
		return nil, fmt.Errorf("submission %d is %s: %w", sub.ID, sub.Status, ErrAlreadyJudged)
	}
	defer func() {
		switch {
		case err == nil:
		case ctx.Err() != nil:
			err = errors.Join(ctx.Err(), err)
			s.logger.Warn().Err(err).Int64("submission_id", sub.ID).Msg("evaluation interrupted")
		default:
			s.markSystemError(ctx, sub, err)
		}
	}()

	problem, err := s.stores.Problems.Problem(ctx, sub.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("loading problem %d: %w", sub.ProblemID, err)
	}
	cases, err := s.collect(ctx, problem.ID, sub.UserID)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("problem %d: %w", problem.ID, ErrNoTestCases)
	}
	p, err := s.prepare(problem, sub.Language, sub.Code)
	if err != nil {
		return nil, err
	}

	if err := s.stores.Submissions.UpdateStatus(ctx, sub.ID, StatusRunning); err != nil {
		return nil, fmt.Errorf("marking submission running: %w", err)
	}
	s.logger.Info().
		Int64("submission_id", sub.ID).
		Int64("problem_id", problem.ID).
		Str("language", p.language).
		Int("test_cases", len(cases)).
		Msg("evaluation started")

	j := s.newJudge(modeSubmit, p, problem)
	results, err := s.execute(ctx, p, j, cases)
	if err != nil {
		return nil, err
	}
	res = j.fold(cases, results)
	res.SubmissionID = sub.ID
	res.ProblemID = problem.ID

	if err := s.stores.Submissions.SaveResult(ctx, res); err != nil {
		return nil, fmt.Errorf("saving result: %w", err)
	}

	progress := ProgressAttempted
	if res.Status == StatusAccepted {
		progress = ProgressSolved
	}
	if err := s.stores.Progress.MarkProgress(ctx, sub.UserID, problem.ID, progress); err != nil {
		s.logger.Warn().Err(err).Int64("submission_id", sub.ID).Msg("failed to update user progress")
	}

	elapsed := time.Since(start)
	metrics.EvaluationsTotal.WithLabelValues(p.language, string(res.Status)).Inc()
	metrics.EvaluationDuration.Observe(float64(elapsed.Milliseconds()))
	s.logger.Info().
		Int64("submission_id", sub.ID).
		Str("status", string(res.Status)).
		Int("passed", res.Passed).
		Int("total", res.Total).
		Int64("max_runtime_ms", res.MaxRuntimeMs).
		Int64("max_memory_kb", res.MaxMemoryKb).
		Dur("elapsed", elapsed).
		Msg("evaluation complete")
	return res, nil
}

func (s *Service) markSystemError(ctx context.Context, sub *Submission, cause error) {
	metrics.EvaluationsTotal.WithLabelValues(sub.Language, string(StatusSystemError)).Inc()
	s.logger.Error().Err(cause).Int64("submission_id", sub.ID).Msg("evaluation aborted")

	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.stores.Submissions.UpdateStatus(uctx, sub.ID, StatusSystemError); err != nil {
		s.logger.Warn().Err(err).Int64("submission_id", sub.ID).Msg("failed to mark submission as system error")
	}
}

type DryRunRequest struct {
	ProblemID int64
	UserID    int64
	Language  string
	Code      string
	// All runs every built-in case plus the user's custom cases instead of
	// only the samples.
	All bool
}

// DryRun judges code without creating a submission. Nothing is persisted.
func (s *Service) DryRun(ctx context.Context, req DryRunRequest) (*Result, error) {
	problem, err := s.stores.Problems.Problem(ctx, req.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("loading problem %d: %w", req.ProblemID, err)
	}

	var cases []TestCase
	if req.All {
		cases, err = s.collect(ctx, problem.ID, req.UserID)
	} else {
		cases, err = s.stores.TestCases.SampleTestCases(ctx, problem.ID)
	}
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("problem %d: %w", problem.ID, ErrNoTestCases)
	}

	p, err := s.prepare(problem, req.Language, req.Code)
	if err != nil {
		return nil, err
	}
	j := s.newJudge(modeDryRun, p, problem)
	results, err := s.execute(ctx, p, j, cases)
	if err != nil {
		return nil, err
	}
	res := j.fold(cases, results)
	res.ProblemID = problem.ID

	s.logger.Info().
		Int64("problem_id", problem.ID).
		Str("language", p.language).
		Int("passed", res.Passed).
		Int("total", res.Total).
		Msg("dry run complete")
	return res, nil
}

// Submit validates and stores a new submission, then queues it. The
// verdict becomes visible on the submission once a worker finishes it.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Submission, error) {
	if s.queue == nil {
		return nil, ErrNoQueue
	}
	problem, err := s.stores.Problems.Problem(ctx, sub.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("loading problem %d: %w", sub.ProblemID, err)
	}
	p, err := s.prepare(problem, sub.Language, sub.Code)
	if err != nil {
		return nil, err
	}

	sub.Language = p.language
	sub.Status = StatusPending
	sub.SubmittedAt = time.Now().UTC()
	id, err := s.stores.Submissions.CreateSubmission(ctx, &sub)
	if err != nil {
		return nil, fmt.Errorf("creating submission: %w", err)
	}
	sub.ID = id

	if err := s.queue.Enqueue(ctx, id); err != nil {
		s.markSystemError(ctx, &sub, err)
		return nil, fmt.Errorf("queueing submission %d: %w", id, err)
	}
	s.logger.Debug().Int64("submission_id", id).Msg("submission queued")
	return &sub, nil
}
