package sandbox

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/itstheanurag/codejudge/internal/languages"
	"github.com/itstheanurag/codejudge/internal/limits"
	"github.com/itstheanurag/codejudge/internal/metrics"
	"github.com/rs/zerolog"
)

// exitOOMKilled is the exit status of a process killed by SIGKILL, which
// inside a memory-capped container almost always means the OOM killer.
const exitOOMKilled = 137

// Launcher throttles container creation. The returned release must be
// called once the container is gone.
type Launcher interface {
	Acquire(ctx context.Context, language string) (release func(), err error)
}

// Handle identifies one launched container. Cleanup on a handle runs once.
type Handle struct {
	ID       string
	Name     string
	Language string
	once     sync.Once
}

type Manager struct {
	runtime       Runtime
	registry      *languages.Registry
	policy        limits.Policy
	launcher      Launcher
	logger        *zerolog.Logger
	statsInterval time.Duration
	stopTimeout   time.Duration
	newName       func() string
}

type Option func(*Manager)

func WithLauncher(l Launcher) Option {
	return func(m *Manager) { m.launcher = l }
}

// WithStatsInterval sets how often memory is sampled during a run. Zero
// disables sampling and memory is reported as 0.
func WithStatsInterval(d time.Duration) Option {
	return func(m *Manager) { m.statsInterval = d }
}

func WithStopTimeout(d time.Duration) Option {
	return func(m *Manager) { m.stopTimeout = d }
}

func NewManager(rt Runtime, registry *languages.Registry, policy limits.Policy, logger *zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		runtime:       rt,
		registry:      registry,
		policy:        policy,
		logger:        logger,
		statsInterval: 50 * time.Millisecond,
		newName:       func() string { return "judge-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes one request in a fresh container. User-code outcomes are
// reported through Result.Status; an error means the request was invalid
// (ErrValidation) or the runtime failed (ErrInfrastructure).
func (m *Manager) Run(ctx context.Context, req Request) (*Result, error) {
	lang, timeLimit, memLimit, err := m.validate(req)
	if err != nil {
		return nil, err
	}

	rt := lang.Resolve(req.Code)
	profile := NewProfile(m.policy, memLimit)
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}

	if m.launcher != nil {
		release, err := m.launcher.Acquire(ctx, lang.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: waiting for launch slot: %w", ErrInfrastructure, err)
		}
		defer release()
	}

	h, err := m.launch(ctx, lang.ID, rt.Image, profile)
	if h != nil {
		defer m.Cleanup(h)
	}
	if err != nil {
		return nil, err
	}

	res, err := m.execute(ctx, h, lang, rt, req.Code, req.Stdin, timeLimit, memLimit)
	if err != nil {
		return nil, err
	}

	metrics.ExecutionsTotal.WithLabelValues(lang.ID, string(res.Status)).Inc()
	if res.Metrics.MemoryKb > 0 {
		metrics.MemoryUsage.WithLabelValues(lang.ID).Observe(float64(res.Metrics.MemoryKb))
	}
	m.logger.Debug().
		Str("container", h.Name).
		Str("language", lang.ID).
		Str("method", req.Method).
		Str("status", string(res.Status)).
		Int64("runtime_ms", res.Metrics.RuntimeMs).
		Int64("memory_kb", res.Metrics.MemoryKb).
		Msg("execution finished")
	return res, nil
}

func (m *Manager) validate(req Request) (languages.Language, int, int, error) {
	if strings.TrimSpace(req.Code) == "" {
		return languages.Language{}, 0, 0, fmt.Errorf("%w: code is empty", ErrValidation)
	}
	if len(req.Code) > m.policy.MaxProgramBytes() {
		return languages.Language{}, 0, 0, fmt.Errorf("%w: code is %d bytes, limit is %d", ErrValidation, len(req.Code), m.policy.MaxProgramBytes())
	}
	if len(req.Stdin) > m.policy.MaxInputBytes() {
		return languages.Language{}, 0, 0, fmt.Errorf("%w: input is %d bytes, limit is %d", ErrValidation, len(req.Stdin), m.policy.MaxInputBytes())
	}
	lang, err := m.registry.Get(req.Language)
	if err != nil {
		return languages.Language{}, 0, 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return lang, m.policy.TimeLimit(req.TimeLimitMs), m.policy.MemoryLimit(req.MemoryLimitMb), nil
}

// launch creates and starts a container. The returned handle is non-nil
// whenever a container exists, even if err is set.
func (m *Manager) launch(ctx context.Context, language, image string, profile SecurityProfile) (*Handle, error) {
	start := time.Now()
	name := m.newName()
	id, err := m.runtime.Create(ctx, ContainerSpec{
		Name:       name,
		Image:      image,
		Cmd:        []string{"sleep", strconv.Itoa(m.policy.MaxContainerLifetimeSec)},
		WorkingDir: ScratchDir,
		Labels: map[string]string{
			"codejudge.managed":  "true",
			"codejudge.language": language,
		},
		Profile: profile,
	})
	if id == "" {
		if err == nil {
			err = errors.New("runtime returned no container id")
		}
		return nil, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}
	metrics.ActiveContainers.Inc()
	h := &Handle{ID: id, Name: name, Language: language}
	if err != nil {
		return h, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}

	if err := m.runtime.Start(ctx, id); err != nil {
		return h, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}

	metrics.ContainerCreationTime.Observe(float64(time.Since(start).Milliseconds()))
	m.logger.Debug().Str("container", name).Str("image", image).Msg("container started")
	return h, nil
}

func (m *Manager) execute(ctx context.Context, h *Handle, lang languages.Language, rt languages.Runtime, code, stdin string, timeLimitMs, memLimitMb int) (*Result, error) {
	if err := m.runtime.WriteFile(ctx, h.ID, path.Join(ScratchDir, rt.SourceFile), []byte(code)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}
	redirect := "/dev/null"
	if stdin != "" {
		if err := m.runtime.WriteFile(ctx, h.ID, path.Join(ScratchDir, InputFile), []byte(stdin)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInfrastructure, err)
		}
		redirect = InputFile
	}

	env := slices.Concat(rt.Env, []string{"HOME=" + ScratchDir, "TMPDIR=" + ScratchDir})

	if len(rt.Compile) > 0 {
		res, err := m.compile(ctx, h, lang, rt.Compile, env)
		if err != nil || res != nil {
			return res, err
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, m.policy.WallClock(timeLimitMs))
	defer cancel()

	stopSampling := m.sampleMemory(runCtx, h.ID)
	start := time.Now()
	out, err := m.runtime.Exec(runCtx, h.ID, ExecSpec{
		Cmd:        []string{"sh", "-c", strings.Join(rt.Run, " ") + " < " + redirect},
		Env:        env,
		WorkingDir: ScratchDir,
	})
	elapsed := time.Since(start).Milliseconds()
	peakKb := stopSampling()
	metrics.ExecutionDuration.WithLabelValues(lang.ID, "run").Observe(float64(elapsed))

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("execution abandoned: %w", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return &Result{
				Status:   StatusTimeLimit,
				ExitCode: -1,
				Stderr:   fmt.Sprintf("time limit of %d ms exceeded", timeLimitMs),
				Metrics:  Metrics{RuntimeMs: min(elapsed, m.policy.WallClock(timeLimitMs).Milliseconds())},
			}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}

	res := &Result{
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		ExitCode: out.ExitCode,
		Metrics:  Metrics{RuntimeMs: elapsed, MemoryKb: peakKb},
	}
	res.Status = Classify(lang, out.ExitCode, out.Stderr, res.Metrics, timeLimitMs, memLimitMb)
	return res, nil
}

// compile returns a non-nil result only when compilation failed.
func (m *Manager) compile(ctx context.Context, h *Handle, lang languages.Language, cmd, env []string) (*Result, error) {
	cctx, cancel := context.WithTimeout(ctx, m.policy.Lifetime())
	defer cancel()

	start := time.Now()
	out, err := m.runtime.Exec(cctx, h.ID, ExecSpec{Cmd: cmd, Env: env, WorkingDir: ScratchDir})
	metrics.ExecutionDuration.WithLabelValues(lang.ID, "compile").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("compilation abandoned: %w", ctx.Err())
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return &Result{Status: StatusCompilationError, ExitCode: -1, Stderr: "compilation timed out"}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}
	if out.ExitCode == 0 {
		return nil, nil
	}

	diag := out.Stderr
	if strings.TrimSpace(diag) == "" {
		diag = out.Stdout
	}
	m.logger.Debug().Str("container", h.Name).Int("exit_code", out.ExitCode).Msg("compilation failed")
	return &Result{
		Status:   StatusCompilationError,
		Stdout:   out.Stdout,
		Stderr:   diag,
		ExitCode: out.ExitCode,
	}, nil
}

// Classify decides the status of a finished run. Resource violations win
// over the exit status.
func Classify(lang languages.Language, exitCode int, stderr string, used Metrics, timeLimitMs, memLimitMb int) Status {
	switch {
	case used.RuntimeMs > int64(timeLimitMs):
		return StatusTimeLimit
	case used.MemoryKb > int64(memLimitMb)*1024:
		return StatusMemoryLimit
	case exitCode == exitOOMKilled:
		return StatusMemoryLimit
	case exitCode == 0:
		return StatusSuccess
	case lang.IsCompilationError(stderr):
		return StatusCompilationError
	default:
		return StatusRuntimeError
	}
}

// sampleMemory polls container memory until the returned stop func is
// called, which yields the peak in KB.
func (m *Manager) sampleMemory(ctx context.Context, id string) func() int64 {
	if m.statsInterval <= 0 {
		return func() int64 { return 0 }
	}

	var peak atomic.Int64
	sctx, cancel := context.WithCancel(ctx)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(m.statsInterval)
		defer ticker.Stop()
		for {
			if usage, err := m.runtime.MemoryUsage(sctx, id); err == nil {
				if usage > peak.Load() {
					peak.Store(usage)
				}
			} else if sctx.Err() == nil {
				m.logger.Debug().Err(err).Str("container", id).Msg("memory sample failed")
			}
			select {
			case <-sctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() int64 {
		cancel()
		<-finished
		return peak.Load() / 1024
	}
}

// Cleanup stops and force-removes the container. It is safe to call more
// than once and never fails; errors are logged and counted.
func (m *Manager) Cleanup(h *Handle) {
	if h == nil || h.ID == "" {
		return
	}
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.stopTimeout+15*time.Second)
		defer cancel()

		if err := m.runtime.Stop(ctx, h.ID, m.stopTimeout); err != nil {
			metrics.CleanupFailures.WithLabelValues("stop").Inc()
			m.logger.Warn().Err(err).Str("container", h.Name).Msg("failed to stop container")
		}
		if err := m.runtime.Remove(ctx, h.ID); err != nil {
			metrics.CleanupFailures.WithLabelValues("remove").Inc()
			m.logger.Warn().Err(err).Str("container", h.Name).Msg("failed to remove container")
		}
		metrics.ActiveContainers.Dec()
		m.logger.Debug().Str("container", h.Name).Msg("container cleaned up")
	})
}

// EnsureImages pulls every language image that is missing locally.
func (m *Manager) EnsureImages(ctx context.Context) error {
	for _, img := range m.registry.Images() {
		if err := m.runtime.EnsureImage(ctx, img); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) Close() error {
	return m.runtime.Close()
}
