package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/itstheanurag/codejudge/internal/config"
	"github.com/itstheanurag/codejudge/internal/database"
	"github.com/itstheanurag/codejudge/internal/evaluation"
	"github.com/itstheanurag/codejudge/internal/harness"
	"github.com/itstheanurag/codejudge/internal/languages"
	"github.com/itstheanurag/codejudge/internal/limiter"
	"github.com/itstheanurag/codejudge/internal/metrics"
	"github.com/itstheanurag/codejudge/internal/queue"
	"github.com/itstheanurag/codejudge/internal/sandbox"
	"github.com/itstheanurag/codejudge/internal/store"
	"github.com/itstheanurag/codejudge/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	conf       *config.Config
	logger     *zerolog.Logger
	httpServer *http.Server
	db         *database.Database
	sandbox    *sandbox.Manager
	service    *evaluation.Service
	queue      *queue.Manager
	broker     *queue.AMQP
	pool       *worker.Pool
	sampler    *metrics.HostSampler
	cancelFunc context.CancelFunc
	background sync.WaitGroup
}

// NewSandbox opens the Docker runtime and builds a sandbox manager for conf.
// The caller owns the manager and must Close it.
func NewSandbox(conf *config.Config, logger *zerolog.Logger) (*sandbox.Manager, *languages.Registry, error) {
	rt, err := sandbox.NewDockerRuntime(conf.Docker.Host, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create docker runtime: %w", err)
	}

	registry := languages.NewRegistry()
	for id, img := range conf.Images() {
		if err := registry.SetImage(id, img); err != nil {
			_ = rt.Close()
			return nil, nil, err
		}
	}

	launcher := limiter.NewLaunchLimiter(
		conf.Launch.GlobalRPS,
		conf.Launch.PerLanguageRPS,
		conf.Launch.PerLanguageBurst,
		conf.Launch.MaxConcurrent,
	)

	mgr := sandbox.NewManager(rt, registry, conf.Limits, logger,
		sandbox.WithLauncher(launcher),
		sandbox.WithStatsInterval(time.Duration(conf.Docker.StatsIntervalMs)*time.Millisecond),
		sandbox.WithStopTimeout(time.Duration(conf.Docker.StopTimeoutSec)*time.Second),
	)
	return mgr, registry, nil
}

func New(
	conf *config.Config,
	logger *zerolog.Logger,
) (*Server, error) {
	mgr, registry, err := NewSandbox(conf, logger)
	if err != nil {
		return nil, err
	}

	var (
		db     *database.Database
		stores evaluation.Stores
	)
	if conf.Db.Enabled {
		db, err = database.New(conf.Db, logger)
		if err != nil {
			_ = mgr.Close()
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
		st := database.NewStore(db)
		stores = evaluation.Stores{Problems: st, TestCases: st, Submissions: st, Progress: st}
	} else {
		logger.Warn().Msg("database disabled, submissions are kept in memory")
		mem := store.NewMemory()
		stores = evaluation.Stores{Problems: mem, TestCases: mem, Submissions: mem, Progress: mem}
	}

	q := queue.NewManager(conf.Queue.Capacity)
	var (
		enqueuer evaluation.Enqueuer = q
		broker   *queue.AMQP
	)
	if conf.Queue.Transport == "amqp" {
		broker = queue.NewAMQP(conf.Queue.BrokerURL, conf.Queue.Name, conf.Queue.Prefetch, q, logger)
		enqueuer = broker
	}

	svc := evaluation.NewService(stores, mgr, registry, harness.NewRegistry(), conf.Limits, logger,
		evaluation.WithParallelism(conf.Worker.Parallelism),
		evaluation.WithEnqueuer(enqueuer),
	)

	s := &Server{
		conf:    conf,
		logger:  logger,
		db:      db,
		sandbox: mgr,
		service: svc,
		queue:   q,
		broker:  broker,
		pool:    worker.NewPool(conf.Worker.Count, svc, q, logger),
		sampler: metrics.NewHostSampler(time.Duration(conf.Server.HostSampleSec)*time.Second, logger),
	}

	s.httpServer = &http.Server{
		Addr:         ":" + conf.Server.Port,
		Handler:      s.routes(),
		ReadTimeout:  time.Duration(conf.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(conf.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(conf.Server.IdleTimeout) * time.Second,
	}

	return s, nil
}

// Service exposes the evaluation service, e.g. for submitting from the
// same process.
func (s *Server) Service() *evaluation.Service {
	return s.service
}

func (s *Server) routes() http.Handler {
	var ping func(context.Context) error
	if s.db != nil {
		ping = s.db.Ping
	}
	return newMux(ping)
}

func newMux(ping func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()

	// health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("port", s.conf.Server.Port).
		Int("workers", s.conf.Worker.Count).
		Str("transport", s.conf.Queue.Transport).
		Msg("starting judge")

	if s.conf.Docker.PullImages {
		if err := s.sandbox.EnsureImages(context.Background()); err != nil {
			return fmt.Errorf("failed to ensure docker images: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	s.pool.Start(ctx)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.sampler.Start(ctx)
	}()

	if s.broker != nil {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if err := s.broker.Run(ctx); err != nil {
				s.logger.Error().Err(err).Msg("amqp consumer stopped")
			}
		}()
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Stop lets queued evaluations finish until ctx expires, then cancels the
// rest and releases the broker, Docker and database handles.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down judge")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
	}

	s.queue.Close()

	drained := make(chan struct{})
	go func() {
		s.pool.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warn().Int("pending", s.queue.Len()).Msg("shutdown deadline reached, cancelling evaluations")
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	<-drained
	s.background.Wait()

	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close amqp connection: %w", err))
		}
	}
	if err := s.sandbox.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close docker client: %w", err))
	}
	if s.db != nil {
		_ = s.db.Close()
	}

	return errors.Join(errs...)
}
