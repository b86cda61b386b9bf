package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/itstheanurag/codejudge/internal/evaluation"
	"github.com/itstheanurag/codejudge/internal/metrics"
	"github.com/itstheanurag/codejudge/internal/queue"
	"github.com/rs/zerolog"
)

// Evaluator is the part of evaluation.Service a worker drives.
type Evaluator interface {
	Evaluate(ctx context.Context, submissionID int64) (*evaluation.Result, error)
}

type Worker struct {
	id        int
	evaluator Evaluator
	manager   *queue.Manager
	logger    *zerolog.Logger
}

func NewWorker(id int, eval Evaluator, manager *queue.Manager, logger *zerolog.Logger) *Worker {
	return &Worker{
		id:        id,
		evaluator: eval,
		manager:   manager,
		logger:    logger,
	}
}

// Start processes jobs until ctx is done or the queue is closed.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().Int("worker_id", w.id).Msg("worker started")
	for {
		select {
		case job, ok := <-w.manager.NextJob():
			if !ok {
				w.logger.Info().Int("worker_id", w.id).Msg("queue closed, worker stopping")
				return
			}
			w.manager.UpdateQueueMetric()
			metrics.ActiveWorkers.Inc()
			w.processJob(ctx, job)
			metrics.ActiveWorkers.Dec()
		case <-ctx.Done():
			w.logger.Info().Int("worker_id", w.id).Msg("worker stopping")
			return
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job *queue.Job) {
	w.logger.Info().
		Int("worker_id", w.id).
		Str("job_id", job.ID).
		Int64("submission_id", job.SubmissionID).
		Dur("waited", time.Since(job.EnqueuedAt)).
		Msg("processing job")

	result, err := w.evaluator.Evaluate(ctx, job.SubmissionID)
	job.Finish(err)
	if errors.Is(err, evaluation.ErrAlreadyJudged) {
		w.logger.Info().Int("worker_id", w.id).Str("job_id", job.ID).Msg("skipping judged submission")
		return
	}
	if err != nil {
		w.logger.Error().Err(err).Int("worker_id", w.id).Str("job_id", job.ID).Msg("evaluation failed")
		return
	}
	w.logger.Debug().
		Int("worker_id", w.id).
		Str("job_id", job.ID).
		Str("status", string(result.Status)).
		Msg("job finished")
}

// Pool runs n workers over one queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

func NewPool(n int, eval Evaluator, manager *queue.Manager, logger *zerolog.Logger) *Pool {
	p := &Pool{}
	for i := range max(n, 1) {
		p.workers = append(p.workers, NewWorker(i+1, eval, manager, logger))
	}
	return p
}

func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Start(ctx)
		}()
	}
}

// Wait returns once every worker has stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}
