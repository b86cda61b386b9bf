package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/itstheanurag/codejudge/internal/metrics"
)

var (
	ErrQueueFull   = errors.New("evaluation queue is full")
	ErrQueueClosed = errors.New("evaluation queue is closed")
)

// Job asks a worker to evaluate one stored submission.
type Job struct {
	ID           string
	SubmissionID int64
	EnqueuedAt   time.Time
	// Done, when set, is called once the worker has finished the job.
	Done func(err error)
}

// Finish reports the outcome to whoever queued the job.
func (j *Job) Finish(err error) {
	if j.Done != nil {
		j.Done(err)
	}
}

type Manager struct {
	mu       sync.RWMutex
	jobQueue chan *Job
	closed   bool
}

func NewManager(capacity int) *Manager {
	return &Manager{
		jobQueue: make(chan *Job, max(capacity, 1)),
	}
}

// Submit queues job, waiting for room until ctx is done.
func (m *Manager) Submit(ctx context.Context, job *Job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		metrics.QueueRejected.Inc()
		return ErrQueueClosed
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	select {
	case m.jobQueue <- job:
		m.UpdateQueueMetric()
		return nil
	case <-ctx.Done():
		metrics.QueueRejected.Inc()
		return fmt.Errorf("%w: %w", ErrQueueFull, ctx.Err())
	}
}

// Enqueue queues a submission without waiting. It satisfies
// evaluation.Enqueuer.
func (m *Manager) Enqueue(_ context.Context, submissionID int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		metrics.QueueRejected.Inc()
		return ErrQueueClosed
	}
	job := &Job{ID: uuid.NewString(), SubmissionID: submissionID, EnqueuedAt: time.Now()}
	select {
	case m.jobQueue <- job:
		m.UpdateQueueMetric()
		return nil
	default:
		metrics.QueueRejected.Inc()
		return ErrQueueFull
	}
}

// NextJob is closed once the manager is closed and drained.
func (m *Manager) NextJob() <-chan *Job {
	return m.jobQueue
}

func (m *Manager) Len() int {
	return len(m.jobQueue)
}

func (m *Manager) UpdateQueueMetric() {
	metrics.QueueDepth.Set(float64(len(m.jobQueue)))
}

// Close stops accepting jobs. Jobs already queued are still delivered.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.jobQueue)
}
