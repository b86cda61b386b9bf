package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itstheanurag/codejudge/internal/evaluation"
	"github.com/itstheanurag/codejudge/internal/queue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvaluator struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeEvaluator) Evaluate(_ context.Context, id int64) (*evaluation.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	if id < 0 {
		return nil, errors.New("no such submission")
	}
	return &evaluation.Result{SubmissionID: id, Status: evaluation.StatusAccepted}, nil
}

func TestPoolDrainsQueue(t *testing.T) {
	logger := zerolog.Nop()
	m := queue.NewManager(10)
	eval := &fakeEvaluator{}

	finished := make(chan error, 3)
	for _, id := range []int64{1, 2, -3} {
		require.NoError(t, m.Submit(context.Background(), &queue.Job{
			SubmissionID: id,
			Done:         func(err error) { finished <- err },
		}))
	}

	p := NewPool(2, eval, m, &logger)
	p.Start(context.Background())

	var errs int
	for range 3 {
		select {
		case err := <-finished:
			if err != nil {
				errs++
			}
		case <-time.After(2 * time.Second):
			t.Fatal("jobs were not processed")
		}
	}
	assert.Equal(t, 1, errs)

	m.Close()
	p.Wait()
	assert.ElementsMatch(t, []int64{1, 2, -3}, eval.ids)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	m := queue.NewManager(1)
	w := NewWorker(1, &fakeEvaluator{}, m, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
