package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue(t *testing.T) {
	m := NewManager(2)
	require.NoError(t, m.Enqueue(context.Background(), 1))
	require.NoError(t, m.Enqueue(context.Background(), 2))
	require.ErrorIs(t, m.Enqueue(context.Background(), 3), ErrQueueFull)
	assert.Equal(t, 2, m.Len())

	job := <-m.NextJob()
	assert.Equal(t, int64(1), job.SubmissionID)
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.EnqueuedAt.IsZero())
}

func TestSubmitWaitsForRoom(t *testing.T) {
	m := NewManager(1)
	require.NoError(t, m.Submit(context.Background(), &Job{SubmissionID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Submit(ctx, &Job{SubmissionID: 2})
	require.ErrorIs(t, err, ErrQueueFull)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		time.Sleep(10 * time.Millisecond)
		<-m.NextJob()
	}()
	require.NoError(t, m.Submit(context.Background(), &Job{SubmissionID: 3}))
}

func TestCloseDrains(t *testing.T) {
	m := NewManager(4)
	require.NoError(t, m.Enqueue(context.Background(), 7))
	m.Close()
	m.Close()

	require.ErrorIs(t, m.Enqueue(context.Background(), 8), ErrQueueClosed)
	require.ErrorIs(t, m.Submit(context.Background(), &Job{SubmissionID: 9}), ErrQueueClosed)

	job, ok := <-m.NextJob()
	require.True(t, ok)
	assert.Equal(t, int64(7), job.SubmissionID)
	_, ok = <-m.NextJob()
	assert.False(t, ok)
}

func TestJobFinish(t *testing.T) {
	var got error
	called := 0
	j := &Job{Done: func(err error) { called++; got = err }}
	boom := errors.New("boom")
	j.Finish(boom)
	assert.Equal(t, 1, called)
	assert.ErrorIs(t, got, boom)

	(&Job{}).Finish(nil)
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"submission_id": 42}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.SubmissionID)

	for _, body := range []string{`{}`, `{"submission_id": -1}`, `not json`, `{"submission_id": "x"}`} {
		_, err := DecodeMessage([]byte(body))
		assert.Error(t, err, body)
	}
}
