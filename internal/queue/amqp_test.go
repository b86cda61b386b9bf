package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acknowledger records how each delivery was settled.
type acknowledger struct {
	acks     int
	requeued int
	dropped  int
}

func (a *acknowledger) Ack(uint64, bool) error { a.acks++; return nil }

func (a *acknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	if requeue {
		a.requeued++
	} else {
		a.dropped++
	}
	return nil
}

func (a *acknowledger) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func TestHandleSettlesDelivery(t *testing.T) {
	tests := map[string]struct {
		err                     error
		acks, requeued, dropped int
	}{
		"judged":            {err: nil, acks: 1},
		"evaluation failed": {err: errors.New("sandbox unavailable"), acks: 1},
		"shutdown":          {err: fmt.Errorf("running case 1: %w", context.Canceled), requeued: 1},
		"deadline":          {err: context.DeadlineExceeded, requeued: 1},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			logger := zerolog.Nop()
			m := NewManager(1)
			q := NewAMQP("amqp://localhost", "submissions", 1, m, &logger)
			ack := &acknowledger{}

			q.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte(`{"submission_id": 7}`)})
			job := <-m.NextJob()
			require.Equal(t, int64(7), job.SubmissionID)
			job.Finish(tc.err)

			assert.Equal(t, tc.acks, ack.acks)
			assert.Equal(t, tc.requeued, ack.requeued)
			assert.Equal(t, tc.dropped, ack.dropped)
		})
	}
}

func TestHandleDropsMalformedBody(t *testing.T) {
	logger := zerolog.Nop()
	m := NewManager(1)
	q := NewAMQP("amqp://localhost", "submissions", 1, m, &logger)
	ack := &acknowledger{}

	q.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte(`not json`)})
	assert.Equal(t, 1, ack.dropped)
	assert.Zero(t, m.Len())
}
