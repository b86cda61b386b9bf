package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Message is the body of a submission message: {"submission_id": 42}.
type Message struct {
	SubmissionID int64 `json:"submission_id"`
}

// DecodeMessage parses a message body.
func DecodeMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("invalid message body: %w", err)
	}
	if msg.SubmissionID <= 0 {
		return Message{}, errors.New("invalid message body: submission_id must be positive")
	}
	return msg, nil
}

// AMQP moves submission ids through a RabbitMQ queue. Publishing makes it
// an evaluation.Enqueuer; Run feeds consumed ids into a Manager.
type AMQP struct {
	url        string
	queueName  string
	prefetch   int
	manager    *Manager
	logger     *zerolog.Logger
	maxBackoff time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQP(url, queueName string, prefetch int, manager *Manager, logger *zerolog.Logger) *AMQP {
	return &AMQP{
		url:        url,
		queueName:  queueName,
		prefetch:   max(prefetch, 1),
		manager:    manager,
		logger:     logger,
		maxBackoff: 30 * time.Second,
	}
}

// connect must be called with q.mu held.
func (q *AMQP) connect() error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	args := amqp.Table{"x-queue-type": "quorum"}
	if _, err := ch.QueueDeclare(q.queueName, true, false, false, false, args); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	q.conn, q.ch = conn, ch
	return nil
}

func (q *AMQP) closeLocked() error {
	var errs []error
	if q.ch != nil {
		if err := q.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		q.ch = nil
	}
	if q.conn != nil {
		if err := q.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
		q.conn = nil
	}
	return errors.Join(errs...)
}

// channel returns an open channel, reconnecting with backoff until ctx is
// done.
func (q *AMQP) channel(ctx context.Context) (*amqp.Channel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil && !q.ch.IsClosed() && q.conn != nil && !q.conn.IsClosed() {
		return q.ch, nil
	}
	_ = q.closeLocked()

	backoff := time.Second
	for {
		err := q.connect()
		if err == nil {
			q.logger.Info().Str("queue", q.queueName).Msg("connected to RabbitMQ")
			return q.ch, nil
		}
		q.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("RabbitMQ connection failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, q.maxBackoff)
	}
}

func (q *AMQP) publish(ctx context.Context, ch *amqp.Channel, body []byte, id string) error {
	return ch.PublishWithContext(ctx, "", q.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Enqueue publishes a submission id. A failed publish is retried once on a
// fresh connection.
func (q *AMQP) Enqueue(ctx context.Context, submissionID int64) error {
	body, err := json.Marshal(Message{SubmissionID: submissionID})
	if err != nil {
		return err
	}
	id := strconv.FormatInt(submissionID, 10)

	ch, err := q.channel(ctx)
	if err != nil {
		return err
	}
	if err := q.publish(ctx, ch, body, id); err != nil {
		q.logger.Warn().Err(err).Msg("publish failed, reconnecting")
		q.mu.Lock()
		_ = q.closeLocked()
		q.mu.Unlock()
		if ch, err = q.channel(ctx); err != nil {
			return err
		}
		return q.publish(ctx, ch, body, id)
	}
	return nil
}

// Run consumes until ctx is done. Each delivery is acked once its job is
// finished; deliveries that cannot be queued locally are requeued.
func (q *AMQP) Run(ctx context.Context) error {
	for {
		ch, err := q.channel(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msgs, err := ch.ConsumeWithContext(ctx, q.queueName, "", false, false, false, false, nil)
		if err != nil {
			q.logger.Warn().Err(err).Msg("failed to start consuming, reconnecting")
			q.mu.Lock()
			_ = q.closeLocked()
			q.mu.Unlock()
			continue
		}
		q.logger.Info().Str("queue", q.queueName).Msg("consuming submissions")

		for d := range msgs {
			q.handle(ctx, d)
		}

		if ctx.Err() != nil {
			q.logger.Info().Msg("consumer stopping")
			return nil
		}
		q.logger.Warn().Msg("delivery channel closed, reconnecting")
	}
}

func (q *AMQP) handle(ctx context.Context, d amqp.Delivery) {
	msg, err := DecodeMessage(d.Body)
	if err != nil {
		q.logger.Warn().Err(err).Bytes("body", d.Body).Msg("dropping message")
		_ = d.Nack(false, false)
		return
	}

	job := &Job{
		SubmissionID: msg.SubmissionID,
		Done:         func(err error) { q.settle(d, msg.SubmissionID, err) },
	}
	if err := q.manager.Submit(ctx, job); err != nil {
		q.logger.Warn().Err(err).Int64("submission_id", msg.SubmissionID).Msg("requeueing message")
		_ = d.Nack(false, true)
	}
}

// settle acks a finished delivery. Jobs cut short by shutdown are requeued
// so another consumer judges them.
func (q *AMQP) settle(d amqp.Delivery, submissionID int64, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		q.logger.Info().Int64("submission_id", submissionID).Msg("requeueing interrupted job")
		if nackErr := d.Nack(false, true); nackErr != nil {
			q.logger.Warn().Err(nackErr).Int64("submission_id", submissionID).Msg("failed to requeue message")
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		q.logger.Warn().Err(ackErr).Int64("submission_id", submissionID).Msg("failed to ack message")
	}
}

func (q *AMQP) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeLocked()
}
