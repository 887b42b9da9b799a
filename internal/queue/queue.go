// Package queue provides the durable work-queue abstraction behind the
// match pipeline: at-least-once delivery, per-message retry with
// exponential backoff, dead-lettering, and a completion channel the
// producer can block on.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 10 * time.Second
	DefaultConcurrency = 5
)

// ErrDeadLettered resolves a producer's wait when the message exhausted
// its retry budget.
var ErrDeadLettered = errors.New("message dead-lettered after exhausting attempts")

type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

type Backoff struct {
	Type      BackoffType   `json:"type"`
	BaseDelay time.Duration `json:"base_delay"`
}

// Delay returns the wait before redelivering a message whose attempt
// number failed: base * 2^(attempt-1) for exponential backoff, the base
// delay otherwise.
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	if b.Type == BackoffFixed {
		return base
	}

	d := base
	for i := 1; i < attempt; i++ {
		if d > time.Hour {
			break
		}
		d *= 2
	}
	return d
}

type Options struct {
	MaxAttempts int
	Backoff     Backoff
}

func (o Options) normalize() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Backoff.Type == "" {
		o.Backoff.Type = BackoffExponential
	}
	if o.Backoff.BaseDelay <= 0 {
		o.Backoff.BaseDelay = DefaultBaseDelay
	}
	return o
}

// Message is one unit of work. Attempt starts at 1 and increments on
// every redelivery.
type Message struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	Backoff     Backoff         `json:"backoff"`
}

// Handler processes one message. A nil error completes the message; the
// returned bytes resolve the producer's wait. Errors wrapped with
// Terminal complete the message with that error and are never retried;
// any other error schedules a redelivery subject to the attempt budget.
type Handler func(ctx context.Context, msg *Message) ([]byte, error)

type Broker interface {
	// Enqueue never blocks on the consumer; the returned handle is the
	// only way to observe the message's outcome.
	Enqueue(ctx context.Context, queueName string, payload []byte, opts Options) (*Handle, error)

	// Consume starts concurrency workers for queueName and returns.
	// Workers stop when ctx is canceled or the broker is closed.
	Consume(ctx context.Context, queueName string, concurrency int, h Handler) error

	Close() error
}

// Completion is the wire form of a message outcome delivered to the
// producer.
type Completion struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handle is the producer's view of an enqueued message.
type Handle struct {
	id   string
	ch   <-chan Completion
	stop func()
}

func newHandle(id string, ch <-chan Completion, stop func()) *Handle {
	return &Handle{id: id, ch: ch, stop: stop}
}

func (h *Handle) ID() string {
	return h.id
}

// Await blocks until the message completes or ctx expires. A timeout is
// non-destructive: the worker's eventual write still lands, and the
// idempotency guard short-circuits any future retry.
func (h *Handle) Await(ctx context.Context) ([]byte, error) {
	defer h.stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case c, ok := <-h.ch:
		if !ok {
			return nil, errors.New("completion channel closed")
		}
		if c.Error != "" {
			if c.Error == ErrDeadLettered.Error() {
				return nil, ErrDeadLettered
			}
			return nil, errors.New(c.Error)
		}
		return c.Result, nil
	}
}

type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal marks err as non-retryable: the message completes with the
// error instead of being redelivered.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

func IsTerminal(err error) bool {
	var t *terminalError
	return errors.As(err, &t)
}
