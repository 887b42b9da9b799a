package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errTest = errors.New("handler failed")

func fastOptions(maxAttempts int) Options {
	return Options{
		MaxAttempts: maxAttempts,
		Backoff:     Backoff{Type: BackoffExponential, BaseDelay: time.Millisecond},
	}
}

func TestMemoryBroker_CompletesWithResult(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	if err := b.Consume(ctx, "q", 1, func(_ context.Context, msg *Message) ([]byte, error) {
		return []byte(`"ok"`), nil
	}); err != nil {
		t.Fatalf("consume: %v", err)
	}

	h, err := b.Enqueue(ctx, "q", []byte(`{}`), fastOptions(5))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	res, err := h.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if string(res) != `"ok"` {
		t.Fatalf("unexpected result %q", res)
	}
}

func TestMemoryBroker_RetriesThenSucceeds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	var calls atomic.Int32
	_ = b.Consume(ctx, "q", 1, func(_ context.Context, msg *Message) ([]byte, error) {
		if calls.Add(1) < 3 {
			return nil, errTest
		}
		if msg.Attempt != 3 {
			t.Errorf("expected attempt 3 on success, got %d", msg.Attempt)
		}
		return []byte(`"done"`), nil
	})

	h, _ := b.Enqueue(ctx, "q", []byte(`{}`), fastOptions(5))
	res, err := h.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if string(res) != `"done"` {
		t.Fatalf("unexpected result %q", res)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestMemoryBroker_DeadLettersAfterMaxAttempts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	var calls atomic.Int32
	_ = b.Consume(ctx, "q", 1, func(_ context.Context, _ *Message) ([]byte, error) {
		calls.Add(1)
		return nil, errTest
	})

	h, _ := b.Enqueue(ctx, "q", []byte(`{}`), fastOptions(5))
	_, err := h.Await(ctx)
	if !errors.Is(err, ErrDeadLettered) {
		t.Fatalf("expected ErrDeadLettered, got %v", err)
	}
	if calls.Load() != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", calls.Load())
	}
	if dead := b.DeadLetters("q"); len(dead) != 1 {
		t.Fatalf("expected 1 dead-lettered message, got %d", len(dead))
	}
}

func TestMemoryBroker_TerminalErrorNotRetried(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	var calls atomic.Int32
	_ = b.Consume(ctx, "q", 1, func(_ context.Context, _ *Message) ([]byte, error) {
		calls.Add(1)
		return nil, Terminal(errTest)
	})

	h, _ := b.Enqueue(ctx, "q", []byte(`{}`), fastOptions(5))
	_, err := h.Await(ctx)
	if err == nil || errors.Is(err, ErrDeadLettered) {
		t.Fatalf("expected terminal handler error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("terminal failures must not retry, got %d calls", calls.Load())
	}
	if dead := b.DeadLetters("q"); len(dead) != 0 {
		t.Fatalf("terminal failures are not dead-lettered")
	}
}

func TestMemoryBroker_AwaitTimeoutIsNonDestructive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	release := make(chan struct{})
	done := make(chan struct{})
	_ = b.Consume(ctx, "q", 1, func(_ context.Context, _ *Message) ([]byte, error) {
		<-release
		close(done)
		return []byte(`"late"`), nil
	})

	h, _ := b.Enqueue(ctx, "q", []byte(`{}`), fastOptions(5))

	waitCtx, waitCancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer waitCancel()
	if _, err := h.Await(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The worker still finishes after the producer gave up.
	close(release)
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("worker never completed after producer timeout")
	}
}

func TestMemoryBroker_RetrySurvivesFullQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	// Shrink the channel so the redelivery lands on a full queue.
	b.mu.Lock()
	b.queues["q"] = make(chan Message, 1)
	b.mu.Unlock()

	gate := make(chan struct{})
	var failOnceCalls atomic.Int32
	_ = b.Consume(ctx, "q", 1, func(_ context.Context, msg *Message) ([]byte, error) {
		switch string(msg.Payload) {
		case "fail-once":
			if failOnceCalls.Add(1) == 1 {
				return nil, errTest
			}
			return []byte(`"recovered"`), nil
		case "block":
			<-gate
			return nil, nil
		default:
			return nil, nil
		}
	})

	opts := Options{
		MaxAttempts: 5,
		Backoff:     Backoff{Type: BackoffExponential, BaseDelay: 50 * time.Millisecond},
	}

	h, err := b.Enqueue(ctx, "q", []byte("fail-once"), opts)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	time.Sleep(10 * time.Millisecond) // first attempt fails, retry pending

	if _, err := b.Enqueue(ctx, "q", []byte("block"), opts); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	time.Sleep(10 * time.Millisecond) // worker parked on the gate

	if _, err := b.Enqueue(ctx, "q", []byte("filler"), opts); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Let the retry fire while the channel is at capacity.
	time.Sleep(100 * time.Millisecond)
	close(gate)

	res, err := h.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if string(res) != `"recovered"` {
		t.Fatalf("unexpected result %q", res)
	}
	if failOnceCalls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", failOnceCalls.Load())
	}
}

func TestMemoryBroker_ConcurrentMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := NewMemoryBroker()
	defer b.Close()

	_ = b.Consume(ctx, "q", DefaultConcurrency, func(_ context.Context, msg *Message) ([]byte, error) {
		return msg.Payload, nil
	})

	handles := make([]*Handle, 0, 20)
	for i := 0; i < 20; i++ {
		h, err := b.Enqueue(ctx, "q", []byte(`{"n":1}`), fastOptions(5))
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		handles = append(handles, h)
	}

	for _, h := range handles {
		if _, err := h.Await(ctx); err != nil {
			t.Fatalf("await: %v", err)
		}
	}
}
