package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"talentmatch/internal/metrics"

	"github.com/google/uuid"
)

const memoryQueueBuffer = 1024

// MemoryBroker implements Broker on channels with the same delivery
// semantics as the Redis broker: retry with backoff, dead-lettering,
// completion signaling. It backs tests and single-process setups.
type MemoryBroker struct {
	mu      sync.Mutex
	queues  map[string]chan Message
	dead    map[string][]Message
	closed  bool
	done    chan struct{}
	waiters sync.Map // message id -> chan Completion
	wg      sync.WaitGroup
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		queues: make(map[string]chan Message),
		dead:   make(map[string][]Message),
		done:   make(chan struct{}),
	}
}

func (b *MemoryBroker) queue(queueName string) chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[queueName]
	if !ok {
		q = make(chan Message, memoryQueueBuffer)
		b.queues[queueName] = q
	}
	return q
}

func (b *MemoryBroker) Enqueue(ctx context.Context, queueName string, payload []byte, opts Options) (*Handle, error) {
	opts = opts.normalize()

	msg := Message{
		ID:          uuid.NewString(),
		Queue:       queueName,
		Payload:     payload,
		Attempt:     1,
		MaxAttempts: opts.MaxAttempts,
		Backoff:     opts.Backoff,
	}

	ch := make(chan Completion, 1)
	b.waiters.Store(msg.ID, ch)

	select {
	case b.queue(queueName) <- msg:
	case <-ctx.Done():
		b.waiters.Delete(msg.ID)
		return nil, ctx.Err()
	}
	metrics.RecordEnqueue(queueName)

	return newHandle(msg.ID, ch, func() { b.waiters.Delete(msg.ID) }), nil
}

func (b *MemoryBroker) Consume(ctx context.Context, queueName string, concurrency int, h Handler) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	q := b.queue(queueName)
	for i := 0; i < concurrency; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-q:
					if !ok {
						return
					}
					b.process(ctx, msg, h)
				}
			}
		}()
	}
	return nil
}

func (b *MemoryBroker) process(ctx context.Context, msg Message, h Handler) {
	result, err := h(ctx, &msg)

	switch {
	case err == nil:
		metrics.RecordComplete(msg.Queue)
		b.complete(msg.ID, Completion{Result: json.RawMessage(result)})

	case IsTerminal(err):
		metrics.RecordComplete(msg.Queue)
		b.complete(msg.ID, Completion{Error: err.Error()})

	case msg.Attempt >= msg.MaxAttempts:
		metrics.RecordDeadLetter(msg.Queue)
		b.mu.Lock()
		b.dead[msg.Queue] = append(b.dead[msg.Queue], msg)
		b.mu.Unlock()
		b.complete(msg.ID, Completion{Error: ErrDeadLettered.Error()})

	default:
		metrics.RecordRetry(msg.Queue)
		next := msg
		next.Attempt++
		delay := msg.Backoff.Delay(msg.Attempt)
		// Block until the queue has room so a full channel never loses
		// the redelivery; Close unblocks any pending retries.
		time.AfterFunc(delay, func() {
			select {
			case b.queue(next.Queue) <- next:
			case <-b.done:
			}
		})
	}
}

func (b *MemoryBroker) complete(id string, c Completion) {
	if v, ok := b.waiters.LoadAndDelete(id); ok {
		ch := v.(chan Completion)
		select {
		case ch <- c:
		default:
		}
	}
}

// DeadLetters returns the messages dead-lettered on queueName.
func (b *MemoryBroker) DeadLetters(queueName string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.dead[queueName]))
	copy(out, b.dead[queueName])
	return out
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	b.mu.Unlock()
	return nil
}
