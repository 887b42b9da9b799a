package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"talentmatch/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	consumerGroup     = "workers"
	readBlock         = 5 * time.Second
	delayedPollPeriod = 500 * time.Millisecond
	reclaimPeriod     = 30 * time.Second
	reclaimMinIdle    = time.Minute
)

// RedisBroker implements Broker on Redis Streams. Each named queue is a
// stream consumed through a consumer group, which makes the broker the
// single arbiter of message ownership across worker processes. Failed
// messages wait in a sorted set scored by their redelivery time; a
// mover goroutine returns them to the stream once due. Completions
// travel over pub/sub channels keyed by message id.
type RedisBroker struct {
	client   *redis.Client
	logger   *zap.Logger
	consumer string

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

func NewRedisBroker(client *redis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{
		client:   client,
		logger:   logger,
		consumer: "consumer-" + uuid.NewString()[:8],
		cancel:   func() {},
	}
}

func streamKey(queueName string) string  { return "queue:" + queueName }
func delayedKey(queueName string) string { return "queue:" + queueName + ":delayed" }
func deadKey(queueName string) string    { return "queue:" + queueName + ":dead" }

func doneChannel(queueName, id string) string {
	return "queue:" + queueName + ":done:" + id
}

func (b *RedisBroker) Enqueue(ctx context.Context, queueName string, payload []byte, opts Options) (*Handle, error) {
	opts = opts.normalize()

	msg := Message{
		ID:          uuid.NewString(),
		Queue:       queueName,
		Payload:     payload,
		Attempt:     1,
		MaxAttempts: opts.MaxAttempts,
		Backoff:     opts.Backoff,
	}

	// Subscribe before XADD so a fast worker cannot complete the
	// message before the producer is listening.
	sub := b.client.Subscribe(ctx, doneChannel(queueName, msg.ID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(queueName),
		Values: map[string]any{"message": body},
	}).Err(); err != nil {
		_ = sub.Close()
		return nil, err
	}
	metrics.RecordEnqueue(queueName)

	ch := make(chan Completion, 1)
	go func() {
		for m := range sub.Channel() {
			var c Completion
			if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
				c = Completion{Error: "malformed completion payload"}
			}
			select {
			case ch <- c:
			default:
			}
			return
		}
	}()

	return newHandle(msg.ID, ch, func() { _ = sub.Close() }), nil
}

func (b *RedisBroker) Consume(ctx context.Context, queueName string, concurrency int, h Handler) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	// Start the group at 0 so entries added before the first consumer
	// came up are still delivered.
	err := b.client.XGroupCreateMkStream(ctx, streamKey(queueName), consumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return nil
	}
	prev := b.cancel
	b.cancel = func() { prev(); cancel() }
	b.mu.Unlock()

	for i := 0; i < concurrency; i++ {
		name := b.consumer + "-" + strconv.Itoa(i)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.consumeLoop(runCtx, queueName, name, h)
		}()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.moveDelayed(runCtx, queueName)
	}()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.reclaimStale(runCtx, queueName, h)
	}()

	return nil
}

func (b *RedisBroker) consumeLoop(ctx context.Context, queueName, consumer string, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumer,
			Streams:  []string{streamKey(queueName), ">"},
			Count:    1,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err == redis.Nil {
				continue
			}
			b.logger.Warn("queue read failed",
				zap.String("queue", queueName), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range res {
			for _, xm := range stream.Messages {
				b.process(ctx, queueName, xm, h)
			}
		}
	}
}

func (b *RedisBroker) process(ctx context.Context, queueName string, xm redis.XMessage, h Handler) {
	ack := func() {
		if err := b.client.XAck(ctx, streamKey(queueName), consumerGroup, xm.ID).Err(); err != nil && ctx.Err() == nil {
			b.logger.Warn("queue ack failed",
				zap.String("queue", queueName), zap.String("entry", xm.ID), zap.Error(err))
		}
	}

	raw, ok := xm.Values["message"].(string)
	if !ok {
		b.logger.Error("queue entry without message body",
			zap.String("queue", queueName), zap.String("entry", xm.ID))
		ack()
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		b.logger.Error("malformed queue message",
			zap.String("queue", queueName), zap.String("entry", xm.ID), zap.Error(err))
		ack()
		return
	}

	result, err := h(ctx, &msg)
	if ctx.Err() != nil && err != nil {
		// Shutdown mid-flight: leave the entry pending so the reclaim
		// loop or another process redelivers it.
		return
	}

	// Acknowledge each outcome only after its side effect (dead-letter
	// write, retry schedule) has landed. A crash between the two leaves
	// the entry pending for the reclaim loop instead of losing it.
	switch {
	case err == nil:
		ack()
		metrics.RecordComplete(queueName)
		b.publish(ctx, queueName, msg.ID, Completion{Result: result})

	case IsTerminal(err):
		b.logger.Warn("message failed terminally",
			zap.String("queue", queueName), zap.String("message_id", msg.ID),
			zap.Int("attempt", msg.Attempt), zap.Error(err))
		ack()
		metrics.RecordComplete(queueName)
		b.publish(ctx, queueName, msg.ID, Completion{Error: err.Error()})

	case msg.Attempt >= msg.MaxAttempts:
		b.logger.Error("message dead-lettered",
			zap.String("queue", queueName), zap.String("message_id", msg.ID),
			zap.Int("attempts", msg.Attempt), zap.Error(err))
		metrics.RecordDeadLetter(queueName)
		if xerr := b.client.XAdd(ctx, &redis.XAddArgs{
			Stream: deadKey(queueName),
			Values: map[string]any{"message": raw, "error": err.Error()},
		}).Err(); xerr != nil {
			b.logger.Error("dead-letter write failed",
				zap.String("queue", queueName), zap.Error(xerr))
			return
		}
		ack()
		b.publish(ctx, queueName, msg.ID, Completion{Error: ErrDeadLettered.Error()})

	default:
		delay := msg.Backoff.Delay(msg.Attempt)
		b.logger.Warn("message scheduled for retry",
			zap.String("queue", queueName), zap.String("message_id", msg.ID),
			zap.Int("attempt", msg.Attempt), zap.Duration("delay", delay), zap.Error(err))
		metrics.RecordRetry(queueName)

		next := msg
		next.Attempt++
		body, merr := json.Marshal(next)
		if merr != nil {
			b.logger.Error("retry marshal failed", zap.Error(merr))
			return
		}
		due := time.Now().Add(delay).UnixMilli()
		if zerr := b.client.ZAdd(ctx, delayedKey(queueName), redis.Z{
			Score:  float64(due),
			Member: string(body),
		}).Err(); zerr != nil {
			b.logger.Error("retry schedule failed",
				zap.String("queue", queueName), zap.Error(zerr))
			return
		}
		ack()
	}
}

// moveDelayed returns due retries to the stream. The ZREM guard means
// exactly one mover wins each entry even with several worker processes.
func (b *RedisBroker) moveDelayed(ctx context.Context, queueName string) {
	ticker := time.NewTicker(delayedPollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		due, err := b.client.ZRangeByScore(ctx, delayedKey(queueName), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   now,
			Count: 100,
		}).Result()
		if err != nil || len(due) == 0 {
			continue
		}

		for _, member := range due {
			removed, err := b.client.ZRem(ctx, delayedKey(queueName), member).Result()
			if err != nil || removed == 0 {
				continue
			}
			if err := b.client.XAdd(ctx, &redis.XAddArgs{
				Stream: streamKey(queueName),
				Values: map[string]any{"message": member},
			}).Err(); err != nil {
				b.logger.Error("delayed redelivery failed",
					zap.String("queue", queueName), zap.Error(err))
			}
		}
	}
}

// reclaimStale re-processes entries a crashed consumer read but never
// acknowledged. Handlers are idempotent, so re-running them is safe.
func (b *RedisBroker) reclaimStale(ctx context.Context, queueName string, h Handler) {
	ticker := time.NewTicker(reclaimPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   streamKey(queueName),
			Group:    consumerGroup,
			Consumer: b.consumer + "-reclaim",
			MinIdle:  reclaimMinIdle,
			Start:    "0",
			Count:    10,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("stale reclaim failed",
					zap.String("queue", queueName), zap.Error(err))
			}
			continue
		}

		for _, xm := range msgs {
			b.process(ctx, queueName, xm, h)
		}
	}
}

func (b *RedisBroker) publish(ctx context.Context, queueName, id string, c Completion) {
	body, err := json.Marshal(c)
	if err != nil {
		b.logger.Error("completion marshal failed", zap.Error(err))
		return
	}
	// Use a detached context so a completion still reaches the
	// producer while the consumer is shutting down.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.client.Publish(pubCtx, doneChannel(queueName, id), body).Err(); err != nil {
		b.logger.Warn("completion publish failed",
			zap.String("queue", queueName), zap.String("message_id", id), zap.Error(err))
	}
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancel := b.cancel
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
	return nil
}
