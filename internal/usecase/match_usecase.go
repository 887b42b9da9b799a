// Package usecase orchestrates the match pipeline: enqueueing work,
// waiting on completions, caching results, and serving reads.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talentmatch/internal/config"
	"talentmatch/internal/domain/match"
	"talentmatch/internal/queue"
	"talentmatch/internal/repository"
	"talentmatch/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResultCache is the advisory cache surface the usecases need. A miss
// always falls through to the authoritative path.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type MatchUsecase struct {
	broker  queue.Broker
	matches repository.MatchRepository
	cfg     config.QueueConfig
	logger  *zap.Logger
}

func NewMatchUsecase(broker queue.Broker, matches repository.MatchRepository, cfg config.QueueConfig, logger *zap.Logger) *MatchUsecase {
	return &MatchUsecase{broker: broker, matches: matches, cfg: cfg, logger: logger}
}

func (u *MatchUsecase) queueOptions() queue.Options {
	return queue.Options{
		MaxAttempts: u.cfg.MaxAttempts,
		Backoff:     queue.Backoff{Type: queue.BackoffExponential, BaseDelay: u.cfg.BaseDelay},
	}
}

// RequestMatch enqueues a single-match analysis and blocks until the
// worker resolves it or the wait budget runs out. A nil result with a
// nil error means the analysis service had nothing usable to say.
func (u *MatchUsecase) RequestMatch(ctx context.Context, req worker.MatchRequest) (*match.Result, error) {
	if req.JobID == uuid.Nil || req.UserID == uuid.Nil {
		return nil, fmt.Errorf("job id and user id are required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode match request: %w", err)
	}

	handle, err := u.broker.Enqueue(ctx, worker.QueueMatchJob, payload, u.queueOptions())
	if err != nil {
		return nil, fmt.Errorf("enqueue match request: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, u.waitTimeout())
	defer cancel()

	out, err := handle.Await(waitCtx)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	var result match.Result
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("decode match result: %w", err)
	}
	return &result, nil
}

func (u *MatchUsecase) ListMatches(ctx context.Context, userID uuid.UUID) ([]match.Result, error) {
	return u.matches.ListByUser(ctx, userID)
}

func (u *MatchUsecase) waitTimeout() time.Duration {
	if u.cfg.WaitTimeout > 0 {
		return u.cfg.WaitTimeout
	}
	return 2 * time.Minute
}
