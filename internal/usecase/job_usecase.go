package usecase

import (
	"context"
	"fmt"

	"talentmatch/internal/domain/job"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobUsecase serves job reads through the advisory cache and closes
// jobs opportunistically when a listing shows them at capacity.
type JobUsecase struct {
	jobs   repository.JobRepository
	cache  ResultCache
	logger *zap.Logger
}

func NewJobUsecase(jobs repository.JobRepository, cache ResultCache, logger *zap.Logger) *JobUsecase {
	return &JobUsecase{jobs: jobs, cache: cache, logger: logger}
}

func (u *JobUsecase) List(ctx context.Context, filter repository.JobListFilter) ([]job.Job, error) {
	key := JobsListCacheKey(filter)

	var cached []job.Job
	if hit, err := u.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	jobs, err := u.jobs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	u.closeFullJobs(ctx, jobs)

	if err := u.cache.SetJSON(ctx, key, jobs, 0); err != nil {
		u.logger.Warn("failed to cache job listing", zap.Error(err))
	}
	return jobs, nil
}

func (u *JobUsecase) Get(ctx context.Context, id uuid.UUID) (job.Job, error) {
	key := JobCacheKey(id)

	var cached job.Job
	if hit, err := u.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	j, err := u.jobs.FindByID(ctx, id)
	if err != nil {
		return job.Job{}, err
	}

	if err := u.cache.SetJSON(ctx, key, j, 0); err != nil {
		u.logger.Warn("failed to cache job", zap.Error(err))
	}
	return j, nil
}

// closeFullJobs marks at-capacity jobs closed in place. Failures are
// logged and skipped: the next listing retries.
func (u *JobUsecase) closeFullJobs(ctx context.Context, jobs []job.Job) {
	for i := range jobs {
		j := &jobs[i]
		if j.IsClosed || !j.Full() {
			continue
		}
		if err := u.jobs.MarkClosed(ctx, j.ID); err != nil {
			u.logger.Warn("failed to close full job",
				zap.String("job_id", j.ID.String()), zap.Error(err))
			continue
		}
		j.IsClosed = true
		if err := u.cache.Delete(ctx, JobCacheKey(j.ID)); err != nil {
			u.logger.Warn("failed to invalidate job cache",
				zap.String("job_id", j.ID.String()), zap.Error(err))
		}
	}
}
