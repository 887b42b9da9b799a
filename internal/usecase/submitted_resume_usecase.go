package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"talentmatch/internal/config"
	"talentmatch/internal/domain/resume"
	"talentmatch/internal/queue"
	"talentmatch/internal/repository"
	"talentmatch/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmittedResumeUsecase serves a recruiter's view of a job's
// applicants: score-banded, cached, and scored on demand through the
// batch queue when unscored submissions exist.
type SubmittedResumeUsecase struct {
	resumes repository.ResumeRepository
	jobs    repository.JobRepository
	broker  queue.Broker
	cache   ResultCache
	cfg     config.QueueConfig
	logger  *zap.Logger
}

func NewSubmittedResumeUsecase(
	resumes repository.ResumeRepository,
	jobs repository.JobRepository,
	broker queue.Broker,
	cache ResultCache,
	cfg config.QueueConfig,
	logger *zap.Logger,
) *SubmittedResumeUsecase {
	return &SubmittedResumeUsecase{
		resumes: resumes,
		jobs:    jobs,
		broker:  broker,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}
}

// ApplicantView is the recruiter's aggregate for one job: every
// submission, the scored ones best-first, and the score bands.
type ApplicantView struct {
	All    []resume.Resume `json:"all"`
	Ranked []resume.Resume `json:"ranked"`
	Bands  resume.Bands    `json:"bands"`
}

// ListApplicants returns the job's applicant view. A cache hit serves
// directly; otherwise any unscored submissions go through a batch scan
// first, and the rebuilt view is cached.
func (u *SubmittedResumeUsecase) ListApplicants(ctx context.Context, jobID uuid.UUID) (ApplicantView, error) {
	key := ApplicantsCacheKey(jobID)

	var cached ApplicantView
	if hit, err := u.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	resumes, err := u.resumes.ListByJob(ctx, jobID)
	if err != nil {
		return ApplicantView{}, fmt.Errorf("list applicants: %w", err)
	}

	if hasUnscored(resumes) {
		if err := u.runBatchScan(ctx, jobID, resumes); err != nil {
			return ApplicantView{}, err
		}
		resumes, err = u.resumes.ListByJob(ctx, jobID)
		if err != nil {
			return ApplicantView{}, fmt.Errorf("reload applicants: %w", err)
		}
	}

	view := ApplicantView{
		All:    resumes,
		Ranked: resume.SortByScore(resumes),
		Bands:  resume.PartitionByScore(resumes),
	}
	if err := u.cache.SetJSON(ctx, key, view, 0); err != nil {
		u.logger.Warn("failed to cache applicant view", zap.Error(err))
	}
	return view, nil
}

// RankApplicants returns the scored applicants ordered best-first.
func (u *SubmittedResumeUsecase) RankApplicants(ctx context.Context, jobID uuid.UUID) ([]resume.Resume, error) {
	resumes, err := u.resumes.ListByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	return resume.SortByScore(resumes), nil
}

func (u *SubmittedResumeUsecase) Shortlist(ctx context.Context, jobID, resumeID uuid.UUID) error {
	return u.setStatus(ctx, jobID, resumeID, resume.StatusShortListed)
}

func (u *SubmittedResumeUsecase) Accept(ctx context.Context, jobID, resumeID uuid.UUID) error {
	return u.setStatus(ctx, jobID, resumeID, resume.StatusAccepted)
}

func (u *SubmittedResumeUsecase) setStatus(ctx context.Context, jobID, resumeID uuid.UUID, status resume.Status) error {
	if err := u.resumes.UpdateStatus(ctx, resumeID, status); err != nil {
		return err
	}
	// The banded view embeds statuses, so it is stale now.
	if err := u.cache.Delete(ctx, ApplicantsCacheKey(jobID)); err != nil {
		u.logger.Warn("failed to invalidate applicant cache", zap.Error(err))
	}
	return nil
}

func (u *SubmittedResumeUsecase) runBatchScan(ctx context.Context, jobID uuid.UUID, resumes []resume.Resume) error {
	payload, err := json.Marshal(worker.BatchRequest{JobID: jobID, Resumes: resumes})
	if err != nil {
		return fmt.Errorf("encode batch request: %w", err)
	}

	handle, err := u.broker.Enqueue(ctx, worker.QueueMatchResume, payload, queue.Options{
		MaxAttempts: u.cfg.MaxAttempts,
		Backoff:     queue.Backoff{Type: queue.BackoffExponential, BaseDelay: u.cfg.BaseDelay},
	})
	if err != nil {
		return fmt.Errorf("enqueue batch scan: %w", err)
	}

	waitCtx := ctx
	if u.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, u.cfg.WaitTimeout)
		defer cancel()
	}
	if _, err := handle.Await(waitCtx); err != nil {
		return fmt.Errorf("batch scan: %w", err)
	}
	return nil
}

func hasUnscored(resumes []resume.Resume) bool {
	for _, r := range resumes {
		if !r.Scored() {
			return true
		}
	}
	return false
}
