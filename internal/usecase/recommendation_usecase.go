package usecase

import (
	"context"
	"errors"
	"fmt"

	"talentmatch/internal/domain/job"
	"talentmatch/internal/domain/ranking"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoGeneralResume means the user has never uploaded a resume outside
// a job application, so there is nothing to recommend against.
var ErrNoGeneralResume = errors.New("user has no general resume")

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RecommendedJob pairs a job with its similarity score against the
// user's general resume.
type RecommendedJob struct {
	Job   job.Job `json:"job"`
	Score int     `json:"score"`
}

// RecommendationUsecase ranks open jobs against a user's general resume
// by embedding similarity.
type RecommendationUsecase struct {
	resumes  repository.ResumeRepository
	jobs     repository.JobRepository
	embedder Embedder
	logger   *zap.Logger
}

func NewRecommendationUsecase(
	resumes repository.ResumeRepository,
	jobs repository.JobRepository,
	embedder Embedder,
	logger *zap.Logger,
) *RecommendationUsecase {
	return &RecommendationUsecase{resumes: resumes, jobs: jobs, embedder: embedder, logger: logger}
}

// Recommend returns the best open jobs for the user, at most
// ranking.DefaultTopN of them and none scoring below
// ranking.DefaultMinScore. The resume's embedding is computed and
// stored on first use.
func (u *RecommendationUsecase) Recommend(ctx context.Context, userID uuid.UUID) ([]RecommendedJob, error) {
	res, err := u.resumes.FindGeneralByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrResumeNotFound) {
			return nil, ErrNoGeneralResume
		}
		return nil, fmt.Errorf("load general resume: %w", err)
	}

	embedding := res.Embedding
	if len(embedding) == 0 {
		if res.ParsedText == "" {
			return nil, fmt.Errorf("resume %s has no text to embed", res.ID)
		}
		embedding, err = u.embedder.Embed(ctx, res.ParsedText)
		if err != nil {
			return nil, fmt.Errorf("embed resume: %w", err)
		}
		if len(embedding) == 0 {
			return nil, errors.New("embedding service returned no vector")
		}
		if err := u.resumes.UpdateEmbedding(ctx, res.ID, embedding); err != nil {
			// Not fatal: ranking can proceed, the backfill just retries
			// on the next call.
			u.logger.Warn("failed to store resume embedding",
				zap.String("resume_id", res.ID.String()), zap.Error(err))
		}
	}

	openJobs, err := u.jobs.ListOpenWithEmbedding(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open jobs: %w", err)
	}

	byID := make(map[uuid.UUID]job.Job, len(openJobs))
	vectors := make([]ranking.JobVector, 0, len(openJobs))
	for _, j := range openJobs {
		byID[j.ID] = j
		vectors = append(vectors, ranking.JobVector{JobID: j.ID, Embedding: j.Embedding})
	}

	ranked := ranking.Rank(embedding, vectors, ranking.DefaultTopN, ranking.DefaultMinScore)
	out := make([]RecommendedJob, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, RecommendedJob{Job: byID[r.JobID], Score: r.Score})
	}
	return out, nil
}
