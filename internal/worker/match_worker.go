package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"talentmatch/internal/ai"
	"talentmatch/internal/domain/match"
	"talentmatch/internal/metrics"
	"talentmatch/internal/queue"
	"talentmatch/internal/repository"

	"go.uber.org/zap"
)

// MatchWorker consumes single-match requests. It is safe to run the
// same request any number of times: an existing result for the
// (job, user) pair short-circuits before any analysis call, and the
// insert path tolerates losing a race to a concurrent duplicate.
type MatchWorker struct {
	matches  repository.MatchRepository
	resumes  repository.ResumeRepository
	jobs     repository.JobRepository
	analyzer Analyzer
	parser   DocumentParser
	logger   *zap.Logger
}

func NewMatchWorker(
	matches repository.MatchRepository,
	resumes repository.ResumeRepository,
	jobs repository.JobRepository,
	analyzer Analyzer,
	parser DocumentParser,
	logger *zap.Logger,
) *MatchWorker {
	return &MatchWorker{
		matches:  matches,
		resumes:  resumes,
		jobs:     jobs,
		analyzer: analyzer,
		parser:   parser,
		logger:   logger,
	}
}

// Handle implements queue.Handler. A nil result with a nil error means
// the analysis service was unavailable; nothing is persisted and the
// producer observes a null outcome.
func (w *MatchWorker) Handle(ctx context.Context, msg *queue.Message) ([]byte, error) {
	var req MatchRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, queue.Terminal(fmt.Errorf("decode match request: %w", err))
	}

	existing, err := w.matches.FindByJobAndUser(ctx, req.JobID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if existing != nil {
		w.logger.Debug("match already exists, skipping analysis",
			zap.String("job_id", req.JobID.String()),
			zap.String("user_id", req.UserID.String()),
		)
		return json.Marshal(existing)
	}

	j, err := w.jobs.FindByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, queue.Terminal(err)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	resumeText, err := w.resumeText(ctx, req)
	if err != nil {
		return nil, err
	}

	metrics.RecordAnalysisCall()
	raw, err := w.analyzer.AnalyzeMatch(ctx, ai.BuildMatchPrompt(j.Description, resumeText))
	if err != nil {
		return nil, fmt.Errorf("analyze match: %w", err)
	}
	if ai.Unavailable(raw) {
		metrics.RecordAnalysisUnavailable()
		w.logger.Warn("analysis unavailable, returning null result",
			zap.String("job_id", req.JobID.String()),
			zap.String("user_id", req.UserID.String()),
		)
		return nil, nil
	}

	analysis, err := ai.ParseMatchAnalysis(raw)
	if err != nil {
		return nil, err
	}

	result, err := w.matches.Insert(ctx, match.Result{
		JobID:           req.JobID,
		UserID:          req.UserID,
		MatchPercentage: analysis.MatchPercentage,
		MatchedSkills:   analysis.MatchedSkills,
		MissingSkills:   analysis.MissingSkills,
		Summary:         analysis.Summary,
	})
	if err != nil {
		return nil, fmt.Errorf("persist match: %w", err)
	}

	if req.ResumeID != nil {
		if err := w.resumes.UpdateScore(ctx, *req.ResumeID,
			analysis.MatchPercentage, analysis.MatchedSkills,
			analysis.MissingSkills, analysis.Summary); err != nil {
			return nil, fmt.Errorf("update resume score: %w", err)
		}
	}

	return json.Marshal(result)
}

func (w *MatchWorker) resumeText(ctx context.Context, req MatchRequest) (string, error) {
	if req.ResumeID != nil {
		res, err := w.resumes.FindByID(ctx, *req.ResumeID)
		if err != nil {
			if errors.Is(err, repository.ErrResumeNotFound) {
				return "", queue.Terminal(err)
			}
			return "", fmt.Errorf("load resume: %w", err)
		}
		if res.ParsedText != "" {
			return res.ParsedText, nil
		}
		if res.FileURL != "" {
			return w.parser.Parse(ctx, res.FileURL)
		}
		return "", queue.Terminal(errors.New("resume has no text and no file url"))
	}

	if req.CVURL == "" {
		return "", queue.Terminal(errors.New("match request carries neither resume id nor cv url"))
	}
	return w.parser.Parse(ctx, req.CVURL)
}
