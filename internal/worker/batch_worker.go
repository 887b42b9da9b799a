package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"talentmatch/internal/ai"
	"talentmatch/internal/domain/resume"
	"talentmatch/internal/metrics"
	"talentmatch/internal/queue"
	"talentmatch/internal/repository"

	"go.uber.org/zap"
)

// BatchWorker scores every unscored resume submitted to one job. A
// failure partway through fails the whole message; on redelivery the
// skip check makes already-scored resumes free, so retries only pay for
// the remaining gap.
type BatchWorker struct {
	resumes  repository.ResumeRepository
	jobs     repository.JobRepository
	analyzer Analyzer
	parser   DocumentParser
	logger   *zap.Logger
}

func NewBatchWorker(
	resumes repository.ResumeRepository,
	jobs repository.JobRepository,
	analyzer Analyzer,
	parser DocumentParser,
	logger *zap.Logger,
) *BatchWorker {
	return &BatchWorker{
		resumes:  resumes,
		jobs:     jobs,
		analyzer: analyzer,
		parser:   parser,
		logger:   logger,
	}
}

// Handle implements queue.Handler.
func (w *BatchWorker) Handle(ctx context.Context, msg *queue.Message) ([]byte, error) {
	var req BatchRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, queue.Terminal(fmt.Errorf("decode batch request: %w", err))
	}

	j, err := w.jobs.FindByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, queue.Terminal(err)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}

	report := BatchReport{JobID: req.JobID}
	for i := range req.Resumes {
		res := &req.Resumes[i]
		if res.Scored() {
			report.Skipped++
			continue
		}

		outcome, err := w.scoreOne(ctx, j.Description, res)
		if err != nil {
			return nil, fmt.Errorf("score resume %s: %w", res.ID, err)
		}
		switch outcome {
		case outcomeScored:
			report.Scored++
		case outcomeUnavailable:
			report.Unavailable++
		}
	}

	w.logger.Info("batch scan finished",
		zap.String("job_id", req.JobID.String()),
		zap.Int("scored", report.Scored),
		zap.Int("skipped", report.Skipped),
		zap.Int("unavailable", report.Unavailable),
	)
	return json.Marshal(report)
}

type scoreOutcome int

const (
	outcomeScored scoreOutcome = iota
	outcomeUnavailable
)

// scoreOne analyzes one resume and persists its score. An unavailable
// analysis is not an error: the resume stays unscored and a later run
// picks it up.
func (w *BatchWorker) scoreOne(ctx context.Context, jobDescription string, res *resume.Resume) (scoreOutcome, error) {
	text := res.ParsedText
	if text == "" {
		if res.FileURL == "" {
			return 0, errors.New("resume has no text and no file url")
		}
		parsed, err := w.parser.Parse(ctx, res.FileURL)
		if err != nil {
			return 0, err
		}
		text = parsed
	}

	metrics.RecordAnalysisCall()
	raw, err := w.analyzer.AnalyzeMatch(ctx, ai.BuildMatchPrompt(jobDescription, text))
	if err != nil {
		return 0, err
	}
	if ai.Unavailable(raw) {
		metrics.RecordAnalysisUnavailable()
		return outcomeUnavailable, nil
	}

	analysis, err := ai.ParseMatchAnalysis(raw)
	if err != nil {
		return 0, err
	}

	if err := w.resumes.UpdateScore(ctx, res.ID,
		analysis.MatchPercentage, analysis.MatchedSkills,
		analysis.MissingSkills, analysis.Summary); err != nil {
		return 0, err
	}

	pct := analysis.MatchPercentage
	res.MatchPercentage = &pct
	res.MatchedSkills = analysis.MatchedSkills
	res.MissingSkills = analysis.MissingSkills
	res.Summary = analysis.Summary
	return outcomeScored, nil
}
