// Package worker holds the queue consumers that run the match pipeline:
// one for single candidate/job analyses, one for whole-job batch scans.
package worker

import (
	"context"

	"talentmatch/internal/domain/resume"

	"github.com/google/uuid"
)

// Queue names shared between producers and consumers.
const (
	QueueMatchJob    = "match_job"
	QueueMatchResume = "match_resume"
)

// Analyzer is the slice of the model client the workers need.
type Analyzer interface {
	AnalyzeMatch(ctx context.Context, prompt string) (string, error)
}

// DocumentParser turns a CV URL into plain text.
type DocumentParser interface {
	Parse(ctx context.Context, url string) (string, error)
}

// MatchRequest asks for one candidate to be scored against one job.
// Either ResumeID (a stored resume) or CVURL (a raw document) supplies
// the candidate text; ResumeID wins when both are set.
type MatchRequest struct {
	JobID    uuid.UUID  `json:"job_id"`
	UserID   uuid.UUID  `json:"user_id"`
	ResumeID *uuid.UUID `json:"resume_id,omitempty"`
	CVURL    string     `json:"cv_url,omitempty"`
}

// BatchRequest asks for every unscored resume submitted to a job to be
// scored. The resume snapshot rides in the payload so a worker can make
// the skip decision without a read per message.
type BatchRequest struct {
	JobID   uuid.UUID       `json:"job_id"`
	Resumes []resume.Resume `json:"resumes"`
}

// BatchReport summarizes one batch pass. Skipped counts resumes that
// already carried scores; unavailable counts resumes the analysis
// service produced nothing usable for.
type BatchReport struct {
	JobID       uuid.UUID `json:"job_id"`
	Scored      int       `json:"scored"`
	Skipped     int       `json:"skipped"`
	Unavailable int       `json:"unavailable"`
}
