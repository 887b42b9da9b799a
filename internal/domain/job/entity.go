package job

import (
	"time"

	"github.com/google/uuid"
)

type Job struct {
	ID            uuid.UUID
	RecruiterID   uuid.UUID
	Title         string
	Company       string
	Location      string
	Description   string
	MaxApplicants int
	IsClosed      bool
	Embedding     []float32
	CreatedAt     time.Time

	// SubmittedCount is populated by listing queries only.
	SubmittedCount int
}

// Full reports whether the posting has reached its applicant cap.
// A cap of zero means unlimited.
func (j Job) Full() bool {
	return j.MaxApplicants > 0 && j.SubmittedCount >= j.MaxApplicants
}

// HasEmbedding reports whether the posting is eligible for
// similarity ranking.
func (j Job) HasEmbedding() bool {
	return len(j.Embedding) > 0
}
