package match

import (
	"time"

	"github.com/google/uuid"
)

// Result is the persisted scoring record linking one job and one
// candidate. At most one Result exists per (JobID, UserID) pair.
type Result struct {
	ID              uuid.UUID `json:"id"`
	JobID           uuid.UUID `json:"job_id"`
	UserID          uuid.UUID `json:"user_id"`
	MatchPercentage int       `json:"match_percentage"`
	MatchedSkills   []string  `json:"matched_skills"`
	MissingSkills   []string  `json:"missing_skills"`
	Summary         string    `json:"summary"`
	CreatedAt       time.Time `json:"created_at"`
}
