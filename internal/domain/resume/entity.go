package resume

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "Pending"
	StatusShortListed Status = "ShortListed"
	StatusAccepted    Status = "Accepted"
)

// Score band boundaries for submitted-resume partitioning.
const (
	BestFitMinScore      = 80
	PotentialFitMinScore = 50
)

type Resume struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	JobID      *uuid.UUID `json:"job_id,omitempty"`
	FileURL    string     `json:"file_url"`
	ParsedText string     `json:"parsed_text"`
	Embedding  []float32  `json:"embedding,omitempty"`

	MatchPercentage *int     `json:"match_percentage,omitempty"`
	MatchedSkills   []string `json:"matched_skills,omitempty"`
	MissingSkills   []string `json:"missing_skills,omitempty"`
	Summary         string   `json:"summary,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Scored reports whether the resume already carries match data. Batch
// workers must treat a scored resume as done and never re-score it.
func (r Resume) Scored() bool {
	return r.MatchPercentage != nil && len(r.MatchedSkills) > 0
}

// Bands partitions scored resumes into three non-overlapping score
// bands. Unscored resumes appear in none of them.
type Bands struct {
	BestFits      []Resume `json:"best_fits"`
	PotentialFits []Resume `json:"potential_fits"`
	UnlikelyFits  []Resume `json:"unlikely_fits"`
}

func PartitionByScore(resumes []Resume) Bands {
	b := Bands{
		BestFits:      make([]Resume, 0),
		PotentialFits: make([]Resume, 0),
		UnlikelyFits:  make([]Resume, 0),
	}
	for _, r := range resumes {
		if r.MatchPercentage == nil {
			continue
		}
		switch pct := *r.MatchPercentage; {
		case pct >= BestFitMinScore:
			b.BestFits = append(b.BestFits, r)
		case pct >= PotentialFitMinScore:
			b.PotentialFits = append(b.PotentialFits, r)
		default:
			b.UnlikelyFits = append(b.UnlikelyFits, r)
		}
	}
	return b
}

// SortByScore returns the scored subset ordered by match percentage
// descending. The sort is stable so equal scores keep submission order.
func SortByScore(resumes []Resume) []Resume {
	out := make([]Resume, 0, len(resumes))
	for _, r := range resumes {
		if r.MatchPercentage != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].MatchPercentage > *out[j].MatchPercentage
	})
	return out
}
