package ranking

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

const (
	DefaultTopN     = 10
	DefaultMinScore = 70
)

type JobVector struct {
	JobID     uuid.UUID
	Embedding []float32
}

type RankedJob struct {
	JobID uuid.UUID
	Score int
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. Vectors of
// different lengths, empty vectors and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every job against the candidate embedding, sorts
// descending, keeps the top topN and drops entries below minScore.
// Jobs without an embedding are excluded before scoring, not scored as
// zero. The sort is stable: equal scores keep enumeration order.
func Rank(candidate []float32, jobs []JobVector, topN, minScore int) []RankedJob {
	if len(candidate) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	ranked := make([]RankedJob, 0, len(jobs))
	for _, j := range jobs {
		if len(j.Embedding) == 0 {
			continue
		}
		score := int(math.Round(Cosine(candidate, j.Embedding) * 100))
		ranked = append(ranked, RankedJob{JobID: j.JobID, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	out := ranked[:0]
	for _, r := range ranked {
		if r.Score >= minScore {
			out = append(out, r)
		}
	}
	return out
}
