package ranking

import (
	"testing"

	"github.com/google/uuid"
)

func TestCosine_IdenticalVectors(t *testing.T) {
	got := Cosine([]float32{1, 0}, []float32{1, 0})
	if got < 0.9999 || got > 1.0001 {
		t.Fatalf("expected ~1, got %v", got)
	}
}

func TestCosine_OrthogonalVectors(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestCosine_ZeroOrMismatchedVectors(t *testing.T) {
	if got := Cosine(nil, []float32{1}); got != 0 {
		t.Fatalf("nil vector: expected 0, got %v", got)
	}
	if got := Cosine([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("length mismatch: expected 0, got %v", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero vector: expected 0, got %v", got)
	}
}

func TestRank_OrderAndThreshold(t *testing.T) {
	a := JobVector{JobID: uuid.New(), Embedding: []float32{1, 0}}
	b := JobVector{JobID: uuid.New(), Embedding: []float32{0, 1}}
	c := JobVector{JobID: uuid.New(), Embedding: []float32{0.7, 0.7}}

	ranked := Rank([]float32{1, 0}, []JobVector{a, b, c}, 10, 0)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked jobs, got %d", len(ranked))
	}
	if ranked[0].JobID != a.JobID || ranked[1].JobID != c.JobID || ranked[2].JobID != b.JobID {
		t.Fatalf("unexpected order: %v", ranked)
	}
	if ranked[0].Score != 100 {
		t.Fatalf("expected score 100 for identical vector, got %d", ranked[0].Score)
	}
	if ranked[1].Score != 71 {
		t.Fatalf("expected score 71 for [0.7,0.7], got %d", ranked[1].Score)
	}

	filtered := Rank([]float32{1, 0}, []JobVector{a, b, c}, 10, DefaultMinScore)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 jobs at threshold 70, got %d", len(filtered))
	}
	if filtered[0].JobID != a.JobID || filtered[1].JobID != c.JobID {
		t.Fatalf("unexpected filtered set: %v", filtered)
	}
}

func TestRank_BoundaryScoreIncluded(t *testing.T) {
	exact := JobVector{JobID: uuid.New(), Embedding: []float32{0.7, float32(0.714142842854285)}}
	// cos(candidate, exact) rounds to exactly 70
	got := Rank([]float32{1, 0}, []JobVector{exact}, 10, 70)
	if len(got) != 1 {
		t.Fatalf("expected boundary score to be included, got %v", got)
	}
	if got[0].Score != 70 {
		t.Fatalf("expected score 70, got %d", got[0].Score)
	}
}

func TestRank_ExcludesJobsWithoutEmbedding(t *testing.T) {
	withVec := JobVector{JobID: uuid.New(), Embedding: []float32{1, 0}}
	noVec := JobVector{JobID: uuid.New()}

	ranked := Rank([]float32{1, 0}, []JobVector{noVec, withVec}, 10, 0)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked job, got %d", len(ranked))
	}
	if ranked[0].JobID != withVec.JobID {
		t.Fatalf("job without embedding must be excluded, not scored as zero")
	}
}

func TestRank_TopNCutoff(t *testing.T) {
	jobs := make([]JobVector, 0, 15)
	for i := 0; i < 15; i++ {
		jobs = append(jobs, JobVector{JobID: uuid.New(), Embedding: []float32{1, 0}})
	}
	ranked := Rank([]float32{1, 0}, jobs, DefaultTopN, 0)
	if len(ranked) != DefaultTopN {
		t.Fatalf("expected top %d, got %d", DefaultTopN, len(ranked))
	}
	// stable sort: equal scores keep enumeration order
	for i, r := range ranked {
		if r.JobID != jobs[i].JobID {
			t.Fatalf("expected stable order for equal scores at index %d", i)
		}
	}
}

func TestRank_EmptyCandidate(t *testing.T) {
	if got := Rank(nil, []JobVector{{JobID: uuid.New(), Embedding: []float32{1}}}, 10, 0); got != nil {
		t.Fatalf("expected nil for empty candidate embedding, got %v", got)
	}
}
