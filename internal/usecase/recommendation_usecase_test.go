package usecase

import (
	"context"
	"errors"
	"testing"

	"talentmatch/internal/domain/job"
	"talentmatch/internal/domain/resume"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.vector, s.err
}

func TestRecommendRanksOpenJobsBySimilarity(t *testing.T) {
	exact := job.Job{ID: uuid.New(), Title: "Exact", Embedding: []float32{1, 0}}
	close_ := job.Job{ID: uuid.New(), Title: "Close", Embedding: []float32{0.8, 0.6}}
	far := job.Job{ID: uuid.New(), Title: "Far", Embedding: []float32{0, 1}}
	closed := job.Job{ID: uuid.New(), Title: "Closed", Embedding: []float32{1, 0}, IsClosed: true}

	resumes := &stubResumeRepo{general: resume.Resume{ID: uuid.New(), ParsedText: "cv", Embedding: []float32{1, 0}}}
	jobs := &stubJobRepo{jobs: []job.Job{far, close_, exact, closed}}
	embedder := &stubEmbedder{}

	u := NewRecommendationUsecase(resumes, jobs, embedder, zap.NewNop())
	got, err := u.Recommend(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	if embedder.calls != 0 {
		t.Fatalf("stored embedding must be reused, got %d embed calls", embedder.calls)
	}
	// far scores 0 and closed is excluded, so only exact and close_ remain.
	if len(got) != 2 {
		t.Fatalf("expected 2 recommendations, got %d: %+v", len(got), got)
	}
	if got[0].Job.ID != exact.ID || got[0].Score != 100 {
		t.Fatalf("expected the exact match first, got %+v", got[0])
	}
	if got[1].Job.ID != close_.ID || got[1].Score != 80 {
		t.Fatalf("expected the close match second, got %+v", got[1])
	}
}

func TestRecommendBackfillsEmbeddingOnce(t *testing.T) {
	resumes := &stubResumeRepo{general: resume.Resume{ID: uuid.New(), ParsedText: "seasoned Go engineer"}}
	jobs := &stubJobRepo{jobs: []job.Job{{ID: uuid.New(), Embedding: []float32{1, 0}}}}
	embedder := &stubEmbedder{vector: []float32{1, 0}}

	u := NewRecommendationUsecase(resumes, jobs, embedder, zap.NewNop())
	if _, err := u.Recommend(context.Background(), uuid.New()); err != nil {
		t.Fatalf("first Recommend: %v", err)
	}
	if _, err := u.Recommend(context.Background(), uuid.New()); err != nil {
		t.Fatalf("second Recommend: %v", err)
	}

	if embedder.calls != 1 {
		t.Fatalf("embedding should be computed once and stored, got %d calls", embedder.calls)
	}
	if resumes.embeddingSaves != 1 {
		t.Fatalf("expected 1 embedding save, got %d", resumes.embeddingSaves)
	}
}

func TestRecommendWithoutGeneralResume(t *testing.T) {
	u := NewRecommendationUsecase(&stubResumeRepo{noGeneral: true}, &stubJobRepo{}, &stubEmbedder{}, zap.NewNop())
	_, err := u.Recommend(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoGeneralResume) {
		t.Fatalf("expected ErrNoGeneralResume, got %v", err)
	}
}

func TestRecommendEmbedFailureSurfaces(t *testing.T) {
	resumes := &stubResumeRepo{general: resume.Resume{ID: uuid.New(), ParsedText: "cv"}}
	embedder := &stubEmbedder{err: errors.New("embedding backend down")}

	u := NewRecommendationUsecase(resumes, &stubJobRepo{}, embedder, zap.NewNop())
	if _, err := u.Recommend(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}
