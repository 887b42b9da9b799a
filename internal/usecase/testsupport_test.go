package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"talentmatch/internal/domain/job"
	"talentmatch/internal/domain/resume"
	"talentmatch/internal/queue"
	"talentmatch/internal/repository"

	"github.com/google/uuid"
)

// fakeCache is an in-memory ResultCache with an injectable clock so
// tests can observe TTL expiry without sleeping.
type fakeCache struct {
	now     func() time.Time
	entries map[string]fakeCacheEntry
	sets    int
	deletes int
}

type fakeCacheEntry struct {
	data      []byte
	expiresAt time.Time
}

func newFakeCache() *fakeCache {
	return &fakeCache{now: time.Now, entries: make(map[string]fakeCacheEntry)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	entry, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return false, nil
	}
	if err := json.Unmarshal(entry.data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 600 * time.Second
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = fakeCacheEntry{data: b, expiresAt: c.now().Add(ttl)}
	c.sets++
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	c.deletes++
	return nil
}

// stubResumeRepo keeps resumes in memory; UpdateScore mutates in place
// the way the batch worker expects the store to behave.
type stubResumeRepo struct {
	resumes   []resume.Resume
	general   resume.Resume
	noGeneral bool

	listCalls       int
	embeddingSaves  int
	statusUpdates   []resume.Status
	savedEmbeddings [][]float32
}

func (s *stubResumeRepo) FindByID(_ context.Context, id uuid.UUID) (resume.Resume, error) {
	for _, r := range s.resumes {
		if r.ID == id {
			return r, nil
		}
	}
	return resume.Resume{}, repository.ErrResumeNotFound
}

func (s *stubResumeRepo) ListByJob(_ context.Context, _ uuid.UUID) ([]resume.Resume, error) {
	s.listCalls++
	out := make([]resume.Resume, len(s.resumes))
	copy(out, s.resumes)
	return out, nil
}

func (s *stubResumeRepo) FindGeneralByUser(_ context.Context, _ uuid.UUID) (resume.Resume, error) {
	if s.noGeneral {
		return resume.Resume{}, repository.ErrResumeNotFound
	}
	return s.general, nil
}

func (s *stubResumeRepo) UpdateScore(_ context.Context, id uuid.UUID, pct int, matched, missing []string, summary string) error {
	for i := range s.resumes {
		if s.resumes[i].ID == id {
			p := pct
			s.resumes[i].MatchPercentage = &p
			s.resumes[i].MatchedSkills = matched
			s.resumes[i].MissingSkills = missing
			s.resumes[i].Summary = summary
			return nil
		}
	}
	return repository.ErrResumeNotFound
}

func (s *stubResumeRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status resume.Status) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func (s *stubResumeRepo) UpdateEmbedding(_ context.Context, _ uuid.UUID, embedding []float32) error {
	s.embeddingSaves++
	s.savedEmbeddings = append(s.savedEmbeddings, embedding)
	s.general.Embedding = embedding
	return nil
}

type stubJobRepo struct {
	jobs      []job.Job
	listCalls int
	closed    []uuid.UUID
}

func (s *stubJobRepo) FindByID(_ context.Context, id uuid.UUID) (job.Job, error) {
	for _, j := range s.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return job.Job{}, repository.ErrJobNotFound
}

func (s *stubJobRepo) List(_ context.Context, _ repository.JobListFilter) ([]job.Job, error) {
	s.listCalls++
	out := make([]job.Job, len(s.jobs))
	copy(out, s.jobs)
	return out, nil
}

func (s *stubJobRepo) ListOpenWithEmbedding(_ context.Context) ([]job.Job, error) {
	out := make([]job.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !j.IsClosed && len(j.Embedding) > 0 {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *stubJobRepo) MarkClosed(_ context.Context, id uuid.UUID) error {
	s.closed = append(s.closed, id)
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			s.jobs[i].IsClosed = true
		}
	}
	return nil
}

// refusingBroker fails every enqueue; tests use it to prove a path
// never reaches the queue.
type refusingBroker struct {
	enqueues int
}

func (b *refusingBroker) Enqueue(_ context.Context, _ string, _ []byte, _ queue.Options) (*queue.Handle, error) {
	b.enqueues++
	return nil, errors.New("unexpected enqueue")
}

func (b *refusingBroker) Consume(_ context.Context, _ string, _ int, _ queue.Handler) error {
	return nil
}

func (b *refusingBroker) Close() error { return nil }
