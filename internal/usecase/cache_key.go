package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"talentmatch/internal/repository"

	"github.com/google/uuid"
)

type jobListCacheKeyInput struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

func normalizeCacheValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// JobsListCacheKey derives a stable key from the normalized filter, so
// filters differing only in case or whitespace share an entry.
func JobsListCacheKey(filter repository.JobListFilter) string {
	in := jobListCacheKeyInput{
		Title:    normalizeCacheValue(filter.Title),
		Company:  normalizeCacheValue(filter.Company),
		Location: normalizeCacheValue(filter.Location),
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}

	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	return "jobs:list:" + hex.EncodeToString(sum[:])
}

func JobCacheKey(id uuid.UUID) string {
	return "job:" + id.String()
}

func ApplicantsCacheKey(jobID uuid.UUID) string {
	return "job:" + jobID.String() + ":applicants"
}
