package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MatchAnalysis is the structured verdict expected from the analysis
// service.
type MatchAnalysis struct {
	MatchPercentage int
	MatchedSkills   []string
	MissingSkills   []string
	Summary         string
}

type rawAnalysis struct {
	MatchPercentage float64  `json:"match_percentage"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
	Summary         string   `json:"summary"`
}

// Unavailable reports whether the raw response signals that the
// analysis service produced nothing usable: empty output or a
// quota-exceeded marker. Such responses are surfaced as a null result,
// never parsed or persisted.
func Unavailable(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	return strings.Contains(strings.ToLower(raw), "quota")
}

// ParseMatchAnalysis strips code-fence markers and decodes the JSON
// verdict. A decode failure is a retryable condition for the caller.
func ParseMatchAnalysis(raw string) (MatchAnalysis, error) {
	cleaned := stripFences(raw)

	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return MatchAnalysis{}, fmt.Errorf("parse analysis response: %w", err)
	}

	pct := int(math.Round(parsed.MatchPercentage))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	matched := parsed.MatchedSkills
	if matched == nil {
		matched = []string{}
	}
	missing := parsed.MissingSkills
	if missing == nil {
		missing = []string{}
	}

	return MatchAnalysis{
		MatchPercentage: pct,
		MatchedSkills:   matched,
		MissingSkills:   missing,
		Summary:         strings.TrimSpace(parsed.Summary),
	}, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw)
}
