package resume

import (
	"testing"

	"github.com/google/uuid"
)

func scored(pct int) Resume {
	return Resume{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		MatchPercentage: &pct,
		MatchedSkills:   []string{"Go"},
	}
}

func TestScored(t *testing.T) {
	if (Resume{}).Scored() {
		t.Fatalf("empty resume must not count as scored")
	}

	pct := 75
	onlyPct := Resume{MatchPercentage: &pct}
	if onlyPct.Scored() {
		t.Fatalf("percentage without matched skills must not count as scored")
	}

	onlySkills := Resume{MatchedSkills: []string{"Go"}}
	if onlySkills.Scored() {
		t.Fatalf("matched skills without percentage must not count as scored")
	}

	if !scored(75).Scored() {
		t.Fatalf("expected scored resume")
	}
}

func TestPartitionByScore(t *testing.T) {
	best := scored(90)
	potential := scored(65)
	unlikely := scored(30)
	unscored := Resume{ID: uuid.New()}

	b := PartitionByScore([]Resume{best, potential, unlikely, unscored})

	if len(b.BestFits) != 1 || b.BestFits[0].ID != best.ID {
		t.Fatalf("expected BestFits = {90}, got %v", b.BestFits)
	}
	if len(b.PotentialFits) != 1 || b.PotentialFits[0].ID != potential.ID {
		t.Fatalf("expected PotentialFits = {65}, got %v", b.PotentialFits)
	}
	if len(b.UnlikelyFits) != 1 || b.UnlikelyFits[0].ID != unlikely.ID {
		t.Fatalf("expected UnlikelyFits = {30}, got %v", b.UnlikelyFits)
	}
}

func TestPartitionByScore_Boundaries(t *testing.T) {
	b := PartitionByScore([]Resume{scored(80), scored(79), scored(50), scored(49)})
	if len(b.BestFits) != 1 {
		t.Fatalf("80 belongs to BestFits")
	}
	if len(b.PotentialFits) != 2 {
		t.Fatalf("79 and 50 belong to PotentialFits, got %d", len(b.PotentialFits))
	}
	if len(b.UnlikelyFits) != 1 {
		t.Fatalf("49 belongs to UnlikelyFits")
	}
}

func TestSortByScore(t *testing.T) {
	first := scored(65)
	second := scored(65)
	top := scored(90)
	unscored := Resume{ID: uuid.New()}

	out := SortByScore([]Resume{first, second, unscored, top})
	if len(out) != 3 {
		t.Fatalf("unscored resumes must be dropped, got %d entries", len(out))
	}
	if out[0].ID != top.ID {
		t.Fatalf("expected highest score first")
	}
	if out[1].ID != first.ID || out[2].ID != second.ID {
		t.Fatalf("expected stable order for equal scores")
	}
}
