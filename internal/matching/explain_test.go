package matching

import (
	"strings"
	"testing"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/scoring"
)

func TestFactors(t *testing.T) {
	s := uniformScores(60)
	s.Set(scoring.MissionAlignment, 95)
	s.Set(scoring.FocusAreaMatch, 90)
	s.Set(scoring.TimingScore, 85)
	s.Set(scoring.BudgetFit, 75)
	s.Set(scoring.CompetitionLevel, 40)
	s.Set(scoring.GeographicMatch, 30)

	strengths, considerations := factors(s)

	if len(strengths) != 3 {
		t.Fatalf("expected 3 strengths, got %d", len(strengths))
	}
	wantStrengths := []scoring.Dimension{scoring.MissionAlignment, scoring.FocusAreaMatch, scoring.TimingScore}
	for i, d := range wantStrengths {
		if strengths[i].Dimension != d {
			t.Fatalf("strength %d: got %s, want %s", i, strengths[i].Dimension, d)
		}
	}

	if len(considerations) != 2 {
		t.Fatalf("expected 2 considerations, got %d", len(considerations))
	}
	if considerations[0].Dimension != scoring.GeographicMatch || considerations[1].Dimension != scoring.CompetitionLevel {
		t.Fatalf("expected weakest first, got %v", considerations)
	}
}

func TestFactorsNeverEmpty(t *testing.T) {
	s := uniformScores(60)
	s.Set(scoring.FunderFit, 55)

	strengths, considerations := factors(s)
	if len(strengths) != 0 {
		t.Fatalf("expected no strengths, got %v", strengths)
	}
	if len(considerations) != 1 || considerations[0].Dimension != scoring.FunderFit {
		t.Fatalf("expected weakest dimension as the only consideration, got %v", considerations)
	}
}

func TestSuccessProbability(t *testing.T) {
	if got := SuccessProbability(uniformScores(50)); got != 0.15 {
		t.Fatalf("expected base probability, got %v", got)
	}

	s := uniformScores(50)
	s.Set(scoring.MissionAlignment, 90)
	if got := SuccessProbability(s); got != 0.3 {
		t.Fatalf("expected mission boost to double, got %v", got)
	}

	if got := SuccessProbability(uniformScores(100)); got != 0.95 {
		t.Fatalf("expected cap of 0.95, got %v", got)
	}
}

func TestExplanationText(t *testing.T) {
	m := newMatch(&grants.Candidate{ID: "opp-1"}, uniformScores(90), scoring.DefaultWeights())

	if m.Tier != TierHigh {
		t.Fatalf("expected high tier, got %s", m.Tier)
	}
	for _, want := range []string{"Apply Now", "Strengths:", "estimate"} {
		if !strings.Contains(m.Explanation, want) {
			t.Fatalf("explanation %q does not mention %q", m.Explanation, want)
		}
	}
}
