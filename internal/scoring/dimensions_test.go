package scoring

import (
	"testing"
	"time"

	"github.com/spigell/grant-matcher/internal/grants"
)

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func amount(v float64) *float64 {
	return &v
}

func inDays(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func testOrg() *grants.Organization {
	return &grants.Organization{
		ID:           "org-1",
		Name:         "Portland Youth Tutors",
		Mission:      "Literacy tutoring for low-income youth in Portland schools",
		FocusAreas:   []string{"education", "youth", "literacy"},
		City:         "Portland",
		State:        "OR",
		AnnualBudget: 400_000,
		StaffCount:   4,
		FoundedYear:  2015,
		PriorFunders: []string{"Meyer Memorial Trust"},
	}
}

func TestTimingScore(t *testing.T) {
	tests := []struct {
		name     string
		deadline *time.Time
		want     float64
	}{
		{name: "rolling", want: defaultTiming},
		{name: "ten days", deadline: inDays(10), want: 20},
		{name: "twenty days", deadline: inDays(20), want: 70},
		{name: "thirty five days", deadline: inDays(35), want: 90},
		{name: "forty five days", deadline: inDays(45), want: 100},
		{name: "seventy five days", deadline: inDays(75), want: 100},
		{name: "ninety days", deadline: inDays(90), want: 90},
		{name: "four months", deadline: inDays(120), want: 80},
		{name: "a year", deadline: inDays(365), want: 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timingScore(now, &grants.Candidate{Deadline: tt.deadline})
			if got != tt.want {
				t.Fatalf("timingScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBudgetFit(t *testing.T) {
	org := testOrg()

	tests := []struct {
		name  string
		award *float64
		want  float64
	}{
		{name: "unknown award", want: defaultBudgetFit},
		{name: "fifteen percent", award: amount(60_000), want: 100},
		{name: "twenty five percent", award: amount(100_000), want: 90},
		{name: "tiny award", award: amount(4_000), want: 65},
		{name: "forty percent", award: amount(160_000), want: 57.5},
		{name: "larger than budget", award: amount(500_000), want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := budgetFit(org, &grants.Candidate{AmountMax: tt.award})
			if diff := got - tt.want; diff > 0.001 || diff < -0.001 {
				t.Fatalf("budgetFit() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := budgetFit(&grants.Organization{}, &grants.Candidate{AmountMax: amount(10)}); got != defaultBudgetFit {
		t.Fatalf("expected neutral score without a budget, got %v", got)
	}
}

func TestCapacityFit(t *testing.T) {
	tests := []struct {
		name  string
		staff int
		award *float64
		want  float64
	}{
		{name: "unknown award", staff: 4, want: defaultCapacity},
		{name: "unknown staff", award: amount(100_000), want: unknownStaff},
		{name: "small per head", staff: 4, award: amount(100_000), want: 95},
		{name: "medium per head", staff: 2, award: amount(180_000), want: 85},
		{name: "large per head", staff: 1, award: amount(200_000), want: 65},
		{name: "overloaded", staff: 1, award: amount(1_000_000), want: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := &grants.Organization{StaffCount: tt.staff}
			if got := capacityFit(org, &grants.Candidate{AmountMax: tt.award}); got != tt.want {
				t.Fatalf("capacityFit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGeographicMatch(t *testing.T) {
	org := testOrg()

	tests := map[string]float64{
		"":                    defaultGeography,
		"Nationwide":          90,
		"Portland metro area": 85,
		"Oregon":              80,
		"Salem, OR":           80,
		"Portland, ME":        30,
		"Texas":               30,
	}

	for geography, want := range tests {
		if got := geographicMatch(org, &grants.Candidate{Geography: geography}); got != want {
			t.Fatalf("geographicMatch(%q) = %v, want %v", geography, got, want)
		}
	}
}

func TestFocusAreaMatch(t *testing.T) {
	org := testOrg()

	tests := []struct {
		name      string
		candidate grants.Candidate
		want      float64
	}{
		{name: "three tags", candidate: grants.Candidate{FocusAreas: []string{"Education", "Youth Development", "Literacy"}}, want: 100},
		{name: "two tags", candidate: grants.Candidate{FocusAreas: []string{"education", "youth"}}, want: 90},
		{name: "one tag", candidate: grants.Candidate{FocusAreas: []string{"Youth sports"}}, want: 72},
		{name: "no overlap", candidate: grants.Candidate{FocusAreas: []string{"environment"}}, want: 35},
		{name: "falls back to text", candidate: grants.Candidate{Title: "Early literacy initiative"}, want: 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := focusAreaMatch(org, &tt.candidate); got != tt.want {
				t.Fatalf("focusAreaMatch() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := focusAreaMatch(&grants.Organization{}, &grants.Candidate{FocusAreas: []string{"education"}}); got != defaultFocus {
		t.Fatalf("expected neutral focus score without organization focus areas, got %v", got)
	}
}

func TestEligibilityFit(t *testing.T) {
	tests := []struct {
		name      string
		faith     bool
		grantType string
		preferred []string
		text      string
		want      float64
	}{
		{name: "empty text", want: defaultEligibility},
		{name: "clean text", text: "Open to 501(c)(3) organizations", want: 100},
		{name: "faith required for secular org", text: "Faith-based organizations only", want: 70},
		{name: "faith excluded for faith org", faith: true, text: "Religious organizations are not eligible", want: 70},
		{name: "matching funds", text: "A 1:1 match is required", want: 80},
		{name: "invitation only", text: "By invitation only", want: 60},
		{name: "grant type mismatch", text: "Open to all", grantType: "capital", preferred: []string{"program", "general operating"}, want: 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			org := &grants.Organization{FaithBased: tt.faith, PreferredGrantTypes: tt.preferred}
			c := &grants.Candidate{Eligibility: tt.text, GrantType: tt.grantType}
			if got := eligibilityFit(org, c); got != tt.want {
				t.Fatalf("eligibilityFit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInvitationFromPriorFunderIsNotPenalized(t *testing.T) {
	org := testOrg()
	c := &grants.Candidate{Funder: "Meyer Memorial Trust", Eligibility: "By invitation only"}
	if got := eligibilityFit(org, c); got != 100 {
		t.Fatalf("eligibilityFit() = %v, want 100", got)
	}
}

func TestFunderFit(t *testing.T) {
	org := testOrg()

	tests := []struct {
		name      string
		candidate grants.Candidate
		want      float64
	}{
		{name: "unknown funder", candidate: grants.Candidate{}, want: defaultFunder},
		{name: "prior funder", candidate: grants.Candidate{Funder: "meyer memorial trust"}, want: 95},
		{name: "stranger", candidate: grants.Candidate{Funder: "Acme", Geography: "Texas"}, want: 50},
		{
			name: "local funder with right-sized award and shared focus",
			candidate: grants.Candidate{
				Funder:     "Oregon Community Foundation",
				Geography:  "Oregon",
				AmountMax:  amount(60_000),
				FocusAreas: []string{"education"},
			},
			want: 85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := funderFit(org, &tt.candidate); got != tt.want {
				t.Fatalf("funderFit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompetitionLevel(t *testing.T) {
	if federal, local := competitionLevel(&grants.Candidate{SourceKind: grants.SourceFederal}), competitionLevel(&grants.Candidate{SourceKind: grants.SourceLocal}); federal >= local {
		t.Fatalf("expected federal programs to score lower than local ones, got %v >= %v", federal, local)
	}
	if got := competitionLevel(&grants.Candidate{}); got != defaultCompetition {
		t.Fatalf("competitionLevel() = %v, want %v", got, defaultCompetition)
	}
}

func TestMissionHeuristic(t *testing.T) {
	org := testOrg()

	aligned := &grants.Candidate{Title: "Youth literacy tutoring", Description: "Supports tutoring in low-income schools"}
	unrelated := &grants.Candidate{Title: "Watershed restoration", Description: "River habitat cleanup"}

	high := missionHeuristic(org, aligned)
	low := missionHeuristic(org, unrelated)
	if high <= low {
		t.Fatalf("expected aligned candidate to score higher: %v <= %v", high, low)
	}
	if low != 30 {
		t.Fatalf("expected floor of 30 without overlap, got %v", low)
	}
	if got := missionHeuristic(&grants.Organization{}, aligned); got != defaultMission {
		t.Fatalf("expected neutral score without mission, got %v", got)
	}
}
