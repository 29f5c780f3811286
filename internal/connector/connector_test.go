package connector

import (
	"reflect"
	"testing"

	"github.com/spigell/grant-matcher/internal/grants"
)

func TestNewSearchContext(t *testing.T) {
	org := &grants.Organization{
		ID:          "org-1",
		Mission:     "We provide after-school tutoring for youth in Portland",
		FocusAreas:  []string{"Education", "Youth Development"},
		City:        " Portland ",
		State:       "OR",
		BudgetRange: "$100K-$500K",
	}

	search := NewSearchContext(org)

	wantKeywords := []string{"after", "school", "tutoring", "youth", "portland"}
	if !reflect.DeepEqual(search.Keywords, wantKeywords) {
		t.Fatalf("unexpected keywords: %v", search.Keywords)
	}
	if search.City != "Portland" || search.State != "OR" {
		t.Fatalf("unexpected location: %q %q", search.City, search.State)
	}
	if search.BudgetMin != 100_000 || search.BudgetMax != 500_000 {
		t.Fatalf("unexpected budget band: %v-%v", search.BudgetMin, search.BudgetMax)
	}

	org.FocusAreas[0] = "changed"
	if search.FocusAreas[0] != "Education" {
		t.Fatalf("search context must not alias organization focus areas")
	}
}

func TestNewSearchContextAnnualBudgetOverridesBand(t *testing.T) {
	search := NewSearchContext(&grants.Organization{ID: "org", BudgetRange: "$1M-$5M", AnnualBudget: 800_000})
	if search.BudgetMax != 800_000 || search.BudgetMin != 0 {
		t.Fatalf("unexpected budget band: %v-%v", search.BudgetMin, search.BudgetMax)
	}
}

func TestSearchContextMatches(t *testing.T) {
	search := SearchContext{Keywords: []string{"tutoring"}, FocusAreas: []string{"Arts"}}

	tests := []struct {
		name      string
		candidate grants.Candidate
		want      bool
	}{
		{name: "keyword in description", candidate: grants.Candidate{Description: "After school tutoring"}, want: true},
		{name: "focus area tag", candidate: grants.Candidate{FocusAreas: []string{"arts"}}, want: true},
		{name: "unrelated", candidate: grants.Candidate{Title: "Hospital equipment"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := search.Matches(&tt.candidate); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if !(SearchContext{}).Matches(&grants.Candidate{Title: "anything"}) {
		t.Fatalf("empty search must match everything")
	}
}

func TestSearchContextQuery(t *testing.T) {
	search := SearchContext{Keywords: []string{"youth", "tutoring"}, FocusAreas: []string{" Education ", ""}}
	if got := search.Query(); got != "youth tutoring Education" {
		t.Fatalf("unexpected query %q", got)
	}
}
