package connector

import (
	"context"
	"strings"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/textutil"
)

// maxKeywords bounds the number of mission keywords sent to sources.
const maxKeywords = 8

// Connector fetches candidate opportunities from one external source.
// Implementations must honor ctx cancellation and may return an empty slice.
type Connector interface {
	Name() string
	Kind() grants.SourceKind
	Fetch(ctx context.Context, search SearchContext, limit int) ([]grants.Candidate, error)
}

// SearchContext is the query every connector receives for one organization.
type SearchContext struct {
	Keywords   []string `json:"keywords"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty"`
	BudgetMin  float64  `json:"budget_min,omitempty"`
	BudgetMax  float64  `json:"budget_max,omitempty"`
}

// NewSearchContext derives the search query from an organization profile.
func NewSearchContext(org *grants.Organization) SearchContext {
	search := SearchContext{
		City:       strings.TrimSpace(org.City),
		State:      strings.TrimSpace(org.State),
		FocusAreas: append([]string(nil), org.FocusAreas...),
	}

	keywords := textutil.Tokens(org.Mission)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	search.Keywords = keywords

	if band, err := grants.ParseBudgetRange(org.BudgetRange); err == nil {
		search.BudgetMin = band.Lower
		search.BudgetMax = band.Upper
	}
	if org.AnnualBudget > 0 {
		search.BudgetMax = org.AnnualBudget
		if search.BudgetMin > search.BudgetMax {
			search.BudgetMin = 0
		}
	}

	return search
}

// Query returns a single free-text query combining keywords and focus areas.
func (s SearchContext) Query() string {
	parts := make([]string, 0, len(s.Keywords)+len(s.FocusAreas))
	parts = append(parts, s.Keywords...)
	for _, area := range s.FocusAreas {
		if area = strings.TrimSpace(area); area != "" {
			parts = append(parts, area)
		}
	}
	return strings.Join(parts, " ")
}

// Matches reports whether a candidate is relevant to the search. Connectors without
// server-side search use it to narrow fixtures. An empty search matches everything.
func (s SearchContext) Matches(c *grants.Candidate) bool {
	if len(s.Keywords) == 0 && len(s.FocusAreas) == 0 {
		return true
	}

	text := textutil.TokenSet(c.Text() + " " + c.Eligibility)
	for _, keyword := range s.Keywords {
		if _, ok := text[keyword]; ok {
			return true
		}
	}
	for _, area := range s.FocusAreas {
		for _, token := range textutil.Tokens(area) {
			if _, ok := text[token]; ok {
				return true
			}
		}
	}
	return false
}

// stamp fills source metadata a connector knows about its own results.
func stamp(candidates []grants.Candidate, name string, kind grants.SourceKind) {
	for i := range candidates {
		if candidates[i].Source == "" {
			candidates[i].Source = name
		}
		if candidates[i].SourceKind == "" {
			candidates[i].SourceKind = kind
		}
	}
}

func truncate(candidates []grants.Candidate, limit int) []grants.Candidate {
	if limit > 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}
