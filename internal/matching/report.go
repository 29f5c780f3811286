package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spigell/grant-matcher/internal/aggregator"
	"github.com/spigell/grant-matcher/internal/eligibility"
	"github.com/spigell/grant-matcher/internal/filtering"
	"github.com/spigell/grant-matcher/internal/grants"
)

// Funnel counts candidates surviving each stage of a run.
type Funnel struct {
	Fetched        int `json:"fetched"`
	Duplicates     int `json:"duplicates"`
	Eligible       int `json:"eligible"`
	Filtered       int `json:"filtered"`
	Scored         int `json:"scored"`
	AboveThreshold int `json:"above_threshold"`
	Returned       int `json:"returned"`
}

// Rejection records why the gate removed a candidate.
type Rejection struct {
	CandidateID string           `json:"candidate_id"`
	Title       string           `json:"title"`
	Rule        eligibility.Rule `json:"rule"`
	Reason      string           `json:"reason"`
}

// Report is the outcome of one Match call.
type Report struct {
	RunID            string                    `json:"run_id"`
	OrganizationID   string                    `json:"organization_id"`
	OrganizationName string                    `json:"organization_name"`
	Maturity         Maturity                  `json:"maturity"`
	Threshold        float64                   `json:"threshold"`
	MaxResults       int                       `json:"max_results"`
	Strategy         string                    `json:"mission_strategy"`
	Weights          map[string]float64        `json:"weights"`
	Matches          []*Match                  `json:"matches"`
	Sources          []aggregator.SourceStatus `json:"sources"`
	Filters          []filtering.StepReport    `json:"filters,omitempty"`
	Rejections       []Rejection               `json:"rejections,omitempty"`
	Funnel           Funnel                    `json:"funnel"`
	Diagnostic       string                    `json:"diagnostic,omitempty"`
	GeneratedAt      time.Time                 `json:"generated_at"`
	Duration         time.Duration             `json:"duration"`
}

// Grouped returns matches bucketed by tier, keeping rank order inside each bucket.
func (r *Report) Grouped() map[Tier][]*Match {
	groups := make(map[Tier][]*Match, len(Tiers))
	for _, m := range r.Matches {
		groups[m.Tier] = append(groups[m.Tier], m)
	}
	return groups
}

// Candidates returns the matched opportunities in rank order.
func (r *Report) Candidates() *grants.Candidates {
	items := make([]*grants.Candidate, 0, len(r.Matches))
	for _, m := range r.Matches {
		items = append(items, m.Candidate)
	}
	return &grants.Candidates{Items: items}
}

func rejections(results map[string]eligibility.Result, candidates []*grants.Candidate) []Rejection {
	if len(results) == 0 {
		return nil
	}
	titles := make(map[string]string, len(candidates))
	for _, c := range candidates {
		titles[c.ID] = c.Title
	}

	out := make([]Rejection, 0, len(results))
	for id, res := range results {
		out = append(out, Rejection{CandidateID: id, Title: titles[id], Rule: res.Rule, Reason: res.Reason})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CandidateID < out[j].CandidateID
	})
	return out
}

// diagnose explains an empty result set by the first stage that emptied the funnel.
func diagnose(r *Report, result *aggregator.Result) string {
	switch {
	case result.AllFailed():
		names := make([]string, 0, len(result.Sources))
		for _, s := range result.Sources {
			names = append(names, s.Name)
		}
		return fmt.Sprintf("all %d opportunity sources failed (%s); no candidates were fetched",
			len(result.Sources), strings.Join(names, ", "))
	case len(result.Sources) == 0:
		return "no opportunity sources are configured"
	case r.Funnel.Fetched == 0:
		return "sources returned no opportunities for this search"
	case r.Funnel.Eligible == 0:
		return fmt.Sprintf("none of the %d fetched opportunities passed eligibility (%s)",
			r.Funnel.Fetched, rulesSummary(r.Rejections))
	case r.Funnel.Filtered == 0:
		return "every eligible opportunity was excluded by funder or dismissal filters"
	case r.Funnel.AboveThreshold == 0:
		return fmt.Sprintf("no opportunity reached the minimum score of %.0f for a %s organization",
			r.Threshold, r.Maturity)
	default:
		return ""
	}
}

func rulesSummary(rejections []Rejection) string {
	counts := make(map[eligibility.Rule]int)
	for _, r := range rejections {
		counts[r.Rule]++
	}
	parts := make([]string, 0, len(counts))
	for _, rule := range eligibility.Rules {
		if n := counts[rule]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", rule, n))
		}
	}
	return strings.Join(parts, ", ")
}
