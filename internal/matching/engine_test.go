package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spigell/grant-matcher/internal/aggregator"
	"github.com/spigell/grant-matcher/internal/connector"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/scoring"
)

var now = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return now
}

func amount(v float64) *float64 {
	return &v
}

func inDays(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

var errNotFound = errors.New("not found")

type stubOrganizations map[string]*grants.Organization

func (s stubOrganizations) Get(_ context.Context, id string) (*grants.Organization, error) {
	org, ok := s[id]
	if !ok {
		return nil, errNotFound
	}
	return org, nil
}

type stubConnector struct {
	name       string
	candidates []grants.Candidate
	err        error
}

func (s *stubConnector) Name() string            { return s.name }
func (s *stubConnector) Kind() grants.SourceKind { return grants.SourceFoundation }

func (s *stubConnector) Fetch(context.Context, connector.SearchContext, int) ([]grants.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]grants.Candidate(nil), s.candidates...), nil
}

func startupOrg() *grants.Organization {
	return &grants.Organization{
		ID:          "org-1",
		Name:        "Portland Youth Tutors",
		Mission:     "Literacy tutoring for low-income youth",
		FocusAreas:  []string{"education", "youth", "literacy"},
		City:        "Portland",
		State:       "OR",
		BudgetRange: "$100K-$500K",
		StaffCount:  4,
		FoundedYear: 2025,
	}
}

func strongCandidate(id string) grants.Candidate {
	return grants.Candidate{
		ID:          id,
		Title:       "Youth literacy tutoring " + id,
		Description: "Tutoring for low-income youth",
		Funder:      "Oregon Community Foundation",
		SourceKind:  grants.SourceFoundation,
		AmountMax:   amount(60_000),
		Deadline:    inDays(45),
		Geography:   "Oregon",
		Eligibility: "501(c)(3) organizations",
		FocusAreas:  []string{"education", "youth", "literacy"},
		URL:         "https://example.org/" + id,
	}
}

func newTestEngine(t *testing.T, org *grants.Organization, connectors ...connector.Connector) *Engine {
	t.Helper()

	engine, err := NewEngine(Deps{
		Organizations: stubOrganizations{org.ID: org},
		Sources:       aggregator.New(nil, aggregator.Options{SourceTimeout: time.Second}, connectors...),
	}, Options{Clock: fixedClock})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func matchIDs(r *Report) []string {
	ids := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		ids = append(ids, m.Candidate.ID)
	}
	return ids
}

func findRejection(r *Report, id string) (Rejection, bool) {
	for _, rej := range r.Rejections {
		if rej.CandidateID == id {
			return rej, true
		}
	}
	return Rejection{}, false
}

func TestMatchRejectsOversizedAward(t *testing.T) {
	oversized := strongCandidate("big")
	oversized.AmountMax = amount(600_000)

	engine := newTestEngine(t, startupOrg(), &stubConnector{
		name:       "fixtures",
		candidates: []grants.Candidate{oversized, strongCandidate("ok")},
	})

	report, err := engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}

	for _, id := range matchIDs(report) {
		if id == "big" {
			t.Fatalf("oversized award must not be matched")
		}
	}
	rej, ok := findRejection(report, "big")
	if !ok || !strings.Contains(rej.Reason, "exceeds organizational capacity") {
		t.Fatalf("expected capacity rejection, got %+v", rej)
	}
	if report.Funnel.Fetched != 2 || report.Funnel.Eligible != 1 {
		t.Fatalf("unexpected funnel %+v", report.Funnel)
	}
}

func TestMatchDeadlineScenario(t *testing.T) {
	soon := strongCandidate("soon")
	soon.Deadline = inDays(5)

	engine := newTestEngine(t, startupOrg(), &stubConnector{name: "a", candidates: []grants.Candidate{soon}})
	report, err := engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(report.Matches) != 0 {
		t.Fatalf("expected no matches, got %v", matchIDs(report))
	}
	rej, ok := findRejection(report, "soon")
	if !ok || !strings.Contains(rej.Reason, "Deadline too soon") {
		t.Fatalf("expected deadline rejection, got %+v", rej)
	}
	if report.Diagnostic == "" {
		t.Fatalf("expected a diagnostic for an empty report")
	}

	later := strongCandidate("soon")
	engine = newTestEngine(t, startupOrg(), &stubConnector{name: "a", candidates: []grants.Candidate{later}})
	report, err = engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(report.Matches) != 1 {
		t.Fatalf("expected the 45 day candidate to match, got %v (%s)", matchIDs(report), report.Diagnostic)
	}
	if got := report.Matches[0].Scores.Get(scoring.TimingScore); got < 90 {
		t.Fatalf("expected timing >= 90, got %v", got)
	}
}

func TestMatchSurvivesFailingConnector(t *testing.T) {
	engine := newTestEngine(t, startupOrg(),
		&stubConnector{name: "broken", err: errors.New("connection refused")},
		&stubConnector{name: "healthy", candidates: []grants.Candidate{strongCandidate("a"), strongCandidate("b")}},
	)

	report, err := engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(report.Matches) != 2 {
		t.Fatalf("expected matches from the healthy connector, got %v", matchIDs(report))
	}
	if len(report.Sources) != 2 || !report.Sources[0].Failed() || report.Sources[1].Failed() {
		t.Fatalf("unexpected source statuses %+v", report.Sources)
	}
}

func TestMatchAllSourcesFailed(t *testing.T) {
	engine := newTestEngine(t, startupOrg(),
		&stubConnector{name: "a", err: errors.New("boom")},
		&stubConnector{name: "b", err: errors.New("boom")},
	)

	report, err := engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("expected no error when every source fails, got %v", err)
	}
	if len(report.Matches) != 0 {
		t.Fatalf("expected an empty report")
	}
	if !strings.Contains(report.Diagnostic, "all 2 opportunity sources failed") {
		t.Fatalf("unexpected diagnostic %q", report.Diagnostic)
	}
}

func TestMatchInvalidOrganization(t *testing.T) {
	org := startupOrg()
	engine := newTestEngine(t, org)

	_, err := engine.Match(context.Background(), "missing", 0)
	if !errors.Is(err, ErrInvalidOrganization) || !errors.Is(err, errNotFound) {
		t.Fatalf("expected invalid organization wrapping not found, got %v", err)
	}

	org.StaffCount = -1
	_, err = engine.Match(context.Background(), "org-1", 0)
	var invalid *InvalidOrganizationError
	if !errors.As(err, &invalid) || invalid.ID != "org-1" {
		t.Fatalf("expected InvalidOrganizationError for a broken profile, got %v", err)
	}
}

func TestMatchIsDeterministicAndCapped(t *testing.T) {
	var candidates []grants.Candidate
	for i := 0; i < 20; i++ {
		c := strongCandidate(fmt.Sprintf("opp-%02d", i))
		c.Deadline = inDays(40 + i*3)
		candidates = append(candidates, c)
	}

	org := startupOrg()
	org.StaffCount = 2
	engine := newTestEngine(t, org, &stubConnector{name: "a", candidates: candidates})

	first, err := engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(first.Matches) != 6 || first.MaxResults != 6 {
		t.Fatalf("expected min(15, 2*3) = 6 results, got %d", len(first.Matches))
	}

	second, err := engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if fmt.Sprint(matchIDs(first)) != fmt.Sprint(matchIDs(second)) {
		t.Fatalf("order differs between runs: %v vs %v", matchIDs(first), matchIDs(second))
	}
	if first.RunID == second.RunID {
		t.Fatalf("expected distinct run IDs")
	}

	for i := 1; i < len(first.Matches); i++ {
		if first.Matches[i-1].Composite < first.Matches[i].Composite {
			t.Fatalf("matches not sorted by composite at %d", i)
		}
	}

	limited, err := engine.Match(context.Background(), "org-1", 2)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(limited.Matches) != 2 {
		t.Fatalf("expected requested limit of 2, got %d", len(limited.Matches))
	}
}

func TestExplain(t *testing.T) {
	engine := newTestEngine(t, startupOrg())

	far := strongCandidate("x")
	m, err := engine.Explain(context.Background(), "org-1", &far)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if !m.Eligible || m.Composite < 85 || m.Tier != TierHigh {
		t.Fatalf("expected eligible high tier match, got %+v", m)
	}

	soon := strongCandidate("y")
	soon.Deadline = inDays(3)
	m, err = engine.Explain(context.Background(), "org-1", &soon)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if m.Eligible || !strings.Contains(m.EligibilityReason, "Deadline too soon") {
		t.Fatalf("expected ineligible explanation, got %+v", m)
	}

	if _, err := engine.Explain(context.Background(), "org-1", nil); err == nil {
		t.Fatalf("expected error for nil candidate")
	}
}

func TestNewEngineRejectsInvalidWeights(t *testing.T) {
	weights := scoring.DefaultWeights()
	weights[scoring.MissionAlignment] = 0.9

	_, err := NewEngine(Deps{
		Organizations: stubOrganizations{},
		Sources:       aggregator.New(nil, aggregator.Options{}),
	}, Options{Weights: weights})
	if !errors.Is(err, scoring.ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}
}

type blockingConnector struct {
	name string
}

func (b *blockingConnector) Name() string            { return b.name }
func (b *blockingConnector) Kind() grants.SourceKind { return grants.SourceFederal }

func (b *blockingConnector) Fetch(ctx context.Context, _ connector.SearchContext, _ int) ([]grants.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestMatchRunTimeoutKeepsCompletedSources(t *testing.T) {
	org := startupOrg()
	engine, err := NewEngine(Deps{
		Organizations: stubOrganizations{org.ID: org},
		Sources: aggregator.New(nil, aggregator.Options{SourceTimeout: 5 * time.Second},
			&stubConnector{name: "fast", candidates: []grants.Candidate{strongCandidate("a")}},
			&blockingConnector{name: "slow"},
		),
	}, Options{Clock: fixedClock, RunTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	started := time.Now()
	report, err := engine.Match(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("expected completed sources to be kept, got error: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("run timeout was not applied, took %s", elapsed)
	}

	if ids := matchIDs(report); len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("expected the fast source's match, got %v", ids)
	}
	if report.Funnel.Scored != 1 {
		t.Fatalf("expected every fetched candidate to be scored, got %+v", report.Funnel)
	}
	if len(report.Sources) != 2 || report.Sources[0].Failed() || !report.Sources[1].Failed() {
		t.Fatalf("unexpected source statuses: %+v", report.Sources)
	}
}
