package grants

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestCandidateEnsureIDIsStable(t *testing.T) {
	t.Parallel()

	a := &Candidate{URL: "https://www.example.org/grants/42/", Title: "A"}
	b := &Candidate{URL: "http://example.org/grants/42", Title: "B"}
	a.EnsureID()
	b.EnsureID()

	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("expected equal stable IDs, got %q and %q", a.ID, b.ID)
	}

	c := &Candidate{ID: "given"}
	c.EnsureID()
	if c.ID != "given" {
		t.Fatalf("expected connector ID to be kept, got %q", c.ID)
	}
}

func TestCandidateDedupKeyFallsBackToTitleAndFunder(t *testing.T) {
	t.Parallel()

	a := &Candidate{Title: "Youth Arts Grant", Funder: "Acme Foundation"}
	b := &Candidate{Title: "youth  arts grant!", Funder: "ACME Foundation"}
	if a.DedupKey() != b.DedupKey() {
		t.Fatalf("expected equal keys, got %q and %q", a.DedupKey(), b.DedupKey())
	}
}

func TestCandidateMaxAwardAndDeadline(t *testing.T) {
	t.Parallel()

	c := &Candidate{AmountMin: ptr(10_000)}
	if amount, ok := c.MaxAward(); !ok || amount != 10_000 {
		t.Fatalf("expected min amount fallback, got %v (%v)", amount, ok)
	}
	c.AmountMax = ptr(50_000)
	if amount, _ := c.MaxAward(); amount != 50_000 {
		t.Fatalf("expected max amount, got %v", amount)
	}

	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)
	if _, ok := c.DaysUntilDeadline(now); ok {
		t.Fatalf("expected rolling deadline")
	}
	deadline := now.AddDate(0, 0, 45)
	c.Deadline = &deadline
	if days, ok := c.DaysUntilDeadline(now); !ok || days != 45 {
		t.Fatalf("expected 45 days, got %d", days)
	}
}

func TestCandidatesExcludeKeepsOrder(t *testing.T) {
	t.Parallel()

	list := &Candidates{Items: []*Candidate{
		{ID: "1", Funder: "A"},
		{ID: "2", Funder: "B"},
		{ID: "3", Funder: "a"},
		{ID: "4", Funder: "C"},
	}}

	removed := list.Exclude(CandidateFunderField, []string{"a"})
	if len(removed) != 2 || removed[0] != "1" || removed[1] != "3" {
		t.Fatalf("unexpected removed IDs: %v", removed)
	}
	if list.Len() != 2 || list.Items[0].ID != "2" || list.Items[1].ID != "4" {
		t.Fatalf("unexpected remaining items: %+v", list.Items)
	}
}

func TestDismissedRoundTripSkipsDuplicates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dismissed.json")

	loaded, err := LoadDismissed(path)
	if err != nil {
		t.Fatalf("missing file should be empty list: %v", err)
	}

	loaded.Append((&Candidates{Items: []*Candidate{{ID: "1"}, {ID: "2"}}}).ToDismissed(DismissActorUser, "not relevant"))
	loaded.Append((&Candidates{Items: []*Candidate{{ID: "2"}, {ID: "3"}}}).ToDismissed(DismissActorUser, ""))

	if err := loaded.ToFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	again, err := LoadDismissed(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ids := again.IDs()
	if len(ids) != 3 || ids[0] != "1" || ids[2] != "3" {
		t.Fatalf("unexpected IDs: %v", ids)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	empty, err := LoadDismissed(path)
	if err != nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty list for empty file, got %v %v", empty, err)
	}
}
