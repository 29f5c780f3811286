package grants

import "testing"

func TestMatchGeography(t *testing.T) {
	t.Parallel()

	org := &Organization{City: "Oakland", State: "CA"}

	tests := []struct {
		geography string
		expect    GeoMatch
	}{
		{geography: "", expect: GeoUnknown},
		{geography: "National", expect: GeoNational},
		{geography: "Nationwide (all 50 states)", expect: GeoNational},
		{geography: "Unrestricted", expect: GeoNational},
		{geography: "Oakland, CA", expect: GeoCity},
		{geography: "California", expect: GeoState},
		{geography: "CA, OR, WA", expect: GeoState},
		{geography: "Texas", expect: GeoMismatch},
		{geography: "International development", expect: GeoMismatch},
	}

	for _, tt := range tests {
		if got := MatchGeography(tt.geography, org); got != tt.expect {
			t.Fatalf("%q: expected %d, got %d", tt.geography, tt.expect, got)
		}
	}
}

func TestMatchGeographyStateByFullName(t *testing.T) {
	t.Parallel()

	org := &Organization{State: "Indiana"}
	if got := MatchGeography("Gary, IN", org); got != GeoState {
		t.Fatalf("expected state match via abbreviation, got %d", got)
	}
	if got := MatchGeography("Programs in Ohio", org); got != GeoMismatch {
		t.Fatalf("expected mismatch, got %d", got)
	}
}

func TestMatchGeographyCityNeedsOwnState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		org       *Organization
		geography string
		expect    GeoMatch
	}{
		{name: "same city other state", org: &Organization{City: "Portland", State: "OR"}, geography: "Portland, ME", expect: GeoMismatch},
		{name: "same city full state name", org: &Organization{City: "Springfield", State: "MA"}, geography: "Springfield, Illinois", expect: GeoMismatch},
		{name: "same city abbreviation", org: &Organization{City: "Springfield", State: "MA"}, geography: "Springfield, IL", expect: GeoMismatch},
		{name: "city with own state", org: &Organization{City: "Portland", State: "OR"}, geography: "Portland, OR", expect: GeoCity},
		{name: "city without state", org: &Organization{City: "Portland", State: "OR"}, geography: "Greater Portland area", expect: GeoCity},
		{name: "either portland", org: &Organization{City: "Portland", State: "ME"}, geography: "Portland, OR or Portland, ME", expect: GeoCity},
		{name: "city named like a state", org: &Organization{City: "Kansas City", State: "KS"}, geography: "Kansas City, MO", expect: GeoMismatch},
		{name: "city named like a state, own state", org: &Organization{City: "Kansas City", State: "MO"}, geography: "Kansas City, Missouri", expect: GeoCity},
	}

	for _, tt := range tests {
		if got := MatchGeography(tt.geography, tt.org); got != tt.expect {
			t.Fatalf("%s: %q: expected %d, got %d", tt.name, tt.geography, tt.expect, got)
		}
	}
}

func TestMatchGeographyPrefersLongerStateNames(t *testing.T) {
	t.Parallel()

	virginia := &Organization{City: "Richmond", State: "VA"}
	if got := MatchGeography("West Virginia", virginia); got != GeoMismatch {
		t.Fatalf("expected West Virginia to exclude a Virginia organization, got %d", got)
	}
	if got := MatchGeography("Virginia and West Virginia", virginia); got != GeoState {
		t.Fatalf("expected an explicit Virginia mention to match, got %d", got)
	}

	westVirginia := &Organization{City: "Charleston", State: "West Virginia"}
	if got := MatchGeography("West Virginia", westVirginia); got != GeoState {
		t.Fatalf("expected state match by full name, got %d", got)
	}

	arkansas := &Organization{State: "AR"}
	if got := MatchGeography("Kansas", arkansas); got != GeoMismatch {
		t.Fatalf("expected Kansas to exclude Arkansas, got %d", got)
	}
}

func TestMatchGeographyRegionOutsideStateTable(t *testing.T) {
	t.Parallel()

	org := &Organization{City: "Toronto", State: "Ontario"}
	if got := MatchGeography("Ontario, Canada", org); got != GeoState {
		t.Fatalf("expected region match by name, got %d", got)
	}
}
