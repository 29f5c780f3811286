package scoring

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestDefaultWeightsAreValid(t *testing.T) {
	w := DefaultWeights()
	if err := w.Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
	if w.Get(MissionAlignment) != 0.25 || w.Get(FocusAreaMatch) != 0.15 {
		t.Fatalf("unexpected default weights: %v", w.Map())
	}
}

func TestParseWeights(t *testing.T) {
	valid := DefaultWeights().Map()

	tests := []struct {
		name    string
		mutate  func(map[string]float64)
		wantErr string
	}{
		{name: "defaults", mutate: func(map[string]float64) {}},
		{
			name:    "sum too high",
			mutate:  func(m map[string]float64) { m["mission_alignment"] = 0.5 },
			wantErr: "weights sum to",
		},
		{
			name:    "negative weight",
			mutate:  func(m map[string]float64) { m["mission_alignment"] = -0.25; m["focus_area_match"] = 0.65 },
			wantErr: "mission_alignment has weight",
		},
		{
			name:    "unknown dimension",
			mutate:  func(m map[string]float64) { m["vibes"] = 0 },
			wantErr: "unknown dimensions vibes",
		},
		{
			name:    "missing dimension",
			mutate:  func(m map[string]float64) { delete(m, "timing_score"); m["mission_alignment"] = 0.35 },
			wantErr: "missing dimensions timing_score",
		},
		{
			name:    "duplicate after normalization",
			mutate:  func(m map[string]float64) { m[" Mission_Alignment "] = 0 },
			wantErr: "configured twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := make(map[string]float64, len(valid))
			for k, v := range valid {
				m[k] = v
			}
			tt.mutate(m)

			w, err := ParseWeights(m)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if w != DefaultWeights() {
					t.Fatalf("expected default weights, got %v", w.Map())
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidWeights) {
				t.Fatalf("expected ErrInvalidWeights, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWeightsToleranceAcceptsRoundingDrift(t *testing.T) {
	w := DefaultWeights()
	w[CompetitionLevel] += 0.0005
	if err := w.Validate(); err != nil {
		t.Fatalf("expected drift within tolerance to pass: %v", err)
	}
	w[CompetitionLevel] += 0.002
	if err := w.Validate(); err == nil {
		t.Fatalf("expected drift beyond tolerance to fail")
	}
}

func TestDecodeWeights(t *testing.T) {
	w, err := DecodeWeights(nil)
	if err != nil || w != DefaultWeights() {
		t.Fatalf("expected defaults for nil input, got %v, %v", w.Map(), err)
	}

	input := map[string]any{
		"mission_alignment": "0.30",
		"geographic_match":  0.10,
		"budget_fit":        0.10,
		"capacity_fit":      0.10,
		"focus_area_match":  0.10,
		"eligibility_score": 0.05,
		"timing_score":      0.10,
		"funder_fit":        0.10,
		"competition_level": 0.05,
	}
	w, err = DecodeWeights(input)
	if err != nil {
		t.Fatalf("DecodeWeights: %v", err)
	}
	if math.Abs(w.Get(MissionAlignment)-0.30) > 1e-9 || math.Abs(w.Get(FocusAreaMatch)-0.10) > 1e-9 {
		t.Fatalf("unexpected decoded weights: %v", w.Map())
	}

	if _, err := DecodeWeights(map[string]any{"mission_alignment": "lots"}); !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights for non-numeric weight, got %v", err)
	}
}

func TestScoresClampAndRank(t *testing.T) {
	var s Scores
	s.Set(MissionAlignment, 130)
	s.Set(TimingScore, -5)
	s.Set(BudgetFit, math.NaN())
	s.Set(FunderFit, 80)

	if s.Get(MissionAlignment) != 100 || s.Get(TimingScore) != 0 || s.Get(BudgetFit) != 0 {
		t.Fatalf("expected clamped scores, got %v", s.Map())
	}

	ranked := s.Ranked()
	if ranked[0] != MissionAlignment || ranked[1] != FunderFit {
		t.Fatalf("unexpected ranking: %v", ranked[:2])
	}

	var all Scores
	for _, d := range Dimensions() {
		all.Set(d, 100)
	}
	if got := all.Weighted(DefaultWeights()); math.Abs(got-100) > 1e-9 {
		t.Fatalf("expected weighted 100 for perfect scores, got %v", got)
	}
}

func TestParseDimension(t *testing.T) {
	for _, d := range Dimensions() {
		parsed, err := ParseDimension(strings.ToUpper(d.String()))
		if err != nil || parsed != d {
			t.Fatalf("ParseDimension(%q) = %v, %v", d.String(), parsed, err)
		}
	}
	if _, err := ParseDimension("charm"); err == nil {
		t.Fatalf("expected error for unknown dimension")
	}
}
