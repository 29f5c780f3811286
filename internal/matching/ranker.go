package matching

import (
	"math"
	"sort"

	"github.com/spigell/grant-matcher/internal/scoring"
)

const (
	highTierMin   = 85
	mediumTierMin = 70
)

// Tier is the confidence bucket used to group matches for users.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Tiers lists tiers from most to least confident.
var Tiers = []Tier{TierHigh, TierMedium, TierLow}

func (t Tier) Label() string {
	switch t {
	case TierHigh:
		return "Apply Now"
	case TierMedium:
		return "Worth Exploring"
	default:
		return "Review Carefully"
	}
}

// TierFor buckets a composite score.
func TierFor(composite float64) Tier {
	switch {
	case composite >= highTierMin:
		return TierHigh
	case composite >= mediumTierMin:
		return TierMedium
	default:
		return TierLow
	}
}

// Composite is the weighted sum of all dimensions rounded to one decimal.
func Composite(scores scoring.Scores, weights scoring.Weights) float64 {
	v := math.Round(scores.Weighted(weights)*10) / 10
	return math.Max(0, math.Min(100, v))
}

// sortMatches orders by composite, then mission alignment, then title and ID so equal
// inputs always produce the same order.
func sortMatches(matches []*Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		am, bm := a.Scores.Get(scoring.MissionAlignment), b.Scores.Get(scoring.MissionAlignment)
		if am != bm {
			return am > bm
		}
		if a.Candidate.Title != b.Candidate.Title {
			return a.Candidate.Title < b.Candidate.Title
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}
