package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/scoring"
)

const (
	strengthMin      = 70
	considerationMax = 50
	maxStrengths     = 3

	baseProbability = 0.15
	maxProbability  = 0.95
)

// Factor is one dimension cited in an explanation.
type Factor struct {
	Dimension scoring.Dimension `json:"dimension"`
	Label     string            `json:"label"`
	Score     float64           `json:"score"`
}

func (f Factor) String() string {
	return fmt.Sprintf("%s (%.0f)", f.Label, f.Score)
}

// Match is a scored, explained opportunity.
type Match struct {
	Candidate          *grants.Candidate `json:"candidate"`
	Scores             scoring.Scores    `json:"scores"`
	Composite          float64           `json:"composite"`
	Tier               Tier              `json:"tier"`
	TierLabel          string            `json:"tier_label"`
	SuccessProbability float64           `json:"success_probability"`
	Strengths          []Factor          `json:"strengths"`
	Considerations     []Factor          `json:"considerations"`
	Explanation        string            `json:"explanation"`
	Eligible           bool              `json:"eligible"`
	EligibilityReason  string            `json:"eligibility_reason"`
}

// newMatch ranks and explains one scored candidate.
func newMatch(c *grants.Candidate, scores scoring.Scores, weights scoring.Weights) *Match {
	m := &Match{
		Candidate: c,
		Scores:    scores,
		Composite: Composite(scores, weights),
	}
	m.Tier = TierFor(m.Composite)
	m.TierLabel = m.Tier.Label()
	m.Strengths, m.Considerations = factors(scores)
	m.SuccessProbability = SuccessProbability(scores)
	m.Explanation = explanation(m)
	return m
}

func factor(scores scoring.Scores, d scoring.Dimension) Factor {
	return Factor{Dimension: d, Label: d.Label(), Score: scores.Get(d)}
}

// factors picks up to three strengths, highest first, and every weak dimension, lowest
// first. A match never comes back with neither.
func factors(scores scoring.Scores) (strengths, considerations []Factor) {
	ranked := scores.Ranked()

	for _, d := range ranked {
		if len(strengths) == maxStrengths {
			break
		}
		if scores.Get(d) >= strengthMin {
			strengths = append(strengths, factor(scores, d))
		}
	}

	for i := len(ranked) - 1; i >= 0; i-- {
		if d := ranked[i]; scores.Get(d) < considerationMax {
			considerations = append(considerations, factor(scores, d))
		}
	}

	if len(strengths) == 0 && len(considerations) == 0 {
		considerations = append(considerations, factor(scores, ranked[len(ranked)-1]))
	}
	return strengths, considerations
}

// SuccessProbability is an uncalibrated estimate built from multiplicative boosts on
// the strongest signals.
func SuccessProbability(scores scoring.Scores) float64 {
	p := baseProbability
	if scores.Get(scoring.MissionAlignment) > 80 {
		p *= 2.0
	}
	if scores.Get(scoring.CapacityFit) > 80 {
		p *= 1.5
	}
	if scores.Get(scoring.FunderFit) > 80 {
		p *= 1.5
	}
	if scores.Get(scoring.FocusAreaMatch) > 80 {
		p *= 1.3
	}
	if scores.Get(scoring.GeographicMatch) >= 80 {
		p *= 1.2
	}
	if scores.Get(scoring.TimingScore) >= 90 {
		p *= 1.1
	}
	return math.Round(math.Min(p, maxProbability)*100) / 100
}

func explanation(m *Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (score %.1f).", m.TierLabel, m.Composite)
	if len(m.Strengths) > 0 {
		fmt.Fprintf(&b, " Strengths: %s.", joinFactors(m.Strengths))
	}
	if len(m.Considerations) > 0 {
		fmt.Fprintf(&b, " Consider: %s.", joinFactors(m.Considerations))
	}
	fmt.Fprintf(&b, " Estimated success chance %.0f%% (rough estimate, not calibrated).", m.SuccessProbability*100)
	return b.String()
}

func joinFactors(fs []Factor) string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, ", ")
}
