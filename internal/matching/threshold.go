package matching

import (
	"time"

	"github.com/spigell/grant-matcher/internal/grants"
)

// Maturity buckets an organization by age.
type Maturity string

const (
	MaturityStartup     Maturity = "startup"
	MaturityGrowing     Maturity = "growing"
	MaturityEstablished Maturity = "established"
	MaturityEnterprise  Maturity = "enterprise"
)

// MaturityOf classifies by years since founding. An unknown founding year is growing.
func MaturityOf(org *grants.Organization, now time.Time) Maturity {
	age, ok := org.Age(now)
	switch {
	case !ok:
		return MaturityGrowing
	case age < 2:
		return MaturityStartup
	case age < 5:
		return MaturityGrowing
	case age <= 10:
		return MaturityEstablished
	default:
		return MaturityEnterprise
	}
}

// Threshold is the minimum composite a match needs. Younger organizations have fewer
// options, so their bar is lower.
func (m Maturity) Threshold() float64 {
	switch m {
	case MaturityStartup:
		return 60
	case MaturityEstablished:
		return 75
	case MaturityEnterprise:
		return 85
	default:
		return 70
	}
}

// aboveThreshold keeps matches whose composite reaches floor, preserving order.
func aboveThreshold(matches []*Match, floor float64) []*Match {
	kept := make([]*Match, 0, len(matches))
	for _, m := range matches {
		if m.Composite >= floor {
			kept = append(kept, m)
		}
	}
	return kept
}
