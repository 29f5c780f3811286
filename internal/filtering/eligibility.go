package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/eligibility"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

const EligibilityStep = "eligibility"

type eligibilityFilter struct {
	disabled   bool
	reason     string
	minLead    int
	rejections map[string]eligibility.Result
}

// NewEligibility creates the step that removes candidates failing a hard eligibility rule.
func NewEligibility() Filter {
	return &eligibilityFilter{}
}

func (f *eligibilityFilter) Name() string { return EligibilityStep }

func (f *eligibilityFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *eligibilityFilter) IsEnabled() bool { return !f.disabled }

func (f *eligibilityFilter) Validate(*Config) error { return nil }

func (f *eligibilityFilter) Apply(_ context.Context, deps Deps, c *grants.Candidates) (*grants.Candidates, Step, error) {
	initial := c.Len()
	if deps.Organization == nil {
		return c, Step{}, fmt.Errorf("organization is required")
	}

	gate := deps.Gate
	if gate == nil {
		gate = eligibility.New()
	}
	f.minLead = gate.MinLeadDays()

	f.rejections = make(map[string]eligibility.Result)
	removed := c.Retain(func(candidate *grants.Candidate) bool {
		res := gate.Check(deps.Organization, candidate)
		if !res.Eligible {
			f.rejections[candidate.ID] = res
		}
		return res.Eligible
	})

	if deps.Logger != nil {
		for _, candidate := range removed {
			res := f.rejections[candidate.ID]
			deps.Logger.Debug("candidate is not eligible",
				zap.String(logger.FieldCandidate, candidate.ID),
				zap.String("rule", string(res.Rule)),
				zap.String("reason", res.Reason),
			)
		}
	}

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *eligibilityFilter) Rejections() map[string]eligibility.Result {
	if f.rejections == nil {
		return map[string]eligibility.Result{}
	}
	return f.rejections
}

func (f *eligibilityFilter) Status() Status {
	details := map[string]string{}
	if f.minLead > 0 {
		details["min_lead_days"] = strconv.Itoa(f.minLead)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
