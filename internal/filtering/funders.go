package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/grants"
)

const ExcludedFundersStep = "excluded_funders"

type fundersFilter struct {
	disabled bool
	reason   string
	funders  []string
}

// NewExcludedFunders creates a filter that removes candidates from funders configured in the config.
func NewExcludedFunders() Filter {
	return &fundersFilter{}
}

func (f *fundersFilter) Name() string { return ExcludedFundersStep }

func (f *fundersFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *fundersFilter) IsEnabled() bool { return !f.disabled }

func (f *fundersFilter) Validate(cfg *Config) error {
	f.funders = nil
	if cfg != nil {
		f.funders = append(f.funders, cfg.ExcludedFunders...)
	}
	return nil
}

func (f *fundersFilter) Apply(_ context.Context, deps Deps, c *grants.Candidates) (*grants.Candidates, Step, error) {
	initial := c.Len()
	if len(f.funders) == 0 {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	excluded := c.Exclude(grants.CandidateFunderField, f.funders)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding candidates by funders",
			zap.Strings("excluded_funders", f.funders),
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *fundersFilter) Status() Status {
	details := map[string]string{}
	if len(f.funders) > 0 {
		details["funders"] = strings.Join(f.funders, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
