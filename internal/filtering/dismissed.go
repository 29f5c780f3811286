package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/grants"
)

const DismissedStep = "dismissed"

type dismissedFilter struct {
	disabled bool
	reason   string
	path     string
}

// NewDismissed creates a filter that removes candidates listed in the dismissed opportunities file.
func NewDismissed() Filter {
	return &dismissedFilter{}
}

func (f *dismissedFilter) Name() string { return DismissedStep }

func (f *dismissedFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *dismissedFilter) IsEnabled() bool { return !f.disabled }

func (f *dismissedFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.DismissedFile)
	}
	return nil
}

func (f *dismissedFilter) Apply(_ context.Context, deps Deps, c *grants.Candidates) (*grants.Candidates, Step, error) {
	initial := c.Len()
	if f.path == "" {
		return c, Step{Initial: initial, Dropped: 0, Left: c.Len()}, nil
	}

	dismissed, err := grants.LoadDismissed(f.path)
	if err != nil {
		return c, Step{}, fmt.Errorf("getting dismissed opportunities from file: %w", err)
	}

	removed := c.Exclude(grants.CandidateIDField, dismissed.IDs())
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding candidates based on dismissed file",
			zap.String("path", f.path),
			zap.Strings("excluded_candidates", removed),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(removed), Left: c.Len()}, nil
}

func (f *dismissedFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
