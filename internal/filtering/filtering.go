package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/eligibility"
	"github.com/spigell/grant-matcher/internal/grants"
)

// Filter represents a single pre-scoring step applied to candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, c *grants.Candidates) (*grants.Candidates, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger       *zap.Logger
	Organization *grants.Organization
	Gate         *eligibility.Gate
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	ExcludedFunders []string
	DismissedFile   string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// StepReport is the outcome of one executed step.
type StepReport struct {
	Name string
	Step Step
}

// Report summarizes a filtering run.
type Report struct {
	Steps []StepReport
	// Rejections holds the gate decision for every candidate the eligibility step removed.
	Rejections map[string]eligibility.Result
}

// Dropped returns how many candidates the named step removed.
func (r *Report) Dropped(name string) int {
	for _, s := range r.Steps {
		if s.Name == name {
			return s.Step.Dropped
		}
	}
	return 0
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// rejectionCollector is implemented by filters that record why candidates were removed.
type rejectionCollector interface {
	Rejections() map[string]eligibility.Result
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Default returns the standard pre-scoring steps in order.
func Default() []Filter {
	return []Filter{
		NewEligibility(),
		NewExcludedFunders(),
		NewDismissed(),
	}
}

// Run executes the supplied filters sequentially on a copy of the candidate list.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, c *grants.Candidates) (*grants.Candidates, *Report, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	report := &Report{Rejections: make(map[string]eligibility.Result)}
	current := &grants.Candidates{Items: append([]*grants.Candidate(nil), c.Items...)}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		current = next
		report.Steps = append(report.Steps, StepReport{Name: step.Name(), Step: info})

		if collector, ok := step.(rejectionCollector); ok {
			for id, res := range collector.Rejections() {
				report.Rejections[id] = res
			}
		}
	}

	return current, report, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
