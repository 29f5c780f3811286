package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/spigell/grant-matcher/internal/grants"
)

const (
	DefaultMinLeadDays    = 14
	DefaultMaxBudgetShare = 0.5

	ReasonEligible = "All requirements met"
)

// Rule names the hard rule that rejected a candidate.
type Rule string

const (
	RuleNone       Rule = ""
	RuleEntityType Rule = "entity_type"
	RuleGeography  Rule = "geography"
	RuleDeadline   Rule = "deadline"
	RuleCapacity   Rule = "capacity"
)

// Rules lists the hard rules in evaluation order.
var Rules = []Rule{RuleEntityType, RuleGeography, RuleDeadline, RuleCapacity}

// Result is the outcome of a gate check. Ineligibility is not an error.
type Result struct {
	Eligible bool
	Reason   string
	Rule     Rule
}

func pass() Result {
	return Result{Eligible: true, Reason: ReasonEligible}
}

func fail(rule Rule, format string, args ...any) Result {
	return Result{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// Gate applies the hard eligibility rules before any scoring work.
type Gate struct {
	now            func() time.Time
	minLeadDays    int
	maxBudgetShare float64
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func WithMinLeadDays(days int) Option {
	return func(g *Gate) {
		if days > 0 {
			g.minLeadDays = days
		}
	}
}

// WithMaxBudgetShare sets the largest award, as a share of the annual budget, an
// organization can absorb.
func WithMaxBudgetShare(share float64) Option {
	return func(g *Gate) {
		if share > 0 {
			g.maxBudgetShare = share
		}
	}
}

func New(opts ...Option) *Gate {
	g := &Gate{
		now:            time.Now,
		minLeadDays:    DefaultMinLeadDays,
		maxBudgetShare: DefaultMaxBudgetShare,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) MinLeadDays() int {
	return g.minLeadDays
}

// Check evaluates the rules in order. The first failing rule decides the reason.
func (g *Gate) Check(org *grants.Organization, candidate *grants.Candidate) Result {
	for _, rule := range Rules {
		var res Result
		switch rule {
		case RuleEntityType:
			res = g.checkEntity(org, candidate)
		case RuleGeography:
			res = g.checkGeography(org, candidate)
		case RuleDeadline:
			res = g.checkDeadline(candidate)
		case RuleCapacity:
			res = g.checkCapacity(org, candidate)
		default:
			panic(fmt.Sprintf("unhandled eligibility rule %q", rule))
		}
		if !res.Eligible {
			return res
		}
	}
	return pass()
}

func (g *Gate) checkEntity(org *grants.Organization, candidate *grants.Candidate) Result {
	restriction := ParseRestriction(candidate.Eligibility)
	if restriction.Empty() {
		return pass()
	}

	class := ClassifyEntity(org.Entity())
	if restriction.Permits(class) {
		return pass()
	}

	if len(restriction.Allowed) > 0 && !containsClass(restriction.Allowed, class) {
		return fail(RuleEntityType, "Entity type %s not eligible: restricted to %s", org.Entity(), joinClasses(restriction.Allowed))
	}
	return fail(RuleEntityType, "Entity type %s not eligible: %s applicants are excluded", org.Entity(), class)
}

func (g *Gate) checkGeography(org *grants.Organization, candidate *grants.Candidate) Result {
	if grants.MatchGeography(candidate.Geography, org) != grants.GeoMismatch {
		return pass()
	}
	if strings.TrimSpace(org.City) == "" && strings.TrimSpace(org.State) == "" {
		// Nothing to compare against; scoring reflects the missing signal.
		return pass()
	}
	return fail(RuleGeography, "Geographic restriction %q excludes %s", strings.TrimSpace(candidate.Geography), org.Location())
}

func (g *Gate) checkDeadline(candidate *grants.Candidate) Result {
	days, ok := candidate.DaysUntilDeadline(g.now())
	if !ok {
		return pass()
	}
	if days < 0 {
		return fail(RuleDeadline, "Deadline too soon: deadline passed on %s", candidate.Deadline.Format(time.DateOnly))
	}
	if days < g.minLeadDays {
		return fail(RuleDeadline, "Deadline too soon: %d days left, at least %d needed", days, g.minLeadDays)
	}
	return pass()
}

func (g *Gate) checkCapacity(org *grants.Organization, candidate *grants.Candidate) Result {
	budget, ok := org.Budget()
	if !ok {
		return pass()
	}
	award, ok := candidate.MaxAward()
	if !ok {
		return pass()
	}
	if award > budget*g.maxBudgetShare {
		return fail(RuleCapacity, "Award %s exceeds organizational capacity: more than %.0f%% of the %s annual budget",
			grants.FormatAmount(award), g.maxBudgetShare*100, grants.FormatAmount(budget))
	}
	return pass()
}

func joinClasses(classes []EntityClass) string {
	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, string(c))
	}
	return strings.Join(names, " or ")
}
