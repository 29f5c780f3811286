package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/aggregator"
	"github.com/spigell/grant-matcher/internal/connector"
	"github.com/spigell/grant-matcher/internal/eligibility"
	"github.com/spigell/grant-matcher/internal/filtering"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
	"github.com/spigell/grant-matcher/internal/scoring"
)

const (
	DefaultRunTimeout = 30 * time.Second
	DefaultFetchLimit = 100
)

// OrganizationProvider loads organization profiles by ID.
type OrganizationProvider interface {
	Get(ctx context.Context, id string) (*grants.Organization, error)
}

// CandidateSource fetches candidates for a search. aggregator.Aggregator implements it.
type CandidateSource interface {
	Aggregate(ctx context.Context, search connector.SearchContext, limit int) *aggregator.Result
}

// Deps are the collaborators an Engine is built from.
type Deps struct {
	Organizations OrganizationProvider
	Sources       CandidateSource
	Scorer        *scoring.Scorer
	Gate          *eligibility.Gate
	// Filters builds a fresh set of pre-scoring steps for each run. Defaults to
	// filtering.Default.
	Filters      func() []filtering.Filter
	FilterConfig *filtering.Config
	Logger       *zap.Logger
}

type Options struct {
	// Weights defaults to scoring.DefaultWeights when left zero.
	Weights    scoring.Weights
	RunTimeout time.Duration
	// FetchLimit is passed to every connector.
	FetchLimit int
	Clock      func() time.Time
}

// Engine turns an organization profile into a ranked, explained list of opportunities.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	orgs         OrganizationProvider
	sources      CandidateSource
	scorer       *scoring.Scorer
	gate         *eligibility.Gate
	filters      func() []filtering.Filter
	filterConfig *filtering.Config
	weights      scoring.Weights
	runTimeout   time.Duration
	fetchLimit   int
	now          func() time.Time
	logger       *zap.Logger
}

func NewEngine(deps Deps, opts Options) (*Engine, error) {
	if deps.Organizations == nil {
		return nil, errors.New("organization provider is required")
	}
	if deps.Sources == nil {
		return nil, errors.New("candidate source is required")
	}

	weights := opts.Weights
	if weights == (scoring.Weights{}) {
		weights = scoring.DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		orgs:         deps.Organizations,
		sources:      deps.Sources,
		scorer:       deps.Scorer,
		gate:         deps.Gate,
		filters:      deps.Filters,
		filterConfig: deps.FilterConfig,
		weights:      weights,
		runTimeout:   opts.RunTimeout,
		fetchLimit:   opts.FetchLimit,
		now:          opts.Clock,
		logger:       logger.OrNop(deps.Logger),
	}

	if e.now == nil {
		e.now = time.Now
	}
	if e.runTimeout <= 0 {
		e.runTimeout = DefaultRunTimeout
	}
	if e.fetchLimit <= 0 {
		e.fetchLimit = DefaultFetchLimit
	}
	if e.scorer == nil {
		e.scorer = scoring.NewScorer(scoring.WithClock(e.now), scoring.WithLogger(e.logger))
	}
	if e.gate == nil {
		e.gate = eligibility.New(eligibility.WithClock(e.now))
	}
	if e.filters == nil {
		e.filters = filtering.Default
	}
	if e.filterConfig == nil {
		e.filterConfig = &filtering.Config{}
	}

	return e, nil
}

func (e *Engine) Weights() scoring.Weights {
	return e.weights
}

// Match runs the full pipeline for one organization. It performs no writes and
// identical inputs produce identical matches. Source failures never surface as errors;
// an empty report carries a Diagnostic instead.
//
// The run timeout and ctx bound the organization lookup and aggregation. Once sources
// have answered, every fetched candidate is filtered and scored to completion.
func (e *Engine) Match(ctx context.Context, orgID string, limit int) (*Report, error) {
	started := e.now()
	runID := uuid.NewString()
	log := logger.WithRun(e.logger, runID, orgID)

	fetchCtx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	org, err := e.organization(fetchCtx, orgID)
	if err != nil {
		return nil, err
	}

	maturity := MaturityOf(org, started)
	report := &Report{
		RunID:            runID,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		Maturity:         maturity,
		Threshold:        maturity.Threshold(),
		MaxResults:       MaxResults(org, limit),
		Strategy:         e.scorer.Strategy(),
		Weights:          e.weights.Map(),
		Matches:          []*Match{},
		GeneratedAt:      started,
	}

	log.Info("matching started",
		zap.String("location", org.Location()),
		zap.String("maturity", string(maturity)),
		zap.Float64("threshold", report.Threshold),
		zap.Int("max_results", report.MaxResults),
	)

	result := e.sources.Aggregate(fetchCtx, connector.NewSearchContext(org), e.fetchLimit)
	if err := fetchCtx.Err(); err != nil {
		log.Warn("run deadline reached during aggregation, continuing with completed sources", zap.Error(err))
	}

	// Similarity calls carry their own timeout.
	work := context.WithoutCancel(ctx)
	report.Sources = result.Sources
	report.Funnel.Fetched = result.Candidates.Len()
	report.Funnel.Duplicates = result.Duplicates

	if result.AllFailed() {
		report.Diagnostic = diagnose(report, result)
		report.Duration = e.now().Sub(started)
		log.Warn("every source failed", zap.String("diagnostic", report.Diagnostic))
		return report, nil
	}

	deps := filtering.Deps{Logger: log, Organization: org, Gate: e.gate}
	filtered, filterReport, err := filtering.Run(work, e.filterConfig, deps, e.filters(), result.Candidates)
	if err != nil {
		return nil, fmt.Errorf("filter candidates: %w", err)
	}
	report.Filters = filterReport.Steps
	report.Rejections = rejections(filterReport.Rejections, result.Candidates.Items)
	report.Funnel.Eligible = report.Funnel.Fetched - filterReport.Dropped(filtering.EligibilityStep)
	report.Funnel.Filtered = filtered.Len()

	scores := e.scorer.ScoreAll(work, org, filtered.Items)
	matches := make([]*Match, 0, len(scores))
	for i, c := range filtered.Items {
		m := newMatch(c, scores[i], e.weights)
		m.Eligible = true
		m.EligibilityReason = eligibility.ReasonEligible
		matches = append(matches, m)
	}
	report.Funnel.Scored = len(matches)

	matches = aboveThreshold(matches, report.Threshold)
	report.Funnel.AboveThreshold = len(matches)

	sortMatches(matches)
	report.Matches = capResults(matches, report.MaxResults)
	report.Funnel.Returned = len(report.Matches)

	if len(report.Matches) == 0 {
		report.Diagnostic = diagnose(report, result)
	}
	report.Duration = e.now().Sub(started)

	log.Info("matching finished",
		zap.Int("fetched", report.Funnel.Fetched),
		zap.Int("eligible", report.Funnel.Eligible),
		zap.Int("scored", report.Funnel.Scored),
		zap.Int("above_threshold", report.Funnel.AboveThreshold),
		zap.Int("returned", report.Funnel.Returned),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

// Explain scores a single candidate for an organization without aggregation or
// thresholds. An ineligible candidate is still scored so the caller can see why it
// would rank where it does.
func (e *Engine) Explain(ctx context.Context, orgID string, candidate *grants.Candidate) (*Match, error) {
	if candidate == nil {
		return nil, errors.New("candidate is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.runTimeout)
	defer cancel()

	org, err := e.organization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	c := *candidate
	c.EnsureID()

	check := e.gate.Check(org, &c)
	m := newMatch(&c, e.scorer.Score(ctx, org, &c), e.weights)
	m.Eligible = check.Eligible
	m.EligibilityReason = check.Reason

	e.logger.Debug("candidate explained",
		zap.String(logger.FieldOrganization, org.ID),
		zap.String(logger.FieldCandidate, c.ID),
		zap.Bool("eligible", check.Eligible),
		zap.Float64("composite", m.Composite),
	)

	return m, nil
}

func (e *Engine) organization(ctx context.Context, id string) (*grants.Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &InvalidOrganizationError{ID: id, Err: errors.New("organization id is required")}
	}

	org, err := e.orgs.Get(ctx, id)
	if err != nil {
		return nil, &InvalidOrganizationError{ID: id, Err: err}
	}
	if err := org.Validate(e.now()); err != nil {
		return nil, &InvalidOrganizationError{ID: id, Err: err}
	}
	return org, nil
}
