package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/grant-matcher/internal/ai"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

const (
	DefaultSimilarityTimeout = 8 * time.Second
	DefaultWorkers           = 4
)

// Scorer computes every dimension for eligible organization/candidate pairs. It never
// fails: missing inputs and enrichment errors resolve to neutral defaults.
type Scorer struct {
	now               func() time.Time
	similarity        ai.TextSimilarity
	similarityTimeout time.Duration
	workers           int
	logger            *zap.Logger
}

type Option func(*Scorer)

func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSimilarity delegates mission alignment to an external model bounded by timeout.
func WithSimilarity(similarity ai.TextSimilarity, timeout time.Duration) Option {
	return func(s *Scorer) {
		s.similarity = similarity
		if timeout > 0 {
			s.similarityTimeout = timeout
		}
	}
}

func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger.OrNop(log)
	}
}

func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		now:               time.Now,
		similarityTimeout: DefaultSimilarityTimeout,
		workers:           DefaultWorkers,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategy names the mission alignment implementation in use.
func (s *Scorer) Strategy() string {
	if s.similarity != nil {
		return "similarity"
	}
	return "keywords"
}

// Score computes all dimensions for one pair.
func (s *Scorer) Score(ctx context.Context, org *grants.Organization, c *grants.Candidate) Scores {
	now := s.now()
	var scores Scores
	for _, d := range Dimensions() {
		scores.Set(d, s.dimension(ctx, d, now, org, c))
	}
	return scores
}

func (s *Scorer) dimension(ctx context.Context, d Dimension, now time.Time, org *grants.Organization, c *grants.Candidate) float64 {
	switch d {
	case MissionAlignment:
		return s.mission(ctx, org, c)
	case GeographicMatch:
		return geographicMatch(org, c)
	case BudgetFit:
		return budgetFit(org, c)
	case CapacityFit:
		return capacityFit(org, c)
	case FocusAreaMatch:
		return focusAreaMatch(org, c)
	case EligibilityScore:
		return eligibilityFit(org, c)
	case TimingScore:
		return timingScore(now, c)
	case FunderFit:
		return funderFit(org, c)
	case CompetitionLevel:
		return competitionLevel(c)
	default:
		panic(fmt.Sprintf("unhandled dimension %s", d))
	}
}

func (s *Scorer) mission(ctx context.Context, org *grants.Organization, c *grants.Candidate) float64 {
	if s.similarity == nil {
		return missionHeuristic(org, c)
	}
	if strings.TrimSpace(org.Mission) == "" || strings.TrimSpace(c.Text()) == "" {
		return defaultMission
	}

	ctx, cancel := context.WithTimeout(ctx, s.similarityTimeout)
	defer cancel()

	type outcome struct {
		similarity *ai.Similarity
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("similarity panicked: %v", r)}
			}
		}()
		similarity, err := s.similarity.Similarity(ctx, org.Mission, c)
		done <- outcome{similarity: similarity, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil || out.similarity == nil {
		s.logger.Warn("mission similarity failed, using neutral score",
			zap.String(logger.FieldCandidate, c.ID),
			zap.Float64("fallback", defaultMission),
			zap.Error(out.err),
		)
		return defaultMission
	}

	s.logger.Debug("mission similarity",
		zap.String(logger.FieldCandidate, c.ID),
		zap.Float64("score", out.similarity.Score),
		zap.String("reason", out.similarity.Reason),
	)
	return out.similarity.Score
}

// ScoreAll scores candidates concurrently. Result i belongs to candidates[i].
func (s *Scorer) ScoreAll(ctx context.Context, org *grants.Organization, candidates []*grants.Candidate) []Scores {
	results := make([]Scores, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = s.Score(ctx, org, c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
