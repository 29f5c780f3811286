package aggregator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/grant-matcher/internal/connector"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

const DefaultSourceTimeout = 10 * time.Second

type Options struct {
	// SourceTimeout bounds every single connector call. Defaults to 10s.
	SourceTimeout time.Duration
	// Workers bounds concurrent connector calls. Defaults to the number of connectors.
	Workers int
}

// Aggregator queries every registered connector concurrently and merges the results.
type Aggregator struct {
	connectors []connector.Connector
	opts       Options
	logger     *zap.Logger
}

// SourceStatus describes what one connector contributed to a run.
type SourceStatus struct {
	Name       string            `json:"name"`
	Kind       grants.SourceKind `json:"kind"`
	Candidates int               `json:"candidates"`
	Duration   time.Duration     `json:"duration"`
	Error      string            `json:"error,omitempty"`
	Err        error             `json:"-"`
}

func (s SourceStatus) Failed() bool {
	return s.Err != nil
}

type Result struct {
	// Candidates are merged in connector registration order and deduplicated.
	Candidates *grants.Candidates
	Sources    []SourceStatus
	Duplicates int
}

// AllFailed reports that connectors were registered and none of them answered.
func (r *Result) AllFailed() bool {
	if len(r.Sources) == 0 {
		return false
	}
	for _, s := range r.Sources {
		if !s.Failed() {
			return false
		}
	}
	return true
}

// Failed returns the statuses of connectors that contributed nothing because of an error.
func (r *Result) Failed() []SourceStatus {
	var failed []SourceStatus
	for _, s := range r.Sources {
		if s.Failed() {
			failed = append(failed, s)
		}
	}
	return failed
}

func New(log *zap.Logger, opts Options, connectors ...connector.Connector) *Aggregator {
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = len(connectors)
	}
	return &Aggregator{
		connectors: connectors,
		opts:       opts,
		logger:     logger.OrNop(log),
	}
}

func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.connectors))
	for _, c := range a.connectors {
		names = append(names, c.Name())
	}
	return names
}

// Aggregate never fails: connector errors, panics and timeouts are recorded per source.
func (a *Aggregator) Aggregate(ctx context.Context, search connector.SearchContext, limit int) *Result {
	fetched := make([][]grants.Candidate, len(a.connectors))
	statuses := make([]SourceStatus, len(a.connectors))

	var g errgroup.Group
	if a.opts.Workers > 0 {
		g.SetLimit(a.opts.Workers)
	}

	for i, c := range a.connectors {
		g.Go(func() error {
			started := time.Now()
			candidates, err := a.fetch(ctx, c, search, limit)

			status := SourceStatus{
				Name:     c.Name(),
				Kind:     c.Kind(),
				Duration: time.Since(started),
			}
			log := a.logger.With(zap.String(logger.FieldSource, c.Name()), zap.Duration("duration", status.Duration))

			if err != nil {
				srcErr := &SourceError{Source: c.Name(), Err: err}
				status.Err = srcErr
				status.Error = srcErr.Error()
				log.Warn("source failed, continuing without it", zap.Bool("timeout", srcErr.Timeout()), zap.Error(err))
			} else {
				status.Candidates = len(candidates)
				fetched[i] = candidates
				log.Info("source fetched", zap.Int("candidates", len(candidates)))
			}

			statuses[i] = status
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{Sources: statuses, Candidates: &grants.Candidates{}}
	result.Candidates.Items, result.Duplicates = merge(fetched)

	a.logger.Debug("aggregation finished",
		zap.Int("sources", len(statuses)),
		zap.Int("failed", len(result.Failed())),
		zap.Int("candidates", result.Candidates.Len()),
		zap.Int("duplicates", result.Duplicates),
	)

	return result
}

// fetch runs one connector under its own deadline. A connector that ignores ctx is
// abandoned when the deadline passes.
func (a *Aggregator) fetch(ctx context.Context, c connector.Connector, search connector.SearchContext, limit int) ([]grants.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	type outcome struct {
		candidates []grants.Candidate
		err        error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &PanicError{Value: r}}
			}
		}()
		candidates, err := c.Fetch(ctx, search, limit)
		done <- outcome{candidates: candidates, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return out.candidates, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// merge flattens per-source results in registration order. The first occurrence of a
// duplicate wins.
func merge(fetched [][]grants.Candidate) ([]*grants.Candidate, int) {
	var merged []*grants.Candidate
	seen := make(map[string]struct{})
	duplicates := 0

	for _, candidates := range fetched {
		for i := range candidates {
			candidate := candidates[i]
			key := candidate.DedupKey()
			if _, ok := seen[key]; ok {
				duplicates++
				continue
			}
			seen[key] = struct{}{}
			candidate.EnsureID()
			merged = append(merged, &candidate)
		}
	}

	return merged, duplicates
}
