package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/aggregator"
	"github.com/spigell/grant-matcher/internal/ai"
	"github.com/spigell/grant-matcher/internal/ai/gemini"
	"github.com/spigell/grant-matcher/internal/connector"
	"github.com/spigell/grant-matcher/internal/eligibility"
	"github.com/spigell/grant-matcher/internal/filtering"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/matching"
	"github.com/spigell/grant-matcher/internal/organization"
	"github.com/spigell/grant-matcher/internal/scoring"
	"github.com/spigell/grant-matcher/internal/secrets"
)

// closers collects cleanup functions of opened resources.
type closers []func() error

func (c closers) Close(logger *zap.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			logger.Warn("closing resource", zap.Error(err))
		}
	}
}

func newOrganizations(ctx context.Context, cfg *OrganizationsConfig, logger *zap.Logger) (organization.Provider, func() error, error) {
	if cfg == nil {
		return nil, nil, errors.New("organizations section is required (organizations.file or organizations.sqlite)")
	}

	switch {
	case strings.TrimSpace(cfg.SQLite) != "":
		store, err := organization.OpenSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case strings.TrimSpace(cfg.File) != "":
		provider, err := organization.NewFile(cfg.File, logger)
		if err != nil {
			return nil, nil, err
		}
		return provider, nil, nil
	default:
		return nil, nil, errors.New("either organizations.file or organizations.sqlite must be set")
	}
}

func newConnectors(ctx context.Context, config *Config, logger *zap.Logger) ([]connector.Connector, func() error, error) {
	if len(config.Sources) == 0 {
		return nil, nil, errors.New("at least one source is required under sources")
	}

	var store *connector.RedisStore
	if config.Cache != nil && config.Cache.Enabled {
		password, err := secrets.Optional(secrets.Source{
			Name: "redis password",
			File: config.Cache.PasswordFile,
		})
		if err != nil {
			return nil, nil, err
		}
		store = connector.NewRedisStore(ctx, connector.RedisConfig{
			Addr:     config.Cache.Addr,
			Password: password,
			DB:       config.Cache.DB,
		}, logger)
	}

	connectors := make([]connector.Connector, 0, len(config.Sources))
	seen := make(map[string]struct{}, len(config.Sources))
	for i, src := range config.Sources {
		if src == nil || strings.TrimSpace(src.Name) == "" {
			return nil, nil, fmt.Errorf("source #%d: name is required", i+1)
		}
		if _, dup := seen[src.Name]; dup {
			return nil, nil, fmt.Errorf("source %q is configured twice", src.Name)
		}
		seen[src.Name] = struct{}{}

		c, err := newConnector(src, logger.With(zap.String("source", src.Name)))
		if err != nil {
			return nil, nil, err
		}

		if store != nil && (src.Cache == nil || *src.Cache) {
			c = connector.NewCached(c, store, config.Cache.TTL, logger)
		}
		connectors = append(connectors, c)
	}

	var closeStore func() error
	if store != nil {
		closeStore = store.Close
	}
	return connectors, closeStore, nil
}

func newConnector(src *SourceConfig, logger *zap.Logger) (connector.Connector, error) {
	kind := grants.ParseSourceKind(src.Kind)

	switch strings.ToLower(strings.TrimSpace(src.Type)) {
	case "file", "":
		if strings.TrimSpace(src.Path) == "" {
			return nil, fmt.Errorf("source %q: path is required for file sources", src.Name)
		}
		f := connector.NewFile(src.Name, kind, src.Path, logger)
		f.All = src.All
		return f, nil
	case "http":
		token, err := secrets.Optional(secrets.Source{
			Name: src.Name + " token",
			File: src.TokenFile,
			Env:  src.TokenEnv,
		})
		if err != nil {
			return nil, err
		}
		return connector.NewHTTP(connector.HTTPConfig{
			Name:     src.Name,
			Kind:     kind,
			URL:      src.URL,
			Token:    token,
			PerPage:  src.PerPage,
			MaxPages: src.MaxPages,
			Fields:   src.Fields,
			Params:   src.Params,
			Timeout:  src.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("source %q: unsupported type %q", src.Name, src.Type)
	}
}

func newSimilarity(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.TextSimilarity, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewScorer(generator, cfg.Gemini.MaxLogLength, logger.With(zap.String("model", generator.Model()))), nil
}

func newScorer(ctx context.Context, config *Config, logger *zap.Logger) *scoring.Scorer {
	opts := []scoring.Option{scoring.WithLogger(logger)}
	if config.Matching != nil {
		opts = append(opts, scoring.WithWorkers(config.Matching.Workers))
	}

	if config.AI != nil && config.AI.Enabled {
		similarity, err := newSimilarity(ctx, config.AI, logger)
		if err != nil {
			logger.Warn("mission similarity disabled, using keyword overlap", zap.Error(err))
		} else {
			opts = append(opts, scoring.WithSimilarity(similarity, config.AI.Timeout))
		}
	}

	return scoring.NewScorer(opts...)
}

func newGate(config *Config) *eligibility.Gate {
	var opts []eligibility.Option
	if config.Matching != nil {
		opts = append(opts,
			eligibility.WithMinLeadDays(config.Matching.MinLeadDays),
			eligibility.WithMaxBudgetShare(config.Matching.MaxBudgetShare),
		)
	}
	return eligibility.New(opts...)
}

func filterSetup(cfg *FiltersConfig) (func() []filtering.Filter, *filtering.Config) {
	if cfg == nil {
		return filtering.Default, &filtering.Config{}
	}

	steps := func() []filtering.Filter {
		filters := filtering.Default()
		for name, reason := range cfg.Disabled {
			filtering.DisableByName(filters, name, reason)
		}
		return filters
	}
	return steps, &filtering.Config{
		ExcludedFunders: cfg.ExcludedFunders,
		DismissedFile:   cfg.DismissedFile,
	}
}

// newEngine wires every component from the configuration. The returned closers must be
// closed by the caller.
func newEngine(ctx context.Context, config *Config, logger *zap.Logger) (*matching.Engine, closers, error) {
	var cleanup closers

	weights, err := scoring.DecodeWeights(config.Weights)
	if err != nil {
		return nil, nil, err
	}

	orgs, closeOrgs, err := newOrganizations(ctx, config.Organizations, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("organizations: %w", err)
	}
	if closeOrgs != nil {
		cleanup = append(cleanup, closeOrgs)
	}

	connectors, closeStore, err := newConnectors(ctx, config, logger)
	if err != nil {
		cleanup.Close(logger)
		return nil, nil, fmt.Errorf("sources: %w", err)
	}
	if closeStore != nil {
		cleanup = append(cleanup, closeStore)
	}

	aggOpts := aggregator.Options{}
	if config.Aggregator != nil {
		aggOpts.SourceTimeout = config.Aggregator.SourceTimeout
		aggOpts.Workers = config.Aggregator.Workers
	}

	filters, filterConfig := filterSetup(config.Filters)

	opts := matching.Options{Weights: weights}
	if config.Matching != nil {
		opts.RunTimeout = config.Matching.RunTimeout
		opts.FetchLimit = config.Matching.FetchLimit
	}

	engine, err := matching.NewEngine(matching.Deps{
		Organizations: orgs,
		Sources:       aggregator.New(logger, aggOpts, connectors...),
		Scorer:        newScorer(ctx, config, logger),
		Gate:          newGate(config),
		Filters:       filters,
		FilterConfig:  filterConfig,
		Logger:        logger,
	}, opts)
	if err != nil {
		cleanup.Close(logger)
		return nil, nil, err
	}

	return engine, cleanup, nil
}
