package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

const (
	DefaultCacheTTL = 10 * time.Minute
	cacheKeyPrefix  = "grants:search:"
	pingTimeout     = 2 * time.Second
)

// Store keeps JSON documents by key. A store that cannot reach its backend reports a
// miss and drops writes.
type Store interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is a Store backed by Redis. When Redis is unreachable at construction the
// store bypasses every call.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger

	warnedUnavailable atomic.Bool
}

func NewRedisStore(ctx context.Context, cfg RedisConfig, log *zap.Logger) *RedisStore {
	log = logger.OrNop(log)
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, bypassing cache", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return &RedisStore{logger: log}
	}

	return &RedisStore{client: client, logger: log}
}

func (r *RedisStore) Available() bool {
	return r != nil && r.client != nil
}

func (r *RedisStore) Close() error {
	if !r.Available() {
		return nil
	}
	return r.client.Close()
}

func (r *RedisStore) warnUnavailableOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		r.logger.Warn("redis unavailable, bypassing cache", zap.Error(err))
	}
}

func (r *RedisStore) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	if !r.Available() {
		return false, nil
	}
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		r.warnUnavailableOnce(err)
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !r.Available() {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil {
		r.warnUnavailableOnce(err)
		return err
	}
	return nil
}

// Cached serves repeated searches from a Store. Cache failures never fail a fetch.
type Cached struct {
	next   Connector
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(next Connector, store Store, ttl time.Duration, log *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		next:   next,
		store:  store,
		ttl:    ttl,
		logger: logger.OrNop(log).With(zap.String(logger.FieldSource, next.Name())),
	}
}

func (c *Cached) Name() string {
	return c.next.Name()
}

func (c *Cached) Kind() grants.SourceKind {
	return c.next.Kind()
}

func (c *Cached) Fetch(ctx context.Context, search SearchContext, limit int) ([]grants.Candidate, error) {
	key := CacheKey(c.next.Name(), search, limit)

	var cached []grants.Candidate
	hit, err := c.store.GetJSON(ctx, key, &cached)
	if err != nil {
		c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		c.logger.Debug("cache hit", zap.String("key", key), zap.Int("candidates", len(cached)))
		return cached, nil
	}

	candidates, err := c.next.Fetch(ctx, search, limit)
	if err != nil {
		return nil, err
	}

	if candidates == nil {
		candidates = []grants.Candidate{}
	}
	if err := c.store.SetJSON(ctx, key, candidates, c.ttl); err != nil {
		c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}

	return candidates, nil
}

type cacheKeyInput struct {
	Source     string   `json:"source"`
	Keywords   []string `json:"keywords"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	FocusAreas []string `json:"focus_areas"`
	BudgetMin  float64  `json:"budget_min"`
	BudgetMax  float64  `json:"budget_max"`
	Limit      int      `json:"limit"`
}

func normalizeSearchValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return s
}

func normalizeSearchValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = normalizeSearchValue(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// CacheKey identifies a search for one source independent of keyword order and case.
func CacheKey(source string, search SearchContext, limit int) string {
	in := cacheKeyInput{
		Source:     normalizeSearchValue(source),
		Keywords:   normalizeSearchValues(search.Keywords),
		City:       normalizeSearchValue(search.City),
		State:      normalizeSearchValue(search.State),
		FocusAreas: normalizeSearchValues(search.FocusAreas),
		BudgetMin:  search.BudgetMin,
		BudgetMax:  search.BudgetMax,
		Limit:      limit,
	}

	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
