package connector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

const (
	userAgent = "spigell/grant-matcher"
	// Max value for search per page.
	perPage = 100
)

// HTTPConfig describes a paginated JSON search API.
type HTTPConfig struct {
	Name string
	Kind grants.SourceKind
	// URL is the search endpoint, e.g. https://api.example.org/opportunities.
	URL   string
	Token string
	// PerPage defaults to 100.
	PerPage  int
	MaxPages int
	// Fields renames response fields onto candidate fields, e.g. "name": "title".
	Fields map[string]string
	// Params are static query parameters sent with every request.
	Params  map[string]string
	Timeout time.Duration
}

// HTTP is a connector for search APIs returning {"items": [...], "page", "pages"}.
type HTTP struct {
	name       string
	kind       grants.SourceKind
	token      string
	cfg        HTTPConfig
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func NewHTTP(cfg HTTPConfig, log *zap.Logger) (*HTTP, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("source %q: url is required", cfg.Name)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("source %q: invalid url: %w", cfg.Name, err)
	}
	if cfg.Kind == "" {
		cfg.Kind = grants.SourceUnknown
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = perPage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTP{
		name:   cfg.Name,
		kind:   cfg.Kind,
		token:  cfg.Token,
		cfg:    cfg,
		logger: logger.OrNop(log),
		APIURL: strings.TrimRight(cfg.URL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}, nil
}

func (c *HTTP) Name() string {
	return c.name
}

func (c *HTTP) Kind() grants.SourceKind {
	return c.kind
}

func (c *HTTP) Fetch(ctx context.Context, search SearchContext, limit int) ([]grants.Candidate, error) {
	items, err := c.GetItems(ctx, c.APIURL, c.buildParams(search), c.maxPages(limit))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.name, err)
	}

	candidates, err := decodeCandidates(items, c.cfg.Fields)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.name, err)
	}
	stamp(candidates, c.name, c.kind)

	return truncate(candidates, limit), nil
}

func (c *HTTP) buildParams(search SearchContext) url.Values {
	q := url.Values{}
	for key, value := range c.cfg.Params {
		q.Set(key, value)
	}
	if text := search.Query(); text != "" {
		q.Set("text", text)
	}
	if search.State != "" {
		q.Set("state", search.State)
	}
	if search.City != "" {
		q.Set("city", search.City)
	}
	for _, area := range search.FocusAreas {
		q.Add("focus_area", area)
	}
	if search.BudgetMax > 0 {
		q.Set("budget_max", strconv.FormatFloat(search.BudgetMax, 'f', 0, 64))
	}
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))

	return q
}

// maxPages stops pagination once enough items for limit have been requested.
func (c *HTTP) maxPages(limit int) int {
	pages := c.cfg.MaxPages
	if limit > 0 {
		needed := (limit + c.cfg.PerPage - 1) / c.cfg.PerPage
		if pages <= 0 || needed < pages {
			pages = needed
		}
	}
	return pages
}
