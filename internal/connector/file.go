package connector

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

// File serves opportunities from a local YAML or JSON document. The document is either
// a list of opportunities or a mapping with an "opportunities" list.
type File struct {
	name   string
	kind   grants.SourceKind
	path   string
	logger *zap.Logger
	// All disables keyword narrowing and returns every opportunity in the file.
	All bool
}

func NewFile(name string, kind grants.SourceKind, path string, log *zap.Logger) *File {
	if kind == "" {
		kind = grants.SourceUnknown
	}
	return &File{
		name:   name,
		kind:   kind,
		path:   path,
		logger: logger.OrNop(log),
	}
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Kind() grants.SourceKind {
	return f.kind
}

func (f *File) Fetch(ctx context.Context, search SearchContext, limit int) ([]grants.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read opportunities file %q: %w", f.path, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse opportunities file %q: %w", f.path, err)
	}

	items, err := documentItems(doc)
	if err != nil {
		return nil, fmt.Errorf("opportunities file %q: %w", f.path, err)
	}

	candidates, err := decodeCandidates(items, nil)
	if err != nil {
		return nil, fmt.Errorf("opportunities file %q: %w", f.path, err)
	}
	stamp(candidates, f.name, f.kind)

	result := make([]grants.Candidate, 0, len(candidates))
	for i := range candidates {
		if f.All || search.Matches(&candidates[i]) {
			result = append(result, candidates[i])
		}
	}

	f.logger.Debug("loaded opportunities from file",
		zap.String(logger.FieldSource, f.name),
		zap.Int("total", len(candidates)),
		zap.Int("matched", len(result)),
	)

	return truncate(result, limit), nil
}

func documentItems(doc any) ([]any, error) {
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case map[string]any:
		raw, ok := v["opportunities"]
		if !ok {
			return nil, fmt.Errorf("expected a list or an \"opportunities\" key")
		}
		if raw == nil {
			return nil, nil
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("\"opportunities\" must be a list, got %T", raw)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected document type %T", doc)
	}
}

// ParseCandidate decodes a single opportunity document in the same format file sources
// use for their items.
func ParseCandidate(data []byte) (*grants.Candidate, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse opportunity: %w", err)
	}

	item, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a single opportunity mapping, got %T", doc)
	}

	candidates, err := decodeCandidates([]any{item}, nil)
	if err != nil {
		return nil, err
	}
	return &candidates[0], nil
}
