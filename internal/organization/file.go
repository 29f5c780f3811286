package organization

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
)

type fileDocument struct {
	Organizations []*grants.Organization `yaml:"organizations"`
}

// File serves profiles from a YAML document with a top-level "organizations" list.
// The document is read once at construction.
type File struct {
	path string
	orgs map[string]*grants.Organization
}

func NewFile(path string, log *zap.Logger) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading organizations file: %w", err)
	}

	orgs, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	f := &File{path: path, orgs: make(map[string]*grants.Organization, len(orgs))}
	for _, org := range orgs {
		f.orgs[org.ID] = org
	}

	logger.OrNop(log).Debug("organizations loaded", zap.String("path", path), zap.Int("count", len(orgs)))
	return f, nil
}

// ParseYAML decodes an organizations document. IDs must be present and unique.
func ParseYAML(data []byte) ([]*grants.Organization, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(doc.Organizations))
	for i, org := range doc.Organizations {
		if org == nil {
			return nil, fmt.Errorf("organization #%d is empty", i+1)
		}
		org.ID = strings.TrimSpace(org.ID)
		if org.ID == "" {
			return nil, fmt.Errorf("organization #%d has no id", i+1)
		}
		if _, dup := seen[org.ID]; dup {
			return nil, fmt.Errorf("duplicate organization id %q", org.ID)
		}
		seen[org.ID] = struct{}{}
	}
	return doc.Organizations, nil
}

func (f *File) Get(ctx context.Context, id string) (*grants.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	org, ok := f.orgs[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, id, f.path)
	}
	return clone(org), nil
}

func (f *File) List(ctx context.Context) ([]*grants.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*grants.Organization, 0, len(f.orgs))
	for _, org := range f.orgs {
		out = append(out, clone(org))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
