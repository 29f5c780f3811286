package organization

import (
	"context"
	"errors"

	"github.com/spigell/grant-matcher/internal/grants"
)

// ErrNotFound is returned when no profile exists for the requested ID.
var ErrNotFound = errors.New("organization not found")

// Provider loads organization profiles. Implementations return copies, so callers may
// not mutate shared state through them.
type Provider interface {
	Get(ctx context.Context, id string) (*grants.Organization, error)
	List(ctx context.Context) ([]*grants.Organization, error)
}

func clone(org *grants.Organization) *grants.Organization {
	c := *org
	c.FocusAreas = append([]string(nil), org.FocusAreas...)
	c.PriorFunders = append([]string(nil), org.PriorFunders...)
	c.PreferredGrantTypes = append([]string(nil), org.PreferredGrantTypes...)
	return &c
}
