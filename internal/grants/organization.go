package grants

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/grant-matcher/internal/textutil"
)

// DefaultEntityType is assumed for profiles that do not declare one: the platform
// serves nonprofits.
const DefaultEntityType = "501(c)(3)"

// Organization is the profile of the nonprofit looking for funding.
type Organization struct {
	ID                  string   `json:"id" yaml:"id"`
	Name                string   `json:"name" yaml:"name"`
	Mission             string   `json:"mission,omitempty" yaml:"mission"`
	FocusAreas          []string `json:"focus_areas,omitempty" yaml:"focus_areas"`
	City                string   `json:"city,omitempty" yaml:"city"`
	State               string   `json:"state,omitempty" yaml:"state"`
	BudgetRange         string   `json:"budget_range,omitempty" yaml:"budget_range"`
	AnnualBudget        float64  `json:"annual_budget,omitempty" yaml:"annual_budget"`
	StaffCount          int      `json:"staff_count,omitempty" yaml:"staff_count"`
	FoundedYear         int      `json:"founded_year,omitempty" yaml:"founded_year"`
	PriorFunders        []string `json:"prior_funders,omitempty" yaml:"prior_funders"`
	PreferredGrantTypes []string `json:"preferred_grant_types,omitempty" yaml:"preferred_grant_types"`
	EntityType          string   `json:"entity_type,omitempty" yaml:"entity_type"`
	FaithBased          bool     `json:"faith_based,omitempty" yaml:"faith_based"`
}

// Validate reports structural problems that would make every score misleading.
func (o *Organization) Validate(now time.Time) error {
	if o == nil {
		return errors.New("organization is nil")
	}
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("organization id is required")
	}
	if o.StaffCount < 0 {
		return fmt.Errorf("staff count must not be negative, got %d", o.StaffCount)
	}
	if o.FoundedYear > now.Year() {
		return fmt.Errorf("founded year %d is in the future", o.FoundedYear)
	}
	if o.AnnualBudget < 0 {
		return fmt.Errorf("annual budget must not be negative, got %.0f", o.AnnualBudget)
	}
	if strings.TrimSpace(o.BudgetRange) != "" {
		if _, err := ParseBudgetRange(o.BudgetRange); err != nil {
			return err
		}
	}
	return nil
}

// Budget returns the organization's annual budget. An explicit AnnualBudget wins over
// the upper bound of the categorical BudgetRange.
func (o *Organization) Budget() (float64, bool) {
	if o.AnnualBudget > 0 {
		return o.AnnualBudget, true
	}
	band, err := ParseBudgetRange(o.BudgetRange)
	if err != nil || band.Upper <= 0 {
		return 0, false
	}
	return band.Upper, true
}

// Entity returns the declared entity type or DefaultEntityType.
func (o *Organization) Entity() string {
	if e := strings.TrimSpace(o.EntityType); e != "" {
		return e
	}
	return DefaultEntityType
}

// Age returns the number of years since founding. ok is false when unknown.
func (o *Organization) Age(now time.Time) (int, bool) {
	if o.FoundedYear <= 0 {
		return 0, false
	}
	return now.Year() - o.FoundedYear, true
}

// HasPriorFunder reports whether the organization already received money from funder.
func (o *Organization) HasPriorFunder(funder string) bool {
	target := textutil.Normalize(funder)
	if target == "" {
		return false
	}
	for _, f := range o.PriorFunders {
		if textutil.Normalize(f) == target {
			return true
		}
	}
	return false
}

// Location returns "City, ST" for logs and messages.
func (o *Organization) Location() string {
	parts := make([]string, 0, 2)
	if c := strings.TrimSpace(o.City); c != "" {
		parts = append(parts, c)
	}
	if s := strings.TrimSpace(o.State); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "unknown location"
	}
	return strings.Join(parts, ", ")
}
