package scoring

import (
	"fmt"
	"strings"
)

// Dimension is one independently computed facet of fit.
type Dimension int

const (
	MissionAlignment Dimension = iota
	GeographicMatch
	BudgetFit
	CapacityFit
	FocusAreaMatch
	EligibilityScore
	TimingScore
	FunderFit
	CompetitionLevel

	// NumDimensions is the size of every per-dimension table.
	NumDimensions
)

var dimensionNames = [NumDimensions]string{
	MissionAlignment: "mission_alignment",
	GeographicMatch:  "geographic_match",
	BudgetFit:        "budget_fit",
	CapacityFit:      "capacity_fit",
	FocusAreaMatch:   "focus_area_match",
	EligibilityScore: "eligibility_score",
	TimingScore:      "timing_score",
	FunderFit:        "funder_fit",
	CompetitionLevel: "competition_level",
}

var dimensionLabels = [NumDimensions]string{
	MissionAlignment: "mission alignment",
	GeographicMatch:  "geographic match",
	BudgetFit:        "budget fit",
	CapacityFit:      "staff capacity",
	FocusAreaMatch:   "focus area overlap",
	EligibilityScore: "eligibility fit",
	TimingScore:      "deadline timing",
	FunderFit:        "funder relationship",
	CompetitionLevel: "competition level",
}

// Dimensions lists every dimension in declaration order.
func Dimensions() []Dimension {
	all := make([]Dimension, 0, NumDimensions)
	for d := Dimension(0); d < NumDimensions; d++ {
		all = append(all, d)
	}
	return all
}

func (d Dimension) Valid() bool {
	return d >= 0 && d < NumDimensions
}

// String returns the configuration key, e.g. "mission_alignment".
func (d Dimension) String() string {
	if !d.Valid() {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Label returns a human readable name for explanations.
func (d Dimension) Label() string {
	if !d.Valid() {
		return d.String()
	}
	return dimensionLabels[d]
}

func (d Dimension) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid dimension %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Dimension) UnmarshalText(text []byte) error {
	parsed, err := ParseDimension(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDimension maps a configuration key to a Dimension. Unknown keys are errors.
func ParseDimension(name string) (Dimension, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for d, n := range dimensionNames {
		if n == key {
			return Dimension(d), nil
		}
	}
	return 0, fmt.Errorf("unknown dimension %q", name)
}
