package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// weightTolerance is how far the sum of weights may drift from 1.
const weightTolerance = 0.001

// ErrInvalidWeights is returned for weight tables that cannot produce meaningful composites.
var ErrInvalidWeights = errors.New("invalid weights")

// Weights holds one weight per dimension.
type Weights [NumDimensions]float64

// DefaultWeights emphasizes mission and focus overlap.
func DefaultWeights() Weights {
	var w Weights
	w[MissionAlignment] = 0.25
	w[GeographicMatch] = 0.10
	w[BudgetFit] = 0.10
	w[CapacityFit] = 0.10
	w[FocusAreaMatch] = 0.15
	w[EligibilityScore] = 0.05
	w[TimingScore] = 0.10
	w[FunderFit] = 0.10
	w[CompetitionLevel] = 0.05
	return w
}

func (w Weights) Get(d Dimension) float64 {
	return w[d]
}

func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Validate rejects negative weights and sums outside 1 ± 0.001.
func (w Weights) Validate() error {
	for d, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s has weight %v", ErrInvalidWeights, Dimension(d), v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, expected 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// Map returns the weights keyed by dimension name.
func (w Weights) Map() map[string]float64 {
	m := make(map[string]float64, NumDimensions)
	for d, v := range w {
		m[Dimension(d).String()] = v
	}
	return m
}

// ParseWeights builds a validated table from a name->weight map. Every dimension must be
// present exactly once and unknown names are rejected.
func ParseWeights(m map[string]float64) (Weights, error) {
	var w Weights
	var seen [NumDimensions]bool
	var unknown []string

	for name, v := range m {
		d, err := ParseDimension(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		if seen[d] {
			return Weights{}, fmt.Errorf("%w: %s is configured twice", ErrInvalidWeights, d)
		}
		seen[d] = true
		w[d] = v
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Weights{}, fmt.Errorf("%w: unknown dimensions %s", ErrInvalidWeights, strings.Join(unknown, ", "))
	}

	var missing []string
	for d, ok := range seen {
		if !ok {
			missing = append(missing, Dimension(d).String())
		}
	}
	if len(missing) > 0 {
		return Weights{}, fmt.Errorf("%w: missing dimensions %s", ErrInvalidWeights, strings.Join(missing, ", "))
	}

	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// DecodeWeights reads weights from loosely typed configuration such as a viper sub-tree.
// An empty input yields DefaultWeights.
func DecodeWeights(input any) (Weights, error) {
	if input == nil {
		return DefaultWeights(), nil
	}

	var m map[string]float64
	cfg := &mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return Weights{}, err
	}
	if err := decoder.Decode(input); err != nil {
		return Weights{}, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
	}
	if len(m) == 0 {
		return DefaultWeights(), nil
	}
	return ParseWeights(m)
}
