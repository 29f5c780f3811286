package scoring

import (
	"encoding/json"
	"math"
	"sort"
)

// Scores holds one value in [0,100] per dimension.
type Scores [NumDimensions]float64

func (s Scores) Get(d Dimension) float64 {
	return s[d]
}

// Set stores v clamped into [0,100].
func (s *Scores) Set(d Dimension, v float64) {
	s[d] = clamp(v)
}

// Weighted returns Σ weight*score without rounding.
func (s Scores) Weighted(w Weights) float64 {
	var total float64
	for d := range s {
		total += w[d] * s[d]
	}
	return total
}

// Ranked returns dimensions ordered by score, highest first. Ties keep declaration order.
func (s Scores) Ranked() []Dimension {
	dims := Dimensions()
	sort.SliceStable(dims, func(i, j int) bool {
		return s[dims[i]] > s[dims[j]]
	})
	return dims
}

func (s Scores) Map() map[string]float64 {
	m := make(map[string]float64, NumDimensions)
	for d, v := range s {
		m[Dimension(d).String()] = v
	}
	return m
}

func (s Scores) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
