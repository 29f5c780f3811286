package ai

import (
	"context"

	"github.com/spigell/grant-matcher/internal/grants"
)

// Similarity is a model's judgement of how well an opportunity serves a mission.
type Similarity struct {
	// Score is in [0,100].
	Score  float64
	Reason string
	Raw    string
}

// TextSimilarity scores mission alignment with an external model.
type TextSimilarity interface {
	Similarity(ctx context.Context, mission string, candidate *grants.Candidate) (*Similarity, error)
}
