package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/grant-matcher/internal/ai"
	"github.com/spigell/grant-matcher/internal/grants"
	"github.com/spigell/grant-matcher/internal/logger"
	"github.com/spigell/grant-matcher/internal/textutil"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Scorer rates mission alignment with Gemini.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

var _ ai.TextSimilarity = (*Scorer)(nil)

func NewScorer(generator contentGenerator, maxLogLength int, log *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

type opportunityPayload struct {
	Title       string   `json:"title"`
	Funder      string   `json:"funder,omitempty"`
	Description string   `json:"description,omitempty"`
	FocusAreas  []string `json:"focus_areas,omitempty"`
	Eligibility string   `json:"eligibility,omitempty"`
}

func (s *Scorer) Similarity(ctx context.Context, mission string, candidate *grants.Candidate) (*ai.Similarity, error) {
	if strings.TrimSpace(mission) == "" {
		return nil, fmt.Errorf("mission is required")
	}
	if candidate == nil {
		return nil, fmt.Errorf("candidate is required")
	}

	message, err := buildMessage(mission, candidate)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini generate content request",
		zap.String(logger.FieldCandidate, candidate.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", textutil.TruncateForLog(message, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini generate content response",
		zap.String(logger.FieldCandidate, candidate.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", textutil.TruncateForLog(raw, s.maxLogLen)),
	)

	similarity, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	similarity.Raw = raw

	return similarity, nil
}

func buildMessage(mission string, candidate *grants.Candidate) (string, error) {
	payload, err := json.MarshalIndent(opportunityPayload{
		Title:       candidate.Title,
		Funder:      candidate.Funder,
		Description: candidate.Description,
		FocusAreas:  candidate.FocusAreas,
		Eligibility: candidate.Eligibility,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal opportunity payload: %w", err)
	}

	return fmt.Sprintf("Organization mission:\n%s\n\nOpportunity:\n%s\n\nJSON Response:", strings.TrimSpace(mission), payload), nil
}

func parseResponse(raw string) (*ai.Similarity, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		return nil, errors.New("gemini response has no numeric score")
	}
	// A missing scale means 0-100. Any other positive scale is rescaled.
	if scale := coerceFloat(data["scale"]); !math.IsNaN(scale) && scale > 0 && scale != 100 {
		score = score * 100 / scale
	}

	return &ai.Similarity{
		Score:  math.Max(0, math.Min(100, score)),
		Reason: coerceString(data["reason"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
