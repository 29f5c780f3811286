package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldRunID is the structured log field key for a single matching run.
	FieldRunID = "run_id"
	// FieldOrganization is the structured log field key for the organization being matched.
	FieldOrganization = "organization_id"
	// FieldSource is the structured log field key for a source connector name.
	FieldSource = "source"
	// FieldCandidate is the structured log field key for an opportunity ID.
	FieldCandidate = "candidate_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RunFields returns the fields identifying one matching run.
func RunFields(runID, organizationID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldRunID, Value: runID},
		StringField{Key: FieldOrganization, Value: organizationID},
	)
}

// WithRun attaches run and organization identifiers to the logger.
func WithRun(logger *zap.Logger, runID, organizationID string) *zap.Logger {
	return WithFields(logger, RunFields(runID, organizationID)...)
}
