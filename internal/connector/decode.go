package connector

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/grant-matcher/internal/grants"
)

const deadlineField = "deadline"

var (
	timeType    = reflect.TypeOf(time.Time{})
	timePtrType = reflect.TypeOf(&time.Time{})

	deadlineLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		time.DateOnly,
		"01/02/2006",
		"January 2, 2006",
		"Jan 2, 2006",
	}
)

// decodeCandidates turns loosely typed items (JSON or YAML documents) into candidates.
// rename maps source field names onto candidate field names before decoding.
func decodeCandidates(items []any, rename map[string]string) ([]grants.Candidate, error) {
	items = prepareItems(items, rename)

	var candidates []grants.Candidate
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &candidates,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			deadlineHook,
			sourceKindHook,
			listHook,
		),
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}

	return candidates, nil
}

// prepareItems applies rename and drops blank or rolling deadlines so they decode as nil.
func prepareItems(items []any, rename map[string]string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		prepared := make(map[string]any, len(m))
		for key, value := range m {
			if target, ok := rename[key]; ok {
				key = target
			}
			prepared[key] = value
		}
		if openDeadline(prepared[deadlineField]) {
			delete(prepared, deadlineField)
		}
		out = append(out, prepared)
	}
	return out
}

func openDeadline(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		raw := strings.TrimSpace(v)
		return raw == "" || strings.EqualFold(raw, "rolling")
	default:
		return false
	}
}

func deadlineHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || (to != timeType && to != timePtrType) {
		return data, nil
	}

	parsed, err := parseDeadline(strings.TrimSpace(reflect.ValueOf(data).String()))
	if err != nil {
		return nil, err
	}
	if to == timePtrType {
		return &parsed, nil
	}
	return parsed, nil
}

func parseDeadline(raw string) (time.Time, error) {
	for _, layout := range deadlineLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", raw)
}

func sourceKindHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(grants.SourceKind("")) {
		return data, nil
	}
	return grants.ParseSourceKind(reflect.ValueOf(data).String()), nil
}

// listHook accepts "education, youth" where a list is expected.
func listHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	raw := reflect.ValueOf(data).String()
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
