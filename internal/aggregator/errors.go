package aggregator

import (
	"context"
	"errors"
	"fmt"
)

// ErrSourceUnavailable is matched by every SourceError.
var ErrSourceUnavailable = errors.New("source unavailable")

// SourceError records why a connector contributed no candidates.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// Timeout reports whether the source ran out of time.
func (e *SourceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// PanicError wraps a value recovered from a misbehaving connector.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("connector panicked: %v", e.Value)
}
