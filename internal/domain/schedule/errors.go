package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDateRange is returned by generation when the requested
	// window is malformed (end before start, unparseable bounds).
	ErrInvalidDateRange = errors.New("schedule: invalid date range")

	// ErrNoVersion is returned when a version history has no entry
	// covering the requested instant.
	ErrNoVersion = errors.New("schedule: no version covers that time")
)

// ValidationError reports the first structural problem found in an
// incoming schedule document, with a dotted path to the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schedule: invalid field %q: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func invalidf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
