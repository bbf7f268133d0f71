package dto

import (
	"errors"
	"fmt"
)

// ErrAbsentRequiredNesting marks a nested field declared required but missing
// from the plain object.
var ErrAbsentRequiredNesting = errors.New("absent required nested field")

// ShapeMismatch reports a plain object or message that does not conform to
// its declared schema.
type ShapeMismatch struct {
	Schema string
	Path   string
	Reason string
	Err    error
}

func (e *ShapeMismatch) Error() string {
	msg := fmt.Sprintf("shape mismatch for %s at %s: %s", e.Schema, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ShapeMismatch) Unwrap() error { return e.Err }

// IsShapeMismatch reports whether err carries a ShapeMismatch.
func IsShapeMismatch(err error) bool {
	var sm *ShapeMismatch
	return errors.As(err, &sm)
}

func mismatch(schema, path, format string, args ...any) *ShapeMismatch {
	return &ShapeMismatch{Schema: schema, Path: path, Reason: fmt.Sprintf(format, args...)}
}
