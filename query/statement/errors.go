package statement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/sqlkit/query/filter"
)

// Error types for statement compilation.
var (
	// ErrMissingParameter is returned when a placeholder has no value.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrParameterCollision is returned when two sources bind the same name.
	ErrParameterCollision = errors.New("parameter collision")

	// ErrScriptFilters is returned when a script carries filters.
	ErrScriptFilters = errors.New("filters cannot be applied to a script")

	// ErrManyModeFilterParams is returned when a batch statement carries
	// filters that bind parameters.
	ErrManyModeFilterParams = errors.New("filters with parameters cannot be applied to a batch statement")
)

// MissingParameterError lists placeholders without a value.
type MissingParameterError struct {
	Names []string
	// Row is the batch row, or -1 outside many mode.
	Row int
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	msg := fmt.Sprintf("missing parameter %s", strings.Join(e.Names, ", "))
	if e.Row >= 0 {
		return fmt.Sprintf("batch row %d: %s", e.Row, msg)
	}
	return msg
}

// Unwrap returns ErrMissingParameter.
func (e *MissingParameterError) Unwrap() error {
	return ErrMissingParameter
}

// ParameterCollisionError reports a filter binding a name that is already bound.
type ParameterCollisionError struct {
	Name   string
	Filter filter.Kind
}

// Error implements the error interface.
func (e *ParameterCollisionError) Error() string {
	return fmt.Sprintf("parameter collision: %s filter binds %q, which is already bound", e.Filter, e.Name)
}

// Unwrap returns ErrParameterCollision.
func (e *ParameterCollisionError) Unwrap() error {
	return ErrParameterCollision
}
