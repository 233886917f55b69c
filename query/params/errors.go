package params

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMixedStyles is returned when a statement uses more than one placeholder style.
	ErrMixedStyles = errors.New("mixed parameter styles")

	// ErrMalformedPlaceholder is returned for a placeholder token that cannot be read.
	ErrMalformedPlaceholder = errors.New("malformed placeholder")
)

// MixedStyleError lists the styles found in a statement, in order of first appearance.
type MixedStyleError struct {
	Styles []Style
}

// Error implements the error interface.
func (e *MixedStyleError) Error() string {
	names := make([]string, len(e.Styles))
	for i, s := range e.Styles {
		names[i] = s.String()
	}
	return fmt.Sprintf("mixed parameter styles: %s", strings.Join(names, ", "))
}

// Unwrap returns ErrMixedStyles.
func (e *MixedStyleError) Unwrap() error {
	return ErrMixedStyles
}

// PlaceholderError reports a placeholder (or the literal around it) that could not be scanned.
type PlaceholderError struct {
	Pos  int
	Text string
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *PlaceholderError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("malformed placeholder %q at offset %d: %s", e.Text, e.Pos, e.Msg)
	}
	return fmt.Sprintf("malformed placeholder at offset %d: %s", e.Pos, e.Msg)
}

// Unwrap returns the lexer error when there is one.
func (e *PlaceholderError) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformedPlaceholder.
func (e *PlaceholderError) Is(target error) bool {
	return target == ErrMalformedPlaceholder
}
