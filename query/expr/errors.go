package expr

import (
	"errors"
	"fmt"

	"github.com/satishbabariya/sqlkit/query/dialect"
)

var (
	// ErrParse is wrapped by every *ParseError.
	ErrParse = errors.New("parse error")

	// ErrUnsupportedClause is returned when a mutation does not apply to a statement kind.
	ErrUnsupportedClause = errors.New("unsupported clause")

	// ErrForeignExpression is returned when a service is given an expression it did not create.
	ErrForeignExpression = errors.New("expression not created by this service")
)

// ParseError describes malformed SQL.
type ParseError struct {
	SQL     string
	Dialect dialect.Dialect
	Pos     int
	Msg     string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("parse %s sql: %s at offset %d", e.Dialect, e.Msg, e.Pos)
	}
	return fmt.Sprintf("parse %s sql: %s", e.Dialect, e.Msg)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func unsupported(op string, k Kind) error {
	return fmt.Errorf("%s on %s statement: %w", op, k, ErrUnsupportedClause)
}
