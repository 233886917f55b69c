// Package expr parses SQL text into expressions that filters can extend, and
// renders them back to text for a dialect.
//
// The built-in engine works at the clause level: it finds the top-level
// WHERE, GROUP BY, ORDER BY, LIMIT and friends of a statement and keeps
// everything else verbatim. That is enough to add predicates, ordering and
// pagination without a full SQL grammar.
package expr

import (
	"github.com/satishbabariya/sqlkit/query/dialect"
)

// Kind classifies a statement.
type Kind int

const (
	KindOther Kind = iota
	KindSelect
	KindCompound
	KindInsert
	KindUpdate
	KindDelete
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindCompound:
		return "compound"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "other"
	}
}

// Expression is an immutable parsed statement. Every mutation returns a new
// expression and leaves the receiver untouched.
type Expression interface {
	// Kind returns the statement kind.
	Kind() Kind
	// Dialect returns the dialect the expression was parsed for.
	Dialect() dialect.Dialect
	// Where adds a predicate, AND-ed with existing ones.
	Where(predicate string) (Expression, error)
	// OrderBy appends ORDER BY terms.
	OrderBy(terms ...string) (Expression, error)
	// Paginate sets LIMIT and OFFSET. Empty strings leave a bound out.
	Paginate(limit, offset string) (Expression, error)
	// Modified reports whether a mutation was applied since parsing.
	Modified() bool
}

// Service parses and renders expressions.
type Service interface {
	Parse(sql string, d dialect.Dialect) (Expression, error)
	Render(e Expression, d dialect.Dialect, pretty bool) (string, error)
}

// Default returns the service used when none is configured: the built-in
// engine, with TiDB parser validation for the MySQL family.
func Default() Service {
	return NewTiDBService(NewService())
}
