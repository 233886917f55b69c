package filter

import (
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection maps "desc"/"descending" (any case) to Desc and everything
// else, including the empty string, to Asc.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Desc
	default:
		return Asc
	}
}

// Term is one ORDER BY entry.
type Term struct {
	Field     string
	Direction Direction
}

// OrderBy appends ORDER BY terms. It binds no parameters.
type OrderBy struct {
	terms []Term
}

// NewOrderBy orders by a single field; direction is parsed with ParseDirection.
func NewOrderBy(field, direction string) OrderBy {
	return NewOrderByTerms(Term{Field: field, Direction: ParseDirection(direction)})
}

// NewOrderByTerms orders by several fields in the given order.
func NewOrderByTerms(terms ...Term) OrderBy {
	out := make([]Term, len(terms))
	for i, t := range terms {
		if t.Direction != Desc {
			t.Direction = Asc
		}
		out[i] = t
	}
	return OrderBy{terms: out}
}

// Terms returns a copy of the terms.
func (f OrderBy) Terms() []Term {
	return append([]Term(nil), f.terms...)
}

// Kind implements Filter.
func (f OrderBy) Kind() Kind { return KindOrderBy }

// Apply implements Filter.
func (f OrderBy) Apply(ctx *Context) error {
	terms := make([]string, 0, len(f.terms))
	for _, t := range f.terms {
		if err := validateField(t.Field); err != nil {
			return err
		}
		terms = append(terms, t.Field+" "+string(t.Direction))
	}
	e, err := ctx.Expr.OrderBy(terms...)
	if err != nil {
		return err
	}
	ctx.Expr = e
	return nil
}

// Parameters implements Filter.
func (f OrderBy) Parameters() ([]any, map[string]any) {
	return nil, nil
}

// CacheKey implements Filter.
func (f OrderBy) CacheKey() string {
	var b strings.Builder
	b.WriteString(KindOrderBy.String())
	for _, t := range f.terms {
		b.WriteByte(':')
		b.WriteString(t.Field)
		b.WriteByte(' ')
		b.WriteString(string(t.Direction))
	}
	return b.String()
}

func (OrderBy) sealed() {}
