package filter

import (
	"fmt"
	"strings"
)

// Search matches rows where any of the fields contains a value. The negated
// form matches rows where none of them does. All fields share one "%value%"
// parameter.
type Search struct {
	fields     []string
	value      string
	ignoreCase bool
	negate     bool
	name       string
}

func newSearch(fields []string, value string, ignoreCase, negate bool) Search {
	base := ""
	if len(fields) == 1 {
		base = fields[0]
	}
	role := "search"
	if negate {
		role = "not_search"
	}
	return Search{
		fields:     append([]string(nil), fields...),
		value:      value,
		ignoreCase: ignoreCase,
		negate:     negate,
		name:       paramName(base, role, nextToken()),
	}
}

// NewSearch searches one field.
func NewSearch(field, value string, ignoreCase bool) Search {
	return newSearch([]string{field}, value, ignoreCase, false)
}

// NewSearchFields searches several fields; a match in any one is enough.
func NewSearchFields(fields []string, value string, ignoreCase bool) Search {
	return newSearch(fields, value, ignoreCase, false)
}

// NewNotInSearch excludes rows where any of the fields contains value.
func NewNotInSearch(fields []string, value string, ignoreCase bool) Search {
	return newSearch(fields, value, ignoreCase, true)
}

// Kind implements Filter.
func (f Search) Kind() Kind {
	if f.negate {
		return KindNotInSearch
	}
	return KindSearch
}

func (f Search) pattern() string {
	return "%" + f.value + "%"
}

// Apply implements Filter.
func (f Search) Apply(ctx *Context) error {
	if f.value == "" {
		return nil
	}
	if len(f.fields) == 0 {
		return fmt.Errorf("%w: search without fields", ErrInvalidField)
	}

	ref := placeholder(f.name)
	conds := make([]string, len(f.fields))
	for i, field := range f.fields {
		if err := validateField(field); err != nil {
			return err
		}
		conds[i] = f.condition(ctx, field, ref)
	}

	var predicate string
	switch {
	case len(conds) == 1:
		predicate = conds[0]
	case f.negate:
		predicate = strings.Join(conds, " AND ")
	default:
		predicate = "(" + strings.Join(conds, " OR ") + ")"
	}
	if err := ctx.where(predicate); err != nil {
		return err
	}
	return ctx.bind(f.name, f.pattern())
}

func (f Search) condition(ctx *Context, field, ref string) string {
	like := "LIKE"
	if f.negate {
		like = "NOT LIKE"
	}
	if !f.ignoreCase {
		return field + " " + like + " " + ref
	}
	if ctx.Dialect.SupportsILike() {
		return field + " " + strings.Replace(like, "LIKE", "ILIKE", 1) + " " + ref
	}
	return "LOWER(" + field + ") " + like + " LOWER(" + ref + ")"
}

// Parameters implements Filter.
func (f Search) Parameters() ([]any, map[string]any) {
	if f.value == "" {
		return nil, nil
	}
	return nil, map[string]any{f.name: f.pattern()}
}

// CacheKey implements Filter.
func (f Search) CacheKey() string {
	return fmt.Sprintf("%s:%s:%q:%t", f.Kind(), strings.Join(f.fields, ","), f.value, f.ignoreCase)
}

func (Search) sealed() {}
