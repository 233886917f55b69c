package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Collection is set membership: IN, NOT IN, ANY and NOT ANY.
//
// A nil set disables the filter. An empty set matches nothing for IN and ANY
// and everything for NOT IN and NOT ANY. ANY binds the whole set as one array
// parameter on dialects with arrays and expands to an IN list elsewhere.
type Collection struct {
	kind   Kind
	field  string
	values []any
	// array is the set as the caller passed it, bound by ANY on array dialects.
	array any
	name  string
}

func newCollection(kind Kind, role, field string, values []any, array any) Collection {
	return Collection{
		kind:   kind,
		field:  field,
		values: values,
		array:  array,
		name:   paramName(field, role, nextToken()),
	}
}

// NewIn matches rows whose field is in values.
func NewIn(field string, values []any) Collection {
	return newCollection(KindIn, "in", field, cloneValues(values), nil)
}

// NewNotIn matches rows whose field is not in values.
func NewNotIn(field string, values []any) Collection {
	return newCollection(KindNotIn, "not_in", field, cloneValues(values), nil)
}

// NewAny matches rows whose field equals any element of values.
func NewAny(field string, values []any) Collection {
	v := cloneValues(values)
	return newCollection(KindAny, "any", field, v, v)
}

// NewNotAny matches rows whose field equals no element of values.
func NewNotAny(field string, values []any) Collection {
	v := cloneValues(values)
	return newCollection(KindNotAny, "not_any", field, v, v)
}

// In is NewIn for a typed slice.
func In[T any](field string, values []T) Collection {
	return NewIn(field, toAny(values))
}

// NotIn is NewNotIn for a typed slice.
func NotIn[T any](field string, values []T) Collection {
	return NewNotIn(field, toAny(values))
}

// Any is NewAny for a typed slice; the typed slice is what gets bound as the array.
func Any[T any](field string, values []T) Collection {
	v := toAny(values)
	var array any
	if values != nil {
		array = append([]T{}, values...)
	}
	return newCollection(KindAny, "any", field, v, array)
}

// NotAny is NewNotAny for a typed slice.
func NotAny[T any](field string, values []T) Collection {
	v := toAny(values)
	var array any
	if values != nil {
		array = append([]T{}, values...)
	}
	return newCollection(KindNotAny, "not_any", field, v, array)
}

func toAny[T any](values []T) []any {
	if values == nil {
		return nil
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func cloneValues(values []any) []any {
	if values == nil {
		return nil
	}
	return append([]any{}, values...)
}

// Kind implements Filter.
func (f Collection) Kind() Kind { return f.kind }

// Field returns the filtered column.
func (f Collection) Field() string { return f.field }

func (f Collection) negated() bool {
	return f.kind == KindNotIn || f.kind == KindNotAny
}

func (f Collection) elementName(i int) string {
	return f.name + "_" + strconv.Itoa(i)
}

// Apply implements Filter.
func (f Collection) Apply(ctx *Context) error {
	if f.values == nil {
		return nil
	}
	if err := validateField(f.field); err != nil {
		return err
	}
	if len(f.values) == 0 {
		if f.negated() {
			return nil
		}
		return ctx.where("1 = 0")
	}

	if (f.kind == KindAny || f.kind == KindNotAny) && ctx.Dialect.SupportsArrays() {
		predicate := f.field + " = ANY(" + placeholder(f.name) + ")"
		if f.negated() {
			predicate = "NOT (" + predicate + ")"
		}
		if err := ctx.where(predicate); err != nil {
			return err
		}
		return ctx.bind(f.name, f.array)
	}

	refs := make([]string, len(f.values))
	for i := range f.values {
		refs[i] = placeholder(f.elementName(i))
	}
	op := " IN ("
	if f.negated() {
		op = " NOT IN ("
	}
	if err := ctx.where(f.field + op + strings.Join(refs, ", ") + ")"); err != nil {
		return err
	}
	for i, v := range f.values {
		if err := ctx.bind(f.elementName(i), v); err != nil {
			return err
		}
	}
	return nil
}

// Parameters implements Filter. ANY filters report the array form; on
// dialects without arrays Apply binds one "<name>_<i>" value per element.
func (f Collection) Parameters() ([]any, map[string]any) {
	if len(f.values) == 0 {
		return nil, nil
	}
	if f.kind == KindAny || f.kind == KindNotAny {
		return nil, map[string]any{f.name: f.array}
	}
	named := make(map[string]any, len(f.values))
	for i, v := range f.values {
		named[f.elementName(i)] = v
	}
	return nil, named
}

// CacheKey implements Filter.
func (f Collection) CacheKey() string {
	if f.values == nil {
		return fmt.Sprintf("%s:%s:nil", f.kind, f.field)
	}
	return fmt.Sprintf("%s:%s:%#v", f.kind, f.field, f.values)
}

func (Collection) sealed() {}
