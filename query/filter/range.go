package filter

import (
	"fmt"
	"time"
)

// BeforeAfter limits a timestamp column to a window. NewBeforeAfter uses
// strict bounds, NewOnBeforeAfter inclusive ones. A nil bound is left out.
type BeforeAfter struct {
	field      string
	before     *time.Time
	after      *time.Time
	inclusive  bool
	beforeName string
	afterName  string
}

// NewBeforeAfter returns field < before AND field > after.
func NewBeforeAfter(field string, before, after *time.Time) BeforeAfter {
	token := nextToken()
	return BeforeAfter{
		field:      field,
		before:     copyTime(before),
		after:      copyTime(after),
		beforeName: paramName(field, "before", token),
		afterName:  paramName(field, "after", token),
	}
}

// NewOnBeforeAfter returns field <= before AND field >= after.
func NewOnBeforeAfter(field string, onOrBefore, onOrAfter *time.Time) BeforeAfter {
	token := nextToken()
	return BeforeAfter{
		field:      field,
		before:     copyTime(onOrBefore),
		after:      copyTime(onOrAfter),
		inclusive:  true,
		beforeName: paramName(field, "on_or_before", token),
		afterName:  paramName(field, "on_or_after", token),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Kind implements Filter.
func (f BeforeAfter) Kind() Kind {
	if f.inclusive {
		return KindOnBeforeAfter
	}
	return KindBeforeAfter
}

// Apply implements Filter.
func (f BeforeAfter) Apply(ctx *Context) error {
	if f.before == nil && f.after == nil {
		return nil
	}
	if err := validateField(f.field); err != nil {
		return err
	}
	lt, gt := "<", ">"
	if f.inclusive {
		lt, gt = "<=", ">="
	}
	if f.before != nil {
		if err := ctx.where(f.field + " " + lt + " " + placeholder(f.beforeName)); err != nil {
			return err
		}
		if err := ctx.bind(f.beforeName, *f.before); err != nil {
			return err
		}
	}
	if f.after != nil {
		if err := ctx.where(f.field + " " + gt + " " + placeholder(f.afterName)); err != nil {
			return err
		}
		if err := ctx.bind(f.afterName, *f.after); err != nil {
			return err
		}
	}
	return nil
}

// Parameters implements Filter.
func (f BeforeAfter) Parameters() ([]any, map[string]any) {
	named := map[string]any{}
	if f.before != nil {
		named[f.beforeName] = *f.before
	}
	if f.after != nil {
		named[f.afterName] = *f.after
	}
	return nil, named
}

// CacheKey implements Filter.
func (f BeforeAfter) CacheKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", f.Kind(), f.field, formatBound(f.before), formatBound(f.after))
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339Nano)
}

func (BeforeAfter) sealed() {}
