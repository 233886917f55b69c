package filter

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/satishbabariya/sqlkit/query/params"
)

// Where adds a raw predicate.
//
// Positional placeholders in the predicate ("?", "$1", "%s", ":1") are
// renamed to synthesized names and bound from the positional arguments. Named
// placeholders keep their names; their values come from a single
// map[string]any argument or, without one, from the statement itself.
type Where struct {
	predicate string
	named     map[string]any
	err       error
}

// NewWhere returns a raw predicate filter.
func NewWhere(predicate string, args ...any) Where {
	f := Where{predicate: strings.TrimSpace(predicate)}
	if f.predicate == "" {
		f.err = fmt.Errorf("%w: empty predicate", ErrInvalidValue)
		return f
	}

	var (
		positional []any
		named      map[string]any
	)
	if len(args) == 1 {
		if m, ok := args[0].(map[string]any); ok {
			named = maps.Clone(m)
		}
	}
	if named == nil {
		positional = args
	}

	_, phs, err := params.Detect(f.predicate)
	if err != nil {
		f.err = err
		return f
	}

	base := paramName("", "where", nextToken())
	slot := func(i int) string { return base + "_" + strconv.Itoa(i) }

	var b strings.Builder
	last, next := 0, 0
	used := map[int]bool{}
	for _, ph := range phs {
		b.WriteString(f.predicate[last:ph.Start])
		last = ph.End

		switch {
		case ph.Style.Numbered():
			used[ph.Number-1] = true
			b.WriteString(placeholder(slot(ph.Number - 1)))
		case ph.Style.Positional():
			used[next] = true
			b.WriteString(placeholder(slot(next)))
			next++
		default:
			b.WriteString(placeholder(ph.Name))
		}
	}
	b.WriteString(f.predicate[last:])
	f.predicate = b.String()

	if len(used) != len(positional) {
		f.err = fmt.Errorf("%w: predicate %q has %d positional parameters, got %d values",
			ErrInvalidValue, predicate, len(used), len(positional))
		return f
	}
	if len(positional) > 0 {
		f.named = make(map[string]any, len(positional))
		for i, v := range positional {
			if !used[i] {
				f.err = fmt.Errorf("%w: predicate %q does not use parameter %d", ErrInvalidValue, predicate, i+1)
				return f
			}
			f.named[slot(i)] = v
		}
	}
	for name, v := range named {
		if f.named == nil {
			f.named = make(map[string]any, len(named))
		}
		f.named[name] = v
	}
	return f
}

// Predicate returns the rewritten predicate.
func (f Where) Predicate() string { return f.predicate }

// Kind implements Filter.
func (f Where) Kind() Kind { return KindWhere }

// Apply implements Filter.
func (f Where) Apply(ctx *Context) error {
	if f.err != nil {
		return f.err
	}
	if err := ctx.where(f.predicate); err != nil {
		return err
	}
	names := make([]string, 0, len(f.named))
	for name := range f.named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.bind(name, f.named[name]); err != nil {
			return err
		}
	}
	return nil
}

// Parameters implements Filter.
func (f Where) Parameters() ([]any, map[string]any) {
	return nil, maps.Clone(f.named)
}

// CacheKey implements Filter.
func (f Where) CacheKey() string {
	return fmt.Sprintf("%s:%s:%#v", KindWhere, f.predicate, f.named)
}

func (Where) sealed() {}
