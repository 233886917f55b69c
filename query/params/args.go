package params

import (
	"database/sql"
	"maps"
	"slices"
)

// Shape records how parameters were supplied.
type Shape int

const (
	// ShapeEmpty means no parameters.
	ShapeEmpty Shape = iota
	// ShapePositional is an ordered list.
	ShapePositional
	// ShapeNamed is a name to value map.
	ShapeNamed
)

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapePositional:
		return "positional"
	case ShapeNamed:
		return "named"
	default:
		return "empty"
	}
}

// Args is an immutable parameter collection with a fixed shape.
type Args struct {
	shape Shape
	list  []any
	named map[string]any
}

// None returns an empty collection.
func None() Args {
	return Args{}
}

// Positional returns an ordered collection. Calling it with no values yields
// an empty positional collection, not ShapeEmpty.
func Positional(values ...any) Args {
	return Args{shape: ShapePositional, list: slices.Clone(values)}
}

// Named returns a name to value collection.
func Named(values map[string]any) Args {
	return Args{shape: ShapeNamed, named: maps.Clone(values)}
}

// Shape returns the recorded shape.
func (a Args) Shape() Shape {
	return a.shape
}

// Len returns the number of values.
func (a Args) Len() int {
	if a.shape == ShapeNamed {
		return len(a.named)
	}
	return len(a.list)
}

// Values returns a copy of the positional values.
func (a Args) Values() []any {
	return slices.Clone(a.list)
}

// Map returns a copy of the named values.
func (a Args) Map() map[string]any {
	return maps.Clone(a.named)
}

// Names returns the named keys in sorted order.
func (a Args) Names() []string {
	return slices.Sorted(maps.Keys(a.named))
}

// Lookup resolves a parameter by name. Positional values answer to their
// slot names (param_0, param_1, ...).
func (a Args) Lookup(name string) (any, bool) {
	switch a.shape {
	case ShapeNamed:
		v, ok := a.named[name]
		return v, ok
	case ShapePositional:
		i, ok := slotIndex(name)
		if !ok || i >= len(a.list) {
			return nil, false
		}
		return a.list[i], true
	default:
		return nil, false
	}
}

// DriverArgs returns the values in the form database/sql expects. Named
// values become sql.NamedArg in name order.
func (a Args) DriverArgs() []any {
	switch a.shape {
	case ShapePositional:
		return slices.Clone(a.list)
	case ShapeNamed:
		out := make([]any, 0, len(a.named))
		for _, name := range a.Names() {
			out = append(out, sql.Named(name, a.named[name]))
		}
		return out
	default:
		return nil
	}
}
