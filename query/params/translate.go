package params

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
)

// Translation is the result of rewriting a statement into another placeholder
// style. It remembers enough to bind values and to restore the original text.
type Translation struct {
	// SQL is the rewritten statement.
	SQL string
	// Source is the detected style of the input, StyleNone without placeholders.
	Source Style
	// Target is the style SQL is written in.
	Target Style

	original     string
	placeholders []Placeholder
	rendered     []span
	slots        []string
}

type span struct {
	start, end int
}

// Convert rewrites every placeholder of q into target.
//
// Positional slot i is named param_<i> in named styles and numbered i+1 in
// numbered styles. Names without a slot number get the next free numbers in
// order of first appearance.
func Convert(q string, target Style, opts ...Option) (*Translation, error) {
	if target == StyleNone {
		return nil, fmt.Errorf("convert: no target style")
	}
	source, phs, err := Detect(q, opts...)
	if err != nil {
		return nil, err
	}

	names := canonicalNames(phs)
	t := &Translation{
		Source:       source,
		Target:       target,
		original:     q,
		placeholders: phs,
		rendered:     make([]span, len(phs)),
	}

	var numbers map[string]int
	if target.Numbered() {
		numbers, t.slots = number(names)
	} else if !target.Positional() {
		t.slots = unique(names)
	} else {
		t.slots = names
	}

	var b strings.Builder
	b.Grow(len(q) + len(phs)*4)
	last := 0
	for i, ph := range phs {
		b.WriteString(q[last:ph.Start])
		start := b.Len()
		text := target.render(numbers[names[i]], names[i])
		if out := b.String(); out != "" && joinsBefore(out[len(out)-1], text) {
			b.WriteByte(' ')
		}
		b.WriteString(text)
		if ph.End < len(q) && joinsAfter(text, q[ph.End]) {
			b.WriteByte(' ')
		}
		t.rendered[i] = span{start: start, end: b.Len()}
		last = ph.End
	}
	b.WriteString(q[last:])
	t.SQL = b.String()

	return t, nil
}

// joinsBefore reports whether text written right after prev would no longer
// scan as a placeholder: arr[$1:$2] must not become arr[:param_0::param_1].
func joinsBefore(prev byte, text string) bool {
	switch text[0] {
	case ':':
		return prev == ':' || sqllex.IsIdentByte(prev)
	case '$', '@':
		return sqllex.IsIdentByte(prev)
	}
	return false
}

// joinsAfter reports whether text would run into the identifier byte next.
func joinsAfter(text string, next byte) bool {
	return text != "?" && text != "%s" && sqllex.IsIdentByte(next)
}

// canonicalNames names every placeholder occurrence.
func canonicalNames(phs []Placeholder) []string {
	names := make([]string, len(phs))
	next := 0
	for i, ph := range phs {
		switch {
		case ph.Style.Numbered():
			names[i] = SlotName(ph.Number - 1)
		case ph.Style.Positional():
			names[i] = SlotName(next)
			next++
		default:
			names[i] = ph.Name
		}
	}
	return names
}

// number assigns slot numbers. The returned slot list is indexed by number-1.
// Slot names above MaxSlots are numbered like any other name.
func number(names []string) (map[string]int, []string) {
	numbers := make(map[string]int)
	maxSlot := 0
	for _, name := range names {
		if i, ok := slotIndex(name); ok && i < MaxSlots {
			numbers[name] = i + 1
			maxSlot = max(maxSlot, i+1)
		}
	}
	next := maxSlot
	for _, name := range names {
		if _, ok := numbers[name]; !ok {
			next++
			numbers[name] = next
		}
	}
	slots := make([]string, next)
	for k := range slots {
		slots[k] = SlotName(k)
	}
	for name, n := range numbers {
		slots[n-1] = name
	}
	return numbers, slots
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Placeholders returns the placeholders of the original text.
func (t *Translation) Placeholders() []Placeholder {
	return append([]Placeholder(nil), t.placeholders...)
}

// Names returns the parameter names in binding order: one per value for
// positional targets, one per distinct name for named targets.
func (t *Translation) Names() []string {
	return append([]string(nil), t.slots...)
}

// Identity reports whether values can be passed through without remapping:
// slot i of a positional target is positional value i, and a named target
// only uses caller-supplied names.
func (t *Translation) Identity() bool {
	if t.Target.Positional() {
		for i, name := range t.slots {
			if name != SlotName(i) {
				return false
			}
		}
		return true
	}
	for _, name := range t.slots {
		if _, ok := slotIndex(name); ok {
			return false
		}
	}
	return true
}

// Bind collects the values of the translated slots. Positional targets get a
// positional collection, named targets a named one. Names lookup cannot
// resolve are returned in binding order and bound to nil.
func (t *Translation) Bind(lookup func(name string) (any, bool)) (Args, []string) {
	var missing []string
	resolve := func(name string) any {
		v, ok := lookup(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	}

	if t.Target.Positional() {
		values := make([]any, len(t.slots))
		for i, name := range t.slots {
			values[i] = resolve(name)
		}
		return Args{shape: ShapePositional, list: values}, missing
	}

	named := make(map[string]any, len(t.slots))
	for _, name := range t.slots {
		named[name] = resolve(name)
	}
	return Args{shape: ShapeNamed, named: named}, missing
}

// Revert re-renders the original placeholder text.
func (t *Translation) Revert() string {
	var b strings.Builder
	b.Grow(len(t.original))
	last := 0
	for i, sp := range t.rendered {
		b.WriteString(t.SQL[last:sp.start])
		b.WriteString(t.placeholders[i].Text)
		last = sp.end
	}
	b.WriteString(t.SQL[last:])
	return b.String()
}
