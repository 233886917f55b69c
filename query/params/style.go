// Package params detects, rewrites and binds SQL placeholder styles.
//
// Every driver has an opinion about how a bound parameter is written in SQL
// text: "?" for MySQL and SQLite, "$1" for PostgreSQL, ":name" for Oracle,
// "@name" for SQL Server and so on. The package scans statements for all of
// them, converts between them and maps a caller's arguments onto the
// converted slots.
package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Style is a placeholder convention.
type Style int

const (
	// StyleNone means "no preference"; compilation picks a style.
	StyleNone Style = iota
	// StyleQMark is the positional "?" marker.
	StyleQMark
	// StyleNumeric is the numbered "$1" marker.
	StyleNumeric
	// StyleNamedColon is the ":name" marker.
	StyleNamedColon
	// StylePositionalColon is the numbered ":1" marker.
	StylePositionalColon
	// StyleNamedAt is the "@name" marker.
	StyleNamedAt
	// StyleNamedDollar is the "$name" marker.
	StyleNamedDollar
	// StylePyformatNamed is the "%(name)s" marker.
	StylePyformatNamed
	// StylePyformatPositional is the positional "%s" marker.
	StylePyformatPositional
)

// Styles lists every concrete style.
var Styles = []Style{
	StyleQMark,
	StyleNumeric,
	StyleNamedColon,
	StylePositionalColon,
	StyleNamedAt,
	StyleNamedDollar,
	StylePyformatNamed,
	StylePyformatPositional,
}

var styleNames = map[Style]string{
	StyleNone:               "none",
	StyleQMark:              "qmark",
	StyleNumeric:            "numeric",
	StyleNamedColon:         "named_colon",
	StylePositionalColon:    "positional_colon",
	StyleNamedAt:            "named_at",
	StyleNamedDollar:        "named_dollar",
	StylePyformatNamed:      "pyformat_named",
	StylePyformatPositional: "pyformat_positional",
}

// String returns the style name.
func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return "Style(" + strconv.Itoa(int(s)) + ")"
}

// ParseStyle resolves a style name. The placeholder itself ("?", "$1",
// ":name", ...) is accepted as an alias.
func ParseStyle(name string) (Style, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for style, styleName := range styleNames {
		if n == styleName {
			return style, nil
		}
	}
	switch n {
	case "", "default":
		return StyleNone, nil
	case "?", "positional":
		return StyleQMark, nil
	case "$1", "dollar":
		return StyleNumeric, nil
	case ":name", "named", "colon":
		return StyleNamedColon, nil
	case ":1":
		return StylePositionalColon, nil
	case "@name", "at":
		return StyleNamedAt, nil
	case "$name":
		return StyleNamedDollar, nil
	case "%(name)s", "pyformat":
		return StylePyformatNamed, nil
	case "%s", "format":
		return StylePyformatPositional, nil
	}
	return StyleNone, fmt.Errorf("unknown placeholder style %q", name)
}

// Positional reports whether the style binds by position. Positional styles
// are bound from an ordered list, the others from a name map.
func (s Style) Positional() bool {
	switch s {
	case StyleQMark, StyleNumeric, StylePositionalColon, StylePyformatPositional:
		return true
	default:
		return false
	}
}

// Numbered reports whether each placeholder carries its own slot number.
func (s Style) Numbered() bool {
	return s == StyleNumeric || s == StylePositionalColon
}

// render writes the placeholder text for a slot. number is one based and only
// used by numbered styles; name is only used by named styles.
func (s Style) render(number int, name string) string {
	switch s {
	case StyleQMark:
		return "?"
	case StyleNumeric:
		return "$" + strconv.Itoa(number)
	case StylePositionalColon:
		return ":" + strconv.Itoa(number)
	case StyleNamedColon:
		return ":" + name
	case StyleNamedAt:
		return "@" + name
	case StyleNamedDollar:
		return "$" + name
	case StylePyformatNamed:
		return "%(" + name + ")s"
	case StylePyformatPositional:
		return "%s"
	default:
		return "?"
	}
}

// SlotName is the name a positional slot takes in named styles.
func SlotName(index int) string {
	return slotPrefix + strconv.Itoa(index)
}

const slotPrefix = "param_"

// slotIndex reverses SlotName.
func slotIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, slotPrefix) {
		return 0, false
	}
	digits := name[len(slotPrefix):]
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(digits)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
