package expr

import (
	"strings"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
	"github.com/satishbabariya/sqlkit/query/dialect"
)

// SplitScript splits a multi-statement script at top-level semicolons.
// Statements that contain nothing but comments are dropped.
func SplitScript(script string, d dialect.Dialect) ([]string, error) {
	l, err := scanLayout(script, d)
	if err != nil {
		return nil, err
	}

	var stmts []string
	start := 0
	for _, end := range append(l.semis, len(script)) {
		stmt := strings.TrimSpace(script[start:end])
		start = end + 1
		if stmt == "" || commentOnly(stmt, d) {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func commentOnly(s string, d dialect.Dialect) bool {
	segs, err := sqllex.Segments(s, d.LexOptions())
	if err != nil {
		return false
	}
	for _, seg := range segs {
		switch seg.Kind {
		case sqllex.LineComment, sqllex.BlockComment:
		case sqllex.Text:
			if strings.TrimSpace(s[seg.Start:seg.End]) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
