package expr

import (
	"fmt"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/params"
)

// TiDBService checks MySQL-family statements with the TiDB parser before
// handing them to the wrapped service. Other dialects go straight through.
type TiDBService struct {
	base Service

	mu     sync.Mutex
	parser *parser.Parser
}

// NewTiDBService wraps base.
func NewTiDBService(base Service) *TiDBService {
	return &TiDBService{base: base}
}

// Parse implements Service.
func (s *TiDBService) Parse(sql string, d dialect.Dialect) (Expression, error) {
	e, err := s.base.Parse(sql, d)
	if err != nil || !d.MySQLFamily() {
		return e, err
	}

	kind, err := s.check(sql, d)
	if err != nil {
		return nil, err
	}
	// Parenthesized selects are opaque to the clause splitter; the grammar
	// knows they are queries, so they can at least be wrapped.
	if q, ok := e.(*Query); ok && q.kind == KindOther && (kind == KindSelect || kind == KindCompound) {
		c := *q
		c.kind = KindCompound
		c.wrappable = true
		return &c, nil
	}
	return e, nil
}

// Render implements Service.
func (s *TiDBService) Render(e Expression, d dialect.Dialect, pretty bool) (string, error) {
	return s.base.Render(e, d, pretty)
}

// check parses sql with the TiDB grammar. Placeholders are rewritten to the
// ? markers the grammar accepts.
func (s *TiDBService) check(sql string, d dialect.Dialect) (Kind, error) {
	text := sql
	if tr, err := params.Convert(sql, params.StyleQMark, params.WithAllowMixed(), params.WithLexOptions(d.LexOptions())); err == nil {
		text = tr.SQL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parser == nil {
		s.parser = parser.New()
	}
	stmts, _, err := s.parser.ParseSQL(text)
	if err != nil {
		return KindOther, &ParseError{SQL: sql, Dialect: d, Pos: -1, Msg: err.Error(), Err: err}
	}
	if len(stmts) != 1 {
		return KindOther, &ParseError{SQL: sql, Dialect: d, Pos: -1, Msg: fmt.Sprintf("expected one statement, got %d", len(stmts))}
	}
	return kindOf(stmts[0]), nil
}

func kindOf(stmt ast.StmtNode) Kind {
	switch stmt.(type) {
	case *ast.SelectStmt:
		return KindSelect
	case *ast.SetOprStmt:
		return KindCompound
	case *ast.InsertStmt:
		return KindInsert
	case *ast.UpdateStmt:
		return KindUpdate
	case *ast.DeleteStmt:
		return KindDelete
	default:
		return KindOther
	}
}
