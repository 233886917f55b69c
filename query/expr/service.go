package expr

import (
	"github.com/satishbabariya/sqlkit/query/dialect"
)

// BuiltinService is the clause-level Service.
type BuiltinService struct{}

// NewService returns the built-in service.
func NewService() *BuiltinService {
	return &BuiltinService{}
}

// Parse implements Service.
func (s *BuiltinService) Parse(sql string, d dialect.Dialect) (Expression, error) {
	q, err := parse(sql, d)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Render implements Service.
func (s *BuiltinService) Render(e Expression, d dialect.Dialect, pretty bool) (string, error) {
	q, ok := e.(*Query)
	if !ok {
		return "", ErrForeignExpression
	}
	return q.render(d, pretty), nil
}
