package filter

import (
	"fmt"
)

// LimitOffset paginates a statement. Both bounds are bound as parameters.
type LimitOffset struct {
	limit      int64
	offset     int64
	limitName  string
	offsetName string
}

// NewLimitOffset returns a pagination filter.
func NewLimitOffset(limit, offset int64) LimitOffset {
	token := nextToken()
	return LimitOffset{
		limit:      limit,
		offset:     offset,
		limitName:  paramName("", "limit", token),
		offsetName: paramName("", "offset", token),
	}
}

// Limit returns the row limit.
func (f LimitOffset) Limit() int64 { return f.limit }

// Offset returns the number of skipped rows.
func (f LimitOffset) Offset() int64 { return f.offset }

// Kind implements Filter.
func (f LimitOffset) Kind() Kind { return KindLimitOffset }

// Apply implements Filter.
func (f LimitOffset) Apply(ctx *Context) error {
	if f.limit < 0 || f.offset < 0 {
		return fmt.Errorf("%w: limit %d offset %d", ErrInvalidValue, f.limit, f.offset)
	}
	e, err := ctx.Expr.Paginate(placeholder(f.limitName), placeholder(f.offsetName))
	if err != nil {
		return err
	}
	if err := ctx.bind(f.limitName, f.limit); err != nil {
		return err
	}
	if err := ctx.bind(f.offsetName, f.offset); err != nil {
		return err
	}
	ctx.Expr = e
	return nil
}

// Parameters implements Filter.
func (f LimitOffset) Parameters() ([]any, map[string]any) {
	return nil, map[string]any{f.limitName: f.limit, f.offsetName: f.offset}
}

// CacheKey implements Filter.
func (f LimitOffset) CacheKey() string {
	return fmt.Sprintf("%s:%d:%d", KindLimitOffset, f.limit, f.offset)
}

func (LimitOffset) sealed() {}
