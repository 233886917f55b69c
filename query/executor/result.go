package executor

import (
	"fmt"

	"github.com/satishbabariya/sqlkit/query/params"
)

// Result is the outcome of one operation.
type Result struct {
	// Kind is the operation kind.
	Kind Kind

	// SQL is the text that was sent to the driver.
	SQL string

	// Columns and Rows hold the rows of a select.
	Columns []string
	Rows    []map[string]any

	// RowsAffected is the number of rows changed.
	RowsAffected int64

	// StatementsTotal and StatementsSucceeded count the statements of a
	// script or the rows of an execute-many.
	StatementsTotal     int
	StatementsSucceeded int

	// Err is set on error results recorded in continue-on-error mode.
	Err error

	// Args and Batch are the parameters the operation was queued with.
	Args  params.Args
	Batch []params.Args
}

// Failed reports whether the result records an error.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// One returns the only row of a select.
func (r *Result) One() (map[string]any, error) {
	if len(r.Rows) != 1 {
		return nil, fmt.Errorf("expected 1 row, got %d", len(r.Rows))
	}
	return r.Rows[0], nil
}

// Scalar returns the first column of the only row.
func (r *Result) Scalar() (any, error) {
	row, err := r.One()
	if err != nil {
		return nil, err
	}
	if len(r.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}
	return row[r.Columns[0]], nil
}

func errorResult(op Operation, err error) *Result {
	return &Result{
		Kind:  op.Kind,
		Err:   err,
		Args:  op.Args,
		Batch: op.Batch,
	}
}
