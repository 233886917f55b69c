package executor

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/sqlkit/query/params"
)

// Error types for pipeline execution.
var (
	// ErrBatchExecution is returned when a pipeline stops on a failed operation.
	ErrBatchExecution = errors.New("batch execution failed")

	// ErrNativeBatchUnsupported is returned by a native batcher that cannot
	// run the given operations.
	ErrNativeBatchUnsupported = errors.New("native batch not supported")

	// ErrUnknownOperation is returned for an operation kind the pipeline does not know.
	ErrUnknownOperation = errors.New("unknown operation")
)

// Constraint violations reported by drivers. ClassifyError tags driver
// errors with them.
var (
	// ErrUniqueViolation is returned when a unique constraint is violated.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrNotNullViolation is returned when a not null constraint is violated.
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated.
	ErrCheckViolation = errors.New("check constraint violation")
)

// BatchError reports the operation a stop-on-error pipeline failed at,
// together with the results of the operations before it.
type BatchError struct {
	// Index is the position of the failed operation in the queue.
	Index int
	// Kind is the failed operation's kind.
	Kind Kind
	// Partial holds the results of operations 0..Index-1.
	Partial []*Result
	// Flushed counts the leading operations that ran in earlier
	// auto-flushes. Their work was committed unless the driver runs
	// inside a caller's transaction.
	Flushed int
	// Args and Batch are the parameters the failed operation was queued with.
	Args  params.Args
	Batch []params.Args
	// Err is the cause.
	Err error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("%s at operation %d (%s): %v", ErrBatchExecution, e.Index, e.Kind, e.Err)
}

// Unwrap returns ErrBatchExecution and the cause.
func (e *BatchError) Unwrap() []error {
	return []error{ErrBatchExecution, e.Err}
}

func newBatchError(index int, op Operation, partial []*Result, err error) *BatchError {
	return &BatchError{
		Index:   index,
		Kind:    op.Kind,
		Partial: partial,
		Args:    op.Args,
		Batch:   op.Batch,
		Err:     err,
	}
}

// taggedError adds a sentinel to an error without changing its message.
type taggedError struct {
	err error
	tag error
}

func (e *taggedError) Error() string { return e.err.Error() }

func (e *taggedError) Unwrap() []error { return []error{e.err, e.tag} }

// ClassifyError tags constraint violations from the postgres (pgx and
// lib/pq), mysql and sqlite drivers with ErrUniqueViolation,
// ErrForeignKeyViolation, ErrNotNullViolation or ErrCheckViolation. Other
// errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if tag := constraintOf(err); tag != nil && !errors.Is(err, tag) {
		return &taggedError{err: err, tag: tag}
	}
	return err
}

func constraintOf(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromSQLState(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromSQLState(string(pqErr.Code))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, 1586:
			return ErrUniqueViolation
		case 1216, 1217, 1451, 1452:
			return ErrForeignKeyViolation
		case 1048, 1364:
			return ErrNotNullViolation
		case 3819:
			return ErrCheckViolation
		}
		return nil
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return ErrUniqueViolation
		case sqlite3.ErrConstraintForeignKey:
			return ErrForeignKeyViolation
		case sqlite3.ErrConstraintNotNull:
			return ErrNotNullViolation
		case sqlite3.ErrConstraintCheck:
			return ErrCheckViolation
		}
	}
	return nil
}

func fromSQLState(code string) error {
	switch code {
	case pgerrcode.UniqueViolation:
		return ErrUniqueViolation
	case pgerrcode.ForeignKeyViolation:
		return ErrForeignKeyViolation
	case pgerrcode.NotNullViolation:
		return ErrNotNullViolation
	case pgerrcode.CheckViolation:
		return ErrCheckViolation
	default:
		return nil
	}
}
