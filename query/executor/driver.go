// Package executor runs statements against database drivers and batches them
// into pipelines.
package executor

import (
	"context"
	"database/sql"

	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/params"
	"github.com/satishbabariya/sqlkit/query/statement"
)

// Driver hands out connections.
type Driver interface {
	// Dialect returns the SQL dialect of the database.
	Dialect() dialect.Dialect
	// PlaceholderStyle returns the style statements are compiled to.
	PlaceholderStyle() params.Style
	// Acquire returns a connection. The caller closes it.
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is one connection, possibly inside a transaction.
type Conn interface {
	// InTransaction reports whether a transaction is open on the connection.
	InTransaction() bool
	// Begin starts a transaction.
	Begin(ctx context.Context, isolation sql.IsolationLevel) error
	// Commit commits the transaction started by Begin.
	Commit(ctx context.Context) error
	// Rollback rolls back the transaction started by Begin.
	Rollback(ctx context.Context) error

	// Execute runs a statement once.
	Execute(ctx context.Context, query string, args params.Args) (*Result, error)
	// ExecuteMany runs a statement once per batch row.
	ExecuteMany(ctx context.Context, query string, batch []params.Args) (*Result, error)
	// ExecuteScript runs a multi-statement script.
	ExecuteScript(ctx context.Context, script string) (*Result, error)
	// Select runs a query and collects its rows.
	Select(ctx context.Context, query string, args params.Args) (*Result, error)

	// Close releases the connection.
	Close() error
}

// Savepointer is implemented by connections that support savepoints inside
// a transaction.
type Savepointer interface {
	Savepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
}

// BatchOptions is the pipeline policy handed to a native batcher.
type BatchOptions struct {
	ContinueOnError bool
	IsolationLevel  sql.IsolationLevel
}

// Prepared is an operation compiled for the driver.
type Prepared struct {
	Operation Operation
	Compiled  statement.Compiled
}

// NativeBatcher is implemented by drivers that execute a whole pipeline
// themselves. A batcher that cannot honor ops or opts returns
// ErrNativeBatchUnsupported and the pipeline runs the operations itself.
type NativeBatcher interface {
	ExecuteBatch(ctx context.Context, ops []Prepared, opts BatchOptions) ([]*Result, error)
}
