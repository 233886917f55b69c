package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/lib/pq"

	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/expr"
	"github.com/satishbabariya/sqlkit/query/params"
)

// SQLDriver runs statements through database/sql. Postgres uses lib/pq
// ("postgres"), MySQL go-sql-driver/mysql ("mysql") and SQLite
// mattn/go-sqlite3 ("sqlite3").
type SQLDriver struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect dialect.Dialect
	style   params.Style
}

// NewSQLDriver returns a driver over a connection pool. Every pipeline run
// takes its own connection from db.
func NewSQLDriver(db *sql.DB, d dialect.Dialect) *SQLDriver {
	return &SQLDriver{db: db, dialect: d, style: d.PlaceholderStyle()}
}

// NewSQLTxDriver returns a driver bound to a transaction the caller owns.
// Pipelines run inside it and never commit or roll it back.
func NewSQLTxDriver(tx *sql.Tx, d dialect.Dialect) *SQLDriver {
	return &SQLDriver{tx: tx, dialect: d, style: d.PlaceholderStyle()}
}

// Open opens a database with a registered database/sql driver and checks
// that it is reachable.
func Open(ctx context.Context, driverName, dsn string) (*SQLDriver, error) {
	d, err := dialect.Parse(driverName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewSQLDriver(db, d), nil
}

// DB returns the connection pool, nil for transaction drivers.
func (d *SQLDriver) DB() *sql.DB { return d.db }

// Close closes the connection pool.
func (d *SQLDriver) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Dialect implements Driver.
func (d *SQLDriver) Dialect() dialect.Dialect { return d.dialect }

// PlaceholderStyle implements Driver.
func (d *SQLDriver) PlaceholderStyle() params.Style { return d.style }

// Acquire implements Driver.
func (d *SQLDriver) Acquire(ctx context.Context) (Conn, error) {
	if d.tx != nil {
		return &sqlConn{dialect: d.dialect, tx: d.tx, borrowed: true}, nil
	}
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlConn{dialect: d.dialect, conn: conn}, nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// sqlConn is a pooled connection, or the caller's transaction when borrowed.
type sqlConn struct {
	dialect  dialect.Dialect
	conn     *sql.Conn
	tx       *sql.Tx
	borrowed bool
}

func (c *sqlConn) q() execQuerier {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

func (c *sqlConn) InTransaction() bool {
	return c.tx != nil
}

func (c *sqlConn) Begin(ctx context.Context, isolation sql.IsolationLevel) error {
	if c.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *sqlConn) Commit(ctx context.Context) error {
	if c.tx == nil || c.borrowed {
		return errors.New("no transaction to commit")
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

func (c *sqlConn) Rollback(ctx context.Context) error {
	if c.tx == nil || c.borrowed {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

func (c *sqlConn) Execute(ctx context.Context, query string, args params.Args) (*Result, error) {
	res, err := c.q().ExecContext(ctx, query, c.driverArgs(args)...)
	if err != nil {
		return nil, ClassifyError(err)
	}
	return &Result{RowsAffected: rowsAffected(res), StatementsTotal: 1, StatementsSucceeded: 1}, nil
}

func (c *sqlConn) ExecuteMany(ctx context.Context, query string, batch []params.Args) (*Result, error) {
	stmt, err := c.q().PrepareContext(ctx, query)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer stmt.Close()

	result := &Result{StatementsTotal: len(batch)}
	for i, row := range batch {
		res, err := stmt.ExecContext(ctx, c.driverArgs(row)...)
		if err != nil {
			return nil, fmt.Errorf("batch row %d: %w", i, ClassifyError(err))
		}
		result.RowsAffected += rowsAffected(res)
		result.StatementsSucceeded++
	}
	return result, nil
}

func (c *sqlConn) ExecuteScript(ctx context.Context, script string) (*Result, error) {
	stmts, err := expr.SplitScript(script, c.dialect)
	if err != nil {
		return nil, err
	}
	result := &Result{StatementsTotal: len(stmts)}
	for i, s := range stmts {
		res, err := c.q().ExecContext(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("script statement %d: %w", i, ClassifyError(err))
		}
		result.RowsAffected += rowsAffected(res)
		result.StatementsSucceeded++
	}
	return result, nil
}

func (c *sqlConn) Select(ctx context.Context, query string, args params.Args) (*Result, error) {
	rows, err := c.q().QueryContext(ctx, query, c.driverArgs(args)...)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	result := &Result{Columns: columns, StatementsTotal: 1, StatementsSucceeded: 1}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ClassifyError(err)
	}
	return result, nil
}

func (c *sqlConn) Close() error {
	if c.borrowed {
		return nil
	}
	var err error
	if c.tx != nil {
		err = c.tx.Rollback()
		c.tx = nil
	}
	return errors.Join(err, c.conn.Close())
}

func (c *sqlConn) Savepoint(ctx context.Context, name string) error {
	stmt := "SAVEPOINT " + name
	if c.dialect == dialect.SQLServer {
		stmt = "SAVE TRANSACTION " + name
	}
	_, err := c.q().ExecContext(ctx, stmt)
	return err
}

func (c *sqlConn) ReleaseSavepoint(ctx context.Context, name string) error {
	if c.dialect == dialect.SQLServer || c.dialect == dialect.Oracle {
		return nil
	}
	_, err := c.q().ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (c *sqlConn) RollbackToSavepoint(ctx context.Context, name string) error {
	stmt := "ROLLBACK TO SAVEPOINT " + name
	if c.dialect == dialect.SQLServer {
		stmt = "ROLLBACK TRANSACTION " + name
	}
	_, err := c.q().ExecContext(ctx, stmt)
	return err
}

// driverArgs returns args for database/sql. On array dialects slices are
// wrapped with pq.Array so lib/pq can encode them.
func (c *sqlConn) driverArgs(args params.Args) []any {
	values := args.DriverArgs()
	if !c.dialect.SupportsArrays() {
		return values
	}
	for i, v := range values {
		if named, ok := v.(sql.NamedArg); ok {
			named.Value = arrayArg(named.Value)
			values[i] = named
			continue
		}
		values[i] = arrayArg(v)
	}
	return values
}

func arrayArg(v any) any {
	if v == nil {
		return v
	}
	if _, ok := v.([]byte); ok {
		return v
	}
	if reflect.TypeOf(v).Kind() == reflect.Slice {
		return pq.Array(v)
	}
	return v
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
