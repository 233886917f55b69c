package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satishbabariya/sqlkit/internal/debug"
	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/expr"
	"github.com/satishbabariya/sqlkit/query/params"
)

// PgxDriver runs statements on a pgx connection pool. It batches whole
// pipelines natively with pgx.Batch.
type PgxDriver struct {
	pool *pgxpool.Pool
}

// NewPgxDriver returns a driver over pool.
func NewPgxDriver(pool *pgxpool.Pool) *PgxDriver {
	return &PgxDriver{pool: pool}
}

// OpenPgx connects a pool to dsn.
func OpenPgx(ctx context.Context, dsn string) (*PgxDriver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPgxDriver(pool), nil
}

// Pool returns the connection pool.
func (d *PgxDriver) Pool() *pgxpool.Pool { return d.pool }

// Close closes the pool.
func (d *PgxDriver) Close() { d.pool.Close() }

// Dialect implements Driver.
func (d *PgxDriver) Dialect() dialect.Dialect { return dialect.Postgres }

// PlaceholderStyle implements Driver.
func (d *PgxDriver) PlaceholderStyle() params.Style { return params.StyleNumeric }

// Acquire implements Driver.
func (d *PgxDriver) Acquire(ctx context.Context) (Conn, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

// ExecuteBatch implements NativeBatcher. All operations are sent in one
// round trip inside one transaction. Scripts and continue-on-error are not
// supported.
func (d *PgxDriver) ExecuteBatch(ctx context.Context, ops []Prepared, opts BatchOptions) ([]*Result, error) {
	if opts.ContinueOnError {
		return nil, fmt.Errorf("%w: continue on error", ErrNativeBatchUnsupported)
	}
	for _, op := range ops {
		if op.Operation.Kind == KindExecuteScript {
			return nil, fmt.Errorf("%w: scripts", ErrNativeBatchUnsupported)
		}
	}

	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel(opts.IsolationLevel)})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackTx(tx)

	batch := &pgx.Batch{}
	for _, op := range ops {
		c := op.Compiled
		if op.Operation.Kind == KindExecuteMany {
			for _, row := range c.Batch {
				batch.Queue(c.SQL, pgxArgs(row)...)
			}
			continue
		}
		batch.Queue(c.SQL, pgxArgs(c.Args)...)
	}

	results, err := readBatch(tx.SendBatch(ctx, batch), ops)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrBatchExecution, err)
	}
	return results, nil
}

func readBatch(br pgx.BatchResults, ops []Prepared) ([]*Result, error) {
	defer br.Close()

	results := make([]*Result, 0, len(ops))
	for i, op := range ops {
		res := &Result{Kind: op.Operation.Kind, SQL: op.Compiled.SQL}
		var err error
		switch op.Operation.Kind {
		case KindSelect:
			var rows pgx.Rows
			if rows, err = br.Query(); err == nil {
				err = collectRows(rows, res)
			}
		case KindExecuteMany:
			res.StatementsTotal = len(op.Compiled.Batch)
			for range op.Compiled.Batch {
				var tag pgconn.CommandTag
				if tag, err = br.Exec(); err != nil {
					break
				}
				res.RowsAffected += tag.RowsAffected()
				res.StatementsSucceeded++
			}
		default:
			var tag pgconn.CommandTag
			if tag, err = br.Exec(); err == nil {
				res.RowsAffected = tag.RowsAffected()
				res.StatementsTotal, res.StatementsSucceeded = 1, 1
			}
		}
		if err != nil {
			return nil, newBatchError(i, op.Operation, results, ClassifyError(err))
		}
		results = append(results, res)
	}
	return results, nil
}

func rollbackTx(tx pgx.Tx) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		debug.Warn("error while rolling back transaction", slog.Any("error", err))
	}
}

func isoLevel(level sql.IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case sql.LevelSerializable:
		return pgx.Serializable
	case sql.LevelRepeatableRead, sql.LevelSnapshot:
		return pgx.RepeatableRead
	case sql.LevelReadCommitted:
		return pgx.ReadCommitted
	case sql.LevelReadUncommitted:
		return pgx.ReadUncommitted
	default:
		return ""
	}
}

// pgxArgs passes named collections as pgx.NamedArgs for "@name" statements.
func pgxArgs(args params.Args) []any {
	if args.Shape() == params.ShapeNamed {
		return []any{pgx.NamedArgs(args.Map())}
	}
	return args.Values()
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type pgxConn struct {
	conn *pgxpool.Conn
	tx   pgx.Tx
}

func (c *pgxConn) q() pgxQuerier {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

func (c *pgxConn) InTransaction() bool {
	return c.tx != nil
}

func (c *pgxConn) Begin(ctx context.Context, isolation sql.IsolationLevel) error {
	if c.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := c.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel(isolation)})
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *pgxConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return errors.New("no transaction to commit")
	}
	err := c.tx.Commit(ctx)
	c.tx = nil
	return err
}

func (c *pgxConn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback(ctx)
	c.tx = nil
	return err
}

func (c *pgxConn) Execute(ctx context.Context, query string, args params.Args) (*Result, error) {
	tag, err := c.q().Exec(ctx, query, pgxArgs(args)...)
	if err != nil {
		return nil, ClassifyError(err)
	}
	return &Result{RowsAffected: tag.RowsAffected(), StatementsTotal: 1, StatementsSucceeded: 1}, nil
}

func (c *pgxConn) ExecuteMany(ctx context.Context, query string, batch []params.Args) (*Result, error) {
	b := &pgx.Batch{}
	for _, row := range batch {
		b.Queue(query, pgxArgs(row)...)
	}
	br := c.q().SendBatch(ctx, b)
	defer br.Close()

	result := &Result{StatementsTotal: len(batch)}
	for i := range batch {
		tag, err := br.Exec()
		if err != nil {
			return nil, fmt.Errorf("batch row %d: %w", i, ClassifyError(err))
		}
		result.RowsAffected += tag.RowsAffected()
		result.StatementsSucceeded++
	}
	return result, nil
}

func (c *pgxConn) ExecuteScript(ctx context.Context, script string) (*Result, error) {
	stmts, err := expr.SplitScript(script, dialect.Postgres)
	if err != nil {
		return nil, err
	}
	result := &Result{StatementsTotal: len(stmts)}
	for i, s := range stmts {
		tag, err := c.q().Exec(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("script statement %d: %w", i, ClassifyError(err))
		}
		result.RowsAffected += tag.RowsAffected()
		result.StatementsSucceeded++
	}
	return result, nil
}

func (c *pgxConn) Select(ctx context.Context, query string, args params.Args) (*Result, error) {
	rows, err := c.q().Query(ctx, query, pgxArgs(args)...)
	if err != nil {
		return nil, ClassifyError(err)
	}
	res := &Result{}
	if err := collectRows(rows, res); err != nil {
		return nil, err
	}
	return res, nil
}

func collectRows(rows pgx.Rows, res *Result) error {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res.Columns = make([]string, len(fields))
	for i, f := range fields {
		res.Columns[i] = f.Name
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[res.Columns[i]] = v
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return ClassifyError(err)
	}
	res.StatementsTotal, res.StatementsSucceeded = 1, 1
	return nil
}

func (c *pgxConn) Close() error {
	defer c.conn.Release()
	if c.tx != nil {
		rollbackTx(c.tx)
		c.tx = nil
	}
	return nil
}

func (c *pgxConn) Savepoint(ctx context.Context, name string) error {
	_, err := c.q().Exec(ctx, "SAVEPOINT "+name)
	return err
}

func (c *pgxConn) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := c.q().Exec(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

func (c *pgxConn) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := c.q().Exec(ctx, "ROLLBACK TO SAVEPOINT "+name)
	return err
}
