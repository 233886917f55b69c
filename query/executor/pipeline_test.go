package executor

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/filter"
	"github.com/satishbabariya/sqlkit/query/params"
)

var errBoom = errors.New("boom")

type fakeDriver struct {
	acquired int
	conn     *fakeConn
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{conn: &fakeConn{}}
}

func (d *fakeDriver) Dialect() dialect.Dialect       { return dialect.Postgres }
func (d *fakeDriver) PlaceholderStyle() params.Style { return params.StyleNumeric }

func (d *fakeDriver) Acquire(ctx context.Context) (Conn, error) {
	d.acquired++
	return d.conn, nil
}

// fakeConn fails every statement containing "FAIL".
type fakeConn struct {
	inTx       bool
	executed   []string
	args       []params.Args
	begins     int
	commits    int
	rollbacks  int
	closes     int
	savepoints []string
}

func (c *fakeConn) InTransaction() bool { return c.inTx }

func (c *fakeConn) Begin(ctx context.Context, isolation sql.IsolationLevel) error {
	c.inTx = true
	c.begins++
	return nil
}

func (c *fakeConn) Commit(ctx context.Context) error {
	c.inTx = false
	c.commits++
	return nil
}

func (c *fakeConn) Rollback(ctx context.Context) error {
	c.inTx = false
	c.rollbacks++
	return nil
}

func (c *fakeConn) run(query string, args params.Args) (*Result, error) {
	if strings.Contains(query, "FAIL") {
		return nil, errBoom
	}
	c.executed = append(c.executed, query)
	c.args = append(c.args, args)
	return &Result{RowsAffected: 1}, nil
}

func (c *fakeConn) Execute(ctx context.Context, query string, args params.Args) (*Result, error) {
	return c.run(query, args)
}

func (c *fakeConn) ExecuteMany(ctx context.Context, query string, batch []params.Args) (*Result, error) {
	res, err := c.run(query, params.None())
	if err != nil {
		return nil, err
	}
	res.StatementsTotal, res.StatementsSucceeded = len(batch), len(batch)
	return res, nil
}

func (c *fakeConn) ExecuteScript(ctx context.Context, script string) (*Result, error) {
	return c.run(script, params.None())
}

func (c *fakeConn) Select(ctx context.Context, query string, args params.Args) (*Result, error) {
	return c.run(query, args)
}

func (c *fakeConn) Close() error {
	c.closes++
	return nil
}

type savepointConn struct {
	*fakeConn
}

func (c savepointConn) Savepoint(ctx context.Context, name string) error {
	c.savepoints = append(c.savepoints, "SAVEPOINT "+name)
	return nil
}

func (c savepointConn) ReleaseSavepoint(ctx context.Context, name string) error {
	c.savepoints = append(c.savepoints, "RELEASE "+name)
	return nil
}

func (c savepointConn) RollbackToSavepoint(ctx context.Context, name string) error {
	c.savepoints = append(c.savepoints, "ROLLBACK TO "+name)
	return nil
}

type savepointDriver struct {
	*fakeDriver
}

func (d savepointDriver) Acquire(ctx context.Context) (Conn, error) {
	d.acquired++
	return savepointConn{d.conn}, nil
}

type nativeDriver struct {
	*fakeDriver
	calls int
	err   error
}

func (d *nativeDriver) ExecuteBatch(ctx context.Context, ops []Prepared, opts BatchOptions) ([]*Result, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	results := make([]*Result, len(ops))
	for i, op := range ops {
		results[i] = &Result{Kind: op.Operation.Kind, SQL: op.Compiled.SQL}
	}
	return results, nil
}

func TestProcessEmptyQueue(t *testing.T) {
	d := newFakeDriver()
	results, err := NewPipeline(d).Process(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, d.acquired)
}

func TestProcessInOrder(t *testing.T) {
	d := newFakeDriver()
	p := NewPipeline(d).
		AddExecute("INSERT INTO t (a) VALUES (?)", 1).
		AddExecuteMany("INSERT INTO t (a) VALUES (?)", []params.Args{params.Positional(2), params.Positional(3)}).
		AddExecuteScript("DELETE FROM u; DELETE FROM v;").
		AddSelect("SELECT * FROM t")

	results, err := p.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, []Kind{KindExecute, KindExecuteMany, KindExecuteScript, KindSelect},
		[]Kind{results[0].Kind, results[1].Kind, results[2].Kind, results[3].Kind})
	assert.Equal(t, []string{
		"INSERT INTO t (a) VALUES ($1)",
		"INSERT INTO t (a) VALUES ($1)",
		"DELETE FROM u; DELETE FROM v;",
		"SELECT * FROM t",
	}, d.conn.executed)
	assert.Equal(t, 2, results[1].StatementsTotal)
	assert.Equal(t, 1, d.acquired)
	assert.Equal(t, 1, d.conn.begins)
	assert.Equal(t, 1, d.conn.commits)
	assert.Equal(t, 1, d.conn.closes)
	assert.Zero(t, p.Len())
}

func TestStopOnError(t *testing.T) {
	d := newFakeDriver()
	p := NewPipeline(d).
		AddExecute("UPDATE a SET x = 1").
		AddExecute("UPDATE FAIL SET x = 1", 42).
		AddExecute("UPDATE c SET x = 1")

	results, err := p.Process(context.Background())
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrBatchExecution)
	assert.ErrorIs(t, err, errBoom)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Index)
	assert.Equal(t, KindExecute, be.Kind)
	require.Len(t, be.Partial, 1)
	assert.Equal(t, "UPDATE a SET x = 1", be.Partial[0].SQL)
	assert.Equal(t, []any{42}, be.Args.Values())

	assert.Equal(t, []string{"UPDATE a SET x = 1"}, d.conn.executed)
	assert.Equal(t, 1, d.conn.rollbacks)
	assert.Zero(t, d.conn.commits)
	assert.Zero(t, p.Len())
}

func TestContinueOnError(t *testing.T) {
	d := newFakeDriver()
	p := NewPipeline(d, WithContinueOnError(true)).
		AddExecute("UPDATE a SET x = 1").
		AddExecute("UPDATE FAIL SET x = ?", 42).
		AddExecute("UPDATE c SET x = 1")

	results, err := p.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.ErrorIs(t, results[1].Err, errBoom)
	assert.Equal(t, []any{42}, results[1].Args.Values())
	assert.False(t, results[2].Failed())

	assert.Equal(t, []string{"UPDATE a SET x = 1", "UPDATE c SET x = 1"}, d.conn.executed)
	assert.Equal(t, 1, d.conn.commits)
	assert.Zero(t, d.conn.rollbacks)
}

func TestContinueOnErrorUsesSavepoints(t *testing.T) {
	d := savepointDriver{newFakeDriver()}
	p := NewPipeline(d, WithContinueOnError(true)).
		AddExecute("UPDATE a SET x = 1").
		AddExecute("UPDATE FAIL SET x = 1")

	_, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"SAVEPOINT sqlkit_op_0",
		"RELEASE sqlkit_op_0",
		"SAVEPOINT sqlkit_op_1",
		"ROLLBACK TO sqlkit_op_1",
	}, d.conn.savepoints)
}

func TestCallerTransactionIsLeftOpen(t *testing.T) {
	d := newFakeDriver()
	d.conn.inTx = true

	_, err := NewPipeline(d).
		AddExecute("UPDATE a SET x = 1").
		AddExecute("UPDATE FAIL SET x = 1").
		Process(context.Background())
	require.Error(t, err)
	assert.Zero(t, d.conn.begins)
	assert.Zero(t, d.conn.rollbacks)
	assert.Zero(t, d.conn.commits)
}

func TestAutoFlush(t *testing.T) {
	d := newFakeDriver()
	p := NewPipeline(d, WithMaxOperations(2))

	p.AddExecute("UPDATE a SET x = 1").AddExecute("UPDATE b SET x = 1")
	assert.Zero(t, d.acquired)
	assert.Equal(t, 2, p.Len())

	p.AddExecute("UPDATE c SET x = 1")
	assert.Equal(t, 1, d.acquired)
	assert.Equal(t, []string{"UPDATE a SET x = 1", "UPDATE b SET x = 1"}, d.conn.executed)
	assert.Equal(t, 1, p.Len())

	results, err := p.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "UPDATE c SET x = 1", results[2].SQL)
	assert.Equal(t, 2, d.acquired)
}

func TestAutoFlushFailureIsHeld(t *testing.T) {
	d := newFakeDriver()
	p := NewPipeline(d, WithMaxOperations(2))

	p.AddExecute("UPDATE a SET x = 1").
		AddExecute("UPDATE b SET x = 1").
		AddExecute("UPDATE FAIL SET x = 1").
		AddExecute("UPDATE c SET x = 1")
	assert.Equal(t, 1, d.acquired)

	// Third operation triggers a second flush that fails.
	p.AddExecute("UPDATE d SET x = 1")
	assert.Equal(t, 2, d.acquired)
	p.AddExecute("UPDATE e SET x = 1")
	assert.Zero(t, p.Len())

	_, err := p.Process(context.Background())
	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Index)
	assert.Equal(t, 2, be.Flushed)
	assert.Len(t, be.Partial, 2)

	results, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFiltersFoldAtProcess(t *testing.T) {
	d := newFakeDriver()
	p := NewPipeline(d).
		AddSelect("SELECT * FROM t", filter.NewIn("id", []any{1, 2})).
		AddExecute("UPDATE t SET a = 1").
		AddSelect("SELECT * FROM u WHERE b = ?", true)

	_, err := p.Process(context.Background(), filter.NewLimitOffset(10, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"SELECT * FROM t WHERE id IN ($1, $2) LIMIT $3 OFFSET $4",
		"UPDATE t SET a = 1",
		"SELECT * FROM u WHERE b = $1 LIMIT $2 OFFSET $3",
	}, d.conn.executed)
	assert.Equal(t, []any{true, int64(10), int64(0)}, d.conn.args[2].Values())
}

func TestCompileErrorIsOperationError(t *testing.T) {
	d := newFakeDriver()
	p := NewPipeline(d, WithContinueOnError(true)).
		AddSelect("SELECT * FROM (SELECT 1", filter.NewLimitOffset(1, 0)).
		AddExecute("UPDATE t SET a = 1")

	results, err := p.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Failed())
	assert.False(t, results[1].Failed())
}

func TestNativeBatch(t *testing.T) {
	d := &nativeDriver{fakeDriver: newFakeDriver()}
	p := NewPipeline(d).
		AddExecute("INSERT INTO t (a) VALUES (?)", 1).
		AddSelect("SELECT * FROM t")

	results, err := p.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "INSERT INTO t (a) VALUES ($1)", results[0].SQL)
	assert.Equal(t, 1, d.calls)
	assert.Zero(t, d.acquired)

	t.Run("unsupported falls back", func(t *testing.T) {
		d := &nativeDriver{fakeDriver: newFakeDriver(), err: ErrNativeBatchUnsupported}
		results, err := NewPipeline(d).AddExecute("UPDATE t SET a = 1").Process(context.Background())
		require.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, 1, d.calls)
		assert.Equal(t, 1, d.acquired)
	})

	t.Run("disabled", func(t *testing.T) {
		d := &nativeDriver{fakeDriver: newFakeDriver()}
		_, err := NewPipeline(d, WithNativeBatching(false)).AddExecute("UPDATE t SET a = 1").Process(context.Background())
		require.NoError(t, err)
		assert.Zero(t, d.calls)
	})

	t.Run("errors are returned as is", func(t *testing.T) {
		d := &nativeDriver{fakeDriver: newFakeDriver(), err: errBoom}
		_, err := NewPipeline(d).AddExecute("UPDATE t SET a = 1").Process(context.Background())
		assert.ErrorIs(t, err, errBoom)
		assert.Zero(t, d.acquired)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "execute_many", KindExecuteMany.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
