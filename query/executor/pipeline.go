package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/sqlkit/internal/debug"
	"github.com/satishbabariya/sqlkit/query/filter"
	"github.com/satishbabariya/sqlkit/query/params"
	"github.com/satishbabariya/sqlkit/query/statement"
)

// Kind is the kind of a queued operation.
type Kind int

const (
	KindExecute Kind = iota
	KindExecuteMany
	KindExecuteScript
	KindSelect
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindExecute:
		return "execute"
	case KindExecuteMany:
		return "execute_many"
	case KindExecuteScript:
		return "execute_script"
	case KindSelect:
		return "select"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Operation is one queued unit of a pipeline.
type Operation struct {
	Kind      Kind
	Statement *statement.Statement
	// Filters are folded into Statement just before it runs.
	Filters []filter.Filter
	// Args and Batch are the parameters as queued, kept for diagnostics.
	Args  params.Args
	Batch []params.Args
}

// Compile folds the operation's filters, and global for selects, into its
// statement and compiles it for style.
func (op Operation) Compile(style params.Style, global ...filter.Filter) (statement.Compiled, error) {
	stmt := op.Statement.Filter(op.Filters...)
	if op.Kind == KindSelect && len(global) > 0 {
		stmt = stmt.Filter(global...)
	}
	return stmt.Compile(style)
}

// Pipeline queues operations and runs them as one unit on one connection.
// A Pipeline is not safe for concurrent use.
type Pipeline struct {
	driver          Driver
	config          *statement.Config
	continueOnError bool
	maxOperations   int
	isolation       sql.IsolationLevel
	native          bool
	flushCtx        context.Context
	logger          *slog.Logger

	queue   []Operation
	held    []*Result
	heldErr error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithContinueOnError records failed operations as error results and keeps going.
func WithContinueOnError(enable bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = enable
	}
}

// WithMaxOperations sets the auto-flush threshold. Zero disables auto-flush.
func WithMaxOperations(n int) Option {
	return func(p *Pipeline) {
		p.maxOperations = max(n, 0)
	}
}

// WithIsolationLevel sets the isolation level of transactions the pipeline starts.
func WithIsolationLevel(level sql.IsolationLevel) Option {
	return func(p *Pipeline) {
		p.isolation = level
	}
}

// WithNativeBatching toggles delegation to drivers implementing NativeBatcher.
func WithNativeBatching(enable bool) Option {
	return func(p *Pipeline) {
		p.native = enable
	}
}

// WithStatementConfig sets the configuration of statements built by Add calls.
func WithStatementConfig(cfg *statement.Config) Option {
	return func(p *Pipeline) {
		p.config = cfg
	}
}

// WithFlushContext sets the context auto-flushes run with.
func WithFlushContext(ctx context.Context) Option {
	return func(p *Pipeline) {
		p.flushCtx = ctx
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// NewPipeline returns an empty pipeline over driver.
func NewPipeline(driver Driver, opts ...Option) *Pipeline {
	p := &Pipeline{
		driver:    driver,
		isolation: sql.LevelDefault,
		native:    true,
		flushCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.config == nil {
		p.config = statement.NewConfig(statement.WithDialect(driver.Dialect()))
	}
	if p.logger == nil {
		p.logger = debug.Logger()
	}
	p.logger = p.logger.With(slog.String("pipeline", uuid.NewString()))
	return p
}

// Len returns the number of queued operations.
func (p *Pipeline) Len() int {
	return len(p.queue)
}

// AddExecute queues a statement run once. Filter arguments become operation
// filters, the rest are parameters as for statement.New.
func (p *Pipeline) AddExecute(query string, args ...any) *Pipeline {
	filters, values := filter.Collect(args)
	return p.AddStatement(KindExecute, statement.NewWithConfig(p.config, query, values...), filters...)
}

// AddSelect queues a query whose rows are collected.
func (p *Pipeline) AddSelect(query string, args ...any) *Pipeline {
	filters, values := filter.Collect(args)
	return p.AddStatement(KindSelect, statement.NewWithConfig(p.config, query, values...), filters...)
}

// AddExecuteMany queues a statement run once per batch row.
func (p *Pipeline) AddExecuteMany(query string, batch []params.Args, filters ...filter.Filter) *Pipeline {
	return p.AddStatement(KindExecuteMany, statement.NewWithConfig(p.config, query).AsMany(batch), filters...)
}

// AddExecuteScript queues a multi-statement script.
func (p *Pipeline) AddExecuteScript(script string) *Pipeline {
	return p.AddStatement(KindExecuteScript, statement.NewWithConfig(p.config, script).AsScript())
}

// AddStatement queues a prepared statement. The statement mode follows kind.
func (p *Pipeline) AddStatement(kind Kind, stmt *statement.Statement, filters ...filter.Filter) *Pipeline {
	switch kind {
	case KindExecuteMany:
		if stmt.Mode() != statement.ModeMany {
			stmt = stmt.AsMany(nil)
		}
	case KindExecuteScript:
		if stmt.Mode() != statement.ModeScript {
			stmt = stmt.AsScript()
		}
	}
	return p.add(Operation{
		Kind:      kind,
		Statement: stmt,
		Filters:   filters,
		Args:      stmt.Args(),
		Batch:     stmt.Batch(),
	})
}

func (p *Pipeline) add(op Operation) *Pipeline {
	if p.heldErr != nil {
		p.logger.Warn("operation ignored, pipeline holds a failed batch",
			slog.String("kind", op.Kind.String()))
		return p
	}
	if p.maxOperations > 0 && len(p.queue) >= p.maxOperations {
		p.logger.Debug("auto-flushing pipeline", slog.Int("operations", len(p.queue)))
		results, err := p.flush(p.flushCtx, nil)
		if err != nil {
			p.heldErr = offset(p.held, err)
			return p
		}
		p.held = append(p.held, results...)
	}
	p.queue = append(p.queue, op)
	return p
}

// offset shifts a batch error past the results already held.
func offset(held []*Result, err error) error {
	var be *BatchError
	if len(held) == 0 || !errors.As(err, &be) {
		return err
	}
	shifted := *be
	shifted.Index += len(held)
	shifted.Flushed += len(held)
	shifted.Partial = append(append([]*Result(nil), held...), be.Partial...)
	return &shifted
}

// Process runs the queued operations and clears the queue. Results are in
// queue order and include those of earlier auto-flushes. Global filters
// apply to select operations.
//
// With an empty queue no connection is acquired. In stop-on-error mode the
// first failure rolls back a transaction the pipeline started and is
// returned as a *BatchError.
func (p *Pipeline) Process(ctx context.Context, global ...filter.Filter) ([]*Result, error) {
	held, heldErr := p.held, p.heldErr
	p.held, p.heldErr = nil, nil
	if heldErr != nil {
		p.queue = nil
		return nil, heldErr
	}

	results, err := p.flush(ctx, global)
	if err != nil {
		return nil, offset(held, err)
	}
	return append(held, results...), nil
}

func (p *Pipeline) flush(ctx context.Context, global []filter.Filter) ([]*Result, error) {
	ops := p.queue
	p.queue = nil
	if len(ops) == 0 {
		return nil, nil
	}

	start := time.Now()
	results, path, err := p.run(ctx, ops, global)
	elapsed := time.Since(start)
	sampleProcess(path, elapsed, err)

	if err != nil {
		p.logger.Warn("pipeline failed",
			slog.String("path", path),
			slog.Int("operations", len(ops)),
			slog.Any("error", err))
		return nil, err
	}
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	p.logger.Debug("pipeline processed",
		slog.String("path", path),
		slog.Int("operations", len(ops)),
		slog.Int("failed", failed),
		slog.Duration("elapsed", elapsed))
	return results, nil
}

func (p *Pipeline) run(ctx context.Context, ops []Operation, global []filter.Filter) ([]*Result, string, error) {
	if nb, ok := p.driver.(NativeBatcher); ok && p.native {
		if prepared, ok := p.prepare(ops, global); ok {
			results, err := nb.ExecuteBatch(ctx, prepared, BatchOptions{
				ContinueOnError: p.continueOnError,
				IsolationLevel:  p.isolation,
			})
			if !errors.Is(err, ErrNativeBatchUnsupported) {
				for _, r := range results {
					sampleOperation(r.Kind, r.Err)
				}
				return results, "native", err
			}
			p.logger.Debug("native batch unsupported, simulating", slog.Any("error", err))
		}
	}
	results, err := p.simulate(ctx, ops, global)
	return results, "simulated", err
}

// prepare compiles every operation for a native batcher. Operations that fail
// to compile are left to the simulated path, which reports them in order.
func (p *Pipeline) prepare(ops []Operation, global []filter.Filter) ([]Prepared, bool) {
	style := p.driver.PlaceholderStyle()
	prepared := make([]Prepared, len(ops))
	for i, op := range ops {
		c, err := op.Compile(style, global...)
		if err != nil {
			return nil, false
		}
		prepared[i] = Prepared{Operation: op, Compiled: c}
	}
	return prepared, true
}

func (p *Pipeline) simulate(ctx context.Context, ops []Operation, global []filter.Filter) ([]*Result, error) {
	conn, err := p.driver.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			p.logger.Warn("error while releasing connection", slog.Any("error", cerr))
		}
	}()

	started := false
	if !conn.InTransaction() {
		if err := conn.Begin(ctx, p.isolation); err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		started = true
	}

	var sp Savepointer
	if p.continueOnError {
		sp, _ = conn.(Savepointer)
	}

	results := make([]*Result, 0, len(ops))
	for i, op := range ops {
		res, err := p.runOne(ctx, conn, sp, i, op, global)
		sampleOperation(op.Kind, err)
		if err == nil {
			results = append(results, res)
			continue
		}
		if p.continueOnError {
			p.logger.Debug("operation failed, continuing",
				slog.Int("index", i),
				slog.String("kind", op.Kind.String()),
				slog.Any("error", err))
			results = append(results, errorResult(op, err))
			continue
		}
		if started {
			if rbErr := conn.Rollback(ctx); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
		return nil, newBatchError(i, op, results, err)
	}

	if started {
		if err := conn.Commit(ctx); err != nil {
			return nil, fmt.Errorf("%w: commit: %w", ErrBatchExecution, err)
		}
	}
	return results, nil
}

func (p *Pipeline) runOne(ctx context.Context, conn Conn, sp Savepointer, index int, op Operation, global []filter.Filter) (*Result, error) {
	if sp == nil {
		return p.execute(ctx, conn, op, global)
	}

	name := "sqlkit_op_" + strconv.Itoa(index)
	if err := sp.Savepoint(ctx, name); err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}
	res, err := p.execute(ctx, conn, op, global)
	if err != nil {
		if rbErr := sp.RollbackToSavepoint(ctx, name); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return nil, err
	}
	if err := sp.ReleaseSavepoint(ctx, name); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, conn Conn, op Operation, global []filter.Filter) (*Result, error) {
	c, err := op.Compile(p.driver.PlaceholderStyle(), global...)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch op.Kind {
	case KindExecute:
		res, err = conn.Execute(ctx, c.SQL, c.Args)
	case KindExecuteMany:
		res, err = conn.ExecuteMany(ctx, c.SQL, c.Batch)
	case KindExecuteScript:
		res, err = conn.ExecuteScript(ctx, c.SQL)
	case KindSelect:
		res, err = conn.Select(ctx, c.SQL, c.Args)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Kind)
	}
	if err != nil {
		return nil, err
	}
	res.Kind = op.Kind
	res.SQL = c.SQL
	return res, nil
}
