// Package dbtest provides an in-memory database.DB for tests. Responses are
// scripted per SQL string and every call is recorded.
package dbtest

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
)

// Result is the scripted response to one SQL string.
type Result struct {
	Columns  []database.ColumnType
	Rows     [][]any
	Affected int64
	Err      error

	// IterErr is returned by Rows.Err once the rows are exhausted.
	IterErr error

	// Block makes the call wait until its context is done.
	Block bool
}

// Call records one statement sent to the fake.
type Call struct {
	SQL  string
	Args []any
	InTx bool
}

// DB is a scripted database.DB. It is safe for concurrent use.
type DB struct {
	mu      sync.Mutex
	results map[string]Result
	byArgs  map[string][]argResult
	tables  map[string]bool
	calls   []Call
	txs     []*Tx
	caps    database.Capabilities
	dialect database.Dialect
	closed  bool
}

// New returns an empty fake with Postgres-like capabilities.
func New() *DB {
	return &DB{
		results: make(map[string]Result),
		byArgs:  make(map[string][]argResult),
		tables:  make(map[string]bool),
		caps:    database.Capabilities{Product: "fake", Transactions: true, Arrays: true},
	}
}

// On scripts the response for sql.
func (d *DB) On(sql string, r Result) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[sql] = r
	return d
}

type argResult struct {
	args []any
	res  Result
}

// OnArgs scripts the response for sql sent with exactly args. It takes
// precedence over On for the same sql.
func (d *DB) OnArgs(sql string, args []any, r Result) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byArgs[sql] = append(d.byArgs[sql], argResult{args: args, res: r})
	return d
}

// WithTable marks table as existing.
func (d *DB) WithTable(table string) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[table] = true
	return d
}

// WithCapabilities replaces the reported capabilities.
func (d *DB) WithCapabilities(c database.Capabilities) *DB {
	d.caps = c
	return d
}

// WithDialect replaces the reported dialect.
func (d *DB) WithDialect(dl database.Dialect) *DB {
	d.dialect = dl
	return d
}

// Calls returns a copy of every recorded call.
func (d *DB) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Txs returns every transaction begun so far.
func (d *DB) Txs() []*Tx {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Tx(nil), d.txs...)
}

// IsClosed reports whether Close was called.
func (d *DB) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *DB) Ping(ctx context.Context) error {
	if d.IsClosed() {
		return errs.Closed("database")
	}
	return ctx.Err()
}

func (d *DB) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *DB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	return d.query(ctx, false, sql, args)
}

func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	return d.queryRow(ctx, false, sql, args)
}

func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return d.exec(ctx, false, sql, args)
}

func (d *DB) Begin(ctx context.Context) (database.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindTimeout, "begin failed", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	tx := &Tx{db: d}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *DB) TableExists(_ context.Context, table string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tables[table], nil
}

func (d *DB) Capabilities() database.Capabilities { return d.caps }
func (d *DB) Dialect() database.Dialect           { return d.dialect }

func (d *DB) lookup(ctx context.Context, inTx bool, sql string, args []any) (Result, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Result{}, errs.Closed("database")
	}
	d.calls = append(d.calls, Call{SQL: sql, Args: args, InTx: inTx})
	r, ok := d.match(sql, args)
	d.mu.Unlock()

	if !ok {
		return Result{}, errs.New(errs.ErrKindQueryFailed, fmt.Sprintf("unexpected statement: %s", sql))
	}
	if r.Block {
		<-ctx.Done()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, errs.Wrap(errs.ErrKindTimeout, "statement canceled", err)
	}
	return r, r.Err
}

// match must be called with d.mu held.
func (d *DB) match(sql string, args []any) (Result, bool) {
	for _, ar := range d.byArgs[sql] {
		if reflect.DeepEqual(ar.args, args) {
			return ar.res, true
		}
	}
	r, ok := d.results[sql]
	return r, ok
}

func (d *DB) query(ctx context.Context, inTx bool, sql string, args []any) (database.Rows, error) {
	r, err := d.lookup(ctx, inTx, sql, args)
	if err != nil {
		return nil, err
	}
	return &Rows{cols: r.Columns, data: r.Rows, pos: -1, err: r.IterErr}, nil
}

func (d *DB) queryRow(ctx context.Context, inTx bool, sql string, args []any) (database.Row, error) {
	r, err := d.lookup(ctx, inTx, sql, args)
	if err != nil {
		return nil, err
	}
	if len(r.Rows) == 0 {
		return &row{err: errs.New(errs.ErrKindNotFound, "no rows in result set")}, nil
	}
	return &row{vals: r.Rows[0]}, nil
}

func (d *DB) exec(ctx context.Context, inTx bool, sql string, args []any) (int64, error) {
	r, err := d.lookup(ctx, inTx, sql, args)
	if err != nil {
		return 0, err
	}
	return r.Affected, nil
}

// Tx is a transaction on the fake. Statements are answered by the parent DB.
type Tx struct {
	db         *DB
	mu         sync.Mutex
	committed  bool
	rolledBack bool
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.db.query(ctx, true, sql, args)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.db.queryRow(ctx, true, sql, args)
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}
	return t.db.exec(ctx, true, sql, args)
}

func (t *Tx) Commit(context.Context) error {
	if err := t.check(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if err := t.check(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolledBack = true
	return nil
}

// Committed reports whether Commit was called.
func (t *Tx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// RolledBack reports whether Rollback was called.
func (t *Tx) RolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolledBack
}

func (t *Tx) check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return errs.InvalidOperation("transaction already finished")
	}
	return nil
}

// Rows iterates a scripted result.
type Rows struct {
	cols   []database.ColumnType
	data   [][]any
	pos    int
	err    error
	closed bool
}

// NewRows returns Rows over data, for tests that drive database.Rows directly.
func NewRows(cols []database.ColumnType, data [][]any) *Rows {
	return &Rows{cols: cols, data: data, pos: -1}
}

// WithErr makes Err report err once iteration is over.
func (r *Rows) WithErr(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) Next() bool {
	if r.closed || r.pos+1 >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	vals, err := r.Values()
	if err != nil {
		return err
	}
	return scan(vals, dest)
}

func (r *Rows) Values() ([]any, error) {
	if r.pos < 0 || r.pos >= len(r.data) {
		return nil, errs.InvalidOperation("no current row")
	}
	return append([]any(nil), r.data[r.pos]...), nil
}

func (r *Rows) Columns() ([]string, error) {
	names := make([]string, len(r.cols))
	for i, c := range r.cols {
		names[i] = c.Name
	}
	return names, nil
}

func (r *Rows) ColumnTypes() ([]database.ColumnType, error) {
	return append([]database.ColumnType(nil), r.cols...), nil
}

func (r *Rows) Close()     { r.closed = true }
func (r *Rows) Err() error { return r.err }

// IsClosed reports whether Close was called.
func (r *Rows) IsClosed() bool { return r.closed }

type row struct {
	vals []any
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scan(r.vals, dest)
}

func scan(vals, dest []any) error {
	if len(dest) != len(vals) {
		return errs.InvalidInput(fmt.Sprintf("scan: %d destinations for %d columns", len(dest), len(vals)))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *any:
			*p = vals[i]
		case *string:
			s, ok := vals[i].(string)
			if !ok {
				return errs.Conversion(vals[i], "string", nil)
			}
			*p = s
		case *int64:
			n, ok := vals[i].(int64)
			if !ok {
				return errs.Conversion(vals[i], "int64", nil)
			}
			*p = n
		case *int:
			n, ok := vals[i].(int64)
			if !ok {
				return errs.Conversion(vals[i], "int", nil)
			}
			*p = int(n)
		default:
			return errs.Unsupported(fmt.Sprintf("scan into %T", d))
		}
	}
	return nil
}
