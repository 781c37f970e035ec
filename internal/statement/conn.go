// Package statement implements the connection and statement handles that
// produce cursors: Conn, Statement, PreparedStatement and CallableStatement.
//
// A Conn is a logical connection over a database.DB pool. With auto-commit
// on, every statement runs on the pool; with auto-commit off a transaction
// is begun on first use and ended by Commit or Rollback.
//
// Results are materialized into in-memory cursors, so any scrollability and
// concurrency can be requested regardless of the backend.
package statement

import (
	"context"
	"slices"

	"github.com/koustreak/sqlconform/internal/array"
	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/logger"
)

// Conn is a logical connection. It is not safe for concurrent use, except
// for Statement.Cancel.
type Conn struct {
	db  database.DB
	log *logger.Logger

	autoCommit bool
	tx         database.Tx
	closed     bool

	stmts []*Statement

	// cursors opened with CloseAtCommit holdability
	commitScoped []*cursor.Cursor
}

// NewConn returns a connection in auto-commit mode. The Conn does not own
// db: closing the Conn leaves the pool open.
func NewConn(db database.DB, log *logger.Logger) *Conn {
	if log == nil {
		log = logger.Nop()
	}
	return &Conn{db: db, log: log, autoCommit: true}
}

// CreateStatement returns a statement whose cursors use opts.
func (c *Conn) CreateStatement(opts cursor.Options) (*Statement, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	s := newStatement(c, opts)
	c.stmts = append(c.stmts, s)
	return s, nil
}

// Prepare returns a parameterized statement for sql.
func (c *Conn) Prepare(sql string, opts cursor.Options) (*PreparedStatement, error) {
	s, err := c.CreateStatement(opts)
	if err != nil {
		return nil, err
	}
	return newPrepared(s, sql, c.db.Dialect()), nil
}

// PrepareCall returns a statement for invoking a stored procedure or a
// function whose first result row carries the out values.
func (c *Conn) PrepareCall(sql string) (*CallableStatement, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if !c.db.Capabilities().StoredProcedures {
		return nil, errs.Unsupported("stored procedures")
	}
	p, err := c.Prepare(sql, cursor.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return newCallable(p), nil
}

// SetAutoCommit switches auto-commit mode. Turning it on while a
// transaction is open commits that transaction.
func (c *Conn) SetAutoCommit(ctx context.Context, on bool) error {
	if err := c.check(); err != nil {
		return err
	}
	if on == c.autoCommit {
		return nil
	}
	if on && c.tx != nil {
		if err := c.endTx(ctx, true); err != nil {
			return err
		}
	}
	c.autoCommit = on
	return nil
}

// AutoCommit reports the current auto-commit mode.
func (c *Conn) AutoCommit() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return c.autoCommit, nil
}

// Commit ends the current transaction. Cursors opened with CloseAtCommit
// holdability are closed.
func (c *Conn) Commit(ctx context.Context) error {
	if err := c.manualTx("commit"); err != nil {
		return err
	}
	return c.endTx(ctx, true)
}

// Rollback aborts the current transaction. Cursors opened with
// CloseAtCommit holdability are closed.
func (c *Conn) Rollback(ctx context.Context) error {
	if err := c.manualTx("rollback"); err != nil {
		return err
	}
	return c.endTx(ctx, false)
}

// Capabilities returns the backend's optional features.
func (c *Conn) Capabilities() (database.Capabilities, error) {
	if err := c.check(); err != nil {
		return database.Capabilities{}, err
	}
	return c.db.Capabilities(), nil
}

// CreateBlob returns an empty Blob for use as a parameter.
func (c *Conn) CreateBlob() (*lob.Blob, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return lob.NewBlob(nil), nil
}

// CreateClob returns an empty Clob for use as a parameter.
func (c *Conn) CreateClob() (*lob.Clob, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return lob.NewClob(""), nil
}

// CreateNClob returns an empty NClob for use as a parameter.
func (c *Conn) CreateNClob() (lob.NClob, error) {
	if err := c.check(); err != nil {
		return lob.NClob{}, err
	}
	return lob.NewNClob(""), nil
}

// CreateSQLXML returns a writable SQLXML value. It fails with
// errs.IsUnsupported when the backend has no XML type.
func (c *Conn) CreateSQLXML() (*lob.SQLXML, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if !c.db.Capabilities().SQLXML {
		return nil, errs.Unsupported("sqlxml")
	}
	return lob.NewSQLXML(), nil
}

// CreateArrayOf returns an Array of baseType. It fails with
// errs.IsUnsupported when the backend has no array type.
func (c *Conn) CreateArrayOf(baseType string, elems []any) (*array.Array, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if !c.db.Capabilities().Arrays {
		return nil, errs.Unsupported("arrays")
	}
	return array.New(baseType, elems), nil
}

// Close closes every statement created by the connection and rolls back an
// open transaction. Closing twice is a no-op.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	var rollbackErr error
	if c.tx != nil {
		rollbackErr = c.endTx(ctx, false)
	}
	stmts := c.stmts
	c.stmts = nil
	for _, s := range stmts {
		_ = s.Close()
	}
	c.closed = true
	return rollbackErr
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	return c.closed
}

// DB returns the underlying pool.
func (c *Conn) DB() database.DB {
	return c.db
}

func (c *Conn) check() error {
	if c.closed {
		return errs.Closed("connection")
	}
	return nil
}

func (c *Conn) manualTx(op string) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.autoCommit {
		return errs.InvalidOperation(op + " while auto-commit is enabled")
	}
	return nil
}

// querier returns where statements run: the pool in auto-commit mode,
// otherwise the connection's transaction, begun on first use.
func (c *Conn) querier(ctx context.Context) (database.Querier, error) {
	if c.autoCommit {
		return c.db, nil
	}
	if c.tx == nil {
		tx, err := c.db.Begin(ctx)
		if err != nil {
			return nil, err
		}
		c.log.Debug("transaction begun")
		c.tx = tx
	}
	return c.tx, nil
}

func (c *Conn) endTx(ctx context.Context, commit bool) error {
	for _, cur := range c.commitScoped {
		_ = cur.Close()
	}
	c.commitScoped = nil

	tx := c.tx
	c.tx = nil
	if tx == nil {
		return nil
	}
	if commit {
		c.log.Debug("transaction committed")
		return tx.Commit(ctx)
	}
	c.log.Debug("transaction rolled back")
	return tx.Rollback(ctx)
}

// track remembers cur for the next Commit or Rollback. In auto-commit mode
// there is no transaction to end, so nothing is kept.
func (c *Conn) track(cur *cursor.Cursor, h cursor.Holdability) {
	if h != cursor.CloseAtCommit || c.autoCommit {
		return
	}
	c.commitScoped = slices.DeleteFunc(c.commitScoped, (*cursor.Cursor).IsClosed)
	c.commitScoped = append(c.commitScoped, cur)
}

func (c *Conn) forget(s *Statement) {
	for i, st := range c.stmts {
		if st == s {
			c.stmts = append(c.stmts[:i], c.stmts[i+1:]...)
			return
		}
	}
}
