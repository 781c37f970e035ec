package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/database/mysql"
	"github.com/koustreak/sqlconform/internal/database/postgres"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/logger"
	"github.com/koustreak/sqlconform/internal/statement"
)

// Opener opens the database a run talks to.
type Opener interface {
	Open(ctx context.Context) (database.DB, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (database.DB, error)

func (f OpenerFunc) Open(ctx context.Context) (database.DB, error) {
	return f(ctx)
}

// DriverOpener opens the backend named by cfg.Driver.
func DriverOpener(cfg *database.Config) Opener {
	return OpenerFunc(func(ctx context.Context) (database.DB, error) {
		var (
			db  database.DB
			err error
		)
		switch cfg.Driver {
		case database.DriverPostgres:
			db, err = postgres.New(ctx, cfg)
		case database.DriverMySQL:
			db, err = mysql.New(ctx, cfg)
		default:
			return nil, errs.InvalidInput(fmt.Sprintf("unknown database driver %q", cfg.Driver))
		}
		if err != nil {
			return nil, err
		}
		return db, nil
	})
}

// Factory hands out connections, statements and cursors, and remembers every
// one of them so CloseAll can release them in reverse dependency order.
// The database is opened on the first Connect and closed by CloseAll.
type Factory struct {
	open Opener
	log  *logger.Logger

	mu      sync.Mutex
	db      database.DB
	conns   []*statement.Conn
	stmts   []*statement.Statement
	cursors []*cursor.Cursor
	closed  bool
}

func NewFactory(open Opener, log *logger.Logger) *Factory {
	if log == nil {
		log = logger.Nop()
	}
	return &Factory{open: open, log: log}
}

// DB returns the database, opening it if needed.
func (f *Factory) DB(ctx context.Context) (database.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.database(ctx)
}

// Connect returns a new tracked connection.
func (f *Factory) Connect(ctx context.Context) (*statement.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	db, err := f.database(ctx)
	if err != nil {
		return nil, err
	}
	conn := statement.NewConn(db, f.log)
	f.conns = append(f.conns, conn)
	return conn, nil
}

// Statement returns a new tracked statement on conn.
func (f *Factory) Statement(conn *statement.Conn, opts cursor.Options) (*statement.Statement, error) {
	s, err := conn.CreateStatement(opts)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.stmts = append(f.stmts, s)
	f.mu.Unlock()
	return s, nil
}

// Prepare returns a new tracked prepared statement on conn.
func (f *Factory) Prepare(conn *statement.Conn, sql string, opts cursor.Options) (*statement.PreparedStatement, error) {
	p, err := conn.Prepare(sql, opts)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.stmts = append(f.stmts, p.Statement)
	f.mu.Unlock()
	return p, nil
}

// Query opens a connection and a statement, runs sql and returns the
// cursor. All three are tracked.
func (f *Factory) Query(ctx context.Context, opts cursor.Options, sql string, args ...any) (*cursor.Cursor, error) {
	conn, err := f.Connect(ctx)
	if err != nil {
		return nil, err
	}
	s, err := f.Statement(conn, opts)
	if err != nil {
		return nil, err
	}
	cur, err := s.ExecuteQuery(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	f.Track(cur)
	return cur, nil
}

// Track registers a cursor created elsewhere.
func (f *Factory) Track(cur *cursor.Cursor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors = append(f.cursors, cur)
}

// CloseAll closes cursors, then statements, then connections, then the
// database. Calling it again is a no-op.
func (f *Factory) CloseAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	var errList []error
	for i := len(f.cursors) - 1; i >= 0; i-- {
		if err := f.cursors[i].Close(); err != nil {
			errList = append(errList, err)
		}
	}
	for i := len(f.stmts) - 1; i >= 0; i-- {
		if err := f.stmts[i].Close(); err != nil {
			errList = append(errList, err)
		}
	}
	for i := len(f.conns) - 1; i >= 0; i-- {
		if err := f.conns[i].Close(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	if f.db != nil {
		f.db.Close()
	}

	f.log.With().
		Int("cursors", len(f.cursors)).
		Int("statements", len(f.stmts)).
		Int("connections", len(f.conns)).
		Logger().Debug("factory closed")

	f.cursors, f.stmts, f.conns = nil, nil, nil
	return errors.Join(errList...)
}

// IsClosed reports whether CloseAll has run.
func (f *Factory) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Factory) database(ctx context.Context) (database.DB, error) {
	if f.closed {
		return nil, errs.Closed("connection factory")
	}
	if f.db != nil {
		return f.db, nil
	}
	db, err := f.open.Open(ctx)
	if err != nil {
		return nil, err
	}
	f.db = db
	return db, nil
}
