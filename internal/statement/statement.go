package statement

import (
	"context"
	"sync"
	"time"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
)

// Statement executes SQL and owns at most one open cursor: executing again
// closes the previous one.
type Statement struct {
	conn *Conn
	opts cursor.Options

	timeout           time.Duration
	maxRows           int
	closeOnCompletion bool
	closed            bool

	rs          *cursor.Cursor
	updateCount int64

	// mu guards cancel, which Cancel may read from another goroutine.
	mu     sync.Mutex
	cancel context.CancelFunc
}

func newStatement(c *Conn, opts cursor.Options) *Statement {
	return &Statement{conn: c, opts: opts, updateCount: -1}
}

// ExecuteQuery runs sql and returns a cursor over its rows, positioned
// before the first row.
func (s *Statement) ExecuteQuery(ctx context.Context, sql string, args ...any) (*cursor.Cursor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.closeResult()

	ctx, done := s.begin(ctx)
	defer done()

	q, err := s.conn.querier(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	cols, data, err := database.Materialize(rows, s.maxRows)
	if err != nil {
		return nil, err
	}

	cur := cursor.New(metadata(cols), data, s.opts)
	s.conn.track(cur, s.opts.Holdability)
	s.rs = cur
	if s.closeOnCompletion {
		s.closeWith(cur)
	}

	s.conn.log.With().
		Str("sql", sql).
		Int("rows", len(data)).
		Str("scroll", s.opts.Scroll.String()).
		Logger().Debug("query executed")
	return cur, nil
}

// ExecuteUpdate runs sql and returns the number of affected rows.
func (s *Statement) ExecuteUpdate(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	s.closeResult()

	ctx, done := s.begin(ctx)
	defer done()

	q, err := s.conn.querier(ctx)
	if err != nil {
		return 0, err
	}
	n, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	s.updateCount = n

	s.conn.log.With().
		Str("sql", sql).
		Int("affected", int(n)).
		Logger().Debug("update executed")
	return n, nil
}

// ResultSet returns the cursor of the last query, or nil when the last
// execution was an update.
func (s *Statement) ResultSet() (*cursor.Cursor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.rs, nil
}

// UpdateCount returns the affected-row count of the last update, or -1.
func (s *Statement) UpdateCount() (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.updateCount, nil
}

// SetQueryTimeout bounds each execution. Zero means no limit.
func (s *Statement) SetQueryTimeout(d time.Duration) error {
	if err := s.check(); err != nil {
		return err
	}
	if d < 0 {
		return errs.InvalidInput("query timeout must not be negative")
	}
	s.timeout = d
	return nil
}

func (s *Statement) QueryTimeout() (time.Duration, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.timeout, nil
}

// SetMaxRows caps the rows a cursor holds. Zero means no limit.
func (s *Statement) SetMaxRows(n int) error {
	if err := s.check(); err != nil {
		return err
	}
	if n < 0 {
		return errs.InvalidInput("max rows must not be negative")
	}
	s.maxRows = n
	return nil
}

func (s *Statement) MaxRows() (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	return s.maxRows, nil
}

// Options returns the cursor options of the statement.
func (s *Statement) Options() (cursor.Options, error) {
	if err := s.check(); err != nil {
		return cursor.Options{}, err
	}
	return s.opts, nil
}

// Cancel aborts an execution in progress. It is safe to call from another
// goroutine and never fails; without an execution in progress it does nothing.
func (s *Statement) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// CloseOnCompletion makes the statement close when its cursor closes.
func (s *Statement) CloseOnCompletion() error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.closeOnCompletion && s.rs != nil {
		s.closeWith(s.rs)
	}
	s.closeOnCompletion = true
	return nil
}

func (s *Statement) IsCloseOnCompletion() (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	return s.closeOnCompletion, nil
}

// Conn returns the connection that created the statement.
func (s *Statement) Conn() (*Conn, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.conn, nil
}

// Close closes the statement and its cursor. Closing twice is a no-op.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.Cancel()
	s.closeResult()
	s.conn.forget(s)
	return nil
}

// IsClosed reports whether Close has been called.
func (s *Statement) IsClosed() bool {
	return s.closed
}

func (s *Statement) check() error {
	if s.closed {
		return errs.Closed("statement")
	}
	return nil
}

// closeWith closes the statement when the caller closes cur. Replacing cur
// by a new execution does not count.
func (s *Statement) closeWith(cur *cursor.Cursor) {
	cur.OnClose(func() {
		if s.rs == cur {
			_ = s.Close()
		}
	})
}

func (s *Statement) closeResult() {
	if s.rs != nil {
		rs := s.rs
		s.rs = nil
		_ = rs.Close()
	}
	s.updateCount = -1
}

// begin derives the execution context, applying the query timeout and
// registering the cancel func for Cancel.
func (s *Statement) begin(ctx context.Context) (context.Context, func()) {
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
	}
}

func metadata(cols []database.ColumnType) *cursor.Metadata {
	mc := make([]cursor.Column, len(cols))
	for i, c := range cols {
		mc[i] = cursor.Column{Name: c.Name, TypeName: c.TypeName}
	}
	return cursor.NewMetadata(mc...)
}
