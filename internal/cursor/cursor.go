// Package cursor implements the positioned result-set handle: a cursor over
// materialized rows with a before-first / on-row / after-last / closed
// lifecycle.
//
// A Cursor distinguishes three failure modes that callers must be able to
// tell apart:
//
//	errs.IsClosed(err)                 // any call after Close
//	errs.IsInvalidCursorPosition(err)  // get* while before-first or after-last
//	errs.IsInvalidOperation(err)       // scrolling a forward-only cursor,
//	                                   // updating a read-only one
//
// A Cursor is not safe for concurrent use.
package cursor

import (
	"strings"

	"github.com/koustreak/sqlconform/internal/errs"
)

// Scrollability controls which navigation calls a cursor accepts.
type Scrollability int

const (
	ForwardOnly Scrollability = iota
	ScrollInsensitive
	ScrollSensitive
)

func (s Scrollability) String() string {
	switch s {
	case ForwardOnly:
		return "forward_only"
	case ScrollInsensitive:
		return "scroll_insensitive"
	case ScrollSensitive:
		return "scroll_sensitive"
	default:
		return "unknown"
	}
}

// Concurrency controls whether rows may be changed through the cursor.
type Concurrency int

const (
	ReadOnly Concurrency = iota
	Updatable
)

func (c Concurrency) String() string {
	if c == Updatable {
		return "updatable"
	}
	return "read_only"
}

// Holdability controls whether a cursor survives a transaction commit.
type Holdability int

const (
	HoldOverCommit Holdability = iota
	CloseAtCommit
)

func (h Holdability) String() string {
	if h == CloseAtCommit {
		return "close_at_commit"
	}
	return "hold_over_commit"
}

// Options are the cursor attributes fixed at creation.
type Options struct {
	Scroll      Scrollability
	Concurrency Concurrency
	Holdability Holdability
	FetchSize   int
}

// DefaultOptions returns a forward-only, read-only cursor that holds over commit.
func DefaultOptions() Options {
	return Options{Scroll: ForwardOnly, Concurrency: ReadOnly, Holdability: HoldOverCommit}
}

// Column describes one result column.
type Column struct {
	Name     string
	TypeName string
}

// Metadata describes the columns of a result. It is immutable, so a
// *Metadata taken from a cursor stays usable after the cursor is closed.
type Metadata struct {
	cols []Column
}

// NewMetadata builds metadata from the given columns.
func NewMetadata(cols ...Column) *Metadata {
	return &Metadata{cols: append([]Column(nil), cols...)}
}

// ColumnCount returns the number of columns.
func (m *Metadata) ColumnCount() int {
	return len(m.cols)
}

// Column returns the 1-based column i.
func (m *Metadata) Column(i int) (Column, error) {
	if i < 1 || i > len(m.cols) {
		return Column{}, errs.InvalidInput("column index out of range")
	}
	return m.cols[i-1], nil
}

// ColumnName returns the name of the 1-based column i.
func (m *Metadata) ColumnName(i int) (string, error) {
	c, err := m.Column(i)
	return c.Name, err
}

// ColumnTypeName returns the database type name of the 1-based column i.
func (m *Metadata) ColumnTypeName(i int) (string, error) {
	c, err := m.Column(i)
	return c.TypeName, err
}

// Columns returns a copy of all column descriptions.
func (m *Metadata) Columns() []Column {
	return append([]Column(nil), m.cols...)
}

// Index returns the 1-based index of the column with the given name,
// compared case-insensitively.
func (m *Metadata) Index(name string) (int, bool) {
	for i, c := range m.cols {
		if strings.EqualFold(c.Name, name) {
			return i + 1, true
		}
	}
	return 0, false
}

// Cursor is a positioned handle over a sequence of rows.
//
// pos encodes the position: 0 is before the first row, 1..len(rows) is a
// row, len(rows)+1 is after the last row.
type Cursor struct {
	meta *Metadata
	rows [][]any
	opts Options

	pos     int
	closed  bool
	wasNull bool

	// pending holds column updates for the current row until UpdateRow.
	pending map[int]any

	// insert-row mode of updatable cursors
	onInsertRow bool
	insertBuf   []any

	onClose []func()
}

// New creates a cursor positioned before the first row. rows are owned by
// the cursor from this point on.
func New(meta *Metadata, rows [][]any, opts Options) *Cursor {
	if meta == nil {
		meta = NewMetadata()
	}
	return &Cursor{meta: meta, rows: rows, opts: opts}
}

// Close releases the cursor. Closing a closed cursor is a no-op.
// Hooks registered with OnClose run once, in registration order.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.rows = nil
	c.pending = nil
	c.insertBuf = nil

	hooks := c.onClose
	c.onClose = nil
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (c *Cursor) IsClosed() bool {
	return c.closed
}

// OnClose registers fn to run when the cursor closes. If the cursor is
// already closed fn runs immediately.
func (c *Cursor) OnClose(fn func()) {
	if c.closed {
		fn()
		return
	}
	c.onClose = append(c.onClose, fn)
}

// Metadata returns the column metadata.
func (c *Cursor) Metadata() (*Metadata, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.meta, nil
}

// Options returns the attributes the cursor was created with.
func (c *Cursor) Options() (Options, error) {
	if err := c.check(); err != nil {
		return Options{}, err
	}
	return c.opts, nil
}

// FetchSize returns the fetch size hint.
func (c *Cursor) FetchSize() (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return c.opts.FetchSize, nil
}

// SetFetchSize sets the fetch size hint. Rows are already materialized, so
// the hint is only recorded.
func (c *Cursor) SetFetchSize(n int) error {
	if err := c.check(); err != nil {
		return err
	}
	if n < 0 {
		return errs.InvalidInput("fetch size must not be negative")
	}
	c.opts.FetchSize = n
	return nil
}

// FindColumn returns the 1-based index of the named column.
func (c *Cursor) FindColumn(name string) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	i, ok := c.meta.Index(name)
	if !ok {
		return 0, errs.InvalidInput("unknown column " + name)
	}
	return i, nil
}

func (c *Cursor) check() error {
	if c.closed {
		return errs.Closed("result set")
	}
	return nil
}

func (c *Cursor) afterLast() int {
	return len(c.rows) + 1
}

func (c *Cursor) onRow() bool {
	return c.pos >= 1 && c.pos <= len(c.rows)
}
