package cursor

import "github.com/koustreak/sqlconform/internal/errs"

// Next moves to the following row. It returns false once the cursor is
// after the last row; calling it again there stays put.
func (c *Cursor) Next() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	if c.pos < c.afterLast() {
		c.moveTo(c.pos + 1)
	} else {
		c.leaveInsertRow()
	}
	return c.onRow(), nil
}

// Previous moves to the preceding row. It fails on forward-only cursors.
func (c *Cursor) Previous() (bool, error) {
	if err := c.scrollable("previous"); err != nil {
		return false, err
	}
	c.moveTo(max(c.pos-1, 0))
	return c.onRow(), nil
}

// First moves to the first row. It returns false for an empty result.
func (c *Cursor) First() (bool, error) {
	if err := c.scrollable("first"); err != nil {
		return false, err
	}
	if len(c.rows) == 0 {
		c.moveTo(0)
		return false, nil
	}
	c.moveTo(1)
	return true, nil
}

// Last moves to the last row. It returns false for an empty result.
func (c *Cursor) Last() (bool, error) {
	if err := c.scrollable("last"); err != nil {
		return false, err
	}
	c.moveTo(len(c.rows))
	return c.onRow(), nil
}

// BeforeFirst moves before the first row.
func (c *Cursor) BeforeFirst() error {
	if err := c.scrollable("beforeFirst"); err != nil {
		return err
	}
	c.moveTo(0)
	return nil
}

// AfterLast moves after the last row.
func (c *Cursor) AfterLast() error {
	if err := c.scrollable("afterLast"); err != nil {
		return err
	}
	c.moveTo(c.afterLast())
	return nil
}

// Absolute moves to row k. Positive k counts from the start, negative k
// from the end (-1 is the last row) and 0 moves before the first row.
// Targets outside the result land before the first or after the last row.
//
// Forward-only cursors accept only the call that targets the current
// position.
func (c *Cursor) Absolute(k int) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	target := c.absoluteTarget(k)
	if c.opts.Scroll == ForwardOnly && target != c.pos {
		return false, errs.InvalidOperation("absolute: result set is forward-only")
	}
	c.moveTo(target)
	return c.onRow(), nil
}

// Relative moves k rows from the current position.
// Forward-only cursors accept only Relative(0).
func (c *Cursor) Relative(k int) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	if k == 0 {
		return c.onRow(), nil
	}
	if c.opts.Scroll == ForwardOnly {
		return false, errs.InvalidOperation("relative: result set is forward-only")
	}
	var target int
	switch {
	case k > len(c.rows)-c.pos:
		target = c.afterLast()
	case k < 1-c.pos:
		target = 0
	default:
		target = c.pos + k
	}
	c.moveTo(target)
	return c.onRow(), nil
}

// Row returns the 1-based current row number, or 0 when not on a row.
func (c *Cursor) Row() (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	if c.onInsertRow || !c.onRow() {
		return 0, nil
	}
	return c.pos, nil
}

// IsBeforeFirst reports whether the cursor is before the first row of a
// non-empty result.
func (c *Cursor) IsBeforeFirst() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return len(c.rows) > 0 && c.pos == 0, nil
}

// IsAfterLast reports whether the cursor is after the last row of a
// non-empty result.
func (c *Cursor) IsAfterLast() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return len(c.rows) > 0 && c.pos == c.afterLast(), nil
}

// IsFirst reports whether the cursor is on the first row.
func (c *Cursor) IsFirst() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return len(c.rows) > 0 && c.pos == 1, nil
}

// IsLast reports whether the cursor is on the last row.
func (c *Cursor) IsLast() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return len(c.rows) > 0 && c.pos == len(c.rows), nil
}

func (c *Cursor) scrollable(op string) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.opts.Scroll == ForwardOnly {
		return errs.InvalidOperation(op + ": result set is forward-only")
	}
	return nil
}

func (c *Cursor) absoluteTarget(k int) int {
	n := len(c.rows)
	switch {
	case k > n:
		return n + 1
	case k > 0:
		return k
	case k == 0:
		return 0
	case n+k+1 < 1:
		return 0
	default:
		return n + k + 1
	}
}

// moveTo repositions the cursor, discarding pending row updates and
// leaving insert-row mode.
func (c *Cursor) moveTo(pos int) {
	c.leaveInsertRow()
	c.pending = nil
	c.pos = pos
}

func (c *Cursor) leaveInsertRow() {
	c.onInsertRow = false
	c.insertBuf = nil
}
