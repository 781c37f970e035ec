package cursor

import "github.com/koustreak/sqlconform/internal/errs"

// UpdateValue stages v for the 1-based column col of the current row, or of
// the insert row when in insert-row mode.
func (c *Cursor) UpdateValue(col int, v any) error {
	if err := c.updatable("updateValue"); err != nil {
		return err
	}
	if err := c.checkColumn(col); err != nil {
		return err
	}
	if c.onInsertRow {
		c.insertBuf[col-1] = v
		return nil
	}
	if !c.onRow() {
		return errs.InvalidPosition("no current row to update")
	}
	if c.pending == nil {
		c.pending = make(map[int]any)
	}
	c.pending[col] = v
	return nil
}

// UpdateNull stages SQL NULL for column col.
func (c *Cursor) UpdateNull(col int) error {
	return c.UpdateValue(col, nil)
}

// UpdateRow applies staged updates to the current row.
func (c *Cursor) UpdateRow() error {
	if err := c.updatable("updateRow"); err != nil {
		return err
	}
	if c.onInsertRow {
		return errs.InvalidOperation("updateRow: cursor is on the insert row")
	}
	if !c.onRow() {
		return errs.InvalidPosition("no current row to update")
	}

	row := c.rows[c.pos-1]
	if len(row) < c.meta.ColumnCount() {
		row = append(row, make([]any, c.meta.ColumnCount()-len(row))...)
	}
	for col, v := range c.pending {
		row[col-1] = v
	}
	c.rows[c.pos-1] = row
	c.pending = nil
	return nil
}

// CancelRowUpdates discards staged updates to the current row.
func (c *Cursor) CancelRowUpdates() error {
	if err := c.updatable("cancelRowUpdates"); err != nil {
		return err
	}
	if c.onInsertRow {
		return errs.InvalidOperation("cancelRowUpdates: cursor is on the insert row")
	}
	c.pending = nil
	return nil
}

// DeleteRow removes the current row. The cursor then sits on the preceding
// row (or before the first row), so Next lands on the row that followed the
// deleted one.
func (c *Cursor) DeleteRow() error {
	if err := c.updatable("deleteRow"); err != nil {
		return err
	}
	if c.onInsertRow {
		return errs.InvalidOperation("deleteRow: cursor is on the insert row")
	}
	if !c.onRow() {
		return errs.InvalidPosition("no current row to delete")
	}
	i := c.pos - 1
	c.rows = append(c.rows[:i], c.rows[i+1:]...)
	c.pending = nil
	c.pos = i
	return nil
}

// MoveToInsertRow enters insert-row mode with an empty row buffer.
// The current position is remembered for MoveToCurrentRow.
func (c *Cursor) MoveToInsertRow() error {
	if err := c.updatable("moveToInsertRow"); err != nil {
		return err
	}
	c.pending = nil
	c.onInsertRow = true
	c.insertBuf = make([]any, c.meta.ColumnCount())
	return nil
}

// MoveToCurrentRow leaves insert-row mode and returns to the remembered
// position. It is a no-op when not on the insert row.
func (c *Cursor) MoveToCurrentRow() error {
	if err := c.updatable("moveToCurrentRow"); err != nil {
		return err
	}
	c.leaveInsertRow()
	return nil
}

// InsertRow appends the insert-row buffer to the result. The cursor stays on
// a fresh insert row.
func (c *Cursor) InsertRow() error {
	if err := c.updatable("insertRow"); err != nil {
		return err
	}
	if !c.onInsertRow {
		return errs.InvalidOperation("insertRow: cursor is not on the insert row")
	}

	afterLast := c.pos == c.afterLast()
	c.rows = append(c.rows, c.insertBuf)
	if afterLast {
		c.pos = c.afterLast()
	}
	c.insertBuf = make([]any, c.meta.ColumnCount())
	return nil
}

func (c *Cursor) updatable(op string) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.opts.Concurrency != Updatable {
		return errs.InvalidOperation(op + ": result set is read-only")
	}
	return nil
}
