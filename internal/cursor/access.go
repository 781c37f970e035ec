package cursor

import (
	"fmt"
	"time"

	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/sqlvalue"
)

// GetObject returns the raw value of the 1-based column col.
func (c *Cursor) GetObject(col int) (any, error) {
	v, err := c.value(col)
	if err != nil {
		return nil, err
	}
	c.wasNull = v == nil
	return v, nil
}

// GetObjectByName returns the raw value of the named column.
func (c *Cursor) GetObjectByName(name string) (any, error) {
	col, err := c.FindColumn(name)
	if err != nil {
		return nil, err
	}
	return c.GetObject(col)
}

func (c *Cursor) GetString(col int) (string, error) {
	v, err := c.GetObject(col)
	if err != nil {
		return "", err
	}
	return sqlvalue.String(v)
}

func (c *Cursor) GetInt64(col int) (int64, error) {
	v, err := c.GetObject(col)
	if err != nil {
		return 0, err
	}
	return sqlvalue.Int64(v)
}

func (c *Cursor) GetFloat64(col int) (float64, error) {
	v, err := c.GetObject(col)
	if err != nil {
		return 0, err
	}
	return sqlvalue.Float64(v)
}

func (c *Cursor) GetBool(col int) (bool, error) {
	v, err := c.GetObject(col)
	if err != nil {
		return false, err
	}
	return sqlvalue.Bool(v)
}

func (c *Cursor) GetBytes(col int) ([]byte, error) {
	v, err := c.GetObject(col)
	if err != nil {
		return nil, err
	}
	return sqlvalue.Bytes(v)
}

func (c *Cursor) GetTime(col int) (time.Time, error) {
	v, err := c.GetObject(col)
	if err != nil {
		return time.Time{}, err
	}
	return sqlvalue.Time(v)
}

// WasNull reports whether the last value read was SQL NULL.
func (c *Cursor) WasNull() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return c.wasNull, nil
}

// Scan copies the current row into dest, one destination per column.
// Supported destinations are *any, *string, *int64, *int, *float64, *bool,
// *[]byte and *time.Time.
func (c *Cursor) Scan(dest ...any) error {
	if err := c.check(); err != nil {
		return err
	}
	if len(dest) != c.meta.ColumnCount() {
		return errs.InvalidInput("scan: destination count does not match column count")
	}
	for i, d := range dest {
		v, err := c.GetObject(i + 1)
		if err != nil {
			return err
		}
		if err := assign(d, v); err != nil {
			return err
		}
	}
	return nil
}

// value resolves col against the current position. Closed is checked
// before position, position before the column index.
func (c *Cursor) value(col int) (any, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	if c.onInsertRow {
		if err := c.checkColumn(col); err != nil {
			return nil, err
		}
		return c.insertBuf[col-1], nil
	}

	switch {
	case c.pos == 0:
		return nil, errs.InvalidPosition("before first row")
	case c.pos > len(c.rows):
		return nil, errs.InvalidPosition("after last row")
	}

	if err := c.checkColumn(col); err != nil {
		return nil, err
	}
	if v, ok := c.pending[col]; ok {
		return v, nil
	}
	row := c.rows[c.pos-1]
	if col > len(row) {
		return nil, nil
	}
	return row[col-1], nil
}

func (c *Cursor) checkColumn(col int) error {
	if col < 1 || col > c.meta.ColumnCount() {
		return errs.InvalidInput("column index out of range")
	}
	return nil
}

func assign(dest, v any) error {
	var err error
	switch d := dest.(type) {
	case *any:
		*d = v
	case *string:
		*d, err = sqlvalue.String(v)
	case *int64:
		*d, err = sqlvalue.Int64(v)
	case *int:
		var n int64
		n, err = sqlvalue.Int64(v)
		*d = int(n)
	case *float64:
		*d, err = sqlvalue.Float64(v)
	case *bool:
		*d, err = sqlvalue.Bool(v)
	case *[]byte:
		*d, err = sqlvalue.Bytes(v)
	case *time.Time:
		*d, err = sqlvalue.Time(v)
	default:
		return errs.Unsupported(fmt.Sprintf("scan destination %T", dest))
	}
	return err
}
