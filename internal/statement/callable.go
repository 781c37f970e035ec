package statement

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/koustreak/sqlconform/internal/array"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/rowid"
	"github.com/koustreak/sqlconform/internal/sqlvalue"
)

// CallableStatement invokes a procedure or function. Out parameters are
// filled, in registration-index order, from the columns of the first row
// the call returns.
type CallableStatement struct {
	*PreparedStatement

	outTypes map[int]string
	outVals  map[int]any
	executed bool
	wasNull  bool
}

func newCallable(p *PreparedStatement) *CallableStatement {
	return &CallableStatement{
		PreparedStatement: p,
		outTypes:          make(map[int]string),
	}
}

// RegisterOutParameter declares out parameter i with the given SQL type name.
func (c *CallableStatement) RegisterOutParameter(i int, typeName string) error {
	if err := c.check(); err != nil {
		return err
	}
	if i < 1 {
		return errs.InvalidInput(fmt.Sprintf("out parameter index %d must be >= 1", i))
	}
	c.outTypes[i] = typeName
	return nil
}

// Execute runs the call and captures the out values.
func (c *CallableStatement) Execute(ctx context.Context) error {
	cur, err := c.Query(ctx)
	if err != nil {
		return err
	}
	defer cur.Close()

	outs := slices.Sorted(maps.Keys(c.outTypes))
	vals := make(map[int]any, len(outs))

	ok, err := cur.Next()
	if err != nil {
		return err
	}
	if ok {
		meta, err := cur.Metadata()
		if err != nil {
			return err
		}
		if meta.ColumnCount() < len(outs) {
			return errs.InvalidOperation(fmt.Sprintf(
				"call returned %d columns for %d out parameters", meta.ColumnCount(), len(outs)))
		}
		for col, idx := range outs {
			v, err := cur.GetObject(col + 1)
			if err != nil {
				return err
			}
			vals[idx] = v
		}
	} else {
		for _, idx := range outs {
			vals[idx] = nil
		}
	}

	c.outVals = vals
	c.executed = true
	return nil
}

// GetObject returns the raw value of out parameter i.
func (c *CallableStatement) GetObject(i int) (any, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if _, ok := c.outTypes[i]; !ok {
		return nil, errs.InvalidInput(fmt.Sprintf("parameter %d is not registered as out", i))
	}
	if !c.executed {
		return nil, errs.InvalidOperation("statement has not been executed")
	}
	v := c.outVals[i]
	c.wasNull = v == nil
	return v, nil
}

func (c *CallableStatement) GetString(i int) (string, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return "", err
	}
	return sqlvalue.String(v)
}

func (c *CallableStatement) GetInt64(i int) (int64, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return 0, err
	}
	return sqlvalue.Int64(v)
}

func (c *CallableStatement) GetFloat64(i int) (float64, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return 0, err
	}
	return sqlvalue.Float64(v)
}

func (c *CallableStatement) GetBytes(i int) ([]byte, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return nil, err
	}
	return sqlvalue.Bytes(v)
}

// GetBlob returns out parameter i as a Blob, or nil for SQL NULL.
func (c *CallableStatement) GetBlob(i int) (*lob.Blob, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return nil, err
	}
	return blobOf(v)
}

// GetClob returns out parameter i as a Clob, or nil for SQL NULL.
func (c *CallableStatement) GetClob(i int) (*lob.Clob, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return nil, err
	}
	return clobOf(v)
}

// GetArray returns out parameter i as an Array whose base type is the
// registered type name, or nil for SQL NULL.
func (c *CallableStatement) GetArray(i int) (*array.Array, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return array.From(baseType(c.outTypes[i]), v)
}

// GetRowID returns out parameter i as a RowID.
func (c *CallableStatement) GetRowID(i int) (rowid.RowID, error) {
	v, err := c.GetObject(i)
	if err != nil {
		return rowid.RowID{}, err
	}
	return rowid.From(v)
}

// WasNull reports whether the last out value read was SQL NULL.
func (c *CallableStatement) WasNull() (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}
	return c.wasNull, nil
}
