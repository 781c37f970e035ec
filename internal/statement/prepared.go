package statement

import (
	"context"
	"fmt"
	"strconv"

	"github.com/koustreak/sqlconform/internal/array"
	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/rowid"
)

// PreparedStatement is a Statement bound to one SQL string with positional
// parameters.
type PreparedStatement struct {
	*Statement

	sql    string
	count  int
	params map[int]any
}

func newPrepared(s *Statement, sql string, d database.Dialect) *PreparedStatement {
	return &PreparedStatement{
		Statement: s,
		sql:       sql,
		count:     countParams(sql, d),
		params:    make(map[int]any),
	}
}

// SQL returns the statement text.
func (p *PreparedStatement) SQL() string {
	return p.sql
}

// ParameterCount returns the number of placeholders in the SQL.
func (p *PreparedStatement) ParameterCount() (int, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.count, nil
}

// SetParam binds v to the 1-based parameter i. LOB, array and row id
// handles are bound by value.
func (p *PreparedStatement) SetParam(i int, v any) error {
	if err := p.check(); err != nil {
		return err
	}
	if i < 1 || i > p.count {
		return errs.InvalidInput(fmt.Sprintf("parameter index %d out of range 1..%d", i, p.count))
	}
	bound, err := bindValue(v)
	if err != nil {
		return err
	}
	p.params[i] = bound
	return nil
}

// SetNull binds SQL NULL to parameter i.
func (p *PreparedStatement) SetNull(i int) error {
	return p.SetParam(i, nil)
}

// ClearParameters removes every bound value.
func (p *PreparedStatement) ClearParameters() error {
	if err := p.check(); err != nil {
		return err
	}
	clear(p.params)
	return nil
}

// Query executes the statement and returns its cursor.
func (p *PreparedStatement) Query(ctx context.Context) (*cursor.Cursor, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	args, err := p.args()
	if err != nil {
		return nil, err
	}
	return p.ExecuteQuery(ctx, p.sql, args...)
}

// Update executes the statement and returns the number of affected rows.
func (p *PreparedStatement) Update(ctx context.Context) (int64, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	args, err := p.args()
	if err != nil {
		return 0, err
	}
	return p.ExecuteUpdate(ctx, p.sql, args...)
}

func (p *PreparedStatement) args() ([]any, error) {
	args := make([]any, p.count)
	for i := 1; i <= p.count; i++ {
		v, ok := p.params[i]
		if !ok {
			return nil, errs.InvalidInput(fmt.Sprintf("parameter %d is not set", i))
		}
		args[i-1] = v
	}
	return args, nil
}

// bindValue converts handle types into driver values.
func bindValue(v any) (any, error) {
	switch x := v.(type) {
	case *lob.Blob:
		n, err := x.Length()
		if err != nil {
			return nil, err
		}
		return x.Bytes(1, int(n))
	case *lob.Clob:
		return x.String()
	case lob.NClob:
		return x.String()
	case *lob.SQLXML:
		return x.String()
	case *array.Array:
		return x.Elements()
	case rowid.RowID:
		return x.Bytes(), nil
	default:
		return v, nil
	}
}

// countParams counts placeholders outside quoted literals and identifiers:
// '?' for MySQL, the highest $n for Postgres.
func countParams(sql string, d database.Dialect) int {
	var quote byte
	n := 0
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
		case d == database.DialectMySQL && ch == '?':
			n++
		case d == database.DialectPostgres && ch == '$':
			j := i + 1
			for j < len(sql) && sql[j] >= '0' && sql[j] <= '9' {
				j++
			}
			if j > i+1 {
				if k, err := strconv.Atoi(sql[i+1 : j]); err == nil && k > n {
					n = k
				}
				i = j - 1
			}
		}
	}
	return n
}
