package mysql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/koustreak/sqlconform/internal/database"
)

// mysqlRows wraps *sql.Rows and converts the driver's raw []byte values
// into the Go type matching each column.
type mysqlRows struct {
	rows  *sql.Rows
	types []database.ColumnType
}

func newRows(rows *sql.Rows) (*mysqlRows, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return nil, mapError(err, "failed to read column types")
	}
	types := make([]database.ColumnType, len(cts))
	for i, ct := range cts {
		types[i] = database.ColumnType{Name: ct.Name(), TypeName: ct.DatabaseTypeName()}
	}
	return &mysqlRows{rows: rows, types: types}, nil
}

func (r *mysqlRows) Next() bool { return r.rows.Next() }
func (r *mysqlRows) Close()     { _ = r.rows.Close() }

func (r *mysqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

func (r *mysqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

func (r *mysqlRows) Columns() ([]string, error) {
	names := make([]string, len(r.types))
	for i, t := range r.types {
		names[i] = t.Name
	}
	return names, nil
}

func (r *mysqlRows) ColumnTypes() ([]database.ColumnType, error) {
	return append([]database.ColumnType(nil), r.types...), nil
}

func (r *mysqlRows) Values() ([]any, error) {
	vals := make([]any, len(r.types))
	ptrs := make([]any, len(r.types))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, mapError(err, "failed to decode row")
	}
	for i, v := range vals {
		vals[i] = normalize(r.types[i].TypeName, v)
	}
	return vals, nil
}

// normalize converts a raw driver value for a column of the given database
// type. The text protocol returns every non-NULL value as []byte; binary
// columns keep their bytes, numeric columns are parsed and the rest become
// strings.
func normalize(typeName string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	t := strings.TrimPrefix(strings.ToUpper(typeName), "UNSIGNED ")
	switch t {
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
		return append([]byte(nil), b...)
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	}
	return string(b)
}

type mysqlRow struct {
	row *sql.Row
}

func (r *mysqlRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

// mysqlTx wraps *sql.Tx to satisfy database.Tx.
type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return runQuery(ctx, t.tx, query, args)
}

func (t *mysqlTx) QueryRow(ctx context.Context, query string, args ...any) (database.Row, error) {
	return &mysqlRow{row: t.tx.QueryRowContext(ctx, query, args...)}, nil
}

func (t *mysqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return runExec(ctx, t.tx, query, args)
}

func (t *mysqlTx) Commit(context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return mapError(err, "commit failed")
	}
	return nil
}

func (t *mysqlTx) Rollback(context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return mapError(err, "rollback failed")
	}
	return nil
}
