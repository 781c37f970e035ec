package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/koustreak/sqlconform/internal/database"
)

// pgxRows wraps pgx.Rows to satisfy database.Rows.
type pgxRows struct {
	rows  pgx.Rows
	types *pgtype.Map
}

func (r *pgxRows) Next() bool { return r.rows.Next() }
func (r *pgxRows) Close()     { r.rows.Close() }

func (r *pgxRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

func (r *pgxRows) Values() ([]any, error) {
	vals, err := r.rows.Values()
	if err != nil {
		return nil, mapError(err, "failed to decode row")
	}
	return vals, nil
}

func (r *pgxRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "error during row iteration")
	}
	return nil
}

func (r *pgxRows) Columns() ([]string, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols, nil
}

func (r *pgxRows) ColumnTypes() ([]database.ColumnType, error) {
	descs := r.rows.FieldDescriptions()
	cols := make([]database.ColumnType, len(descs))
	for i, d := range descs {
		cols[i] = database.ColumnType{Name: d.Name, TypeName: typeName(r.types, d.DataTypeOID)}
	}
	return cols, nil
}

// typeName resolves a type OID to its registered name, e.g. "int8" or "_text".
func typeName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid:%d", oid)
}

// pgxRow wraps pgx.Row to satisfy database.Row.
type pgxRow struct {
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return mapError(err, "scan failed")
	}
	return nil
}

// pgxTx wraps pgx.Tx to satisfy database.Tx.
type pgxTx struct {
	tx    pgx.Tx
	types *pgtype.Map
}

func (t *pgxTx) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	return query(ctx, t.tx, t.types, sql, args)
}

func (t *pgxTx) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	return &pgxRow{row: t.tx.QueryRow(ctx, sql, args...)}, nil
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return exec(ctx, t.tx, sql, args)
}

func (t *pgxTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return mapError(err, "commit failed")
	}
	return nil
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return mapError(err, "rollback failed")
	}
	return nil
}
