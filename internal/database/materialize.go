package database

import (
	"errors"

	"github.com/koustreak/sqlconform/internal/errs"
)

// Materialize reads every row from rows into memory, up to maxRows when
// maxRows > 0. It always closes rows.
//
// The returned row slice is always non-nil (empty on zero rows).
func Materialize(rows Rows, maxRows int) ([]ColumnType, [][]any, error) {
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column types", err)
	}

	out := make([][]any, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, nil, wrapRowsErr("failed to read row", err)
		}
		out = append(out, vals)
		if maxRows > 0 && len(out) >= maxRows {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, nil, wrapRowsErr("error during row iteration", err)
	}

	return cols, out, nil
}

// wrapRowsErr keeps errors the drivers already classified, so their SQLSTATE
// kind and transience survive; anything else becomes QueryFailed.
func wrapRowsErr(msg string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// ScanMaps reads all rows into maps keyed by column name. It always closes rows.
func ScanMaps(rows Rows) ([]map[string]any, error) {
	cols, data, err := Materialize(rows, 0)
	if err != nil {
		return nil, err
	}

	result := make([]map[string]any, 0, len(data))
	for _, vals := range data {
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c.Name] = vals[i]
		}
		result = append(result, m)
	}
	return result, nil
}
