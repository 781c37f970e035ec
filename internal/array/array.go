// Package array implements the SQL ARRAY value handle.
//
// An Array exposes its elements either as a Go slice or as a read-only,
// scroll-insensitive cursor with two columns: INDEX (1-based) and VALUE.
package array

import (
	"reflect"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/errs"
)

// Column names of the cursor returned by ResultSet.
const (
	IndexColumn = "INDEX"
	ValueColumn = "VALUE"
)

// Array is a handle to a SQL array value.
type Array struct {
	baseType string
	elems    []any
	freed    bool
}

// New returns an Array of baseType holding a copy of elems.
func New(baseType string, elems []any) *Array {
	return &Array{baseType: baseType, elems: append([]any(nil), elems...)}
}

// From builds an Array from any Go slice or array value, such as the
// []int32 or []string values returned by pgx for array columns.
func From(baseType string, v any) (*Array, error) {
	if elems, ok := v.([]any); ok {
		return New(baseType, elems), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errs.Conversion(v, "array", nil)
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return &Array{baseType: baseType, elems: elems}, nil
}

// BaseTypeName returns the SQL type name of the elements.
func (a *Array) BaseTypeName() (string, error) {
	if err := a.check(); err != nil {
		return "", err
	}
	return a.baseType, nil
}

// Len returns the number of elements.
func (a *Array) Len() (int, error) {
	if err := a.check(); err != nil {
		return 0, err
	}
	return len(a.elems), nil
}

// Elements returns a copy of all elements.
func (a *Array) Elements() ([]any, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return append([]any(nil), a.elems...), nil
}

// Slice returns up to count elements starting at the 1-based index.
func (a *Array) Slice(index int64, count int) ([]any, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	start, end, err := a.bounds(index, count)
	if err != nil {
		return nil, err
	}
	return append([]any(nil), a.elems[start:end]...), nil
}

// ResultSet returns a cursor over all elements.
func (a *Array) ResultSet() (*cursor.Cursor, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.SliceResultSet(1, len(a.elems))
}

// SliceResultSet returns a cursor over up to count elements starting at
// the 1-based index. INDEX values keep the element's position in the array.
func (a *Array) SliceResultSet(index int64, count int) (*cursor.Cursor, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	start, end, err := a.bounds(index, count)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, []any{int64(i + 1), a.elems[i]})
	}

	meta := cursor.NewMetadata(
		cursor.Column{Name: IndexColumn, TypeName: "INTEGER"},
		cursor.Column{Name: ValueColumn, TypeName: a.baseType},
	)
	opts := cursor.Options{Scroll: cursor.ScrollInsensitive, Concurrency: cursor.ReadOnly}
	return cursor.New(meta, rows, opts), nil
}

// Free releases the elements. Freeing twice is a no-op.
func (a *Array) Free() error {
	a.freed = true
	a.elems = nil
	return nil
}

// IsFree reports whether Free has been called.
func (a *Array) IsFree() bool {
	return a.freed
}

func (a *Array) check() error {
	if a.freed {
		return errs.Closed("array")
	}
	return nil
}

func (a *Array) bounds(index int64, count int) (int, int, error) {
	if index < 1 || index > int64(len(a.elems))+1 {
		return 0, 0, errs.InvalidInput("array index out of range")
	}
	if count < 0 {
		return 0, 0, errs.InvalidInput("count must not be negative")
	}
	start := int(index - 1)
	end := len(a.elems)
	if count < end-start {
		end = start + count
	}
	return start, end, nil
}
