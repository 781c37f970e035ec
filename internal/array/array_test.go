package array

import (
	"math"
	"testing"

	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    []any
		wantErr bool
	}{
		{"any slice", []any{"a", nil}, []any{"a", nil}, false},
		{"int32 slice", []int32{1, 2, 3}, []any{int32(1), int32(2), int32(3)}, false},
		{"string slice", []string{"x"}, []any{"x"}, false},
		{"go array", [2]int64{7, 8}, []any{int64(7), int64(8)}, false},
		{"empty", []string{}, []any{}, false},
		{"scalar", 5, nil, true},
		{"nil", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := From("int4", tt.in)
			if tt.wantErr {
				assert.True(t, errs.IsDataConversion(err))
				return
			}
			require.NoError(t, err)
			got, err := a.Elements()
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), len(got))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	a := New("text", []any{"a", "b", "c", "d"})

	got, err := a.Slice(2, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c"}, got)

	got, err = a.Slice(3, 10)
	require.NoError(t, err)
	assert.Equal(t, []any{"c", "d"}, got)

	got, err = a.Slice(5, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = a.Slice(2, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c", "d"}, got)

	_, err = a.Slice(0, 1)
	assert.True(t, errs.IsInvalidInput(err))
	_, err = a.Slice(6, 1)
	assert.True(t, errs.IsInvalidInput(err))
	_, err = a.Slice(1, -1)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestResultSet(t *testing.T) {
	a := New("int8", []any{int64(10), nil, int64(30)})

	rs, err := a.ResultSet()
	require.NoError(t, err)
	defer rs.Close()

	meta, err := rs.Metadata()
	require.NoError(t, err)
	name, _ := meta.ColumnName(1)
	assert.Equal(t, IndexColumn, name)
	typ, _ := meta.ColumnTypeName(2)
	assert.Equal(t, "int8", typ)

	var idx []int64
	var nulls []bool
	for {
		ok, err := rs.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		i, err := rs.GetInt64(1)
		require.NoError(t, err)
		idx = append(idx, i)
		_, err = rs.GetObject(2)
		require.NoError(t, err)
		wasNull, err := rs.WasNull()
		require.NoError(t, err)
		nulls = append(nulls, wasNull)
	}
	assert.Equal(t, []int64{1, 2, 3}, idx)
	assert.Equal(t, []bool{false, true, false}, nulls)

	// scroll-insensitive: backward navigation works
	ok, err := rs.First()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSliceResultSet_KeepsIndex(t *testing.T) {
	a := New("text", []any{"a", "b", "c"})

	rs, err := a.SliceResultSet(2, 2)
	require.NoError(t, err)

	ok, err := rs.Last()
	require.NoError(t, err)
	require.True(t, ok)

	i, err := rs.GetInt64(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), i)

	v, err := rs.GetString(2)
	require.NoError(t, err)
	assert.Equal(t, "c", v)

	err = rs.UpdateValue(2, "z")
	assert.True(t, errs.IsInvalidOperation(err))
}

func TestFree(t *testing.T) {
	a := New("text", []any{"a"})
	require.NoError(t, a.Free())
	require.NoError(t, a.Free())
	assert.True(t, a.IsFree())

	ops := map[string]func() error{
		"baseType": func() error { _, err := a.BaseTypeName(); return err },
		"len":      func() error { _, err := a.Len(); return err },
		"elements": func() error { _, err := a.Elements(); return err },
		"slice":    func() error { _, err := a.Slice(1, 1); return err },
		"rs":       func() error { _, err := a.ResultSet(); return err },
		"sliceRs":  func() error { _, err := a.SliceResultSet(1, 1); return err },
	}
	for name, op := range ops {
		assert.True(t, errs.IsClosed(op()), name)
	}
}
