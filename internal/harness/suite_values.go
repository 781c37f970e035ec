package harness

import (
	"context"

	"github.com/koustreak/sqlconform/internal/array"
	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/rowid"
	"github.com/koustreak/sqlconform/internal/statement"
)

func rowidCases(*Env) []Case {
	return []Case{
		{Name: "hex round trip", Run: rowidHexCase},
		{Name: "equality", Run: rowidEqualCase},
		{Name: "invalid", Run: rowidInvalidCase},
	}
}

func rowidHexCase(context.Context, *Env) error {
	id, err := rowid.Parse("02B7ABFE")
	if err != nil {
		return err
	}
	if err := expectEqual(id.String(), "02b7abfe", "string"); err != nil {
		return err
	}
	if err := expectEqual(id.Bytes(), []byte{0x02, 0xb7, 0xab, 0xfe}, "bytes"); err != nil {
		return err
	}
	return expectEqual(id.Len(), 4, "length")
}

func rowidEqualCase(context.Context, *Env) error {
	a := rowid.FromBytes([]byte{0xca, 0xfe})
	b, err := rowid.From("cafe")
	if err != nil {
		return err
	}
	if err := expectEqual(a.Equal(b), true, "cafe == cafe"); err != nil {
		return err
	}
	return expectEqual(a.Equal(rowid.FromBytes([]byte{0xca})), false, "cafe == ca")
}

func rowidInvalidCase(context.Context, *Env) error {
	_, err := rowid.Parse("xyz")
	if err := expectKind(err, errs.ErrKindInvalidInput, "parse"); err != nil {
		return err
	}
	_, err = rowid.From(3.5)
	return expectKind(err, errs.ErrKindDataConversion, "from float")
}

func arrayCases(*Env) []Case {
	return []Case{
		{Name: "slice", Run: arraySliceCase},
		{Name: "result set", Run: arrayResultSetCase},
		{Name: "create", Run: arrayCreateCase},
		{Name: "from column", Run: arrayColumnCase},
	}
}

func arraySliceCase(context.Context, *Env) error {
	a := array.New("int4", []any{int64(10), int64(20), int64(30)})
	defer a.Free()

	got, err := a.Slice(2, 5)
	if err != nil {
		return err
	}
	if err := expectEqual(got, []any{int64(20), int64(30)}, "slice(2, 5)"); err != nil {
		return err
	}
	_, err = a.Slice(0, 1)
	return expectKind(err, errs.ErrKindInvalidInput, "slice(0, 1)")
}

func arrayResultSetCase(context.Context, *Env) error {
	a := array.New("text", []any{"a", "b", "c"})
	defer a.Free()

	rs, err := a.SliceResultSet(2, 2)
	if err != nil {
		return err
	}
	defer rs.Close()

	if err := Validate(rs, []Step{
		{Op: OpNext, Want: true},
		{Op: OpGetInt64, Arg: 1, Want: int64(2)},
		{Op: OpGetString, Arg: 2, Want: "b"},
		{Op: OpLast, Want: true},
		{Op: OpGetInt64, Arg: 1, Want: int64(3)},
		{Op: OpUpdateRow, Arg: 2, Values: []any{"z"}, Fails: errs.ErrKindInvalidOperation},
		{Op: OpNext, Want: false},
	}); err != nil {
		return err
	}

	if err := a.Free(); err != nil {
		return err
	}
	_, err = a.ResultSet()
	return expectKind(err, errs.ErrKindClosed, "result set after free")
}

// arrayCreateCase checks that CreateArrayOf follows the reported capability.
func arrayCreateCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	a, err := conn.CreateArrayOf("int4", []any{1, 2})
	if !env.Caps.Arrays {
		return expectKind(err, errs.ErrKindUnsupported, "createArrayOf")
	}
	if err != nil {
		return err
	}
	defer a.Free()
	n, err := a.Len()
	if err != nil {
		return err
	}
	return expectEqual(n, 2, "length")
}

func arrayColumnCase(ctx context.Context, env *Env) error {
	if !env.Caps.Arrays {
		return skip("backend has no array type")
	}
	cur, err := env.Factory.Query(ctx, cursor.DefaultOptions(), arrayQuery)
	if err != nil {
		return err
	}
	if _, err := cur.Next(); err != nil {
		return err
	}
	a, err := statement.GetArray(cur, 1)
	if err != nil {
		return err
	}
	defer a.Free()

	base, err := a.BaseTypeName()
	if err != nil {
		return err
	}
	if err := expectEqual(base, "int4", "base type"); err != nil {
		return err
	}
	n, err := a.Len()
	if err != nil {
		return err
	}
	return expectEqual(n, 3, "length")
}

const arrayQuery = "SELECT ARRAY[1, 2, 3]::int4[] AS a"
