package statement

import (
	"context"
	"testing"
	"time"

	"github.com/koustreak/sqlconform/internal/array"
	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/database/dbtest"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/rowid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectRows = "SELECT id, label FROM t"

func rowsResult() dbtest.Result {
	return dbtest.Result{
		Columns: []database.ColumnType{{Name: "id", TypeName: "int8"}, {Name: "label", TypeName: "text"}},
		Rows:    [][]any{{int64(1), "one"}, {int64(2), "two"}, {int64(3), nil}},
	}
}

func newFake() *dbtest.DB {
	return dbtest.New().
		On(selectRows, rowsResult()).
		On("UPDATE t SET label = 'x'", dbtest.Result{Affected: 3}).
		On("SELECT slow", dbtest.Result{Block: true})
}

// procFake is newFake on a backend that runs stored procedures.
func procFake() *dbtest.DB {
	return newFake().WithCapabilities(database.Capabilities{
		Product:          "fake",
		Transactions:     true,
		Arrays:           true,
		StoredProcedures: true,
	})
}

func scrollable() cursor.Options {
	return cursor.Options{Scroll: cursor.ScrollInsensitive, Concurrency: cursor.ReadOnly}
}

func TestStatement_ExecuteQuery(t *testing.T) {
	ctx := context.Background()
	conn := NewConn(newFake(), nil)

	st, err := conn.CreateStatement(scrollable())
	require.NoError(t, err)

	rs, err := st.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)

	meta, err := rs.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 2, meta.ColumnCount())
	typ, _ := meta.ColumnTypeName(1)
	assert.Equal(t, "int8", typ)

	ok, err := rs.Last()
	require.NoError(t, err)
	require.True(t, ok)
	row, _ := rs.Row()
	assert.Equal(t, 3, row)

	current, err := st.ResultSet()
	require.NoError(t, err)
	assert.Same(t, rs, current)

	// executing again closes the previous cursor
	rs2, err := st.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)
	assert.True(t, rs.IsClosed())
	assert.False(t, rs2.IsClosed())
}

func TestStatement_MaxRows(t *testing.T) {
	conn := NewConn(newFake(), nil)
	st, _ := conn.CreateStatement(scrollable())

	require.NoError(t, st.SetMaxRows(2))
	assert.True(t, errs.IsInvalidInput(st.SetMaxRows(-1)))

	rs, err := st.ExecuteQuery(context.Background(), selectRows)
	require.NoError(t, err)
	ok, _ := rs.Last()
	require.True(t, ok)
	row, _ := rs.Row()
	assert.Equal(t, 2, row)
}

func TestStatement_ExecuteUpdate(t *testing.T) {
	conn := NewConn(newFake(), nil)
	st, _ := conn.CreateStatement(cursor.DefaultOptions())

	n, err := st.ExecuteUpdate(context.Background(), "UPDATE t SET label = 'x'")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	count, _ := st.UpdateCount()
	assert.Equal(t, int64(3), count)
	rs, _ := st.ResultSet()
	assert.Nil(t, rs)
}

func TestStatement_QueryError(t *testing.T) {
	conn := NewConn(newFake(), nil)
	st, _ := conn.CreateStatement(cursor.DefaultOptions())

	_, err := st.ExecuteQuery(context.Background(), "SELECT nope")
	assert.True(t, errs.IsQueryFailed(err))
}

func TestStatement_Timeout(t *testing.T) {
	conn := NewConn(newFake(), nil)
	st, _ := conn.CreateStatement(cursor.DefaultOptions())

	require.NoError(t, st.SetQueryTimeout(10*time.Millisecond))
	d, _ := st.QueryTimeout()
	assert.Equal(t, 10*time.Millisecond, d)
	assert.True(t, errs.IsInvalidInput(st.SetQueryTimeout(-time.Second)))

	_, err := st.ExecuteQuery(context.Background(), "SELECT slow")
	assert.True(t, errs.IsTimeout(err))
}

func TestStatement_Cancel(t *testing.T) {
	conn := NewConn(newFake(), nil)
	st, _ := conn.CreateStatement(cursor.DefaultOptions())

	// no execution in progress
	st.Cancel()

	errc := make(chan error, 1)
	go func() {
		_, err := st.ExecuteQuery(context.Background(), "SELECT slow")
		errc <- err
	}()

	require.Eventually(t, func() bool {
		st.Cancel()
		select {
		case err := <-errc:
			assert.True(t, errs.IsTimeout(err))
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStatement_CloseOnCompletion(t *testing.T) {
	ctx := context.Background()
	conn := NewConn(newFake(), nil)
	st, _ := conn.CreateStatement(cursor.DefaultOptions())

	require.NoError(t, st.CloseOnCompletion())
	on, _ := st.IsCloseOnCompletion()
	assert.True(t, on)

	rs, err := st.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)

	// replacing the cursor keeps the statement open
	rs2, err := st.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)
	assert.True(t, rs.IsClosed())
	assert.False(t, st.IsClosed())

	require.NoError(t, rs2.Close())
	assert.True(t, st.IsClosed())
}

func TestStatement_Closed(t *testing.T) {
	ctx := context.Background()
	conn := NewConn(newFake(), nil)
	st, _ := conn.CreateStatement(cursor.DefaultOptions())
	rs, err := st.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	assert.True(t, st.IsClosed())
	assert.True(t, rs.IsClosed())

	ops := map[string]func() error{
		"executeQuery":  func() error { _, err := st.ExecuteQuery(ctx, selectRows); return err },
		"executeUpdate": func() error { _, err := st.ExecuteUpdate(ctx, "UPDATE t SET label = 'x'"); return err },
		"resultSet":     func() error { _, err := st.ResultSet(); return err },
		"updateCount":   func() error { _, err := st.UpdateCount(); return err },
		"setTimeout":    func() error { return st.SetQueryTimeout(time.Second) },
		"timeout":       func() error { _, err := st.QueryTimeout(); return err },
		"setMaxRows":    func() error { return st.SetMaxRows(1) },
		"maxRows":       func() error { _, err := st.MaxRows(); return err },
		"closeOnComp":   func() error { return st.CloseOnCompletion() },
		"conn":          func() error { _, err := st.Conn(); return err },
	}
	for name, op := range ops {
		assert.True(t, errs.IsClosed(op()), name)
	}

	// Cancel never fails
	st.Cancel()
}

func TestConn_Transactions(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	conn := NewConn(fake, nil)

	assert.True(t, errs.IsInvalidOperation(conn.Commit(ctx)), "commit in auto-commit mode")

	require.NoError(t, conn.SetAutoCommit(ctx, false))
	on, _ := conn.AutoCommit()
	assert.False(t, on)

	held, _ := conn.CreateStatement(cursor.Options{Holdability: cursor.HoldOverCommit})
	scoped, _ := conn.CreateStatement(cursor.Options{Holdability: cursor.CloseAtCommit})

	heldRS, err := held.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)
	scopedRS, err := scoped.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)

	require.Len(t, fake.Txs(), 1, "transaction begun lazily and reused")
	for _, c := range fake.Calls() {
		assert.True(t, c.InTx)
	}

	require.NoError(t, conn.Commit(ctx))
	assert.True(t, fake.Txs()[0].Committed())
	assert.False(t, heldRS.IsClosed())
	assert.True(t, scopedRS.IsClosed())

	_, err = held.ExecuteUpdate(ctx, "UPDATE t SET label = 'x'")
	require.NoError(t, err)
	require.NoError(t, conn.Rollback(ctx))
	require.Len(t, fake.Txs(), 2)
	assert.True(t, fake.Txs()[1].RolledBack())

	// switching auto-commit back on commits the open transaction
	_, err = held.ExecuteUpdate(ctx, "UPDATE t SET label = 'x'")
	require.NoError(t, err)
	require.NoError(t, conn.SetAutoCommit(ctx, true))
	assert.True(t, fake.Txs()[2].Committed())
}

func TestConn_CommitScopedTracking(t *testing.T) {
	ctx := context.Background()
	conn := NewConn(newFake(), nil)
	scoped, err := conn.CreateStatement(cursor.Options{Holdability: cursor.CloseAtCommit})
	require.NoError(t, err)

	for range 3 {
		_, err := scoped.ExecuteQuery(ctx, selectRows)
		require.NoError(t, err)
	}
	assert.Empty(t, conn.commitScoped, "auto-commit mode keeps nothing")

	require.NoError(t, conn.SetAutoCommit(ctx, false))
	first, err := scoped.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	second, err := scoped.ExecuteQuery(ctx, selectRows)
	require.NoError(t, err)
	assert.Len(t, conn.commitScoped, 1, "closed cursors are pruned")

	require.NoError(t, conn.Commit(ctx))
	assert.True(t, second.IsClosed())
	assert.Empty(t, conn.commitScoped)
}

func TestConn_Close(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	conn := NewConn(fake, nil)

	require.NoError(t, conn.SetAutoCommit(ctx, false))
	st, _ := conn.CreateStatement(cursor.DefaultOptions())
	_, err := st.ExecuteUpdate(ctx, "UPDATE t SET label = 'x'")
	require.NoError(t, err)

	require.NoError(t, conn.Close(ctx))
	require.NoError(t, conn.Close(ctx))
	assert.True(t, conn.IsClosed())
	assert.True(t, st.IsClosed())
	assert.True(t, fake.Txs()[0].RolledBack())
	assert.False(t, fake.IsClosed(), "pool stays open")

	ops := map[string]func() error{
		"createStatement": func() error { _, err := conn.CreateStatement(cursor.DefaultOptions()); return err },
		"prepare":         func() error { _, err := conn.Prepare(selectRows, cursor.DefaultOptions()); return err },
		"prepareCall":     func() error { _, err := conn.PrepareCall("SELECT 1"); return err },
		"autoCommit":      func() error { return conn.SetAutoCommit(ctx, true) },
		"commit":          func() error { return conn.Commit(ctx) },
		"rollback":        func() error { return conn.Rollback(ctx) },
		"capabilities":    func() error { _, err := conn.Capabilities(); return err },
		"createBlob":      func() error { _, err := conn.CreateBlob(); return err },
		"createArray":     func() error { _, err := conn.CreateArrayOf("int4", nil); return err },
	}
	for name, op := range ops {
		assert.True(t, errs.IsClosed(op()), name)
	}
}

func TestConn_Unsupported(t *testing.T) {
	fake := dbtest.New().WithCapabilities(database.Capabilities{Product: "bare"})
	conn := NewConn(fake, nil)

	_, err := conn.CreateArrayOf("int4", []any{1})
	assert.True(t, errs.IsUnsupported(err))
	_, err = conn.CreateSQLXML()
	assert.True(t, errs.IsUnsupported(err))
	_, err = conn.PrepareCall("CALL p()")
	assert.True(t, errs.IsUnsupported(err))

	b, err := conn.CreateBlob()
	require.NoError(t, err)
	n, _ := b.Length()
	assert.Zero(t, n)
}

func TestPrepared(t *testing.T) {
	ctx := context.Background()
	const q = "SELECT id, label FROM t WHERE id > $1 AND label <> '$9' AND id < $2"
	fake := newFake().On(q, rowsResult())
	conn := NewConn(fake, nil)

	ps, err := conn.Prepare(q, cursor.DefaultOptions())
	require.NoError(t, err)

	n, _ := ps.ParameterCount()
	assert.Equal(t, 2, n)

	require.NoError(t, ps.SetParam(1, int64(0)))
	assert.True(t, errs.IsInvalidInput(ps.SetParam(3, 1)))
	assert.True(t, errs.IsInvalidInput(ps.SetParam(0, 1)))

	_, err = ps.Query(ctx)
	assert.True(t, errs.IsInvalidInput(err), "parameter 2 unset")

	require.NoError(t, ps.SetParam(2, lob.NewClob("ten")))
	rs, err := ps.Query(ctx)
	require.NoError(t, err)
	assert.False(t, rs.IsClosed())

	calls := fake.Calls()
	assert.Equal(t, []any{int64(0), "ten"}, calls[len(calls)-1].Args)

	require.NoError(t, ps.ClearParameters())
	_, err = ps.Query(ctx)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestCountParams(t *testing.T) {
	tests := []struct {
		sql     string
		dialect database.Dialect
		want    int
	}{
		{"SELECT 1", database.DialectPostgres, 0},
		{"SELECT $1, $2, $1", database.DialectPostgres, 2},
		{"SELECT '$5', $1", database.DialectPostgres, 1},
		{"SELECT ?, ?", database.DialectMySQL, 2},
		{"SELECT '?', `a?`, ?", database.DialectMySQL, 1},
		{"SELECT ?", database.DialectPostgres, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, countParams(tt.sql, tt.dialect), tt.sql)
	}
}

func TestBindValue(t *testing.T) {
	rid, _ := rowid.Parse("02b7abfe")
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"blob", lob.NewBlob([]byte{1, 2}), []byte{1, 2}},
		{"clob", lob.NewClob("c"), "c"},
		{"nclob", lob.NewNClob("n"), "n"},
		{"xml", lob.SQLXMLFrom("<a/>"), "<a/>"},
		{"array", array.New("int4", []any{1, 2}), []any{1, 2}},
		{"rowid", rid, []byte{0x02, 0xb7, 0xab, 0xfe}},
		{"plain", 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bindValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	freed := lob.NewBlob(nil)
	_ = freed.Free()
	_, err := bindValue(freed)
	assert.True(t, errs.IsClosed(err))
}

func TestCallable(t *testing.T) {
	ctx := context.Background()
	const call = "SELECT * FROM conform_proc($1)"
	fake := procFake().On(call, dbtest.Result{
		Columns: []database.ColumnType{{Name: "a", TypeName: "text"}, {Name: "b", TypeName: "int8"}, {Name: "c", TypeName: "_int4"}},
		Rows:    [][]any{{"out-a", int64(42), []any{int32(1), int32(2)}}},
	})
	conn := NewConn(fake, nil)

	cs, err := conn.PrepareCall(call)
	require.NoError(t, err)
	require.NoError(t, cs.SetParam(1, "in"))
	require.NoError(t, cs.RegisterOutParameter(5, "_int4"))
	require.NoError(t, cs.RegisterOutParameter(2, "text"))
	require.NoError(t, cs.RegisterOutParameter(3, "int8"))
	assert.True(t, errs.IsInvalidInput(cs.RegisterOutParameter(0, "text")))

	_, err = cs.GetString(2)
	assert.True(t, errs.IsInvalidOperation(err), "before execute")

	require.NoError(t, cs.Execute(ctx))

	s, err := cs.GetString(2)
	require.NoError(t, err)
	assert.Equal(t, "out-a", s)

	n, err := cs.GetInt64(3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	arr, err := cs.GetArray(5)
	require.NoError(t, err)
	base, _ := arr.BaseTypeName()
	assert.Equal(t, "int4", base)
	elems, _ := arr.Elements()
	assert.Equal(t, []any{int32(1), int32(2)}, elems)

	wasNull, _ := cs.WasNull()
	assert.False(t, wasNull)

	_, err = cs.GetObject(4)
	assert.True(t, errs.IsInvalidInput(err), "not registered")

	require.NoError(t, cs.Close())
	_, err = cs.GetObject(2)
	assert.True(t, errs.IsClosed(err))
}

func TestCallable_NoRows(t *testing.T) {
	ctx := context.Background()
	fake := procFake().On("CALL p()", dbtest.Result{Columns: []database.ColumnType{{Name: "x", TypeName: "text"}}})
	conn := NewConn(fake, nil)

	cs, err := conn.PrepareCall("CALL p()")
	require.NoError(t, err)
	require.NoError(t, cs.RegisterOutParameter(1, "text"))
	require.NoError(t, cs.Execute(ctx))

	v, err := cs.GetObject(1)
	require.NoError(t, err)
	assert.Nil(t, v)
	wasNull, _ := cs.WasNull()
	assert.True(t, wasNull)

	c, err := cs.GetClob(1)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCursorGetters(t *testing.T) {
	meta := cursor.NewMetadata(
		cursor.Column{Name: "b", TypeName: "bytea"},
		cursor.Column{Name: "c", TypeName: "text"},
		cursor.Column{Name: "a", TypeName: "_text"},
		cursor.Column{Name: "r", TypeName: "bytea"},
		cursor.Column{Name: "x", TypeName: "xml"},
	)
	cur := cursor.New(meta, [][]any{{[]byte("bin"), "chars", []string{"p", "q"}, "cafe", "<x/>"}}, cursor.DefaultOptions())

	_, err := GetBlob(cur, 1)
	assert.True(t, errs.IsInvalidCursorPosition(err))

	ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)

	b, err := GetBlob(cur, 1)
	require.NoError(t, err)
	got, _ := b.Bytes(1, 3)
	assert.Equal(t, []byte("bin"), got)

	c, err := GetClob(cur, 2)
	require.NoError(t, err)
	s, _ := c.String()
	assert.Equal(t, "chars", s)

	nc, err := GetNClob(cur, 2)
	require.NoError(t, err)
	assert.True(t, nc.IsNational())

	a, err := GetArray(cur, 3)
	require.NoError(t, err)
	base, _ := a.BaseTypeName()
	assert.Equal(t, "text", base)

	r, err := GetRowID(cur, 4)
	require.NoError(t, err)
	assert.Equal(t, "cafe", r.String())

	x, err := GetSQLXML(cur, 5)
	require.NoError(t, err)
	doc, _ := x.String()
	assert.Equal(t, "<x/>", doc)

	require.NoError(t, cur.Close())
	_, err = GetBlob(cur, 1)
	assert.True(t, errs.IsClosed(err))
}
