package harness

import (
	"context"
	"fmt"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
)

func capabilityCases(*Env) []Case {
	return []Case{
		{Name: "reported", Run: reportedCapabilitiesCase},
		{Name: "sqlxml", Run: sqlxmlCapabilityCase},
		{Name: "stored procedures", Run: procedureCapabilityCase},
	}
}

func reportedCapabilitiesCase(_ context.Context, env *Env) error {
	want := env.Expect
	if want == nil {
		return skip("no expected capabilities configured")
	}
	got := env.Caps
	if want.Product != "" {
		if err := expectEqual(got.Product, want.Product, "product"); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name      string
		got, want bool
	}{
		{"transactions", got.Transactions, want.Transactions},
		{"stored procedures", got.StoredProcedures, want.StoredProcedures},
		{"arrays", got.Arrays, want.Arrays},
		{"row ids", got.RowIDs, want.RowIDs},
		{"sqlxml", got.SQLXML, want.SQLXML},
	} {
		if err := expectEqual(f.got, f.want, f.name); err != nil {
			return err
		}
	}
	return nil
}

func sqlxmlCapabilityCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	x, err := conn.CreateSQLXML()
	if !env.Caps.SQLXML {
		return expectKind(err, errs.ErrKindUnsupported, "createSQLXML")
	}
	if err != nil {
		return err
	}
	defer x.Free()
	return x.SetString("<conform/>")
}

func procedureCapabilityCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	cs, err := conn.PrepareCall(callSQL(env.Dialect))
	if !env.Caps.StoredProcedures {
		return expectKind(err, errs.ErrKindUnsupported, "prepareCall")
	}
	if err != nil {
		return err
	}
	return cs.Close()
}

func statementCases(*Env) []Case {
	return []Case{
		{Name: "transactions", Run: transactionCase},
		{Name: "max rows", Run: maxRowsCase},
		{Name: "update count", Run: updateCountCase},
		{Name: "prepared", Run: preparedCase},
		{Name: "callable", Run: callableCase},
		{Name: "cancel idle", Run: cancelIdleCase},
	}
}

// transactionCase checks that commit closes CloseAtCommit cursors and
// leaves HoldOverCommit cursors open.
func transactionCase(ctx context.Context, env *Env) error {
	if !env.Caps.Transactions {
		return skip("backend has no transactions")
	}
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	if err := expectKind(conn.Commit(ctx), errs.ErrKindInvalidOperation, "commit in auto-commit"); err != nil {
		return err
	}
	if err := conn.SetAutoCommit(ctx, false); err != nil {
		return err
	}

	sql, err := env.Fixture.SelectSQL()
	if err != nil {
		return err
	}
	scoped, err := env.Factory.Statement(conn, cursor.Options{Holdability: cursor.CloseAtCommit})
	if err != nil {
		return err
	}
	held, err := env.Factory.Statement(conn, cursor.Options{Holdability: cursor.HoldOverCommit})
	if err != nil {
		return err
	}
	scopedRS, err := scoped.ExecuteQuery(ctx, sql)
	if err != nil {
		return err
	}
	heldRS, err := held.ExecuteQuery(ctx, sql)
	if err != nil {
		return err
	}
	if err := conn.Commit(ctx); err != nil {
		return err
	}
	if err := expectEqual(scopedRS.IsClosed(), true, "close-at-commit cursor closed"); err != nil {
		return err
	}
	if err := expectEqual(heldRS.IsClosed(), false, "held cursor open"); err != nil {
		return err
	}
	if _, err := scoped.ExecuteQuery(ctx, sql); err != nil {
		return err
	}
	if err := conn.Rollback(ctx); err != nil {
		return err
	}
	return conn.SetAutoCommit(ctx, true)
}

func maxRowsCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	s, err := env.Factory.Statement(conn, cursor.Options{Scroll: cursor.ScrollInsensitive})
	if err != nil {
		return err
	}
	if err := expectKind(s.SetMaxRows(-1), errs.ErrKindInvalidInput, "negative max rows"); err != nil {
		return err
	}
	if err := expectKind(s.SetQueryTimeout(-1), errs.ErrKindInvalidInput, "negative timeout"); err != nil {
		return err
	}
	if err := s.SetMaxRows(1); err != nil {
		return err
	}
	sql, err := env.Fixture.SelectSQL()
	if err != nil {
		return err
	}
	cur, err := s.ExecuteQuery(ctx, sql)
	if err != nil {
		return err
	}
	return Validate(cur, []Step{
		{Op: OpLast, Want: true},
		{Op: OpRow, Want: 1},
		{Op: OpGetInt64, Arg: 1, Want: int64(1)},
	})
}

func updateCountCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	s, err := env.Factory.Statement(conn, cursor.DefaultOptions())
	if err != nil {
		return err
	}
	sql, args, err := database.Insert(env.Fixture.Table(), env.Dialect).
		Columns("id", "label").
		Values(int64(env.Fixture.Rows()+100), "update-count").
		Build()
	if err != nil {
		return err
	}
	n, err := s.ExecuteUpdate(ctx, sql, args...)
	if err != nil {
		return err
	}
	if err := expectEqual(n, int64(1), "affected rows"); err != nil {
		return err
	}
	count, err := s.UpdateCount()
	if err != nil {
		return err
	}
	if err := expectEqual(count, n, "update count"); err != nil {
		return err
	}
	rs, err := s.ResultSet()
	if err != nil {
		return err
	}
	if rs != nil {
		return fmt.Errorf("result set after update: want nil")
	}
	return nil
}

func preparedCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	sql, err := env.Fixture.SelectByIDSQL()
	if err != nil {
		return err
	}
	p, err := env.Factory.Prepare(conn, sql, cursor.DefaultOptions())
	if err != nil {
		return err
	}
	count, err := p.ParameterCount()
	if err != nil {
		return err
	}
	if err := expectEqual(count, 1, "parameter count"); err != nil {
		return err
	}
	_, err = p.Query(ctx)
	if err := expectKind(err, errs.ErrKindInvalidInput, "query with unset parameter"); err != nil {
		return err
	}
	if err := expectKind(p.SetParam(2, 1), errs.ErrKindInvalidInput, "parameter 2"); err != nil {
		return err
	}

	id := env.Fixture.Rows()
	if err := p.SetParam(1, int64(id)); err != nil {
		return err
	}
	cur, err := p.Query(ctx)
	if err != nil {
		return err
	}
	return Validate(cur, []Step{
		{Op: OpNext, Want: true},
		{Op: OpGetString, Arg: 2, Want: Label(id)},
		{Op: OpNext, Want: false},
	})
}

// callableCase reads out values from a function-style call.
func callableCase(ctx context.Context, env *Env) error {
	if !env.Caps.StoredProcedures {
		return skip("backend has no stored procedures")
	}
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	cs, err := conn.PrepareCall(callSQL(env.Dialect))
	if err != nil {
		return err
	}
	defer cs.Close()

	if err := cs.RegisterOutParameter(1, "text"); err != nil {
		return err
	}
	if err := cs.RegisterOutParameter(2, "int8"); err != nil {
		return err
	}
	_, err = cs.GetString(1)
	if err := expectKind(err, errs.ErrKindInvalidOperation, "get before execute"); err != nil {
		return err
	}
	if err := cs.SetParam(1, "conform"); err != nil {
		return err
	}
	if err := cs.Execute(ctx); err != nil {
		return err
	}

	s, err := cs.GetString(1)
	if err != nil {
		return err
	}
	if err := expectEqual(s, "conform", "out 1"); err != nil {
		return err
	}
	n, err := cs.GetInt64(2)
	if err != nil {
		return err
	}
	if err := expectEqual(n, int64(42), "out 2"); err != nil {
		return err
	}
	wasNull, err := cs.WasNull()
	if err != nil {
		return err
	}
	return expectEqual(wasNull, false, "wasNull")
}

func cancelIdleCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	s, err := env.Factory.Statement(conn, cursor.DefaultOptions())
	if err != nil {
		return err
	}
	s.Cancel()
	sql, err := env.Fixture.SelectSQL()
	if err != nil {
		return err
	}
	_, err = s.ExecuteQuery(ctx, sql)
	return err
}

func callSQL(d database.Dialect) string {
	if d == database.DialectMySQL {
		return "SELECT CAST(? AS CHAR) AS a, CAST(42 AS SIGNED) AS b"
	}
	return "SELECT CAST($1 AS text) AS a, CAST(42 AS bigint) AS b"
}
