package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/errs"
)

type closedCall struct {
	name string
	call func() error
}

func expectAllClosed(calls []closedCall) error {
	for _, c := range calls {
		if err := expectKind(c.call(), errs.ErrKindClosed, c.name); err != nil {
			return err
		}
	}
	return nil
}

func closedCases(*Env) []Case {
	return []Case{
		{Name: "statement", Run: closedStatementCase},
		{Name: "prepared statement", Run: closedPreparedCase},
		{Name: "connection", Run: closedConnCase},
		{Name: "result set", Run: closedCursorCase},
		{Name: "cascade", Run: closeCascadeCase},
	}
}

func closedStatementCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	s, err := env.Factory.Statement(conn, cursor.DefaultOptions())
	if err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("second close: %w", err)
	}
	s.Cancel()

	sql, err := env.Fixture.SelectSQL()
	if err != nil {
		return err
	}
	return expectAllClosed([]closedCall{
		{"executeQuery", func() error { _, err := s.ExecuteQuery(ctx, sql); return err }},
		{"executeUpdate", func() error { _, err := s.ExecuteUpdate(ctx, sql); return err }},
		{"resultSet", func() error { _, err := s.ResultSet(); return err }},
		{"updateCount", func() error { _, err := s.UpdateCount(); return err }},
		{"setQueryTimeout", func() error { return s.SetQueryTimeout(time.Second) }},
		{"setMaxRows", func() error { return s.SetMaxRows(1) }},
		{"closeOnCompletion", func() error { return s.CloseOnCompletion() }},
		{"connection", func() error { _, err := s.Conn(); return err }},
	})
}

func closedPreparedCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	sql, err := env.Fixture.SelectSQL()
	if err != nil {
		return err
	}
	p, err := env.Factory.Prepare(conn, sql, cursor.DefaultOptions())
	if err != nil {
		return err
	}
	if err := p.Close(); err != nil {
		return err
	}
	return expectAllClosed([]closedCall{
		{"query", func() error { _, err := p.Query(ctx); return err }},
		{"update", func() error { _, err := p.Update(ctx); return err }},
		{"parameterCount", func() error { _, err := p.ParameterCount(); return err }},
		{"setParam", func() error { return p.SetParam(1, 1) }},
		{"clearParameters", func() error { return p.ClearParameters() }},
	})
}

func closedConnCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	if err := conn.Close(ctx); err != nil {
		return err
	}
	if err := conn.Close(ctx); err != nil {
		return fmt.Errorf("second close: %w", err)
	}
	return expectAllClosed([]closedCall{
		{"createStatement", func() error { _, err := conn.CreateStatement(cursor.DefaultOptions()); return err }},
		{"prepare", func() error { _, err := conn.Prepare("SELECT 1", cursor.DefaultOptions()); return err }},
		{"prepareCall", func() error { _, err := conn.PrepareCall("SELECT 1"); return err }},
		{"setAutoCommit", func() error { return conn.SetAutoCommit(ctx, false) }},
		{"commit", func() error { return conn.Commit(ctx) }},
		{"rollback", func() error { return conn.Rollback(ctx) }},
		{"createBlob", func() error { _, err := conn.CreateBlob(); return err }},
		{"createClob", func() error { _, err := conn.CreateClob(); return err }},
		{"createArrayOf", func() error { _, err := conn.CreateArrayOf("int4", nil); return err }},
	})
}

// closedCursorCase checks that metadata taken before Close stays usable.
func closedCursorCase(ctx context.Context, env *Env) error {
	cur, err := env.OpenFixture(ctx, cursor.Options{Scroll: cursor.ScrollInsensitive})
	if err != nil {
		return err
	}
	meta, err := cur.Metadata()
	if err != nil {
		return err
	}
	if err := cur.Close(); err != nil {
		return err
	}

	if err := expectEqual(meta.ColumnCount(), 2, "column count after close"); err != nil {
		return err
	}
	name, err := meta.ColumnName(2)
	if err != nil {
		return err
	}
	if err := expectEqual(name, "label", "column name after close"); err != nil {
		return err
	}
	return expectAllClosed([]closedCall{
		{"metadata", func() error { _, err := cur.Metadata(); return err }},
		{"wasNull", func() error { _, err := cur.WasNull(); return err }},
		{"findColumn", func() error { _, err := cur.FindColumn("id"); return err }},
		{"absolute", func() error { _, err := cur.Absolute(1); return err }},
		{"setFetchSize", func() error { return cur.SetFetchSize(10) }},
	})
}

// closeCascadeCase checks that closing a connection closes its statements
// and their cursors.
func closeCascadeCase(ctx context.Context, env *Env) error {
	conn, err := env.Factory.Connect(ctx)
	if err != nil {
		return err
	}
	s, err := env.Factory.Statement(conn, cursor.DefaultOptions())
	if err != nil {
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
	if err := conn.Close(ctx); err != nil {
		return err
	}
	if err := expectEqual(s.IsClosed(), true, "statement closed"); err != nil {
		return err
	}
	return expectEqual(cur.IsClosed(), true, "cursor closed")
}
