package harness

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/database/dbtest"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/filestore"
	"github.com/koustreak/sqlconform/internal/filestore/fstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureCols = []database.ColumnType{
	{Name: "id", TypeName: "int8"},
	{Name: "label", TypeName: "text"},
}

func fullCaps() database.Capabilities {
	return database.Capabilities{
		Product:          "fake",
		Transactions:     true,
		StoredProcedures: true,
		Arrays:           true,
		SQLXML:           true,
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Fixture = FixtureConfig{Table: "conform_test", Rows: 3}
	return cfg
}

// scriptedDB answers every statement the suites send to a Postgres-dialect
// backend.
func scriptedDB(t *testing.T, cfg *Config, caps database.Capabilities) *dbtest.DB {
	t.Helper()
	pg := database.DialectPostgres
	fx := NewFixture(cfg.Fixture, pg, nil)
	n := cfg.Fixture.Rows

	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i + 1), Label(i + 1)}
	}

	sel, err := fx.SelectSQL()
	require.NoError(t, err)
	byID, err := fx.SelectByIDSQL()
	require.NoError(t, err)
	seed, _, err := fx.seedSQL()
	require.NoError(t, err)
	dup, dupArgs, err := fx.InsertSQL(1)
	require.NoError(t, err)
	extra, extraArgs, err := database.Insert(cfg.Fixture.Table, pg).
		Columns("id", "label").
		Values(int64(n+100), "update-count").
		Build()
	require.NoError(t, err)

	return dbtest.New().
		WithCapabilities(caps).
		WithTable(cfg.Fixture.Table).
		On(fx.clearSQL(), dbtest.Result{Affected: int64(n)}).
		On(seed, dbtest.Result{Affected: int64(n)}).
		On(fx.dropSQL(), dbtest.Result{}).
		On(sel, dbtest.Result{Columns: fixtureCols, Rows: rows}).
		On(byID, dbtest.Result{Columns: fixtureCols, Rows: [][]any{{int64(n), Label(n)}}}).
		OnArgs(dup, dupArgs, dbtest.Result{Err: errs.FromSQLState("23505", "duplicate key value", nil)}).
		OnArgs(extra, extraArgs, dbtest.Result{Affected: 1}).
		On(badSQL, dbtest.Result{Err: errs.FromSQLState("42601", "syntax error at or near \"SELEC\"", nil)}).
		On(callSQL(pg), dbtest.Result{
			Columns: []database.ColumnType{{Name: "a", TypeName: "text"}, {Name: "b", TypeName: "int8"}},
			Rows:    [][]any{{"conform", int64(42)}},
		}).
		On(arrayQuery, dbtest.Result{
			Columns: []database.ColumnType{{Name: "a", TypeName: "_int4"}},
			Rows:    [][]any{{[]any{int32(1), int32(2), int32(3)}}},
		})
}

func openFake(db *dbtest.DB) Opener {
	return OpenerFunc(func(context.Context) (database.DB, error) { return db, nil })
}

func byStatus(rep *Report, s Status) []string {
	var names []string
	for _, r := range rep.Results {
		if r.Status == s {
			names = append(names, r.Name())
		}
	}
	return names
}

func TestRunner_AllPass(t *testing.T) {
	cfg := testConfig()
	caps := fullCaps()
	cfg.Expect = &caps
	db := scriptedDB(t, cfg, caps)

	rep, err := NewRunner(cfg, openFake(db), nil).Run(context.Background())
	require.NoError(t, err)

	for _, r := range rep.Results {
		assert.Equal(t, StatusPass, r.Status, "%s: %s", r.Name(), r.Error)
	}
	assert.False(t, rep.Failed())
	assert.Equal(t, "fake", rep.Backend)
	assert.Equal(t, caps, rep.Capabilities)
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))
	_, err = uuid.Parse(rep.ID)
	assert.NoError(t, err)

	env := &Env{Fixture: NewFixture(cfg.Fixture, database.DialectPostgres, nil)}
	total := 0
	for _, s := range Suites() {
		total += len(s.Cases(env))
	}
	assert.Len(t, rep.Results, total)

	assert.True(t, db.IsClosed())
	calls := db.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, `DROP TABLE IF EXISTS "conform_test"`, calls[len(calls)-1].SQL)

	txs := db.Txs()
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Committed())
	assert.True(t, txs[1].RolledBack())
}

func TestRunner_MinimalBackend(t *testing.T) {
	cfg := testConfig()
	db := scriptedDB(t, cfg, database.Capabilities{Product: "bare"})

	rep, err := NewRunner(cfg, openFake(db), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, byStatus(rep, StatusFail))
	assert.ElementsMatch(t, []string{
		"array/from column",
		"capabilities/reported",
		"statement/transactions",
		"statement/callable",
	}, byStatus(rep, StatusSkip))
}

func TestRunner_CapabilityMismatch(t *testing.T) {
	cfg := testConfig()
	caps := fullCaps()
	want := caps
	want.RowIDs = true
	cfg.Expect = &want
	cfg.Suites = []string{"capabilities"}

	rep, err := NewRunner(cfg, openFake(scriptedDB(t, cfg, caps)), nil).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"capabilities/reported"}, byStatus(rep, StatusFail))
	assert.Contains(t, rep.Results[0].Error, "row ids")
	assert.True(t, rep.Failed())
}

func TestRunner_CaseFailureRecorded(t *testing.T) {
	cfg := testConfig()
	cfg.Suites = []string{"sqlstate"}
	db := scriptedDB(t, cfg, fullCaps()).
		On(badSQL, dbtest.Result{Err: errs.New(errs.ErrKindQueryFailed, "something else")})

	rep, err := NewRunner(cfg, openFake(db), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"sqlstate/syntax error"}, byStatus(rep, StatusFail))
	assert.ElementsMatch(t, []string{"sqlstate/classification", "sqlstate/duplicate key"}, byStatus(rep, StatusPass))
}

func TestRunner_SelectedSuites(t *testing.T) {
	cfg := testConfig()
	cfg.Suites = []string{"rowid"}

	rep, err := NewRunner(cfg, openFake(scriptedDB(t, cfg, fullCaps())), nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Results, 3)
	for _, r := range rep.Results {
		assert.Equal(t, "rowid", r.Suite)
	}
}

func TestRunner_UnknownSuite(t *testing.T) {
	cfg := testConfig()
	cfg.Suites = []string{"nope"}
	opened := false
	open := OpenerFunc(func(context.Context) (database.DB, error) {
		opened = true
		return dbtest.New(), nil
	})

	_, err := NewRunner(cfg, open, nil).Run(context.Background())
	assert.True(t, errs.IsInvalidInput(err))
	assert.False(t, opened)
}

func TestRunner_SetupFailure(t *testing.T) {
	cfg := testConfig()
	db := dbtest.New()

	_, err := NewRunner(cfg, openFake(db), nil).Run(context.Background())
	assert.True(t, errs.IsQueryFailed(err))
	assert.True(t, db.IsClosed())
}

func TestRunner_OpenFailure(t *testing.T) {
	open := OpenerFunc(func(context.Context) (database.DB, error) {
		return nil, errs.New(errs.ErrKindConnectionFailed, "refused")
	})

	_, err := NewRunner(testConfig(), open, nil).Run(context.Background())
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestRunner_FileStore(t *testing.T) {
	cfg := testConfig()
	cfg.Suites = []string{"lob"}
	fs := fstest.New()

	rep, err := NewRunner(cfg, openFake(scriptedDB(t, cfg, fullCaps())), nil, WithFileStore(fs)).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, byStatus(rep, StatusFail))
	assert.True(t, fs.HasBucket(filestore.DefaultBucket))
	assert.Empty(t, fs.Keys(), "run objects are purged")
}
