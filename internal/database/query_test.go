package database_test

import (
	"errors"
	"testing"

	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/database/dbtest"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_Build(t *testing.T) {
	tests := []struct {
		name     string
		builder  *database.SelectBuilder
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "star postgres",
			builder: database.Select("conform_rows", database.DialectPostgres),
			wantSQL: `SELECT * FROM "conform_rows"`,
		},
		{
			name: "full postgres",
			builder: database.Select("conform_rows", database.DialectPostgres).
				Columns("id", "label").
				Where("id", ">", 2).
				Where("label", "like", "r%").
				OrderBy("id", database.Asc).
				OrderBy("label", database.Desc).
				Limit(10).
				Offset(5),
			wantSQL:  `SELECT "id", "label" FROM "conform_rows" WHERE "id" > $1 AND "label" LIKE $2 ORDER BY "id" ASC, "label" DESC LIMIT $3 OFFSET $4`,
			wantArgs: []any{2, "r%", 10, 5},
		},
		{
			name: "mysql",
			builder: database.Select("conform_rows", database.DialectMySQL).
				Columns("id").
				Where("id", "=", 1).
				Limit(1),
			wantSQL:  "SELECT `id` FROM `conform_rows` WHERE `id` = ? LIMIT ?",
			wantArgs: []any{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelect_Rejects(t *testing.T) {
	_, _, err := database.Select("t", database.DialectPostgres).Where("id", "; DROP", 1).Build()
	assert.True(t, errs.IsInvalidInput(err))

	_, _, err = database.Select("", database.DialectPostgres).Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestInsert_Build(t *testing.T) {
	sql, args, err := database.Insert("conform_rows", database.DialectPostgres).
		Columns("id", "label").
		Values(1, "one").
		Values(2, "two").
		Build()
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "conform_rows" ("id", "label") VALUES ($1, $2), ($3, $4)`, sql)
	assert.Equal(t, []any{1, "one", 2, "two"}, args)

	sql, _, err = database.Insert("conform_rows", database.DialectMySQL).
		Columns("id").
		Values(1).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `conform_rows` (`id`) VALUES (?)", sql)
}

func TestInsert_Rejects(t *testing.T) {
	_, _, err := database.Insert("t", database.DialectPostgres).Columns("a", "b").Values(1).Build()
	assert.True(t, errs.IsInvalidInput(err))

	_, _, err = database.Insert("t", database.DialectPostgres).Columns("a").Build()
	assert.True(t, errs.IsInvalidInput(err))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"we""ird"`, database.DialectPostgres.QuoteIdent(`we"ird`))
	assert.Equal(t, "`we``ird`", database.DialectMySQL.QuoteIdent("we`ird"))
}

func TestMaterialize(t *testing.T) {
	cols := []database.ColumnType{{Name: "id", TypeName: "INT8"}, {Name: "label", TypeName: "TEXT"}}
	data := [][]any{{int64(1), "a"}, {int64(2), nil}, {int64(3), "c"}}

	rows := dbtest.NewRows(cols, data)
	gotCols, gotRows, err := database.Materialize(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, cols, gotCols)
	assert.Equal(t, data, gotRows)
	assert.True(t, rows.IsClosed())

	_, capped, err := database.Materialize(dbtest.NewRows(cols, data), 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)

	_, empty, err := database.Materialize(dbtest.NewRows(cols, nil), 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMaterialize_KeepsClassifiedErrors(t *testing.T) {
	cols := []database.ColumnType{{Name: "id", TypeName: "INT8"}}
	tests := []struct {
		name      string
		err       error
		kind      errs.ErrKind
		transient bool
	}{
		{"integrity", errs.FromSQLState("23505", "duplicate key value", nil), errs.ErrKindIntegrity, false},
		{"transient connection", errs.FromSQLState("08006", "connection failure", nil), errs.ErrKindConnectionFailed, true},
		{"raw driver error", errors.New("broken pipe"), errs.ErrKindQueryFailed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := dbtest.NewRows(cols, [][]any{{int64(1)}}).WithErr(tt.err)
			_, _, err := database.Materialize(rows, 0)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))
			assert.Equal(t, tt.transient, errs.IsTransient(err))
			assert.True(t, rows.IsClosed())
		})
	}
}

func TestScanMaps(t *testing.T) {
	cols := []database.ColumnType{{Name: "id"}, {Name: "label"}}
	maps, err := database.ScanMaps(dbtest.NewRows(cols, [][]any{{int64(1), "a"}}))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": int64(1), "label": "a"}}, maps)
}
