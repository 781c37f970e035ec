package harness

import (
	"context"
	"fmt"

	"github.com/koustreak/sqlconform/internal/errs"
)

type stateCase struct {
	state     string
	category  errs.Category
	transient bool
}

var stateTable = []stateCase{
	{"08000", errs.CategoryTransientConnection, true},
	{"08001", errs.CategoryTransientConnection, true},
	{"08003", errs.CategoryNonTransientConnection, false},
	{"08004", errs.CategoryTransientConnection, true},
	{"08006", errs.CategoryTransientConnection, true},
	{"08S01", errs.CategoryTransientConnection, true},
	{"23000", errs.CategoryIntegrity, false},
	{"23505", errs.CategoryIntegrity, false},
	{"28000", errs.CategoryAuthorization, false},
	{"28P01", errs.CategoryAuthorization, false},
	{"40001", errs.CategoryTransactionRollback, false},
	{"40P01", errs.CategoryTransactionRollback, false},
	{"42000", errs.CategorySyntax, false},
	{"42601", errs.CategorySyntax, false},
	{"42S02", errs.CategorySyntax, false},
	{"22012", errs.CategoryGeneric, false},
	{"HY000", errs.CategoryGeneric, false},
	{"0", errs.CategoryGeneric, false},
	{"", errs.CategoryGeneric, false},
}

func sqlstateCases(*Env) []Case {
	return []Case{
		{Name: "classification", Run: classifyCase},
		{Name: "syntax error", Run: syntaxErrorCase},
		{Name: "duplicate key", Run: duplicateKeyCase},
	}
}

func classifyCase(context.Context, *Env) error {
	for _, tc := range stateTable {
		what := fmt.Sprintf("classify(%q)", tc.state)
		if err := expectEqual(errs.Classify(tc.state), tc.category, what); err != nil {
			return err
		}
		e := errs.FromSQLState(tc.state, "probe", nil)
		if err := expectEqual(e.Transient, tc.transient, what+" transient"); err != nil {
			return err
		}
		if err := expectEqual(e.Kind, tc.category.Kind(), what+" kind"); err != nil {
			return err
		}
	}
	return nil
}

// syntaxErrorCase sends malformed SQL and expects the backend's SQLSTATE to
// land in the syntax category.
func syntaxErrorCase(ctx context.Context, env *Env) error {
	db, err := env.Factory.DB(ctx)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, badSQL)
	return expectKind(err, errs.ErrKindSyntax, "malformed statement")
}

// duplicateKeyCase re-inserts the first fixture row.
func duplicateKeyCase(ctx context.Context, env *Env) error {
	db, err := env.Factory.DB(ctx)
	if err != nil {
		return err
	}
	sql, args, err := env.Fixture.InsertSQL(1)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, sql, args...)
	return expectKind(err, errs.ErrKindIntegrity, "duplicate key")
}

const badSQL = "SELEC 1"
