// Package harness runs the conformance suites against a live backend.
//
// A Runner opens the database through an Opener, seeds the fixture table,
// then runs every case of the selected suites with a shared Env. Cursor
// cases are tables of Steps checked by Validate; the other suites are plain
// functions. Everything a case opens goes through the Factory and is closed
// when the run ends.
package harness

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/logger"
)

// Env is what a case may use. It is built once per run.
type Env struct {
	Caps    database.Capabilities
	Expect  *database.Capabilities
	Dialect database.Dialect
	Fixture *Fixture
	Factory *Factory
	LOBs    lob.Store
	Log     *logger.Logger
}

// OpenFixture returns a cursor over the fixture rows with the given options.
func (e *Env) OpenFixture(ctx context.Context, opts cursor.Options) (*cursor.Cursor, error) {
	sql, err := e.Fixture.SelectSQL()
	if err != nil {
		return nil, err
	}
	return e.Factory.Query(ctx, opts, sql)
}

// Case is one named check.
type Case struct {
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Suite groups related cases.
type Suite struct {
	Name  string
	Cases func(env *Env) []Case
}

// Suites returns every built-in suite in run order.
func Suites() []Suite {
	return []Suite{
		{Name: "cursor", Cases: cursorCases},
		{Name: "lob", Cases: lobCases},
		{Name: "rowid", Cases: rowidCases},
		{Name: "array", Cases: arrayCases},
		{Name: "closed", Cases: closedCases},
		{Name: "sqlstate", Cases: sqlstateCases},
		{Name: "capabilities", Cases: capabilityCases},
		{Name: "statement", Cases: statementCases},
	}
}

// ErrSkipped marks a case that does not apply to the backend.
var ErrSkipped = errors.New("skipped")

func skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

func expectKind(err error, kind errs.ErrKind, what string) error {
	if err == nil {
		return fmt.Errorf("%s: want %s error, got success", what, kind)
	}
	if errs.KindOf(err) != kind {
		return fmt.Errorf("%s: want %s error, got %s: %w", what, kind, errs.KindOf(err), err)
	}
	return nil
}

func expectEqual(got, want any, what string) error {
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("%s: want %v, got %v", what, want, got)
	}
	return nil
}
