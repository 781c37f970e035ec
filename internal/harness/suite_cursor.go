package harness

import (
	"context"
	"fmt"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/errs"
)

var (
	scrollModes      = []cursor.Scrollability{cursor.ForwardOnly, cursor.ScrollInsensitive, cursor.ScrollSensitive}
	concurrencyModes = []cursor.Concurrency{cursor.ReadOnly, cursor.Updatable}
)

type scenario struct {
	name  string
	steps []Step
}

// cursorCases runs every lifecycle scenario for each combination of
// scrollability and concurrency.
func cursorCases(env *Env) []Case {
	n := env.Fixture.Rows()

	var cases []Case
	for _, scroll := range scrollModes {
		for _, conc := range concurrencyModes {
			opts := cursor.Options{Scroll: scroll, Concurrency: conc}
			for _, sc := range cursorScenarios(n, opts) {
				cases = append(cases, Case{
					Name: fmt.Sprintf("%s/%s/%s", scroll, conc, sc.name),
					Run:  validateFixture(opts, sc.steps),
				})
			}
		}
	}
	return cases
}

func validateFixture(opts cursor.Options, steps []Step) func(context.Context, *Env) error {
	return func(ctx context.Context, env *Env) error {
		cur, err := env.OpenFixture(ctx, opts)
		if err != nil {
			return err
		}
		defer cur.Close()
		return Validate(cur, steps)
	}
}

func cursorScenarios(n int, opts cursor.Options) []scenario {
	forward := opts.Scroll == cursor.ForwardOnly
	updatable := opts.Concurrency == cursor.Updatable

	scroll := scrollSteps(n)
	if forward {
		scroll = forwardOnlySteps()
	}

	return []scenario{
		{"initial position", initialSteps()},
		{"forward traversal", traversalSteps(n)},
		{"scrolling", scroll},
		{"update row", updateSteps(updatable)},
		{"delete row", deleteSteps(n, updatable)},
		{"insert row", insertSteps(n, forward, updatable)},
		{"close", closeSteps()},
	}
}

func initialSteps() []Step {
	return []Step{
		{Op: OpIsBeforeFirst, Want: true},
		{Op: OpIsAfterLast, Want: false},
		{Op: OpRow, Want: 0},
		{Op: OpGetObject, Arg: 1, Fails: errs.ErrKindInvalidCursorPosition},
	}
}

func traversalSteps(n int) []Step {
	var steps []Step
	for i := 1; i <= n; i++ {
		steps = append(steps,
			Step{Op: OpNext, Want: true},
			Step{Op: OpRow, Want: i},
			Step{Op: OpIsFirst, Want: i == 1},
			Step{Op: OpIsLast, Want: i == n},
			Step{Op: OpGetInt64, Arg: 1, Want: int64(i)},
			Step{Op: OpGetString, Arg: 2, Want: Label(i)},
		)
	}
	return append(steps,
		Step{Op: OpNext, Want: false},
		Step{Op: OpIsAfterLast, Want: true},
		Step{Op: OpRow, Want: 0},
		Step{Op: OpGetObject, Arg: 1, Fails: errs.ErrKindInvalidCursorPosition},
		Step{Op: OpNext, Want: false},
		Step{Op: OpGetInt64, Arg: 3, Fails: errs.ErrKindInvalidCursorPosition},
	)
}

func forwardOnlySteps() []Step {
	return []Step{
		{Op: OpPrevious, Fails: errs.ErrKindInvalidOperation},
		{Op: OpFirst, Fails: errs.ErrKindInvalidOperation},
		{Op: OpLast, Fails: errs.ErrKindInvalidOperation},
		{Op: OpBeforeFirst, Fails: errs.ErrKindInvalidOperation},
		{Op: OpAfterLast, Fails: errs.ErrKindInvalidOperation},
		{Op: OpAbsolute, Arg: 1, Fails: errs.ErrKindInvalidOperation},
		{Op: OpRelative, Arg: 1, Fails: errs.ErrKindInvalidOperation},
		{Op: OpAbsolute, Arg: 0, Want: false},
		{Op: OpRelative, Arg: 0, Want: false},
		{Op: OpNext, Want: true},
		{Op: OpRelative, Arg: 0, Want: true},
		{Op: OpAbsolute, Arg: 1, Want: true},
		{Op: OpRow, Want: 1},
	}
}

func scrollSteps(n int) []Step {
	return []Step{
		{Op: OpLast, Want: true},
		{Op: OpRow, Want: n},
		{Op: OpIsLast, Want: true},
		{Op: OpFirst, Want: true},
		{Op: OpRow, Want: 1},
		{Op: OpIsFirst, Want: true},
		{Op: OpAfterLast},
		{Op: OpIsAfterLast, Want: true},
		{Op: OpPrevious, Want: true},
		{Op: OpRow, Want: n},
		{Op: OpBeforeFirst},
		{Op: OpIsBeforeFirst, Want: true},
		{Op: OpPrevious, Want: false},
		{Op: OpIsBeforeFirst, Want: true},
		{Op: OpAbsolute, Arg: -1, Want: true},
		{Op: OpRow, Want: n},
		{Op: OpAbsolute, Arg: n + 1, Want: false},
		{Op: OpIsAfterLast, Want: true},
		{Op: OpAbsolute, Arg: 1, Want: true},
		{Op: OpRelative, Arg: n - 1, Want: true},
		{Op: OpRow, Want: n},
		{Op: OpRelative, Arg: 1, Want: false},
		{Op: OpIsAfterLast, Want: true},
		{Op: OpRelative, Arg: -(n + 5), Want: false},
		{Op: OpIsBeforeFirst, Want: true},
		{Op: OpAbsolute, Arg: -(n + 1), Want: false},
		{Op: OpIsBeforeFirst, Want: true},
		{Op: OpAbsolute, Arg: 0, Want: false},
		{Op: OpGetObject, Arg: 1, Fails: errs.ErrKindInvalidCursorPosition},
	}
}

func updateSteps(updatable bool) []Step {
	if !updatable {
		return []Step{
			{Op: OpNext, Want: true},
			{Op: OpUpdateRow, Arg: 2, Values: []any{"changed"}, Fails: errs.ErrKindInvalidOperation},
			{Op: OpGetString, Arg: 2, Want: Label(1)},
		}
	}
	return []Step{
		{Op: OpUpdateRow, Arg: 2, Values: []any{"changed"}, Fails: errs.ErrKindInvalidCursorPosition},
		{Op: OpNext, Want: true},
		{Op: OpUpdateRow, Arg: 2, Values: []any{"changed"}},
		{Op: OpGetString, Arg: 2, Want: "changed"},
		{Op: OpGetInt64, Arg: 1, Want: int64(1)},
		{Op: OpRow, Want: 1},
	}
}

func deleteSteps(n int, updatable bool) []Step {
	if !updatable {
		return []Step{
			{Op: OpNext, Want: true},
			{Op: OpDeleteRow, Fails: errs.ErrKindInvalidOperation},
			{Op: OpGetInt64, Arg: 1, Want: int64(1)},
		}
	}
	steps := []Step{
		{Op: OpDeleteRow, Fails: errs.ErrKindInvalidCursorPosition},
		{Op: OpNext, Want: true},
		{Op: OpDeleteRow},
		{Op: OpNext, Want: n > 1},
	}
	if n > 1 {
		steps = append(steps,
			Step{Op: OpRow, Want: 1},
			Step{Op: OpGetInt64, Arg: 1, Want: int64(2)},
		)
	}
	return steps
}

func insertSteps(n int, forward, updatable bool) []Step {
	row := []any{int64(n + 1), "inserted"}
	if !updatable {
		return []Step{
			{Op: OpInsertRow, Values: row, Fails: errs.ErrKindInvalidOperation},
			{Op: OpIsBeforeFirst, Want: true},
		}
	}

	steps := []Step{{Op: OpInsertRow, Values: row}}
	if forward {
		for range n + 1 {
			steps = append(steps, Step{Op: OpNext, Want: true})
		}
		return append(steps,
			Step{Op: OpGetInt64, Arg: 1, Want: int64(n + 1)},
			Step{Op: OpGetString, Arg: 2, Want: "inserted"},
			Step{Op: OpNext, Want: false},
		)
	}
	return append(steps,
		Step{Op: OpLast, Want: true},
		Step{Op: OpRow, Want: n + 1},
		Step{Op: OpGetString, Arg: 2, Want: "inserted"},
	)
}

func closeSteps() []Step {
	return []Step{
		{Op: OpNext, Want: true},
		{Op: OpClose},
		{Op: OpIsClosed, Want: true},
		{Op: OpNext, Fails: errs.ErrKindClosed},
		{Op: OpFirst, Fails: errs.ErrKindClosed},
		{Op: OpRow, Fails: errs.ErrKindClosed},
		{Op: OpGetObject, Arg: 1, Fails: errs.ErrKindClosed},
		{Op: OpUpdateRow, Arg: 2, Values: []any{"x"}, Fails: errs.ErrKindClosed},
		{Op: OpIsBeforeFirst, Fails: errs.ErrKindClosed},
		{Op: OpClose},
	}
}
