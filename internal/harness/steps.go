package harness

import (
	"fmt"
	"reflect"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/errs"
)

// Op is one cursor call the validator can make.
type Op int

const (
	OpNext Op = iota
	OpPrevious
	OpFirst
	OpLast
	OpBeforeFirst
	OpAfterLast
	OpAbsolute
	OpRelative
	OpIsBeforeFirst
	OpIsAfterLast
	OpIsFirst
	OpIsLast
	OpRow
	OpGetObject
	OpGetInt64
	OpGetString
	OpUpdateRow
	OpDeleteRow
	OpInsertRow
	OpClose
	OpIsClosed
)

var opNames = [...]string{
	OpNext:          "next",
	OpPrevious:      "previous",
	OpFirst:         "first",
	OpLast:          "last",
	OpBeforeFirst:   "beforeFirst",
	OpAfterLast:     "afterLast",
	OpAbsolute:      "absolute",
	OpRelative:      "relative",
	OpIsBeforeFirst: "isBeforeFirst",
	OpIsAfterLast:   "isAfterLast",
	OpIsFirst:       "isFirst",
	OpIsLast:        "isLast",
	OpRow:           "row",
	OpGetObject:     "getObject",
	OpGetInt64:      "getInt64",
	OpGetString:     "getString",
	OpUpdateRow:     "updateRow",
	OpDeleteRow:     "deleteRow",
	OpInsertRow:     "insertRow",
	OpClose:         "close",
	OpIsClosed:      "isClosed",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Step is one call and its expected outcome.
type Step struct {
	Op Op

	// Arg is the row offset for Absolute and Relative, and the column for
	// the getters and UpdateRow.
	Arg int

	// Values are written by UpdateRow (Values[0] into column Arg) and
	// InsertRow (one value per column).
	Values []any

	// Want is the expected result: a bool for navigation and predicates,
	// an int for Row, the value for the getters. Nil skips the comparison.
	Want any

	// Fails is the error kind the call must fail with. The zero value
	// means the call must succeed.
	Fails errs.ErrKind
}

func (s Step) String() string {
	switch s.Op {
	case OpAbsolute, OpRelative, OpGetObject, OpGetInt64, OpGetString, OpUpdateRow:
		return fmt.Sprintf("%s(%d)", s.Op, s.Arg)
	default:
		return s.Op.String()
	}
}

// StepError reports the first step whose outcome did not match.
type StepError struct {
	Index int
	Step  Step
	Got   any
	Err   error
}

func (e *StepError) Error() string {
	want := "success"
	if e.Step.Fails != errs.ErrKindUnknown {
		want = e.Step.Fails.String() + " error"
	}
	switch {
	case e.Err != nil && e.Step.Fails == errs.ErrKindUnknown:
		return fmt.Sprintf("step %d %s: want %s, got error: %v", e.Index, e.Step, want, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("step %d %s: want %s, got %s error: %v", e.Index, e.Step, want, errs.KindOf(e.Err), e.Err)
	case e.Step.Fails != errs.ErrKindUnknown:
		return fmt.Sprintf("step %d %s: want %s, got %v", e.Index, e.Step, want, e.Got)
	default:
		return fmt.Sprintf("step %d %s: want %v, got %v", e.Index, e.Step, e.Step.Want, e.Got)
	}
}

func (e *StepError) Unwrap() error { return e.Err }

// Validate applies steps to cur in order and returns a *StepError for the
// first one whose outcome differs from its expectation.
func Validate(cur *cursor.Cursor, steps []Step) error {
	for i, st := range steps {
		got, err := apply(cur, st)
		if !matches(st, got, err) {
			return &StepError{Index: i, Step: st, Got: got, Err: err}
		}
	}
	return nil
}

func matches(st Step, got any, err error) bool {
	if st.Fails != errs.ErrKindUnknown {
		return err != nil && errs.KindOf(err) == st.Fails
	}
	if err != nil {
		return false
	}
	return st.Want == nil || reflect.DeepEqual(st.Want, got)
}

func apply(cur *cursor.Cursor, st Step) (any, error) {
	switch st.Op {
	case OpNext:
		return cur.Next()
	case OpPrevious:
		return cur.Previous()
	case OpFirst:
		return cur.First()
	case OpLast:
		return cur.Last()
	case OpBeforeFirst:
		return nil, cur.BeforeFirst()
	case OpAfterLast:
		return nil, cur.AfterLast()
	case OpAbsolute:
		return cur.Absolute(st.Arg)
	case OpRelative:
		return cur.Relative(st.Arg)
	case OpIsBeforeFirst:
		return cur.IsBeforeFirst()
	case OpIsAfterLast:
		return cur.IsAfterLast()
	case OpIsFirst:
		return cur.IsFirst()
	case OpIsLast:
		return cur.IsLast()
	case OpRow:
		return cur.Row()
	case OpGetObject:
		return cur.GetObject(st.Arg)
	case OpGetInt64:
		return cur.GetInt64(st.Arg)
	case OpGetString:
		return cur.GetString(st.Arg)
	case OpUpdateRow:
		var v any
		if len(st.Values) > 0 {
			v = st.Values[0]
		}
		if err := cur.UpdateValue(st.Arg, v); err != nil {
			return nil, err
		}
		return nil, cur.UpdateRow()
	case OpDeleteRow:
		return nil, cur.DeleteRow()
	case OpInsertRow:
		return nil, insertRow(cur, st.Values)
	case OpClose:
		return nil, cur.Close()
	case OpIsClosed:
		return cur.IsClosed(), nil
	default:
		return nil, errs.InvalidInput(fmt.Sprintf("unknown step %s", st.Op))
	}
}

func insertRow(cur *cursor.Cursor, vals []any) error {
	if err := cur.MoveToInsertRow(); err != nil {
		return err
	}
	for i, v := range vals {
		if err := cur.UpdateValue(i+1, v); err != nil {
			return err
		}
	}
	if err := cur.InsertRow(); err != nil {
		return err
	}
	return cur.MoveToCurrentRow()
}
