package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		state string
		want  Category
	}{
		{"08001", CategoryTransientConnection},
		{"08006", CategoryTransientConnection},
		{"08003", CategoryNonTransientConnection},
		{"08S01", CategoryTransientConnection},
		{"23505", CategoryIntegrity},
		{"23000", CategoryIntegrity},
		{"28000", CategoryAuthorization},
		{"28P01", CategoryAuthorization},
		{"42601", CategorySyntax},
		{"42P01", CategorySyntax},
		{"40001", CategoryTransactionRollback},
		{"40P01", CategoryTransactionRollback},
		{"22012", CategoryGeneric},
		{"HY000", CategoryGeneric},
		{"", CategoryGeneric},
		{"4", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.state))
		})
	}
}

func TestFromSQLState(t *testing.T) {
	cause := errors.New("boom")

	err := FromSQLState("08006", "connection lost", cause)
	assert.True(t, IsConnectionFailed(err))
	assert.True(t, IsTransient(err))
	assert.Equal(t, "08006", err.SQLState)
	assert.ErrorIs(t, err, cause)

	err = FromSQLState("08003", "connection does not exist", nil)
	assert.True(t, IsConnectionFailed(err))
	assert.False(t, IsTransient(err))

	assert.True(t, IsIntegrity(FromSQLState("23505", "dup", nil)))
	assert.True(t, IsPermissionDenied(FromSQLState("28000", "auth", nil)))
	assert.True(t, IsSyntax(FromSQLState("42601", "syntax", nil)))
	assert.True(t, IsTransactionRollback(FromSQLState("40001", "serialization", nil)))
	assert.True(t, IsQueryFailed(FromSQLState("22012", "division by zero", nil)))
}

func TestCategoryKindsAreDistinct(t *testing.T) {
	connKinds := map[Category]bool{
		CategoryTransientConnection:    true,
		CategoryNonTransientConnection: true,
	}
	seen := map[ErrKind]Category{}
	for c := CategoryGeneric; c <= CategoryTransactionRollback; c++ {
		k := c.Kind()
		assert.NotEqual(t, ErrKindUnknown, k, c.String())
		if prev, ok := seen[k]; ok && !(connKinds[prev] && connKinds[c]) {
			t.Fatalf("categories %s and %s share kind %s", prev, c, k)
		}
		seen[k] = c
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"closed", Closed("result set"), IsClosed},
		{"position", InvalidPosition("before first row"), IsInvalidCursorPosition},
		{"unsupported", Unsupported("scroll-sensitive cursors"), IsUnsupported},
		{"invalid operation", InvalidOperation("forward-only"), IsInvalidOperation},
		{"invalid input", InvalidInput("bad index"), IsInvalidInput},
		{"conversion", Conversion("abc", "int64", nil), IsDataConversion},
		{"wrapped", fmt.Errorf("outer: %w", Closed("blob")), IsClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
		})
	}

	assert.False(t, IsClosed(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	err := FromSQLState("42601", "query failed", errors.New("syntax error at or near"))
	assert.Equal(t, "[syntax] query failed (SQLSTATE 42601): syntax error at or near", err.Error())
	assert.Equal(t, "[closed] blob is closed", Closed("blob").Error())
}
