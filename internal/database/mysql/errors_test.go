package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mysqlErr(number uint16, state string) *gomysql.MySQLError {
	e := &gomysql.MySQLError{Number: number, Message: "server says no"}
	copy(e.SQLState[:], state)
	return e
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      errs.ErrKind
		sqlState  string
		transient bool
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout, "", false},
		{"no rows", sql.ErrNoRows, errs.ErrKindNotFound, "", false},
		{"tx done", sql.ErrTxDone, errs.ErrKindInvalidOperation, "", false},
		{"duplicate entry", mysqlErr(1062, "23000"), errs.ErrKindIntegrity, "23000", false},
		{"access denied", mysqlErr(1045, "28000"), errs.ErrKindPermissionDenied, "28000", false},
		{"parse error", mysqlErr(1064, "42000"), errs.ErrKindSyntax, "42000", false},
		{"deadlock", mysqlErr(1213, "40001"), errs.ErrKindTransactionRollback, "40001", false},
		{"general state falls back", mysqlErr(1062, "HY000"), errs.ErrKindIntegrity, "23000", false},
		{"missing state falls back", mysqlErr(1040, ""), errs.ErrKindConnectionFailed, "08004", true},
		{"unknown vendor code", mysqlErr(1999, "HY000"), errs.ErrKindQueryFailed, "HY000", false},
		{"unknown without state", mysqlErr(1999, ""), errs.ErrKindQueryFailed, "HY000", false},
		{"bad conn", driver.ErrBadConn, errs.ErrKindConnectionFailed, "", true},
		{"invalid conn", gomysql.ErrInvalidConn, errs.ErrKindConnectionFailed, "", true},
		{"network", errors.New("dial tcp: connection refused"), errs.ErrKindConnectionFailed, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.sqlState, got.SQLState)
			assert.Equal(t, tt.transient, got.Transient)
		})
	}

	assert.Nil(t, mapError(nil, "op"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		typeName string
		in       any
		want     any
	}{
		{"VARCHAR", []byte("abc"), "abc"},
		{"TEXT", []byte("long"), "long"},
		{"DECIMAL", []byte("1.50"), "1.50"},
		{"INT", []byte("42"), int64(42)},
		{"UNSIGNED BIGINT", []byte("7"), int64(7)},
		{"UNSIGNED BIGINT", []byte("18446744073709551615"), "18446744073709551615"},
		{"DOUBLE", []byte("2.5"), 2.5},
		{"BLOB", []byte{0, 1}, []byte{0, 1}},
		{"VARBINARY", []byte("raw"), []byte("raw")},
		{"INT", int64(9), int64(9)},
		{"DATETIME", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"VARCHAR", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.typeName, tt.in))
		})
	}
}

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN(&database.Config{Host: "db", User: "u", Password: "p", Database: "conform"})
	require.NoError(t, err)

	mc, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "u", mc.User)
	assert.Equal(t, "p", mc.Passwd)
	assert.Equal(t, "db:3306", mc.Addr)
	assert.Equal(t, "conform", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.True(t, mc.MultiStatements)
	assert.Equal(t, defaultConnectTimeout, mc.Timeout)

	dsn, err = buildDSN(&database.Config{DSN: "u:p@tcp(other:3307)/x?timeout=2s"})
	require.NoError(t, err)
	mc, err = gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "other:3307", mc.Addr)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, 2*time.Second, mc.Timeout)

	_, err = buildDSN(&database.Config{DSN: "not a dsn"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestCapabilities(t *testing.T) {
	d := &Driver{}
	c := d.Capabilities()
	assert.False(t, c.Arrays)
	assert.False(t, c.RowIDs)
	assert.True(t, c.Transactions)
	assert.Equal(t, database.DialectMySQL, d.Dialect())
}
