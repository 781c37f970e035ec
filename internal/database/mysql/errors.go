package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/sqlconform/internal/errs"
)

// sqlStateGeneral is what MySQL sends when an error has no specific SQLSTATE.
const sqlStateGeneral = "HY000"

// Server error numbers whose SQLSTATE is reported as HY000 or missing.
// Client-side failures (2xxx) never arrive as *MySQLError; they take the
// connection branch of mapError.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
var vendorStates = map[uint16]string{
	1040: "08004", // too many connections
	1044: "42000", // database access denied
	1045: "28000", // access denied
	1048: "23000", // column cannot be null
	1049: "42000", // unknown database
	1054: "42S22", // unknown column
	1062: "23000", // duplicate entry
	1064: "42000", // parse error
	1146: "42S02", // no such table
	1213: "40001", // deadlock
	1451: "23000", // row is referenced
	1452: "23000", // no referenced row
}

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	if errors.Is(err, sql.ErrTxDone) || errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.ErrKindInvalidOperation, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.FromSQLState(sqlState(mysqlErr), fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
	}

	e := errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	e.Transient = errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn)
	return e
}

// sqlState returns the error's SQLSTATE, falling back to the vendor table
// when the server sent the general HY000 state or none at all.
func sqlState(e *gomysql.MySQLError) string {
	state := string(e.SQLState[:])
	if e.SQLState == [5]byte{} || state == sqlStateGeneral {
		if s, ok := vendorStates[e.Number]; ok {
			return s
		}
		if e.SQLState == [5]byte{} {
			return sqlStateGeneral
		}
	}
	return state
}
