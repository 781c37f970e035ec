package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/sqlconform/internal/errs"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
// Server errors carry their SQLSTATE and are classified by errs.FromSQLState.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline exceeded
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	if errors.Is(err, pgx.ErrTxClosed) {
		return errs.Wrap(errs.ErrKindInvalidOperation, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.FromSQLState(pgErr.Code, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth handshake)
	e := errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	e.Transient = pgconn.SafeToRetry(err)
	return e
}
