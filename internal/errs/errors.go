// Package errs provides the unified error type used across all of sqlconform.
//
// Every subsystem (cursor, lob, statement, database, filestore, …) returns
// *errs.Error. Callers use the Is* predicates to tell failure categories
// apart without importing driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.FromSQLState(pgErr.Code, "query failed", pgErr)
//
//	// In a caller, check the error kind:
//	if errs.IsClosed(err) {
//	    // the handle was closed or freed
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no object, no bucket
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure

	ErrKindClosed                // resource was closed or freed
	ErrKindInvalidCursorPosition // data access while before-first / after-last
	ErrKindUnsupported           // feature not implemented by the driver
	ErrKindInvalidOperation      // illegal call for the resource's mode
	ErrKindDataConversion        // value cannot be converted to the requested type
	ErrKindIntegrity             // constraint violation
	ErrKindSyntax                // syntax error or access rule violation
	ErrKindTransactionRollback   // transaction rolled back by the server
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindClosed:
		return "closed"
	case ErrKindInvalidCursorPosition:
		return "invalid_cursor_position"
	case ErrKindUnsupported:
		return "unsupported"
	case ErrKindInvalidOperation:
		return "invalid_operation"
	case ErrKindDataConversion:
		return "data_conversion"
	case ErrKindIntegrity:
		return "integrity"
	case ErrKindSyntax:
		return "syntax"
	case ErrKindTransactionRollback:
		return "transaction_rollback"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all sqlconform subsystems.
type Error struct {
	Kind    ErrKind
	Message string

	// SQLState is the five-character SQLSTATE reported by the server, if any.
	SQLState string

	// Transient is set for failures that may succeed when retried
	// (transient connection exceptions). Retrying is the caller's job.
	Transient bool

	Cause error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	msg := e.Message
	if e.SQLState != "" {
		msg = fmt.Sprintf("%s (SQLSTATE %s)", msg, e.SQLState)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Closed reports an operation on a closed or freed resource.
func Closed(resource string) *Error {
	return &Error{Kind: ErrKindClosed, Message: resource + " is closed"}
}

// InvalidPosition reports data access while the cursor is not on a row.
func InvalidPosition(msg string) *Error {
	return &Error{Kind: ErrKindInvalidCursorPosition, Message: "invalid cursor position: " + msg}
}

// Unsupported reports a feature the underlying driver does not implement.
func Unsupported(feature string) *Error {
	return &Error{Kind: ErrKindUnsupported, Message: feature + " is not supported"}
}

// InvalidOperation reports a call that is illegal in the resource's current mode,
// e.g. backward navigation on a forward-only cursor.
func InvalidOperation(msg string) *Error {
	return &Error{Kind: ErrKindInvalidOperation, Message: msg}
}

// InvalidInput reports bad arguments from the caller.
func InvalidInput(msg string) *Error {
	return &Error{Kind: ErrKindInvalidInput, Message: msg}
}

// Conversion reports a value that cannot be converted between types.
func Conversion(from any, to string, cause error) *Error {
	return &Error{
		Kind:    ErrKindDataConversion,
		Message: fmt.Sprintf("cannot convert %T to %s", from, to),
		Cause:   cause,
	}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (no rows, missing object, unknown table/bucket, …).
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a generic backend operation failure.
func IsQueryFailed(err error) bool {
	return kindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an authorization failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsClosed reports whether err was raised by a closed or freed resource.
func IsClosed(err error) bool {
	return kindOf(err) == ErrKindClosed
}

// IsInvalidCursorPosition reports whether err was raised by data access
// while the cursor was before the first or after the last row.
func IsInvalidCursorPosition(err error) bool {
	return kindOf(err) == ErrKindInvalidCursorPosition
}

// IsUnsupported reports whether err signals a feature the driver lacks.
func IsUnsupported(err error) bool {
	return kindOf(err) == ErrKindUnsupported
}

// IsInvalidOperation reports whether err signals a call that is illegal in
// the resource's mode (forward-only navigation, read-only updates, …).
func IsInvalidOperation(err error) bool {
	return kindOf(err) == ErrKindInvalidOperation
}

// IsDataConversion reports whether err is a type conversion failure.
func IsDataConversion(err error) bool {
	return kindOf(err) == ErrKindDataConversion
}

// IsIntegrity reports whether err is a constraint violation.
func IsIntegrity(err error) bool {
	return kindOf(err) == ErrKindIntegrity
}

// IsSyntax reports whether err is a syntax error or access rule violation.
func IsSyntax(err error) bool {
	return kindOf(err) == ErrKindSyntax
}

// IsTransactionRollback reports whether the server rolled the transaction back.
func IsTransactionRollback(err error) bool {
	return kindOf(err) == ErrKindTransactionRollback
}

// IsTransient reports whether err is marked as retryable.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Transient
	}
	return false
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	return kindOf(err)
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
