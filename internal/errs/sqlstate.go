package errs

// Category is the SQLSTATE class an error belongs to.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryTransientConnection
	CategoryNonTransientConnection
	CategoryIntegrity
	CategoryAuthorization
	CategorySyntax
	CategoryTransactionRollback
)

func (c Category) String() string {
	switch c {
	case CategoryTransientConnection:
		return "transient_connection"
	case CategoryNonTransientConnection:
		return "non_transient_connection"
	case CategoryIntegrity:
		return "integrity_constraint_violation"
	case CategoryAuthorization:
		return "invalid_authorization"
	case CategorySyntax:
		return "syntax_error_or_access_rule_violation"
	case CategoryTransactionRollback:
		return "transaction_rollback"
	default:
		return "generic"
	}
}

// SQLSTATE class prefixes.
const (
	ClassConnection          = "08"
	ClassIntegrity           = "23"
	ClassAuthorization       = "28"
	ClassTransactionRollback = "40"
	ClassSyntax              = "42"
)

// Classify maps a SQLSTATE onto exactly one Category.
// Connection exceptions (class 08) are transient unless the five-character
// state ends in '3'. Malformed or unknown states are generic.
func Classify(state string) Category {
	if len(state) < 2 {
		return CategoryGeneric
	}
	switch state[:2] {
	case ClassConnection:
		if len(state) == 5 && state[4] == '3' {
			return CategoryNonTransientConnection
		}
		return CategoryTransientConnection
	case ClassIntegrity:
		return CategoryIntegrity
	case ClassAuthorization:
		return CategoryAuthorization
	case ClassSyntax:
		return CategorySyntax
	case ClassTransactionRollback:
		return CategoryTransactionRollback
	default:
		return CategoryGeneric
	}
}

// Kind returns the ErrKind errors of this category carry.
func (c Category) Kind() ErrKind {
	switch c {
	case CategoryTransientConnection, CategoryNonTransientConnection:
		return ErrKindConnectionFailed
	case CategoryIntegrity:
		return ErrKindIntegrity
	case CategoryAuthorization:
		return ErrKindPermissionDenied
	case CategorySyntax:
		return ErrKindSyntax
	case CategoryTransactionRollback:
		return ErrKindTransactionRollback
	default:
		return ErrKindQueryFailed
	}
}

// FromSQLState builds an *Error whose kind and transience follow the
// state's category.
func FromSQLState(state, msg string, cause error) *Error {
	c := Classify(state)
	return &Error{
		Kind:      c.Kind(),
		Message:   msg,
		SQLState:  state,
		Transient: c == CategoryTransientConnection,
		Cause:     cause,
	}
}
