package database

import "context"

// Querier is the statement surface shared by DB and Tx.
type Querier interface {
	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)

	// Exec executes a SQL statement that returns no rows and reports the
	// number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// DB is the central contract for all database operations.
// All layers above this package talk only to this interface;
// they never import the postgres or mysql packages directly.
type DB interface {
	Querier

	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Begin starts a transaction on a single pooled connection.
	Begin(ctx context.Context) (Tx, error)

	// TableExists reports whether a table with the given name exists in the
	// current schema.
	TableExists(ctx context.Context, table string) (bool, error)

	// Capabilities describes the optional features the backend provides.
	Capabilities() Capabilities

	// Dialect is the placeholder and quoting style the backend expects.
	Dialect() Dialect
}

// Tx is an open transaction. After Commit or Rollback it must not be used.
type Tx interface {
	Querier

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Values returns the current row as Go-native values. Text columns are
	// strings, NULL is nil.
	Values() ([]any, error)

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// ColumnTypes returns the name and database type of every column.
	ColumnTypes() ([]ColumnType, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// ColumnType describes one result column.
type ColumnType struct {
	Name     string
	TypeName string
}
