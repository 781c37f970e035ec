package database

import (
	"fmt"
	"strings"

	"github.com/koustreak/sqlconform/internal/errs"
)

// Dialect controls which SQL placeholder style the query builder emits.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders.
	DialectMySQL
)

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":     true,
	"!=":    true,
	"<>":    true,
	"<":     true,
	">":     true,
	"<=":    true,
	">=":    true,
	"LIKE":  true,
	"ILIKE": true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are always passed as args.
//
// Usage (Postgres):
//
//	sql, args, err := Select("conform_rows", DialectPostgres).
//	    Columns("id", "label").
//	    Where("id", ">", 2).
//	    OrderBy("id", Asc).
//	    Limit(20).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. op must be one of the allowed comparison
// operators (=, !=, <, >, <=, >=, LIKE, ILIKE).
// Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip (for pagination).
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.InvalidInput("select requires a table")
	}

	// --- column list ---
	cols := "*"
	if len(b.columns) > 0 {
		cols = b.dialect.quoteList(b.columns)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(b.dialect.QuoteIdent(b.table))

	var args []any
	argIdx := 1

	// --- WHERE ---
	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] {
				return "", nil, errs.InvalidInput(
					fmt.Sprintf("unsupported WHERE operator: %q", w.op),
				)
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", b.dialect.QuoteIdent(w.column), op, b.dialect.Placeholder(argIdx)))
			args = append(args, w.value)
			argIdx++
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	// --- ORDER BY ---
	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", b.dialect.QuoteIdent(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	// --- LIMIT ---
	if b.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %s", b.dialect.Placeholder(argIdx)))
		args = append(args, *b.limit)
		argIdx++
	}

	// --- OFFSET ---
	if b.offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %s", b.dialect.Placeholder(argIdx)))
		args = append(args, *b.offset)
	}

	return sb.String(), args, nil
}

// InsertBuilder constructs a parameterized multi-row INSERT.
//
// Usage:
//
//	sql, args, err := Insert("conform_rows", DialectMySQL).
//	    Columns("id", "label").
//	    Values(1, "one").
//	    Values(2, "two").
//	    Build()
type InsertBuilder struct {
	table   string
	dialect Dialect
	columns []string
	rows    [][]any
}

// Insert starts a new InsertBuilder for the given table and dialect.
func Insert(table string, d Dialect) *InsertBuilder {
	return &InsertBuilder{table: table, dialect: d}
}

// Columns sets the target columns.
func (b *InsertBuilder) Columns(cols ...string) *InsertBuilder {
	b.columns = cols
	return b
}

// Values appends one row. It must have one value per column.
func (b *InsertBuilder) Values(vals ...any) *InsertBuilder {
	b.rows = append(b.rows, vals)
	return b
}

// Build produces the final SQL string and argument slice.
func (b *InsertBuilder) Build() (string, []any, error) {
	if b.table == "" || len(b.columns) == 0 {
		return "", nil, errs.InvalidInput("insert requires a table and columns")
	}
	if len(b.rows) == 0 {
		return "", nil, errs.InvalidInput("insert requires at least one row")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", b.dialect.QuoteIdent(b.table), b.dialect.quoteList(b.columns))

	args := make([]any, 0, len(b.rows)*len(b.columns))
	argIdx := 1
	for r, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, errs.InvalidInput(
				fmt.Sprintf("row %d has %d values, want %d", r+1, len(row), len(b.columns)),
			)
		}
		if r > 0 {
			sb.WriteString(", ")
		}
		ph := make([]string, len(row))
		for i := range row {
			ph[i] = b.dialect.Placeholder(argIdx)
			argIdx++
		}
		sb.WriteString("(" + strings.Join(ph, ", ") + ")")
		args = append(args, row...)
	}

	return sb.String(), args, nil
}

// Placeholder returns the parameter placeholder for the 1-based argument idx.
// Postgres: $1, $2, …   MySQL: ? (index is ignored)
func (d Dialect) Placeholder(idx int) string {
	if d == DialectMySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", idx)
}

// QuoteIdent quotes a SQL identifier: double quotes for Postgres, backticks
// for MySQL, so reserved words and mixed-case names work in either.
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d Dialect) quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

func (d Dialect) String() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "postgres"
}
