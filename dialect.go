package sqlseed

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder and identifier quoting rules.
type Dialect string

const (
	// DialectPostgres uses $n placeholders and double-quoted identifiers.
	DialectPostgres Dialect = "postgres"
	// DialectMySQL uses ? placeholders and backtick-quoted identifiers.
	DialectMySQL Dialect = "mysql"
	// DialectSQLite uses ? placeholders and double-quoted identifiers.
	DialectSQLite Dialect = "sqlite"
)

// ParseDialect validates a dialect name. An empty name yields DialectPostgres.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(name))) {
	case "", DialectPostgres:
		return DialectPostgres, nil
	case DialectMySQL:
		return DialectMySQL, nil
	case DialectSQLite:
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", name)
	}
}

// DialectForDriver guesses the dialect from a database/sql driver name.
func DialectForDriver(driver string) Dialect {
	switch strings.ToLower(driver) {
	case "mysql":
		return DialectMySQL
	case "sqlite", "sqlite3":
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

// Placeholder returns the bind parameter marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres || d == "" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Quote quotes an identifier. Dotted names (schema.table) are quoted per part.
func (d Dialect) Quote(ident string) string {
	q := `"`
	if d == DialectMySQL {
		q = "`"
	}
	parts := strings.Split(ident, ".")
	for i, part := range parts {
		parts[i] = q + strings.ReplaceAll(part, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

func (d Dialect) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = d.Quote(ident)
	}
	return strings.Join(quoted, ", ")
}
