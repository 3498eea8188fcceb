package sqlseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNoRows is returned by BulkInsert when there is nothing to insert.
var ErrNoRows = errors.New("sqlseed: no rows to insert")

// Execer is the subset of *sql.DB, *sql.Conn and *sql.Tx used by seeds.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// QueryInterface issues bulk statements on behalf of a seed.
type QueryInterface struct {
	db      Execer
	dialect Dialect
	now     time.Time
}

// NewQueryInterface binds a query interface to db. now is the timestamp seeds
// should stamp their rows with.
func NewQueryInterface(db Execer, dialect Dialect, now time.Time) *QueryInterface {
	if dialect == "" {
		dialect = DialectPostgres
	}
	return &QueryInterface{db: db, dialect: dialect, now: now}
}

// Now returns the invocation timestamp.
func (q *QueryInterface) Now() time.Time {
	return q.now
}

// Dialect returns the SQL dialect statements are rendered in.
func (q *QueryInterface) Dialect() Dialect {
	return q.dialect
}

// BulkInsert writes all rows with a single INSERT statement and returns the
// number of affected rows.
func (q *QueryInterface) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if table == "" {
		return 0, errors.New("sqlseed: bulk insert requires a table")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("bulk insert %s: no columns", table)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("bulk insert %s: %w", table, ErrNoRows)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(q.dialect.Quote(table))
	sb.WriteString(" (")
	sb.WriteString(q.dialect.quoteAll(columns))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("bulk insert %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			args = append(args, v)
			sb.WriteString(q.dialect.Placeholder(len(args)))
		}
		sb.WriteString(")")
	}

	return q.exec(ctx, "bulk insert "+table, sb.String(), args)
}

// BulkDelete removes rows matching where. A nil or empty where deletes every
// row of the table. Conditions are ANDed in column order; nil matches NULL and
// slices match with IN.
func (q *QueryInterface) BulkDelete(ctx context.Context, table string, where map[string]any) (int64, error) {
	if table == "" {
		return 0, errors.New("sqlseed: bulk delete requires a table")
	}
	query := "DELETE FROM " + q.dialect.Quote(table)
	clause, args := q.whereClause(where)
	if clause != "" {
		query += " WHERE " + clause
	}
	return q.exec(ctx, "bulk delete "+table, query, args)
}

// Exec runs a raw statement.
func (q *QueryInterface) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, nil
	}
	return q.exec(ctx, "exec", query, args)
}

func (q *QueryInterface) exec(ctx context.Context, op, query string, args []any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

func (q *QueryInterface) whereClause(where map[string]any) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}
	cols := make([]string, 0, len(where))
	for col := range where {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	var args []any
	conds := make([]string, 0, len(cols))
	for _, col := range cols {
		ident := q.dialect.Quote(col)
		v := where[col]
		if v == nil {
			conds = append(conds, ident+" IS NULL")
			continue
		}
		list, ok := inList(v)
		if !ok {
			args = append(args, v)
			conds = append(conds, ident+" = "+q.dialect.Placeholder(len(args)))
			continue
		}
		if len(list) == 0 {
			conds = append(conds, "1 = 0")
			continue
		}
		marks := make([]string, len(list))
		for i, item := range list {
			args = append(args, item)
			marks[i] = q.dialect.Placeholder(len(args))
		}
		conds = append(conds, ident+" IN ("+strings.Join(marks, ", ")+")")
	}
	return strings.Join(conds, " AND "), args
}

func inList(v any) ([]any, bool) {
	switch vals := v.(type) {
	case []any:
		return vals, true
	case []string:
		return toAny(vals), true
	case []int:
		return toAny(vals), true
	case []int64:
		return toAny(vals), true
	default:
		return nil, false
	}
}

func toAny[T any](vals []T) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
