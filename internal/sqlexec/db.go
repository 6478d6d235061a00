// Package sqlexec adapts a database/sql handle to the domain.Executor port.
package sqlexec

import (
	"context"
	"database/sql"
	"strings"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// Compile-time check.
var _ domain.Executor = (*DB)(nil)

// DB wraps a *sql.DB to implement domain.Executor.
type DB struct {
	db *sql.DB
}

// New creates a new DB adapter.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

// Execute runs one statement. Statements that return rows are materialised;
// everything else is executed and reports the affected row count.
func (d *DB) Execute(ctx context.Context, query string) (*domain.QueryResult, error) {
	if !returnsRows(query) {
		res, err := d.db.ExecContext(ctx, query)
		if err != nil {
			return nil, domain.WrapRemote(query, err)
		}
		n, _ := res.RowsAffected()
		return &domain.QueryResult{RowsAffected: n}, nil
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.WrapRemote(query, err)
	}
	defer rows.Close() //nolint:errcheck

	result, err := scan(rows)
	if err != nil {
		return nil, domain.WrapRemote(query, err)
	}
	return result, nil
}

func scan(rows *sql.Rows) (*domain.QueryResult, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	result := &domain.QueryResult{Columns: make([]domain.ResultColumn, len(colTypes))}
	for i, ct := range colTypes {
		result.Columns[i] = domain.ResultColumn{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowsAffected = int64(len(result.Rows))
	return result, nil
}

// returnsRows reports whether the statement's leading keyword produces a result set.
func returnsRows(query string) bool {
	fields := strings.Fields(strings.TrimLeft(query, "( \t\r\n"))
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "VALUES", "PRAGMA", "FROM":
		return true
	default:
		return false
	}
}
