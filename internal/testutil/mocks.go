// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"
	"strings"

	"github.com/firebolt-db/firebolt-cli/internal/domain"
)

// === Executor Mock ===

// MockExecutor implements domain.Executor for testing.
type MockExecutor struct {
	ExecuteFn  func(ctx context.Context, sql string) (*domain.QueryResult, error)
	Statements []string // collected statements for assertions
}

// Execute implements the interface method for testing.
// Statements are recorded before ExecuteFn runs, including failed ones.
func (m *MockExecutor) Execute(ctx context.Context, sql string) (*domain.QueryResult, error) {
	m.Statements = append(m.Statements, sql)
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, sql)
	}
	return &domain.QueryResult{}, nil
}

// HasStatementPrefix returns true if any recorded statement starts with prefix.
func (m *MockExecutor) HasStatementPrefix(prefix string) bool {
	for _, s := range m.Statements {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// LastStatement returns the last recorded statement, or "" if none.
func (m *MockExecutor) LastStatement() string {
	if len(m.Statements) == 0 {
		return ""
	}
	return m.Statements[len(m.Statements)-1]
}

// Rows builds a QueryResult with the given column names and rows.
func Rows(columns []string, rows ...[]any) *domain.QueryResult {
	res := &domain.QueryResult{Rows: rows, RowsAffected: int64(len(rows))}
	for _, c := range columns {
		res.Columns = append(res.Columns, domain.ResultColumn{Name: c})
	}
	return res
}

// ColumnList builds the information_schema result listing the given column names.
func ColumnList(names ...string) *domain.QueryResult {
	rows := make([][]any, len(names))
	for i, n := range names {
		rows[i] = []any{n}
	}
	return Rows([]string{"column_name"}, rows...)
}
