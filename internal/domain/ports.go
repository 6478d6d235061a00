package domain

import "context"

// ResultColumn describes one column of a query result.
type ResultColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the materialised result of one statement.
type QueryResult struct {
	Columns      []ResultColumn
	Rows         [][]any
	RowsAffected int64
}

// ColumnNames returns the result column names in order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// HasRows reports whether the statement produced a result set.
func (r *QueryResult) HasRows() bool {
	return len(r.Columns) > 0
}

// Executor runs a single SQL statement against an engine and waits for completion.
// Implementations must return an error for any rejected statement.
type Executor interface {
	Execute(ctx context.Context, sql string) (*QueryResult, error)
}
