package session

import (
	"time"

	"graphdb.evalgo.org/value"
)

// QueryResult is the tabular outcome of a statement.
type QueryResult struct {
	Data    *value.DataSet
	Elapsed time.Duration
}

// NewQueryResult builds a result with the given columns.
func NewQueryResult(columns ...string) *QueryResult {
	return &QueryResult{Data: value.NewDataSetWithColumns(columns...)}
}

// Columns returns the column names.
func (r *QueryResult) Columns() []string {
	if r.Data == nil {
		return nil
	}
	return r.Data.ColumnNames
}

// RowCount returns the number of rows.
func (r *QueryResult) RowCount() int {
	if r.Data == nil {
		return 0
	}
	return r.Data.RowCount()
}

// Rows returns the raw rows.
func (r *QueryResult) Rows() [][]value.Value {
	if r.Data == nil {
		return nil
	}
	return r.Data.Rows
}

// IsEmpty reports whether the result has no rows.
func (r *QueryResult) IsEmpty() bool { return r.RowCount() == 0 }
