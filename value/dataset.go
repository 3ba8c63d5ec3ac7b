package value

import (
	"fmt"
	"strings"
)

// DataSet is a named-column table of values used for tabular results.
type DataSet struct {
	ColumnNames []string
	Rows        [][]Value
}

// NewDataSetWithColumns builds an empty dataset with the given columns.
func NewDataSetWithColumns(columns ...string) *DataSet {
	return &DataSet{ColumnNames: columns}
}

// AddRow appends a row. The row length must match the column count.
func (ds *DataSet) AddRow(row []Value) error {
	if len(row) != len(ds.ColumnNames) {
		return fmt.Errorf("row has %d values, dataset has %d columns", len(row), len(ds.ColumnNames))
	}
	ds.Rows = append(ds.Rows, row)
	return nil
}

// RowCount returns the number of rows.
func (ds *DataSet) RowCount() int { return len(ds.Rows) }

// ColumnIndex returns the position of a named column.
func (ds *DataSet) ColumnIndex(name string) (int, bool) {
	for i, c := range ds.ColumnNames {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Column returns all values of a named column.
func (ds *DataSet) Column(name string) ([]Value, bool) {
	idx, ok := ds.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(ds.Rows))
	for i, row := range ds.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Cell returns the value at (row, column name).
func (ds *DataSet) Cell(row int, name string) (Value, bool) {
	if row < 0 || row >= len(ds.Rows) {
		return Value{}, false
	}
	idx, ok := ds.ColumnIndex(name)
	if !ok {
		return Value{}, false
	}
	return ds.Rows[row][idx], true
}

// Equal compares datasets cell by cell.
func (ds *DataSet) Equal(other *DataSet) bool {
	if len(ds.ColumnNames) != len(other.ColumnNames) || len(ds.Rows) != len(other.Rows) {
		return false
	}
	for i, c := range ds.ColumnNames {
		if other.ColumnNames[i] != c {
			return false
		}
	}
	for i, row := range ds.Rows {
		for j, cell := range row {
			if !cell.Equal(other.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func (ds *DataSet) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(ds.ColumnNames, " | "))
	for _, row := range ds.Rows {
		b.WriteByte('\n')
		parts := make([]string, len(row))
		for i, cell := range row {
			parts[i] = cell.displayString()
		}
		b.WriteString(strings.Join(parts, " | "))
	}
	return b.String()
}
