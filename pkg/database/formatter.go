package database

import (
	"fmt"
	"heapstore/pkg/tuple"
)

// QueryResult represents the result of a query execution
type QueryResult struct {
	Columns      []string
	Rows         [][]string
	RowsAffected int
	Message      string
}

// ResultFormatter handles formatting of query execution results
type ResultFormatter struct{}

var formatter ResultFormatter

// FormatTuples renders tuples as strings under td's column names.
func (f ResultFormatter) FormatTuples(td *tuple.TupleDescription, tuples []*tuple.Tuple) QueryResult {
	numFields := td.NumFields()
	columns := make([]string, numFields)
	for i := range numFields {
		name, _ := td.GetFieldName(i)
		if name == "" {
			name = fmt.Sprintf("col_%d", i)
		}
		columns[i] = name
	}

	rows := make([][]string, 0, len(tuples))
	for _, t := range tuples {
		row := make([]string, numFields)
		for i := range numFields {
			if field, err := t.GetField(i); err == nil && field != nil {
				row[i] = field.String()
			} else {
				row[i] = "NULL"
			}
		}
		rows = append(rows, row)
	}

	return QueryResult{
		Columns:      columns,
		Rows:         rows,
		RowsAffected: len(rows),
		Message:      fmt.Sprintf("%d row(s)", len(rows)),
	}
}

// FormatDML reports the number of rows an INSERT or DELETE touched.
func (f ResultFormatter) FormatDML(verb string, n int) QueryResult {
	return QueryResult{
		RowsAffected: n,
		Message:      fmt.Sprintf("%s %d", verb, n),
	}
}
