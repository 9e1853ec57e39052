package domain

import "time"

// Field is one named value of a native record, in column order.
type Field struct {
	Name  string
	Value any
}

// Record is a native result record: an ordered sequence of (name, value)
// pairs. Names may repeat when a query projects the same alias twice.
type Record []Field

// Result is the normalized columnar form of a record set.
// Every row has exactly len(Columns) values.
type Result struct {
	Columns []string
	Rows    [][]any
}

// RowCount returns the number of rows in the result.
func (r Result) RowCount() int { return len(r.Rows) }

// QueryResult is the response of an ad-hoc query.
type QueryResult struct {
	QueryID    string
	Result     Result
	DurationMs int64
	ExecutedAt time.Time
}
