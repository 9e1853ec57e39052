package tabular

import "tabula/internal/domain"

// Normalize converts native records into a columnar Result.
//
// Columns are taken from the first record in order, keeping the first
// position of a repeated name. Each row is built by looking names up in its
// own record, where the last occurrence of a repeated name wins. A column
// missing from a later record yields nil and extra names are ignored.
// No records means no columns.
func Normalize(records []domain.Record) domain.Result {
	if len(records) == 0 {
		return domain.Result{Columns: []string{}, Rows: [][]any{}}
	}

	columns := make([]string, 0, len(records[0]))
	index := make(map[string]int, len(records[0]))
	for _, f := range records[0] {
		if _, dup := index[f.Name]; dup {
			continue
		}
		index[f.Name] = len(columns)
		columns = append(columns, f.Name)
	}

	rows := make([][]any, len(records))
	for r, rec := range records {
		row := make([]any, len(columns))
		for _, f := range rec {
			if i, ok := index[f.Name]; ok {
				row[i] = jsonValue(f.Value)
			}
		}
		rows[r] = row
	}
	return domain.Result{Columns: columns, Rows: rows}
}

// jsonValue converts driver byte slices to strings for serialization.
func jsonValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
