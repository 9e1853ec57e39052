package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"id", "name"}, [][]string{{"1", "alpha"}, {"22", "b"}})
	assert.Equal(t, "ID  NAME\n1   alpha\n22  b\n", buf.String())

	buf.Reset()
	PrintTable(&buf, nil, [][]string{{"x"}})
	assert.Empty(t, buf.String())
}

func TestPrintDetail(t *testing.T) {
	var buf bytes.Buffer
	PrintDetail(&buf, map[string]any{"name": "sales", "id": "d1", "row_count": float64(3)})
	assert.Equal(t, "id:         d1\nname:       sales\nrow_count:  3\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"number", float64(42), "42"},
		{"bool", true, "true"},
		{"map", map[string]any{"a": float64(1)}, `{"a":1}`},
		{"slice", []any{"a", "b"}, `["a","b"]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatValue(tc.in))
		})
	}
}

func TestTruncateCells(t *testing.T) {
	rows := [][]string{{"short", "exactly8", "this is too long"}}
	got := truncateCells(rows, 8)
	assert.Equal(t, [][]string{{"short", "exactly8", "this is…"}}, got)

	untouched := [][]string{{"this is too long"}}
	assert.Equal(t, untouched, truncateCells(untouched, 0))
}

func TestValidateOutputFormat(t *testing.T) {
	require.NoError(t, validateOutputFormat("table"))
	require.NoError(t, validateOutputFormat("json"))
	require.NoError(t, validateOutputFormat(""))
	assert.ErrorContains(t, validateOutputFormat("yaml"), "unsupported output format")
}

func TestExtractRows(t *testing.T) {
	items := []map[string]any{
		{"id": "a", "count": float64(1)},
		{"id": "b"},
	}
	assert.Equal(t, [][]string{{"a", "1"}, {"b", ""}}, ExtractRows(items, []string{"id", "count"}))
}
