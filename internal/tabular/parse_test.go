package tabular

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabula/internal/domain"
)

func TestSplitFields(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim byte
		want  []string
	}{
		{"plain", "a,b,c", ',', []string{"a", "b", "c"}},
		{"spaces around delimiter", " a , b ,c ", ',', []string{"a", "b", "c"}},
		{"quoted with delimiter", `1,"Smith, John",3`, ',', []string{"1", "Smith, John", "3"}},
		{"quoted is trimmed", `"  padded  ",x`, ',', []string{"padded", "x"}},
		{"empty field vanishes", "a,,c", ',', []string{"a", "c"}},
		{"unquoted with inner space keeps tail", "hello world,x", ',', []string{"world", "x"}},
		{"unbalanced quote falls back to runs", `"abc,def`, ',', []string{"abc", "def"}},
		{"quote closes at boundary only", `"a"b",c`, ',', []string{`a"b`, "c"}},
		{"empty quoted field", `"",x`, ',', []string{"", "x"}},
		{"tab delimited", "a\tb c\td", '\t', []string{"a", "c", "d"}},
		{"tab delimited quoted", "\"x\ty\"\tz", '\t', []string{"x\ty", "z"}},
		{"only delimiters", ",,,", ',', []string{}},
		{"utf8", "café,naïve", ',', []string{"café", "naïve"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitFields(tc.line, tc.delim))
		})
	}
}

func TestLines(t *testing.T) {
	got := slices.Collect(Lines("a\r\n\n  \nb\n\t\nc"))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestParse(t *testing.T) {
	t.Run("header and rows", func(t *testing.T) {
		src, err := Parse("\n\nname,age\r\nalice,30\n\nbob\n", ',')
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "age"}, src.Header)

		rows := slices.Collect(src.Rows)
		assert.Equal(t, [][]string{{"alice", "30"}, {"bob"}}, rows)
	})

	t.Run("header split on delimiter only", func(t *testing.T) {
		tests := []struct {
			header string
			delim  byte
			want   []string
		}{
			{"First Name,Last Name,Age", ',', []string{"First Name", "Last Name", "Age"}},
			{"a,,c", ',', []string{"a", "", "c"}},
			{` "id" , total `, ',', []string{` "id" `, " total "}},
			{"first name\tcity", '\t', []string{"first name", "city"}},
		}
		for _, tc := range tests {
			src, err := Parse(tc.header+"\n1\n", tc.delim)
			require.NoError(t, err)
			assert.Equal(t, tc.want, src.Header, tc.header)
		}
	})

	t.Run("restartable", func(t *testing.T) {
		src, err := Parse("h\n1\n2\n", ',')
		require.NoError(t, err)
		first := slices.Collect(src.Rows)
		second := slices.Collect(src.Rows)
		assert.Equal(t, first, second)
		assert.Len(t, first, 2)
	})

	t.Run("header only", func(t *testing.T) {
		src, err := Parse("a,b", ',')
		require.NoError(t, err)
		assert.Empty(t, slices.Collect(src.Rows))
	})

	t.Run("early stop", func(t *testing.T) {
		src, err := Parse("h\n1\n2\n3\n", ',')
		require.NoError(t, err)
		var seen int
		for range src.Rows {
			seen++
			if seen == 2 {
				break
			}
		}
		assert.Equal(t, 2, seen)
	})

	for _, blank := range []string{"", "\n\n", "   \r\n\t\n"} {
		t.Run("empty input", func(t *testing.T) {
			_, err := Parse(blank, ',')
			var empty *domain.EmptyInputError
			require.ErrorAs(t, err, &empty)
		})
	}
}

func TestColumnNames(t *testing.T) {
	got := ColumnNames([]string{` id `, `"na"me"`, "id", ""})
	assert.Equal(t, []string{"id", "name", "id", ""}, got)
}

func TestCreateTableSQL(t *testing.T) {
	got := CreateTableSQL("dataset_abc", []string{"a", `we"ird`})
	assert.Equal(t, `CREATE TABLE "dataset_abc" ("a" TEXT, "we""ird" TEXT)`, got)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "dataset_0190abcd000070008000000000000001", TableName("0190abcd-0000-7000-8000-000000000001"))
}
