// Package tabular turns delimited text into dataset tables and turns native
// query records back into columnar results.
//
// The header line is split on every delimiter, so header fields may contain
// spaces and may be empty. Data rows use a lenient tokenizer that is not
// RFC 4180:
//
//   - a field is either a double-quoted run, closed by the first quote that is
//     followed by optional whitespace and then the delimiter or end of line,
//     or a maximal run of characters that are not quotes, delimiters or
//     whitespace and that is likewise followed by a delimiter or end of line;
//   - anything that cannot start such a field is skipped, so empty fields
//     vanish and later fields shift left;
//   - a quoted field loses its surrounding whitespace after the quotes are
//     removed;
//   - escaped quotes ("") are not supported.
package tabular

import (
	"iter"
	"strings"

	"tabula/internal/domain"
)

// Source is a header row plus a lazily produced, restartable sequence of
// data rows.
type Source struct {
	Header []string
	Rows   iter.Seq[[]string]
}

// Parse splits text into non-blank lines, splits the first on delim as the
// header and exposes the rest as tokenized data rows. It fails with domain.EmptyInputError
// when text has no non-blank line.
func Parse(text string, delim byte) (Source, error) {
	var header string
	found := false
	rest := text
	for rest != "" && !found {
		var line string
		line, rest = nextLine(rest)
		if strings.TrimSpace(line) != "" {
			header, found = line, true
		}
	}
	if !found {
		return Source{}, domain.ErrEmptyInput("input contains no non-blank lines")
	}

	body := rest
	return Source{
		Header: strings.Split(header, string(delim)),
		Rows: func(yield func([]string) bool) {
			for line := range Lines(body) {
				if !yield(SplitFields(line, delim)) {
					return
				}
			}
		},
	}, nil
}

// Lines yields every non-blank line of text with any trailing carriage
// return removed.
func Lines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := text
		for rest != "" {
			var line string
			line, rest = nextLine(rest)
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

func nextLine(s string) (line, rest string) {
	line, rest, _ = strings.Cut(s, "\n")
	return strings.TrimSuffix(line, "\r"), rest
}

// SplitFields tokenizes one line into fields using the lenient rules
// documented on the package.
func SplitFields(line string, delim byte) []string {
	fields := []string{}
	n := len(line)
	for i := 0; i < n; {
		c := line[i]
		switch {
		case c == '"':
			end := -1
			for j := i + 1; j < n; j++ {
				if line[j] == '"' && atBoundary(line, j+1, delim) {
					end = j
					break
				}
			}
			if end < 0 {
				i++
				continue
			}
			fields = append(fields, strings.TrimSpace(line[i+1:end]))
			i = end + 1

		case isRunByte(c, delim):
			j := i
			for j < n && isRunByte(line[j], delim) {
				j++
			}
			// Every suffix of the run ends at j too, so none of them can
			// match either when the run itself fails.
			if atBoundary(line, j, delim) {
				fields = append(fields, line[i:j])
			}
			i = j

		default:
			i++
		}
	}
	return fields
}

// atBoundary reports whether only whitespace separates position k from the
// next delimiter or the end of line.
func atBoundary(line string, k int, delim byte) bool {
	for k < len(line) && isSpace(line[k], delim) {
		k++
	}
	return k == len(line) || line[k] == delim
}

func isRunByte(c, delim byte) bool {
	return c != '"' && c != delim && !isSpace(c, delim)
}

func isSpace(c, delim byte) bool {
	if c == delim {
		return false
	}
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}
