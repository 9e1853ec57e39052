package tabular

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"

	"tabula/internal/domain"
)

// Format identifies how an uploaded file is tokenized.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// Compression identifies the outer compression of an uploaded file.
type Compression string

// Supported compressions.
const (
	CompressionNone Compression = ""
	CompressionGZ   Compression = ".gz"
	CompressionBZ2  Compression = ".bz2"
	CompressionXZ   Compression = ".xz"
	CompressionZSTD Compression = ".zst"
)

// Detect inspects a file name like "sales.tsv.gz" and returns its format and
// compression. Unsupported extensions yield a domain.ValidationError.
func Detect(filename string) (Format, Compression, error) {
	name := strings.ToLower(filename)
	comp := CompressionNone
	for _, c := range []Compression{CompressionGZ, CompressionBZ2, CompressionXZ, CompressionZSTD} {
		if strings.HasSuffix(name, string(c)) {
			comp = c
			name = strings.TrimSuffix(name, string(c))
			break
		}
	}

	switch filepath.Ext(name) {
	case ".csv", ".txt":
		return FormatCSV, comp, nil
	case ".tsv":
		return FormatTSV, comp, nil
	case ".xlsx":
		return FormatXLSX, comp, nil
	default:
		return "", "", domain.ErrValidation("unsupported file type %q: expected .csv, .tsv, .txt or .xlsx, optionally compressed with .gz, .bz2, .xz or .zst", filename)
	}
}

// SupportedCharset reports whether charset names a known encoding.
func SupportedCharset(charset string) bool {
	if charset == "" {
		return true
	}
	_, err := htmlindex.Get(charset)
	return err == nil
}

// OpenSource decodes an upload into a Source. The reader is consumed fully;
// callers bound its size.
func OpenSource(filename string, r io.Reader, charset string) (Source, error) {
	format, comp, err := Detect(filename)
	if err != nil {
		return Source{}, err
	}

	dr, closeFn, err := decompress(r, comp)
	if err != nil {
		return Source{}, domain.ErrValidation("decompress %s: %v", filename, err)
	}
	defer closeFn()

	if format == FormatXLSX {
		return openXLSX(dr)
	}

	if charset != "" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return Source{}, domain.ErrValidation("unsupported charset %q", charset)
		}
		dr = enc.NewDecoder().Reader(dr)
	}

	data, err := io.ReadAll(dr)
	if err != nil {
		return Source{}, domain.ErrValidation("read %s: %v", filename, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	delim := byte(',')
	if format == FormatTSV {
		delim = '\t'
	}
	return Parse(string(data), delim)
}

func decompress(r io.Reader, comp Compression) (io.Reader, func(), error) {
	switch comp {
	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { _ = gz.Close() }, nil
	case CompressionBZ2:
		return bzip2.NewReader(r), func() {}, nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() {}, nil
	case CompressionZSTD:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

// openXLSX reads the first sheet of a workbook. Cells are already split, so
// the lenient text tokenizer is bypassed; blank rows are still skipped.
func openXLSX(r io.Reader) (Source, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Source{}, domain.ErrValidation("open xlsx: %v", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Source{}, domain.ErrEmptyInput("workbook has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return Source{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	rows := slices.DeleteFunc(all, func(row []string) bool {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
		return true
	})
	if len(rows) == 0 {
		return Source{}, domain.ErrEmptyInput("sheet %q contains no non-blank rows", sheets[0])
	}

	data := rows[1:]
	return Source{
		Header: rows[0],
		Rows:   slices.Values(data),
	}, nil
}
