package tabular

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"tabula/internal/domain"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		file     string
		format   Format
		comp     Compression
		wantFail bool
	}{
		{file: "a.csv", format: FormatCSV},
		{file: "A.CSV", format: FormatCSV},
		{file: "notes.txt", format: FormatCSV},
		{file: "a.tsv", format: FormatTSV},
		{file: "a.csv.gz", format: FormatCSV, comp: CompressionGZ},
		{file: "a.tsv.zst", format: FormatTSV, comp: CompressionZSTD},
		{file: "a.csv.xz", format: FormatCSV, comp: CompressionXZ},
		{file: "a.csv.bz2", format: FormatCSV, comp: CompressionBZ2},
		{file: "book.xlsx", format: FormatXLSX},
		{file: "a.json", wantFail: true},
		{file: "a.gz", wantFail: true},
	}
	for _, tc := range tests {
		t.Run(tc.file, func(t *testing.T) {
			format, comp, err := Detect(tc.file)
			if tc.wantFail {
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.format, format)
			assert.Equal(t, tc.comp, comp)
		})
	}
}

func TestOpenSource_PlainAndBOM(t *testing.T) {
	src, err := OpenSource("a.csv", strings.NewReader("\xef\xbb\xbfid,name\n1,x\n"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, src.Header)
	assert.Equal(t, [][]string{{"1", "x"}}, slices.Collect(src.Rows))
}

func TestOpenSource_TSV(t *testing.T) {
	src, err := OpenSource("a.tsv", strings.NewReader("a\tb\n1\t2\n"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, src.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, slices.Collect(src.Rows))
}

func TestOpenSource_Compressed(t *testing.T) {
	const payload = "k,v\n1,one\n2,two\n"

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var zstBuf bytes.Buffer
	zw, err := zstd.NewWriter(&zstBuf)
	require.NoError(t, err)
	_, err = zw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	require.NoError(t, err)
	_, err = xw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	cases := map[string][]byte{
		"d.csv.gz":  gzBuf.Bytes(),
		"d.csv.zst": zstBuf.Bytes(),
		"d.csv.xz":  xzBuf.Bytes(),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			src, err := OpenSource(name, bytes.NewReader(data), "")
			require.NoError(t, err)
			assert.Equal(t, []string{"k", "v"}, src.Header)
			assert.Len(t, slices.Collect(src.Rows), 2)
		})
	}

	t.Run("corrupt gzip", func(t *testing.T) {
		_, err := OpenSource("d.csv.gz", strings.NewReader("not gzip"), "")
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
	})
}

func TestOpenSource_Charset(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("city\nMünchen\n")
	require.NoError(t, err)

	src, err := OpenSource("c.csv", strings.NewReader(encoded), "windows-1252")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"München"}}, slices.Collect(src.Rows))

	_, err = OpenSource("c.csv", strings.NewReader(encoded), "klingon-8")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	assert.True(t, SupportedCharset(""))
	assert.True(t, SupportedCharset("iso-8859-1"))
	assert.False(t, SupportedCharset("klingon-8"))
}

func TestOpenSource_Empty(t *testing.T) {
	_, err := OpenSource("e.csv", strings.NewReader("\n \n"), "")
	var empty *domain.EmptyInputError
	require.ErrorAs(t, err, &empty)
}

func TestOpenSource_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"id", "name"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{1, "alice"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{2, "bob"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	src, err := OpenSource("book.xlsx", &buf, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, src.Header)
	assert.Equal(t, [][]string{{"1", "alice"}, {"2", "bob"}}, slices.Collect(src.Rows))
}
