// Copyright 2021, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/UNO-SOFT/sheetmap"
	"github.com/UNO-SOFT/sheetmap/xlsx"
)

var testEntries = []Entry{
	{Severity: SeverityError, Sheet: "People", Address: "A2", Row: 2, Col: 1, Key: "name",
		Message: `name: "" is <required>`, Action: sheetmap.ActionKeepRow},
	{Severity: SeverityError, Sheet: "People", Col: 3, Key: "nick",
		Message: "no property", Action: sheetmap.ActionSkipColumn, CodeError: true},
	{Severity: SeverityWarning, Sheet: "Árvíztűrő", Row: 5, Message: "row 5 is empty", Action: sheetmap.ActionSkipRow},
}

func TestEntries(t *testing.T) {
	book := xlsx.NewBook()
	defer book.Close()
	require.NoError(t, book.NewSheet("S", false))
	require.NoError(t, book.SetRow("S", 1, "Name", "Age"))
	require.NoError(t, book.SetRow("S", 2, nil, 3))
	require.NoError(t, book.SetRow("S", 4, "x", 4))
	specs := []*sheetmap.SheetSpec{{Name: "S", Tables: []*sheetmap.TableSpec{{Cells: []*sheetmap.CellSpec{
		{Key: "name", Rule: sheetmap.Required}, {Key: "age", Type: sheetmap.Integer},
	}}}}}
	res, err := sheetmap.ImportBook(context.Background(), book, specs, sheetmap.Options{})
	require.NoError(t, err)

	entries := Entries(res.Ledger)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{
		Severity: SeverityError, Sheet: "S", Address: "A2", Row: 2, Col: 1, Key: "name",
		Message: entries[0].Message, Action: sheetmap.ActionKeepRow,
	}, entries[0])
	assert.NotEmpty(t, entries[0].Message)
	assert.Equal(t, SeverityWarning, entries[1].Severity)
	assert.Equal(t, 3, entries[1].Row)

	assert.Empty(t, Entries(new(sheetmap.Ledger)))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testEntries, ""))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, Headers, recs[0])
	assert.Equal(t, []string{"error", "People", "A2", "2", "1", "name", `name: "" is <required>`, sheetmap.ActionKeepRow, "false"}, recs[1])
	assert.Equal(t, "", recs[2][3])
	assert.Equal(t, "true", recs[2][8])

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, testEntries, "iso-8859-2"))
	text, err := charmap.ISO8859_2.NewDecoder().String(buf.String())
	require.NoError(t, err)
	assert.Contains(t, text, "Árvíztűrő")
	assert.NotContains(t, buf.String(), "Árvíztűrő")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, "a<b", testEntries))
	s := buf.String()
	assert.True(t, strings.HasPrefix(s, "<!DOCTYPE html>"))
	assert.Contains(t, s, "<title>a&lt;b</title>")
	assert.Contains(t, s, "&lt;required&gt;")
	assert.NotContains(t, s, "<required>")
	assert.Contains(t, s, `<tr class="error code">`)
	assert.Contains(t, s, `<tr class="warning">`)
	assert.Equal(t, len(testEntries), strings.Count(s, "<tr class="))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, "ledger", testEntries, PDFOptions{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestGridSizes(t *testing.T) {
	sizes := gridSizes([]string{"a", "bbbbbbbb"}, [][]string{{"a", "bbbbbbbb"}})
	require.Len(t, sizes, 2)
	assert.Less(t, sizes[0], sizes[1])
	assert.GreaterOrEqual(t, sizes[0], 1)
}

func TestColor(t *testing.T) {
	var c Color
	require.NoError(t, c.Set("e6e6e6"))
	assert.Equal(t, 230, c.Red)
	assert.Equal(t, "e6e6e6", c.String())
	assert.Error(t, c.Set("e6e6"))
	assert.Error(t, c.Set("zz0000"))
}

func TestFormatOf(t *testing.T) {
	for fn, want := range map[string]Format{
		"a.csv": CSV, "a.csv.gz": CSV, "a.HTML": HTML, "a.htm.gz": HTML, "a.pdf": PDF, "-": CSV,
	} {
		assert.Equal(t, want, FormatOf(fn), fn)
	}
}

func TestWriteFileGzip(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "ledger.csv.gz")
	require.NoError(t, WriteFile(fn, testEntries, Options{}))
	fh, err := os.Open(fn)
	require.NoError(t, err)
	defer fh.Close()
	zr, err := gzip.NewReader(fh)
	require.NoError(t, err)
	recs, err := csv.NewReader(zr).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, len(testEntries)+1)

	fn = filepath.Join(dir, "ledger.html")
	require.NoError(t, WriteFile(fn, testEntries, Options{Title: "t"}))
	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<table>")
}
