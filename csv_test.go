// Copyright 2021, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

func TestGetEncoding(t *testing.T) {
	for _, nm := range []string{"", "utf-8", "UTF8"} {
		enc, err := GetEncoding(nm)
		require.NoError(t, err)
		assert.Nil(t, enc)
	}
	enc, err := GetEncoding("ISO-8859-2")
	require.NoError(t, err)
	assert.NotNil(t, enc)
	_, err = GetEncoding("no-such-charset")
	assert.Error(t, err)
}

func TestNewCSVReader(t *testing.T) {
	for src, want := range map[string]rune{
		"name,qty\na,1\n":   ',',
		"name;qty\na;1\n":   ';',
		"name\tqty\na\t1\n": '\t',
		"\"a b\";c\n":       ';',
	} {
		cr, err := NewCSVReader(strings.NewReader(src), "utf-8")
		require.NoError(t, err)
		assert.Equal(t, want, cr.Comma, "%q", src)
	}

	latin2, err := charmap.ISO8859_2.NewEncoder().String("név;város\nŐz;Győr\n")
	require.NoError(t, err)
	cr, err := NewCSVReader(strings.NewReader(latin2), "iso-8859-2")
	require.NoError(t, err)
	recs, err := cr.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"név", "város"}, {"Őz", "Győr"}}, recs)
}

func TestIsNumber(t *testing.T) {
	for s, want := range map[string]bool{
		"0": true, "12": true, "-3.5": true, "0.25": true,
		"007": false, "1e5": false, "NaN": false, "Inf": false,
		"": false, "abc": false, "1_000": false, "0x10": false,
	} {
		assert.Equal(t, want, isNumber(s), s)
	}
}

func TestLoadCSV(t *testing.T) {
	cr, err := NewCSVReader(strings.NewReader("code;qty;price\n007;3;1.5\n008;;2\n"), "")
	require.NoError(t, err)
	book := xlsx.NewBook()
	defer book.Close()
	n, err := LoadCSV(book, "Items", cr)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	c, err := book.Cell("Items", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, xlsx.KindText, c.Kind)
	assert.Equal(t, "007", c.Raw)
	c, err = book.Cell("Items", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, xlsx.KindNumber, c.Kind)
	assert.Equal(t, "1.5", c.Raw)

	specs := []*SheetSpec{{Name: "Items", Tables: []*TableSpec{{Cells: []*CellSpec{
		{Key: "code"}, {Key: "qty", Type: Integer}, {Key: "price", Type: Number},
	}}}}}
	res, err := ImportBook(context.Background(), book, specs, Options{})
	require.NoError(t, err)
	assert.True(t, res.Completed(), "%+v", res.Errors())
	recs := res.Records("Items")
	require.Len(t, recs, 2)
	qty, _ := recs[1].Value.(*Row).Get("qty")
	assert.Nil(t, qty)
	code, _ := recs[1].Value.(*Row).Get("code")
	assert.Equal(t, "008", code)
}
