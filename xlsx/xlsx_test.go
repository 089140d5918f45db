// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellKinds(t *testing.T) {
	b := NewBook()
	defer b.Close()
	require.NoError(t, b.NewSheet("S", false))
	require.NoError(t, b.SetText("S", "A1", "x"))
	require.NoError(t, b.SetNumber("S", "B1", 1.5))
	require.NoError(t, b.SetBool("S", "C1", true))
	require.NoError(t, b.SetFormula("S", "D1", "B1*2"))
	require.NoError(t, b.SetInt("S", "E1", 7))
	require.NoError(t, b.SetNumber("S", "F1", 45000))
	require.NoError(t, b.SetStyle("S", "F1", "F1", Style{Format: "yyyy-mm-dd"}))
	require.NoError(t, b.SetText("S", "H1", "12"))

	for col, want := range map[int]struct {
		kind Kind
		raw  string
	}{
		1: {KindText, "x"},
		2: {KindNumber, "1.5"},
		3: {KindBool, "true"},
		4: {KindFormula, ""},
		5: {KindNumber, "7"},
		6: {KindNumber, "45000"},
		7: {KindBlank, ""},
		8: {KindText, "12"},
	} {
		c, err := b.Cell("S", col, 1)
		require.NoError(t, err)
		assert.Equal(t, want.kind, c.Kind, "col %d: %s", col, c.Kind)
		assert.Equal(t, want.raw, c.Raw, "col %d", col)
	}

	c, err := b.Cell("S", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, "B1*2", c.Formula)
	v, err := b.Evaluate("S", "D1")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	c, err = b.Cell("S", 6, 1)
	require.NoError(t, err)
	assert.True(t, c.Date)
	assert.Equal(t, "2023-03-15", c.Time.Format("2006-01-02"))

	c, err = b.Cell("S", 2, 1)
	require.NoError(t, err)
	assert.False(t, c.Date)
}

func TestIsDateFormat(t *testing.T) {
	for format, want := range map[string]bool{
		"yyyy-mm-dd":  true,
		"hh:mm":       true,
		"d/m/yy":      true,
		"0.00":        false,
		"#,##0":       false,
		"General":     false,
		`"day"0`:      false,
		"[Red]0.00":   false,
		`0\d`:         false,
		"[$-409]mmmm": true,
	} {
		assert.Equal(t, want, IsDateFormat(format), format)
	}
	assert.True(t, isDateNumFmt(14))
	assert.False(t, isDateNumFmt(2))
}

func TestSheets(t *testing.T) {
	b := NewBook()
	defer b.Close()
	require.NoError(t, b.NewSheet("Data", false))
	require.NoError(t, b.NewSheet("_hidden", true))
	require.NoError(t, b.NewSheet("Data", false))
	assert.Equal(t, []string{"Data", "_hidden"}, b.Sheets())
	assert.Equal(t, []string{"Data", "_hidden"}, b.File().GetSheetList())
	assert.True(t, b.HasSheet("Data"))
	assert.False(t, b.HasSheet("Sheet1"))
	visible, err := b.File().GetSheetVisible("_hidden")
	require.NoError(t, err)
	assert.False(t, visible)

	n, err := b.LastRow("Data")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, b.SetRow("Data", 3, "a"))
	n, err = b.LastRow("Data")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSetRow(t *testing.T) {
	b := NewBook()
	defer b.Close()
	require.NoError(t, b.NewSheet("S", false))
	require.NoError(t, b.SetRow("S", 1,
		Number("1.25"), Number("n/a"), "007", nil, 42, true, 0.5,
	))
	for axis, want := range map[string]string{
		"A1": "1.25", "B1": "n/a", "C1": "007", "D1": "",
		"E1": "42", "F1": "TRUE", "G1": "0.5",
	} {
		v, err := b.Value("S", axis)
		require.NoError(t, err)
		assert.Equal(t, want, v, axis)
	}
	for col, want := range map[int]Kind{1: KindNumber, 2: KindText, 3: KindText, 4: KindBlank, 5: KindNumber} {
		c, err := b.Cell("S", col, 1)
		require.NoError(t, err)
		assert.Equal(t, want, c.Kind, "col %d", col)
	}

	require.NoError(t, b.SetInt("S", "H1", 1<<40))
	v, err := b.Value("S", "H1")
	require.NoError(t, err)
	assert.Equal(t, "1099511627776", v)

	assert.ErrorIs(t, b.SetRow("S", MaxRowCount+1, "x"), ErrTooManyRows)
}

func TestDefinedNamesAndLookupRows(t *testing.T) {
	b := NewBook()
	defer b.Close()
	require.NoError(t, b.NewSheet("S", false))
	require.NoError(t, b.NewSheet("_labels", true))
	require.NoError(t, b.DefineName("_Lcolors", "'_labels'!$A$1:$C$1"))
	assert.Equal(t, "'_labels'!$A$1:$C$1", b.DefinedNames()["_Lcolors"])
	require.NoError(t, b.AddDropList("S", "A2:A10", "_Lcolors"))
	dvs, err := b.File().GetDataValidations("S")
	require.NoError(t, err)
	require.Len(t, dvs, 1)
	assert.Equal(t, "A2:A10", dvs[0].Sqref)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]bool)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := b.NextLookupRow()
			mu.Lock()
			seen[r] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
	assert.True(t, seen[1])
	assert.True(t, seen[50])
}

func TestWriteAndOpen(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.NewSheet("S", false))
	require.NoError(t, b.MergeCells("S", "A1", "C1"))
	require.NoError(t, b.SetColWidth("S", "B", "B", 20))
	require.NoError(t, b.SetText("S", "A1", "title"))
	require.NoError(t, b.SetStyle("S", "A1", "C1", Style{FontBold: true, Center: true, Fill: "DDDDDD"}))
	require.NoError(t, b.SetStyle("S", "A2", "A2", Style{}))
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	o, err := OpenBook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer o.Close()
	assert.Equal(t, []string{"S"}, o.Sheets())
	v, err := o.Value("S", "A1")
	require.NoError(t, err)
	assert.Equal(t, "title", v)
	w, err := o.File().GetColWidth("S", "B")
	require.NoError(t, err)
	assert.Equal(t, 20.0, w)
}
