// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipRows(t *testing.T) {
	assert.Equal(t, 1, SkipRows("", false))
	assert.Equal(t, 2, SkipRows("Title", false))
	assert.Equal(t, 2, SkipRows("", true))
	assert.Equal(t, 3, SkipRows("Title", true))
	assert.Equal(t, 1, SkipRows("   ", false))
}

func TestResolveSequence(t *testing.T) {
	specs := []*SheetSpec{{
		Name:  "Orders",
		Title: "Orders of the month",
		Tables: []*TableSpec{{
			Cells: []*CellSpec{
				{Key: "id", Label: "ID"},
				{Label: "Address", Cells: []*CellSpec{{Key: "zip"}, {Key: "city"}}},
				{Key: "amount", Type: Number},
			},
		}},
	}}
	layout, err := Resolve(specs)
	require.NoError(t, err)
	require.Len(t, layout.Sheets, 1)
	tbl := layout.Sheets[0].Tables[0]

	assert.Equal(t, "Orders", tbl.Name)
	assert.Equal(t, "Orders of the month", tbl.Title)
	assert.True(t, tbl.Composite)
	assert.Equal(t, 3, tbl.SkipRows)
	require.Equal(t, 4, tbl.Width())
	for i, want := range []struct{ key, letter string }{
		{"id", "A"}, {"zip", "B"}, {"city", "C"}, {"amount", "D"},
	} {
		col := tbl.Columns[i]
		assert.Equal(t, i, col.Seq)
		assert.Equal(t, want.key, col.Key())
		assert.Equal(t, want.letter, col.Letter)
		assert.Equal(t, want.letter, tbl.Letters[want.key])
	}
	assert.Equal(t, "Address", tbl.Column("city").Parent.Label)
	assert.Equal(t, []Header{
		{Cell: specs[0].Tables[0].Cells[0], First: 0, Last: 0},
		{Cell: specs[0].Tables[0].Cells[1], First: 1, Last: 2},
		{Cell: specs[0].Tables[0].Cells[2], First: 3, Last: 3},
	}, tbl.Headers)
	assert.Equal(t, "C7", tbl.Column("city").Axis(7))
}

func TestResolveTableNames(t *testing.T) {
	cells := func() []*CellSpec { return []*CellSpec{{Key: "a"}} }
	layout, err := Resolve([]*SheetSpec{{
		Name:  "S",
		Title: "sheet title",
		Tables: []*TableSpec{
			{Cells: cells()},
			{Cells: cells()},
			{Name: "named", Title: "own", Cells: cells()},
		},
	}})
	require.NoError(t, err)
	tables := layout.Sheet("S").Tables
	assert.Equal(t, "S", tables[0].Name)
	assert.Equal(t, "sheet title", tables[0].Title)
	assert.Equal(t, "S.1", tables[1].Name)
	assert.Equal(t, "", tables[1].Title)
	assert.Equal(t, 1, tables[1].SkipRows)
	assert.Equal(t, "named", tables[2].Name)
	assert.Equal(t, "own", tables[2].Title)
	assert.Nil(t, layout.Sheet("missing"))
}

func TestColumnFormula(t *testing.T) {
	g := []string{"g"}
	layout, err := Resolve([]*SheetSpec{{
		Name: "F",
		Tables: []*TableSpec{{Cells: []*CellSpec{
			{Key: "a"},
			{Key: "x", Type: Number, Groups: g},
			{Key: "y"},
			{Key: "z", Type: Number, Groups: g},
			{Key: "w"},
			{Key: "v", Type: Number, Groups: []string{"g", "h"}},
			{Key: "total", Type: Formula, Formula: &FormulaSpec{Func: Sum, Group: "g"}},
			{Key: "maxh", Type: Formula, Formula: &FormulaSpec{Func: Max, Group: "h"}},
		}}},
	}})
	require.NoError(t, err)
	tbl := layout.Sheets[0].Tables[0]
	assert.Equal(t, "SUM(B5,D5,F5)", tbl.Column("total").Formula(5))
	assert.Equal(t, "MAX(F2)", tbl.Column("maxh").Formula(2))
	assert.Equal(t, "", tbl.Column("a").Formula(2))
}

func TestResolveConfigErrors(t *testing.T) {
	for name, cells := range map[string][]*CellSpec{
		"duplicate key": {{Key: "a"}, {Key: "a"}},
		"nested sub-cells": {{Label: "outer", Cells: []*CellSpec{
			{Label: "inner", Cells: []*CellSpec{{Key: "x"}}},
		}}},
		"bind to missing": {{Key: "city", Select: &SelectSpec{Cascade: true, BindKey: "country"}}},
		"bind to self":    {{Key: "city", Select: &SelectSpec{Cascade: true, BindKey: "city"}}},
		"bind to plain column": {
			{Key: "country"},
			{Key: "city", Select: &SelectSpec{Cascade: true, BindKey: "country"}},
		},
		"group on formula": {
			{Key: "a", Groups: []string{"g"}},
			{Key: "t", Type: Formula, Groups: []string{"g"}, Formula: &FormulaSpec{Func: Sum, Group: "g"}},
		},
		"empty group": {
			{Key: "a"},
			{Key: "t", Type: Formula, Formula: &FormulaSpec{Func: Sum, Group: "g"}},
		},
		"formula without func": {{Key: "t", Type: Formula}},
		"codes mismatch": {{Key: "c", Select: &SelectSpec{Labels: []string{"a", "b"}, Codes: []string{"1"}}}},
		"bad expression":   {{Key: "c", Rule: Expr, Operand: "value +"}},
		"unknown type":     {{Key: "c", Type: "COLOR"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve([]*SheetSpec{{Name: "S", Tables: []*TableSpec{{Cells: cells}}}})
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "%+v", err)
			assert.Equal(t, "S", cerr.Sheet)
		})
	}

	t.Run("no sheets", func(t *testing.T) {
		_, err := Resolve(nil)
		var cerr *ConfigError
		assert.True(t, errors.As(err, &cerr))
	})
	t.Run("duplicate sheet", func(t *testing.T) {
		tables := []*TableSpec{{Cells: []*CellSpec{{Key: "a"}}}}
		_, err := Resolve([]*SheetSpec{{Name: "S", Tables: tables}, {Name: "S", Tables: tables}})
		var cerr *ConfigError
		assert.True(t, errors.As(err, &cerr))
	})
}

func TestResolveTargets(t *testing.T) {
	layout, err := Resolve([]*SheetSpec{{Name: "S", Tables: []*TableSpec{{Cells: []*CellSpec{
		{Key: "country", Select: &SelectSpec{Labels: []string{"Hungary"}, Codes: []string{"HU"}}},
		{Key: "city", Select: &SelectSpec{Cascade: true, BindKey: "country"}},
	}}}}})
	require.NoError(t, err)
	sh := layout.Sheets[0]
	assert.Equal(t, map[string]bool{"country": true}, sh.Targets)
	tbl := sh.Tables[0]
	assert.Same(t, tbl.Column("country"), tbl.Column("city").Bind)
}
