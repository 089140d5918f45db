// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

// Layout is the resolved, read-only form of a settings tree.
type Layout struct {
	Sheets []*Sheet
}

// Sheet is a resolved SheetSpec.
type Sheet struct {
	Spec    *SheetSpec
	Name    string
	Ordinal int
	Tables  []*Table
	// Targets are the keys of columns that cascading dropdowns bind to.
	Targets map[string]bool

	dest destination
}

// Table is a resolved TableSpec.
type Table struct {
	Spec       *TableSpec
	Sheet      *Sheet
	Ordinal    int
	Name       string
	Title      string
	TitleStyle xlsx.Style
	// SkipRows is the number of header rows before the first data row.
	SkipRows int
	// Columns are the leaf columns, Columns[i].Seq == i.
	Columns []*Column
	// Headers are the top level cells with the span of leaf columns they cover.
	Headers []Header
	// Letters maps column keys to column letters.
	Letters map[string]string
	// Composite is set when any cell has sub-cells (two header rows).
	Composite bool

	byKey map[string]*Column
}

// Header is a top level cell covering the leaf columns First..Last.
type Header struct {
	Cell        *CellSpec
	First, Last int
}

// Column is a leaf cell with its allocated position.
type Column struct {
	Cell *CellSpec
	// Parent is the composite cell owning this sub-cell.
	Parent *CellSpec
	Table  *Table
	Seq    int
	Letter string
	// Members are the columns aggregated by a FORMULA cell, in declaration order.
	Members []*Column
	// Bind is the parent column of a cascading dropdown.
	Bind *Column

	rule *vm.Program
}

// Width returns the number of leaf columns.
func (t *Table) Width() int { return len(t.Columns) }

// Column returns the leaf column of key.
func (t *Table) Column(key string) *Column { return t.byKey[key] }

// Key returns the key of the column.
func (c *Column) Key() string { return c.Cell.Key }

// Axis returns the A1 reference of the column in the 1-based row.
func (c *Column) Axis(row int) string { return c.Letter + strconv.Itoa(row) }

// Formula returns the aggregate formula of a FORMULA column for the 1-based row,
// such as SUM(B5,D5,F5).
func (c *Column) Formula(row int) string {
	if c.Cell.Formula == nil {
		return ""
	}
	var buf strings.Builder
	buf.WriteString(string(c.Cell.Formula.Func))
	buf.WriteByte('(')
	for i, m := range c.Members {
		if i != 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(m.Axis(row))
	}
	buf.WriteByte(')')
	return buf.String()
}

// SkipRows returns the number of header rows of a table.
func SkipRows(title string, composite bool) int {
	n := 1
	if strings.TrimSpace(title) != "" {
		n++
	}
	if composite {
		n++
	}
	return n
}

// Resolve validates the settings and allocates the columns of every table.
// The specs are not modified.
func Resolve(specs []*SheetSpec) (*Layout, error) {
	if err := validateSettings(specs); err != nil {
		return nil, err
	}
	l := &Layout{Sheets: make([]*Sheet, 0, len(specs))}
	for i, spec := range specs {
		dest, err := newDestination(spec.Target)
		if err != nil {
			return nil, &ConfigError{Sheet: spec.Name, Err: err}
		}
		sh := &Sheet{Spec: spec, Name: spec.Name, Ordinal: i, Targets: make(map[string]bool), dest: dest}
		for j, ts := range spec.Tables {
			t, err := resolveTable(sh, j, ts)
			if err != nil {
				return nil, err
			}
			sh.Tables = append(sh.Tables, t)
		}
		l.Sheets = append(l.Sheets, sh)
	}
	return l, nil
}

// Sheet returns the resolved sheet of the given name.
func (l *Layout) Sheet(name string) *Sheet {
	for _, s := range l.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func resolveTable(sh *Sheet, ordinal int, spec *TableSpec) (*Table, error) {
	t := &Table{
		Spec: spec, Sheet: sh, Ordinal: ordinal,
		Name: spec.Name, Title: spec.Title, TitleStyle: spec.TitleStyle,
		Letters: make(map[string]string), byKey: make(map[string]*Column),
	}
	if t.Name == "" {
		t.Name = sh.Name
		if ordinal != 0 {
			t.Name += "." + strconv.Itoa(ordinal)
		}
	}
	if t.Title == "" && ordinal == 0 {
		t.Title, t.TitleStyle = sh.Spec.Title, sh.Spec.TitleStyle
	}
	configErr := func(key string, err error) error {
		return &ConfigError{Sheet: sh.Name, Key: key, Err: err}
	}

	leaf := func(c, parent *CellSpec) error {
		if c.Key == "" {
			return configErr(c.Label, errors.New("column without key"))
		}
		if _, ok := t.byKey[c.Key]; ok {
			return configErr(c.Key, errors.New("duplicate key"))
		}
		col := &Column{Cell: c, Parent: parent, Table: t, Seq: len(t.Columns)}
		var err error
		if col.Letter, err = excelize.ColumnNumberToName(col.Seq + 1); err != nil {
			return configErr(c.Key, err)
		}
		t.Columns = append(t.Columns, col)
		t.byKey[c.Key] = col
		t.Letters[c.Key] = col.Letter
		return nil
	}
	for _, c := range spec.Cells {
		h := Header{Cell: c, First: len(t.Columns)}
		if len(c.Cells) == 0 {
			if err := leaf(c, nil); err != nil {
				return nil, err
			}
		} else {
			t.Composite = true
			for _, sub := range c.Cells {
				if len(sub.Cells) != 0 {
					return nil, configErr(sub.Key, errors.New("sub-cells may not have sub-cells"))
				}
				if err := leaf(sub, c); err != nil {
					return nil, err
				}
			}
		}
		h.Last = len(t.Columns) - 1
		t.Headers = append(t.Headers, h)
	}
	t.SkipRows = SkipRows(t.Title, t.Composite)

	if err := resolveGroups(t); err != nil {
		err.Sheet = sh.Name
		return nil, err
	}
	for _, col := range t.Columns {
		c := col.Cell
		if c.Select != nil && c.Select.Cascade {
			parent := t.byKey[c.Select.BindKey]
			if parent == nil || parent == col {
				return nil, configErr(c.Key, fmt.Errorf("bind key %q does not name another column of the table", c.Select.BindKey))
			}
			if parent.Cell.Select == nil {
				return nil, configErr(c.Key, fmt.Errorf("bound column %q has no dropdown", parent.Key()))
			}
			col.Bind = parent
			sh.Targets[parent.Key()] = true
		}
		if c.Select != nil && len(c.Select.Codes) != 0 && len(c.Select.Codes) != len(c.Select.Labels) {
			return nil, configErr(c.Key, fmt.Errorf("%d labels but %d codes", len(c.Select.Labels), len(c.Select.Codes)))
		}
		if c.Rule == Expr {
			prg, err := expr.Compile(c.Operand, expr.Env(map[string]any{"value": ""}), expr.AsBool())
			if err != nil {
				return nil, configErr(c.Key, fmt.Errorf("rule %q: %w", c.Operand, err))
			}
			col.rule = prg
		}
	}
	return t, nil
}

// resolveGroups collects the members of each formula group in declaration
// order and binds them to the FORMULA columns.
func resolveGroups(t *Table) *ConfigError {
	groups := make(map[string][]*Column)
	for _, col := range t.Columns {
		if len(col.Cell.Groups) == 0 {
			continue
		}
		if col.Cell.typ() == Formula {
			return &ConfigError{Key: col.Key(), Err: errors.New("a FORMULA cell cannot be a formula group member")}
		}
		for _, g := range col.Cell.Groups {
			groups[g] = append(groups[g], col)
		}
	}
	for _, col := range t.Columns {
		if col.Cell.typ() != Formula {
			continue
		}
		f := col.Cell.Formula
		if f == nil {
			return &ConfigError{Key: col.Key(), Err: errors.New("FORMULA cell without formula")}
		}
		if col.Members = groups[f.Group]; len(col.Members) == 0 {
			return &ConfigError{Key: col.Key(), Err: fmt.Errorf("formula group %q has no members", f.Group)}
		}
	}
	return nil
}
