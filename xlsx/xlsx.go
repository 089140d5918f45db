// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx wraps an excelize workbook for concurrent use by the mapper.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"
)

// MaxRowCount is the number of maximum rows.
const MaxRowCount = 1_048_576

var ErrTooManyRows = errors.New("too many rows")

// Number is a string that contains a number.
type Number string

// Book is a workbook shared by the workers of one import or export.
//
// Structural mutation (sheets, merges, defined names, validations, styles,
// lookup row allocation) is serialized by the Book; filling already created
// cells may proceed concurrently from several goroutines.
type Book struct {
	xl        *excelize.File
	styles    map[string]int
	sheets    []string
	fresh     bool
	date1904  bool
	lookupRow int
	mu        sync.Mutex
}

// NewBook returns an empty Book. The default sheet of the underlying
// file is renamed by the first NewSheet call.
func NewBook() *Book {
	return &Book{xl: excelize.NewFile(), fresh: true}
}

// OpenBook reads a workbook from r.
func OpenBook(r io.Reader) (*Book, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	return FromFile(xl), nil
}

// FromFile wraps an already opened excelize file.
func FromFile(xl *excelize.File) *Book {
	b := &Book{xl: xl, sheets: xl.GetSheetList()}
	if props, err := xl.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		b.date1904 = *props.Date1904
	}
	return b
}

// File returns the underlying excelize file.
func (b *Book) File() *excelize.File { return b.xl }

// WriteTo writes the workbook in xlsx format.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xl.WriteTo(w)
}

func (b *Book) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	xl := b.xl
	if xl == nil {
		return nil
	}
	return xl.Close()
}

// NewSheet creates the named sheet, unless it already exists.
func (b *Book) NewSheet(name string, hidden bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sheets {
		if s == name {
			return nil
		}
	}
	if b.fresh {
		b.fresh = false
		if err := b.xl.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else if _, err := b.xl.NewSheet(name); err != nil {
		return err
	}
	b.sheets = append(b.sheets, name)
	if hidden {
		return b.xl.SetSheetVisible(name, false)
	}
	return nil
}

// HasSheet reports whether the named sheet exists.
func (b *Book) HasSheet(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sheets {
		if s == name {
			return true
		}
	}
	return false
}

// Sheets returns the sheet names in workbook order.
func (b *Book) Sheets() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.sheets...)
}

// LastRow returns the 1-based index of the last non-empty row, 0 for an empty sheet.
func (b *Book) LastRow(sheet string) (int, error) {
	rows, err := b.xl.GetRows(sheet)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// MergeCells merges the rectangle between the two axes.
func (b *Book) MergeCells(sheet, from, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xl.MergeCell(sheet, from, to)
}

// SetColWidth sets the width of the columns between the two column names.
func (b *Book) SetColWidth(sheet, from, to string, width float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xl.SetColWidth(sheet, from, to, width)
}

// DefineName registers a workbook scoped defined name.
func (b *Book) DefineName(name, refersTo string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xl.SetDefinedName(&excelize.DefinedName{Name: name, RefersTo: refersTo})
}

// DefinedNames returns the workbook scoped defined names.
func (b *Book) DefinedNames() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := make(map[string]string)
	for _, dn := range b.xl.GetDefinedName() {
		if dn.Scope == "" || dn.Scope == "Workbook" {
			m[dn.Name] = dn.RefersTo
		}
	}
	return m
}

// AddDropList constrains the cells of sqref to the list given by formula.
func (b *Book) AddDropList(sheet, sqref, formula string) error {
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	dv.SetSqrefDropList(formula)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.xl.AddDataValidation(sheet, dv)
}

// NextLookupRow allocates the next row of the lookup sheets.
func (b *Book) NextLookupRow() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookupRow++
	return b.lookupRow
}

// Style is a style for a column/row/cell.
type Style struct {
	// Format is the number format
	Format string `yaml:"format,omitempty"`
	// Fill is the background color as RRGGBB
	Fill string `yaml:"fill,omitempty"`
	// FontBold is true if the font is bold
	FontBold bool `yaml:"bold,omitempty"`
	// Center aligns the content horizontally and vertically.
	Center bool `yaml:"center,omitempty"`
}

// SetStyle applies style to the rectangle between the two axes.
func (b *Book) SetStyle(sheet, from, to string, style Style) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.getStyle(style)
	if err != nil || s == 0 {
		return err
	}
	return b.xl.SetCellStyle(sheet, from, to, s)
}

func (b *Book) getStyle(style Style) (int, error) {
	if style == (Style{}) {
		return 0, nil
	}
	k := fmt.Sprintf("%t\t%t\t%s\t%s", style.FontBold, style.Center, style.Fill, style.Format)
	if s, ok := b.styles[k]; ok {
		return s, nil
	}
	var st excelize.Style
	if style.FontBold {
		st.Font = &excelize.Font{Bold: true}
	}
	if style.Format != "" {
		st.CustomNumFmt = &style.Format
	}
	if style.Fill != "" {
		st.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{style.Fill}}
	}
	if style.Center {
		st.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	}
	s, err := b.xl.NewStyle(&st)
	if err != nil {
		return 0, err
	}
	if b.styles == nil {
		b.styles = make(map[string]int)
	}
	b.styles[k] = s
	return s, nil
}

// SetText writes s as a string cell.
func (b *Book) SetText(sheet, axis, s string) error {
	return b.xl.SetCellStr(sheet, axis, s)
}

// SetNumber writes f with full precision.
func (b *Book) SetNumber(sheet, axis string, f float64) error {
	return b.xl.SetCellFloat(sheet, axis, f, -1, 64)
}

// SetInt writes i as an integer cell.
func (b *Book) SetInt(sheet, axis string, i int64) error {
	return b.xl.SetCellInt(sheet, axis, i)
}

// SetBool writes v as a boolean cell.
func (b *Book) SetBool(sheet, axis string, v bool) error {
	return b.xl.SetCellBool(sheet, axis, v)
}

// SetFormula writes formula (without the leading '=').
func (b *Book) SetFormula(sheet, axis, formula string) error {
	return b.xl.SetCellFormula(sheet, axis, formula)
}

// Evaluate calculates the formula of the cell.
func (b *Book) Evaluate(sheet, axis string) (string, error) {
	return b.xl.CalcCellValue(sheet, axis)
}

// Value returns the formatted value of the cell.
func (b *Book) Value(sheet, axis string) (string, error) {
	return b.xl.GetCellValue(sheet, axis)
}

// SetRow writes values into the given (1-based) row, starting at column A.
// A Number is written as a number cell when it parses, nil values are skipped.
func (b *Book) SetRow(sheet string, row int, values ...any) error {
	if row > MaxRowCount {
		return ErrTooManyRows
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("%d/%d: %w", i, row, err)
		}
		switch x := v.(type) {
		case Number:
			var f float64
			if f, err = strconv.ParseFloat(string(x), 64); err == nil {
				err = b.SetNumber(sheet, axis, f)
			} else {
				err = b.SetText(sheet, axis, string(x))
			}
		case string:
			err = b.SetText(sheet, axis, x)
		default:
			err = b.xl.SetCellValue(sheet, axis, v)
		}
		if err != nil {
			return fmt.Errorf("%s[%s]: %w", sheet, axis, err)
		}
	}
	return nil
}
