// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

var (
	errNotInteger = errors.New("not an integer")
	errRange      = errors.New("out of range")
	minInt64      = decimal.NewFromInt(math.MinInt64)
	maxInt64      = decimal.NewFromInt(math.MaxInt64)
)

// canonical returns the text of a cell as the importer sees it: dates
// rendered with pattern, numbers without exponent.
func canonical(c xlsx.Cell, pattern string) string {
	switch c.Kind {
	case xlsx.KindBlank:
		return ""
	case xlsx.KindNumber:
		if c.Date {
			return c.Time.Format(pattern)
		}
	}
	return c.Raw
}

// cellValue is the outcome of reading one cell.
type cellValue struct {
	Axis  string
	Text  string
	Value any
}

// readCell reads the cell of col in row and coerces it to the declared type.
// parents holds the raw texts of the select-target columns of the same row.
func (s *scanner) readCell(col *Column, row int, parents map[string]string) (cellValue, error) {
	c := col.Cell
	cv := cellValue{Axis: col.Axis(row)}
	if c.Static != nil {
		cv.Text = *c.Static
		var err error
		cv.Value, err = parseText(c, cv.Text, false, s.sheet.dest.fieldType(c.Key))
		return cv, err
	}
	cell, err := s.book.Cell(s.sheet.Name, col.Seq+1, row)
	if err != nil {
		return cv, err
	}
	cv.Text = canonical(cell, c.datePattern())
	if c.typ() == Formula {
		if cell.Kind != xlsx.KindFormula {
			return cv, &CoercionError{Key: c.Key, Type: Formula, Text: cv.Text, Err: ErrNotFormula}
		}
		res, err := s.book.Evaluate(s.sheet.Name, cv.Axis)
		if err != nil {
			return cv, &CoercionError{Key: c.Key, Type: Formula, Text: cell.Formula, Err: err}
		}
		cv.Value, err = parseText(&CellSpec{Key: c.Key, Type: Number}, res, true, s.sheet.dest.fieldType(c.Key))
		return cv, err
	}
	text := cv.Text
	if c.Select != nil && text != "" {
		var parent string
		if col.Bind != nil {
			parent = parents[col.Bind.Key()]
		}
		code, ok, found := s.lookups.Code(c.Key, parent, text)
		if found && !ok {
			return cv, &CoercionError{Key: c.Key, Type: c.typ(), Text: text, Err: ErrNotOption}
		} else if ok {
			text = code
		}
	}
	cv.Value, err = parseText(c, text, cell.Kind == xlsx.KindNumber, s.sheet.dest.fieldType(c.Key))
	return cv, err
}

// parseText converts text to the declared type of c. Blank text is nil.
// hint is the type of the destination property, if known.
func parseText(c *CellSpec, text string, numeric bool, hint reflect.Type) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	typ := c.typ()
	fail := func(err error) (any, error) {
		return nil, &CoercionError{Key: c.Key, Type: typ, Text: text, Err: err}
	}
	trimmed := strings.TrimSpace(text)
	switch typ {
	case Varchar:
		if numeric {
			return strings.TrimSuffix(text, ".0"), nil
		}
		return text, nil
	case Number:
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return fail(err)
		}
		if hint != nil {
			switch hint.Kind() {
			case reflect.Float64:
				f, _ := d.Float64()
				return f, nil
			case reflect.Float32:
				f, _ := d.Float64()
				return float32(f), nil
			}
		}
		return d, nil
	case Integer, BigInt:
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return fail(err)
		}
		if !d.IsInteger() {
			return fail(errNotInteger)
		}
		if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
			return fail(errRange)
		}
		i := d.IntPart()
		if typ == BigInt {
			return i, nil
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return fail(errRange)
		}
		return int(i), nil
	case Boolean:
		b, err := parseBool(trimmed)
		if err != nil {
			return fail(err)
		}
		return b, nil
	case Date:
		t, err := parseDate(trimmed, c.datePattern())
		if err != nil {
			return fail(err)
		}
		return t, nil
	}
	return text, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool: %q", s)
}

func parseDate(s, pattern string) (time.Time, error) {
	if t, err := time.Parse(pattern, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return excelize.ExcelDateToTime(f, false)
	}
	return time.Time{}, fmt.Errorf("does not match %q", pattern)
}

// writeCell writes the value of col for rec into row.
func (w *sheetWriter) writeCell(col *Column, row int, rec any) error {
	c := col.Cell
	axis := col.Axis(row)
	if c.Static != nil {
		return w.writeValue(c, axis, *c.Static)
	}
	if c.typ() == Formula {
		return w.book.SetFormula(w.sheet.Name, axis, col.Formula(row))
	}
	if c.Skip {
		return nil
	}
	v, err := getProperty(rec, c.Key)
	if err != nil || v == nil {
		return err
	}
	if c.Select != nil {
		if label, ok := selectLabel(col, rec, formatKey(v)); ok {
			return w.book.SetText(w.sheet.Name, axis, label)
		}
	}
	if c.Fixed != nil {
		if label, ok := c.Fixed[formatKey(v)]; ok {
			return w.book.SetText(w.sheet.Name, axis, label)
		}
	}
	return w.writeValue(c, axis, v)
}

func (w *sheetWriter) writeValue(c *CellSpec, axis string, v any) error {
	sheet := w.sheet.Name
	switch c.typ() {
	case Number:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		return w.book.SetNumber(sheet, axis, f)
	case Integer, BigInt:
		i, err := toInt(v)
		if err != nil {
			return err
		}
		return w.book.SetInt(sheet, axis, i)
	case Boolean:
		switch x := v.(type) {
		case bool:
			return w.book.SetBool(sheet, axis, x)
		case string:
			b, err := parseBool(x)
			if err != nil {
				return err
			}
			return w.book.SetBool(sheet, axis, b)
		}
		return fmt.Errorf("cannot write %T as %s", v, Boolean)
	case Date:
		if t, ok := v.(time.Time); ok {
			if t.IsZero() {
				return nil
			}
			return w.book.SetText(sheet, axis, t.Format(c.datePattern()))
		}
	}
	return w.book.SetText(sheet, axis, formatKey(v))
}

// formatKey renders v as the text used for fixed-value and code lookups.
func formatKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(DefaultDatePattern)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("cannot write %T as %s", v, Number)
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		if !x.IsInteger() {
			return 0, errNotInteger
		}
		return x.IntPart(), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, errRange
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, errNotInteger
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("cannot write %T as integer", v)
}

// selectLabel returns the label displayed for code in a dropdown column.
func selectLabel(col *Column, rec any, code string) (string, bool) {
	sel := col.Cell.Select
	if !sel.Cascade {
		if i := slices.Index(sel.codes(), code); i >= 0 {
			return sel.Labels[i], true
		}
		return "", false
	}
	pv, err := getProperty(rec, col.Bind.Key())
	if err != nil || pv == nil {
		return "", false
	}
	parentCode := formatKey(pv)
	for _, ch := range sel.Source {
		if ch.Parent == parentCode && ch.code() == code {
			return ch.Label, true
		}
	}
	return "", false
}
