// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Kind is the native kind of a stored cell.
type Kind uint8

const (
	KindBlank Kind = iota
	KindBool
	KindFormula
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindBool:
		return "boolean"
	case KindFormula:
		return "formula"
	case KindNumber:
		return "numeric"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Cell is the native content of one cell.
type Cell struct {
	Axis    string
	Kind    Kind
	Raw     string
	Formula string
	// Date is set for numeric cells carrying a date number format.
	Date bool
	Time time.Time
}

// Cell reads the cell at the 1-based col and row.
func (b *Book) Cell(sheet string, col, row int) (Cell, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Cell{}, err
	}
	c := Cell{Axis: axis}
	if c.Formula, err = b.xl.GetCellFormula(sheet, axis); err != nil {
		return c, err
	}
	if c.Formula != "" {
		c.Kind = KindFormula
		c.Raw, err = b.xl.GetCellValue(sheet, axis)
		return c, err
	}
	if c.Raw, err = b.xl.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true}); err != nil {
		return c, err
	}
	if c.Raw == "" {
		return c, nil
	}
	typ, err := b.xl.GetCellType(sheet, axis)
	if err != nil {
		return c, err
	}
	switch typ {
	case excelize.CellTypeBool:
		c.Kind = KindBool
		if c.Raw == "1" || strings.EqualFold(c.Raw, "true") {
			c.Raw = "true"
		} else {
			c.Raw = "false"
		}
	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeDate:
		f, err := strconv.ParseFloat(c.Raw, 64)
		if err != nil {
			c.Kind = KindText
			break
		}
		c.Kind = KindNumber
		c.Raw = strconv.FormatFloat(f, 'f', -1, 64)
		if c.Date, err = b.isDateFormatted(sheet, axis); err != nil {
			return c, err
		}
		if c.Date {
			if c.Time, err = excelize.ExcelDateToTime(f, b.date1904); err != nil {
				c.Date = false
			}
		}
	default:
		c.Kind = KindText
	}
	return c, nil
}

func (b *Book) isDateFormatted(sheet, axis string) (bool, error) {
	id, err := b.xl.GetCellStyle(sheet, axis)
	if err != nil || id == 0 {
		return false, err
	}
	st, err := b.xl.GetStyle(id)
	if err != nil {
		return false, err
	}
	if st.CustomNumFmt != nil {
		return IsDateFormat(*st.CustomNumFmt), nil
	}
	return isDateNumFmt(st.NumFmt), nil
}

// built-in number formats 14-22, 27-36, 45-47 and 50-58 are dates or times.
func isDateNumFmt(id int) bool {
	return 14 <= id && id <= 22 ||
		27 <= id && id <= 36 ||
		45 <= id && id <= 47 ||
		50 <= id && id <= 58
}

// IsDateFormat reports whether the custom number format displays a date or time.
func IsDateFormat(format string) bool {
	var quoted, bracket bool
	for i := 0; i < len(format); i++ {
		switch c := format[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '\\':
			i++
		case c == '[':
			bracket = true
		case c == ']':
			bracket = false
		case bracket:
		case strings.IndexByte("dDyYhHsS", c) >= 0:
			return true
		case c == 'm' || c == 'M':
			return true
		}
	}
	return false
}
