// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

type scanState uint8

const (
	scanning scanState = iota
	closed
)

// scanner reads the data rows of one table.
type scanner struct {
	book    *xlsx.Book
	sheet   *Sheet
	table   *Table
	lookups Lookups
	ledger  *Ledger
	opts    *Options
	// ignored are the columns without a destination property.
	ignored map[string]bool
}

func (s *scanner) record(r ErrorRecord) {
	r.Sheet = s.sheet.Name
	s.ledger.addError(r)
}

// checkProperties records a configuration error for every mapped column
// the destination has no property for. Those columns are ignored.
func (s *scanner) checkProperties() {
	s.ignored = make(map[string]bool)
	for _, col := range s.table.Columns {
		if col.Cell.Skip || s.sheet.dest.has(col.Key()) {
			continue
		}
		s.ignored[col.Key()] = true
		s.record(ErrorRecord{
			Cell: col.Cell, Col: col.Seq + 1, CodeError: true, Action: ActionSkipColumn,
			Err: &PropertyAccessError{Key: col.Key(), Type: s.sheet.dest.typeName()},
		})
	}
}

// bounds walks the rows from the first data row of a table starting at start,
// until the last row of the sheet or a Sentinel row.
// It returns the non-empty data rows and the first row after the table.
func (s *scanner) bounds(start, last int) (rows []int, next int, err error) {
	state := scanning
	next = last + 1
	for r := start + s.table.SkipRows; state == scanning && r <= last; r++ {
		first, err := s.book.Value(s.sheet.Name, "A"+strconv.Itoa(r))
		if err != nil {
			return rows, next, err
		}
		if strings.Contains(first, Sentinel) {
			state, next = closed, r+1
			break
		}
		blank, template, err := s.blank(r)
		if err != nil {
			return rows, next, err
		}
		switch {
		case template:
			// unfilled rows of an exported template
		case blank:
			s.ledger.addWarning(ErrorRecord{
				Sheet: s.sheet.Name, Row: r, Action: ActionSkipRow,
				Err: &EmptyRowWarning{Row: r},
			})
		default:
			rows = append(rows, r)
		}
		if r == last {
			state = closed
		}
	}
	return rows, next, nil
}

// blank reports whether row holds no input. A row whose only content is
// the formulas of FORMULA columns is an unfilled template row.
func (s *scanner) blank(row int) (blank, template bool, err error) {
	for _, col := range s.table.Columns {
		if col.Cell.Static != nil {
			continue
		}
		var v string
		if col.Cell.typ() == Formula {
			c, err := s.book.Cell(s.sheet.Name, col.Seq+1, row)
			if err != nil {
				return false, false, err
			}
			if c.Kind == xlsx.KindFormula {
				template = true
				continue
			}
			v = c.Raw
		} else if v, err = s.book.Value(s.sheet.Name, col.Axis(row)); err != nil {
			return false, false, err
		}
		if strings.TrimSpace(v) != "" {
			return false, false, nil
		}
	}
	return !template, template, nil
}

// scanRows assembles the records of rows concurrently, keeping row order.
func (s *scanner) scanRows(ctx context.Context, rows []int) ([]Record, error) {
	recs := make([]Record, len(rows))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.opts.concurrency())
	for i, r := range rows {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs[i] = Record{Row: r, Value: s.scanRow(r)}
			return nil
		})
	}
	return recs, grp.Wait()
}

// scanRow assembles the record of one row. Select-target columns are read
// first, so cascading dropdowns see the label chosen in their parent column.
// Failures are recorded and the row is kept.
func (s *scanner) scanRow(row int) any {
	b := s.sheet.dest.newBuilder()
	parents := make(map[string]string)
	for _, targets := range [...]bool{true, false} {
		for _, col := range s.table.Columns {
			key := col.Key()
			if s.sheet.Targets[key] != targets {
				continue
			}
			// Targets are read even when not stored: their children need the label.
			unstored := col.Cell.Skip || s.ignored[key]
			if unstored && !targets {
				continue
			}
			cv, err := s.readCell(col, row, parents)
			if targets {
				parents[key] = cv.Text
				if unstored {
					continue
				}
			}
			rec := ErrorRecord{Address: cv.Axis, Row: row, Col: col.Seq + 1, Cell: col.Cell, Action: ActionKeepRow}
			if ruleErr := checkRule(col, cv.Text); ruleErr != nil {
				rec.Err = ruleErr
				s.record(rec)
			}
			if err != nil {
				var cerr *CoercionError
				rec.Err, rec.CodeError = err, !errors.As(err, &cerr)
				s.record(rec)
				cv.Value = nil
			}
			if err := b.set(key, cv.Value); err != nil {
				rec.Err, rec.CodeError = err, true
				s.record(rec)
			}
		}
	}
	v := b.value()
	if s.opts.Validator != nil && b.acc != nil {
		s.validateRecord(row, b.acc, v)
	}
	return v
}

func (s *scanner) validateRecord(row int, acc *accessor, v any) {
	err := s.opts.Validator.Struct(v)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		s.record(ErrorRecord{Row: row, Action: ActionKeepRow, Err: err})
		return
	}
	for _, fe := range verrs {
		rec := ErrorRecord{Row: row, Action: ActionKeepRow}
		key := acc.byField[fe.StructField()]
		if col := s.table.Column(key); col != nil {
			rec.Address, rec.Col, rec.Cell = col.Axis(row), col.Seq+1, col.Cell
		}
		rec.Err = &RuleViolationError{
			Key: key, Rule: RuleKind(fe.Tag()), Operand: fe.Param(),
			Text: fmt.Sprint(fe.Value()), Err: fe,
		}
		s.record(rec)
	}
}

// checkRule applies the validation rule of col to the text read from the cell.
func checkRule(col *Column, text string) error {
	c := col.Cell
	if c.Rule == "" {
		return nil
	}
	violation := func(err error) error {
		return &RuleViolationError{Key: c.Key, Rule: c.Rule, Operand: c.Operand, Text: text, Err: err}
	}
	trimmed := strings.TrimSpace(text)
	switch c.Rule {
	case Required:
		if trimmed == "" {
			return violation(nil)
		}
	case EqualsTo:
		if text != c.Operand {
			return violation(nil)
		}
	case Long, Int, Double:
		if trimmed == "" {
			return nil
		}
		var err error
		switch c.Rule {
		case Long:
			_, err = strconv.ParseInt(trimmed, 10, 64)
		case Int:
			_, err = strconv.ParseInt(trimmed, 10, 32)
		default:
			_, err = strconv.ParseFloat(trimmed, 64)
		}
		if err != nil {
			return violation(errors.Unwrap(err))
		}
	case Expr:
		if col.rule == nil {
			return nil
		}
		out, err := expr.Run(col.rule, map[string]any{"value": text})
		if err != nil {
			return violation(err)
		}
		if ok, _ := out.(bool); !ok {
			return violation(nil)
		}
	}
	return nil
}
