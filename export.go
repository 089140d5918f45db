// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

var (
	defaultTitleStyle  = xlsx.Style{FontBold: true, Center: true}
	defaultHeaderStyle = xlsx.Style{FontBold: true, Center: true, Fill: "DDDDDD"}
)

// Slice converts a typed slice to the record slice expected by Export.
func Slice[T any](recs []T) []any {
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out
}

// Export renders the records of data into a new workbook laid out by specs.
// data is keyed by table name (see TableSpec.Name).
//
// Cells that cannot be written are recorded in the ledger and left empty.
// The returned error is non-nil only for invalid settings or a failure
// to create the sheets.
func Export(ctx context.Context, specs []*SheetSpec, data map[string][]any, opts Options) (*ExportResult, error) {
	return ExportBook(ctx, xlsx.NewBook(), specs, data, opts)
}

// ExportBook is like Export, but writes into the given workbook.
func ExportBook(ctx context.Context, book *xlsx.Book, specs []*SheetSpec, data map[string][]any, opts Options) (*ExportResult, error) {
	res := &ExportResult{Ledger: new(Ledger), Book: book}
	layout, err := Resolve(specs)
	if err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			res.addError(ErrorRecord{Sheet: cerr.Sheet, CodeError: true, Action: ActionAbort, Err: err})
		}
		return res, err
	}
	logger := opts.logger()

	// Sheets are created in order before any content, the lookup sheets last.
	var hasLookups bool
	for _, sh := range layout.Sheets {
		if err := book.NewSheet(sh.Name, false); err != nil {
			return res, fmt.Errorf("create sheet %q: %w", sh.Name, err)
		}
		for _, t := range sh.Tables {
			for _, col := range t.Columns {
				hasLookups = hasLookups || col.Cell.Select != nil
			}
		}
	}
	if hasLookups {
		for _, nm := range []string{LabelSheet, CodeSheet} {
			if err := book.NewSheet(nm, true); err != nil {
				return res, fmt.Errorf("create sheet %q: %w", nm, err)
			}
		}
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.concurrency())
	for _, sh := range layout.Sheets {
		grp.Go(func() error {
			w := &sheetWriter{
				book: book, sheet: sh, ledger: res.Ledger, defaultRows: opts.defaultRows(),
				lookups: &lookupWriter{book: book, logger: logger.With("sheet", sh.Name), labels: make(map[*Column]string)},
			}
			return w.write(ctx, data)
		})
	}
	err = grp.Wait()
	logger.Info("exported", "sheets", len(layout.Sheets), "errors", len(res.errors))
	return res, err
}

// sheetWriter renders the tables of one sheet.
type sheetWriter struct {
	book    *xlsx.Book
	sheet   *Sheet
	lookups *lookupWriter
	ledger  *Ledger

	defaultRows int
	// ignored are the columns the records have no property for.
	ignored map[string]bool
}

func (w *sheetWriter) record(r ErrorRecord) {
	r.Sheet = w.sheet.Name
	w.ledger.addError(r)
}

func (w *sheetWriter) write(ctx context.Context, data map[string][]any) error {
	start := 1
	for i, t := range w.sheet.Tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := w.writeTable(t, start, data[t.Name])
		if err != nil {
			w.record(ErrorRecord{Row: start, CodeError: true, Action: ActionAbort, Err: fmt.Errorf("table %q: %w", t.Name, err)})
			return nil
		}
		if i == len(w.sheet.Tables)-1 {
			break
		}
		end := start + t.SkipRows + n
		if err := w.book.SetText(w.sheet.Name, "A"+strconv.Itoa(end), Sentinel); err != nil {
			return err
		}
		start = end + 1
	}
	return nil
}

// writeTable writes the table starting at row start and returns the
// number of data rows it occupies.
func (w *sheetWriter) writeTable(t *Table, start int, recs []any) (int, error) {
	if err := w.writeHeader(t, start); err != nil {
		return 0, err
	}
	first := start + t.SkipRows
	n := len(recs)
	if t.Spec.Rows > 0 {
		n = max(n, t.Spec.Rows)
	} else {
		n = max(n, w.defaultRows)
	}
	if first+n-1 > xlsx.MaxRowCount {
		return 0, xlsx.ErrTooManyRows
	}
	w.checkProperties(t, recs)
	for i, rec := range recs {
		row := first + i
		for _, col := range t.Columns {
			if w.ignored[col.Key()] {
				continue
			}
			if err := w.writeCell(col, row, rec); err != nil {
				var perr *PropertyAccessError
				w.record(ErrorRecord{
					Address: col.Axis(row), Row: row, Col: col.Seq + 1, Cell: col.Cell,
					Action: ActionCellNotSent, CodeError: errors.As(err, &perr), Err: err,
				})
			}
		}
	}
	for _, col := range t.Columns {
		if col.Cell.typ() == Formula {
			for row := first + len(recs); row < first+n; row++ {
				if err := w.book.SetFormula(w.sheet.Name, col.Axis(row), col.Formula(row)); err != nil {
					return n, err
				}
			}
		}
		if col.Cell.Select == nil {
			continue
		}
		var list string
		var err error
		if col.Bind == nil {
			list, err = w.lookups.flat(col)
		} else {
			list, err = w.lookups.cascade(col, first)
		}
		if err == nil && list != "" {
			err = w.book.AddDropList(w.sheet.Name, col.Axis(first)+":"+col.Axis(first+n-1), list)
		}
		if err != nil {
			w.record(ErrorRecord{Col: col.Seq + 1, Cell: col.Cell, CodeError: true, Action: ActionCellNotSent, Err: fmt.Errorf("dropdown: %w", err)})
		}
	}
	return n, nil
}

func (w *sheetWriter) writeHeader(t *Table, start int) error {
	sheet := w.sheet.Name
	lastCol := t.Columns[len(t.Columns)-1]
	row := start
	if t.Title != "" {
		axis := "A" + strconv.Itoa(row)
		if err := w.book.SetText(sheet, axis, t.Title); err != nil {
			return err
		}
		if lastCol.Seq != 0 {
			if err := w.book.MergeCells(sheet, axis, lastCol.Axis(row)); err != nil {
				return err
			}
		}
		style := t.TitleStyle
		if style == (xlsx.Style{}) {
			style = defaultTitleStyle
		}
		if err := w.book.SetStyle(sheet, axis, lastCol.Axis(row), style); err != nil {
			return err
		}
		row++
	}
	for _, h := range t.Headers {
		first, last := t.Columns[h.First], t.Columns[h.Last]
		if err := w.book.SetText(sheet, first.Axis(row), label(h.Cell)); err != nil {
			return err
		}
		switch {
		case len(h.Cell.Cells) != 0:
			if h.First != h.Last {
				if err := w.book.MergeCells(sheet, first.Axis(row), last.Axis(row)); err != nil {
					return err
				}
			}
			for _, col := range t.Columns[h.First : h.Last+1] {
				if err := w.book.SetText(sheet, col.Axis(row+1), label(col.Cell)); err != nil {
					return err
				}
			}
		case t.Composite:
			if err := w.book.MergeCells(sheet, first.Axis(row), first.Axis(row+1)); err != nil {
				return err
			}
		}
	}
	bottom := row
	if t.Composite {
		bottom++
	}
	if err := w.book.SetStyle(sheet, "A"+strconv.Itoa(row), lastCol.Axis(bottom), defaultHeaderStyle); err != nil {
		return err
	}
	for _, col := range t.Columns {
		if col.Cell.Width > 0 {
			if err := w.book.SetColWidth(sheet, col.Letter, col.Letter, col.Cell.Width); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkProperties records an error for each value column the struct
// records of the table have no property for.
func (w *sheetWriter) checkProperties(t *Table, recs []any) {
	w.ignored = make(map[string]bool)
	if len(recs) == 0 {
		return
	}
	rt := reflect.TypeOf(recs[0])
	if rt == nil || rt.Kind() == reflect.Map || rt == reflect.TypeOf((*Row)(nil)) {
		return
	}
	acc, err := accessorOf(rt)
	for _, col := range t.Columns {
		c := col.Cell
		if c.Skip || c.Static != nil || c.typ() == Formula || (err == nil && acc.property(c.Key) != nil) {
			continue
		}
		w.ignored[c.Key] = true
		w.record(ErrorRecord{
			Col: col.Seq + 1, Cell: c, CodeError: true, Action: ActionSkipColumn,
			Err: &PropertyAccessError{Key: c.Key, Type: rt.String(), Err: err},
		})
	}
}

func label(c *CellSpec) string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}
