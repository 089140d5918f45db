// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

// Options of Import and Export.
type Options struct {
	Logger *slog.Logger
	// Validator, when set, validates every imported struct record.
	Validator *validator.Validate
	// Concurrency limits the sheets and rows processed at the same time;
	// defaults to GOMAXPROCS.
	Concurrency int
	// DefaultRows is the number of template rows of tables without Rows;
	// defaults to DefaultRows.
	DefaultRows int
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Options) defaultRows() int {
	if o == nil || o.DefaultRows <= 0 {
		return DefaultRows
	}
	return o.DefaultRows
}

func (o *Options) concurrency() int {
	if o == nil || o.Concurrency <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Concurrency
}

// Import reads the workbook from r and maps every table of specs to records.
//
// Data defects are recorded in the ledger of the result and do not stop
// the import. The returned error is non-nil only when the document cannot
// be read or the settings are invalid; the ledger holds that failure, too.
func Import(ctx context.Context, r io.Reader, specs []*SheetSpec, opts Options) (*ImportResult, error) {
	book, err := xlsx.OpenBook(r)
	if err != nil {
		res := &ImportResult{Ledger: new(Ledger)}
		err = &StructuralError{Err: err}
		res.addError(ErrorRecord{Action: ActionAbort, Err: err})
		return res, err
	}
	return ImportBook(ctx, book, specs, opts)
}

// ImportBook is like Import for an already opened workbook.
func ImportBook(ctx context.Context, book *xlsx.Book, specs []*SheetSpec, opts Options) (*ImportResult, error) {
	res := &ImportResult{Ledger: new(Ledger), Book: book}
	if book == nil {
		err := &StructuralError{Err: errors.New("no document")}
		res.addError(ErrorRecord{Action: ActionAbort, Err: err})
		return res, err
	}
	layout, err := Resolve(specs)
	if err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			res.addError(ErrorRecord{Sheet: cerr.Sheet, CodeError: true, Action: ActionAbort, Err: err})
		}
		return res, err
	}
	logger := opts.logger()
	names := book.DefinedNames()

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.concurrency())
	for _, sh := range layout.Sheets {
		grp.Go(func() error {
			return importSheet(ctx, book, sh, names, res.Ledger, &opts)
		})
	}
	err = grp.Wait()
	logger.Info("imported", "sheets", len(layout.Sheets), "errors", len(res.errors), "warnings", len(res.warnings))
	return res, err
}

func importSheet(ctx context.Context, book *xlsx.Book, sh *Sheet, names map[string]string, ledger *Ledger, opts *Options) error {
	logger := opts.logger().With("sheet", sh.Name)
	if !book.HasSheet(sh.Name) {
		ledger.addError(ErrorRecord{
			Sheet: sh.Name, Action: ActionSkipSheet,
			Err: excelize.ErrSheetNotExist{SheetName: sh.Name},
		})
		return nil
	}
	last, err := book.LastRow(sh.Name)
	if err != nil {
		ledger.addError(ErrorRecord{Sheet: sh.Name, CodeError: true, Action: ActionAbort, Err: err})
		return nil
	}
	start := 1
	for _, t := range sh.Tables {
		if start > last {
			logger.Warn("no rows left for table", "table", t.Name, "start", start)
			break
		}
		lookups, err := buildLookups(t, book, names)
		if err != nil {
			ledger.addError(ErrorRecord{
				Sheet: sh.Name, CodeError: true, Action: ActionAbort,
				Err: fmt.Errorf("lookups of table %q: %w", t.Name, err),
			})
			return nil
		}
		s := &scanner{book: book, sheet: sh, table: t, lookups: lookups, ledger: ledger, opts: opts}
		s.checkProperties()
		rows, next, err := s.bounds(start, last)
		if err != nil {
			ledger.addError(ErrorRecord{Sheet: sh.Name, Row: start, CodeError: true, Action: ActionAbort, Err: err})
			return nil
		}
		recs, err := s.scanRows(ctx, rows)
		if err != nil {
			return err
		}
		ledger.addRecords(sh.Name, recs)
		logger.Debug("table", "table", t.Name, "start", start, "records", len(recs), "next", next)
		start = next
	}
	return nil
}
