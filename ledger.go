// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"cmp"
	"slices"
	"sync"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

// Recovery actions recorded with ledger entries.
const (
	ActionKeepRow     = "row kept, cell left empty"
	ActionSkipRow     = "row skipped"
	ActionSkipColumn  = "column ignored"
	ActionSkipSheet   = "sheet skipped"
	ActionAbort       = "call aborted"
	ActionCellNotSent = "cell not written"
)

// ErrorRecord is one entry of the error or warning ledger.
type ErrorRecord struct {
	Sheet string
	// Address is the A1 reference of the cell, when applicable.
	Address  string
	Row, Col int
	Cell     *CellSpec
	Message  string
	Action   string
	// CodeError distinguishes settings/program defects from bad input data.
	CodeError bool
	Err       error
}

// Key returns the key of the offending cell, if any.
func (r ErrorRecord) Key() string {
	if r.Cell == nil {
		return ""
	}
	return r.Cell.Key
}

// Record is an imported record with the 1-based row it was read from.
type Record struct {
	Row   int
	Value any
}

// Ledger accumulates records, errors and warnings of one call.
// It is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	records  map[string][]Record
	errors   []ErrorRecord
	warnings []ErrorRecord
}

func (l *Ledger) addError(r ErrorRecord) {
	if r.Message == "" && r.Err != nil {
		r.Message = r.Err.Error()
	}
	l.mu.Lock()
	l.errors = append(l.errors, r)
	l.mu.Unlock()
}

func (l *Ledger) addWarning(r ErrorRecord) {
	if r.Message == "" && r.Err != nil {
		r.Message = r.Err.Error()
	}
	l.mu.Lock()
	l.warnings = append(l.warnings, r)
	l.mu.Unlock()
}

func (l *Ledger) addRecords(sheet string, recs []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.records == nil {
		l.records = make(map[string][]Record)
	}
	l.records[sheet] = append(l.records[sheet], recs...)
}

// Errors returns the errors ordered by sheet, row and column.
func (l *Ledger) Errors() []ErrorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sorted(l.errors)
}

// Warnings returns the warnings ordered by sheet, row and column.
func (l *Ledger) Warnings() []ErrorRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sorted(l.warnings)
}

// Records returns the records imported from the named sheet, in row order.
func (l *Ledger) Records(sheet string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records[sheet])
}

// Completed reports whether no error has been recorded. Warnings do not count.
func (l *Ledger) Completed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors) == 0
}

func sorted(recs []ErrorRecord) []ErrorRecord {
	recs = slices.Clone(recs)
	slices.SortStableFunc(recs, func(a, b ErrorRecord) int {
		return cmp.Or(
			cmp.Compare(a.Sheet, b.Sheet),
			cmp.Compare(a.Row, b.Row),
			cmp.Compare(a.Col, b.Col),
		)
	})
	return recs
}

// ImportResult is the outcome of Import.
type ImportResult struct {
	*Ledger
	Book *xlsx.Book
}

// ExportResult is the outcome of Export. The caller persists Book.
type ExportResult struct {
	*Ledger
	Book *xlsx.Book
}

// Records returns the typed records imported from the named sheet.
// Records of another type are skipped.
func Records[T any](res *ImportResult, sheet string) []*T {
	recs := res.Records(sheet)
	out := make([]*T, 0, len(recs))
	for _, r := range recs {
		if t, ok := r.Value.(*T); ok {
			out = append(out, t)
		}
	}
	return out
}
