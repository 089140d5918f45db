// Copyright 2021, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package report renders the error and warning ledger of an import or export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/UNO-SOFT/sheetmap"
)

// Severity of an Entry.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Entry is a flattened ledger entry.
type Entry struct {
	Severity  string
	Sheet     string
	Address   string
	Row, Col  int
	Key       string
	Message   string
	Action    string
	CodeError bool
}

// Headers of the tabular renderings, in Entry.Fields order.
var Headers = []string{"severity", "sheet", "cell", "row", "column", "key", "message", "action", "code error"}

// Fields returns the columns of the entry.
func (e Entry) Fields() []string {
	var row, col string
	if e.Row != 0 {
		row = strconv.Itoa(e.Row)
	}
	if e.Col != 0 {
		col = strconv.Itoa(e.Col)
	}
	return []string{e.Severity, e.Sheet, e.Address, row, col, e.Key, e.Message, e.Action, strconv.FormatBool(e.CodeError)}
}

// Entries returns the errors then the warnings of the ledger.
func Entries(l *sheetmap.Ledger) []Entry {
	errs, warns := l.Errors(), l.Warnings()
	entries := make([]Entry, 0, len(errs)+len(warns))
	for _, x := range []struct {
		severity string
		recs     []sheetmap.ErrorRecord
	}{{SeverityError, errs}, {SeverityWarning, warns}} {
		for _, r := range x.recs {
			entries = append(entries, Entry{
				Severity: x.severity, Sheet: r.Sheet, Address: r.Address,
				Row: r.Row, Col: r.Col, Key: r.Key(),
				Message: r.Message, Action: r.Action, CodeError: r.CodeError,
			})
		}
	}
	return entries
}

// WriteCSV writes the entries with a header row, in the encName charset.
func WriteCSV(w io.Writer, entries []Entry, encName string) error {
	enc, err := sheetmap.GetEncoding(encName)
	if err != nil {
		return err
	}
	if enc != nil {
		ew := enc.NewEncoder().Writer(w)
		if c, ok := ew.(io.Closer); ok {
			defer c.Close()
		}
		w = ew
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(e.Fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Format is the rendering chosen by the file name extension.
type Format string

const (
	CSV  Format = "csv"
	HTML Format = "html"
	PDF  Format = "pdf"
)

// FormatOf returns the format of the file name fn, ignoring a .gz suffix.
func FormatOf(fn string) Format {
	fn = strings.ToLower(strings.TrimSuffix(fn, ".gz"))
	switch {
	case strings.HasSuffix(fn, ".html"), strings.HasSuffix(fn, ".htm"):
		return HTML
	case strings.HasSuffix(fn, ".pdf"):
		return PDF
	}
	return CSV
}

// Options of WriteFile.
type Options struct {
	Title   string
	Charset string
	PDF     PDFOptions
}

// WriteFile writes the entries into fn (stdout for "" or "-"), in the
// format of its extension. Names ending in .gz are gzip compressed.
func WriteFile(fn string, entries []Entry, opts Options) error {
	var fh *os.File
	if fn == "" || fn == "-" {
		fh = os.Stdout
	} else {
		var err error
		if fh, err = os.Create(fn); err != nil {
			return err
		}
		defer fh.Close()
	}
	var w io.Writer = fh
	var gw *gzip.Writer
	if strings.HasSuffix(fn, ".gz") {
		gw = gzip.NewWriter(fh)
		w = gw
	}
	var err error
	switch FormatOf(fn) {
	case HTML:
		err = WriteHTML(w, opts.Title, entries)
	case PDF:
		err = WritePDF(w, opts.Title, entries, opts.PDF)
	default:
		err = WriteCSV(w, entries, opts.Charset)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	if gw != nil {
		if err = gw.Close(); err != nil {
			return err
		}
	}
	if fh != os.Stdout {
		return fh.Close()
	}
	return nil
}
