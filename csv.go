// Copyright 2021, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

// EncName is the charset of the environment, from LANG.
var EncName = "utf-8"

func init() {
	EncName = os.Getenv("LANG")
	if i := strings.IndexByte(EncName, '.'); i >= 0 {
		EncName = strings.ToLower(EncName[i+1:])
	}
	if EncName == "" || EncName == "C" || EncName == "POSIX" {
		EncName = "utf-8"
	}
}

// GetEncoding returns the encoding of encName, nil for UTF-8.
func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, err)
	}
	return enc, err
}

// CSVReader is a csv.Reader which closes the underlying file.
type CSVReader struct {
	*csv.Reader
	io.Closer
}

// OpenCSV opens fn (stdin for "" or "-") for reading as CSV in the encName charset.
// The separator is guessed from the first non-identifier character.
func OpenCSV(fn, encName string) (CSVReader, error) {
	fh := os.Stdin
	if !(fn == "" || fn == "-") {
		var err error
		if fh, err = os.Open(fn); err != nil {
			return CSVReader{}, err
		}
	}
	cr, err := NewCSVReader(fh, encName)
	if err != nil {
		fh.Close()
		return CSVReader{}, err
	}
	return CSVReader{Reader: cr, Closer: fh}, nil
}

// NewCSVReader returns a CSV reader of r in the encName charset,
// guessing the separator.
func NewCSVReader(r io.Reader, encName string) (*csv.Reader, error) {
	enc, err := GetEncoding(encName)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}
	br := bufio.NewReaderSize(r, 1<<20)
	b, err := br.Peek(1024)
	if err != nil && len(b) == 0 {
		return nil, err
	}
	sep := rune(',')
	for _, r := range string(b) {
		if r == '"' || r == '_' || r == ' ' || r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsNumber(r) {
			continue
		}
		if r == '\n' || r == '\r' {
			break
		}
		sep = r
		break
	}
	cr := csv.NewReader(br)
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	return cr, nil
}

// LoadCSV copies the records of cr into the named sheet of book,
// from row 1. Numeric fields are written as numbers.
// It returns the number of rows written.
func LoadCSV(book *xlsx.Book, sheet string, cr *csv.Reader) (int, error) {
	if err := book.NewSheet(sheet, false); err != nil {
		return 0, err
	}
	var n int
	vals := make([]any, 0, 16)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("%s:%d: %w", sheet, n+1, err)
		}
		vals = vals[:0]
		for _, s := range rec {
			if isNumber(s) {
				vals = append(vals, xlsx.Number(s))
			} else {
				vals = append(vals, s)
			}
		}
		n++
		if err := book.SetRow(sheet, n, vals...); err != nil {
			return n, err
		}
	}
}

// isNumber reports whether s is a plain decimal number.
// Zero-padded codes such as "007" stay text.
func isNumber(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	t := strings.TrimPrefix(s, "-")
	return !(len(t) > 1 && t[0] == '0' && t[1] != '.') && !strings.ContainsAny(t, "eEnNiI_xX")
}
