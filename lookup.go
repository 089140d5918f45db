// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/sheetmap/xlsx"
)

// Hidden sheets holding the dropdown lists, labels and codes side by side.
const (
	LabelSheet = "_labels"
	CodeSheet  = "_codes"
)

// lookupName returns a deterministic defined name for a lookup list.
// The hash only makes the name identifier-safe; it is not a security measure.
func lookupName(sheet, table int, key, suffix string) string {
	var buf strings.Builder
	buf.WriteString(strconv.Itoa(sheet))
	buf.WriteByte(0)
	buf.WriteString(strconv.Itoa(table))
	buf.WriteByte(0)
	buf.WriteString(key)
	buf.WriteByte(0)
	buf.WriteString(suffix)
	return fmt.Sprintf("_L%016x", xxhash.Sum64String(buf.String()))
}

func (c *Column) lookupName(suffix string) string {
	return lookupName(c.Table.Sheet.Ordinal, c.Table.Ordinal, c.Key(), suffix)
}

// lookupRange returns the absolute reference of a lookup list of size entries
// in the given row of sheet.
//
// Flat lists start at column A, so up to 26 entries end within A..Z.
// Cascading lists keep the parent value in column A and start at B, so they
// stay single-lettered up to 25 entries. Longer lists roll over into AA, AB, ...
func lookupRange(sheet string, row, size int, cascade bool) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("empty lookup list")
	}
	first := 1
	if cascade {
		first = 2
	}
	from, err := excelize.ColumnNumberToName(first)
	if err != nil {
		return "", err
	}
	to, err := excelize.ColumnNumberToName(first + size - 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("'%s'!$%s$%d:$%s$%d", sheet, from, row, to, row), nil
}

// lookupWriter writes the lookup lists of one sheet into the shared book.
type lookupWriter struct {
	book   *xlsx.Book
	logger *slog.Logger
	// labels holds the defined name of the label list of each flat dropdown column.
	labels map[*Column]string
}

func (w *lookupWriter) writeRow(row int, labels, codes []string, cascade bool, labelName, codeName string) error {
	for _, x := range []struct {
		sheet, name string
		values      []string
	}{{LabelSheet, labelName, labels}, {CodeSheet, codeName, codes}} {
		vals := make([]any, len(x.values))
		for i, v := range x.values {
			vals[i] = v
		}
		if err := w.book.SetRow(x.sheet, row, vals...); err != nil {
			return err
		}
		size := len(x.values)
		if cascade {
			size--
		}
		ref, err := lookupRange(x.sheet, row, size, cascade)
		if err != nil {
			return err
		}
		if err := w.book.DefineName(x.name, ref); err != nil {
			return fmt.Errorf("define %s=%s: %w", x.name, ref, err)
		}
	}
	return nil
}

// flat writes the options of a non-cascading dropdown and returns the
// name of its label list.
func (w *lookupWriter) flat(col *Column) (string, error) {
	if name, ok := w.labels[col]; ok {
		return name, nil
	}
	sel := col.Cell.Select
	if len(sel.Labels) == 0 {
		return "", nil
	}
	row := w.book.NextLookupRow()
	name := col.lookupName("label")
	if err := w.writeRow(row, sel.Labels, sel.codes(), false, name, col.lookupName("code")); err != nil {
		return "", err
	}
	w.logger.Debug("lookup", "sheet", col.Table.Sheet.Name, "key", col.Key(), "row", row, "name", name, "size", len(sel.Labels))
	w.labels[col] = name
	return name, nil
}

// cascade writes one lookup row per parent option that has children and
// returns the list formula constraining the child cells whose first data row is firstRow.
func (w *lookupWriter) cascade(col *Column, firstRow int) (string, error) {
	parentName, err := w.flat(col.Bind)
	if err != nil || parentName == "" {
		return "", err
	}
	parent := col.Bind.Cell.Select
	groups := groupChoices(parent.codes(), col.Cell.Select.Source)
	base := col.lookupName("cascade")
	codeBase := col.lookupName("cascade-code")
	for i, g := range groups {
		if len(g) == 0 {
			continue
		}
		labels := make([]string, 1, len(g)+1)
		codes := make([]string, 1, len(g)+1)
		labels[0], codes[0] = parent.Labels[i], parent.codes()[i]
		for _, ch := range g {
			labels = append(labels, ch.Label)
			codes = append(codes, ch.code())
		}
		row := w.book.NextLookupRow()
		suffix := "_" + strconv.Itoa(i+1)
		if err := w.writeRow(row, labels, codes, true, base+suffix, codeBase+suffix); err != nil {
			return "", err
		}
	}
	w.logger.Debug("cascade", "sheet", col.Table.Sheet.Name, "key", col.Key(), "parent", col.Bind.Key(), "base", base)
	return fmt.Sprintf(`INDIRECT("%s_"&MATCH($%s%d,%s,0))`, base, col.Bind.Letter, firstRow, parentName), nil
}

func (c Choice) code() string {
	if c.Code == "" {
		return c.Label
	}
	return c.Code
}

// groupChoices groups the source choices by the index of their parent code,
// keeping the source order within each group. Choices with an unknown parent are dropped.
func groupChoices(parentCodes []string, source []Choice) [][]Choice {
	groups := make([][]Choice, len(parentCodes))
	for _, ch := range source {
		if i := slices.Index(parentCodes, ch.Parent); i >= 0 {
			groups[i] = append(groups[i], ch)
		}
	}
	return groups
}

type lookupKey struct {
	key, parent string
}

// Lookups maps dropdown labels to codes on import. Cascading lists are keyed
// by the column and the label read from the parent column of the same row.
type Lookups struct {
	m map[lookupKey]map[string]string
}

func (l *Lookups) add(key, parent string, labels, codes []string) {
	if l.m == nil {
		l.m = make(map[lookupKey]map[string]string)
	}
	k := lookupKey{key: key, parent: parent}
	m := l.m[k]
	if m == nil {
		m = make(map[string]string, len(labels))
		l.m[k] = m
	}
	for i, label := range labels {
		if i < len(codes) {
			m[label] = codes[i]
		}
	}
}

// Code returns the code of label in the list of key (and parent label for cascading lists).
// found is false when there is no such list.
func (l Lookups) Code(key, parent, label string) (code string, ok, found bool) {
	m, found := l.m[lookupKey{key: key, parent: parent}]
	if !found {
		return "", false, false
	}
	code, ok = m[label]
	return code, ok, true
}

// buildLookups collects the label/code lists of the dropdown columns of t.
// Lists missing from the settings are read from the lookup sheets of book, if present.
func buildLookups(t *Table, book *xlsx.Book, names map[string]string) (Lookups, error) {
	var l Lookups
	for _, col := range t.Columns {
		sel := col.Cell.Select
		if sel == nil {
			continue
		}
		if !sel.Cascade {
			labels, codes := sel.Labels, sel.codes()
			if len(labels) == 0 && book != nil {
				var err error
				if labels, codes, err = readLookup(book, names, col.lookupName("label"), col.lookupName("code")); err != nil {
					return l, err
				}
			}
			if len(labels) != 0 {
				l.add(col.Key(), "", labels, codes)
			}
			continue
		}
		parent := col.Bind.Cell.Select
		if len(sel.Source) != 0 && len(parent.Labels) != 0 {
			for i, g := range groupChoices(parent.codes(), sel.Source) {
				labels := make([]string, len(g))
				codes := make([]string, len(g))
				for j, ch := range g {
					labels[j], codes[j] = ch.Label, ch.code()
				}
				l.add(col.Key(), parent.Labels[i], labels, codes)
			}
			continue
		}
		if book == nil {
			continue
		}
		base, codeBase := col.lookupName("cascade")+"_", col.lookupName("cascade-code")+"_"
		for name := range names {
			suffix, ok := strings.CutPrefix(name, base)
			if !ok {
				continue
			}
			labels, codes, err := readLookup(book, names, name, codeBase+suffix)
			if err != nil {
				return l, err
			}
			first, err := readFirst(book, names[name])
			if err != nil {
				return l, err
			}
			l.add(col.Key(), first, labels, codes)
		}
	}
	return l, nil
}

func readLookup(book *xlsx.Book, names map[string]string, labelName, codeName string) (labels, codes []string, err error) {
	if ref, ok := names[labelName]; ok {
		if labels, err = readRange(book, ref); err != nil {
			return nil, nil, err
		}
	}
	if ref, ok := names[codeName]; ok {
		if codes, err = readRange(book, ref); err != nil {
			return nil, nil, err
		}
	} else {
		codes = labels
	}
	return labels, codes, nil
}

// parseRange splits a reference such as '_labels'!$B$3:$D$3.
func parseRange(ref string) (sheet string, fromCol, fromRow, toCol, toRow int, err error) {
	ref = strings.TrimPrefix(ref, "=")
	i := strings.LastIndexByte(ref, '!')
	if i < 0 {
		return "", 0, 0, 0, 0, fmt.Errorf("%q: no sheet", ref)
	}
	sheet = strings.Trim(ref[:i], "'")
	from, to, _ := strings.Cut(strings.ReplaceAll(ref[i+1:], "$", ""), ":")
	if to == "" {
		to = from
	}
	if fromCol, fromRow, err = excelize.CellNameToCoordinates(from); err != nil {
		return
	}
	toCol, toRow, err = excelize.CellNameToCoordinates(to)
	return
}

func readRange(book *xlsx.Book, ref string) ([]string, error) {
	sheet, fromCol, fromRow, toCol, toRow, err := parseRange(ref)
	if err != nil {
		return nil, err
	}
	var vals []string
	for r := fromRow; r <= toRow; r++ {
		for c := fromCol; c <= toCol; c++ {
			axis, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return nil, err
			}
			v, err := book.Value(sheet, axis)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
	}
	return vals, nil
}

// readFirst returns the value in column A of the row of ref: the parent
// label of a cascading list.
func readFirst(book *xlsx.Book, ref string) (string, error) {
	sheet, _, row, _, _, err := parseRange(ref)
	if err != nil {
		return "", err
	}
	return book.Value(sheet, "A"+strconv.Itoa(row))
}
