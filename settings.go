// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package sheetmap maps records to and from spreadsheet tables described by
// a declarative settings tree of sheets, tables and cells.
package sheetmap

import (
	"github.com/UNO-SOFT/sheetmap/xlsx"
)

// Sentinel marks the end of a table in the first cell of a row.
const Sentinel = "[-----]"

// DefaultDatePattern is used by DATE cells without a DatePattern.
const DefaultDatePattern = "2006-01-02"

// DefaultRows is the number of template rows prepared on export when a table
// does not set Rows.
const DefaultRows = 100

// CellType is the declared logical type of a cell.
type CellType string

const (
	Auto    CellType = "AUTO"
	Varchar CellType = "VARCHAR"
	Number  CellType = "NUMBER"
	Integer CellType = "INTEGER"
	BigInt  CellType = "BIGINT"
	Boolean CellType = "BOOLEAN"
	Date    CellType = "DATE"
	Formula CellType = "FORMULA"
)

// RuleKind is a validation rule applied to the text of a cell on import.
type RuleKind string

const (
	Required RuleKind = "REQUIRED"
	EqualsTo RuleKind = "EQUALSTO"
	Long     RuleKind = "LONG"
	Int      RuleKind = "INTEGER"
	Double   RuleKind = "DOUBLE"
	// Expr evaluates Operand as a boolean expr-lang expression over "value".
	Expr RuleKind = "EXPR"
)

// FuncKind is the aggregate function of a FORMULA cell.
type FuncKind string

const (
	Sum     FuncKind = "SUM"
	Average FuncKind = "AVERAGE"
	Count   FuncKind = "COUNT"
	Max     FuncKind = "MAX"
	Min     FuncKind = "MIN"
)

// SheetSpec describes one sheet of the workbook.
type SheetSpec struct {
	Name       string       `yaml:"name" validate:"required"`
	Title      string       `yaml:"title,omitempty"`
	TitleStyle xlsx.Style   `yaml:"titleStyle,omitempty"`
	Tables     []*TableSpec `yaml:"tables" validate:"required,min=1,dive,required"`
	// Target is the destination type of imported records; nil means
	// records are imported as *Row.
	Target any `yaml:"-" validate:"-"`
}

// TableSpec describes a table of a sheet. Tables follow each other
// vertically, separated by a Sentinel row.
type TableSpec struct {
	// Name identifies the records of the table on export;
	// defaults to the sheet name, suffixed with ".<ordinal>" after the first table.
	Name       string      `yaml:"name,omitempty"`
	Title      string      `yaml:"title,omitempty"`
	TitleStyle xlsx.Style  `yaml:"titleStyle,omitempty"`
	Cells      []*CellSpec `yaml:"cells" validate:"required,min=1,dive,required"`
	// Rows is the number of data rows receiving dropdowns and formulas on export.
	Rows int `yaml:"rows,omitempty" validate:"gte=0"`
}

// CellSpec describes a column, or a composite column when Cells is not empty.
type CellSpec struct {
	Key   string   `yaml:"key" validate:"required_without=Cells"`
	Label string   `yaml:"label,omitempty"`
	Type  CellType `yaml:"type,omitempty" validate:"omitempty,oneof=AUTO VARCHAR NUMBER INTEGER BIGINT BOOLEAN DATE FORMULA"`
	// Cells are the sub-cells of a composite column, sharing one merged header.
	Cells []*CellSpec `yaml:"cells,omitempty" validate:"omitempty,dive,required"`
	// Static always wins over the value read from the document or the record.
	Static *string `yaml:"static,omitempty"`
	// Fixed maps record values to the displayed text on export.
	Fixed       map[string]string `yaml:"fixed,omitempty"`
	Rule        RuleKind          `yaml:"rule,omitempty" validate:"omitempty,oneof=REQUIRED EQUALSTO LONG INTEGER DOUBLE EXPR"`
	Operand     string            `yaml:"operand,omitempty"`
	Select      *SelectSpec       `yaml:"select,omitempty"`
	Groups      []string          `yaml:"groups,omitempty"`
	Formula     *FormulaSpec      `yaml:"formula,omitempty"`
	DatePattern string            `yaml:"datePattern,omitempty"`
	// Skip keeps the column in the layout but out of value mapping.
	Skip  bool    `yaml:"skip,omitempty"`
	Width float64 `yaml:"width,omitempty" validate:"gte=0"`
}

// SelectSpec is a dropdown of labels, each paired with the code at the same index.
type SelectSpec struct {
	Labels []string `yaml:"labels,omitempty"`
	Codes  []string `yaml:"codes,omitempty"`
	// Cascade makes the options depend on the value of the BindKey column.
	Cascade bool     `yaml:"cascade,omitempty"`
	BindKey string   `yaml:"bind,omitempty" validate:"required_if=Cascade true"`
	Source  []Choice `yaml:"source,omitempty"`
}

// Choice is an option of a cascading dropdown, offered when the parent
// column holds the code Parent.
type Choice struct {
	Parent string `yaml:"parent"`
	Label  string `yaml:"label"`
	Code   string `yaml:"code,omitempty"`
}

// FormulaSpec aggregates the members of Group in each row.
type FormulaSpec struct {
	Func  FuncKind `yaml:"func" validate:"oneof=SUM AVERAGE COUNT MAX MIN"`
	Group string   `yaml:"group" validate:"required"`
}

func (c *CellSpec) typ() CellType {
	if c.Type == "" {
		return Auto
	}
	return c.Type
}

func (c *CellSpec) datePattern() string {
	if c.DatePattern == "" {
		return DefaultDatePattern
	}
	return c.DatePattern
}

// codes returns the codes paired with the labels, defaulting to the labels.
func (s *SelectSpec) codes() []string {
	if len(s.Codes) == 0 {
		return s.Labels
	}
	return s.Codes
}

// String returns the static value pointer for s, for building settings in code.
func String(s string) *string { return &s }
