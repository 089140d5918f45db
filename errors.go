// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFormula is returned when a FORMULA cell holds a plain value.
	ErrNotFormula = errors.New("cell is not a formula")
	// ErrNotOption is returned when a dropdown cell holds an unknown label.
	ErrNotOption = errors.New("not one of the options")
	// ErrEmptyRow is the cause of an EmptyRowWarning.
	ErrEmptyRow = errors.New("empty row")
)

// StructuralError means the document could not be read at all.
type StructuralError struct {
	Err error
}

func (e *StructuralError) Error() string { return fmt.Sprintf("unreadable document: %v", e.Err) }
func (e *StructuralError) Unwrap() error { return e.Err }

// ConfigError is a defect of the settings tree.
type ConfigError struct {
	Sheet, Key string
	Err        error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("settings of sheet %q: %v", e.Sheet, e.Err)
	}
	return fmt.Sprintf("settings of sheet %q, cell %q: %v", e.Sheet, e.Key, e.Err)
}
func (e *ConfigError) Unwrap() error { return e.Err }

// CoercionError means the text of a cell cannot be parsed as its declared type.
type CoercionError struct {
	Key  string
	Type CellType
	Text string
	Err  error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: cannot read %q as %s: %v", e.Key, e.Text, e.Type, e.Err)
}
func (e *CoercionError) Unwrap() error { return e.Err }

// RuleViolationError means the text of a cell failed its validation rule.
type RuleViolationError struct {
	Key     string
	Rule    RuleKind
	Operand string
	Text    string
	Err     error
}

func (e *RuleViolationError) Error() string {
	var msg string
	switch e.Rule {
	case Required:
		msg = "value is required"
	case EqualsTo:
		msg = fmt.Sprintf("must be %q", e.Operand)
	case Long, Int, Double:
		msg = "must be a " + ruleNames[e.Rule]
	case Expr:
		msg = fmt.Sprintf("does not satisfy %s", e.Operand)
	default:
		msg = string(e.Rule)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s: %q %s", e.Key, e.Text, msg)
}
func (e *RuleViolationError) Unwrap() error { return e.Err }

var ruleNames = map[RuleKind]string{Long: "long integer", Int: "integer", Double: "decimal number"}

// PropertyAccessError means the record has no usable property for a key.
type PropertyAccessError struct {
	Key  string
	Type string
	Err  error
}

func (e *PropertyAccessError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s has no property %q", e.Type, e.Key)
	}
	return fmt.Sprintf("%s.%s: %v", e.Type, e.Key, e.Err)
}
func (e *PropertyAccessError) Unwrap() error { return e.Err }

// EmptyRowWarning is recorded for a wholly blank row inside a table.
type EmptyRowWarning struct {
	Row int
}

func (e *EmptyRowWarning) Error() string { return fmt.Sprintf("row %d is empty", e.Row) }
func (e *EmptyRowWarning) Unwrap() error { return ErrEmptyRow }
