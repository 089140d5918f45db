// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a generic record which keeps its keys in insertion order.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow returns a Row holding the given key/value pairs.
func NewRow(kv ...any) *Row {
	r := &Row{values: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

// Set sets the value of key, appending key when it is new.
func (r *Row) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value of key.
func (r *Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Row) Keys() []string { return append([]string(nil), r.keys...) }

// Len returns the number of keys.
func (r *Row) Len() int { return len(r.keys) }

// MarshalJSON encodes the row as an object with keys in insertion order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i != 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte(':')
		if b, err = json.Marshal(r.values[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// accessor reads and writes the mapped fields of one struct type.
// It is built once per type and shared.
type accessor struct {
	typ     reflect.Type
	fields  map[string]*property
	byField map[string]string
}

type property struct {
	index []int
	typ   reflect.Type
}

var accessors sync.Map // map[reflect.Type]*accessor

// accessorOf returns the accessor of the struct type t (or pointer to struct).
//
// A field is addressed by its `sheet:"key"` tag, or else by its name,
// compared case-insensitively.
func accessorOf(t reflect.Type) (*accessor, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if v, ok := accessors.Load(t); ok {
		return v.(*accessor), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}
	a := &accessor{typ: t, fields: make(map[string]*property), byField: make(map[string]string)}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		key := f.Tag.Get("sheet")
		if key == "-" {
			continue
		}
		if key == "" {
			key = f.Name
		}
		p := &property{index: f.Index, typ: f.Type}
		a.fields[strings.ToLower(key)] = p
		a.byField[f.Name] = key
	}
	v, _ := accessors.LoadOrStore(t, a)
	return v.(*accessor), nil
}

func (a *accessor) property(key string) *property {
	return a.fields[strings.ToLower(key)]
}

func (a *accessor) newRecord() reflect.Value { return reflect.New(a.typ) }

func (a *accessor) get(rec reflect.Value, key string) (any, error) {
	p := a.property(key)
	if p == nil {
		return nil, &PropertyAccessError{Key: key, Type: a.typ.String()}
	}
	for rec.Kind() == reflect.Pointer {
		if rec.IsNil() {
			return nil, nil
		}
		rec = rec.Elem()
	}
	fv, err := rec.FieldByIndexErr(p.index)
	if err != nil {
		return nil, nil
	}
	for fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}
	return fv.Interface(), nil
}

func (a *accessor) set(rec reflect.Value, key string, v any) error {
	p := a.property(key)
	if p == nil {
		return &PropertyAccessError{Key: key, Type: a.typ.String()}
	}
	if v == nil {
		return nil
	}
	fv, err := fieldByIndexAlloc(rec.Elem(), p.index)
	if err == nil {
		err = assign(fv, v)
	}
	if err != nil {
		return &PropertyAccessError{Key: key, Type: a.typ.String(), Err: err}
	}
	return nil
}

// fieldByIndexAlloc is like FieldByIndex, but allocates the nil embedded
// struct pointers on the way.
func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return v, fmt.Errorf("nil embedded pointer to unexported %s", v.Type().Elem())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
	errOverflow = errors.New("value out of range")
)

// assign stores v into the settable dst, converting between the values
// produced by the cell coercion and the common Go field types.
func assign(dst reflect.Value, v any) error {
	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	switch x := v.(type) {
	case decimal.Decimal:
		switch dst.Kind() {
		case reflect.Float32, reflect.Float64:
			f, _ := x.Float64()
			dst.SetFloat(f)
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if !x.IsInteger() {
				return fmt.Errorf("%s is not an integer", x)
			}
			return setInt(dst, x.IntPart())
		case reflect.String:
			dst.SetString(x.String())
			return nil
		}
	case int64:
		return assignInt(dst, x)
	case int:
		return assignInt(dst, int64(x))
	case float64:
		return assignFloat(dst, x)
	case float32:
		return assignFloat(dst, float64(x))
	case time.Time:
		if dst.Kind() == reflect.String {
			dst.SetString(x.Format(DefaultDatePattern))
			return nil
		}
	case bool:
		if dst.Kind() == reflect.String {
			dst.SetString(fmt.Sprint(x))
			return nil
		}
	case string:
		if dst.Kind() == reflect.String {
			dst.SetString(x)
			return nil
		}
	}
	if src.Type().ConvertibleTo(dst.Type()) && src.Kind() == dst.Kind() {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}

func assignInt(dst reflect.Value, i int64) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(dst, i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i < 0 || dst.OverflowUint(uint64(i)) {
			return errOverflow
		}
		dst.SetUint(uint64(i))
		return nil
	case reflect.Float32, reflect.Float64:
		dst.SetFloat(float64(i))
		return nil
	case reflect.String:
		dst.SetString(fmt.Sprint(i))
		return nil
	}
	if dst.Type() == decimalType {
		dst.Set(reflect.ValueOf(decimal.NewFromInt(i)))
		return nil
	}
	return fmt.Errorf("cannot assign integer to %s", dst.Type())
}

func assignFloat(dst reflect.Value, f float64) error {
	switch dst.Kind() {
	case reflect.Float32, reflect.Float64:
		if dst.OverflowFloat(f) {
			return errOverflow
		}
		dst.SetFloat(f)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != math.Trunc(f) {
			return fmt.Errorf("%v is not an integer", f)
		}
		return setInt(dst, int64(f))
	}
	if dst.Type() == decimalType {
		dst.Set(reflect.ValueOf(decimal.NewFromFloat(f)))
		return nil
	}
	return fmt.Errorf("cannot assign number to %s", dst.Type())
}

func setInt(dst reflect.Value, i int64) error {
	if dst.OverflowInt(i) {
		return errOverflow
	}
	dst.SetInt(i)
	return nil
}

// destination builds records of one sheet: typed structs when acc is set,
// *Row otherwise.
type destination struct {
	acc *accessor
}

func newDestination(target any) (destination, error) {
	if target == nil {
		return destination{}, nil
	}
	t, ok := target.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(target)
	}
	acc, err := accessorOf(t)
	return destination{acc: acc}, err
}

func (d destination) typeName() string {
	if d.acc == nil {
		return "Row"
	}
	return d.acc.typ.String()
}

// fieldType returns the declared type of the property, nil for rows or unknown keys.
func (d destination) fieldType(key string) reflect.Type {
	if d.acc == nil {
		return nil
	}
	if p := d.acc.property(key); p != nil {
		t := p.typ
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		return t
	}
	return nil
}

func (d destination) has(key string) bool {
	return d.acc == nil || d.acc.property(key) != nil
}

type builder struct {
	row *Row
	rec reflect.Value
	acc *accessor
}

func (d destination) newBuilder() *builder {
	if d.acc == nil {
		return &builder{row: NewRow()}
	}
	return &builder{rec: d.acc.newRecord(), acc: d.acc}
}

func (b *builder) set(key string, v any) error {
	if b.acc == nil {
		b.row.Set(key, v)
		return nil
	}
	return b.acc.set(b.rec, key, v)
}

func (b *builder) value() any {
	if b.acc == nil {
		return b.row
	}
	return b.rec.Interface()
}

// getProperty returns the value of key in rec, which may be a *Row, a map
// with string keys or a struct (pointer).
func getProperty(rec any, key string) (any, error) {
	switch x := rec.(type) {
	case nil:
		return nil, nil
	case *Row:
		v, _ := x.Get(key)
		return v, nil
	case map[string]any:
		return x[key], nil
	case map[string]string:
		if v, ok := x[key]; ok {
			return v, nil
		}
		return nil, nil
	}
	acc, err := accessorOf(reflect.TypeOf(rec))
	if err != nil {
		return nil, &PropertyAccessError{Key: key, Type: fmt.Sprintf("%T", rec), Err: err}
	}
	return acc.get(reflect.ValueOf(rec), key)
}
