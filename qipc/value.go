// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// The codec's value universe. Atoms decode to native Go values where one
// exists (bool, int16/32/64, float32/64, time.Time, time.Duration,
// uuid.UUID) and to the named types below where Go has no distinct native
// shape. Typed nulls are Null values; vectors are *Vector; tables are
// *Table; dictionaries (including keyed tables) are *Dict.

// Symbol is an interned-string scalar, distinct on the wire from a char
// vector.
type Symbol string

// Char is a single q character.
type Char byte

// Date counts days since 2000.01.01.
type Date int32

// Month counts months since 2000.01.
type Month int32

// Minute counts minutes since midnight.
type Minute int32

// Second counts seconds since midnight.
type Second int32

// Time counts milliseconds since midnight.
type Time int32

// Datetime is fractional days since 2000.01.01 (the deprecated z type).
type Datetime float64

// Null is a typed null. Two nulls are equal only when their kinds are equal;
// a long null is not a date null.
type Null struct {
	Kind Kind
}

func (n Null) String() string {
	return "0N" + string(kindChar[n.Kind])
}

// Vector is a typed q vector: element kind, attribute, and elements. Data
// holds a typed slice in wire representation; numeric and temporal slices
// keep raw sentinel bit patterns, which At surfaces as Null values.
//
// Storage per kind:
//
//	boolean []bool, guid []uuid.UUID, byte/char []byte, short []int16,
//	int/month/date/minute/second/time []int32, long/timestamp/timespan
//	[]int64, real []float32, float/datetime []float64, symbol []Symbol,
//	mixed []any
type Vector struct {
	Kind Kind
	Attr Attr
	Data any
}

// Len returns the element count.
func (v *Vector) Len() int {
	switch d := v.Data.(type) {
	case []bool:
		return len(d)
	case []byte:
		return len(d)
	case []int16:
		return len(d)
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []Symbol:
		return len(d)
	case []uuid.UUID:
		return len(d)
	case []any:
		return len(d)
	case nil:
		return 0
	}
	panic(fmt.Sprintf("qipc: vector of kind %v holds unsupported storage %T", v.Kind, v.Data))
}

// At returns element i converted to its decoded atom form: raw sentinels
// become Null values and temporal raws become their native shapes.
func (v *Vector) At(i int) any {
	switch d := v.Data.(type) {
	case []bool:
		return d[i]
	case []byte:
		if v.Kind == KChar {
			return Char(d[i])
		}
		return d[i]
	case []int16:
		return cookInt16(v.Kind, d[i])
	case []int32:
		return cookInt32(v.Kind, d[i])
	case []int64:
		return cookInt64(v.Kind, d[i])
	case []float32:
		return cookFloat32(v.Kind, d[i])
	case []float64:
		return cookFloat64(v.Kind, d[i])
	case []Symbol:
		if d[i] == "" {
			return Null{KSymbol}
		}
		return d[i]
	case []uuid.UUID:
		if d[i] == uuid.Nil {
			return Null{KGUID}
		}
		return d[i]
	case []any:
		return d[i]
	}
	panic(fmt.Sprintf("qipc: vector of kind %v holds unsupported storage %T", v.Kind, v.Data))
}

// IsNullAt reports whether element i carries the null sentinel of the
// vector's kind.
func (v *Vector) IsNullAt(i int) bool {
	_, ok := v.At(i).(Null)
	return ok
}

func cookInt16(k Kind, raw int16) any {
	if raw == NullShort {
		return Null{k}
	}
	return raw
}

func cookInt32(k Kind, raw int32) any {
	if raw == NullInt {
		return Null{k}
	}
	switch k {
	case KMonth:
		return Month(raw)
	case KDate:
		return Date(raw)
	case KMinute:
		return Minute(raw)
	case KSecond:
		return Second(raw)
	case KTime:
		return Time(raw)
	}
	return raw
}

func cookInt64(k Kind, raw int64) any {
	if raw == NullLong {
		return Null{k}
	}
	switch k {
	case KTimestamp:
		return timestampToTime(raw)
	case KTimespan:
		return time.Duration(raw)
	}
	return raw
}

func cookFloat32(k Kind, raw float32) any {
	if math.IsNaN(float64(raw)) {
		return Null{k}
	}
	return raw
}

func cookFloat64(k Kind, raw float64) any {
	if math.IsNaN(raw) {
		return Null{k}
	}
	if k == KDatetime {
		return Datetime(raw)
	}
	return raw
}

// Table is an ordered list of named columns of equal length. Columns hold
// decoded column values: *Vector, []any (mixed), or string (char vector).
type Table struct {
	Cols []string
	Data []any
}

// Len returns the row count.
func (t *Table) Len() int {
	if len(t.Data) == 0 {
		return 0
	}
	return colLen(t.Data[0])
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a column by name.
func (t *Table) Column(name string) (any, bool) {
	i := t.Index(name)
	if i < 0 {
		return nil, false
	}
	return t.Data[i], true
}

// validate checks the table invariants: unique column names and equal column
// lengths.
func (t *Table) validate() error {
	if len(t.Cols) != len(t.Data) {
		return fmt.Errorf("%w: %d column names for %d columns", ErrDeserialization, len(t.Cols), len(t.Data))
	}
	seen := make(map[string]bool, len(t.Cols))
	for _, c := range t.Cols {
		if seen[c] {
			return fmt.Errorf("%w: duplicate column %q", ErrDeserialization, c)
		}
		seen[c] = true
	}
	for i, col := range t.Data {
		if colLen(col) != t.Len() {
			return fmt.Errorf("%w: column %q length %d != %d", ErrDeserialization, t.Cols[i], colLen(col), t.Len())
		}
	}
	return nil
}

// Dict is a q dictionary: parallel key and value collections. A keyed table
// arrives as a Dict whose Key and Value are both *Table.
type Dict struct {
	Key   any
	Value any
}

// KeyedTable splits a dict into its key and value tables, when it is one.
func (d *Dict) KeyedTable() (key, value *Table, ok bool) {
	k, ok1 := d.Key.(*Table)
	v, ok2 := d.Value.(*Table)
	if !ok1 || !ok2 {
		return nil, nil, false
	}
	return k, v, true
}

// colLen returns the length of any decoded column value.
func colLen(col any) int {
	switch c := col.(type) {
	case *Vector:
		return c.Len()
	case []any:
		return len(c)
	case string:
		return len(c)
	case nil:
		return 0
	}
	return 1
}

// colAt returns element i of any decoded column value, cooked like
// Vector.At.
func colAt(col any, i int) any {
	switch c := col.(type) {
	case *Vector:
		return c.At(i)
	case []any:
		return c[i]
	case string:
		return Char(c[i])
	}
	panic(fmt.Sprintf("qipc: unsupported column storage %T", col))
}

// Convenience vector constructors, used by literals and tests.

// Symbols builds an attribute-free symbol vector.
func Symbols(ss ...string) *Vector {
	data := make([]Symbol, len(ss))
	for i, s := range ss {
		data[i] = Symbol(s)
	}
	return &Vector{Kind: KSymbol, Data: data}
}

// Longs builds an attribute-free long vector.
func Longs(vs ...int64) *Vector {
	return &Vector{Kind: KLong, Data: vs}
}

// Floats builds an attribute-free float vector.
func Floats(vs ...float64) *Vector {
	return &Vector{Kind: KFloat, Data: vs}
}

// Bools builds a boolean vector.
func Bools(vs ...bool) *Vector {
	return &Vector{Kind: KBoolean, Data: vs}
}
