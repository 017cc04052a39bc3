// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

// Field describes one column of a model: name, kind, q attribute,
// nullability, optional default, and whether it is part of the primary key.
// A mixed-list field (nested column) carries the element kind in Elem when
// the server exposes it.
type Field struct {
	Name       string
	Kind       Kind
	Elem       Kind // element kind for KMixed fields; KMixed when unknown
	Attr       Attr
	Nullable   bool
	PrimaryKey bool
	Default    any
}

// FieldOption configures a field at construction.
type FieldOption func(*Field)

// Key marks the field as part of the primary key.
func Key() FieldOption {
	return func(f *Field) { f.PrimaryKey = true }
}

// WithAttr sets the q vector attribute applied to the column.
func WithAttr(a Attr) FieldOption {
	return func(f *Field) { f.Attr = a }
}

// WithDefault sets the value used when an insert row omits the field.
func WithDefault(v any) FieldOption {
	return func(f *Field) { f.Default = v }
}

// NotNull marks the field as rejecting typed nulls.
func NotNull() FieldOption {
	return func(f *Field) { f.Nullable = false }
}

// NewField builds a field of an arbitrary kind.
func NewField(name string, kind Kind, opts ...FieldOption) Field {
	f := Field{Name: name, Kind: kind, Elem: KMixed, Nullable: true}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Per-kind constructors, the declarative surface for static models.

func BoolField(name string, opts ...FieldOption) Field   { return NewField(name, KBoolean, opts...) }
func GUIDField(name string, opts ...FieldOption) Field   { return NewField(name, KGUID, opts...) }
func ByteField(name string, opts ...FieldOption) Field   { return NewField(name, KByte, opts...) }
func ShortField(name string, opts ...FieldOption) Field  { return NewField(name, KShort, opts...) }
func IntField(name string, opts ...FieldOption) Field    { return NewField(name, KInt, opts...) }
func LongField(name string, opts ...FieldOption) Field   { return NewField(name, KLong, opts...) }
func RealField(name string, opts ...FieldOption) Field   { return NewField(name, KReal, opts...) }
func FloatField(name string, opts ...FieldOption) Field  { return NewField(name, KFloat, opts...) }
func CharField(name string, opts ...FieldOption) Field   { return NewField(name, KChar, opts...) }
func SymbolField(name string, opts ...FieldOption) Field { return NewField(name, KSymbol, opts...) }
func TimestampField(name string, opts ...FieldOption) Field {
	return NewField(name, KTimestamp, opts...)
}
func MonthField(name string, opts ...FieldOption) Field    { return NewField(name, KMonth, opts...) }
func DateField(name string, opts ...FieldOption) Field     { return NewField(name, KDate, opts...) }
func DatetimeField(name string, opts ...FieldOption) Field { return NewField(name, KDatetime, opts...) }
func TimespanField(name string, opts ...FieldOption) Field { return NewField(name, KTimespan, opts...) }
func MinuteField(name string, opts ...FieldOption) Field   { return NewField(name, KMinute, opts...) }
func SecondField(name string, opts ...FieldOption) Field   { return NewField(name, KSecond, opts...) }
func TimeField(name string, opts ...FieldOption) Field     { return NewField(name, KTime, opts...) }

// ListField declares a nested column whose elements are vectors of elem.
func ListField(name string, elem Kind, opts ...FieldOption) Field {
	f := NewField(name, KMixed, opts...)
	f.Elem = elem
	return f
}
