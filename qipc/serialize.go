// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Marshal serializes a value as a complete IPC message: 8-byte little-endian
// header followed by the encoded body.
func Marshal(v any, msgType byte) ([]byte, error) {
	e := encoder{buf: make([]byte, headerSize, 512)}
	if err := e.value(v); err != nil {
		return nil, err
	}
	packHeader(e.buf[:headerSize], msgType, false, len(e.buf))
	return e.buf, nil
}

// MarshalPayload serializes a value without the IPC header.
func MarshalPayload(v any) ([]byte, error) {
	e := encoder{buf: make([]byte, 0, 256)}
	if err := e.value(v); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) byte(b byte) { e.buf = append(e.buf, b) }

func (e *encoder) bytes(b []byte) { e.buf = append(e.buf, b...) }

func (e *encoder) atomType(k Kind) { e.byte(byte(int8(-k))) }

func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) symbol(s Symbol) {
	e.bytes([]byte(s))
	e.byte(0)
}

// value dispatches on the Go shape of v.
func (e *encoder) value(v any) error {
	switch x := v.(type) {
	case Null:
		return e.null(x.Kind)
	case bool:
		e.atomType(KBoolean)
		if x {
			e.byte(1)
		} else {
			e.byte(0)
		}
	case uuid.UUID:
		e.atomType(KGUID)
		e.bytes(x[:])
	case uint8:
		e.atomType(KByte)
		e.byte(x)
	case int16:
		e.atomType(KShort)
		e.u16(uint16(x))
	case int32:
		e.atomType(KInt)
		e.u32(uint32(x))
	case int:
		e.atomType(KLong)
		e.u64(uint64(int64(x)))
	case int64:
		e.atomType(KLong)
		e.u64(uint64(x))
	case float32:
		e.atomType(KReal)
		e.u32(math.Float32bits(x))
	case float64:
		e.atomType(KFloat)
		e.u64(math.Float64bits(x))
	case Char:
		e.atomType(KChar)
		e.byte(byte(x))
	case Symbol:
		e.atomType(KSymbol)
		e.symbol(x)
	case time.Time:
		e.atomType(KTimestamp)
		e.u64(uint64(timeToTimestamp(x)))
	case time.Duration:
		e.atomType(KTimespan)
		e.u64(uint64(x.Nanoseconds()))
	case Month:
		e.atomType(KMonth)
		e.u32(uint32(int32(x)))
	case Date:
		e.atomType(KDate)
		e.u32(uint32(int32(x)))
	case Datetime:
		e.atomType(KDatetime)
		e.u64(math.Float64bits(float64(x)))
	case Minute:
		e.atomType(KMinute)
		e.u32(uint32(int32(x)))
	case Second:
		e.atomType(KSecond)
		e.u32(uint32(int32(x)))
	case Time:
		e.atomType(KTime)
		e.u32(uint32(int32(x)))
	case string:
		e.byte(byte(KChar))
		e.byte(byte(AttrNone))
		e.u32(uint32(len(x)))
		e.bytes([]byte(x))
	case []byte:
		e.byte(byte(KByte))
		e.byte(byte(AttrNone))
		e.u32(uint32(len(x)))
		e.bytes(x)
	case []any:
		return e.mixed(x, AttrNone)
	case []Symbol:
		return e.vector(&Vector{Kind: KSymbol, Data: x})
	case []string:
		syms := make([]Symbol, len(x))
		for i, s := range x {
			syms[i] = Symbol(s)
		}
		return e.vector(&Vector{Kind: KSymbol, Data: syms})
	case []int64:
		return e.vector(&Vector{Kind: KLong, Data: x})
	case []int32:
		return e.vector(&Vector{Kind: KInt, Data: x})
	case []int16:
		return e.vector(&Vector{Kind: KShort, Data: x})
	case []float64:
		return e.vector(&Vector{Kind: KFloat, Data: x})
	case []float32:
		return e.vector(&Vector{Kind: KReal, Data: x})
	case []bool:
		return e.vector(&Vector{Kind: KBoolean, Data: x})
	case *Vector:
		return e.vector(x)
	case *Table:
		return e.table(x)
	case *Dict:
		e.byte(byte(KDict))
		if err := e.value(x.Key); err != nil {
			return err
		}
		return e.value(x.Value)
	case nil:
		// Nullary (::).
		e.byte(byte(KUnaryPrim))
		e.byte(0)
	default:
		return fmt.Errorf("%w: cannot serialize %T", ErrSerialization, v)
	}
	return nil
}

// null writes a typed null atom: negated type code plus the kind's sentinel
// bit pattern.
func (e *encoder) null(k Kind) error {
	e.atomType(k)
	switch k {
	case KBoolean, KByte:
		e.byte(0)
	case KChar:
		e.byte(' ')
	case KGUID:
		e.bytes(make([]byte, guidSize))
	case KSymbol:
		e.byte(0)
	case KShort:
		ns := NullShort
		e.u16(uint16(ns))
	case KInt, KMonth, KDate, KMinute, KSecond, KTime:
		ni := NullInt
		e.u32(uint32(ni))
	case KLong, KTimestamp, KTimespan:
		nl := NullLong
		e.u64(uint64(nl))
	case KReal:
		e.u32(math.Float32bits(NullReal()))
	case KFloat, KDatetime:
		e.u64(math.Float64bits(NullFloat()))
	default:
		return fmt.Errorf("%w: no null for kind %v", ErrSerialization, k)
	}
	return nil
}

func (e *encoder) mixed(items []any, attr Attr) error {
	e.byte(byte(KMixed))
	e.byte(byte(attr))
	e.u32(uint32(len(items)))
	for _, item := range items {
		if err := e.value(item); err != nil {
			return err
		}
	}
	return nil
}

// vector writes a typed vector: kind byte, attribute byte, count, elements.
func (e *encoder) vector(v *Vector) error {
	if v.Kind == KMixed {
		items, ok := v.Data.([]any)
		if !ok {
			return fmt.Errorf("%w: mixed vector holds %T, want []any", ErrSerialization, v.Data)
		}
		return e.mixed(items, v.Attr)
	}

	e.byte(byte(v.Kind))
	e.byte(byte(v.Attr))

	switch d := v.Data.(type) {
	case []bool:
		e.u32(uint32(len(d)))
		for _, b := range d {
			if b {
				e.byte(1)
			} else {
				e.byte(0)
			}
		}
	case []byte:
		e.u32(uint32(len(d)))
		e.bytes(d)
	case []int16:
		e.u32(uint32(len(d)))
		for _, x := range d {
			e.u16(uint16(x))
		}
	case []int32:
		e.u32(uint32(len(d)))
		for _, x := range d {
			e.u32(uint32(x))
		}
	case []int64:
		e.u32(uint32(len(d)))
		for _, x := range d {
			e.u64(uint64(x))
		}
	case []float32:
		e.u32(uint32(len(d)))
		for _, x := range d {
			e.u32(math.Float32bits(x))
		}
	case []float64:
		e.u32(uint32(len(d)))
		for _, x := range d {
			e.u64(math.Float64bits(x))
		}
	case []Symbol:
		e.u32(uint32(len(d)))
		for _, s := range d {
			e.symbol(s)
		}
	case []uuid.UUID:
		e.u32(uint32(len(d)))
		for _, g := range d {
			e.bytes(g[:])
		}
	default:
		return fmt.Errorf("%w: vector of kind %v holds unsupported storage %T", ErrSerialization, v.Kind, v.Data)
	}
	return nil
}

// table writes a table: type byte, attribute byte, then the flipped column
// dict (symbol vector of names, mixed list of columns).
func (e *encoder) table(t *Table) error {
	if len(t.Cols) != len(t.Data) {
		return fmt.Errorf("%w: %d column names for %d columns", ErrSerialization, len(t.Cols), len(t.Data))
	}
	e.byte(byte(KTable))
	e.byte(byte(AttrNone))
	e.byte(byte(KDict))

	names := make([]Symbol, len(t.Cols))
	for i, c := range t.Cols {
		names[i] = Symbol(c)
	}
	if err := e.vector(&Vector{Kind: KSymbol, Data: names}); err != nil {
		return err
	}
	return e.mixed(t.Data, AttrNone)
}
