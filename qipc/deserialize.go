// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Unmarshal deserializes a complete IPC message. The compression flag is
// honored: a compressed body is inflated before decoding. Returns the
// message kind and the decoded value; a server error body (type -128)
// surfaces as a *QError in err.
func Unmarshal(msg []byte) (msgType byte, v any, err error) {
	endian, msgType, compressed, _, err := unpackHeader(msg)
	if err != nil {
		return 0, nil, err
	}
	if compressed {
		msg = Decompress(msg[headerSize:], msg[:headerSize])
		endian = msg[0]
	}
	d := &decoder{data: msg, pos: headerSize, le: endian == littleEndian}
	v, err = d.value()
	return msgType, v, err
}

// UnmarshalPayload deserializes a headerless little-endian body.
func UnmarshalPayload(b []byte) (any, error) {
	d := &decoder{data: b, le: true}
	return d.value()
}

type decoder struct {
	data []byte
	pos  int
	le   bool
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.data) {
		return fmt.Errorf("%w: truncated message at offset %d (need %d bytes)", ErrDeserialization, d.pos, n)
	}
	return nil
}

func (d *decoder) byte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.bytes(2)
	if err != nil {
		return 0, err
	}
	if d.le {
		return binary.LittleEndian.Uint16(b), nil
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.bytes(4)
	if err != nil {
		return 0, err
	}
	if d.le {
		return binary.LittleEndian.Uint32(b), nil
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.bytes(8)
	if err != nil {
		return 0, err
	}
	if d.le {
		return binary.LittleEndian.Uint64(b), nil
	}
	return binary.BigEndian.Uint64(b), nil
}

// symbol reads a NUL-terminated UTF-8 string.
func (d *decoder) symbol() (string, error) {
	start := d.pos
	for {
		if d.pos >= len(d.data) {
			return "", fmt.Errorf("%w: unterminated symbol at offset %d", ErrDeserialization, start)
		}
		if d.data[d.pos] == 0 {
			break
		}
		d.pos++
	}
	s := string(d.data[start:d.pos])
	d.pos++ // NUL
	return s, nil
}

func (d *decoder) count() (int, error) {
	n, err := d.u32()
	return int(n), err
}

func (d *decoder) value() (any, error) {
	tb, err := d.byte()
	if err != nil {
		return nil, err
	}
	t := int8(tb)

	switch {
	case t == int8(KError):
		msg, err := d.symbol()
		if err != nil {
			return nil, err
		}
		return nil, &QError{Msg: msg}
	case t < 0:
		return d.atom(Kind(-t))
	case t == int8(KMixed):
		return d.mixedList()
	case t >= 1 && t <= 19:
		return d.vector(Kind(t))
	case t >= 20 && t <= 76:
		// Enumerated vector: int32 indices into a symbol domain, wire-
		// compatible with an int vector.
		return d.vector(KInt)
	case t == int8(KTable):
		return d.table()
	case t == int8(KDict) || t == int8(KSortedDict):
		return d.dict()
	case t >= 100 && t <= 111:
		return d.function(t)
	}
	return nil, fmt.Errorf("%w: unknown type byte %d", ErrDeserialization, t)
}

func (d *decoder) atom(k Kind) (any, error) {
	switch k {
	case KBoolean:
		b, err := d.byte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case KGUID:
		raw, err := d.bytes(guidSize)
		if err != nil {
			return nil, err
		}
		var g uuid.UUID
		copy(g[:], raw)
		if g == uuid.Nil {
			return Null{KGUID}, nil
		}
		return g, nil
	case KByte:
		return d.byte()
	case KShort:
		v, err := d.u16()
		if err != nil {
			return nil, err
		}
		return cookInt16(k, int16(v)), nil
	case KInt, KMonth, KDate, KMinute, KSecond, KTime:
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		return cookInt32(k, int32(v)), nil
	case KLong, KTimestamp, KTimespan:
		v, err := d.u64()
		if err != nil {
			return nil, err
		}
		return cookInt64(k, int64(v)), nil
	case KReal:
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		return cookFloat32(k, math.Float32frombits(v)), nil
	case KFloat, KDatetime:
		v, err := d.u64()
		if err != nil {
			return nil, err
		}
		return cookFloat64(k, math.Float64frombits(v)), nil
	case KChar:
		b, err := d.byte()
		if err != nil {
			return nil, err
		}
		return Char(b), nil
	case KSymbol:
		s, err := d.symbol()
		if err != nil {
			return nil, err
		}
		if s == "" {
			return Null{KSymbol}, nil
		}
		return Symbol(s), nil
	}
	return nil, fmt.Errorf("%w: unknown atom kind %d", ErrDeserialization, int8(k))
}

func (d *decoder) mixedList() (any, error) {
	if _, err := d.byte(); err != nil { // attribute, unused on mixed lists
		return nil, err
	}
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	items := make([]any, n)
	for i := range n {
		items[i], err = d.value()
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (d *decoder) vector(k Kind) (any, error) {
	ab, err := d.byte()
	if err != nil {
		return nil, err
	}
	attr := Attr(ab)
	n, err := d.count()
	if err != nil {
		return nil, err
	}

	switch k {
	case KChar:
		raw, err := d.bytes(n)
		if err != nil {
			return nil, err
		}
		if attr == AttrNone {
			return string(raw), nil
		}
		data := make([]byte, n)
		copy(data, raw)
		return &Vector{Kind: KChar, Attr: attr, Data: data}, nil
	case KBoolean:
		raw, err := d.bytes(n)
		if err != nil {
			return nil, err
		}
		data := make([]bool, n)
		for i, b := range raw {
			data[i] = b != 0
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KByte:
		raw, err := d.bytes(n)
		if err != nil {
			return nil, err
		}
		data := make([]byte, n)
		copy(data, raw)
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KSymbol:
		data := make([]Symbol, n)
		for i := range n {
			s, err := d.symbol()
			if err != nil {
				return nil, err
			}
			data[i] = Symbol(s)
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KGUID:
		data := make([]uuid.UUID, n)
		for i := range n {
			raw, err := d.bytes(guidSize)
			if err != nil {
				return nil, err
			}
			copy(data[i][:], raw)
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KShort:
		data := make([]int16, n)
		for i := range n {
			v, err := d.u16()
			if err != nil {
				return nil, err
			}
			data[i] = int16(v)
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KInt, KMonth, KDate, KMinute, KSecond, KTime:
		data := make([]int32, n)
		for i := range n {
			v, err := d.u32()
			if err != nil {
				return nil, err
			}
			data[i] = int32(v)
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KLong, KTimestamp, KTimespan:
		data := make([]int64, n)
		for i := range n {
			v, err := d.u64()
			if err != nil {
				return nil, err
			}
			data[i] = int64(v)
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KReal:
		data := make([]float32, n)
		for i := range n {
			v, err := d.u32()
			if err != nil {
				return nil, err
			}
			data[i] = math.Float32frombits(v)
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	case KFloat, KDatetime:
		data := make([]float64, n)
		for i := range n {
			v, err := d.u64()
			if err != nil {
				return nil, err
			}
			data[i] = math.Float64frombits(v)
		}
		return &Vector{Kind: k, Attr: attr, Data: data}, nil
	}
	return nil, fmt.Errorf("%w: unknown vector kind %d", ErrDeserialization, int8(k))
}

// table decodes the flip of a column dict.
func (d *decoder) table() (any, error) {
	if _, err := d.byte(); err != nil { // table attribute
		return nil, err
	}
	inner, err := d.value()
	if err != nil {
		return nil, err
	}
	dict, ok := inner.(*Dict)
	if !ok {
		return nil, fmt.Errorf("%w: table body is %T, want dict", ErrDeserialization, inner)
	}
	names, ok := dict.Key.(*Vector)
	if !ok || names.Kind != KSymbol {
		return nil, fmt.Errorf("%w: table column names are not a symbol vector", ErrDeserialization)
	}
	cols, ok := dict.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: table columns are %T, want mixed list", ErrDeserialization, dict.Value)
	}
	syms := names.Data.([]Symbol)
	t := &Table{Cols: make([]string, len(syms)), Data: cols}
	for i, s := range syms {
		t.Cols[i] = string(s)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (d *decoder) dict() (any, error) {
	key, err := d.value()
	if err != nil {
		return nil, err
	}
	value, err := d.value()
	if err != nil {
		return nil, err
	}
	return &Dict{Key: key, Value: value}, nil
}

// function decodes lambda and operator types, which appear only in
// introspection results. They are surfaced as strings.
func (d *decoder) function(t int8) (any, error) {
	if t == int8(KLambda) {
		if _, err := d.symbol(); err != nil { // namespace
			return nil, err
		}
		body, err := d.value()
		if err != nil {
			return nil, err
		}
		if s, ok := body.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", body), nil
	}
	b, err := d.byte()
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("<function type %d:%d>", t, b), nil
}
