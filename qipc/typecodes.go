// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import "math"

// Kind is a q type code. Atoms are sent as the negated code; vectors as the
// positive code.
type Kind int8

const (
	KMixed Kind = 0

	KBoolean   Kind = 1
	KGUID      Kind = 2
	KByte      Kind = 4
	KShort     Kind = 5
	KInt       Kind = 6
	KLong      Kind = 7
	KReal      Kind = 8
	KFloat     Kind = 9
	KChar      Kind = 10
	KSymbol    Kind = 11
	KTimestamp Kind = 12
	KMonth     Kind = 13
	KDate      Kind = 14
	KDatetime  Kind = 15
	KTimespan  Kind = 16
	KMinute    Kind = 17
	KSecond    Kind = 18
	KTime      Kind = 19

	KTable      Kind = 98
	KDict       Kind = 99
	KSortedDict Kind = 127
	KError      Kind = -128

	// Function types, decoded only for completeness.
	KLambda     Kind = 100
	KUnaryPrim  Kind = 101
	KBinaryPrim Kind = 102
)

// IPC message kinds (header byte 1).
const (
	MsgAsync    byte = 0
	MsgSync     byte = 1
	MsgResponse byte = 2
)

// Attr is a q vector attribute.
type Attr byte

const (
	AttrNone    Attr = 0
	AttrSorted  Attr = 1 // `s#
	AttrUnique  Attr = 2 // `u#
	AttrParted  Attr = 3 // `p#
	AttrGrouped Attr = 5 // `g#
)

const (
	headerSize = 8
	guidSize   = 16

	littleEndian byte = 1
	bigEndian    byte = 0

	// Handshake capability requesting the framed, compression-capable protocol.
	capabilityByte byte = 3
)

// Null sentinel bit patterns. Temporal kinds use the sentinel of their
// underlying storage type.
const (
	NullShort int16 = math.MinInt16
	NullInt   int32 = math.MinInt32
	NullLong  int64 = math.MinInt64
)

// NullFloat returns the canonical float64 null (quiet NaN, 0x7FF8...).
func NullFloat() float64 { return math.Float64frombits(0x7FF8000000000000) }

// NullReal returns the canonical float32 null.
func NullReal() float32 { return math.Float32frombits(0x7FC00000) }

// Infinity sentinels.
const (
	InfShort int16 = math.MaxInt16
	InfInt   int32 = math.MaxInt32
	InfLong  int64 = math.MaxInt64

	NegInfShort int16 = -math.MaxInt16
	NegInfInt   int32 = -math.MaxInt32
	NegInfLong  int64 = -math.MaxInt64
)

// kindSize gives the fixed payload width of each scalar kind, in bytes.
// Symbols are variable-width (NUL-terminated) and are absent.
var kindSize = map[Kind]int{
	KBoolean:   1,
	KGUID:      guidSize,
	KByte:      1,
	KShort:     2,
	KInt:       4,
	KLong:      8,
	KReal:      4,
	KFloat:     8,
	KChar:      1,
	KTimestamp: 8,
	KMonth:     4,
	KDate:      4,
	KDatetime:  8,
	KTimespan:  8,
	KMinute:    4,
	KSecond:    4,
	KTime:      4,
}

// kindChar maps a kind to its single-character q type identifier used in DDL
// and in the output of the meta command.
var kindChar = map[Kind]byte{
	KMixed:     ' ',
	KBoolean:   'b',
	KGUID:      'g',
	KByte:      'x',
	KShort:     'h',
	KInt:       'i',
	KLong:      'j',
	KReal:      'e',
	KFloat:     'f',
	KChar:      'c',
	KSymbol:    's',
	KTimestamp: 'p',
	KMonth:     'm',
	KDate:      'd',
	KDatetime:  'z',
	KTimespan:  'n',
	KMinute:    'u',
	KSecond:    'v',
	KTime:      't',
}

// charKind is the reverse of kindChar.
var charKind = func() map[byte]Kind {
	m := make(map[byte]Kind, len(kindChar))
	for k, c := range kindChar {
		m[c] = k
	}
	return m
}()

// kindName maps a kind to its spelled-out name.
var kindName = map[Kind]string{
	KMixed:     "mixed",
	KBoolean:   "boolean",
	KGUID:      "guid",
	KByte:      "byte",
	KShort:     "short",
	KInt:       "int",
	KLong:      "long",
	KReal:      "real",
	KFloat:     "float",
	KChar:      "char",
	KSymbol:    "symbol",
	KTimestamp: "timestamp",
	KMonth:     "month",
	KDate:      "date",
	KDatetime:  "datetime",
	KTimespan:  "timespan",
	KMinute:    "minute",
	KSecond:    "second",
	KTime:      "time",
	KTable:     "table",
	KDict:      "dict",
	KError:     "error",
}

func (k Kind) String() string {
	if n, ok := kindName[k]; ok {
		return n
	}
	return "unknown"
}

// Char returns the single-character q identifier for the kind, or '*' when
// the kind has none.
func (k Kind) Char() byte {
	if c, ok := kindChar[k]; ok {
		return c
	}
	return '*'
}
