// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package qarrow exports qipc result sets as Apache Arrow record batches,
// the columnar interchange format for analytical tooling.
package qarrow

import (
	"fmt"
	"math"
	"time"

	"github.com/Query-farm/qipc-go/qipc"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
)

// Days and nanoseconds between the Unix epoch and the q epoch (2000.01.01).
const (
	epochOffsetDays  = 10957
	epochOffsetNanos = int64(epochOffsetDays) * 24 * int64(time.Hour)
)

// ToRecord converts a result set into an Arrow record batch. Column types
// map kind-for-kind (symbols and char vectors to utf8, timestamps to
// nanosecond timestamps, dates to date32); typed nulls become Arrow nulls.
func ToRecord(rs *qipc.ResultSet) (arrow.RecordBatch, error) {
	mem := memory.NewGoAllocator()
	n := rs.Len()

	fields := make([]arrow.Field, 0, len(rs.Columns()))
	cols := make([]arrow.Array, 0, len(rs.Columns()))
	release := func() {
		for _, c := range cols {
			c.Release()
		}
	}

	for _, name := range rs.Columns() {
		col, _ := rs.Column(name)
		dt, arr, err := buildColumn(mem, col, n)
		if err != nil {
			release()
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
		cols = append(cols, arr)
	}

	schema := arrow.NewSchema(fields, nil)
	batch := array.NewRecordBatch(schema, cols, int64(n))
	release()
	return batch, nil
}

func buildColumn(mem memory.Allocator, col any, n int) (arrow.DataType, arrow.Array, error) {
	switch c := col.(type) {
	case string:
		// Char column decoded as a Go string: one utf8 cell per char.
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for i := 0; i < len(c); i++ {
			b.Append(string(c[i]))
		}
		return arrow.BinaryTypes.String, b.NewArray(), nil
	case []any:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range c {
			switch s := v.(type) {
			case string:
				b.Append(s)
			case qipc.Symbol:
				b.Append(string(s))
			case qipc.Null:
				b.AppendNull()
			default:
				b.Append(fmt.Sprint(v))
			}
		}
		return arrow.BinaryTypes.String, b.NewArray(), nil
	case *qipc.Vector:
		return buildVectorColumn(mem, c)
	}
	return nil, nil, fmt.Errorf("unsupported column storage %T", col)
}

func buildVectorColumn(mem memory.Allocator, v *qipc.Vector) (arrow.DataType, arrow.Array, error) {
	switch data := v.Data.(type) {
	case []bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return arrow.FixedWidthTypes.Boolean, b.NewArray(), nil
	case []byte:
		b := array.NewUint8Builder(mem)
		defer b.Release()
		b.AppendValues(data, nil)
		return arrow.PrimitiveTypes.Uint8, b.NewArray(), nil
	case []int16:
		b := array.NewInt16Builder(mem)
		defer b.Release()
		for _, x := range data {
			if x == qipc.NullShort {
				b.AppendNull()
			} else {
				b.Append(x)
			}
		}
		return arrow.PrimitiveTypes.Int16, b.NewArray(), nil
	case []int32:
		return buildInt32Column(mem, v.Kind, data)
	case []int64:
		return buildInt64Column(mem, v.Kind, data)
	case []float32:
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		for _, x := range data {
			if math.IsNaN(float64(x)) {
				b.AppendNull()
			} else {
				b.Append(x)
			}
		}
		return arrow.PrimitiveTypes.Float32, b.NewArray(), nil
	case []float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, x := range data {
			if math.IsNaN(x) {
				b.AppendNull()
			} else {
				b.Append(x)
			}
		}
		return arrow.PrimitiveTypes.Float64, b.NewArray(), nil
	case []qipc.Symbol:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, s := range data {
			if s == "" {
				b.AppendNull()
			} else {
				b.Append(string(s))
			}
		}
		return arrow.BinaryTypes.String, b.NewArray(), nil
	case []any:
		return buildColumn(mem, data, len(data))
	}
	switch v.Kind {
	case qipc.KGUID:
		dt := &arrow.FixedSizeBinaryType{ByteWidth: 16}
		b := array.NewFixedSizeBinaryBuilder(mem, dt)
		defer b.Release()
		for i := range v.Len() {
			switch g := v.At(i).(type) {
			case uuid.UUID:
				b.Append(g[:])
			default:
				b.AppendNull()
			}
		}
		return dt, b.NewArray(), nil
	}
	return nil, nil, fmt.Errorf("unsupported vector kind %v (%T)", v.Kind, v.Data)
}

func buildInt32Column(mem memory.Allocator, kind qipc.Kind, data []int32) (arrow.DataType, arrow.Array, error) {
	switch kind {
	case qipc.KDate:
		b := array.NewDate32Builder(mem)
		defer b.Release()
		for _, x := range data {
			if x == qipc.NullInt {
				b.AppendNull()
			} else {
				b.Append(arrow.Date32(x + epochOffsetDays))
			}
		}
		return arrow.FixedWidthTypes.Date32, b.NewArray(), nil
	case qipc.KTime:
		b := array.NewTime32Builder(mem, arrow.FixedWidthTypes.Time32ms.(*arrow.Time32Type))
		defer b.Release()
		for _, x := range data {
			if x == qipc.NullInt {
				b.AppendNull()
			} else {
				b.Append(arrow.Time32(x))
			}
		}
		return arrow.FixedWidthTypes.Time32ms, b.NewArray(), nil
	default:
		// int, month, minute, second keep their integral storage.
		b := array.NewInt32Builder(mem)
		defer b.Release()
		for _, x := range data {
			if x == qipc.NullInt {
				b.AppendNull()
			} else {
				b.Append(x)
			}
		}
		return arrow.PrimitiveTypes.Int32, b.NewArray(), nil
	}
}

func buildInt64Column(mem memory.Allocator, kind qipc.Kind, data []int64) (arrow.DataType, arrow.Array, error) {
	switch kind {
	case qipc.KTimestamp:
		dt := arrow.FixedWidthTypes.Timestamp_ns.(*arrow.TimestampType)
		b := array.NewTimestampBuilder(mem, dt)
		defer b.Release()
		for _, x := range data {
			if x == qipc.NullLong {
				b.AppendNull()
			} else {
				b.Append(arrow.Timestamp(x + epochOffsetNanos))
			}
		}
		return dt, b.NewArray(), nil
	case qipc.KTimespan:
		dt := &arrow.DurationType{Unit: arrow.Nanosecond}
		b := array.NewDurationBuilder(mem, dt)
		defer b.Release()
		for _, x := range data {
			if x == qipc.NullLong {
				b.AppendNull()
			} else {
				b.Append(arrow.Duration(x))
			}
		}
		return dt, b.NewArray(), nil
	default:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, x := range data {
			if x == qipc.NullLong {
				b.AppendNull()
			} else {
				b.Append(x)
			}
		}
		return arrow.PrimitiveTypes.Int64, b.NewArray(), nil
	}
}
