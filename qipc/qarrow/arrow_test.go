package qarrow

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/qipc-go/qipc"
)

func TestToRecord(t *testing.T) {
	table := &qipc.Table{
		Cols: []string{"sym", "price", "size", "time"},
		Data: []any{
			&qipc.Vector{Kind: qipc.KSymbol, Data: []qipc.Symbol{"AAPL", "GOOG"}},
			&qipc.Vector{Kind: qipc.KFloat, Data: []float64{150.25, 2800.0}},
			&qipc.Vector{Kind: qipc.KLong, Data: []int64{100, qipc.NullLong}},
			&qipc.Vector{Kind: qipc.KTimestamp, Data: []int64{0, 1_000_000_000}},
		},
	}
	rs, err := qipc.NewResultSet(table, nil)
	require.NoError(t, err)

	record, err := ToRecord(rs)
	require.NoError(t, err)
	defer record.Release()

	require.EqualValues(t, 2, record.NumRows())
	require.EqualValues(t, 4, record.NumCols())

	schema := record.Schema()
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(0).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, schema.Field(1).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(2).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Timestamp_ns, schema.Field(3).Type)

	syms := record.Column(0).(*array.String)
	assert.Equal(t, "AAPL", syms.Value(0))
	assert.Equal(t, "GOOG", syms.Value(1))

	prices := record.Column(1).(*array.Float64)
	assert.Equal(t, 150.25, prices.Value(0))

	sizes := record.Column(2).(*array.Int64)
	assert.Equal(t, int64(100), sizes.Value(0))
	assert.True(t, sizes.IsNull(1), "long null becomes an Arrow null")

	times := record.Column(3).(*array.Timestamp)
	// q epoch 2000.01.01 maps onto the Unix-epoch timestamp scale.
	want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	assert.Equal(t, arrow.Timestamp(want), times.Value(0))
}

func TestToRecordDateColumn(t *testing.T) {
	table := &qipc.Table{
		Cols: []string{"d"},
		Data: []any{&qipc.Vector{Kind: qipc.KDate, Data: []int32{0, qipc.NullInt}}},
	}
	rs, err := qipc.NewResultSet(table, nil)
	require.NoError(t, err)

	record, err := ToRecord(rs)
	require.NoError(t, err)
	defer record.Release()

	dates := record.Column(0).(*array.Date32)
	assert.Equal(t, arrow.Date32(10957), dates.Value(0), "2000.01.01 in days since Unix epoch")
	assert.True(t, dates.IsNull(1))
}

func TestToRecordCharColumn(t *testing.T) {
	table := &qipc.Table{
		Cols: []string{"side"},
		Data: []any{"BS"},
	}
	rs, err := qipc.NewResultSet(table, nil)
	require.NoError(t, err)

	record, err := ToRecord(rs)
	require.NoError(t, err)
	defer record.Release()

	sides := record.Column(0).(*array.String)
	assert.Equal(t, "B", sides.Value(0))
	assert.Equal(t, "S", sides.Value(1))
}
