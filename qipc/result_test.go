package qipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureResultSet encodes the table {sym:[AAPL,GOOG], price:[150.25,2800.0]} as
// a response frame and decodes it back, as a server reply would arrive.
func fixtureResultSet(t *testing.T) *ResultSet {
	t.Helper()
	table := &Table{
		Cols: []string{"sym", "price"},
		Data: []any{
			&Vector{Kind: KSymbol, Data: []Symbol{"AAPL", "GOOG"}},
			&Vector{Kind: KFloat, Data: []float64{150.25, 2800.0}},
		},
	}
	msg, err := Marshal(table, MsgResponse)
	require.NoError(t, err)
	_, v, err := Unmarshal(msg)
	require.NoError(t, err)
	rs, err := NewResultSet(v.(*Table), nil)
	require.NoError(t, err)
	return rs
}

func TestResultSetIteration(t *testing.T) {
	rs := fixtureResultSet(t)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, []string{"sym", "price"}, rs.Columns())

	row0 := rs.Row(0)
	assert.Equal(t, "AAPL", row0.String("sym"))
	assert.Equal(t, 150.25, row0.Value("price"))

	row1 := rs.Row(1)
	assert.Equal(t, "GOOG", row1.String("sym"))
	assert.Equal(t, 2800.0, row1.Value("price"))

	var seen []string
	for row := range rs.Rows() {
		seen = append(seen, row.String("sym"))
	}
	assert.Equal(t, []string{"AAPL", "GOOG"}, seen)
}

func TestResultSetColumnAccess(t *testing.T) {
	rs := fixtureResultSet(t)
	col, ok := rs.Column("price")
	require.True(t, ok)
	vec := col.(*Vector)
	assert.Equal(t, []float64{150.25, 2800.0}, vec.Data)

	_, ok = rs.Column("absent")
	assert.False(t, ok)
}

func TestRowIndexAndValues(t *testing.T) {
	rs := fixtureResultSet(t)
	assert.Equal(t, Symbol("AAPL"), rs.Row(0).Index(0))
	assert.Equal(t, map[string]any{"sym": Symbol("AAPL"), "price": 150.25}, rs.Row(0).Values())
}

func TestResultSetModelBinding(t *testing.T) {
	m := MustModel("bound", SymbolField("sym"), FloatField("price"))
	table := &Table{
		Cols: []string{"sym", "price"},
		Data: []any{
			&Vector{Kind: KSymbol, Data: []Symbol{"AAPL"}},
			&Vector{Kind: KFloat, Data: []float64{1.0}},
		},
	}
	rs, err := NewResultSet(table, m)
	require.NoError(t, err)
	assert.Same(t, m, rs.Model())
	// A concrete model makes unknown columns a programming error.
	assert.Panics(t, func() { rs.Row(0).Value("nope") })
}

func TestResultSetTransientModelPermissive(t *testing.T) {
	rs := fixtureResultSet(t)
	assert.True(t, rs.Model().Reflected())
	assert.Nil(t, rs.Row(0).Value("nope"))
}

func TestResultSetRaggedTableRejected(t *testing.T) {
	table := &Table{
		Cols: []string{"a", "b"},
		Data: []any{
			&Vector{Kind: KLong, Data: []int64{1, 2}},
			&Vector{Kind: KLong, Data: []int64{1}},
		},
	}
	_, err := NewResultSet(table, nil)
	assert.ErrorIs(t, err, ErrDeserialization)
}

func TestKeyedResultSetFlattens(t *testing.T) {
	key := &Table{Cols: []string{"sym"}, Data: []any{&Vector{Kind: KSymbol, Data: []Symbol{"A"}}}}
	value := &Table{Cols: []string{"px"}, Data: []any{&Vector{Kind: KFloat, Data: []float64{9.5}}}}
	rs, err := newKeyedResultSet(key, value, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sym", "px"}, rs.Columns())
	assert.Equal(t, 9.5, rs.Row(0).Value("px"))
}
