package qipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelDDL(t *testing.T) {
	m, err := NewModel("trade",
		SymbolField("sym"),
		FloatField("price"),
		LongField("size"),
	)
	require.NoError(t, err)
	assert.Equal(t, "trade:([] sym:`s$(); price:`f$(); size:`j$())", CreateTableQ(m))
}

func TestKeyedModelDDL(t *testing.T) {
	m, err := NewModel("daily_price",
		SymbolField("sym", Key()),
		DateField("date", Key()),
		FloatField("close"),
		LongField("volume"),
	)
	require.NoError(t, err)
	assert.True(t, m.Keyed())
	assert.Equal(t, []string{"sym", "date"}, m.KeyColumns())
	assert.Equal(t, []string{"close", "volume"}, m.ValueColumns())
	assert.Equal(t,
		"daily_price:([sym:`s$(); date:`d$()] close:`f$(); volume:`j$())",
		CreateTableQ(m))
}

func TestAttributedColumnDDL(t *testing.T) {
	m, err := NewModel("ticks",
		SymbolField("sym", WithAttr(AttrGrouped)),
		TimestampField("time", WithAttr(AttrSorted)),
		FloatField("px"),
	)
	require.NoError(t, err)
	assert.Equal(t, "ticks:([] sym:`g#`s$(); time:`s#`p$(); px:`f$())", CreateTableQ(m))
}

func TestDropAndExistsQ(t *testing.T) {
	m, err := NewModel("trade", SymbolField("sym"))
	require.NoError(t, err)
	assert.Equal(t, "delete trade from `.", DropTableQ(m))
	assert.Equal(t, "`trade in tables[]", TableExistsQ(m))
	assert.Equal(t, "meta trade", MetaQ(m))
	assert.Equal(t, "count trade", CountQ(m))
}

func TestModelValidation(t *testing.T) {
	_, err := NewModel("t", SymbolField("a"), SymbolField("a"))
	assert.ErrorIs(t, err, ErrModel)

	_, err = NewModel("t")
	assert.ErrorIs(t, err, ErrModel)

	_, err = NewModel("", SymbolField("a"))
	assert.ErrorIs(t, err, ErrModel)

	// Key fields must be contiguous and first.
	_, err = NewModel("t", SymbolField("a"), FloatField("b"), DateField("c", Key()))
	assert.ErrorIs(t, err, ErrModel)
}

func TestModelRegistry(t *testing.T) {
	ClearModels()
	m := MustModel("reg_test", SymbolField("sym"))
	got, ok := ModelFor("reg_test")
	require.True(t, ok)
	assert.Same(t, m, got)

	_, ok = ModelFor("absent")
	assert.False(t, ok)
	assert.Contains(t, Models(), "reg_test")
}

func TestMustModelPanics(t *testing.T) {
	assert.Panics(t, func() { MustModel("bad", SymbolField("a"), SymbolField("a")) })
}

func TestListFieldDDL(t *testing.T) {
	m, err := NewModel("nested", SymbolField("sym"), ListField("fills", KFloat))
	require.NoError(t, err)
	assert.Equal(t, "nested:([] sym:`s$(); fills:())", CreateTableQ(m))
	f, ok := m.Field("fills")
	require.True(t, ok)
	assert.Equal(t, KMixed, f.Kind)
	assert.Equal(t, KFloat, f.Elem)
}
