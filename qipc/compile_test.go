package qipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel("trade",
		SymbolField("sym"),
		FloatField("price"),
		LongField("size"),
	)
	require.NoError(t, err)
	return m
}

func TestColumnCompilesBare(t *testing.T) {
	m := tradeModel(t)
	assert.Equal(t, "price", m.C("price").q())
}

func TestBinOpForms(t *testing.T) {
	m := tradeModel(t)
	price := m.C("price")

	assert.Equal(t, "(price>100)", price.Gt(100).q())
	assert.Equal(t, "(price>=100)", price.Ge(100).q())
	assert.Equal(t, "(price<100)", price.Lt(100).q())
	assert.Equal(t, "(price<=100)", price.Le(100).q())
	assert.Equal(t, "(price=100)", price.Eq(100).q())
	assert.Equal(t, "(price<>100)", price.Ne(100).q())
	assert.Equal(t, "(price+1)", price.Add(1).q())
	assert.Equal(t, "(price-1)", price.Sub(1).q())
	assert.Equal(t, "(price*2)", price.Mul(2).q())
	assert.Equal(t, "(price%2)", price.Div(2).q(), "division remaps to %")
	assert.Equal(t, "(price mod 2)", price.Mod(2).q())
	assert.Equal(t, "((price>100)&(size>0))", price.Gt(100).And(m.C("size").Gt(0)).q())
	assert.Equal(t, "((price>100)|(size>0))", price.Gt(100).Or(m.C("size").Gt(0)).q())
}

func TestUnaryForms(t *testing.T) {
	m := tradeModel(t)
	assert.Equal(t, "(neg price)", m.C("price").Neg().q())
	assert.Equal(t, "(not price)", m.C("price").Not().q())
}

func TestAggregateForms(t *testing.T) {
	m := tradeModel(t)
	price := m.C("price")

	assert.Equal(t, "avg price", Avg(price).q())
	assert.Equal(t, "count i", CountAll().q())
	assert.Equal(t, "count price", Count(price).q())
	assert.Equal(t, "avg price each", Avg(price).Each().q())
	assert.Equal(t, "avg price peach", Avg(price).Peach().q())
}

func TestAdverbChainingPanics(t *testing.T) {
	m := tradeModel(t)
	assert.Panics(t, func() { Avg(m.C("price")).Each().Peach() })
}

func TestSpecialForms(t *testing.T) {
	m := tradeModel(t)
	price := m.C("price")
	sym := m.C("sym")

	assert.Equal(t, "(5 xbar price)", Xbar(5, price).q())
	assert.Equal(t, "((avg;price) fby sym)", Fby("avg", price, sym).q())
	assert.Equal(t, "(price within (100;200))", price.Within(100, 200).q())
	assert.Equal(t, `(sym like "AA*")`, sym.Like("AA*").q())
	assert.Equal(t, "(sym in `AAPL`GOOG)", sym.In([]string{"AAPL", "GOOG"}).q())
	assert.Equal(t, "(size in 1 2 3)", m.C("size").In([]int64{1, 2, 3}).q())
	assert.Equal(t, "asc price", price.Asc().q())
	assert.Equal(t, "desc price", price.Desc().q())
}

func TestLiteralRendering(t *testing.T) {
	assert.Equal(t, "1b", litQ(true))
	assert.Equal(t, "0b", litQ(false))
	assert.Equal(t, "42", litQ(42))
	assert.Equal(t, "42", litQ(int64(42)))
	assert.Equal(t, "42i", litQ(int32(42)))
	assert.Equal(t, "42h", litQ(int16(42)))
	assert.Equal(t, "1.5", litQ(1.5))
	assert.Equal(t, "100f", litQ(100.0))
	assert.Equal(t, "`AAPL", litQ(Symbol("AAPL")))
	assert.Equal(t, `"text"`, litQ("text"))
	assert.Equal(t, "2026.08.06", litQ(NewDate(2026, time.August, 6)))
	assert.Equal(t, "0Nj", litQ(Null{KLong}))

	ts := time.Date(2026, 8, 6, 12, 30, 15, 500000000, time.UTC)
	assert.Equal(t, "2026.08.06D12:30:15.500000000", litQ(ts))

	assert.Equal(t, "1D02:03:04.000000005",
		litQ(26*time.Hour+3*time.Minute+4*time.Second+5*time.Nanosecond))

	assert.Equal(t, "(1;`a)", litQ([]any{int64(1), Symbol("a")}))
	assert.Equal(t, "101b", litQ([]bool{true, false, true}))
	assert.Equal(t, "(::)", litQ(nil))
}

func TestSelectAll(t *testing.T) {
	m := tradeModel(t)
	assert.Equal(t, "?[trade;();0b;()]", m.Select().Compile())
}

func TestSelectWhere(t *testing.T) {
	m := tradeModel(t)
	q := m.Select().Where(m.C("price").Gt(100))
	assert.Equal(t, "?[trade;enlist ((price>100));0b;()]", q.Compile())
}

func TestWhereChainingEquivalence(t *testing.T) {
	m := tradeModel(t)
	p1 := m.C("price").Gt(100)
	p2 := m.C("size").Lt(1000)
	combined := m.Select().Where(p1, p2).Compile()
	chained := m.Select().Where(p1).Where(p2).Compile()
	assert.Equal(t, combined, chained)
	assert.Equal(t, "?[trade;enlist ((price>100);(size<1000));0b;()]", combined)
}

func TestSelectByAggregate(t *testing.T) {
	m := tradeModel(t)
	q := m.Select(Avg(m.C("price")), m.C("sym")).
		Where(m.C("price").Gt(100)).
		By(m.C("sym"))
	assert.Equal(t,
		"?[trade;enlist ((price>100));(enlist `sym)!enlist `sym;`avg_price`sym!((avg price);`sym)]",
		q.Compile())
}

func TestSelectAliases(t *testing.T) {
	m := tradeModel(t)
	q := m.Select(Avg(m.C("price")).As("vwap")).By(m.C("sym").As("ticker"))
	assert.Equal(t,
		"?[trade;();(enlist `ticker)!enlist `sym;(enlist `vwap)!enlist (avg price)]",
		q.Compile())
}

func TestBuilderIsFunctional(t *testing.T) {
	m := tradeModel(t)
	base := m.Select()
	withWhere := base.Where(m.C("price").Gt(100))
	assert.Equal(t, "?[trade;();0b;()]", base.Compile(), "base query unchanged")
	assert.NotEqual(t, base.Compile(), withWhere.Compile())
}

func TestPaging(t *testing.T) {
	m := tradeModel(t)
	base := m.Select()
	assert.Equal(t, "10#(?[trade;();0b;()])", base.Limit(10).Compile())
	assert.Equal(t, "5 _ (?[trade;();0b;()])", base.Offset(5).Compile())
	assert.Equal(t, "10#(5_(?[trade;();0b;()]))", base.Offset(5).Limit(10).Compile())
}

func TestUpdateCompile(t *testing.T) {
	m := tradeModel(t)
	q := m.Update().
		Set("price", m.C("price").Mul(1.1)).
		Where(m.C("sym").Eq(Symbol("AAPL")))
	assert.Equal(t,
		"![trade;enlist ((sym=`AAPL));0b;(enlist `price)!enlist (price*1.1)]",
		q.Compile())
}

func TestUpdateSetOrderPreserved(t *testing.T) {
	m := tradeModel(t)
	q := m.Update().Set("price", 1.0).Set("size", int64(0))
	assert.Equal(t, "![trade;();0b;`price`size!((1f);(0))]", q.Compile())
}

func TestDeleteCompile(t *testing.T) {
	m := tradeModel(t)
	assert.Equal(t,
		"![trade;enlist ((sym=`AAPL));0b;()]",
		m.Delete().Where(m.C("sym").Eq(Symbol("AAPL"))).Compile())
	assert.Equal(t,
		"![trade;();0b;`price`size]",
		m.Delete().Columns("price", "size").Compile())
}

func TestExecCompile(t *testing.T) {
	m := tradeModel(t)
	assert.Equal(t, "?[trade;();0b;`price]", m.ExecCols(m.C("price")).Compile())
	assert.Equal(t,
		"?[trade;();0b;`sym`price!(`sym;`price)]",
		m.ExecCols(m.C("sym"), m.C("price")).Compile())
	assert.Equal(t,
		"?[trade;();0b;(enlist `avg_price)!enlist (avg price)]",
		m.ExecCols(Avg(m.C("price")).As("avg_price")).Compile())
}

func TestInsertTranspose(t *testing.T) {
	m := tradeModel(t)
	q := m.Insert(
		map[string]any{"sym": "AAPL", "price": 150.25, "size": int64(100)},
		map[string]any{"sym": "GOOG", "price": 2800.0, "size": int64(50)},
	)
	assert.Equal(t,
		"`trade insert (`AAPL`GOOG;150.25 2800f;100 50)",
		q.Compile())
}

func TestInsertNullsAndDefaults(t *testing.T) {
	m, err := NewModel("order",
		SymbolField("sym"),
		LongField("qty", WithDefault(int64(1))),
		FloatField("px"),
	)
	require.NoError(t, err)
	q := m.Insert(map[string]any{"sym": "AAPL"})
	assert.Equal(t, "`order insert (`AAPL;1;0n)", q.Compile())
}

func TestInsertHeterogeneousFallsBack(t *testing.T) {
	m := tradeModel(t)
	q := m.Insert(
		map[string]any{"sym": "AAPL", "price": 150.25, "size": "lots"},
	)
	assert.Equal(t, "`trade insert (`AAPL;150.25;(\"lots\"))", q.Compile())
}

func TestInsertEmpty(t *testing.T) {
	m := tradeModel(t)
	assert.Equal(t, "`trade insert ()", m.Insert().Compile())
}

func TestInsertShapeCounts(t *testing.T) {
	// N rows of a K-column model produce K per-column vectors of N values.
	m := tradeModel(t)
	rows := make([]map[string]any, 4)
	for i := range rows {
		rows[i] = map[string]any{"sym": "S", "price": 1.0, "size": int64(i)}
	}
	q := m.Insert(rows...)
	assert.Equal(t, "`trade insert (`S`S`S`S;1f 1f 1f 1f;0 1 2 3)", q.Compile())
}

func TestJoinCompile(t *testing.T) {
	trade := tradeModel(t)
	quote, err := NewModel("quote",
		SymbolField("sym"),
		FloatField("bid"),
		FloatField("ask"),
	)
	require.NoError(t, err)

	assert.Equal(t, "aj[`sym`time;trade;quote]",
		AJ([]string{"sym", "time"}, trade, quote).Compile())
	assert.Equal(t, "trade lj `sym xkey quote",
		LJ([]string{"sym"}, trade, quote).Compile())
	assert.Equal(t, "trade ij `sym xkey quote",
		IJ([]string{"sym"}, trade, quote).Compile())
	assert.Equal(t,
		"wj[-2000000000 0+trade.time;`sym`time;trade;(quote;(avg;`bid);(max;`ask))]",
		WJ(-2000000000, 0, []string{"sym", "time"}, trade, quote,
			WindowAgg{Fn: "avg", Col: "bid"}, WindowAgg{Fn: "max", Col: "ask"}).Compile())
}

func TestCompileDeterminism(t *testing.T) {
	m := tradeModel(t)
	q := m.Select(Avg(m.C("price")), m.C("sym")).
		Where(m.C("price").Gt(100), m.C("size").Gt(0)).
		By(m.C("sym")).
		Limit(10)
	first := q.Compile()
	for range 20 {
		assert.Equal(t, first, q.Compile())
	}
}

func TestUnknownColumnPanicsOnConcreteModel(t *testing.T) {
	m := tradeModel(t)
	assert.Panics(t, func() { m.C("nope") })
}
