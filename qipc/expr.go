// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

// Expression tree for building q queries. Go has no operator overloading, so
// the surface is the explicit method form: Trade.C("price").Gt(100.0)
// produces a BinExpr that compiles to (price>100f).

// Expr is an expression node. Every node compiles to its q textual form and
// exposes its operand set.
type Expr interface {
	q() string
	Operands() []Expr
}

// lit wraps a plain Go value as a literal expression.
func lit(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return LiteralExpr{Value: v}
}

// ColExpr references a column, optionally bound to a model.
type ColExpr struct {
	Name  string
	model *Model
}

// Col references a column without binding it to a model.
func Col(name string) ColExpr {
	return ColExpr{Name: name}
}

func (c ColExpr) q() string        { return c.Name }
func (c ColExpr) Operands() []Expr { return nil }

func (c ColExpr) Gt(v any) BinExpr  { return BinExpr{Op: ">", L: c, R: lit(v)} }
func (c ColExpr) Ge(v any) BinExpr  { return BinExpr{Op: ">=", L: c, R: lit(v)} }
func (c ColExpr) Lt(v any) BinExpr  { return BinExpr{Op: "<", L: c, R: lit(v)} }
func (c ColExpr) Le(v any) BinExpr  { return BinExpr{Op: "<=", L: c, R: lit(v)} }
func (c ColExpr) Eq(v any) BinExpr  { return BinExpr{Op: "=", L: c, R: lit(v)} }
func (c ColExpr) Ne(v any) BinExpr  { return BinExpr{Op: "<>", L: c, R: lit(v)} }
func (c ColExpr) Add(v any) BinExpr { return BinExpr{Op: "+", L: c, R: lit(v)} }
func (c ColExpr) Sub(v any) BinExpr { return BinExpr{Op: "-", L: c, R: lit(v)} }
func (c ColExpr) Mul(v any) BinExpr { return BinExpr{Op: "*", L: c, R: lit(v)} }

// Div compiles to the server's % operator; numeric coercion is left to the
// server.
func (c ColExpr) Div(v any) BinExpr { return BinExpr{Op: "%", L: c, R: lit(v)} }
func (c ColExpr) Mod(v any) BinExpr { return BinExpr{Op: "mod", L: c, R: lit(v)} }
func (c ColExpr) And(v any) BinExpr { return BinExpr{Op: "&", L: c, R: lit(v)} }
func (c ColExpr) Or(v any) BinExpr  { return BinExpr{Op: "|", L: c, R: lit(v)} }

func (c ColExpr) Neg() UnaryExpr { return UnaryExpr{Op: "neg", X: c} }
func (c ColExpr) Not() UnaryExpr { return UnaryExpr{Op: "not", X: c} }

// Within tests lo <= c <= hi.
func (c ColExpr) Within(lo, hi any) WithinExpr { return WithinExpr{Col: c, Lo: lo, Hi: hi} }

// Like matches the column against a q pattern string.
func (c ColExpr) Like(pattern string) LikeExpr { return LikeExpr{Col: c, Pattern: pattern} }

// In tests membership in a vector of values.
func (c ColExpr) In(values any) InExpr { return InExpr{Col: c, Values: values} }

func (c ColExpr) Asc() SortExpr  { return SortExpr{Dir: "asc", X: c} }
func (c ColExpr) Desc() SortExpr { return SortExpr{Dir: "desc", X: c} }

// As names the column in a projection or grouping.
func (c ColExpr) As(alias string) Proj { return Proj{Alias: alias, E: c} }

// LiteralExpr is a literal value rendered in server syntax.
type LiteralExpr struct {
	Value any
}

func (l LiteralExpr) q() string        { return litQ(l.Value) }
func (l LiteralExpr) Operands() []Expr { return nil }

// BinExpr is a binary operation, always parenthesized.
type BinExpr struct {
	Op   string
	L, R Expr
}

func (b BinExpr) q() string {
	op := b.Op
	if op[0] >= 'a' && op[0] <= 'z' {
		// Word operators (mod) need spacing; symbol operators do not.
		op = " " + op + " "
	}
	return "(" + b.L.q() + op + b.R.q() + ")"
}
func (b BinExpr) Operands() []Expr { return []Expr{b.L, b.R} }

func (b BinExpr) Gt(v any) BinExpr  { return BinExpr{Op: ">", L: b, R: lit(v)} }
func (b BinExpr) Ge(v any) BinExpr  { return BinExpr{Op: ">=", L: b, R: lit(v)} }
func (b BinExpr) Lt(v any) BinExpr  { return BinExpr{Op: "<", L: b, R: lit(v)} }
func (b BinExpr) Le(v any) BinExpr  { return BinExpr{Op: "<=", L: b, R: lit(v)} }
func (b BinExpr) Eq(v any) BinExpr  { return BinExpr{Op: "=", L: b, R: lit(v)} }
func (b BinExpr) Ne(v any) BinExpr  { return BinExpr{Op: "<>", L: b, R: lit(v)} }
func (b BinExpr) Add(v any) BinExpr { return BinExpr{Op: "+", L: b, R: lit(v)} }
func (b BinExpr) Sub(v any) BinExpr { return BinExpr{Op: "-", L: b, R: lit(v)} }
func (b BinExpr) Mul(v any) BinExpr { return BinExpr{Op: "*", L: b, R: lit(v)} }
func (b BinExpr) Div(v any) BinExpr { return BinExpr{Op: "%", L: b, R: lit(v)} }
func (b BinExpr) And(v any) BinExpr { return BinExpr{Op: "&", L: b, R: lit(v)} }
func (b BinExpr) Or(v any) BinExpr  { return BinExpr{Op: "|", L: b, R: lit(v)} }

func (b BinExpr) As(alias string) Proj { return Proj{Alias: alias, E: b} }

// UnaryExpr is neg or not.
type UnaryExpr struct {
	Op string
	X  Expr
}

func (u UnaryExpr) q() string           { return "(" + u.Op + " " + u.X.q() + ")" }
func (u UnaryExpr) Operands() []Expr    { return []Expr{u.X} }
func (u UnaryExpr) As(alias string) Proj { return Proj{Alias: alias, E: u} }

// Neg negates an expression.
func Neg(e Expr) UnaryExpr { return UnaryExpr{Op: "neg", X: e} }

// Not inverts a boolean expression.
func Not(e Expr) UnaryExpr { return UnaryExpr{Op: "not", X: e} }

// CallExpr applies a named q function to arguments: f[a;b].
type CallExpr struct {
	Fn   string
	Args []Expr
}

// CallQ builds a function application expression.
func CallQ(fn string, args ...any) CallExpr {
	c := CallExpr{Fn: fn}
	for _, a := range args {
		c.Args = append(c.Args, lit(a))
	}
	return c
}

func (c CallExpr) q() string {
	s := c.Fn + "["
	for i, a := range c.Args {
		if i > 0 {
			s += ";"
		}
		s += a.q()
	}
	return s + "]"
}
func (c CallExpr) Operands() []Expr    { return c.Args }
func (c CallExpr) As(alias string) Proj { return Proj{Alias: alias, E: c} }

// AggExpr is an aggregate application, with an optional adverb. A nil column
// is the argumentless count, which compiles to count over the virtual row
// index.
type AggExpr struct {
	Fn     string
	Column Expr
	Adverb string
}

func (a AggExpr) q() string {
	col := "i"
	if a.Column != nil {
		col = a.Column.q()
	}
	s := a.Fn + " " + col
	if a.Adverb != "" {
		s += " " + a.Adverb
	}
	return s
}

func (a AggExpr) Operands() []Expr {
	if a.Column == nil {
		return nil
	}
	return []Expr{a.Column}
}

// Each lifts the aggregate over each element. Chaining two adverbs panics;
// the serialization would be ambiguous.
func (a AggExpr) Each() AggExpr {
	if a.Adverb != "" {
		panic("qipc: adverb already applied to aggregate " + a.Fn)
	}
	a.Adverb = "each"
	return a
}

// Peach is Each with parallel evaluation on the server.
func (a AggExpr) Peach() AggExpr {
	if a.Adverb != "" {
		panic("qipc: adverb already applied to aggregate " + a.Fn)
	}
	a.Adverb = "peach"
	return a
}

func (a AggExpr) As(alias string) Proj { return Proj{Alias: alias, E: a} }

// Aggregate constructors.

func Avg(col Expr) AggExpr   { return AggExpr{Fn: "avg", Column: col} }
func Sum(col Expr) AggExpr   { return AggExpr{Fn: "sum", Column: col} }
func Min(col Expr) AggExpr   { return AggExpr{Fn: "min", Column: col} }
func Max(col Expr) AggExpr   { return AggExpr{Fn: "max", Column: col} }
func First(col Expr) AggExpr { return AggExpr{Fn: "first", Column: col} }
func Last(col Expr) AggExpr  { return AggExpr{Fn: "last", Column: col} }
func Med(col Expr) AggExpr   { return AggExpr{Fn: "med", Column: col} }
func Dev(col Expr) AggExpr   { return AggExpr{Fn: "dev", Column: col} }
func Var(col Expr) AggExpr   { return AggExpr{Fn: "var", Column: col} }

// Count counts non-null values of a column.
func Count(col Expr) AggExpr { return AggExpr{Fn: "count", Column: col} }

// CountAll counts rows.
func CountAll() AggExpr { return AggExpr{Fn: "count"} }

// XbarExpr rounds a column down to bucket boundaries: n xbar x.
type XbarExpr struct {
	Step any
	Col  Expr
}

// Xbar buckets col by step.
func Xbar(step any, col Expr) XbarExpr { return XbarExpr{Step: step, Col: col} }

func (x XbarExpr) q() string           { return "(" + litQ(x.Step) + " xbar " + x.Col.q() + ")" }
func (x XbarExpr) Operands() []Expr    { return []Expr{x.Col} }
func (x XbarExpr) As(alias string) Proj { return Proj{Alias: alias, E: x} }

// FbyExpr applies an aggregate per group inline within a predicate:
// ((f;c) fby g).
type FbyExpr struct {
	Fn    string
	Col   Expr
	Group Expr
}

// Fby builds a filter-by expression.
func Fby(fn string, col, group Expr) FbyExpr { return FbyExpr{Fn: fn, Col: col, Group: group} }

func (f FbyExpr) q() string {
	return "((" + f.Fn + ";" + f.Col.q() + ") fby " + f.Group.q() + ")"
}
func (f FbyExpr) Operands() []Expr { return []Expr{f.Col, f.Group} }

func (f FbyExpr) Gt(v any) BinExpr { return BinExpr{Op: ">", L: f, R: lit(v)} }
func (f FbyExpr) Ge(v any) BinExpr { return BinExpr{Op: ">=", L: f, R: lit(v)} }
func (f FbyExpr) Lt(v any) BinExpr { return BinExpr{Op: "<", L: f, R: lit(v)} }
func (f FbyExpr) Le(v any) BinExpr { return BinExpr{Op: "<=", L: f, R: lit(v)} }
func (f FbyExpr) Eq(v any) BinExpr { return BinExpr{Op: "=", L: f, R: lit(v)} }

// WithinExpr is the range test (c within (lo;hi)).
type WithinExpr struct {
	Col    Expr
	Lo, Hi any
}

func (w WithinExpr) q() string {
	return "(" + w.Col.q() + " within (" + litQ(w.Lo) + ";" + litQ(w.Hi) + "))"
}
func (w WithinExpr) Operands() []Expr { return []Expr{w.Col} }

// LikeExpr is the pattern match (c like "p").
type LikeExpr struct {
	Col     Expr
	Pattern string
}

func (l LikeExpr) q() string {
	return "(" + l.Col.q() + " like " + quoteQ(l.Pattern) + ")"
}
func (l LikeExpr) Operands() []Expr { return []Expr{l.Col} }

// InExpr is the membership test (c in values).
type InExpr struct {
	Col    Expr
	Values any
}

func (i InExpr) q() string {
	return "(" + i.Col.q() + " in " + litQ(i.Values) + ")"
}
func (i InExpr) Operands() []Expr { return []Expr{i.Col} }

// SortExpr is an ordering directive: asc c or desc c.
type SortExpr struct {
	Dir string
	X   Expr
}

func (s SortExpr) q() string        { return s.Dir + " " + s.X.q() }
func (s SortExpr) Operands() []Expr { return []Expr{s.X} }

// Proj is a projection entry: an expression with an optional alias.
type Proj struct {
	Alias string
	E     Expr
}

// projOf normalizes projection arguments: a Proj passes through, an Expr
// becomes an unaliased Proj, anything else a literal.
func projOf(v any) Proj {
	switch x := v.(type) {
	case Proj:
		return x
	case Expr:
		return Proj{E: x}
	default:
		return Proj{E: lit(v)}
	}
}
