// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Literal rendering and the functional-form assembly. Compile output is
// deterministic: for a given query tree the emitted string is byte-identical
// across runs, with alias order following call order.

// quoteQ renders a double-quoted q string.
func quoteQ(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloat64(f float64) string {
	switch {
	case math.IsNaN(f):
		return "0n"
	case math.IsInf(f, 1):
		return "0w"
	case math.IsInf(f, -1):
		return "-0w"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += "f"
	}
	return s
}

func formatFloat32(f float32) string {
	if math.IsNaN(float64(f)) {
		return "0Ne"
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32) + "e"
}

// litQ renders a Go value as a q literal.
func litQ(v any) string {
	switch x := v.(type) {
	case nil:
		return "(::)"
	case bool:
		if x {
			return "1b"
		}
		return "0b"
	case Null:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10) + "i"
	case int16:
		return strconv.FormatInt(int64(x), 10) + "h"
	case byte:
		return fmt.Sprintf("0x%02x", x)
	case float64:
		return formatFloat64(x)
	case float32:
		return formatFloat32(x)
	case Symbol:
		return "`" + string(x)
	case Char:
		return quoteQ(string(rune(x)))
	case string:
		return quoteQ(x)
	case time.Time:
		return timestampLiteral(x)
	case time.Duration:
		return timespanLiteral(x)
	case Date:
		return x.String()
	case Month:
		return x.String()
	case Minute:
		return x.String()
	case Second:
		return x.String()
	case Time:
		return x.String()
	case Datetime:
		return x.String()
	case uuid.UUID:
		return x.String()
	case []Symbol:
		return symbolVecLit(x)
	case []string:
		syms := make([]Symbol, len(x))
		for i, s := range x {
			syms[i] = Symbol(s)
		}
		return symbolVecLit(syms)
	case []int64:
		return numVecLit(len(x), "", func(i int) string { return strconv.FormatInt(x[i], 10) })
	case []int32:
		return numVecLit(len(x), "i", func(i int) string { return strconv.FormatInt(int64(x[i]), 10) })
	case []int16:
		return numVecLit(len(x), "h", func(i int) string { return strconv.FormatInt(int64(x[i]), 10) })
	case []float64:
		return numVecLit(len(x), "", func(i int) string { return formatFloat64(x[i]) })
	case []float32:
		return numVecLit(len(x), "", func(i int) string { return formatFloat32(x[i]) })
	case []bool:
		var b strings.Builder
		for _, v := range x {
			if v {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		return b.String() + "b"
	case []any:
		return mixedLit(x)
	case *Vector:
		return vectorLit(x)
	case Expr:
		return x.q()
	}
	return fmt.Sprintf("%v", v)
}

func symbolVecLit(syms []Symbol) string {
	if len(syms) == 0 {
		return "`symbol$()"
	}
	var b strings.Builder
	for _, s := range syms {
		b.WriteByte('`')
		b.WriteString(string(s))
	}
	return b.String()
}

func numVecLit(n int, suffix string, render func(int) string) string {
	if n == 0 {
		return "()"
	}
	parts := make([]string, n)
	for i := range n {
		parts[i] = render(i)
	}
	return strings.Join(parts, " ") + suffix
}

func mixedLit(items []any) string {
	if len(items) == 0 {
		return "()"
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = litQ(item)
	}
	return "(" + strings.Join(parts, ";") + ")"
}

func vectorLit(v *Vector) string {
	switch d := v.Data.(type) {
	case []Symbol:
		return symbolVecLit(d)
	case []bool:
		return litQ(d)
	case []int16:
		return litQ(d)
	case []int64:
		if v.Kind == KLong {
			return litQ(d)
		}
	case []int32:
		if v.Kind == KInt {
			return litQ(d)
		}
	case []float64:
		if v.Kind == KFloat {
			return litQ(d)
		}
	case []float32:
		return litQ(d)
	case []byte:
		if v.Kind == KChar {
			return quoteQ(string(d))
		}
		var b strings.Builder
		b.WriteString("0x")
		for _, x := range d {
			fmt.Fprintf(&b, "%02x", x)
		}
		return b.String()
	case []any:
		return mixedLit(d)
	}
	// Temporal and guid vectors render element-wise through At.
	parts := make([]string, v.Len())
	for i := range v.Len() {
		parts[i] = litQ(v.At(i))
	}
	return "(" + strings.Join(parts, ";") + ")"
}

// dictEntry is one alias -> compiled-value pair of a q dictionary literal.
type dictEntry struct {
	alias string
	value string
}

// compileDict renders aliases!values. A single entry uses the enlist form;
// multiple entries the compact symbol-vector form.
func compileDict(entries []dictEntry) string {
	switch len(entries) {
	case 0:
		return "()"
	case 1:
		return "(enlist `" + entries[0].alias + ")!enlist " + entries[0].value
	}
	var keys, vals strings.Builder
	for i, e := range entries {
		keys.WriteByte('`')
		keys.WriteString(e.alias)
		if i > 0 {
			vals.WriteByte(';')
		}
		vals.WriteString(e.value)
	}
	return keys.String() + "!(" + vals.String() + ")"
}

// parenWrap ensures an expression string is parenthesized.
func parenWrap(s string) string {
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return s
	}
	return "(" + s + ")"
}

// namingForm renders an expression as a dictionary range entry: a pure
// column is its symbol, anything else the parenthesized expression.
func namingForm(e Expr) string {
	if c, ok := e.(ColExpr); ok {
		return "`" + c.Name
	}
	return parenWrap(e.q())
}

// aliasFor picks the name of a projection: the explicit alias, an inferred
// one, or a positional fallback.
func aliasFor(p Proj, i int) string {
	if p.Alias != "" {
		return p.Alias
	}
	if name := inferName(p.E); name != "" {
		return name
	}
	return "x" + strconv.Itoa(i)
}

func inferName(e Expr) string {
	switch x := e.(type) {
	case ColExpr:
		return x.Name
	case AggExpr:
		if c, ok := x.Column.(ColExpr); ok {
			return x.Fn + "_" + c.Name
		}
		return x.Fn
	case XbarExpr:
		if c, ok := x.Col.(ColExpr); ok {
			return c.Name
		}
	case SortExpr:
		return inferName(x.X)
	case CallExpr:
		for i := len(x.Args) - 1; i >= 0; i-- {
			if c, ok := x.Args[i].(ColExpr); ok {
				return c.Name
			}
		}
	}
	return ""
}

// compileWhere renders the constraint list: () with no predicates, else
// enlist over the parenthesized predicates.
func compileWhere(preds []Expr) string {
	if len(preds) == 0 {
		return "()"
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = parenWrap(p.q())
	}
	return "enlist (" + strings.Join(parts, ";") + ")"
}

// compileBy renders the grouping dictionary, or 0b with no grouping.
func compileBy(by []Proj) string {
	if len(by) == 0 {
		return "0b"
	}
	entries := make([]dictEntry, len(by))
	for i, p := range by {
		entries[i] = dictEntry{alias: aliasFor(p, i), value: namingForm(p.E)}
	}
	return compileDict(entries)
}

// compileSelectA renders the select dictionary, or () for all columns.
func compileSelectA(projs []Proj) string {
	if len(projs) == 0 {
		return "()"
	}
	entries := make([]dictEntry, len(projs))
	for i, p := range projs {
		entries[i] = dictEntry{alias: aliasFor(p, i), value: namingForm(p.E)}
	}
	return compileDict(entries)
}

// compileExecA renders the exec column clause: a bare symbol for a single
// unnamed column (the server returns a vector), a dictionary otherwise.
func compileExecA(projs []Proj) string {
	if len(projs) == 0 {
		return "()"
	}
	if len(projs) == 1 && projs[0].Alias == "" {
		if c, ok := projs[0].E.(ColExpr); ok {
			return "`" + c.Name
		}
	}
	return compileSelectA(projs)
}

// pageWrap applies offset and limit. Both compose as m#(n_(X)).
func pageWrap(q string, limit, offset *int) string {
	switch {
	case limit != nil && offset != nil:
		return fmt.Sprintf("%d#(%d_(%s))", *limit, *offset, q)
	case limit != nil:
		return fmt.Sprintf("%d#(%s)", *limit, q)
	case offset != nil:
		return fmt.Sprintf("%d _ (%s)", *offset, q)
	}
	return q
}
