// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"strconv"
	"strings"
)

// Chainable query builders over a bound model. Builders are functional:
// every chained call returns a new query, so a prefix can be reused safely.

// SelectQuery compiles to the functional select ?[t;W;B;A].
type SelectQuery struct {
	model   *Model
	projs   []Proj
	where   []Expr
	by      []Proj
	limitN  *int
	offsetN *int
}

// Select starts a select on the model. Projections are expressions or
// aliased Proj values; none means all columns.
func (m *Model) Select(projections ...any) *SelectQuery {
	q := &SelectQuery{model: m}
	for _, p := range projections {
		q.projs = append(q.projs, projOf(p))
	}
	return q
}

func (q *SelectQuery) clone() *SelectQuery {
	c := *q
	c.projs = append([]Proj(nil), q.projs...)
	c.where = append([]Expr(nil), q.where...)
	c.by = append([]Proj(nil), q.by...)
	return &c
}

// Where adds predicates, AND-joined with any already present.
func (q *SelectQuery) Where(preds ...Expr) *SelectQuery {
	c := q.clone()
	c.where = append(c.where, preds...)
	return c
}

// By adds grouping expressions.
func (q *SelectQuery) By(groups ...any) *SelectQuery {
	c := q.clone()
	for _, g := range groups {
		c.by = append(c.by, projOf(g))
	}
	return c
}

// Limit caps the row count.
func (q *SelectQuery) Limit(n int) *SelectQuery {
	c := q.clone()
	c.limitN = &n
	return c
}

// Offset skips leading rows.
func (q *SelectQuery) Offset(n int) *SelectQuery {
	c := q.clone()
	c.offsetN = &n
	return c
}

// Compile renders the functional select.
func (q *SelectQuery) Compile() string {
	s := "?[" + q.model.name + ";" + compileWhere(q.where) + ";" +
		compileBy(q.by) + ";" + compileSelectA(q.projs) + "]"
	return pageWrap(s, q.limitN, q.offsetN)
}

// BoundModel returns the model results bind to.
func (q *SelectQuery) BoundModel() *Model { return q.model }

func (q *SelectQuery) String() string { return q.Compile() }

// UpdateQuery compiles to the functional update ![t;W;B;A].
type UpdateQuery struct {
	model *Model
	sets  []Proj
	where []Expr
	by    []Proj
}

// Update starts an update on the model.
func (m *Model) Update() *UpdateQuery {
	return &UpdateQuery{model: m}
}

func (q *UpdateQuery) clone() *UpdateQuery {
	c := *q
	c.sets = append([]Proj(nil), q.sets...)
	c.where = append([]Expr(nil), q.where...)
	c.by = append([]Proj(nil), q.by...)
	return &c
}

// Set assigns a new value expression to a column. Assignment order is
// preserved in the compiled form.
func (q *UpdateQuery) Set(column string, value any) *UpdateQuery {
	c := q.clone()
	c.sets = append(c.sets, Proj{Alias: column, E: lit(value)})
	return c
}

// Where adds predicates.
func (q *UpdateQuery) Where(preds ...Expr) *UpdateQuery {
	c := q.clone()
	c.where = append(c.where, preds...)
	return c
}

// By adds grouping expressions.
func (q *UpdateQuery) By(groups ...any) *UpdateQuery {
	c := q.clone()
	for _, g := range groups {
		c.by = append(c.by, projOf(g))
	}
	return c
}

// Compile renders the functional update.
func (q *UpdateQuery) Compile() string {
	entries := make([]dictEntry, len(q.sets))
	for i, p := range q.sets {
		entries[i] = dictEntry{alias: p.Alias, value: namingForm(p.E)}
	}
	return "![" + q.model.name + ";" + compileWhere(q.where) + ";" +
		compileBy(q.by) + ";" + compileDict(entries) + "]"
}

// BoundModel returns the model results bind to.
func (q *UpdateQuery) BoundModel() *Model { return q.model }

func (q *UpdateQuery) String() string { return q.Compile() }

// DeleteQuery compiles to the functional delete ![t;W;0b;A].
type DeleteQuery struct {
	model *Model
	where []Expr
	cols  []string
}

// Delete starts a delete on the model.
func (m *Model) Delete() *DeleteQuery {
	return &DeleteQuery{model: m}
}

func (q *DeleteQuery) clone() *DeleteQuery {
	c := *q
	c.where = append([]Expr(nil), q.where...)
	c.cols = append([]string(nil), q.cols...)
	return &c
}

// Where adds predicates selecting the rows to delete.
func (q *DeleteQuery) Where(preds ...Expr) *DeleteQuery {
	c := q.clone()
	c.where = append(c.where, preds...)
	return c
}

// Columns switches to column deletion instead of row deletion.
func (q *DeleteQuery) Columns(names ...string) *DeleteQuery {
	c := q.clone()
	c.cols = append(c.cols, names...)
	return c
}

// Compile renders the functional delete.
func (q *DeleteQuery) Compile() string {
	if len(q.cols) > 0 {
		var b strings.Builder
		for _, c := range q.cols {
			b.WriteByte('`')
			b.WriteString(c)
		}
		return "![" + q.model.name + ";();0b;" + b.String() + "]"
	}
	return "![" + q.model.name + ";" + compileWhere(q.where) + ";0b;()]"
}

// BoundModel returns the model results bind to.
func (q *DeleteQuery) BoundModel() *Model { return q.model }

func (q *DeleteQuery) String() string { return q.Compile() }

// ExecQuery compiles to the functional select with exec-style columns: a
// single bare column yields a vector, multiple or named columns a dict.
type ExecQuery struct {
	model   *Model
	projs   []Proj
	where   []Expr
	by      []Proj
	limitN  *int
	offsetN *int
}

// ExecCols starts an exec on the model.
func (m *Model) ExecCols(projections ...any) *ExecQuery {
	q := &ExecQuery{model: m}
	for _, p := range projections {
		q.projs = append(q.projs, projOf(p))
	}
	return q
}

func (q *ExecQuery) clone() *ExecQuery {
	c := *q
	c.projs = append([]Proj(nil), q.projs...)
	c.where = append([]Expr(nil), q.where...)
	c.by = append([]Proj(nil), q.by...)
	return &c
}

// Where adds predicates.
func (q *ExecQuery) Where(preds ...Expr) *ExecQuery {
	c := q.clone()
	c.where = append(c.where, preds...)
	return c
}

// By adds grouping expressions.
func (q *ExecQuery) By(groups ...any) *ExecQuery {
	c := q.clone()
	for _, g := range groups {
		c.by = append(c.by, projOf(g))
	}
	return c
}

// Limit caps the element count.
func (q *ExecQuery) Limit(n int) *ExecQuery {
	c := q.clone()
	c.limitN = &n
	return c
}

// Compile renders the functional exec.
func (q *ExecQuery) Compile() string {
	s := "?[" + q.model.name + ";" + compileWhere(q.where) + ";" +
		compileBy(q.by) + ";" + compileExecA(q.projs) + "]"
	return pageWrap(s, q.limitN, q.offsetN)
}

// BoundModel returns the model results bind to.
func (q *ExecQuery) BoundModel() *Model { return q.model }

func (q *ExecQuery) String() string { return q.Compile() }

// InsertQuery batches rows and compiles to `t insert (c1;c2;...), with rows
// transposed to per-column vectors in declared field order.
type InsertQuery struct {
	model *Model
	rows  []map[string]any
}

// Insert starts a batch insert of the given rows. Row maps are keyed by
// field name; missing fields take the field default, or a typed null.
func (m *Model) Insert(rows ...map[string]any) *InsertQuery {
	return &InsertQuery{model: m, rows: rows}
}

// Rows appends more rows, returning a new query.
func (q *InsertQuery) Rows(rows ...map[string]any) *InsertQuery {
	c := &InsertQuery{model: q.model, rows: append(append([]map[string]any(nil), q.rows...), rows...)}
	return c
}

// Compile renders the insert expression.
func (q *InsertQuery) Compile() string {
	if len(q.rows) == 0 {
		return "`" + q.model.name + " insert ()"
	}
	cols := make([]string, len(q.model.fields))
	for i, f := range q.model.fields {
		values := make([]any, len(q.rows))
		for j, row := range q.rows {
			v, ok := row[f.Name]
			if !ok || v == nil {
				if f.Default != nil {
					v = f.Default
				} else {
					v = Null{f.Kind}
				}
			}
			values[j] = v
		}
		cols[i] = insertColumn(f, values)
	}
	return "`" + q.model.name + " insert (" + strings.Join(cols, ";") + ")"
}

// BoundModel returns the model results bind to.
func (q *InsertQuery) BoundModel() *Model { return q.model }

func (q *InsertQuery) String() string { return q.Compile() }

// insertColumn renders one transposed column as a uniform vector literal
// when the values fit the declared kind, falling back to a mixed list.
func insertColumn(f Field, values []any) string {
	switch f.Kind {
	case KSymbol:
		var b strings.Builder
		for _, v := range values {
			b.WriteByte('`')
			switch s := v.(type) {
			case Symbol:
				b.WriteString(string(s))
			case string:
				b.WriteString(s)
			case Null:
				// bare backtick is the symbol null
			default:
				return mixedLit(values)
			}
		}
		return b.String()
	case KLong:
		parts := make([]string, len(values))
		for i, v := range values {
			switch n := v.(type) {
			case int64:
				parts[i] = strconv.FormatInt(n, 10)
			case int:
				parts[i] = strconv.Itoa(n)
			case Null:
				parts[i] = "0N"
			default:
				return mixedLit(values)
			}
		}
		return strings.Join(parts, " ")
	case KInt:
		parts := make([]string, len(values))
		for i, v := range values {
			switch n := v.(type) {
			case int32:
				parts[i] = strconv.FormatInt(int64(n), 10)
			case int:
				parts[i] = strconv.Itoa(n)
			case Null:
				parts[i] = "0N"
			default:
				return mixedLit(values)
			}
		}
		return strings.Join(parts, " ") + "i"
	case KShort:
		parts := make([]string, len(values))
		for i, v := range values {
			switch n := v.(type) {
			case int16:
				parts[i] = strconv.FormatInt(int64(n), 10)
			case int:
				parts[i] = strconv.Itoa(n)
			case Null:
				parts[i] = "0N"
			default:
				return mixedLit(values)
			}
		}
		return strings.Join(parts, " ") + "h"
	case KFloat:
		parts := make([]string, len(values))
		for i, v := range values {
			switch n := v.(type) {
			case float64:
				parts[i] = formatFloat64(n)
			case int:
				parts[i] = strconv.Itoa(n) + "f"
			case Null:
				parts[i] = "0n"
			default:
				return mixedLit(values)
			}
		}
		return strings.Join(parts, " ")
	case KReal:
		parts := make([]string, len(values))
		for i, v := range values {
			switch n := v.(type) {
			case float32:
				parts[i] = formatFloat32(n)
			case Null:
				parts[i] = "0Ne"
			default:
				return mixedLit(values)
			}
		}
		return strings.Join(parts, " ")
	case KBoolean:
		var b strings.Builder
		for _, v := range values {
			switch x := v.(type) {
			case bool:
				if x {
					b.WriteByte('1')
				} else {
					b.WriteByte('0')
				}
			default:
				return mixedLit(values)
			}
		}
		return b.String() + "b"
	case KChar:
		var b strings.Builder
		for _, v := range values {
			switch c := v.(type) {
			case Char:
				b.WriteByte(byte(c))
			case Null:
				b.WriteByte(' ')
			default:
				return mixedLit(values)
			}
		}
		return quoteQ(b.String())
	}
	// Temporal, guid, and nested columns render element-wise.
	return mixedLit(values)
}
