// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"fmt"
	"iter"
)

// ResultSet is a column-oriented view over a decoded table, bound to a model
// when the originating query had one. Iteration yields lightweight row views
// projecting by column name; the columnar layout is preserved underneath.
type ResultSet struct {
	model  *Model
	cols   []string
	data   []any
	length int
}

// NewResultSet wraps a decoded table, binding rows to model (or a transient
// model synthesized from the columns when nil).
func NewResultSet(t *Table, model *Model) (*ResultSet, error) {
	return newResultSet(t, model)
}

func newResultSet(t *Table, model *Model) (*ResultSet, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if model == nil {
		model = transientModel(t)
	}
	return &ResultSet{model: model, cols: t.Cols, data: t.Data, length: t.Len()}, nil
}

// newKeyedResultSet flattens a keyed table, key columns first.
func newKeyedResultSet(key, value *Table, model *Model) (*ResultSet, error) {
	if key.Len() != value.Len() {
		return nil, fmt.Errorf("%w: keyed table has %d key rows and %d value rows",
			ErrDeserialization, key.Len(), value.Len())
	}
	flat := &Table{
		Cols: append(append([]string{}, key.Cols...), value.Cols...),
		Data: append(append([]any{}, key.Data...), value.Data...),
	}
	return newResultSet(flat, model)
}

// Model returns the bound model.
func (r *ResultSet) Model() *Model {
	return r.model
}

// Len returns the row count.
func (r *ResultSet) Len() int {
	return r.length
}

// Columns returns the column names in order.
func (r *ResultSet) Columns() []string {
	return r.cols
}

// Column returns a column's decoded storage (*Vector, []any, or string for
// char columns).
func (r *ResultSet) Column(name string) (any, bool) {
	for i, c := range r.cols {
		if c == name {
			return r.data[i], true
		}
	}
	return nil, false
}

// Row returns the i'th row view.
func (r *ResultSet) Row(i int) Row {
	return Row{rs: r, idx: i}
}

// Rows iterates the rows in order.
func (r *ResultSet) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for i := range r.length {
			if !yield(Row{rs: r, idx: i}) {
				return
			}
		}
	}
}

// ToMap returns the column-oriented layout as name -> storage.
func (r *ResultSet) ToMap() map[string]any {
	out := make(map[string]any, len(r.cols))
	for i, c := range r.cols {
		out[c] = r.data[i]
	}
	return out
}

func (r *ResultSet) String() string {
	return fmt.Sprintf("ResultSet(%s, %d rows, %v)", r.model.Name(), r.length, r.cols)
}

// Row is a lightweight row view over a ResultSet.
type Row struct {
	rs  *ResultSet
	idx int
}

// Value returns the decoded value of the named column in this row.
// Unknown columns panic when the bound model is concrete; reflected and
// transient models are permissive and return nil.
func (r Row) Value(name string) any {
	for i, c := range r.rs.cols {
		if c == name {
			return colAt(r.rs.data[i], r.idx)
		}
	}
	if r.rs.model != nil && !r.rs.model.reflected {
		panic(fmt.Sprintf("qipc: row has no column %q", name))
	}
	return nil
}

// Index returns the decoded value of column j.
func (r Row) Index(j int) any {
	return colAt(r.rs.data[j], r.idx)
}

// Values returns the row as a name -> value map.
func (r Row) Values() map[string]any {
	out := make(map[string]any, len(r.rs.cols))
	for i, c := range r.rs.cols {
		out[c] = colAt(r.rs.data[i], r.idx)
	}
	return out
}

// String renders a string-ish cell: Symbol, string, or Char.
func (r Row) String(name string) string {
	switch v := r.Value(name).(type) {
	case Symbol:
		return string(v)
	case string:
		return v
	case Char:
		return string(rune(v))
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
