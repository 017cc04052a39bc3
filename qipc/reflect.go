// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import "fmt"

// Reflection: turning the output of q's meta command into a model. meta
// returns a keyed table with columns c (name), t (type char), f (foreign
// key), a (attribute); key columns are detected separately via keys, since
// meta flattens them into c.

type metaColumn struct {
	name     string
	typeChar byte
	attr     string
}

// parseMeta extracts (column, type char, attribute) triples from a decoded
// meta result, which arrives as a keyed table or occasionally as a plain
// table.
func parseMeta(v any) ([]metaColumn, error) {
	var names, attrs []string
	var chars []any

	switch x := v.(type) {
	case *ResultSet:
		// Session mapping wraps tables before reflection sees them.
		names = columnStrings(x, "c")
		chars = columnValues(x, "t")
		attrs = columnStrings(x, "a")
	case *Dict:
		key, value, ok := x.KeyedTable()
		if !ok {
			return nil, fmt.Errorf("%w: meta result is a non-table dict", ErrReflection)
		}
		rs, err := newKeyedResultSet(key, value, nil)
		if err != nil {
			return nil, err
		}
		return parseMeta(rs)
	case *Table:
		rs, err := newResultSet(x, nil)
		if err != nil {
			return nil, err
		}
		return parseMeta(rs)
	default:
		return nil, fmt.Errorf("%w: unexpected meta result %T", ErrReflection, v)
	}

	if names == nil || chars == nil {
		return nil, fmt.Errorf("%w: meta result missing c or t column", ErrReflection)
	}
	if len(names) != len(chars) {
		return nil, fmt.Errorf("%w: meta has %d names for %d type chars", ErrReflection, len(names), len(chars))
	}

	cols := make([]metaColumn, len(names))
	for i, name := range names {
		var tc byte
		switch c := chars[i].(type) {
		case Char:
			tc = byte(c)
		case string:
			if len(c) > 0 {
				tc = c[0]
			} else {
				tc = ' '
			}
		case Symbol:
			if len(c) > 0 {
				tc = c[0]
			} else {
				tc = ' '
			}
		case Null:
			tc = ' '
		default:
			return nil, fmt.Errorf("%w: unexpected type char %T for column %q", ErrReflection, chars[i], name)
		}
		cols[i] = metaColumn{name: name, typeChar: tc}
		if attrs != nil && i < len(attrs) {
			cols[i].attr = attrs[i]
		}
	}
	return cols, nil
}

func columnStrings(rs *ResultSet, name string) []string {
	col, ok := rs.Column(name)
	if !ok {
		return nil
	}
	n := colLen(col)
	out := make([]string, n)
	for i := range n {
		switch v := colAt(col, i).(type) {
		case Symbol:
			out[i] = string(v)
		case string:
			out[i] = v
		case Char:
			out[i] = string(rune(v))
		default:
			out[i] = ""
		}
	}
	return out
}

func columnValues(rs *ResultSet, name string) []any {
	col, ok := rs.Column(name)
	if !ok {
		return nil
	}
	n := colLen(col)
	out := make([]any, n)
	for i := range n {
		out[i] = colAt(col, i)
	}
	return out
}

// fieldFromTypeChar maps a meta type char to a field. Lowercase chars are
// scalar kinds; an uppercase char marks a nested column of that scalar kind,
// preserved in Elem; a space is an untyped mixed column.
func fieldFromTypeChar(name string, tc byte, attr string) (Field, error) {
	nested := false
	if tc >= 'A' && tc <= 'Z' {
		nested = true
		tc = tc - 'A' + 'a'
	}
	kind, ok := charKind[tc]
	if !ok {
		return Field{}, fmt.Errorf("%w: unknown type char %q for column %q", ErrReflection, string(rune(tc)), name)
	}

	var f Field
	if nested {
		f = ListField(name, kind)
	} else {
		f = NewField(name, kind)
	}
	switch attr {
	case "s":
		f.Attr = AttrSorted
	case "u":
		f.Attr = AttrUnique
	case "p":
		f.Attr = AttrParted
	case "g":
		f.Attr = AttrGrouped
	}
	return f, nil
}

// buildModelFromMeta creates and registers a model from a decoded meta
// result and the table's key columns (nil or empty for unkeyed tables).
func buildModelFromMeta(name string, meta any, keyCols []string) (*Model, error) {
	cols, err := parseMeta(meta)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: table %q has no columns", ErrReflection, name)
	}

	keyed := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		keyed[k] = true
	}

	// Key fields first and contiguous, matching DDL order.
	fields := make([]Field, 0, len(cols))
	for _, c := range cols {
		if !keyed[c.name] {
			continue
		}
		f, err := fieldFromTypeChar(c.name, c.typeChar, c.attr)
		if err != nil {
			return nil, err
		}
		f.PrimaryKey = true
		fields = append(fields, f)
	}
	for _, c := range cols {
		if keyed[c.name] {
			continue
		}
		f, err := fieldFromTypeChar(c.name, c.typeChar, c.attr)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	m, err := NewModel(name, fields...)
	if err != nil {
		return nil, err
	}
	m.reflected = true
	return m, nil
}
