// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"fmt"
	"sync"
)

// Model is a named schema: an ordered list of fields with an index by name.
// Models are immutable after construction. A keyed model is one with at
// least one primary-key field; key fields must come first and be contiguous,
// matching the generated DDL.
//
// Models are runtime values rather than nominal types, so reflection-built
// models and declared models share one shape; the query builder binds
// against either.
type Model struct {
	name      string
	fields    []Field
	index     map[string]int
	keys      []string
	reflected bool
}

// NewModel builds and registers a model. It fails on duplicate field names
// and on primary-key fields that are not contiguous at the front.
func NewModel(name string, fields ...Field) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: model name is empty", ErrModel)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: model %q has no fields", ErrModel, name)
	}
	m := &Model{name: name, fields: fields, index: make(map[string]int, len(fields))}
	inKeys := true
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: model %q field %d has no name", ErrModel, name, i)
		}
		if _, dup := m.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: model %q has duplicate field %q", ErrModel, name, f.Name)
		}
		m.index[f.Name] = i
		if f.PrimaryKey {
			if !inKeys {
				return nil, fmt.Errorf("%w: model %q: key field %q must precede value fields", ErrModel, name, f.Name)
			}
			m.keys = append(m.keys, f.Name)
		} else {
			inKeys = false
		}
	}
	RegisterModel(m)
	return m, nil
}

// MustModel is NewModel that panics on error, for package-level declarations.
func MustModel(name string, fields ...Field) *Model {
	m, err := NewModel(name, fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// transientModel synthesizes a permissive model from a decoded table's
// columns, for anonymous results.
func transientModel(t *Table) *Model {
	m := &Model{name: "raw", index: make(map[string]int, len(t.Cols)), reflected: true}
	for i, c := range t.Cols {
		kind := KMixed
		if v, ok := t.Data[i].(*Vector); ok {
			kind = v.Kind
		} else if _, ok := t.Data[i].(string); ok {
			kind = KChar
		}
		m.fields = append(m.fields, Field{Name: c, Kind: kind, Elem: KMixed, Nullable: true})
		m.index[c] = i
	}
	return m
}

// Name returns the table name.
func (m *Model) Name() string { return m.name }

// Fields returns the field list in declaration order.
func (m *Model) Fields() []Field { return m.fields }

// Field looks a field up by name.
func (m *Model) Field(name string) (Field, bool) {
	i, ok := m.index[name]
	if !ok {
		return Field{}, false
	}
	return m.fields[i], true
}

// Keyed reports whether the model has primary-key fields.
func (m *Model) Keyed() bool { return len(m.keys) > 0 }

// KeyColumns returns the primary-key column names in order.
func (m *Model) KeyColumns() []string { return m.keys }

// ValueColumns returns the non-key column names in order.
func (m *Model) ValueColumns() []string {
	out := make([]string, 0, len(m.fields)-len(m.keys))
	for _, f := range m.fields {
		if !f.PrimaryKey {
			out = append(out, f.Name)
		}
	}
	return out
}

// Reflected reports whether the model came from reflection (or is a
// transient result model); such models are permissive in the compiler.
func (m *Model) Reflected() bool { return m.reflected }

// C returns a column expression bound to this model. Referencing an
// undeclared column of a concrete (declared) model panics; reflected models
// are permissive.
func (m *Model) C(name string) ColExpr {
	if _, ok := m.index[name]; !ok && !m.reflected {
		panic(fmt.Sprintf("qipc: model %q has no column %q", m.name, name))
	}
	return ColExpr{Name: name, model: m}
}

func (m *Model) String() string {
	return fmt.Sprintf("Model(%s, %d fields)", m.name, len(m.fields))
}

// Global model registry: table name -> model, populated at declaration or
// reflection time. Write-once per name, read-mostly.
var (
	modelMu  sync.Mutex
	modelReg = map[string]*Model{}
)

// RegisterModel records a model for result-type lookup by table name.
func RegisterModel(m *Model) {
	modelMu.Lock()
	defer modelMu.Unlock()
	modelReg[m.name] = m
}

// ModelFor looks up a registered model by table name.
func ModelFor(name string) (*Model, bool) {
	modelMu.Lock()
	defer modelMu.Unlock()
	m, ok := modelReg[name]
	return m, ok
}

// Models returns a snapshot of the registry.
func Models() map[string]*Model {
	modelMu.Lock()
	defer modelMu.Unlock()
	out := make(map[string]*Model, len(modelReg))
	for k, v := range modelReg {
		out[k] = v
	}
	return out
}

// ClearModels empties the registry. Intended for tests.
func ClearModels() {
	modelMu.Lock()
	defer modelMu.Unlock()
	modelReg = map[string]*Model{}
}
