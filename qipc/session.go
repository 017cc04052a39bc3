// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Query is anything the session can compile and execute: the select, update,
// delete, insert, and exec builders, and the join forms.
type Query interface {
	// Compile renders the q functional form.
	Compile() string
	// BoundModel returns the model the result rows bind to, or nil.
	BoundModel() *Model
}

// Session owns one connection and orchestrates request/response over it.
// Operations that fail with a retryable error discard the connection,
// reconnect, and retry per the engine's policy. Each operation has a
// context-accepting variant; the plain form blocks.
type Session struct {
	engine *Engine
	conn   *Conn
	hook   CallHook
}

// NewSession opens a session against the engine.
func NewSession(e *Engine) (*Session, error) {
	return NewSessionContext(context.Background(), e)
}

// NewSessionContext opens a session, honoring ctx during connect.
func NewSessionContext(ctx context.Context, e *Engine) (*Session, error) {
	s := &Session{engine: e}
	if err := s.reconnect(ctx); err != nil {
		return nil, err
	}
	slog.Debug("session opened", "addr", e.Addr())
	return s, nil
}

// Close closes the session's connection.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	slog.Debug("session closed", "addr", s.engine.Addr())
	return err
}

// Conn exposes the underlying connection.
func (s *Session) Conn() *Conn {
	return s.conn
}

// Engine returns the session's engine.
func (s *Session) Engine() *Engine {
	return s.engine
}

// SetCallHook installs an observability hook called around each operation.
func (s *Session) SetCallHook(h CallHook) {
	s.hook = h
}

func (s *Session) reconnect(ctx context.Context) error {
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = s.engine.Connect()
	return s.conn.OpenContext(ctx)
}

// do runs one request/response cycle with retry and hook bookkeeping.
func (s *Session) do(ctx context.Context, op, expr string, model *Model, args ...any) (any, error) {
	info := CallInfo{Op: op, Expr: expr, Host: s.engine.Host, Port: s.engine.Port}
	stats := &CallStatistics{}

	var token HookToken
	if s.hook != nil {
		var hookCtx context.Context
		hookCtx, token = s.hook.OnCallStart(ctx, info)
		if hookCtx != nil {
			ctx = hookCtx
		}
	}

	run := func() (any, error) {
		if s.conn == nil || !s.conn.IsOpen() {
			if err := s.reconnect(ctx); err != nil {
				return nil, err
			}
		}
		sent0, recv0 := s.conn.Stats()
		v, err := s.conn.QueryContext(ctx, expr, args...)
		sent1, recv1 := s.conn.Stats()
		stats.RequestBytes += sent1 - sent0
		stats.ResponseBytes += recv1 - recv0
		if err != nil && s.retryable(err) {
			// The connection is suspect; force a fresh one on retry.
			s.conn.Close()
		}
		return v, err
	}

	t0 := time.Now()
	var v any
	var err error
	if s.engine.Retry != nil {
		v, err = s.engine.Retry.Do(ctx, run)
	} else {
		v, err = run()
	}
	slog.Debug(op, "expr", expr, "elapsed", time.Since(t0), "err", err)

	mapped := v
	if err == nil {
		mapped, err = mapResult(v, model)
		if rs, ok := mapped.(*ResultSet); ok {
			stats.ResponseRows = int64(rs.Len())
		}
	}
	if s.hook != nil {
		s.hook.OnCallEnd(ctx, token, info, stats, err)
	}
	return mapped, err
}

func (s *Session) retryable(err error) bool {
	if s.engine.Retry == nil {
		return false
	}
	return s.engine.Retry.Retryable(err)
}

// Raw executes a raw q expression. Table results are wrapped in a ResultSet
// bound to a transient model synthesized from the column names.
func (s *Session) Raw(expr string, args ...any) (any, error) {
	return s.RawContext(context.Background(), expr, args...)
}

// RawContext is Raw with cancellation.
func (s *Session) RawContext(ctx context.Context, expr string, args ...any) (any, error) {
	return s.do(ctx, "raw", expr, nil, args...)
}

// Exec compiles and executes a builder query, binding table results to the
// query's model.
func (s *Session) Exec(q Query) (any, error) {
	return s.ExecContext(context.Background(), q)
}

// ExecContext is Exec with cancellation.
func (s *Session) ExecContext(ctx context.Context, q Query) (any, error) {
	return s.do(ctx, "exec", q.Compile(), q.BoundModel())
}

// Call invokes a named q function with the given arguments, using the call
// form (function; arg1; arg2; ...).
func (s *Session) Call(fn string, args ...any) (any, error) {
	return s.CallContext(context.Background(), fn, args...)
}

// CallContext is Call with cancellation.
func (s *Session) CallContext(ctx context.Context, fn string, args ...any) (any, error) {
	return s.do(ctx, "call", fn, nil, args...)
}

// CreateTable creates the model's table.
func (s *Session) CreateTable(m *Model) error {
	_, err := s.Raw(CreateTableQ(m))
	return err
}

// DropTable deletes the model's table from the root namespace.
func (s *Session) DropTable(m *Model) error {
	_, err := s.Raw(DropTableQ(m))
	return err
}

// TableExists reports whether the model's table exists.
func (s *Session) TableExists(m *Model) (bool, error) {
	v, err := s.Raw(TableExistsQ(m))
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	return ok && b, nil
}

// Tables lists the table names in the q process.
func (s *Session) Tables() ([]string, error) {
	v, err := s.Raw("tables[]")
	if err != nil {
		return nil, err
	}
	return symbolsOf(v), nil
}

// Namespaces lists the process's namespaces.
func (s *Session) Namespaces() ([]string, error) {
	v, err := s.Raw("key `")
	if err != nil {
		return nil, err
	}
	return symbolsOf(v), nil
}

// Functions lists the functions defined in a namespace. An empty namespace
// lists the root.
func (s *Session) Functions(namespace string) ([]string, error) {
	ns := "."
	if namespace != "" {
		ns = "." + strings.TrimPrefix(namespace, ".")
	}
	v, err := s.Raw(fmt.Sprintf("system \"f %s\"", ns))
	if err != nil {
		return nil, err
	}
	return symbolsOf(v), nil
}

// Reflect introspects a table and returns a dynamically built model,
// registered under the table name. Keyed tables produce keyed models.
func (s *Session) Reflect(name string) (*Model, error) {
	return s.ReflectContext(context.Background(), name)
}

// ReflectContext is Reflect with cancellation.
func (s *Session) ReflectContext(ctx context.Context, name string) (*Model, error) {
	meta, err := s.do(ctx, "reflect", "meta "+name, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: meta %s: %v", ErrReflection, name, err)
	}

	var keyCols []string
	if keys, err := s.do(ctx, "reflect", "keys "+name, nil); err == nil {
		keyCols = symbolsOf(keys)
	}

	return buildModelFromMeta(name, meta, keyCols)
}

// ReflectAll reflects every table in the process.
func (s *Session) ReflectAll() (map[string]*Model, error) {
	names, err := s.Tables()
	if err != nil {
		return nil, err
	}
	models := make(map[string]*Model, len(names))
	for _, name := range names {
		m, err := s.Reflect(name)
		if err != nil {
			return nil, err
		}
		models[name] = m
	}
	return models, nil
}

// mapResult wraps table-shaped responses in a ResultSet.
func mapResult(v any, model *Model) (any, error) {
	switch x := v.(type) {
	case *Table:
		return newResultSet(x, model)
	case *ResultSet:
		return x, nil
	case *Dict:
		if key, value, ok := x.KeyedTable(); ok {
			return newKeyedResultSet(key, value, model)
		}
	}
	return v, nil
}

// symbolsOf extracts a string list from a decoded symbol vector or mixed
// list of symbols.
func symbolsOf(v any) []string {
	switch x := v.(type) {
	case *Vector:
		if syms, ok := x.Data.([]Symbol); ok {
			out := make([]string, len(syms))
			for i, s := range syms {
				out[i] = string(s)
			}
			return out
		}
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			switch s := item.(type) {
			case Symbol:
				out = append(out, string(s))
			case string:
				out = append(out, s)
			}
		}
		return out
	case Symbol:
		return []string{string(x)}
	}
	return nil
}
