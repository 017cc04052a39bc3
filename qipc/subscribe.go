// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// SubscriptionCallback receives one decoded update: the table name and its
// data (usually a *Table). It runs on the listener's goroutine and must not
// block it beyond the caller's own latency budget.
type SubscriptionCallback func(table string, data any)

// Subscriber listens for real-time updates published via the tickerplant
// .u.sub pattern on a dedicated connection. Updates arrive as async frames
// of shape (functionSym; tableName; data); the leading function symbol is
// stripped before delivery. Updates are delivered in arrival order.
type Subscriber struct {
	engine  *Engine
	cb      SubscriptionCallback
	conn    *Conn
	running atomic.Bool
}

// NewSubscriber creates a subscriber against the publisher's engine.
func NewSubscriber(e *Engine, cb SubscriptionCallback) *Subscriber {
	return &Subscriber{engine: e, cb: cb}
}

// Connect opens the listener connection.
func (s *Subscriber) Connect(ctx context.Context) error {
	if s.conn != nil && s.conn.IsOpen() {
		return nil
	}
	s.conn = s.engine.Connect()
	if err := s.conn.OpenContext(ctx); err != nil {
		return err
	}
	slog.Debug("subscriber connected", "addr", s.engine.Addr())
	return nil
}

// Subscribe sends .u.sub[table; syms] and returns the publisher's reply
// (typically the table schema). An empty syms list subscribes to all
// symbols.
func (s *Subscriber) Subscribe(ctx context.Context, table string, syms []string) (any, error) {
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	symArg := make([]Symbol, len(syms))
	for i, sym := range syms {
		symArg[i] = Symbol(sym)
	}
	reply, err := s.conn.QueryContext(ctx, ".u.sub", Symbol(table), symArg)
	if err != nil {
		return nil, err
	}
	slog.Debug("subscribed", "table", table, "syms", syms)
	return reply, nil
}

// Listen reads frames until ctx is canceled, Stop is called, or the
// connection drops, delivering each update to the callback in arrival
// order.
func (s *Subscriber) Listen(ctx context.Context) error {
	if s.conn == nil || !s.conn.IsOpen() {
		return fmt.Errorf("%w: subscriber is not connected", ErrConnection)
	}
	s.running.Store(true)
	defer s.running.Store(false)

	for s.running.Load() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		s.conn.mu.Lock()
		_, v, err := s.conn.receiveLocked(ctx)
		s.conn.mu.Unlock()
		if err != nil {
			if !s.running.Load() || ctx.Err() != nil {
				return nil
			}
			return err
		}

		items, ok := v.([]any)
		if !ok || len(items) < 2 {
			slog.Debug("ignoring non-update message", "type", fmt.Sprintf("%T", v))
			continue
		}
		// (functionSym; tableName; data) from the tickerplant, or
		// (tableName; data) from direct publishers.
		var table string
		var data any
		if len(items) >= 3 {
			table = symbolString(items[1])
			data = items[2]
		} else {
			table = symbolString(items[0])
			data = items[1]
		}
		s.cb(table, data)
	}
	return nil
}

// Stop signals the listener to exit after the current frame.
func (s *Subscriber) Stop() {
	s.running.Store(false)
}

// Close stops listening and closes the connection.
func (s *Subscriber) Close() error {
	s.Stop()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func symbolString(v any) string {
	switch x := v.(type) {
	case Symbol:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
