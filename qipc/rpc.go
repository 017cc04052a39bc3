// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import "context"

// QFunc is a reusable binding to a named server-side q function. Calls route
// through Session.Call using the call form (name; arg1; arg2; ...).
//
//	getTrades := qipc.QFunc("getTradesByDate")
//	v, err := getTrades.Call(session, qipc.NewDate(2026, 8, 6))
type QFunc string

// Call invokes the function on the given session.
func (f QFunc) Call(s *Session, args ...any) (any, error) {
	return s.Call(string(f), args...)
}

// CallContext is Call with cancellation.
func (f QFunc) CallContext(ctx context.Context, s *Session, args ...any) (any, error) {
	return s.CallContext(ctx, string(f), args...)
}
