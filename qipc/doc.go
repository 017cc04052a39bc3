// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package qipc implements a Go client for q/kdb+ processes: the binary IPC
// codec, TCP/TLS transport, a typed query builder compiling to the q
// functional forms, declarative and reflected table models, and pooled,
// retrying sessions.
//
// # Wire codec
//
// Values cross the wire as tagged typed values over ~20 scalar and vector
// kinds. [Marshal] and [Unmarshal] convert between Go values and complete
// IPC frames, honoring the peer's declared endianness and the q LZ
// compression scheme on receive. Typed nulls are first-class: [Null]
// carries its kind, so a long null and a date null stay distinguishable and
// re-encode bit-exactly.
//
// # Models and queries
//
// A [Model] is a runtime schema descriptor, declared statically:
//
//	var Trade = qipc.MustModel("trade",
//		qipc.SymbolField("sym"),
//		qipc.FloatField("price"),
//		qipc.LongField("size"),
//	)
//
// or reflected from a live process via [Session.Reflect]. The builders
// compile to the functional query forms:
//
//	q := Trade.Select(qipc.Avg(Trade.C("price")).As("avg_price")).
//		Where(Trade.C("price").Gt(100)).
//		By(Trade.C("sym"))
//	// ?[trade;enlist ((price>100));(enlist `sym)!enlist `sym;...]
//
// Builders are functional: each chained call returns a new query.
//
// # Sessions
//
// A [Session] owns one connection and exposes Raw, Exec, Call, the DDL
// helpers, and schema reflection. Retryable failures (the connection error
// family) reconnect and retry per the engine's [RetryPolicy]; server errors
// ([QError]) always propagate. [Pool] provides a bounded, health-checked
// connection set for concurrent callers.
//
// Every blocking operation has a context-accepting variant; the plain form
// blocks. Cancellation at an I/O boundary marks the connection broken so it
// is never reused half-read.
//
// # Observability
//
// Install a [CallHook] via [Session.SetCallHook] to observe each operation
// with its compiled expression and I/O counters. The qipcotel subpackage
// provides an OpenTelemetry implementation.
//
// # Reference implementation
//
// The Python reference implementation is qorm; this package speaks the same
// wire protocol and compiles the same functional query forms.
package qipc
