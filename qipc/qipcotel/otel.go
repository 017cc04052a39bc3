// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package qipcotel provides OpenTelemetry instrumentation for qipc
// sessions. It implements the [qipc.CallHook] interface to add client spans
// and metrics around each session operation.
//
// Usage:
//
//	session, _ := qipc.NewSession(engine)
//	qipcotel.InstrumentSession(session, qipcotel.DefaultConfig())
package qipcotel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Query-farm/qipc-go/qipc"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "qipc"

// Config configures OpenTelemetry instrumentation for a session.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed operations.
	// Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with sensible defaults. Providers are
// resolved from the global OTel SDK at instrumentation time.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// InstrumentSession attaches OpenTelemetry instrumentation to a session via
// [qipc.Session.SetCallHook].
func InstrumentSession(session *qipc.Session, cfg Config) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	hook := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}

	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		hook.requestCounter, _ = meter.Int64Counter("db.client.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of q operations"),
		)
		hook.durationHistogram, _ = meter.Float64Histogram("db.client.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of q operations"),
		)
	}

	session.SetCallHook(hook)
}

// otelHook implements qipc.CallHook with OpenTelemetry tracing and metrics.
type otelHook struct {
	cfg               Config
	tracer            trace.Tracer
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

// spanToken is the HookToken returned by OnCallStart.
type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// OnCallStart opens a client span for the operation.
func (h *otelHook) OnCallStart(ctx context.Context, info qipc.CallInfo) (context.Context, qipc.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system", "kdb"),
		attribute.String("db.operation", info.Op),
		attribute.String("db.statement", info.Expr),
		attribute.String("server.address", info.Host),
		attribute.Int("server.port", info.Port),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, fmt.Sprintf("qipc/%s", info.Op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, &spanToken{span: span, startTime: time.Now()}
}

// OnCallEnd records metrics and span status and ends the span.
func (h *otelHook) OnCallEnd(ctx context.Context, token qipc.HookToken, info qipc.CallInfo, stats *qipc.CallStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	duration := time.Since(st.startTime)
	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("db.system", "kdb"),
			attribute.String("db.operation", info.Op),
			attribute.String("status", status),
		)
		if h.requestCounter != nil {
			h.requestCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
	}

	if st.span != nil && st.span.IsRecording() {
		if stats != nil {
			st.span.SetAttributes(
				attribute.Int64("qipc.request_bytes", stats.RequestBytes),
				attribute.Int64("qipc.response_bytes", stats.ResponseBytes),
				attribute.Int64("qipc.response_rows", stats.ResponseRows),
			)
		}
		if err != nil {
			st.span.SetStatus(codes.Error, err.Error())
			if h.cfg.RecordExceptions {
				st.span.RecordError(err)
			}
			errType := fmt.Sprintf("%T", err)
			if errors.Is(err, qipc.ErrQ) {
				errType = "QError"
			}
			st.span.SetAttributes(attribute.String("qipc.error_type", errType))
		} else {
			st.span.SetStatus(codes.Ok, "")
		}
		st.span.End()
	}
}
