// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/z5labs/beacon/pkg/slogfield"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// spanEventLogger is a [sdktrace.SpanProcessor] which logs when spans
// start and end. It stays silent until a logger is set.
type spanEventLogger struct {
	events SpanEvents
	logger atomic.Pointer[slog.Logger]
}

func newSpanEventLogger(events SpanEvents) *spanEventLogger {
	return &spanEventLogger{events: events}
}

func (p *spanEventLogger) setLogger(l *slog.Logger) {
	p.logger.Store(l)
}

// OnStart implements the [sdktrace.SpanProcessor] interface.
func (p *spanEventLogger) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	if !p.events.Has(SpanEventsNew) {
		return
	}
	l := p.logger.Load()
	if l == nil {
		return
	}
	l.LogAttrs(
		trace.ContextWithSpan(parent, s),
		slog.LevelDebug,
		"span started",
		slogfield.String("span", s.Name()),
	)
}

// OnEnd implements the [sdktrace.SpanProcessor] interface.
func (p *spanEventLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	if !p.events.Has(SpanEventsClose) {
		return
	}
	l := p.logger.Load()
	if l == nil {
		return
	}
	l.LogAttrs(
		trace.ContextWithSpanContext(context.Background(), s.SpanContext()),
		slog.LevelDebug,
		"span closed",
		slogfield.String("span", s.Name()),
		slogfield.String("span_status", s.Status().Code.String()),
		slogfield.Latency(s.EndTime().Sub(s.StartTime())),
	)
}

// Shutdown implements the [sdktrace.SpanProcessor] interface.
func (p *spanEventLogger) Shutdown(context.Context) error {
	return nil
}

// ForceFlush implements the [sdktrace.SpanProcessor] interface.
func (p *spanEventLogger) ForceFlush(context.Context) error {
	return nil
}
