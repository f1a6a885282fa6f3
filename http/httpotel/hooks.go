// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpotel

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/z5labs/beacon/pkg/slogfield"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// Classification names why a request failed.
type Classification string

const (
	ClassPanic            Classification = "panic"
	ClassCanceled         Classification = "canceled"
	ClassDeadlineExceeded Classification = "deadline_exceeded"
	ClassHandlerError     Classification = "handler_error"
)

// Failure describes a request which did not complete normally.
type Failure struct {
	Classification Classification

	// StatusCode is the status sent to the client, or 0 if none was.
	StatusCode int

	Cause error
}

// Error implements the [builtin.error] interface.
func (f Failure) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("request failed: %s", f.Classification)
	}
	return fmt.Sprintf("request failed: %s: %s", f.Classification, f.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (f Failure) Unwrap() error {
	return f.Cause
}

// SpanCreator starts the span for an inbound request. The returned
// context is handed to the next handler and must carry the span. A nil
// RequestSpan makes the middleware fall back to its default creator.
type SpanCreator interface {
	CreateSpan(*http.Request) (context.Context, *RequestSpan)
}

// SpanCreatorFunc
type SpanCreatorFunc func(*http.Request) (context.Context, *RequestSpan)

// CreateSpan implements the [SpanCreator] interface.
func (f SpanCreatorFunc) CreateSpan(r *http.Request) (context.Context, *RequestSpan) {
	return f(r)
}

// OnResponse is called once for every request which completed, with
// the status written to the client. 4xx and 5xx statuses count as
// completed; they are not failures of the request span.
type OnResponse interface {
	OnResponse(rs *RequestSpan, status int, latency time.Duration)
}

// OnResponseFunc
type OnResponseFunc func(*RequestSpan, int, time.Duration)

// OnResponse implements the [OnResponse] interface.
func (f OnResponseFunc) OnResponse(rs *RequestSpan, status int, latency time.Duration) {
	f(rs, status, latency)
}

// OnFailure is called once for every request which panicked, was
// canceled or had an error recorded with [RecordError].
type OnFailure interface {
	OnFailure(rs *RequestSpan, f Failure, latency time.Duration)
}

// OnFailureFunc
type OnFailureFunc func(*RequestSpan, Failure, time.Duration)

// OnFailure implements the [OnFailure] interface.
func (f OnFailureFunc) OnFailure(rs *RequestSpan, failure Failure, latency time.Duration) {
	f(rs, failure, latency)
}

// ClassifyStatus maps an HTTP status to a span status. 4xx responses
// are client errors and 5xx responses are server errors.
func ClassifyStatus(status int) (codes.Code, string) {
	switch {
	case status >= 500:
		return codes.Error, "server error"
	case status >= 400:
		return codes.Error, "client error"
	default:
		return codes.Ok, ""
	}
}

type defaultHooks struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	logHandler slog.Handler
	duration   metric.Float64Histogram

	responseLevel slog.Level
	failureLevel  slog.Level
}

func (d *defaultHooks) logger() *slog.Logger {
	if d.logHandler == nil {
		return slog.Default()
	}
	return slog.New(d.logHandler)
}

func (d *defaultHooks) CreateSpan(r *http.Request) (context.Context, *RequestSpan) {
	ctx := d.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	route := routeOf(r)
	attrs := requestAttributes(r)
	if route != "" {
		attrs = append(attrs, semconv.HTTPRoute(route))
	}

	ctx, span := d.tracer.Start(
		ctx,
		spanName(r.Method, route),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	rs := NewRequestSpan(ctx, span, r)
	if id := rs.RequestID(); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}
	if sc := span.SpanContext(); sc.HasTraceID() {
		span.SetAttributes(attribute.String("trace_id", sc.TraceID().String()))
	}
	return ctx, rs
}

func (d *defaultHooks) OnResponse(rs *RequestSpan, status int, latency time.Duration) {
	span := rs.Span()
	span.SetAttributes(
		semconv.HTTPResponseStatusCode(status),
		semconv.HTTPResponseBodySize(int(rs.BytesWritten())),
	)
	span.SetStatus(ClassifyStatus(status))

	d.record(rs, latency, semconv.HTTPResponseStatusCode(status))
	d.logger().LogAttrs(
		rs.Context(),
		d.responseLevel,
		"finished processing request",
		slogfield.Latency(latency),
		slogfield.Status(status),
	)
}

func (d *defaultHooks) OnFailure(rs *RequestSpan, f Failure, latency time.Duration) {
	span := rs.Span()
	span.SetAttributes(semconv.ErrorTypeKey.String(string(f.Classification)))
	if f.StatusCode != 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(f.StatusCode))
	}
	span.RecordError(f)
	span.SetStatus(codes.Error, f.Error())

	d.record(rs, latency, semconv.ErrorTypeKey.String(string(f.Classification)))

	attrs := []slog.Attr{
		slogfield.String("classification", string(f.Classification)),
		slogfield.Latency(latency),
	}
	if f.Cause != nil {
		attrs = append(attrs, slogfield.Error(f.Cause))
	}
	d.logger().LogAttrs(rs.Context(), d.failureLevel, "response failed", attrs...)
}

func (d *defaultHooks) record(rs *RequestSpan, latency time.Duration, attrs ...attribute.KeyValue) {
	attrs = append(attrs, semconv.HTTPRequestMethodKey.String(rs.method))
	if route := rs.Route(); route != "" {
		attrs = append(attrs, semconv.HTTPRoute(route))
	}
	d.duration.Record(rs.Context(), latency.Seconds(), metric.WithAttributes(attrs...))
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.URLPath(r.URL.Path),
		semconv.URLScheme(scheme(r)),
		semconv.NetworkProtocolVersion(protocolVersion(r)),
	}
	if host := hostOnly(r.Host); host != "" {
		attrs = append(attrs, semconv.ServerAddress(host))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(ua))
	}
	if client := hostOnly(r.RemoteAddr); client != "" {
		attrs = append(attrs, semconv.ClientAddress(client))
	}
	if r.ContentLength > 0 {
		attrs = append(attrs, semconv.HTTPRequestBodySize(int(r.ContentLength)))
	}
	return attrs
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func protocolVersion(r *http.Request) string {
	if r.ProtoMajor >= 2 && r.ProtoMinor == 0 {
		return strconv.Itoa(r.ProtoMajor)
	}
	return strconv.Itoa(r.ProtoMajor) + "." + strconv.Itoa(r.ProtoMinor)
}

func hostOnly(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}
