// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpotel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/beacon"

	"github.com/felixge/httpsnoop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/z5labs/beacon/http/httpotel"

type options struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
	logHandler     slog.Handler
	responseLevel  slog.Level
	failureLevel   slog.Level

	creator    SpanCreator
	onResponse OnResponse
	onFailure  OnFailure
}

// Option configures a [Middleware].
type Option func(*options)

// WithTracerProvider defaults to the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider defaults to the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithPropagator defaults to the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.propagator = p
	}
}

// WithLogHandler sets where the default hooks log to. By default they
// log to whatever [slog.Default] is at the time of the request.
func WithLogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// WithResponseLevel sets the level the default response hook logs
// completed requests at. Defaults to [slog.LevelInfo].
func WithResponseLevel(lvl slog.Level) Option {
	return func(o *options) {
		o.responseLevel = lvl
	}
}

// WithFailureLevel sets the level the default failure hook logs failed
// requests at. Defaults to [slog.LevelError].
func WithFailureLevel(lvl slog.Level) Option {
	return func(o *options) {
		o.failureLevel = lvl
	}
}

// WithSpanCreator replaces how request spans are started. The creator
// must return a non-nil [RequestSpan]; requests for which it returns nil
// fall back to the default creator.
func WithSpanCreator(c SpanCreator) Option {
	return func(o *options) {
		o.creator = c
	}
}

func WithOnResponse(h OnResponse) Option {
	return func(o *options) {
		o.onResponse = h
	}
}

func WithOnFailure(h OnFailure) Option {
	return func(o *options) {
		o.onFailure = h
	}
}

// Middleware wraps handlers with request spans.
type Middleware struct {
	defaults   SpanCreator
	creator    SpanCreator
	onResponse OnResponse
	onFailure  OnFailure

	active metric.Int64UpDownCounter
}

// NewMiddleware
func NewMiddleware(opts ...Option) *Middleware {
	o := &options{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		propagator:     otel.GetTextMapPropagator(),
		responseLevel:  slog.LevelInfo,
		failureLevel:   slog.LevelError,
	}
	for _, opt := range opts {
		opt(o)
	}

	meter := o.meterProvider.Meter(scopeName)
	duration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of HTTP server requests."),
	)
	if err != nil {
		otel.Handle(err)
	}
	active, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithUnit("{request}"),
		metric.WithDescription("Number of active HTTP server requests."),
	)
	if err != nil {
		otel.Handle(err)
	}

	defaults := &defaultHooks{
		tracer:     o.tracerProvider.Tracer(scopeName),
		propagator: o.propagator,
		logHandler: o.logHandler,
		duration:   duration,

		responseLevel: o.responseLevel,
		failureLevel:  o.failureLevel,
	}

	m := &Middleware{
		defaults:   defaults,
		creator:    o.creator,
		onResponse: o.onResponse,
		onFailure:  o.onFailure,
		active:     active,
	}
	if m.creator == nil {
		m.creator = defaults
	}
	if m.onResponse == nil {
		m.onResponse = defaults
	}
	if m.onFailure == nil {
		m.onFailure = defaults
	}
	return m
}

// Handler wraps next so that every request it serves gets a span.
//
// After next returns the request is finalized exactly once:
//
//   - a panic fails the span, a 500 is written if nothing was written
//     yet and only [http.ErrAbortHandler] is re-panicked
//   - a canceled or expired request context fails the span
//   - an error passed to [RecordError] fails the span
//   - otherwise the span completes with the written status, 200 if
//     the handler never wrote one
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, rs := m.creator.CreateSpan(r)
		if rs == nil {
			ctx, rs = m.defaults.CreateSpan(r)
		}
		st := &requestState{rs: rs}
		ctx = context.WithValue(ctx, ctxKey{}, st)

		methodAttr := metric.WithAttributes(semconv.HTTPRequestMethodKey.String(r.Method))
		if m.active != nil {
			m.active.Add(ctx, 1, methodAttr)
			defer m.active.Add(context.WithoutCancel(ctx), -1, methodAttr)
		}

		rec := &recorder{status: http.StatusOK, rs: rs}
		ww := httpsnoop.Wrap(w, rec.hooks())
		r = r.WithContext(ctx)

		defer func() {
			p := recover()

			// ServeMux records the matched pattern on the request it was given.
			rs.SetRoute(routeOf(r))
			m.finish(ctx, w, rec, st, p)
			if p == http.ErrAbortHandler {
				panic(p)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *Middleware) finish(ctx context.Context, w http.ResponseWriter, rec *recorder, st *requestState, p any) {
	rs := st.rs
	defer rs.Span().End()

	latency := time.Since(rs.StartTime())
	switch {
	case p != nil:
		if !rec.wroteHeader && p != http.ErrAbortHandler {
			w.WriteHeader(http.StatusInternalServerError)
			rec.status = http.StatusInternalServerError
			rec.wroteHeader = true
		}
		m.fail(rs, Failure{
			Classification: ClassPanic,
			StatusCode:     rec.sentStatus(),
			Cause:          beacon.PanicError{Value: p},
		}, latency)
	case ctx.Err() != nil:
		class := ClassCanceled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			class = ClassDeadlineExceeded
		}
		m.fail(rs, Failure{
			Classification: class,
			StatusCode:     rec.sentStatus(),
			Cause:          context.Cause(ctx),
		}, latency)
	case st.recorded() != nil:
		m.fail(rs, Failure{
			Classification: ClassHandlerError,
			StatusCode:     rec.sentStatus(),
			Cause:          st.recorded(),
		}, latency)
	default:
		err := rs.Complete()
		if err != nil {
			otel.Handle(err)
			return
		}
		m.onResponse.OnResponse(rs, rec.status, latency)
	}
}

func (m *Middleware) fail(rs *RequestSpan, f Failure, latency time.Duration) {
	err := rs.Fail()
	if err != nil {
		otel.Handle(err)
		return
	}
	m.onFailure.OnFailure(rs, f, latency)
}

// recorder is only ever touched by the goroutine serving the request.
type recorder struct {
	rs          *RequestSpan
	status      int
	wroteHeader bool
}

func (rec *recorder) sentStatus() int {
	if !rec.wroteHeader {
		return 0
	}
	return rec.status
}

func (rec *recorder) hooks() httpsnoop.Hooks {
	return httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				if !rec.wroteHeader && code >= http.StatusOK {
					rec.status = code
					rec.wroteHeader = true
				}
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				rec.wroteHeader = true
				n, err := next(b)
				rec.rs.bytes.Add(int64(n))
				return n, err
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				rec.wroteHeader = true
				n, err := next(src)
				rec.rs.bytes.Add(n)
				return n, err
			}
		},
	}
}
