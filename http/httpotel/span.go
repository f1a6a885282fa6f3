// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpotel

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/z5labs/beacon"

	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// State of a [RequestSpan].
type State int32

const (
	Started State = iota
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Started:
		return "started"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// RequestSpan tracks the span of a single inbound request. It moves
// from Started to either Completed or Failed exactly once.
type RequestSpan struct {
	ctx    context.Context
	span   trace.Span
	method string
	start  time.Time

	route     atomic.Pointer[string]
	state     atomic.Int32
	bytes     atomic.Int64
	requestID string
}

// NewRequestSpan wraps an already started span. ctx should carry span.
func NewRequestSpan(ctx context.Context, span trace.Span, r *http.Request) *RequestSpan {
	rs := &RequestSpan{
		ctx:       ctx,
		span:      span,
		method:    r.Method,
		start:     time.Now(),
		requestID: requestID(r.Header),
	}
	if route := routeOf(r); route != "" {
		rs.route.Store(&route)
	}
	return rs
}

// Context carries the span.
func (rs *RequestSpan) Context() context.Context {
	return rs.ctx
}

func (rs *RequestSpan) Span() trace.Span {
	return rs.span
}

func (rs *RequestSpan) State() State {
	return State(rs.state.Load())
}

// Route is the matched route template, e.g. /orders/{id}, or "" if the
// request was not routed by a pattern.
func (rs *RequestSpan) Route() string {
	route := rs.route.Load()
	if route == nil {
		return ""
	}
	return *route
}

// SetRoute renames the span to "METHOD route". The first route set
// sticks.
func (rs *RequestSpan) SetRoute(route string) {
	if route == "" || !rs.route.CompareAndSwap(nil, &route) {
		return
	}
	rs.span.SetName(spanName(rs.method, route))
	rs.span.SetAttributes(semconv.HTTPRoute(route))
}

// RequestID is taken from the x-request-id or request-id header.
func (rs *RequestSpan) RequestID() string {
	return rs.requestID
}

// BytesWritten is the size of the response body written so far.
func (rs *RequestSpan) BytesWritten() int64 {
	return rs.bytes.Load()
}

// StartTime is when the request span was created.
func (rs *RequestSpan) StartTime() time.Time {
	return rs.start
}

// Complete moves the span to Completed. It returns a
// [beacon.SpanFinalizedError] if the span already left Started.
func (rs *RequestSpan) Complete() error {
	return rs.transition(Completed)
}

// Fail moves the span to Failed. It returns a
// [beacon.SpanFinalizedError] if the span already left Started.
func (rs *RequestSpan) Fail() error {
	return rs.transition(Failed)
}

func (rs *RequestSpan) transition(to State) error {
	if rs.state.CompareAndSwap(int32(Started), int32(to)) {
		return nil
	}
	return beacon.SpanFinalizedError{State: rs.State().String()}
}

func spanName(method, route string) string {
	if route == "" {
		return method
	}
	return method + " " + route
}

// routeOf extracts the path template from the pattern the request was
// matched with. Patterns may carry a method and host, as in
// "GET example.com/orders/{id}".
func routeOf(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return ""
	}
	if _, rest, ok := strings.Cut(p, " "); ok {
		p = strings.TrimSpace(rest)
	}
	if i := strings.IndexByte(p, '/'); i > 0 {
		p = p[i:]
	}
	return p
}

func requestID(h http.Header) string {
	if id := h.Get("X-Request-Id"); id != "" {
		return id
	}
	return h.Get("Request-Id")
}

type ctxKey struct{}

type requestState struct {
	rs  *RequestSpan
	err atomic.Pointer[error]
}

// FromContext returns the RequestSpan of the request ctx belongs to,
// or nil outside of the middleware.
func FromContext(ctx context.Context) *RequestSpan {
	st, ok := ctx.Value(ctxKey{}).(*requestState)
	if !ok {
		return nil
	}
	return st.rs
}

// RecordError marks the current request as failed with err once the
// handler returns, even if a successful status was written. Errors
// recorded more than once are joined. It reports false if ctx does
// not belong to a request served by the middleware.
func RecordError(ctx context.Context, err error) bool {
	st, ok := ctx.Value(ctxKey{}).(*requestState)
	if !ok || err == nil {
		return false
	}
	for {
		old := st.err.Load()
		joined := err
		if old != nil {
			joined = errors.Join(*old, err)
		}
		if st.err.CompareAndSwap(old, &joined) {
			return true
		}
	}
}

func (st *requestState) recorded() error {
	err := st.err.Load()
	if err == nil {
		return nil
	}
	return *err
}

// RouteTag sets the route of the current request span for handlers
// which are not registered with a pattern.
func RouteTag(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rs := FromContext(r.Context()); rs != nil {
			rs.SetRoute(route)
		}
		h.ServeHTTP(w, r)
	})
}
