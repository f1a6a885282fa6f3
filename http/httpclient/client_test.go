// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func serve(t *testing.T, f http.HandlerFunc) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(f)
	t.Cleanup(s.Close)
	return s
}

func discard(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func quietLogs() Option {
	return LogHandler(slog.NewTextHandler(io.Discard, nil))
}

func TestTimeout(t *testing.T) {
	t.Run("will timeout", func(t *testing.T) {
		t.Run("if the timeout is set to be greater than zero", func(t *testing.T) {
			timeout := 200 * time.Millisecond
			done := make(chan struct{})
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-done:
				case <-time.After(2 * timeout):
				}
			})
			defer close(done)

			client := New(Timeout(timeout), quietLogs())
			_, err := client.Get(s.URL)

			var nerr net.Error
			if !assert.ErrorAs(t, err, &nerr) {
				return
			}
			if !assert.True(t, nerr.Timeout()) {
				return
			}
		})
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("will open the circuit", func(t *testing.T) {
		t.Run("if consecutive responses have a tripping status code", func(t *testing.T) {
			var hits atomic.Int32
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			})

			client := New(Name("inventory"), TripAfter(2), OpenStateTimeout(time.Minute), quietLogs())

			for range 2 {
				resp, err := client.Get(s.URL)
				require.NoError(t, err)
				require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
				discard(resp)
			}

			_, err := client.Get(s.URL)
			require.ErrorIs(t, err, gobreaker.ErrOpenState)
			require.Equal(t, int32(2), hits.Load())
		})
	})

	t.Run("will not open the circuit", func(t *testing.T) {
		t.Run("if the status code is not configured to trip it", func(t *testing.T) {
			var hits atomic.Int32
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusNotFound)
			})

			client := New(TripAfter(1), quietLogs())

			for range 3 {
				resp, err := client.Get(s.URL)
				require.NoError(t, err)
				require.Equal(t, http.StatusNotFound, resp.StatusCode)
				discard(resp)
			}
			require.Equal(t, int32(3), hits.Load())
		})

		t.Run("if a success resets the consecutive failures", func(t *testing.T) {
			var hits atomic.Int32
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				n := hits.Add(1)
				if n%2 == 0 {
					w.WriteHeader(http.StatusOK)
					return
				}
				w.WriteHeader(http.StatusBadGateway)
			})

			client := New(TripAfter(2), quietLogs())

			for range 4 {
				resp, err := client.Get(s.URL)
				require.NoError(t, err)
				discard(resp)
			}
			require.Equal(t, int32(4), hits.Load())
		})
	})

	t.Run("will count custom status codes as failures", func(t *testing.T) {
		t.Run("if TripOnStatus is set", func(t *testing.T) {
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			})

			client := New(TripAfter(1), TripOnStatus(http.StatusTooManyRequests), quietLogs())

			resp, err := client.Get(s.URL)
			require.NoError(t, err)
			discard(resp)

			_, err = client.Get(s.URL)
			require.ErrorIs(t, err, gobreaker.ErrOpenState)
		})
	})
}

func TestRetry(t *testing.T) {
	t.Run("will retry the request", func(t *testing.T) {
		t.Run("if the server responds with a 5xx status", func(t *testing.T) {
			var hits atomic.Int32
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) < 3 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				w.Write([]byte("ok"))
			})

			client := New(RetryMax(3), RetryWait(time.Millisecond, 5*time.Millisecond), quietLogs())

			resp, err := client.Get(s.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			b, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, "ok", string(b))
			require.Equal(t, int32(3), hits.Load())
		})

		t.Run("if the request has a body", func(t *testing.T) {
			bodies := make(chan string, 2)
			var hits atomic.Int32
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				bodies <- string(b)
				if hits.Add(1) == 1 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusCreated)
			})

			client := New(RetryMax(1), RetryWait(time.Millisecond, time.Millisecond), quietLogs())

			resp, err := client.Post(s.URL, "application/json", strings.NewReader(`{"sku":"abc"}`))
			require.NoError(t, err)
			discard(resp)

			require.Equal(t, http.StatusCreated, resp.StatusCode)
			require.Equal(t, `{"sku":"abc"}`, <-bodies)
			require.Equal(t, `{"sku":"abc"}`, <-bodies)
		})
	})

	t.Run("will return the last response", func(t *testing.T) {
		t.Run("if every attempt fails", func(t *testing.T) {
			var hits atomic.Int32
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			})

			client := New(RetryMax(2), RetryWait(time.Millisecond, time.Millisecond), quietLogs())

			resp, err := client.Get(s.URL)
			require.NoError(t, err)
			discard(resp)

			require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			require.Equal(t, int32(3), hits.Load())
		})
	})

	t.Run("will not retry the request", func(t *testing.T) {
		t.Run("if the server responds with a 4xx status", func(t *testing.T) {
			var hits atomic.Int32
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusBadRequest)
			})

			client := New(RetryMax(3), RetryWait(time.Millisecond, time.Millisecond), quietLogs())

			resp, err := client.Get(s.URL)
			require.NoError(t, err)
			discard(resp)

			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, int32(1), hits.Load())
		})
	})
}

func TestTracing(t *testing.T) {
	t.Run("will propagate the trace context", func(t *testing.T) {
		t.Run("if the request context carries a span", func(t *testing.T) {
			headers := make(chan string, 1)
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				headers <- r.Header.Get("traceparent")
			})

			rec := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
			t.Cleanup(func() { tp.Shutdown(context.Background()) })

			client := New(
				WithTracerProvider(tp),
				WithPropagator(propagation.TraceContext{}),
				quietLogs(),
			)

			ctx, parent := tp.Tracer("test").Start(context.Background(), "place order")
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
			require.NoError(t, err)

			resp, err := client.Do(req)
			require.NoError(t, err)
			discard(resp)
			parent.End()

			traceparent := <-headers
			require.Contains(t, traceparent, parent.SpanContext().TraceID().String())

			var clientSpans []sdktrace.ReadOnlySpan
			for _, span := range rec.Ended() {
				if span.SpanKind() == trace.SpanKindClient {
					clientSpans = append(clientSpans, span)
				}
			}
			require.Len(t, clientSpans, 1)
			require.Equal(t, parent.SpanContext().SpanID(), clientSpans[0].Parent().SpanID())
			require.Contains(t, traceparent, clientSpans[0].SpanContext().SpanID().String())
		})
	})
}

func TestLogRoundTripper(t *testing.T) {
	t.Run("will log the request and response", func(t *testing.T) {
		t.Run("if the server responds", func(t *testing.T) {
			s := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			})

			var buf bytes.Buffer
			client := New(Name("billing"), LogHandler(slog.NewJSONHandler(&buf, nil)))

			resp, err := client.Get(s.URL + "/invoices")
			require.NoError(t, err)
			discard(resp)

			type record struct {
				Msg    string `json:"msg"`
				Client string `json:"http_client"`
				URL    string `json:"url"`
				Status int    `json:"status"`
			}
			var records []record
			dec := json.NewDecoder(&buf)
			for dec.More() {
				var r record
				require.NoError(t, dec.Decode(&r))
				records = append(records, r)
			}

			require.Len(t, records, 2)
			require.Equal(t, "request sent", records[0].Msg)
			require.Equal(t, "response received", records[1].Msg)
			require.Equal(t, http.StatusAccepted, records[1].Status)
			for _, r := range records {
				require.Equal(t, "billing", r.Client)
				require.Equal(t, s.URL+"/invoices", r.URL)
			}
		})
	})

	t.Run("will log the failure", func(t *testing.T) {
		t.Run("if the request could not be sent", func(t *testing.T) {
			s := httptest.NewServer(http.NotFoundHandler())
			addr := s.URL
			s.Close()

			var buf bytes.Buffer
			client := New(LogHandler(slog.NewJSONHandler(&buf, nil)))

			_, err := client.Get(addr)
			require.Error(t, err)
			require.Contains(t, buf.String(), `"msg":"request failed"`)
		})
	})
}
