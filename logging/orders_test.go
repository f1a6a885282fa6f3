// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/z5labs/beacon/exporter"
	"github.com/z5labs/beacon/guard"
	"github.com/z5labs/beacon/http/httpotel"
	"github.com/z5labs/beacon/logging"
	"github.com/z5labs/beacon/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var errOutOfStock = errors.New("out of stock")

func ordersMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "fetching order", slog.String("order_id", r.PathValue("id")))
		w.Write([]byte(`{"id":"` + r.PathValue("id") + `"}`))
	})
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		httpotel.RecordError(r.Context(), errOutOfStock)
	})
	mux.HandleFunc("GET /orders/{id}/invoice", func(w http.ResponseWriter, r *http.Request) {
		panic("invoice renderer crashed")
	})
	return mux
}

func TestOrdersService(t *testing.T) {
	t.Run("will correlate logs and spans and release cleanly", func(t *testing.T) {
		t.Run("if requests succeed, fail and panic", func(t *testing.T) {
			ctx := context.Background()
			spans := tracetest.NewSpanRecorder()
			reader := sdkmetric.NewManualReader()

			var buf bytes.Buffer
			g, err := logging.New("orders").
				WithFormat(logging.FormatJSON).
				WithConsoleWriter(&buf).
				WithSampleRatio(1).
				WithMetricsIntervalSecs(60).
				WithAttributes(attribute.String("deployment.environment", "test")).
				WithSpanEvents(logging.SpanEventsNone).
				WithExporter(exporter.Config{Protocol: exporter.ProtocolNone}).
				WithTracerOptions(provider.WithSpanProcessor(spans)).
				WithMeterOptions(provider.WithReader(reader)).
				Init(ctx)
			require.NoError(t, err)

			var rm metricdata.ResourceMetrics
			err = guard.Run(ctx, g, func(ctx context.Context) error {
				handler := httpotel.NewMiddleware().Handler(ordersMux())

				requests := []*http.Request{
					httptest.NewRequest(http.MethodGet, "/orders/42", nil),
					httptest.NewRequest(http.MethodPost, "/orders", nil),
					httptest.NewRequest(http.MethodGet, "/orders/42/invoice", nil),
				}
				for _, req := range requests {
					handler.ServeHTTP(httptest.NewRecorder(), req)
				}
				return reader.Collect(ctx, &rm)
			})
			require.NoError(t, err)
			assert.Equal(t, guard.Released, g.State())

			ended := spans.Ended()
			require.Len(t, ended, 3)

			statuses := map[string]codes.Code{}
			traceIDs := map[string]bool{}
			for _, span := range ended {
				statuses[span.Name()] = span.Status().Code
				traceIDs[span.SpanContext().TraceID().String()] = true

				svc, ok := span.Resource().Set().Value("service.name")
				assert.True(t, ok)
				assert.Equal(t, "orders", svc.AsString())
			}
			assert.Equal(t, map[string]codes.Code{
				"GET /orders/{id}":         codes.Ok,
				"POST /orders":             codes.Error,
				"GET /orders/{id}/invoice": codes.Error,
			}, statuses)

			var lines []map[string]any
			sc := bufio.NewScanner(&buf)
			for sc.Scan() {
				var line map[string]any
				require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
				lines = append(lines, line)
			}

			msgs := map[string]int{}
			for _, line := range lines {
				msgs[line["msg"].(string)]++

				assert.Equal(t, "orders", line["service"])
				traceID, ok := line["trace_id"].(string)
				if assert.True(t, ok, "missing trace_id on %q", line["msg"]) {
					assert.True(t, traceIDs[traceID])
				}
			}
			assert.Equal(t, map[string]int{
				"fetching order":              1,
				"finished processing request": 1,
				"response failed":             2,
			}, msgs)

			var durations int
			for _, sm := range rm.ScopeMetrics {
				for _, m := range sm.Metrics {
					if m.Name == "http.server.request.duration" {
						durations++
					}
				}
			}
			assert.Equal(t, 1, durations)
		})
	})
}
