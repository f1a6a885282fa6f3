// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package exporter

import (
	"context"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanExporter discards every span. It backs [ProtocolNone].
type SpanExporter struct{}

func (SpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (SpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// MetricExporter discards every collection.
type MetricExporter struct{}

func (MetricExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

func (MetricExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (MetricExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	return nil
}

func (MetricExporter) ForceFlush(ctx context.Context) error {
	return nil
}

func (MetricExporter) Shutdown(ctx context.Context) error {
	return nil
}

// LogExporter discards every log record.
type LogExporter struct{}

func (LogExporter) Export(ctx context.Context, records []sdklog.Record) error {
	return nil
}

func (LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

func (LogExporter) ForceFlush(ctx context.Context) error {
	return nil
}
