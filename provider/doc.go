// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package provider builds the OpenTelemetry tracer, meter and logger
// providers from a [resource.Descriptor] and a handful of plain values.
//
// # Tracing
//
// [NewTracerProvider] validates the sample ratio, builds the span exporter
// and wires it behind a batching span processor. Sampling is head based:
//
//	ParentBased(TraceIDRatioBased(ratio))
//
// # Metrics
//
// [NewMeterProvider] validates the collection interval and wires the
// metric exporter behind a periodic reader.
//
// # Logs
//
// [NewLoggerProvider] wires the log exporter behind a batch processor. It
// is only used when log records should be shipped over OTLP in addition
// to being written locally.
//
// # Provider Lifecycle
//
// Exporting happens off the calling goroutine. Nothing in this package
// dials a collector; delivery failures only surface from ForceFlush and
// Shutdown, wrapped in a [beacon.ExportFailureError]. Releasing providers
// in the right order is the job of the guard package.
package provider
