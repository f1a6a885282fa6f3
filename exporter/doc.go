// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package exporter constructs span, metric and log exporters from a single
// declarative [Config].
//
// Four protocols are supported:
//
//   - ProtocolGRPC: OTLP over gRPC (the default)
//   - ProtocolHTTP: OTLP over HTTP with protobuf payloads
//   - ProtocolStdout: human readable output for development
//   - ProtocolNone: discard everything
//
// Construction never dials the collector. A malformed endpoint or an
// unknown protocol is reported as a [beacon.ExporterInitError]; failures
// to deliver telemetry only surface later when a provider is flushed.
package exporter
