// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"errors"
	"math"
	"time"

	"github.com/z5labs/beacon"
	"github.com/z5labs/beacon/exporter"
	"github.com/z5labs/beacon/resource"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidInterval    = errors.New("metrics interval must be greater than zero")
	ErrNilDescriptor      = errors.New("resource descriptor must not be nil")
)

type options struct {
	exporterCfg exporter.Config

	spanExporter   sdktrace.SpanExporter
	metricExporter sdkmetric.Exporter
	logExporter    sdklog.Exporter

	spanProcessors []sdktrace.SpanProcessor
	readers        []sdkmetric.Reader
	logProcessors  []sdklog.Processor

	batchTimeout time.Duration
}

// Option configures any of the provider factories. Options which do not
// apply to a given signal are ignored by its factory.
type Option func(*options)

// WithExporter sets the declarative exporter config shared by all signals.
func WithExporter(cfg exporter.Config) Option {
	return func(o *options) {
		o.exporterCfg = cfg
	}
}

// WithSpanExporter bypasses [exporter.NewSpanExporter] entirely.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.spanExporter = exp
	}
}

// WithMetricExporter bypasses [exporter.NewMetricExporter] entirely.
func WithMetricExporter(exp sdkmetric.Exporter) Option {
	return func(o *options) {
		o.metricExporter = exp
	}
}

// WithLogExporter bypasses [exporter.NewLogExporter] entirely.
func WithLogExporter(exp sdklog.Exporter) Option {
	return func(o *options) {
		o.logExporter = exp
	}
}

// WithSpanProcessor registers an additional span processor after the
// batching export pipeline.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.spanProcessors = append(o.spanProcessors, sp)
	}
}

// WithReader registers an additional metric reader next to the periodic one.
func WithReader(r sdkmetric.Reader) Option {
	return func(o *options) {
		o.readers = append(o.readers, r)
	}
}

// WithLogProcessor registers an additional log record processor.
func WithLogProcessor(p sdklog.Processor) Option {
	return func(o *options) {
		o.logProcessors = append(o.logProcessors, p)
	}
}

// WithBatchTimeout bounds how long spans wait in the batch queue
// before being exported.
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.batchTimeout = d
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ValidateSampleRatio rejects NaN and anything outside of [0, 1].
// Out of range values are never clamped.
func ValidateSampleRatio(ratio float64) error {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return beacon.InvalidConfigError{
			Field: "sample_ratio",
			Cause: ErrInvalidSampleRatio,
		}
	}
	return nil
}

// ValidateInterval rejects non-positive metric collection intervals.
func ValidateInterval(interval time.Duration) error {
	if interval <= 0 {
		return beacon.InvalidConfigError{
			Field: "metrics_interval",
			Cause: ErrInvalidInterval,
		}
	}
	return nil
}

func validateDescriptor(desc *resource.Descriptor) error {
	if desc == nil {
		return beacon.InvalidConfigError{
			Field: "resource",
			Cause: ErrNilDescriptor,
		}
	}
	return nil
}

func exportFailure(signal, op string, err error) error {
	if err == nil {
		return nil
	}
	return beacon.ExportFailureError{
		Signal: signal,
		Op:     op,
		Cause:  err,
	}
}
