// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"

	"github.com/z5labs/beacon/exporter"
	"github.com/z5labs/beacon/resource"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracerProvider is a [sdktrace.TracerProvider] whose flush and shutdown
// failures are reported as [beacon.ExportFailureError]s.
type TracerProvider struct {
	*sdktrace.TracerProvider
}

// NewTracerProvider builds a head sampled, batching trace pipeline.
//
// A new trace is sampled when its trace id falls under ratio. Spans with
// a parent always follow the parent's sampling decision.
func NewTracerProvider(ctx context.Context, desc *resource.Descriptor, ratio float64, opts ...Option) (*TracerProvider, error) {
	err := validateDescriptor(desc)
	if err != nil {
		return nil, err
	}
	err = ValidateSampleRatio(ratio)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	exp := o.spanExporter
	if exp == nil {
		exp, err = exporter.NewSpanExporter(ctx, o.exporterCfg)
		if err != nil {
			return nil, err
		}
	}

	var bspOpts []sdktrace.BatchSpanProcessorOption
	if o.batchTimeout > 0 {
		bspOpts = append(bspOpts, sdktrace.WithBatchTimeout(o.batchTimeout))
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(desc.Resource()),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp, bspOpts...)),
	}
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}

	tp := &TracerProvider{
		TracerProvider: sdktrace.NewTracerProvider(tpOpts...),
	}
	return tp, nil
}

// ForceFlush exports every span which has ended but is still queued.
func (tp *TracerProvider) ForceFlush(ctx context.Context) error {
	return exportFailure("traces", "flush", tp.TracerProvider.ForceFlush(ctx))
}

// Shutdown flushes then releases the exporter. Spans started afterwards
// are dropped.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return exportFailure("traces", "shutdown", tp.TracerProvider.Shutdown(ctx))
}
