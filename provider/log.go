// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"

	"github.com/z5labs/beacon/exporter"
	"github.com/z5labs/beacon/resource"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// LoggerProvider is a [sdklog.LoggerProvider] whose flush and shutdown
// failures are reported as [beacon.ExportFailureError]s.
type LoggerProvider struct {
	*sdklog.LoggerProvider
}

// NewLoggerProvider builds a batching log record pipeline.
func NewLoggerProvider(ctx context.Context, desc *resource.Descriptor, opts ...Option) (*LoggerProvider, error) {
	err := validateDescriptor(desc)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	exp := o.logExporter
	if exp == nil {
		exp, err = exporter.NewLogExporter(ctx, o.exporterCfg)
		if err != nil {
			return nil, err
		}
	}

	lpOpts := []sdklog.LoggerProviderOption{
		sdklog.WithResource(desc.Resource()),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	}
	for _, p := range o.logProcessors {
		lpOpts = append(lpOpts, sdklog.WithProcessor(p))
	}

	lp := &LoggerProvider{
		LoggerProvider: sdklog.NewLoggerProvider(lpOpts...),
	}
	return lp, nil
}

func (lp *LoggerProvider) ForceFlush(ctx context.Context) error {
	return exportFailure("logs", "flush", lp.LoggerProvider.ForceFlush(ctx))
}

func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	return exportFailure("logs", "shutdown", lp.LoggerProvider.Shutdown(ctx))
}
