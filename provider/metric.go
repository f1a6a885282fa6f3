// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"time"

	"github.com/z5labs/beacon/exporter"
	"github.com/z5labs/beacon/resource"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProvider is a [sdkmetric.MeterProvider] whose flush and shutdown
// failures are reported as [beacon.ExportFailureError]s.
type MeterProvider struct {
	*sdkmetric.MeterProvider
}

// NewMeterProvider builds a metrics pipeline which collects and exports
// on a fixed interval.
func NewMeterProvider(ctx context.Context, desc *resource.Descriptor, interval time.Duration, opts ...Option) (*MeterProvider, error) {
	err := validateDescriptor(desc)
	if err != nil {
		return nil, err
	}
	err = ValidateInterval(interval)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	exp := o.metricExporter
	if exp == nil {
		exp, err = exporter.NewMetricExporter(ctx, o.exporterCfg)
		if err != nil {
			return nil, err
		}
	}

	mpOpts := []sdkmetric.Option{
		sdkmetric.WithResource(desc.Resource()),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	}
	for _, r := range o.readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}

	mp := &MeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(mpOpts...),
	}
	return mp, nil
}

// ForceFlush collects and exports immediately instead of waiting for
// the next interval.
func (mp *MeterProvider) ForceFlush(ctx context.Context) error {
	return exportFailure("metrics", "flush", mp.MeterProvider.ForceFlush(ctx))
}

// Shutdown performs a final collection then releases the exporter.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	return exportFailure("metrics", "shutdown", mp.MeterProvider.Shutdown(ctx))
}
