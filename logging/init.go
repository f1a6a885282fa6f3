// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/z5labs/beacon/guard"
	"github.com/z5labs/beacon/pkg/maskslog"
	"github.com/z5labs/beacon/pkg/otelslog"
	"github.com/z5labs/beacon/provider"
	"github.com/z5labs/beacon/resource"

	otellog "go.opentelemetry.io/otel/log"
)

// Init builds every enabled telemetry pipeline and installs the result
// as the process wide logger, tracer, meter and propagator.
//
// The returned guard owns everything Init built. Releasing it flushes
// and shuts down the providers, closes the log file and restores the
// previously installed globals, after which Init may be called again.
//
// If any step fails, whatever was already built is released before the
// error is returned.
func (b *Builder) Init(ctx context.Context) (*guard.Guard, error) {
	cfg := b.Config()
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	desc, err := resource.Build(cfg.ServiceName, cfg.Attributes...)
	if err != nil {
		return nil, err
	}

	var rollback []func(context.Context) error
	undo := func(err error) error {
		errs := []error{err}
		for i := len(rollback) - 1; i >= 0; i-- {
			errs = append(errs, release(ctx, rollback[i]))
		}
		return errors.Join(errs...)
	}

	var guardOpts []guard.Option
	var sub subscriber

	events := newSpanEventLogger(cfg.SpanEvents)
	if cfg.Traces {
		opts := []provider.Option{provider.WithExporter(cfg.Exporter)}
		if cfg.SpanEvents != SpanEventsNone {
			opts = append(opts, provider.WithSpanProcessor(events))
		}
		opts = append(opts, cfg.TracerOptions...)

		tp, err := provider.NewTracerProvider(ctx, desc, cfg.SampleRatio, opts...)
		if err != nil {
			return nil, undo(err)
		}
		rollback = append(rollback, tp.Shutdown)
		guardOpts = append(guardOpts, guard.WithTracerProvider(tp))
		sub.tracerProvider = tp
	}

	if cfg.Metrics {
		opts := append([]provider.Option{provider.WithExporter(cfg.Exporter)}, cfg.MeterOptions...)

		mp, err := provider.NewMeterProvider(ctx, desc, cfg.MetricsInterval, opts...)
		if err != nil {
			return nil, undo(err)
		}
		rollback = append(rollback, mp.Shutdown)
		guardOpts = append(guardOpts, guard.WithMeterProvider(mp))
		sub.meterProvider = mp
	}

	var lp otellog.LoggerProvider
	if cfg.LogExport {
		opts := append([]provider.Option{provider.WithExporter(cfg.Exporter)}, cfg.LogExportOptions...)

		p, err := provider.NewLoggerProvider(ctx, desc, opts...)
		if err != nil {
			return nil, undo(err)
		}
		rollback = append(rollback, p.Shutdown)
		guardOpts = append(guardOpts, guard.WithLoggerProvider(p))
		sub.loggerProvider = p
		lp = p
	}

	s, err := newSink(cfg, lp)
	if err != nil {
		return nil, undo(err)
	}
	rollback = append(rollback, s.Close)

	var h slog.Handler = otelslog.NewHandler(newZapHandler(s.core, cfg.Level))
	if len(cfg.MaskedKeys) > 0 {
		h = maskslog.NewHandler(h, maskslog.Keys(cfg.MaskedKeys...))
	}
	sub.logger = slog.New(h)
	sub.local = slog.New(newZapHandler(s.local, cfg.Level))
	events.setLogger(sub.logger)

	uninstall, err := install(sub)
	if err != nil {
		return nil, undo(err)
	}

	guardOpts = append(
		guardOpts,
		guard.WithReleaseHook("subscriber_uninstall", uninstall),
		guard.WithReleaseHook("sink_close", s.Close),
	)
	return guard.New(guardOpts...), nil
}

// release bounds a single rollback step by [guard.DefaultTimeout] so a
// hanging exporter cannot block Init.
func release(ctx context.Context, f func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), guard.DefaultTimeout)
	defer cancel()
	return f(ctx)
}

// Init is shorthand for New(serviceName).Init(ctx).
func Init(ctx context.Context, serviceName string) (*guard.Guard, error) {
	return New(serviceName).Init(ctx)
}
