// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"sync"

	"github.com/z5labs/beacon"
	"github.com/z5labs/beacon/pkg/slogfield"

	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	logglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// subscriber is everything installed process wide. Nil providers are
// left untouched.
type subscriber struct {
	logger *slog.Logger

	// local reports telemetry pipeline failures.
	local *slog.Logger

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	loggerProvider otellog.LoggerProvider
}

type globals struct {
	logger         *slog.Logger
	logWriter      io.Writer
	logFlags       int
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	loggerProvider otellog.LoggerProvider
	propagator     propagation.TextMapPropagator
	errorHandler   otel.ErrorHandler
}

func captureGlobals() globals {
	return globals{
		logger:         slog.Default(),
		logWriter:      log.Writer(),
		logFlags:       log.Flags(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		loggerProvider: logglobal.GetLoggerProvider(),
		propagator:     otel.GetTextMapPropagator(),
		errorHandler:   otel.GetErrorHandler(),
	}
}

func (g globals) restore() {
	slog.SetDefault(g.logger)
	log.SetOutput(g.logWriter)
	log.SetFlags(g.logFlags)
	otel.SetTracerProvider(g.tracerProvider)
	otel.SetMeterProvider(g.meterProvider)
	logglobal.SetLoggerProvider(g.loggerProvider)
	otel.SetTextMapPropagator(g.propagator)
	otel.SetErrorHandler(g.errorHandler)
}

var (
	installMu sync.Mutex
	installed bool
)

// install makes sub the process wide subscriber. Only one subscriber
// may be installed at a time; the returned func restores whatever was
// installed before and may be called more than once.
func install(sub subscriber) (func(context.Context) error, error) {
	installMu.Lock()
	defer installMu.Unlock()

	if installed {
		return nil, beacon.SubscriberInitError{Cause: beacon.ErrAlreadyInstalled}
	}
	prev := captureGlobals()

	slog.SetDefault(sub.logger)
	if sub.tracerProvider != nil {
		otel.SetTracerProvider(sub.tracerProvider)
	}
	if sub.meterProvider != nil {
		otel.SetMeterProvider(sub.meterProvider)
	}
	if sub.loggerProvider != nil {
		logglobal.SetLoggerProvider(sub.loggerProvider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		sub.local.Warn("telemetry pipeline failure", slogfield.Error(err))
	}))
	installed = true

	var once sync.Once
	uninstall := func(context.Context) error {
		once.Do(func() {
			installMu.Lock()
			defer installMu.Unlock()

			prev.restore()
			installed = false
		})
		return nil
	}
	return uninstall, nil
}
