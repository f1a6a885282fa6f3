// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"log/slog"
	"strings"

	"github.com/z5labs/beacon"
	"github.com/z5labs/beacon/config"
	"github.com/z5labs/beacon/exporter"
	"github.com/z5labs/beacon/resource"
)

// DefaultEnvPrefix is used by [FromEnv] when no prefix is given.
const DefaultEnvPrefix = "LOG_"

type levelText slog.Level

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (l *levelText) UnmarshalText(b []byte) error {
	lvl, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = levelText(lvl)
	return nil
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (e *SpanEvents) UnmarshalText(b []byte) error {
	v, err := ParseSpanEvents(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

type envConfig struct {
	ServiceName         string            `config:"SERVICE_NAME"`
	Format              Format            `config:"FORMAT"`
	ANSI                bool              `config:"ANSI"`
	Level               levelText         `config:"LEVEL"`
	SampleRatio         float64           `config:"SAMPLE_RATIO"`
	MetricsIntervalSecs int               `config:"METRICS_INTERVAL_SECS"`
	Attributes          string            `config:"ATTRIBUTES"`
	SpanEvents          SpanEvents        `config:"SPAN_EVENTS"`
	MaskedKeys          string            `config:"MASKED_KEYS"`
	FileEnabled         bool              `config:"FILE_ENABLED"`
	FileDirectory       string            `config:"FILE_DIRECTORY"`
	FileName            string            `config:"FILE_NAME"`
	FileRotation        Rotation          `config:"FILE_ROTATION"`
	FileMaxFiles        int               `config:"FILE_MAX_FILES"`
	FileMaxSizeMB       int               `config:"FILE_MAX_SIZE_MB"`
	FileCompress        bool              `config:"FILE_COMPRESS"`
	Console             bool              `config:"CONSOLE"`
	Traces              bool              `config:"TRACES"`
	Metrics             bool              `config:"METRICS"`
	ExportLogs          bool              `config:"EXPORT_LOGS"`
	OTLPEndpoint        string            `config:"OTLP_ENDPOINT"`
	OTLPProtocol        exporter.Protocol `config:"OTLP_PROTOCOL"`
	OTLPInsecure        bool              `config:"OTLP_INSECURE"`
}

// FromEnv returns a Builder populated from environment variables named
// prefix followed by one of:
//
//	SERVICE_NAME, FORMAT, ANSI, LEVEL, SAMPLE_RATIO, METRICS_INTERVAL_SECS,
//	ATTRIBUTES, SPAN_EVENTS, MASKED_KEYS, FILE_ENABLED, FILE_DIRECTORY, FILE_NAME,
//	FILE_ROTATION, FILE_MAX_FILES, FILE_MAX_SIZE_MB, FILE_COMPRESS,
//	CONSOLE, TRACES, METRICS, EXPORT_LOGS, OTLP_ENDPOINT, OTLP_PROTOCOL,
//	OTLP_INSECURE
//
// An empty prefix means [DefaultEnvPrefix]. Unset variables keep the
// defaults of [New]. The returned Builder can be refined further
// before calling Init.
func FromEnv(prefix string) (*Builder, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return FromConfig(config.FromEnv(prefix))
}

// FromConfig is like [FromEnv] but reads from arbitrary config sources,
// e.g. a YAML file overridden by the environment.
func FromConfig(srcs ...config.Source) (*Builder, error) {
	m, err := config.Read(srcs...)
	if err != nil {
		return nil, beacon.InvalidConfigError{Field: "source", Cause: err}
	}

	defaults := New("").Config()
	ec := envConfig{
		Format:              defaults.Format,
		ANSI:                defaults.ANSI,
		Level:               levelText(defaults.Level),
		SampleRatio:         defaults.SampleRatio,
		MetricsIntervalSecs: int(defaults.MetricsInterval.Seconds()),
		SpanEvents:          defaults.SpanEvents,
		FileDirectory:       defaults.File.Directory,
		FileRotation:        defaults.File.Rotation,
		Console:             defaults.Console,
		Traces:              defaults.Traces,
		Metrics:             defaults.Metrics,
		ExportLogs:          defaults.LogExport,
		OTLPProtocol:        defaults.Exporter.Protocol,
	}
	err = m.Unmarshal(&ec)
	if err != nil {
		return nil, beacon.InvalidConfigError{Field: "source", Cause: err}
	}

	attrs, err := resource.ParseAttributes(ec.Attributes)
	if err != nil {
		return nil, err
	}

	fileName := ec.FileName
	if fileName == "" {
		fileName = ec.ServiceName + ".log"
	}

	b := New(ec.ServiceName).
		WithFormat(ec.Format).
		WithANSI(ec.ANSI).
		WithLevel(slog.Level(ec.Level)).
		WithSampleRatio(ec.SampleRatio).
		WithMetricsIntervalSecs(ec.MetricsIntervalSecs).
		WithAttributes(attrs...).
		WithSpanEvents(ec.SpanEvents).
		WithMaskedKeys(splitList(ec.MaskedKeys)...).
		WithFileOutput(FileOutput{
			Enabled:   ec.FileEnabled,
			Directory: ec.FileDirectory,
			FileName:  fileName,
			Rotation:  ec.FileRotation,
			MaxFiles:  ec.FileMaxFiles,
			MaxSizeMB: ec.FileMaxSizeMB,
			Compress:  ec.FileCompress,
		}).
		WithConsoleOutput(ec.Console).
		WithTraces(ec.Traces).
		WithMetrics(ec.Metrics).
		WithLogExport(ec.ExportLogs).
		WithExporter(exporter.Config{
			Protocol: ec.OTLPProtocol,
			Endpoint: ec.OTLPEndpoint,
			Insecure: ec.OTLPInsecure,
		})
	return b, nil
}

func splitList(s string) []string {
	var keys []string
	for _, key := range strings.Split(s, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
