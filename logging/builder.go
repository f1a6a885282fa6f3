// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/z5labs/beacon"
	"github.com/z5labs/beacon/exporter"
	"github.com/z5labs/beacon/provider"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultSampleRatio     = 1.0
	DefaultMetricsInterval = 30 * time.Second
)

var (
	ErrEmptyFileName   = errors.New("file name must be set when file output is enabled")
	ErrNegativeLimit   = errors.New("must not be negative")
	ErrNoOutputEnabled = errors.New("at least one of console, file or log export must be enabled")
)

// FileOutput configures the on-disk log writer.
type FileOutput struct {
	Enabled   bool
	Directory string
	FileName  string
	Rotation  Rotation

	// MaxFiles is the number of rotated files kept around. Zero keeps all.
	MaxFiles int

	// MaxSizeMB rotates the file once it grows past this size.
	// Zero uses the default of 100 megabytes.
	MaxSizeMB int

	Compress bool
}

// Config is an immutable snapshot of a [Builder].
type Config struct {
	ServiceName     string
	Format          Format
	Level           slog.Level
	ANSI            bool
	SampleRatio     float64
	MetricsInterval time.Duration
	Attributes      []attribute.KeyValue
	SpanEvents      SpanEvents
	MaskedKeys      []string
	File            FileOutput
	Console         bool
	ConsoleWriter   io.Writer
	Traces          bool
	Metrics         bool
	LogExport       bool
	Exporter        exporter.Config

	TracerOptions    []provider.Option
	MeterOptions     []provider.Option
	LogExportOptions []provider.Option
}

// Validate checks every field and reports all problems at once.
func (cfg Config) Validate() error {
	var errs []error
	invalid := func(field string, cause error) {
		errs = append(errs, beacon.InvalidConfigError{Field: field, Cause: cause})
	}

	if strings.TrimSpace(cfg.ServiceName) == "" {
		invalid("service_name", errors.New("must not be empty"))
	}
	if !cfg.Format.valid() {
		invalid("format", UnknownValueError{Kind: "log format", Value: string(cfg.Format)})
	}
	if cfg.Traces {
		errs = append(errs, provider.ValidateSampleRatio(cfg.SampleRatio))
	}
	if cfg.Metrics {
		errs = append(errs, provider.ValidateInterval(cfg.MetricsInterval))
	}
	if _, err := exporter.ParseProtocol(string(cfg.Exporter.Protocol)); err != nil {
		invalid("exporter.protocol", err)
	}

	f := cfg.File
	if f.Enabled {
		if strings.TrimSpace(f.FileName) == "" {
			invalid("file.file_name", ErrEmptyFileName)
		}
		if _, err := ParseRotation(string(f.Rotation)); err != nil {
			invalid("file.rotation", err)
		}
		if f.MaxFiles < 0 {
			invalid("file.max_files", ErrNegativeLimit)
		}
		if f.MaxSizeMB < 0 {
			invalid("file.max_size_mb", ErrNegativeLimit)
		}
	}
	if !cfg.Console && !f.Enabled && !cfg.LogExport {
		invalid("outputs", ErrNoOutputEnabled)
	}
	return errors.Join(errs...)
}

// Builder collects logging and telemetry settings. Every setter may be
// called any number of times before [Builder.Init]; the last call wins.
type Builder struct {
	cfg Config
}

// New returns a Builder with defaults: compact info level console
// output, every span sampled, metrics every 30 seconds and OTLP over
// gRPC for traces and metrics.
func New(serviceName string) *Builder {
	return &Builder{
		cfg: Config{
			ServiceName:     serviceName,
			Format:          FormatCompact,
			Level:           slog.LevelInfo,
			ANSI:            true,
			SampleRatio:     DefaultSampleRatio,
			MetricsInterval: DefaultMetricsInterval,
			SpanEvents:      SpanEventsFull,
			File: FileOutput{
				Directory: ".",
				FileName:  serviceName + ".log",
				Rotation:  RotationNever,
			},
			Console:       true,
			ConsoleWriter: os.Stdout,
			Traces:        true,
			Metrics:       true,
			Exporter: exporter.Config{
				Protocol: exporter.ProtocolGRPC,
			},
		},
	}
}

func (b *Builder) WithServiceName(name string) *Builder {
	b.cfg.ServiceName = name
	return b
}

func (b *Builder) WithFormat(f Format) *Builder {
	b.cfg.Format = f
	return b
}

func (b *Builder) WithLevel(lvl slog.Level) *Builder {
	b.cfg.Level = lvl
	return b
}

// WithANSI toggles colored level names for the compact and pretty
// formats. File output is never colored.
func (b *Builder) WithANSI(enabled bool) *Builder {
	b.cfg.ANSI = enabled
	return b
}

func (b *Builder) WithSampleRatio(ratio float64) *Builder {
	b.cfg.SampleRatio = ratio
	return b
}

func (b *Builder) WithMetricsIntervalSecs(secs int) *Builder {
	b.cfg.MetricsInterval = time.Duration(secs) * time.Second
	return b
}

// WithAttributes appends resource attributes. Later keys override
// earlier ones.
func (b *Builder) WithAttributes(attrs ...attribute.KeyValue) *Builder {
	b.cfg.Attributes = append(b.cfg.Attributes, attrs...)
	return b
}

// WithMaskedKeys appends attribute keys whose values are replaced with
// "****" in every log line, at any group depth.
func (b *Builder) WithMaskedKeys(keys ...string) *Builder {
	b.cfg.MaskedKeys = append(b.cfg.MaskedKeys, keys...)
	return b
}

func (b *Builder) WithSpanEvents(events SpanEvents) *Builder {
	b.cfg.SpanEvents = events
	return b
}

func (b *Builder) WithFileOutput(f FileOutput) *Builder {
	b.cfg.File = f
	return b
}

func (b *Builder) WithConsoleOutput(enabled bool) *Builder {
	b.cfg.Console = enabled
	return b
}

// WithConsoleWriter replaces stdout as the console destination.
func (b *Builder) WithConsoleWriter(w io.Writer) *Builder {
	b.cfg.ConsoleWriter = w
	return b
}

func (b *Builder) WithTraces(enabled bool) *Builder {
	b.cfg.Traces = enabled
	return b
}

func (b *Builder) WithMetrics(enabled bool) *Builder {
	b.cfg.Metrics = enabled
	return b
}

// WithLogExport additionally ships every log record through an
// OpenTelemetry logger provider using the configured exporter.
func (b *Builder) WithLogExport(enabled bool) *Builder {
	b.cfg.LogExport = enabled
	return b
}

func (b *Builder) WithExporter(cfg exporter.Config) *Builder {
	b.cfg.Exporter = cfg
	return b
}

// WithTracerOptions are passed through to [provider.NewTracerProvider].
func (b *Builder) WithTracerOptions(opts ...provider.Option) *Builder {
	b.cfg.TracerOptions = append(b.cfg.TracerOptions, opts...)
	return b
}

// WithMeterOptions are passed through to [provider.NewMeterProvider].
func (b *Builder) WithMeterOptions(opts ...provider.Option) *Builder {
	b.cfg.MeterOptions = append(b.cfg.MeterOptions, opts...)
	return b
}

// WithLogExportOptions are passed through to [provider.NewLoggerProvider].
func (b *Builder) WithLogExportOptions(opts ...provider.Option) *Builder {
	b.cfg.LogExportOptions = append(b.cfg.LogExportOptions, opts...)
	return b
}

// Config snapshots the current settings. Later changes to b are not
// reflected in the returned value.
func (b *Builder) Config() Config {
	cfg := b.cfg
	cfg.Attributes = slices.Clone(b.cfg.Attributes)
	cfg.MaskedKeys = slices.Clone(b.cfg.MaskedKeys)
	cfg.TracerOptions = slices.Clone(b.cfg.TracerOptions)
	cfg.MeterOptions = slices.Clone(b.cfg.MeterOptions)
	cfg.LogExportOptions = slices.Clone(b.cfg.LogExportOptions)
	cfg.Exporter.Headers = maps.Clone(b.cfg.Exporter.Headers)
	return cfg
}
