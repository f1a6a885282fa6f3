// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/z5labs/beacon"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

// Protocol selects the transport used to hand telemetry to a collector.
type Protocol string

const (
	ProtocolGRPC   Protocol = "grpc"
	ProtocolHTTP   Protocol = "http/protobuf"
	ProtocolStdout Protocol = "stdout"
	ProtocolNone   Protocol = "none"
)

// UnknownProtocolError
type UnknownProtocolError struct {
	Protocol string
}

// Error implements the [builtin.error] interface.
func (e UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown exporter protocol: %q", e.Protocol)
}

// ParseProtocol accepts the values used by OTEL_EXPORTER_OTLP_PROTOCOL
// plus "stdout" and "none". An empty string selects gRPC.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grpc":
		return ProtocolGRPC, nil
	case "http", "http/protobuf":
		return ProtocolHTTP, nil
	case "stdout":
		return ProtocolStdout, nil
	case "none", "noop":
		return ProtocolNone, nil
	default:
		return "", UnknownProtocolError{Protocol: s}
	}
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (p *Protocol) UnmarshalText(b []byte) error {
	v, err := ParseProtocol(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Config describes where and how telemetry is exported. When Endpoint
// is empty the OTLP exporters fall back to the standard
// OTEL_EXPORTER_OTLP_* environment variables.
type Config struct {
	Protocol Protocol          `config:"protocol"`
	Endpoint string            `config:"endpoint"`
	Insecure bool              `config:"insecure"`
	Headers  map[string]string `config:"headers"`
	Timeout  time.Duration     `config:"timeout"`

	// GRPCConn replaces the connection the gRPC exporters would
	// otherwise dial themselves.
	GRPCConn *grpc.ClientConn `config:"-"`

	// Writer is where ProtocolStdout writes. Defaults to os.Stdout.
	Writer io.Writer `config:"-"`
}

// MalformedEndpointError
type MalformedEndpointError struct {
	Endpoint string
	Cause    error
}

// Error implements the [builtin.error] interface.
func (e MalformedEndpointError) Error() string {
	return fmt.Sprintf("malformed endpoint %q: %s", e.Endpoint, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e MalformedEndpointError) Unwrap() error {
	return e.Cause
}

type endpoint struct {
	url      *url.URL
	hostPort string
}

// parseEndpoint only checks the shape of the endpoint. It never
// resolves or dials it.
func parseEndpoint(s string) (endpoint, error) {
	if s == "" {
		return endpoint{}, nil
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return endpoint{}, MalformedEndpointError{Endpoint: s, Cause: err}
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return endpoint{}, MalformedEndpointError{Endpoint: s, Cause: errors.New("scheme must be http or https")}
		}
		if u.Hostname() == "" {
			return endpoint{}, MalformedEndpointError{Endpoint: s, Cause: errors.New("missing host")}
		}
		return endpoint{url: u}, nil
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return endpoint{}, MalformedEndpointError{Endpoint: s, Cause: err}
	}
	if host == "" {
		return endpoint{}, MalformedEndpointError{Endpoint: s, Cause: errors.New("missing host")}
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return endpoint{}, MalformedEndpointError{Endpoint: s, Cause: errors.New("invalid port")}
	}
	return endpoint{hostPort: s}, nil
}

func (cfg Config) writer() io.Writer {
	if cfg.Writer == nil {
		return os.Stdout
	}
	return cfg.Writer
}

// protocol accepts every spelling [ParseProtocol] does. Unknown values
// are returned as is so the constructors can reject them.
func (cfg Config) protocol() Protocol {
	p, err := ParseProtocol(string(cfg.Protocol))
	if err != nil {
		return cfg.Protocol
	}
	return p
}

func initError(signal string, err error) error {
	return beacon.ExporterInitError{Signal: signal, Cause: err}
}

// NewSpanExporter constructs the span exporter described by cfg. No
// network connection is attempted.
func NewSpanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	const signal = "traces"

	ep, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, initError(signal, err)
	}

	var exp sdktrace.SpanExporter
	switch cfg.protocol() {
	case ProtocolGRPC:
		opts := []otlptracegrpc.Option{}
		switch {
		case cfg.GRPCConn != nil:
			opts = append(opts, otlptracegrpc.WithGRPCConn(cfg.GRPCConn))
		case ep.url != nil:
			opts = append(opts, otlptracegrpc.WithEndpointURL(ep.url.String()))
		case ep.hostPort != "":
			opts = append(opts, otlptracegrpc.WithEndpoint(ep.hostPort))
		}
		if cfg.Insecure && cfg.GRPCConn == nil {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
		}
		exp, err = otlptracegrpc.New(ctx, opts...)
	case ProtocolHTTP:
		opts := []otlptracehttp.Option{}
		switch {
		case ep.url != nil:
			opts = append(opts, otlptracehttp.WithEndpointURL(ep.url.String()))
		case ep.hostPort != "":
			opts = append(opts, otlptracehttp.WithEndpoint(ep.hostPort))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	case ProtocolStdout:
		exp, err = stdouttrace.New(stdouttrace.WithWriter(cfg.writer()))
	case ProtocolNone:
		exp = SpanExporter{}
	default:
		err = UnknownProtocolError{Protocol: string(cfg.Protocol)}
	}
	if err != nil {
		return nil, initError(signal, err)
	}
	return exp, nil
}

// NewMetricExporter constructs the metric exporter described by cfg.
func NewMetricExporter(ctx context.Context, cfg Config) (sdkmetric.Exporter, error) {
	const signal = "metrics"

	ep, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, initError(signal, err)
	}

	var exp sdkmetric.Exporter
	switch cfg.protocol() {
	case ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{}
		switch {
		case cfg.GRPCConn != nil:
			opts = append(opts, otlpmetricgrpc.WithGRPCConn(cfg.GRPCConn))
		case ep.url != nil:
			opts = append(opts, otlpmetricgrpc.WithEndpointURL(ep.url.String()))
		case ep.hostPort != "":
			opts = append(opts, otlpmetricgrpc.WithEndpoint(ep.hostPort))
		}
		if cfg.Insecure && cfg.GRPCConn == nil {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlpmetricgrpc.WithTimeout(cfg.Timeout))
		}
		exp, err = otlpmetricgrpc.New(ctx, opts...)
	case ProtocolHTTP:
		opts := []otlpmetrichttp.Option{}
		switch {
		case ep.url != nil:
			opts = append(opts, otlpmetrichttp.WithEndpointURL(ep.url.String()))
		case ep.hostPort != "":
			opts = append(opts, otlpmetrichttp.WithEndpoint(ep.hostPort))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlpmetrichttp.WithTimeout(cfg.Timeout))
		}
		exp, err = otlpmetrichttp.New(ctx, opts...)
	case ProtocolStdout:
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(cfg.writer()))
	case ProtocolNone:
		exp = MetricExporter{}
	default:
		err = UnknownProtocolError{Protocol: string(cfg.Protocol)}
	}
	if err != nil {
		return nil, initError(signal, err)
	}
	return exp, nil
}

// NewLogExporter constructs the log record exporter described by cfg.
func NewLogExporter(ctx context.Context, cfg Config) (sdklog.Exporter, error) {
	const signal = "logs"

	ep, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, initError(signal, err)
	}

	var exp sdklog.Exporter
	switch cfg.protocol() {
	case ProtocolGRPC:
		opts := []otlploggrpc.Option{}
		switch {
		case cfg.GRPCConn != nil:
			opts = append(opts, otlploggrpc.WithGRPCConn(cfg.GRPCConn))
		case ep.url != nil:
			opts = append(opts, otlploggrpc.WithEndpointURL(ep.url.String()))
		case ep.hostPort != "":
			opts = append(opts, otlploggrpc.WithEndpoint(ep.hostPort))
		}
		if cfg.Insecure && cfg.GRPCConn == nil {
			opts = append(opts, otlploggrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlploggrpc.WithTimeout(cfg.Timeout))
		}
		exp, err = otlploggrpc.New(ctx, opts...)
	case ProtocolHTTP:
		opts := []otlploghttp.Option{}
		switch {
		case ep.url != nil:
			opts = append(opts, otlploghttp.WithEndpointURL(ep.url.String()))
		case ep.hostPort != "":
			opts = append(opts, otlploghttp.WithEndpoint(ep.hostPort))
		}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, otlploghttp.WithTimeout(cfg.Timeout))
		}
		exp, err = otlploghttp.New(ctx, opts...)
	case ProtocolStdout:
		exp, err = stdoutlog.New(stdoutlog.WithWriter(cfg.writer()))
	case ProtocolNone:
		exp = LogExporter{}
	default:
		err = UnknownProtocolError{Protocol: string(cfg.Protocol)}
	}
	if err != nil {
		return nil, initError(signal, err)
	}
	return exp, nil
}
