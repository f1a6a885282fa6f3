// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package beacon provides the shared error taxonomy for bootstrapping
// OpenTelemetry tracing, metrics and structured logging in a Go service.
//
// The functionality itself lives in subpackages:
//
//   - resource: immutable service identity attached to all telemetry
//   - provider: tracer, meter and logger provider factories
//   - exporter: OTLP (gRPC or HTTP), stdout and no-op exporters
//   - guard: ordered, exactly once release of providers
//   - logging: the configuration builder which ties everything together
//   - http/httpotel: request span middleware for net/http
//   - http/httpclient: traced outbound client with retries and a circuit breaker
//   - config: environment and YAML config sources
//
// # Basic Usage
//
//	g, err := logging.New("orders").
//	    WithFormat(logging.FormatJSON).
//	    WithSampleRatio(1.0).
//	    WithMetricsIntervalSecs(30).
//	    Init(ctx)
//	if err != nil {
//	    return err
//	}
//	defer g.Shutdown(context.Background())
//
//	mux := http.NewServeMux()
//	mux.Handle("GET /orders/{id}", getOrder)
//	http.ListenAndServe(":8080", httpotel.NewMiddleware().Handler(mux))
//
// # Errors
//
// Every failure returned by the subpackages is one of the error types
// declared here, so callers can use [errors.As] to decide whether a
// failure is worth retrying. [InvalidConfigError] never is.
// [ExportFailureError] and [ShutdownError] are informational and should
// not terminate the process.
package beacon
