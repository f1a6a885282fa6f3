// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpotel instruments inbound HTTP requests with exactly one
// server span per request.
//
// Every request goes through three hooks. A [SpanCreator] starts the
// span, then either [OnResponse] or [OnFailure] runs exactly once
// after the handler returns, no matter whether it wrote a response,
// reported an error through [RecordError], was canceled by the client
// or panicked.
//
//	mux := http.NewServeMux()
//	mux.Handle("GET /orders/{id}", getOrder)
//
//	m := httpotel.NewMiddleware()
//	http.ListenAndServe(":8080", m.Handler(mux))
//
// The defaults follow the OpenTelemetry HTTP semantic conventions and
// record request metrics and a log line per request through [slog].
package httpotel
