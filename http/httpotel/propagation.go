// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpotel

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Extract returns a copy of ctx carrying the remote span context and
// baggage found in h, using the global propagator.
func Extract(ctx context.Context, h http.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(h))
}

// InjectRequest writes the span context and baggage of ctx into the
// headers of an outgoing request.
func InjectRequest(ctx context.Context, r *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(r.Header))
}

// InjectResponse writes the span context and baggage of ctx into the
// response headers. It must be called before the header is written.
func InjectResponse(ctx context.Context, w http.ResponseWriter) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(w.Header()))
}
