// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package maskslog redacts sensitive values before a record reaches
// the wrapped [slog.Handler].
package maskslog

import (
	"context"
	"log/slog"
)

// Masked is the value every masked attribute is replaced with by
// [AnonymousStringAttr].
const Masked = "****"

type options struct {
	attrs   map[string]func(slog.Attr) slog.Attr
	message func(string) string
}

// Option helps configure the Handler.
type Option func(*options)

// Message registers a function for masking record messages.
func Message(f func(string) string) Option {
	return func(o *options) {
		o.message = f
	}
}

// Attr registers a function for masking an attribute given its key.
// Keys are matched exactly, at any group depth.
func Attr(key string, f func(slog.Attr) slog.Attr) Option {
	return func(o *options) {
		o.attrs[key] = f
	}
}

// Keys masks every attribute with one of the given keys using
// [AnonymousStringAttr].
func Keys(keys ...string) Option {
	return func(o *options) {
		for _, key := range keys {
			o.attrs[key] = AnonymousStringAttr
		}
	}
}

// AnonymousStringAttr replaces the attribute value with [Masked]
// regardless of its kind.
func AnonymousStringAttr(a slog.Attr) slog.Attr {
	return slog.String(a.Key, Masked)
}

// Handler is an slog.Handler.
type Handler struct {
	next slog.Handler
	opts *options
}

// NewHandler returns a new Handler.
func NewHandler(h slog.Handler, opts ...Option) *Handler {
	o := &options{
		attrs: make(map[string]func(slog.Attr) slog.Attr),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Handler{
		next: h,
		opts: o,
	}
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	msg := r.Message
	if h.opts.message != nil {
		msg = h.opts.message(msg)
	}
	if len(h.opts.attrs) == 0 {
		r.Message = msg
		return h.next.Handle(ctx, r)
	}

	nr := slog.NewRecord(r.Time, r.Level, msg, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(h.mask(a))
		return true
	})
	return h.next.Handle(ctx, nr)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.mask(a)
	}
	return &Handler{
		next: h.next.WithAttrs(masked),
		opts: h.opts,
	}
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		next: h.next.WithGroup(name),
		opts: h.opts,
	}
}

func (h *Handler) mask(a slog.Attr) slog.Attr {
	if f, ok := h.opts.attrs[a.Key]; ok {
		return f(a)
	}

	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup {
		return a
	}

	group := a.Value.Group()
	masked := make([]slog.Attr, len(group))
	for i, ga := range group {
		masked[i] = h.mask(ga)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
}
