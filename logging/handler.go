// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapHandler is a [slog.Handler] which writes records to a [zapcore.Core].
type zapHandler struct {
	core  zapcore.Core
	level slog.Leveler

	// group is opened lazily so that a group without any attributes
	// never shows up in the output.
	group string
}

func newZapHandler(core zapcore.Core, level slog.Leveler) *zapHandler {
	return &zapHandler{
		core:  core,
		level: level,
	}
}

// Enabled implements the [slog.Handler] interface.
func (h *zapHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level() && h.core.Enabled(zapLevel(lvl))
}

// Handle implements the [slog.Handler] interface.
func (h *zapHandler) Handle(ctx context.Context, r slog.Record) error {
	ent := zapcore.Entry{
		Level:   zapLevel(r.Level),
		Time:    r.Time,
		Message: r.Message,
	}
	ce := h.core.Check(ent, nil)
	if ce == nil {
		return nil
	}

	fields := make([]zapcore.Field, 0, r.NumAttrs()+2)
	fields = append(fields, contextField(ctx))
	if h.group != "" && r.NumAttrs() > 0 {
		fields = append(fields, zap.Namespace(h.group))
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, convertAttr(a))
		return true
	})
	ce.Write(fields...)
	return nil
}

// WithAttrs implements the [slog.Handler] interface.
func (h *zapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	fields := make([]zapcore.Field, 0, len(attrs)+1)
	if h.group != "" {
		fields = append(fields, zap.Namespace(h.group))
	}
	for _, a := range attrs {
		fields = append(fields, convertAttr(a))
	}
	return &zapHandler{
		core:  h.core.With(fields),
		level: h.level,
	}
}

// WithGroup implements the [slog.Handler] interface.
func (h *zapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	core := h.core
	if h.group != "" {
		core = core.With([]zapcore.Field{zap.Namespace(h.group)})
	}
	return &zapHandler{
		core:  core,
		level: h.level,
		group: name,
	}
}

// contextField carries ctx to cores which understand it, such as the
// OpenTelemetry bridge, while encoders skip it.
func contextField(ctx context.Context) zapcore.Field {
	return zapcore.Field{
		Key:       "context",
		Type:      zapcore.SkipType,
		Interface: ctx,
	}
}

// zapTraceLevel sits one step below zap's debug level.
const zapTraceLevel = zapcore.Level(-2)

func zapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl < slog.LevelDebug:
		return zapTraceLevel
	case lvl < slog.LevelInfo:
		return zapcore.DebugLevel
	case lvl < slog.LevelWarn:
		return zapcore.InfoLevel
	case lvl < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func convertAttr(a slog.Attr) zapcore.Field {
	if a.Equal(slog.Attr{}) {
		return zap.Skip()
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return zap.Bool(a.Key, v.Bool())
	case slog.KindDuration:
		return zap.Duration(a.Key, v.Duration())
	case slog.KindFloat64:
		return zap.Float64(a.Key, v.Float64())
	case slog.KindInt64:
		return zap.Int64(a.Key, v.Int64())
	case slog.KindString:
		return zap.String(a.Key, v.String())
	case slog.KindTime:
		return zap.Time(a.Key, v.Time())
	case slog.KindUint64:
		return zap.Uint64(a.Key, v.Uint64())
	case slog.KindGroup:
		attrs := v.Group()
		if len(attrs) == 0 {
			return zap.Skip()
		}
		if a.Key == "" {
			return zap.Inline(groupObject(attrs))
		}
		return zap.Object(a.Key, groupObject(attrs))
	default:
		if err, ok := v.Any().(error); ok {
			return zap.NamedError(a.Key, err)
		}
		return zap.Any(a.Key, v.Any())
	}
}

type groupObject []slog.Attr

// MarshalLogObject implements the [zapcore.ObjectMarshaler] interface.
func (g groupObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, a := range g {
		convertAttr(a).AddTo(enc)
	}
	return nil
}
