// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/z5labs/beacon"
	"github.com/z5labs/beacon/internal/try"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const scopeName = "github.com/z5labs/beacon/logging"

// sink owns every destination log records are written to.
type sink struct {
	// core fans out to every destination.
	core zapcore.Core

	// local only writes to the console and file so that failures of the
	// export pipeline can be reported without feeding back into it.
	local zapcore.Core

	file     *lumberjack.Logger
	rotation *cron.Cron
}

func newSink(cfg Config, lp otellog.LoggerProvider) (*sink, error) {
	s := &sink{}
	err := s.init(cfg, lp)
	if err != nil {
		closeErr := s.Close(context.Background())
		return nil, beacon.SubscriberInitError{Cause: errors.Join(err, closeErr)}
	}
	return s, nil
}

func (s *sink) init(cfg Config, lp otellog.LoggerProvider) error {
	lvl := zapLevel(cfg.Level)
	var local []zapcore.Core
	if cfg.Console {
		w := cfg.ConsoleWriter
		if w == nil {
			w = os.Stdout
		}
		ws := zapcore.Lock(zapcore.AddSync(w))
		local = append(local, zapcore.NewCore(newEncoder(cfg.Format, cfg.ANSI), ws, lvl))
	}
	if cfg.File.Enabled {
		var err error
		s.file, err = openFile(cfg.File)
		if err != nil {
			return err
		}
		local = append(local, zapcore.NewCore(newEncoder(cfg.Format, false), zapcore.AddSync(s.file), lvl))

		s.rotation, err = startRotation(cfg.File.Rotation, s.file)
		if err != nil {
			return err
		}
	}

	service := []zapcore.Field{zap.String("service", cfg.ServiceName)}
	s.local = zapcore.NewTee(local...).With(service)
	s.core = s.local
	if lp == nil {
		return nil
	}

	bridge, err := zapcore.NewIncreaseLevelCore(
		otelzap.NewCore(scopeName, otelzap.WithLoggerProvider(lp)),
		lvl,
	)
	if err != nil {
		return err
	}
	s.core = zapcore.NewTee(s.local, bridge.With(service))
	return nil
}

func openFile(f FileOutput) (*lumberjack.Logger, error) {
	dir := f.Directory
	if dir == "" {
		dir = "."
	}
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, f.FileName),
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxFiles,
		Compress:   f.Compress,
	}, nil
}

// Close stops time based rotation and closes the log file, if any.
func (s *sink) Close(ctx context.Context) (err error) {
	if s.rotation != nil {
		err = stopRotation(ctx, s.rotation)
	}
	if s.file != nil {
		try.Close(&err, "log file", s.file)
	}
	return err
}

func newEncoder(f Format, ansi bool) zapcore.Encoder {
	switch f {
	case FormatJSON:
		ec := zap.NewProductionEncoderConfig()
		ec.TimeKey = "ts"
		ec.LevelKey = "level"
		ec.MessageKey = "msg"
		ec.CallerKey = zapcore.OmitKey
		ec.StacktraceKey = zapcore.OmitKey
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = levelEncoder(false, false)
		return zapcore.NewJSONEncoder(ec)
	case FormatPretty:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.CallerKey = zapcore.OmitKey
		ec.EncodeLevel = levelEncoder(true, ansi)
		return zapcore.NewConsoleEncoder(ec)
	default:
		ec := zap.NewProductionEncoderConfig()
		ec.CallerKey = zapcore.OmitKey
		ec.StacktraceKey = zapcore.OmitKey
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = levelEncoder(true, ansi)
		ec.ConsoleSeparator = " "
		return zapcore.NewConsoleEncoder(ec)
	}
}

// levelEncoder behaves like zap's own level encoders but also knows
// how to name the trace level.
func levelEncoder(upper, color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if l == zapTraceLevel {
			name := "trace"
			if upper {
				name = "TRACE"
			}
			if color {
				name = "\x1b[35m" + name + "\x1b[0m"
			}
			enc.AppendString(name)
			return
		}

		switch {
		case upper && color:
			zapcore.CapitalColorLevelEncoder(l, enc)
		case upper:
			zapcore.CapitalLevelEncoder(l, enc)
		case color:
			zapcore.LowercaseColorLevelEncoder(l, enc)
		default:
			zapcore.LowercaseLevelEncoder(l, enc)
		}
	}
}
