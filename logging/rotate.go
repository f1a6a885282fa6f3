// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateError is reported to the OpenTelemetry error handler when a
// scheduled rotation fails. Logging continues into the current file.
type RotateError struct {
	File  string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e RotateError) Error() string {
	return "failed to rotate log file " + e.File + ": " + e.Cause.Error()
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e RotateError) Unwrap() error {
	return e.Cause
}

// startRotation returns nil if r never rotates.
func startRotation(r Rotation, file *lumberjack.Logger) (*cron.Cron, error) {
	spec := r.schedule()
	if spec == "" {
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		err := file.Rotate()
		if err != nil {
			otel.Handle(RotateError{File: file.Filename, Cause: err})
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// stopRotation waits for an in flight rotation to finish.
func stopRotation(ctx context.Context, c *cron.Cron) error {
	stopped := c.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
