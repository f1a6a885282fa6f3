// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package beacon

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyInstalled is the cause of a [SubscriberInitError] when a
// process wide logger has already been installed and not yet released.
var ErrAlreadyInstalled = errors.New("a log subscriber is already installed for this process")

// InvalidConfigError is returned when a configuration value is rejected.
// It is never worth retrying.
type InvalidConfigError struct {
	Field string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config value for %s: %s", e.Field, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidConfigError) Unwrap() error {
	return e.Cause
}

// ExporterInitError
type ExporterInitError struct {
	Signal string
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e ExporterInitError) Error() string {
	return fmt.Sprintf("failed to initialize %s exporter: %s", e.Signal, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ExporterInitError) Unwrap() error {
	return e.Cause
}

// SubscriberInitError
type SubscriberInitError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e SubscriberInitError) Error() string {
	return fmt.Sprintf("failed to initialize log subscriber: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e SubscriberInitError) Unwrap() error {
	return e.Cause
}

// ExportFailureError reports that pending telemetry could not be handed
// to an exporter during a flush or shutdown. It is informational only.
type ExportFailureError struct {
	Signal string
	Op     string
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e ExportFailureError) Error() string {
	return fmt.Sprintf("failed to %s %s: %s", e.Op, e.Signal, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ExportFailureError) Unwrap() error {
	return e.Cause
}

// StepError records a single failed step of a shutdown sequence.
type StepError struct {
	Step  string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e StepError) Unwrap() error {
	return e.Cause
}

// ShutdownError aggregates every step which failed while releasing
// telemetry providers. All remaining steps still ran.
type ShutdownError struct {
	Steps []StepError
}

// Error implements the [builtin.error] interface.
func (e *ShutdownError) Error() string {
	msgs := make([]string, 0, len(e.Steps))
	for _, step := range e.Steps {
		msgs = append(msgs, step.Error())
	}
	return fmt.Sprintf("failed to shutdown cleanly: %s", strings.Join(msgs, "; "))
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e *ShutdownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Steps))
	for _, step := range e.Steps {
		errs = append(errs, step)
	}
	return errs
}

// Failed reports whether the named step is part of the aggregate.
func (e *ShutdownError) Failed(step string) bool {
	for _, s := range e.Steps {
		if s.Step == step {
			return true
		}
	}
	return false
}

// SpanFinalizedError is returned when a request span receives a second
// terminal transition. It always indicates a programming error.
type SpanFinalizedError struct {
	State string
}

// Error implements the [builtin.error] interface.
func (e SpanFinalizedError) Error() string {
	return fmt.Sprintf("request span already finalized as %s", e.State)
}

// PanicError wraps a value recovered from a panic.
type PanicError struct {
	Value any
}

// Error implements the [builtin.error] interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e PanicError) Unwrap() error {
	err, ok := e.Value.(error)
	if !ok {
		return nil
	}
	return err
}
