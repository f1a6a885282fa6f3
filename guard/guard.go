// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package guard owns telemetry providers and releases them exactly once.
package guard

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/z5labs/beacon"
	"github.com/z5labs/beacon/internal/try"
)

// DefaultTimeout bounds each individual flush or shutdown step when the
// caller's context carries no deadline of its own, or once the caller's
// deadline has passed.
const DefaultTimeout = 5 * time.Second

// State of a [Guard].
type State int32

const (
	Active State = iota
	ShuttingDown
	Released
)

// String implements the [fmt.Stringer] interface.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case ShuttingDown:
		return "shutting_down"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Provider is anything which buffers telemetry and must be flushed and
// shut down, e.g. the providers built by the provider package.
type Provider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// Hook is run after every provider has been shut down.
type Hook func(context.Context) error

type namedHook struct {
	name string
	hook Hook
}

// Guard owns zero or one tracer, meter and logger provider. Releasing it
// flushes and shuts them down in a fixed order:
//
//  1. flush meter
//  2. flush tracer
//  3. flush logger
//  4. shutdown meter
//  5. shutdown tracer
//  6. shutdown logger
//  7. release hooks, in registration order
//
// Only the first call to [Guard.Shutdown] performs any work.
type Guard struct {
	tracer  Provider
	meter   Provider
	logger  Provider
	hooks   []namedHook
	timeout time.Duration

	state atomic.Int32
	done  chan struct{}
}

// Option
type Option func(*Guard)

// WithTracerProvider
func WithTracerProvider(p Provider) Option {
	return func(g *Guard) {
		g.tracer = p
	}
}

// WithMeterProvider
func WithMeterProvider(p Provider) Option {
	return func(g *Guard) {
		g.meter = p
	}
}

// WithLoggerProvider
func WithLoggerProvider(p Provider) Option {
	return func(g *Guard) {
		g.logger = p
	}
}

// WithReleaseHook registers a named hook to run once every provider has
// been shut down. The name identifies the hook in a [beacon.ShutdownError].
func WithReleaseHook(name string, hook Hook) Option {
	return func(g *Guard) {
		g.hooks = append(g.hooks, namedHook{name: name, hook: hook})
	}
}

// WithTimeout overrides [DefaultTimeout]. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		g.timeout = d
	}
}

// New returns an Active guard.
func New(opts ...Option) *Guard {
	g := &Guard{
		timeout: DefaultTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State reports where the guard is in its lifecycle.
func (g *Guard) State() State {
	return State(g.state.Load())
}

// Done is closed once the guard has been released.
func (g *Guard) Done() <-chan struct{} {
	return g.done
}

type step struct {
	name string
	run  func(context.Context) error
}

func (g *Guard) steps() []step {
	var steps []step
	add := func(name string, p Provider, f func(Provider) func(context.Context) error) {
		if p == nil {
			return
		}
		steps = append(steps, step{name: name, run: f(p)})
	}
	flush := func(p Provider) func(context.Context) error { return p.ForceFlush }
	shutdown := func(p Provider) func(context.Context) error { return p.Shutdown }

	add("meter_flush", g.meter, flush)
	add("tracer_flush", g.tracer, flush)
	add("logger_flush", g.logger, flush)
	add("meter_shutdown", g.meter, shutdown)
	add("tracer_shutdown", g.tracer, shutdown)
	add("logger_shutdown", g.logger, shutdown)
	for _, h := range g.hooks {
		steps = append(steps, step{name: h.name, run: h.hook})
	}
	return steps
}

// Shutdown releases everything the guard owns. Each step is bounded by
// the guard timeout unless ctx already has a deadline. Steps which start
// after that deadline has passed still run, each with a fresh guard
// timeout. A failing step never prevents the later ones from running;
// all failures are returned together as a *[beacon.ShutdownError].
//
// Concurrent callers which lose the race wait for the winner to finish
// and then return nil, as do all calls after the guard is Released.
func (g *Guard) Shutdown(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(Active), int32(ShuttingDown)) {
		select {
		case <-g.done:
		case <-ctx.Done():
		}
		return nil
	}
	defer close(g.done)
	defer g.state.Store(int32(Released))

	var failures []beacon.StepError
	for _, s := range g.steps() {
		err := g.runStep(ctx, s)
		if err == nil {
			continue
		}
		failures = append(failures, beacon.StepError{Step: s.name, Cause: err})
	}
	if len(failures) == 0 {
		return nil
	}
	return &beacon.ShutdownError{Steps: failures}
}

func (g *Guard) runStep(ctx context.Context, s step) (err error) {
	defer try.Recover(&err)

	ctx, cancel := g.stepContext(ctx)
	defer cancel()
	return s.run(ctx)
}

// stepContext never hands a step an already expired context. Once the
// caller's context is done, every remaining step gets a fresh context
// bounded by the guard timeout instead.
func (g *Guard) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := g.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ctx.Err() != nil {
		return context.WithTimeout(context.WithoutCancel(ctx), timeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Run executes f and always releases g afterwards, whether f returns
// normally, returns an error or panics. A panic is converted into a
// [beacon.PanicError]. The shutdown error, if any, is joined with the
// error from f.
func Run(ctx context.Context, g *Guard, f func(context.Context) error) (err error) {
	defer func() {
		shutdownErr := g.Shutdown(context.WithoutCancel(ctx))
		err = errors.Join(err, shutdownErr)
	}()
	defer try.Recover(&err)

	return f(ctx)
}
