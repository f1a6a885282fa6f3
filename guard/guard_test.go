// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/z5labs/beacon"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder keeps the global order in which steps were invoked
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type countingSpanExporter struct {
	shutdowns atomic.Int32
}

func (e *countingSpanExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	return nil
}

func (e *countingSpanExporter) Shutdown(context.Context) error {
	e.shutdowns.Add(1)
	return nil
}

// mockProvider tracks flush and shutdown calls for testing
type mockProvider struct {
	name string
	rec  *recorder

	flushCalled    atomic.Int32
	shutdownCalled atomic.Int32
	flushErr       error
	shutdownErr    error
	blockFlush     bool
}

func (m *mockProvider) ForceFlush(ctx context.Context) error {
	m.flushCalled.Add(1)
	if m.rec != nil {
		m.rec.record(m.name + "_flush")
	}
	if m.blockFlush {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.flushErr
}

func (m *mockProvider) Shutdown(ctx context.Context) error {
	m.shutdownCalled.Add(1)
	if m.rec != nil {
		m.rec.record(m.name + "_shutdown")
	}
	return m.shutdownErr
}

func TestGuard_Shutdown(t *testing.T) {
	t.Run("will run every step in order", func(t *testing.T) {
		rec := &recorder{}
		g := New(
			WithTracerProvider(&mockProvider{name: "tracer", rec: rec}),
			WithMeterProvider(&mockProvider{name: "meter", rec: rec}),
			WithLoggerProvider(&mockProvider{name: "logger", rec: rec}),
			WithReleaseHook("sink", func(ctx context.Context) error {
				rec.record("sink")
				return nil
			}),
			WithReleaseHook("uninstall", func(ctx context.Context) error {
				rec.record("uninstall")
				return nil
			}),
		)
		if !assert.Equal(t, Active, g.State()) {
			return
		}

		err := g.Shutdown(context.Background())
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Released, g.State()) {
			return
		}

		assert.Equal(t, []string{
			"meter_flush",
			"tracer_flush",
			"logger_flush",
			"meter_shutdown",
			"tracer_shutdown",
			"logger_shutdown",
			"sink",
			"uninstall",
		}, rec.Calls())
	})

	t.Run("will skip providers which were never set", func(t *testing.T) {
		rec := &recorder{}
		g := New(WithTracerProvider(&mockProvider{name: "tracer", rec: rec}))

		err := g.Shutdown(context.Background())
		if !assert.Nil(t, err) {
			return
		}
		assert.Equal(t, []string{"tracer_flush", "tracer_shutdown"}, rec.Calls())
	})

	t.Run("will perform each step at most once", func(t *testing.T) {
		t.Run("if shutdown is called sequentially", func(t *testing.T) {
			tracer := &mockProvider{name: "tracer"}
			meter := &mockProvider{name: "meter"}
			g := New(WithTracerProvider(tracer), WithMeterProvider(meter))

			for i := 0; i < 10; i++ {
				err := g.Shutdown(context.Background())
				if !assert.Nil(t, err) {
					return
				}
			}

			if !assert.Equal(t, int32(1), tracer.flushCalled.Load()) {
				return
			}
			if !assert.Equal(t, int32(1), tracer.shutdownCalled.Load()) {
				return
			}
			if !assert.Equal(t, int32(1), meter.flushCalled.Load()) {
				return
			}
			assert.Equal(t, int32(1), meter.shutdownCalled.Load())
		})

		t.Run("if shutdown is called concurrently", func(t *testing.T) {
			tracer := &mockProvider{name: "tracer"}
			meter := &mockProvider{name: "meter"}
			var hookCalls atomic.Int32
			g := New(
				WithTracerProvider(tracer),
				WithMeterProvider(meter),
				WithReleaseHook("hook", func(ctx context.Context) error {
					hookCalls.Add(1)
					return nil
				}),
			)

			const n = 64
			errs := make([]error, n)
			var wg sync.WaitGroup
			wg.Add(n)
			for i := 0; i < n; i++ {
				go func(i int) {
					defer wg.Done()
					errs[i] = g.Shutdown(context.Background())
				}(i)
			}
			wg.Wait()

			for _, err := range errs {
				if !assert.Nil(t, err) {
					return
				}
			}
			if !assert.Equal(t, Released, g.State()) {
				return
			}
			if !assert.Equal(t, int32(1), tracer.flushCalled.Load()) {
				return
			}
			if !assert.Equal(t, int32(1), meter.shutdownCalled.Load()) {
				return
			}
			assert.Equal(t, int32(1), hookCalls.Load())
		})
	})

	t.Run("will return a ShutdownError", func(t *testing.T) {
		t.Run("if any step fails and still run the remaining steps", func(t *testing.T) {
			flushErr := errors.New("meter flush failed")
			shutdownErr := errors.New("tracer shutdown failed")
			rec := &recorder{}
			tracer := &mockProvider{name: "tracer", rec: rec, shutdownErr: shutdownErr}
			meter := &mockProvider{name: "meter", rec: rec, flushErr: flushErr}
			g := New(WithTracerProvider(tracer), WithMeterProvider(meter))

			err := g.Shutdown(context.Background())

			var serr *beacon.ShutdownError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			if !assert.Len(t, serr.Steps, 2) {
				return
			}
			if !assert.True(t, serr.Failed("meter_flush")) {
				return
			}
			if !assert.True(t, serr.Failed("tracer_shutdown")) {
				return
			}
			if !assert.ErrorIs(t, err, flushErr) {
				return
			}
			if !assert.ErrorIs(t, err, shutdownErr) {
				return
			}
			assert.Len(t, rec.Calls(), 4)
		})

		t.Run("if a flush does not finish within the timeout", func(t *testing.T) {
			tracer := &mockProvider{name: "tracer", blockFlush: true}
			g := New(WithTracerProvider(tracer), WithTimeout(50*time.Millisecond))

			start := time.Now()
			err := g.Shutdown(context.Background())

			if !assert.Less(t, time.Since(start), 5*time.Second) {
				return
			}

			var serr *beacon.ShutdownError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			if !assert.True(t, serr.Failed("tracer_flush")) {
				return
			}
			if !assert.ErrorIs(t, err, context.DeadlineExceeded) {
				return
			}
			assert.Equal(t, int32(1), tracer.shutdownCalled.Load())
		})

		t.Run("if the caller deadline passes during a flush and still shut down the later providers", func(t *testing.T) {
			meter := &mockProvider{name: "meter", blockFlush: true}
			exp := &countingSpanExporter{}
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
			logger := &mockProvider{name: "logger"}

			var hookErr error
			g := New(
				WithMeterProvider(meter),
				WithTracerProvider(tp),
				WithLoggerProvider(logger),
				WithTimeout(time.Second),
				WithReleaseHook("sink", func(ctx context.Context) error {
					hookErr = ctx.Err()
					return nil
				}),
			)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			err := g.Shutdown(ctx)

			var serr *beacon.ShutdownError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			if !assert.True(t, serr.Failed("meter_flush")) {
				return
			}
			if !assert.False(t, serr.Failed("tracer_shutdown")) {
				return
			}
			if !assert.False(t, serr.Failed("logger_shutdown")) {
				return
			}
			if !assert.Equal(t, int32(1), exp.shutdowns.Load()) {
				return
			}
			if !assert.Equal(t, int32(1), meter.shutdownCalled.Load()) {
				return
			}
			if !assert.Equal(t, int32(1), logger.shutdownCalled.Load()) {
				return
			}
			assert.Nil(t, hookErr)
		})

		t.Run("if a release hook panics", func(t *testing.T) {
			var afterCalled atomic.Bool
			g := New(
				WithReleaseHook("boom", func(ctx context.Context) error {
					panic("boom")
				}),
				WithReleaseHook("after", func(ctx context.Context) error {
					afterCalled.Store(true)
					return nil
				}),
			)

			err := g.Shutdown(context.Background())

			var perr beacon.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			assert.True(t, afterCalled.Load())
		})
	})

	t.Run("will return immediately", func(t *testing.T) {
		t.Run("if the guard has already been released", func(t *testing.T) {
			g := New(WithMeterProvider(&mockProvider{name: "meter", flushErr: errors.New("failed")}))

			err := g.Shutdown(context.Background())
			if !assert.Error(t, err) {
				return
			}

			select {
			case <-g.Done():
			default:
				t.Error("expected done channel to be closed")
				return
			}

			err = g.Shutdown(context.Background())
			assert.Nil(t, err)
		})
	})
}

func TestRun(t *testing.T) {
	t.Run("will release the guard", func(t *testing.T) {
		t.Run("if the func returns normally", func(t *testing.T) {
			tracer := &mockProvider{name: "tracer"}
			g := New(WithTracerProvider(tracer))

			err := Run(context.Background(), g, func(ctx context.Context) error {
				return nil
			})
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, Released, g.State()) {
				return
			}
			assert.Equal(t, int32(1), tracer.shutdownCalled.Load())
		})

		t.Run("if the func returns an error", func(t *testing.T) {
			runErr := errors.New("startup failed")
			tracer := &mockProvider{name: "tracer"}
			g := New(WithTracerProvider(tracer))

			err := Run(context.Background(), g, func(ctx context.Context) error {
				return runErr
			})
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
			assert.Equal(t, int32(1), tracer.shutdownCalled.Load())
		})

		t.Run("if the func panics", func(t *testing.T) {
			tracer := &mockProvider{name: "tracer"}
			g := New(WithTracerProvider(tracer))

			err := Run(context.Background(), g, func(ctx context.Context) error {
				panic("unexpected")
			})

			var perr beacon.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "unexpected", perr.Value) {
				return
			}
			assert.Equal(t, int32(1), tracer.shutdownCalled.Load())
		})

		t.Run("if the context is already cancelled", func(t *testing.T) {
			tracer := &mockProvider{name: "tracer"}
			g := New(WithTracerProvider(tracer))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := Run(ctx, g, func(ctx context.Context) error {
				return ctx.Err()
			})
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
			assert.Equal(t, int32(1), tracer.shutdownCalled.Load())
		})
	})

	t.Run("will join the shutdown error", func(t *testing.T) {
		t.Run("if releasing the guard fails", func(t *testing.T) {
			shutdownErr := errors.New("collector gone")
			g := New(WithTracerProvider(&mockProvider{name: "tracer", shutdownErr: shutdownErr}))

			err := Run(context.Background(), g, func(ctx context.Context) error {
				return nil
			})

			var serr *beacon.ShutdownError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			assert.ErrorIs(t, err, shutdownErr)
		})
	})
}
