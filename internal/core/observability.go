package core

import (
	"context"
	"time"
)

// Logger is the structured logging surface used by the core. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder observes handler operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around handler operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error (nil on success).
type TraceSpan interface {
	End(err error)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Option configures handlers and transaction guards.
type Option func(*options)

type options struct {
	logger        Logger
	metrics       MetricsRecorder
	tracer        Tracer
	hashCacheSize int
	now           func() time.Time
}

const defaultHashCacheSize = 128

func buildOptions(opts []Option) options {
	o := options{
		logger:        noopLogger{},
		metrics:       noopMetrics{},
		tracer:        noopTracer{},
		hashCacheSize: defaultHashCacheSize,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger. A nil logger leaves the no-op default.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithHashCacheSize bounds the employee credential-hash cache. Non-positive
// values keep the default.
func WithHashCacheSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.hashCacheSize = size
		}
	}
}

// WithClock overrides the time source used for operation durations.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// instrument wraps one handler operation with tracing and metrics. The
// returned func must be called with the operation's final error.
func (o options) instrument(ctx context.Context, operation string) (context.Context, func(error)) {
	start := o.now()
	ctx, span := o.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		span.End(err)
		o.metrics.Observe(ctx, operation, err == nil, o.now().Sub(start))
	}
}
