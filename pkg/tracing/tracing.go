// Package tracing instruments a pkg/core Runtime with OpenTelemetry spans
// by implementing core.Observer. Like pkg/metrics, it knows nothing about
// pkg/core's internals beyond that interface.
package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ridecore/ride/pkg/core"
)

// defaultTracerName is the name registered with the global TracerProvider.
const defaultTracerName = "ride"

// Config configures the scheduler tracer.
type Config struct {
	// TracerName is the name of the tracer (default: "ride").
	TracerName string

	// IncludeComponentDepth adds the draining component's depth as a span
	// attribute on every op span. Enabled by default.
	IncludeComponentDepth bool

	// AttributeExtractor extracts custom attributes for a drained op's
	// span. Called once per op.
	AttributeExtractor func(component *core.Component, op *core.Op) []attribute.KeyValue

	tracer trace.Tracer
}

// Option configures a Config.
type Option func(*Config)

func WithTracerName(name string) Option {
	return func(c *Config) { c.TracerName = name }
}

func WithIncludeComponentDepth(include bool) Option {
	return func(c *Config) { c.IncludeComponentDepth = include }
}

func WithAttributeExtractor(extractor func(component *core.Component, op *core.Op) []attribute.KeyValue) Option {
	return func(c *Config) { c.AttributeExtractor = extractor }
}

func defaultConfig() Config {
	return Config{
		TracerName:            defaultTracerName,
		IncludeComponentDepth: true,
	}
}

// FlushTracer is a core.Observer that opens one span per Scheduler.Flush
// and one child span per op dispatched during that flush, using the
// global OpenTelemetry tracer provider.
//
// Configure the provider in main() before attaching a FlushTracer:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type FlushTracer struct {
	core.NoopObserver

	cfg Config

	mu       sync.Mutex
	flushCtx context.Context
	flushSpn trace.Span
}

// New builds a FlushTracer. The tracer is resolved from the global
// TracerProvider at construction time, the same way metrics.New resolves
// its registry at construction time.
func New(opts ...Option) *FlushTracer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.tracer = otel.Tracer(cfg.TracerName)
	return &FlushTracer{cfg: cfg}
}

func (t *FlushTracer) OnFlushStart(batchSize int) {
	ctx, span := t.cfg.tracer.Start(
		context.Background(),
		"ride.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("ride.batch_size", batchSize)),
	)
	t.mu.Lock()
	t.flushCtx, t.flushSpn = ctx, span
	t.mu.Unlock()
}

func (t *FlushTracer) OnFlushEnd(d time.Duration, yielded bool) {
	t.mu.Lock()
	span := t.flushSpn
	t.flushCtx, t.flushSpn = nil, nil
	t.mu.Unlock()
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int64("ride.flush_duration_ms", d.Milliseconds()),
		attribute.Bool("ride.yielded", yielded),
	)
	if !yielded {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *FlushTracer) OnOpDrained(component *core.Component, op *core.Op) {
	t.mu.Lock()
	ctx := t.flushCtx
	t.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []attribute.KeyValue{
		attribute.String("ride.op_type", op.Type),
		attribute.String("ride.op_key", op.Key),
		attribute.Int("ride.op_priority", op.Priority),
	}
	if t.cfg.IncludeComponentDepth && component != nil {
		attrs = append(attrs, attribute.Int("ride.component_depth", component.Depth()))
	}
	if t.cfg.AttributeExtractor != nil {
		attrs = append(attrs, t.cfg.AttributeExtractor(component, op)...)
	}

	_, span := t.cfg.tracer.Start(ctx, spanName(op), trace.WithAttributes(attrs...))
	span.End()
}

func (t *FlushTracer) OnYield(component *core.Component) {
	t.mu.Lock()
	span := t.flushSpn
	t.mu.Unlock()
	if span == nil {
		return
	}
	attrs := []attribute.KeyValue{}
	if component != nil {
		attrs = append(attrs, attribute.Int("ride.component_depth", component.Depth()))
	}
	span.AddEvent("ride.yield", trace.WithAttributes(attrs...))
}

func (t *FlushTracer) OnError(err error, ctx core.ErrorContext) {
	t.mu.Lock()
	span := t.flushSpn
	t.mu.Unlock()
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("ride.error_phase", string(ctx.Phase)))
}

func spanName(op *core.Op) string {
	return fmt.Sprintf("ride.op %s", op.Type)
}
