package tracing

import (
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ridecore/ride/pkg/core"
)

// These tests run against the global no-op TracerProvider (no
// otel.SetTracerProvider call anywhere in this module), so they verify
// FlushTracer's own bookkeeping and option wiring rather than exported
// span data — there is nothing to export to.

func TestFlushTracerImplementsObserver(t *testing.T) {
	var _ core.Observer = New()
}

func TestFlushTracerLifecycleDoesNotPanic(t *testing.T) {
	tr := New()
	tr.OnFlushStart(2)
	tr.OnOpDrained(nil, &core.Op{Type: "paint", Key: "k"})
	tr.OnYield(nil)
	tr.OnError(errors.New("boom"), core.ErrorContext{Phase: core.PhaseEffect})
	tr.OnFlushEnd(5*time.Millisecond, true)
}

func TestFlushTracerOpOutsideFlushUsesBackgroundContext(t *testing.T) {
	tr := New()
	// No OnFlushStart call — OnOpDrained must still be safe with a nil
	// flushCtx, falling back to context.Background().
	tr.OnOpDrained(nil, &core.Op{Type: "paint"})
}

func TestFlushTracerYieldAndErrorAfterFlushEndAreNoops(t *testing.T) {
	tr := New()
	tr.OnFlushStart(1)
	tr.OnFlushEnd(time.Millisecond, false)

	// flushSpn was cleared by OnFlushEnd; these must not panic even
	// though there is no active span to attach to.
	tr.OnYield(nil)
	tr.OnError(errors.New("late"), core.ErrorContext{Phase: core.PhaseDiff})
}

func TestFlushTracerAttributeExtractorIsCalled(t *testing.T) {
	calls := 0
	tr := New(WithAttributeExtractor(func(component *core.Component, op *core.Op) []attribute.KeyValue {
		calls++
		return []attribute.KeyValue{attribute.String("test.attr", op.Type)}
	}))

	tr.OnFlushStart(1)
	tr.OnOpDrained(nil, &core.Op{Type: "paint"})
	tr.OnFlushEnd(time.Millisecond, false)

	if calls != 1 {
		t.Fatalf("expected AttributeExtractor to be called once, got %d", calls)
	}
}

func TestWithTracerNameOverridesDefault(t *testing.T) {
	cfg := defaultConfig()
	WithTracerName("custom")(&cfg)
	if cfg.TracerName != "custom" {
		t.Fatalf("expected TracerName = custom, got %q", cfg.TracerName)
	}
}
