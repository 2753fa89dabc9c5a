package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/ridecore/ride/pkg/core"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func newTestCollector() *SchedulerCollector {
	return New(WithRegistry(prometheus.NewRegistry()))
}

func TestSchedulerCollector_FlushEnd(t *testing.T) {
	c := newTestCollector()

	c.OnFlushStart(3)
	if got := c.LastBatchSize(); got != 3 {
		t.Fatalf("LastBatchSize() = %d, want 3", got)
	}

	c.OnFlushEnd(5*time.Millisecond, false)
	c.OnFlushEnd(5*time.Millisecond, true)

	if got := histogramCount(t, c.flushDuration); got != 2 {
		t.Fatalf("flushDuration sample count = %d, want 2", got)
	}
	if got := counterValue(t, c.flushTotal.WithLabelValues("true")); got != 1 {
		t.Fatalf("flushTotal{yielded=true} = %v, want 1", got)
	}
	if got := counterValue(t, c.flushTotal.WithLabelValues("false")); got != 1 {
		t.Fatalf("flushTotal{yielded=false} = %v, want 1", got)
	}
}

func TestSchedulerCollector_OpsAndYields(t *testing.T) {
	c := newTestCollector()

	c.OnOpDrained(nil, &core.Op{Type: "paint"})
	c.OnOpDrained(nil, &core.Op{Type: "paint"})
	c.OnYield(nil)

	if got := counterValue(t, c.opsDrained); got != 2 {
		t.Fatalf("opsDrained = %v, want 2", got)
	}
	if got := counterValue(t, c.yields); got != 1 {
		t.Fatalf("yields = %v, want 1", got)
	}
}

func TestSchedulerCollector_Errors(t *testing.T) {
	c := newTestCollector()

	c.OnError(errors.New("boom"), core.ErrorContext{Phase: core.PhaseEffect})
	c.OnError(errors.New("boom again"), core.ErrorContext{Phase: core.PhaseEffect})
	c.OnError(errors.New("diff failed"), core.ErrorContext{Phase: core.PhaseDiff})

	if got := counterValue(t, c.errorsTotal.WithLabelValues("effect")); got != 2 {
		t.Fatalf("errorsTotal{phase=effect} = %v, want 2", got)
	}
	if got := counterValue(t, c.errorsTotal.WithLabelValues("diff")); got != 1 {
		t.Fatalf("errorsTotal{phase=diff} = %v, want 1", got)
	}
}
