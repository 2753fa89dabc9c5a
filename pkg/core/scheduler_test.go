package core

import (
	"reflect"
	"testing"
	"time"
)

func mountLeaf(parent *Component, priority int, log *[]string, label string) *Component {
	return parent.Mount(func(c *Component) any {
		return &testLogic{
			comp: c,
			cfg:  ComponentConfig{Priority: priority},
			effectFn: func(op *Op) (Cleanup, error) {
				if op.Type == InitOpType {
					return nil, nil
				}
				*log = append(*log, label)
				return nil, nil
			},
		}
	}, nil)
}

func TestSchedulerSubtreeLocalityGrouping(t *testing.T) {
	// S6 — subtree locality grouping.
	rt, _ := newReadyRuntime(0)
	var log []string

	root, _ := newTestLogicComponent(rt, nil, nil)
	rt.SetRoot(root)
	root.Update(nil)
	rt.Scheduler.Flush()

	items := make([]*Component, 3)
	for i := 0; i < 3; i++ {
		i := i
		item := root.Mount(func(c *Component) any {
			return &testLogic{
				comp: c,
				cfg:  ComponentConfig{Locality: LocalitySubtree},
				effectFn: func(op *Op) (Cleanup, error) {
					if op.Type == InitOpType {
						return nil, nil
					}
					log = append(log, itemLabel(i))
					return nil, nil
				},
			}
		}, nil)
		items[i] = item
	}
	for i, item := range items {
		mountLeaf(item, 5, &log, itemLabel(i)+":title")
		mountLeaf(item, 10, &log, itemLabel(i)+":cover")
	}

	for _, item := range items {
		_ = item.Queue("render", nil, QueueOptions{})
	}
	for _, item := range items {
		for _, child := range item.Children() {
			_ = child.Queue("render", nil, QueueOptions{})
		}
	}

	if !rt.Scheduler.Flush() {
		t.Fatal("expected the subtree flush to complete without yielding")
	}

	want := []string{
		"I0", "I0:title", "I0:cover",
		"I1", "I1:title", "I1:cover",
		"I2", "I2:title", "I2:cover",
	}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("expected strict per-item subtree order %v, got %v", want, log)
	}
}

func itemLabel(i int) string {
	return []string{"I0", "I1", "I2"}[i]
}

func TestSchedulerDepthGroupNotSplit(t *testing.T) {
	// Property 8 — depth non-splitting: under the default (depth)
	// locality, a tight budget exhausted mid-depth must still let every
	// same-depth component finish before the scheduler yields.
	rt := NewRuntime(RuntimeConfig{}, 1) // 1ms budget, deliberately tiny
	host := newStubHost()

	root, _ := newTestLogicComponent(rt, nil, nil)
	rt.SetRoot(root)
	rt.SetHost(host)
	root.Update(nil)
	rt.Scheduler.Flush()

	var log []string
	const n = 5
	children := make([]*Component, n)
	for i := 0; i < n; i++ {
		children[i] = root.Mount(func(c *Component) any {
			return &testLogic{
				comp: c,
				effectFn: func(op *Op) (Cleanup, error) {
					if op.Type == InitOpType {
						return nil, nil
					}
					// Burns enough wall-clock that, without depth-group
					// gating, the scheduler would yield before this
					// depth's remaining siblings run.
					time.Sleep(300 * time.Microsecond)
					log = append(log, "child")
					return nil, nil
				},
			}
		}, nil)
	}
	for _, c := range children {
		_ = c.Queue("render", nil, QueueOptions{})
	}

	rt.Scheduler.Flush()

	if len(log) != n {
		t.Fatalf("expected every same-depth child to run before any yield, got %d of %d", len(log), n)
	}
}

func TestSchedulerIdleBarrierBounds(t *testing.T) {
	rt, _ := newReadyRuntime(0)
	root, _ := newTestLogicComponent(rt, nil, func(l *testLogic) {
		l.effectFn = func(op *Op) (Cleanup, error) {
			if op.Type == "@ride/init" {
				return nil, nil
			}
			// Keeps re-dirtying itself forever; WhenIdle must give up.
			_ = l.comp.Queue("again", nil, QueueOptions{})
			return nil, nil
		}
	})
	rt.SetRoot(root)
	root.Update(nil)
	_ = root.Queue("again", nil, QueueOptions{})

	err := rt.Scheduler.WhenIdle(5)
	if err != ErrIdleTimeout {
		t.Fatalf("expected ErrIdleTimeout for a perpetually dirty tree, got %v", err)
	}
}

func TestSchedulerWhenIdleConverges(t *testing.T) {
	rt, _ := newReadyRuntime(0)
	root, _ := newTestLogicComponent(rt, nil, nil)
	rt.SetRoot(root)
	root.Update(nil)

	if err := rt.Scheduler.WhenIdle(10); err != nil {
		t.Fatalf("expected WhenIdle to converge, got %v", err)
	}
	if rt.Scheduler.Dirty() != 0 {
		t.Fatalf("expected no dirty components after convergence, got %d", rt.Scheduler.Dirty())
	}
}

func TestSchedulerReadinessGate(t *testing.T) {
	rt := NewRuntime(RuntimeConfig{}, 0)
	comp, _ := newTestLogicComponent(rt, nil, nil)
	rt.SetRoot(comp)
	rt.Scheduler.MarkDirty(comp)

	if !rt.Scheduler.Flush() {
		t.Fatal("expected Flush to report no-op-yield as complete while not ready")
	}
	// The readiness gate is a no-op until a host exists; nothing should
	// have been attached or drained.
	if comp.IsInitialized() {
		t.Fatal("expected component not to initialize before the host is ready")
	}
}

func TestSchedulerAttachFailureRetriesNextFrame(t *testing.T) {
	rt := NewRuntime(RuntimeConfig{}, 0)
	host := newStubHost()
	host.failAttach = true

	var reported []Phase
	comp, _ := newTestLogicComponent(rt, nil, func(l *testLogic) {
		l.onErrorFn = func(err error, ctx ErrorContext) {
			reported = append(reported, ctx.Phase)
		}
	})
	rt.SetRoot(comp)
	rt.SetHost(host)
	comp.Update(nil)

	rt.Scheduler.Flush()
	if comp.IsInitialized() {
		t.Fatal("expected a failed attach to skip initialization this frame")
	}
	if len(reported) != 1 || reported[0] != PhaseAttach {
		t.Fatalf("expected one PhaseAttach error report, got %v", reported)
	}
	if rt.Scheduler.Dirty() != 1 {
		t.Fatalf("expected the component to be re-marked dirty for retry, got %d", rt.Scheduler.Dirty())
	}

	host.failAttach = false
	rt.Scheduler.Flush()
	if !comp.IsInitialized() {
		t.Fatal("expected the retried flush to succeed once attach stops failing")
	}
}

func TestSchedulerStats(t *testing.T) {
	rt, _ := newReadyRuntime(0)
	root, _ := newTestLogicComponent(rt, nil, nil)
	rt.SetRoot(root)
	root.Update(nil)

	before := rt.Scheduler.Stats()
	rt.Scheduler.Flush()
	after := rt.Scheduler.Stats()

	if after.Flushes != before.Flushes+1 {
		t.Fatalf("expected Flushes to increment by one, got %d -> %d", before.Flushes, after.Flushes)
	}
	if after.Dirty != 0 {
		t.Fatalf("expected no dirty components after a converging flush, got %d", after.Dirty)
	}
}
