package core

import (
	"math"
	"sort"
	"time"
)

// Scheduler is the frame-budgeted cooperative dispatcher: components mark
// themselves dirty, and Flush drains one ordered, budget-limited batch of
// them at a time. There is no internal timer or goroutine — something
// external (a host's render loop, a test, the Ride facade's own idle
// helper) decides when to call Flush; the Scheduler's job is only to
// order the batch correctly and stop within budget.
type Scheduler struct {
	rt     *Runtime
	budget float64 // milliseconds; <=0 means unbounded

	dirty    map[*Component]struct{}
	inFlight bool

	flushCount        int64
	yieldCount        int64
	lastFlushDuration time.Duration
}

// SchedulerStats is a cheap, lock-free snapshot of Scheduler activity,
// mirroring the teacher's own introspection methods (Owner.MemoryUsage,
// StormBudgetTracker.Stats): read-only bookkeeping meant for metrics,
// tracing, and tests, never consulted by the scheduling algorithm itself.
type SchedulerStats struct {
	Dirty             int
	Flushes           int64
	Yields            int64
	LastFlushDuration time.Duration
}

// Stats returns a snapshot of the scheduler's current state. Safe to call
// between flushes; like the rest of this package, it is not safe to call
// concurrently with a Flush in progress.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Dirty:             len(s.dirty),
		Flushes:           s.flushCount,
		Yields:            s.yieldCount,
		LastFlushDuration: s.lastFlushDuration,
	}
}

// NewScheduler constructs a Scheduler bound to rt. budget is the root
// class's static progressive.budget in milliseconds; <=0 or non-finite
// means a flush never yields on its own account (components may still
// yield their own buffer mid-drain if a future host imposes one).
func NewScheduler(rt *Runtime, budget float64) *Scheduler {
	return &Scheduler{
		rt:     rt,
		budget: budget,
		dirty:  make(map[*Component]struct{}),
	}
}

// MarkDirty adds c to the pending batch. A destroyed component is never
// added — Destroy clears any buffered ops, so there would be nothing to
// drain.
func (s *Scheduler) MarkDirty(c *Component) {
	if c == nil || c.destroyed {
		return
	}
	s.dirty[c] = struct{}{}
}

// Dirty reports how many components are currently pending a flush.
func (s *Scheduler) Dirty() int { return len(s.dirty) }

// Flush drains one batch of dirty components in (depth asc,
// componentPriority asc, createdAt asc) order — a "wave": every
// component at a given depth is attempted before any component at the
// next depth. It returns false if it stopped early because the frame
// budget was exceeded; callers needing full convergence should loop on
// Flush (see WhenIdle) rather than assume one call drains everything.
//
// Flush is a no-op returning true if the runtime isn't ready yet (there
// is no host to attach nodes to). If a flush is already running it is a
// no-op returning false — re-entrant calls (e.g. an effect that itself
// triggers a flush) are refused rather than nested.
func (s *Scheduler) Flush() bool {
	if !s.rt.IsReady() {
		return true
	}
	if s.inFlight {
		return false
	}
	if len(s.dirty) == 0 {
		return true
	}

	s.inFlight = true
	defer func() { s.inFlight = false }()

	batch := make([]*Component, 0, len(s.dirty))
	for c := range s.dirty {
		batch = append(batch, c)
	}
	s.dirty = make(map[*Component]struct{})

	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].depth != batch[j].depth {
			return batch[i].depth < batch[j].depth
		}
		if batch[i].componentPriority != batch[j].componentPriority {
			return batch[i].componentPriority < batch[j].componentPriority
		}
		return batch[i].createdAt < batch[j].createdAt
	})

	start := time.Now()
	hasBudget := s.budget > 0 && !math.IsInf(s.budget, 1)
	deadline := start.Add(time.Duration(s.budget * float64(time.Millisecond)))
	shouldYield := func() bool {
		return hasBudget && time.Now().After(deadline)
	}
	neverYield := func() bool { return false }

	observer := s.rt.ObserverHooks()
	s.rt.observe(func() { observer.OnFlushStart(len(batch)) })

	processed := make(map[*Component]bool, len(batch))
	yielded := false
	touched := false

	for i := 0; i < len(batch); i++ {
		c := batch[i]
		if processed[c] {
			continue
		}

		// Depth-group gating: the budget is only consulted when about to
		// start a component at a new depth. Two components at the same
		// depth always both run this flush, even if the budget technically
		// expired between them — this is what prevents sibling tearing.
		atDepthBoundary := i == 0 || batch[i-1].depth != c.depth
		if atDepthBoundary && shouldYield() {
			s.requeueRemaining(batch[i:], processed)
			s.rt.observe(func() { observer.OnYield(c) })
			yielded = true
			break
		}

		touched = true
		var completed bool
		if c.locality == LocalitySubtree {
			completed = s.drainSubtree(c, shouldYield, processed)
		} else {
			// Once the depth-boundary check above has let this component
			// start, its own Drain must not yield on the frame budget: the
			// budget is only ever consulted between depth groups, never
			// inside one, or a long-running sibling would starve the rest
			// of its own depth out of this frame.
			completed = s.processOne(c, neverYield)
			processed[c] = true
			if !completed {
				s.dirty[c] = struct{}{}
			}
		}

		if !completed {
			s.rt.observe(func() { observer.OnYield(c) })
			yielded = true
			s.requeueRemaining(batch[i+1:], processed)
			break
		}
	}

	if touched {
		if host := s.rt.Host(); host != nil {
			host.RequestRender()
		}
	}

	s.flushCount++
	s.lastFlushDuration = time.Since(start)
	if yielded {
		s.yieldCount++
	}

	s.rt.observe(func() { observer.OnFlushEnd(s.lastFlushDuration, yielded) })
	return !yielded
}

// requeueRemaining re-marks every not-yet-processed component in
// remaining as dirty, so a partial wave resumes from where it stopped on
// the next Flush call.
func (s *Scheduler) requeueRemaining(remaining []*Component, processed map[*Component]bool) {
	for _, c := range remaining {
		if !processed[c] {
			s.dirty[c] = struct{}{}
		}
	}
}

// processOne runs the three per-component processing steps: attach the
// node if needed, run the initial commit if this is the component's first
// time being processed, then drain its command buffer. A failed node
// attach is reported and retried on a later flush rather than treated as
// a budget yield.
func (s *Scheduler) processOne(c *Component, shouldYield func() bool) bool {
	if c.destroyed {
		return true
	}
	if err := c.EnsureNode(); err != nil {
		c.reportError(err, PhaseAttach, nil)
		s.dirty[c] = struct{}{}
		return true
	}
	if !c.initialized {
		c.InitialCommit()
	}
	return c.Drain(shouldYield)
}

// drainSubtree processes c and then, depth-first, every descendant of c —
// regardless of whether a descendant was itself marked dirty — so that a
// LocalitySubtree component's whole subtree renders together within one
// frame. If the budget runs out partway through, the node that yielded and,
// at each level back up to c, the not-yet-visited siblings on that path are
// marked dirty for the next flush; descendants of those siblings are not
// marked by this walk.
func (s *Scheduler) drainSubtree(c *Component, shouldYield func() bool, processed map[*Component]bool) bool {
	if processed[c] {
		return true
	}
	if shouldYield() {
		s.dirty[c] = struct{}{}
		return false
	}

	completed := s.processOne(c, shouldYield)
	processed[c] = true
	if !completed {
		s.dirty[c] = struct{}{}
		return false
	}

	children := append([]*Component(nil), c.children...)
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].componentPriority != children[j].componentPriority {
			return children[i].componentPriority < children[j].componentPriority
		}
		return children[i].createdAt < children[j].createdAt
	})

	for i, child := range children {
		if !s.drainSubtree(child, shouldYield, processed) {
			for _, rest := range children[i+1:] {
				if !processed[rest] {
					s.dirty[rest] = struct{}{}
				}
			}
			return false
		}
	}
	return true
}

// WhenIdle calls Flush repeatedly until no component is dirty, up to
// maxIterations times. It returns ErrIdleTimeout if the tree never
// quiesces within that budget — a debug safety net against a component
// whose effects keep re-dirtying it (or a sibling) every frame, not a
// runtime-level deadline.
func (s *Scheduler) WhenIdle(maxIterations int) error {
	if maxIterations <= 0 {
		maxIterations = 1
	}
	for i := 0; i < maxIterations; i++ {
		if len(s.dirty) == 0 {
			return nil
		}
		s.Flush()
	}
	if len(s.dirty) == 0 {
		return nil
	}
	return ErrIdleTimeout
}
