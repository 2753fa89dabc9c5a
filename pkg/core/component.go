package core

import "fmt"

// Configurer is implemented by a component's logic value to supply its
// static configuration (spec's "static progressive.*" and "static
// behaviors" class fields). A logic value that doesn't implement it gets
// every default: priority 0 (highest), depth locality, no behaviors.
//
// Behavior composition base-to-derived is achieved the same way Go
// achieves "inheritance" generally: by embedding. A derived component
// embeds the base component's logic type and implements Config() by
// calling the embedded type's Config() and appending its own behaviors,
// e.g.:
//
//	func (d *Derived) Config() core.ComponentConfig {
//	    cfg := d.Base.Config()
//	    cfg.Behaviors = append(cfg.Behaviors, derivedOnlyBehavior)
//	    return cfg
//	}
type Configurer interface {
	Config() ComponentConfig
}

// ComponentConfig is the static, per-type configuration spec.md §6
// describes as class-level fields.
type ComponentConfig struct {
	Priority  int
	Locality  Locality
	Behaviors []Behavior
}

// Validate reports whether cfg's static fields are well-formed. Priority
// has no invalid range — any int, including negative ones, is a valid
// priority that simply sorts ahead of PriorityHighest. Locality does: it
// is read from a class's static configuration the same way spec.md's
// `progressive.locality` is, and a value outside the two documented modes
// is a configuration mistake, not a silently-acceptable default.
func (cfg ComponentConfig) Validate() error {
	switch cfg.Locality {
	case LocalityDepth, LocalitySubtree:
		return nil
	default:
		return fmt.Errorf("core: invalid locality %d", int(cfg.Locality))
	}
}

// Initializer, Differ, and Effector are the "virtual method" seams a
// component's logic value may implement; all three are optional and
// checked with a type assertion at the point they'd run.
type Initializer interface {
	Init(ctx *BehaviorContext) (Cleanup, error)
}

type Differ interface {
	Diff(prev, next map[string]any, ctx *BehaviorContext) (DiffResult, error)
}

type Effector interface {
	Effect(op *Op) (Cleanup, error)
}

// AsyncDiffer is an optional extension for components whose diff needs to
// do real asynchronous work (an I/O call, a timer) before deciding whether
// to commit. done must eventually be called exactly once, synchronously or
// from another goroutine; its result is discarded if a newer update() has
// started a later diff in the meantime (spec.md's stale-diff-ticket rule).
type AsyncDiffer interface {
	DiffAsync(prev, next map[string]any, ctx *BehaviorContext, done func(DiffResult, error))
}

// QueueOptions configures Component.Queue.
type QueueOptions struct {
	// Key is the coalescing key. Ignored if CoalesceBy is set.
	Key string
	// CoalesceBy computes the coalescing key from the op type and
	// payload; takes precedence over Key.
	CoalesceBy func(opType string, payload any) string
	// Priority is added to the component's own priority to produce the
	// op's effective priority.
	Priority int
	// SquashWith folds a replaced payload with the new one.
	SquashWith SquashFunc
}

// Component is a node in the tree: it holds committed and staged props,
// owns a CommandBuffer and its children, and dispatches queued ops to its
// behaviors and its own logic value during a Scheduler flush. See doc.go
// for the concurrency model this type assumes (single goroutine at a
// time, no internal locking).
type Component struct {
	logic any

	props       map[string]any
	stagedProps map[string]any
	prevProps   map[string]any

	parent   *Component
	children []*Component

	depth             int
	componentPriority int
	locality          Locality
	behaviors         []Behavior
	createdAt         int64

	runtime *Runtime
	cmds    *CommandBuffer
	node    Node

	cleanups          map[string]Cleanup
	lifetimeCleanups  []Cleanup
	legacyInitCleanup Cleanup

	initialized      bool
	needsInitialDiff bool
	preReadyDiffRan  bool
	initDone         bool
	destroyed        bool

	diffTicket int64
}

// NewComponent constructs a component under parent (nil for a root) and
// calls factory once to obtain its logic value. factory receives the new
// Component so the caller's type can embed it — resolving the
// construction order problem of "the component needs the logic value and
// the logic value needs the component" the same way a Go UI type embeds
// its base: construct the shell, hand it to the factory, let the factory
// return a value that embeds it.
//
// The @ride/init op is enqueued here, at priority componentPriority-1, so
// it always drains before any other op this component ever queues.
func NewComponent(parent *Component, rt *Runtime, factory func(*Component) any) *Component {
	c := &Component{
		parent:    parent,
		runtime:   rt,
		cmds:      NewCommandBuffer(),
		cleanups:  make(map[string]Cleanup),
		createdAt: nextSequence(),
	}
	if parent != nil {
		c.depth = parent.depth + 1
	}

	c.logic = factory(c)

	cfg := ComponentConfig{}
	if configurer, ok := c.logic.(Configurer); ok {
		cfg = configurer.Config()
	}
	if err := cfg.Validate(); err != nil {
		c.reportError(err, PhaseInit, nil)
		cfg.Locality = LocalityDepth
	}
	c.componentPriority = cfg.Priority
	c.locality = cfg.Locality
	c.behaviors = cfg.Behaviors

	_ = c.cmds.Push(PushOptions{
		Type:     InitOpType,
		Key:      InitOpType,
		Priority: c.componentPriority - 1,
	})

	if !rt.IsReady() {
		c.needsInitialDiff = true
	}

	return c
}

// Logic returns the component's logic value (the user type constructed by
// the NewComponent/Mount factory).
func (c *Component) Logic() any { return c.logic }

// Props returns the committed props. Callers must not mutate the
// returned map.
func (c *Component) Props() map[string]any { return c.props }

// StagedProps returns the pending, not-yet-committed props, or nil if no
// diff is currently staged.
func (c *Component) StagedProps() map[string]any { return c.stagedProps }

// PrevProps returns the props that were committed immediately before the
// current ones.
func (c *Component) PrevProps() map[string]any { return c.prevProps }

func (c *Component) Parent() *Component      { return c.parent }
func (c *Component) Children() []*Component  { return append([]*Component(nil), c.children...) }
func (c *Component) Depth() int              { return c.depth }
func (c *Component) Priority() int           { return c.componentPriority }
func (c *Component) Locality() Locality      { return c.locality }
func (c *Component) CreatedAt() int64        { return c.createdAt }
func (c *Component) Node() Node              { return c.node }
func (c *Component) Runtime() *Runtime       { return c.runtime }
func (c *Component) Buffer() *CommandBuffer  { return c.cmds }
func (c *Component) IsInitialized() bool     { return c.initialized }
func (c *Component) IsInitDone() bool        { return c.initDone }
func (c *Component) IsDestroyed() bool       { return c.destroyed }
func (c *Component) PreReadyDiffRan() bool   { return c.preReadyDiffRan }
func (c *Component) NeedsInitialDiff() bool  { return c.needsInitialDiff }

// Update shallow-merges patch onto stagedProps (or props, if nothing is
// currently staged) and triggers a diff — a full one if the runtime is
// ready, a restricted pre-ready one otherwise. It bumps the command
// buffer's generation on every call, per spec.md §4.2.
func (c *Component) Update(patch map[string]any) {
	if c.destroyed {
		return
	}
	if c.stagedProps == nil {
		c.stagedProps = copyProps(c.props)
	}
	for k, v := range patch {
		c.stagedProps[k] = v
	}
	c.cmds.BumpGeneration()

	if c.runtime.IsReady() {
		if c.initialized {
			c.runDiff(PhaseDiff)
		} else {
			c.runDiff(PhaseInitialDiff)
		}
	} else {
		c.runPreReadyDiff()
	}
}

// Queue pushes an op onto this component's CommandBuffer at an effective
// priority of componentPriority + opts.Priority, and marks the component
// dirty if the runtime is ready.
func (c *Component) Queue(opType string, payload any, opts QueueOptions) error {
	if c.destroyed {
		return ErrDestroyed
	}
	key := opts.Key
	if opts.CoalesceBy != nil {
		key = opts.CoalesceBy(opType, payload)
	}
	if key == "" {
		key = opType
	}
	if err := c.cmds.Push(PushOptions{
		Type:       opType,
		Key:        key,
		Payload:    payload,
		Priority:   c.componentPriority + opts.Priority,
		SquashWith: opts.SquashWith,
	}); err != nil {
		return err
	}
	if c.runtime.IsReady() {
		c.runtime.Scheduler.MarkDirty(c)
	}
	return nil
}

// Mount constructs a child with c as its parent and returns it.
func (c *Component) Mount(factory func(*Component) any, props map[string]any) *Component {
	child := NewComponent(c, c.runtime, factory)
	c.children = append(c.children, child)
	child.Update(props)
	return child
}

// Unmount removes child from c's children and destroys it.
func (c *Component) Unmount(child *Component) {
	c.removeChild(child)
	child.Destroy()
}

func (c *Component) removeChild(child *Component) {
	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// Destroy is idempotent. It discards pending ops, recursively destroys
// children, awaits every pending per-key cleanup, then lifetime cleanups
// in LIFO order, then the legacy init cleanup, and finally detaches the
// node from its parent via the host. Per-key cleanups run in key order
// for determinism — spec.md does not define an order across distinct
// keys, only that a given key's own cleanup chain is sequential.
func (c *Component) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.cmds.Clear()

	if c.parent != nil {
		c.parent.removeChild(c)
	}

	children := c.children
	c.children = nil
	for _, child := range children {
		child.Destroy()
	}

	for _, key := range sortedKeys(c.cleanups) {
		fn := c.cleanups[key]
		delete(c.cleanups, key)
		c.safeCleanup(fn, PhaseCleanup, nil)
	}

	for i := len(c.lifetimeCleanups) - 1; i >= 0; i-- {
		c.safeCleanup(c.lifetimeCleanups[i], PhaseCleanup, nil)
	}
	c.lifetimeCleanups = nil

	c.safeCleanup(c.legacyInitCleanup, PhaseCleanup, nil)
	c.legacyInitCleanup = nil

	if c.node != nil {
		host := c.runtime.Host()
		if host != nil {
			parentNode := c.attachParentNode()
			if err := host.DetachNode(parentNode, c.node); err != nil {
				c.reportError(err, PhaseCleanup, nil)
			}
			if err := host.DestroyNode(c.node); err != nil {
				c.reportError(err, PhaseCleanup, nil)
			}
		}
		c.node = nil
	}
}

// EnsureNode creates and attaches this component's host node if it has
// not already been attached. Attachment happens at most once per
// lifetime; only Destroy detaches it.
func (c *Component) EnsureNode() error {
	if c.node != nil {
		return nil
	}
	host := c.runtime.Host()
	if host == nil {
		return ErrDestroyed
	}
	node, err := host.CreateNode(c)
	if err != nil {
		return err
	}
	if err := host.AttachNode(c.attachParentNode(), node); err != nil {
		return err
	}
	c.node = node
	return nil
}

func (c *Component) attachParentNode() Node {
	if c.parent == nil {
		return c.runtime.Host().RootNode()
	}
	if cp, ok := c.parent.logic.(ChildParenter); ok {
		return cp.GetChildParent(c)
	}
	return c.parent.node
}

// Drain runs one CommandBuffer.Drain pass, dispatching each op to
// DispatchOp. It returns whether the buffer fully drained.
func (c *Component) Drain(shouldYield func() bool) bool {
	return c.cmds.Drain(c.dispatchOp, shouldYield)
}

// InitialCommit runs the scheduler's "first time this component is
// processed" step: if a pre-ready diff already ran, the staged props swap
// straight to committed; otherwise a diff runs (a no-op if nothing is
// staged, which is the common case when the runtime was already ready at
// construction and Update already committed synchronously).
func (c *Component) InitialCommit() {
	if c.initialized {
		return
	}
	if c.preReadyDiffRan {
		if c.stagedProps != nil {
			c.prevProps = c.props
			c.props = c.stagedProps
			c.stagedProps = nil
		}
	} else {
		c.runDiff(PhaseInitialDiff)
	}
	c.initialized = true
	c.needsInitialDiff = false
}

func (c *Component) nextTicket() int64 {
	c.diffTicket++
	return c.diffTicket
}

// runDiff runs the full (behaviors + own) diff pipeline and commits
// unless any participant deferred. It is a no-op if nothing is staged.
// phase is the taxonomy tag attached to any error reported during this
// pass: PhaseInitialDiff when called from InitialCommit's first pass,
// PhaseDiff for every steady-state Update() thereafter.
func (c *Component) runDiff(phase Phase) {
	if c.stagedProps == nil {
		return
	}
	ticket := c.nextTicket()
	prev, next := c.props, c.stagedProps

	ctx := &BehaviorContext{Component: c}
	result := DiffCommit

	for _, b := range c.behaviors {
		if b.Diff == nil {
			continue
		}
		res, err := b.Diff(prev, next, ctx)
		if err != nil {
			c.reportError(err, phase, nil)
			result = DiffDefer
			continue
		}
		if res == DiffDefer {
			result = DiffDefer
		}
	}

	if differ, ok := c.logic.(Differ); ok {
		res, err := differ.Diff(prev, next, ctx)
		if err != nil {
			c.reportError(err, phase, nil)
			result = DiffDefer
		} else if res == DiffDefer {
			result = DiffDefer
		}
	} else if asyncDiffer, ok := c.logic.(AsyncDiffer); ok {
		// A behavior may already have forced DEFER by returning DiffDefer
		// above (result) rather than calling ctx.Defer() — both must be
		// honored once the async diff resolves, not just ctx.deferred.
		behaviorsDeferred := result == DiffDefer
		asyncDiffer.DiffAsync(prev, next, ctx, func(res DiffResult, err error) {
			if err != nil {
				c.reportError(err, phase, nil)
				res = DiffDefer
			}
			c.resolveDiff(ticket, res, behaviorsDeferred || ctx.deferred)
		})
		return
	}

	if ctx.deferred {
		result = DiffDefer
	}
	c.resolveDiff(ticket, result, false)
}

// resolveDiff applies a diff outcome if ticket is still current. A stale
// ticket (an earlier async diff resolving after a newer update() started)
// is silently treated as DEFER, per spec.md's stale-diff-safety property.
func (c *Component) resolveDiff(ticket int64, result DiffResult, forcedDefer bool) {
	if ticket != c.diffTicket {
		return
	}
	if forcedDefer {
		result = DiffDefer
	}
	if result == DiffDefer {
		return
	}
	c.prevProps = c.props
	c.props = c.stagedProps
	c.stagedProps = nil
	if c.runtime.IsReady() {
		c.runtime.Scheduler.MarkDirty(c)
	}
}

// runPreReadyDiff runs only the component's own diff (behaviors are
// skipped so their side-effect handlers cannot fire before the host
// exists). Props are never committed here and the scheduler is never
// woken, regardless of outcome; preReadyDiffRan is set so the first
// post-ready flush knows to commit without re-running diff.
func (c *Component) runPreReadyDiff() {
	if differ, ok := c.logic.(Differ); ok {
		ctx := &BehaviorContext{Component: c}
		if _, err := differ.Diff(c.props, c.stagedProps, ctx); err != nil {
			c.reportError(err, PhaseInitialDiff, nil)
		}
	}
	c.preReadyDiffRan = true
}

// dispatchOp is the CommandBuffer.Drain effect callback.
func (c *Component) dispatchOp(op *Op) {
	if op.Type == InitOpType {
		c.runInit()
		c.runtime.observe(func() { c.runtime.ObserverHooks().OnOpDrained(c, op) })
		return
	}

	if prev, ok := c.cleanups[op.Key]; ok {
		delete(c.cleanups, op.Key)
		c.safeCleanup(prev, PhaseCleanup, op)
	}

	var collected []Cleanup
	for _, b := range c.behaviors {
		if !b.matchesOp(op) {
			continue
		}
		ctx := &BehaviorContext{Component: c}
		cu, err := b.Effect(op, ctx)
		if err != nil {
			c.reportError(err, PhaseEffect, op)
		}
		if cu != nil {
			collected = append(collected, cu)
		}
		collected = append(collected, ctx.extra...)
	}

	if effector, ok := c.logic.(Effector); ok {
		cu, err := effector.Effect(op)
		if err != nil {
			c.reportError(err, PhaseEffect, op)
		}
		if cu != nil {
			collected = append(collected, cu)
		}
	}

	if len(collected) > 0 {
		c.cleanups[op.Key] = c.combineCleanups(collected)
	}

	c.runtime.observe(func() { c.runtime.ObserverHooks().OnOpDrained(c, op) })
}

// runInit runs behaviors' Init in base-to-derived order, then the
// component's own Init. Behavior cleanups become lifetime cleanups;
// the component's own init cleanup is kept separate as legacyInitCleanup
// so Destroy can run it last, per spec.md's destroy-ordering property.
func (c *Component) runInit() {
	for _, b := range c.behaviors {
		if b.Init == nil {
			continue
		}
		ctx := &BehaviorContext{Component: c}
		cu, err := b.Init(ctx)
		if err != nil {
			c.reportError(err, PhaseInit, nil)
		}
		if cu != nil {
			c.lifetimeCleanups = append(c.lifetimeCleanups, cu)
		}
		c.lifetimeCleanups = append(c.lifetimeCleanups, ctx.extra...)
	}

	if initializer, ok := c.logic.(Initializer); ok {
		ctx := &BehaviorContext{Component: c}
		cu, err := initializer.Init(ctx)
		if err != nil {
			c.reportError(err, PhaseInit, nil)
		}
		if cu != nil {
			c.legacyInitCleanup = cu
		}
		c.lifetimeCleanups = append(c.lifetimeCleanups, ctx.extra...)
	}

	c.initDone = true
}

// combineCleanups returns a Cleanup that invokes cleanups in LIFO order,
// reporting (but not stopping on) each one's error independently.
func (c *Component) combineCleanups(cleanups []Cleanup) Cleanup {
	return func() error {
		for i := len(cleanups) - 1; i >= 0; i-- {
			c.safeCleanup(cleanups[i], PhaseCleanup, nil)
		}
		return nil
	}
}

// safeCleanup runs fn, recovering a panic and reporting either the
// returned error or the recovered panic through the component's runtime.
func (c *Component) safeCleanup(fn Cleanup, phase Phase, op *Op) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.reportError(panicError{r}, phase, op)
		}
	}()
	if err := fn(); err != nil {
		c.reportError(err, phase, op)
	}
}

func (c *Component) reportError(err error, phase Phase, op *Op) {
	c.runtime.ReportError(err, ErrorContext{Component: c, Op: op, Phase: phase})
}

type panicError struct{ value any }

func (p panicError) Error() string { return "core: recovered panic" }
