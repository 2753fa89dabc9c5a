package core

import (
	"log/slog"
	"sync"
)

// ErrorHandler is implemented by anything that wants first refusal on a
// reported error: the app class (as a static function supplied to
// RuntimeConfig), an app instance, or — during early boot, before the app
// instance is available — an individual component.
type ErrorHandler interface {
	OnError(err error, ctx ErrorContext)
}

// RuntimeConfig configures a Runtime at construction. All fields are
// optional; zero values resolve to the documented defaults the same way
// the teacher's own Config struct resolves a nil Logger to slog.Default().
type RuntimeConfig struct {
	// Logger receives the default-path error log line when no OnError
	// handler claims a reported error. If nil, slog.Default() is used.
	Logger *slog.Logger

	// StaticOnError is the app class's static error handler, preferred
	// over everything else when set.
	StaticOnError func(err error, ctx ErrorContext)

	// Observer receives flush/op/error notifications; nil is replaced
	// with NoopObserver.
	Observer Observer
}

// Runtime is the shared handle a Scheduler and every Component in a
// mounted tree hold. It owns the host reference (set asynchronously once
// createHost resolves), readiness state, and the error-reporting router.
type Runtime struct {
	Scheduler *Scheduler

	host     Host
	appOnError func(err error, ctx ErrorContext)
	logger   *slog.Logger
	observer Observer

	root *Component

	readyOnce sync.Once
	readyCh   chan struct{}
	ready     bool
}

// NewRuntime constructs a Runtime and its Scheduler together; budget is
// the root class's static progressive.budget, in milliseconds (<=0 or
// non-finite means unbounded).
func NewRuntime(cfg RuntimeConfig, budget float64) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NoopObserver{}
	}

	rt := &Runtime{
		appOnError: cfg.StaticOnError,
		logger:     logger,
		observer:   observer,
		readyCh:    make(chan struct{}),
	}
	rt.Scheduler = NewScheduler(rt, budget)
	return rt
}

// IsReady reports whether the host has been set via SetHost.
func (rt *Runtime) IsReady() bool {
	return rt.ready
}

// WhenReady returns a channel that is closed once the host becomes ready.
func (rt *Runtime) WhenReady() <-chan struct{} {
	return rt.readyCh
}

// Host returns the current host, or nil before SetHost has run.
func (rt *Runtime) Host() Host {
	return rt.host
}

// SetHost installs the host once createHost resolves, marks the runtime
// ready, and dirties the root component (if one has been set) so its
// buffered pre-ready ops get a chance to flush.
func (rt *Runtime) SetHost(host Host) {
	rt.host = host
	rt.ready = true
	rt.readyOnce.Do(func() { close(rt.readyCh) })
	if rt.root != nil {
		rt.Scheduler.MarkDirty(rt.root)
	}
}

// SetRoot records the root component so the default host-init error path
// and SetHost's post-ready dirty-mark have something to act on.
func (rt *Runtime) SetRoot(root *Component) {
	rt.root = root
}

// ObserverHooks returns the runtime's configured Observer (never nil).
func (rt *Runtime) ObserverHooks() Observer {
	return rt.observer
}

// ReportError routes an error through, in order: the app's static
// OnError, the app instance's OnError (if the root component implements
// ErrorHandler), an ancestor component-scoped handler (useful before the
// root is fully constructed), and finally a default slog line. It never
// panics and never re-enters the scheduler — a handler that panics is
// recovered and logged instead.
func (rt *Runtime) ReportError(err error, ctx ErrorContext) {
	if err == nil {
		return
	}

	handled := rt.tryHandler(func() bool {
		if rt.appOnError == nil {
			return false
		}
		rt.appOnError(err, ctx)
		return true
	})

	if !handled {
		handled = rt.tryHandler(func() bool {
			if rt.root == nil {
				return false
			}
			if h, ok := rt.root.Logic().(ErrorHandler); ok {
				h.OnError(err, ctx)
				return true
			}
			return false
		})
	}

	if !handled {
		handled = rt.tryHandler(func() bool {
			for c := ctx.Component; c != nil; c = c.parent {
				if h, ok := c.Logic().(ErrorHandler); ok {
					h.OnError(err, ctx)
					return true
				}
			}
			return false
		})
	}

	if !handled {
		rt.logger.Error("ride: unhandled runtime error",
			"error", err,
			"phase", string(ctx.Phase),
		)
	}

	rt.observe(func() { rt.observer.OnError(err, ctx) })
}

// observe runs fn, recovering and logging any panic rather than letting a
// misbehaving Observer escape into the scheduler or component dispatch
// that called it.
func (rt *Runtime) observe(fn func()) {
	safeObserve(func(err error) {
		rt.logger.Error("ride: observer panicked", "error", err)
	}, fn)
}

// tryHandler runs fn, recovering any panic so a broken OnError handler
// can never escape into the scheduler. Returns fn's result, or false if
// fn panicked.
func (rt *Runtime) tryHandler(fn func() bool) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("ride: OnError handler panicked", "recovered", r)
			handled = false
		}
	}()
	return fn()
}
