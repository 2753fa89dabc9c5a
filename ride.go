package ride

import (
	"log/slog"

	"github.com/ridecore/ride/pkg/core"
)

// Config configures an App at construction. All fields are optional.
type Config struct {
	// Budget is the root component's frame budget in milliseconds; <=0
	// means a flush never yields on the budget's own account.
	Budget float64

	// Logger receives the default-path error log line when no OnError
	// handler claims a reported error.
	Logger *slog.Logger

	// OnError is the app's static error handler — first in the
	// resolution chain described in pkg/core's Runtime.ReportError.
	OnError func(err error, ctx ErrorContext)

	// Observer, if set, receives flush/op/error notifications — wire
	// pkg/metrics or pkg/tracing here.
	Observer Observer
}

// App is the top-level handle returned by New: it owns the runtime, the
// mounted root component, and whichever host gets attached to it.
type App struct {
	rt   *core.Runtime
	root *Component
}

// New constructs an App. No component is mounted and no host is attached
// yet — call Mount, then Attach once a host is available.
func New(cfg Config) *App {
	rt := core.NewRuntime(core.RuntimeConfig{
		Logger:        cfg.Logger,
		StaticOnError: cfg.OnError,
		Observer:      cfg.Observer,
	}, cfg.Budget)
	return &App{rt: rt}
}

// Mount constructs the app's root component. factory is called once with
// the new Component so the caller's logic type can embed it; props are
// staged immediately (committed synchronously if a host is already
// attached, buffered otherwise per the pre-ready diff rules).
func (a *App) Mount(factory func(*Component) any, props map[string]any) *Component {
	root := core.NewComponent(nil, a.rt, factory)
	a.rt.SetRoot(root)
	a.root = root
	root.Update(props)
	return root
}

// Mount constructs a child of parent. It is a thin wrapper over
// (*Component).Mount for callers who prefer the package-level spelling.
func Mount(parent *Component, factory func(*Component) any, props map[string]any) *Component {
	return parent.Mount(factory, props)
}

// Attach installs host as the app's render target. This is the point at
// which the runtime becomes ready: the root component is marked dirty, so
// its props and ops buffered before Attach are flushed on the next call to
// Flush or FlushUntilIdle. Other components constructed before Attach are
// not marked dirty by it.
func (a *App) Attach(host Host) {
	a.rt.SetHost(host)
}

// IsReady reports whether Attach has been called.
func (a *App) IsReady() bool { return a.rt.IsReady() }

// WhenReady returns a channel closed once Attach has been called.
func (a *App) WhenReady() <-chan struct{} { return a.rt.WhenReady() }

// Flush drains one budgeted batch of dirty components; see
// (*core.Scheduler).Flush for the ordering and yield semantics.
func (a *App) Flush() bool { return a.rt.Scheduler.Flush() }

// FlushUntilIdle calls Flush until no component is dirty, up to
// maxIterations times, returning ErrIdleTimeout if the tree never
// quiesces within that budget.
func (a *App) FlushUntilIdle(maxIterations int) error {
	return a.rt.Scheduler.WhenIdle(maxIterations)
}

// Root returns the mounted root component, or nil before Mount is called.
func (a *App) Root() *Component { return a.root }

// Unmount destroys the root component (and, transitively, its whole
// tree) and tears down the attached host if it implements Teardownable.
func (a *App) Unmount() error {
	if a.root != nil {
		a.root.Destroy()
		a.root = nil
	}
	if host := a.rt.Host(); host != nil {
		if t, ok := host.(Teardownable); ok {
			return t.Teardown()
		}
	}
	return nil
}
