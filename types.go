package ride

import "github.com/ridecore/ride/pkg/core"

// Type aliases onto pkg/core, so application code can write ride.Component
// instead of core.Component without losing any method set or assignability.
type (
	Component       = core.Component
	ComponentConfig = core.ComponentConfig
	Host            = core.Host
	Node            = core.Node
	Op              = core.Op
	Behavior        = core.Behavior
	BehaviorContext = core.BehaviorContext
	Cleanup         = core.Cleanup
	DiffResult      = core.DiffResult
	Locality        = core.Locality
	Phase           = core.Phase
	ErrorContext    = core.ErrorContext
	ErrorHandler    = core.ErrorHandler
	Observer        = core.Observer
	NoopObserver    = core.NoopObserver
	QueueOptions    = core.QueueOptions
	SquashFunc      = core.SquashFunc
	ChildParenter   = core.ChildParenter
	Teardownable    = core.Teardownable
	Configurer      = core.Configurer
	Initializer     = core.Initializer
	Differ          = core.Differ
	Effector        = core.Effector
	AsyncDiffer     = core.AsyncDiffer
)
