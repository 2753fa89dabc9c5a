package core

import "errors"

// Phase identifies which part of the component lifecycle an error came
// from, matching the taxonomy a reported error carries to OnError.
type Phase string

const (
	PhaseHostInit    Phase = "host-init"
	PhaseAttach      Phase = "attach"
	PhaseInit        Phase = "init"
	PhaseDiff        Phase = "diff"
	PhaseInitialDiff Phase = "initial-diff"
	PhaseEffect      Phase = "effect"
	PhaseCleanup     Phase = "cleanup"
)

// ErrIdleTimeout is returned by Scheduler.WhenIdle when the system fails to
// quiesce within the configured number of iterations. It exists as a debug
// safety net, not a runtime-level timeout.
var ErrIdleTimeout = errors.New("core: whenIdle exceeded its iteration budget")

// ErrDestroyed is returned when an operation is attempted against a
// Component after Destroy has already run.
var ErrDestroyed = errors.New("core: component is destroyed")

// ErrInvalidOp is returned by CommandBuffer.Push when type or key is empty.
var ErrInvalidOp = errors.New("core: op requires a non-empty type and key")

// ErrorContext carries the component, op, and phase an error occurred in.
// It is passed verbatim to whichever OnError handler Runtime.ReportError
// resolves to.
type ErrorContext struct {
	Component *Component
	Op        *Op
	Phase     Phase
}
