package ride

import "github.com/ridecore/ride/pkg/core"

// Re-exported priority, diff-result, locality, and phase constants, so
// callers writing components against this package never need to import
// pkg/core directly for anything but the rare advanced case (a custom
// Host implementation).
const (
	PriorityHighest = core.PriorityHighest
	PriorityHigh    = core.PriorityHigh
	PriorityMedium  = core.PriorityMedium
	PriorityLow     = core.PriorityLow
	PriorityLowest  = core.PriorityLowest
)

const (
	DiffCommit = core.DiffCommit
	DiffDefer  = core.DiffDefer
)

const (
	LocalityDepth   = core.LocalityDepth
	LocalitySubtree = core.LocalitySubtree
)

const (
	PhaseHostInit    = core.PhaseHostInit
	PhaseAttach      = core.PhaseAttach
	PhaseInit        = core.PhaseInit
	PhaseDiff        = core.PhaseDiff
	PhaseInitialDiff = core.PhaseInitialDiff
	PhaseEffect      = core.PhaseEffect
	PhaseCleanup     = core.PhaseCleanup
)

var (
	ErrIdleTimeout = core.ErrIdleTimeout
	ErrDestroyed   = core.ErrDestroyed
	ErrInvalidOp   = core.ErrInvalidOp
)
