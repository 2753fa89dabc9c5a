// Package core implements the runtime that backs the ride framework: a
// component tree whose nodes enqueue operations instead of rendering
// themselves, a CommandBuffer that coalesces and priority-sorts those
// operations per component, and a Scheduler that drains them across
// animation frames under a budget.
//
// The package is single-threaded and cooperative by design. Every exported
// type here is meant to be driven from one goroutine at a time — the
// Scheduler's flush loop and whatever user code it calls into (diff, init,
// effect, cleanups). There is no internal locking; see Runtime and
// Scheduler for the suspension points where that goroutine may yield to
// its caller between awaits.
package core
