// Package ride is the public facade over pkg/core: it mounts a root
// component, attaches a host to it, exposes the error-handling and
// observer hooks a whole app configures once, and re-exports the types
// most callers only ever need by their short names — the same way the
// teacher's root package re-exports pkg/vango.
package ride
