// Package clock re-exports the injected, monotonic time source used
// across the runtime. Nothing in this module reads the wall clock
// directly: every component that needs "now" takes a clock.Clock at
// construction time, per spec.md §9's "implicit wall-clock reads"
// redesign note. Production wires quartz.NewReal(); tests wire
// quartz.NewMock(t) for deterministic control over action timeouts,
// disconnect grace windows, and auto-start delays.
package clock

import "github.com/coder/quartz"

// Clock is the time surface the runtime depends on.
type Clock = quartz.Clock

// New returns the production clock backed by the real wall clock.
func New() Clock {
	return quartz.NewReal()
}
