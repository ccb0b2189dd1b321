package block

import (
	"context"
	"time"

	"github.com/protoflow-dev/protoflow/port"
)

// PortStater is satisfied by port.Input[T] and port.Output[T]; WaitFor uses
// it without caring about the element type.
type PortStater interface {
	State() port.State
}

// Runtime is passed to Prepare and Execute, providing the suspension
// primitives a Block needs: sleeping, waiting on a port, yielding, and
// checking for shutdown.
type Runtime interface {
	// SleepFor suspends the calling block for d, or until shutdown/ctx
	// cancellation, whichever comes first.
	SleepFor(ctx context.Context, d time.Duration) error
	// SleepUntil suspends the calling block until t.
	SleepUntil(ctx context.Context, t time.Time) error
	// WaitFor blocks until p's state is no longer Open — i.e. until it
	// becomes Connected or Closed. Does not distinguish which.
	WaitFor(ctx context.Context, p PortStater) error
	// YieldNow is a cooperative scheduling hint.
	YieldNow()
	// IsAlive is false once the whole system is terminating; a Block should
	// return from Execute promptly once this flips.
	IsAlive() bool
	// RandomDuration returns a value uniformly distributed in [min, max),
	// for jittered delays.
	RandomDuration(min, max time.Duration) time.Duration
}
