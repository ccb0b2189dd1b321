package scheduler

import (
	"context"
	"math/rand"
	stdruntime "runtime"
	"time"

	"github.com/protoflow-dev/protoflow/block"
	"github.com/protoflow-dev/protoflow/errs"
)

// runtime is the concrete block.Runtime handed to every block under one
// Process: all blocks of the same system share the same alive flag, so a
// single shutdown flips suspension primitives for everyone at once.
type runtime struct {
	alive *aliveFlag
}

var _ block.Runtime = (*runtime)(nil)

func (r *runtime) IsAlive() bool { return r.alive.Load() }

func (r *runtime) YieldNow() { stdruntime.Gosched() }

func (r *runtime) SleepFor(ctx context.Context, d time.Duration) error {
	return r.SleepUntil(ctx, time.Now().Add(d))
}

func (r *runtime) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		if !r.alive.Load() {
			return errs.TerminatedErr()
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		if !r.alive.Load() {
			return errs.TerminatedErr()
		}
		return nil
	case <-r.alive.Done():
		return errs.TerminatedErr()
	case <-ctx.Done():
		return errs.TerminatedErr()
	}
}

// waitPoll is how often WaitFor re-checks a port's state. The spec makes no
// fairness or latency guarantee beyond the host scheduler's, so a short poll
// is conformant and keeps the implementation independent of any particular
// transport's internal notification mechanism.
const waitPoll = 500 * time.Microsecond

func (r *runtime) WaitFor(ctx context.Context, p block.PortStater) error {
	if !p.State().IsOpen() {
		return nil
	}
	ticker := time.NewTicker(waitPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !p.State().IsOpen() {
				return nil
			}
			if !r.alive.Load() {
				return errs.TerminatedErr()
			}
		case <-r.alive.Done():
			return errs.TerminatedErr()
		case <-ctx.Done():
			return errs.TerminatedErr()
		}
	}
}

func (r *runtime) RandomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
