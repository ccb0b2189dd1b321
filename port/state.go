package port

import "sync/atomic"

// State is the lifecycle stage of a port. It only ever advances toward
// Closed: Open -> Connected -> Closed, or Open -> Closed directly.
type State int32

const (
	// Open is the initial state of every freshly allocated port.
	Open State = iota
	// Connected means the port has a live peer on the other end.
	Connected
	// Closed is terminal; no transition leads out of it.
	Closed
)

// Choices lists the display names for State, in the rclone fs.Enum style.
func (State) Choices() []string {
	return []string{
		Open:      "open",
		Connected: "connected",
		Closed:    "closed",
	}
}

func (s State) String() string {
	choices := State(0).Choices()
	if int(s) < 0 || int(s) >= len(choices) {
		return "unknown"
	}
	return choices[s]
}

// IsOpen reports whether s is State Open.
func (s State) IsOpen() bool { return s == Open }

// IsConnected reports whether s is State Connected.
func (s State) IsConnected() bool { return s == Connected }

// IsClosed reports whether s is State Closed.
func (s State) IsClosed() bool { return s == Closed }

// Cell is an atomically-updated State with idempotent Close semantics. The
// zero value starts Open.
type Cell struct {
	v int32
}

// Load returns the current state.
func (c *Cell) Load() State { return State(atomic.LoadInt32(&c.v)) }

// Store unconditionally sets the state. Used internally by transports that
// have already validated the transition.
func (c *Cell) Store(s State) { atomic.StoreInt32(&c.v, int32(s)) }

// ToConnected transitions Open -> Connected. Returns false if the state was
// not Open (including if it was already Connected or Closed).
func (c *Cell) ToConnected() bool {
	return atomic.CompareAndSwapInt32(&c.v, int32(Open), int32(Connected))
}

// Close transitions the cell to Closed from any non-terminal state. Returns
// true exactly once — the call that performs the transition — and false on
// every subsequent call, matching the spec's idempotent-close contract.
func (c *Cell) Close() bool {
	for {
		cur := atomic.LoadInt32(&c.v)
		if State(cur) == Closed {
			return false
		}
		if atomic.CompareAndSwapInt32(&c.v, cur, int32(Closed)) {
			return true
		}
	}
}
