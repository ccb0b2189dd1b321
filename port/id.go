// Package port defines the stable port identifier and state types shared by
// every transport implementation.
package port

import (
	"fmt"
	"sync/atomic"
)

// ID is the sign-tagged union used on the wire and across transports: a
// negative value names an input port, a positive value names an output
// port. Zero is reserved and never allocated.
type ID int64

// InputID names a port that only ever receives messages.
type InputID ID

// OutputID names a port that only ever sends messages.
type OutputID ID

// PortID returns id widened to the untyped ID.
func (id InputID) PortID() ID { return ID(id) }

// PortID returns id widened to the untyped ID.
func (id OutputID) PortID() ID { return ID(id) }

func (id InputID) String() string  { return fmt.Sprintf("in:%d", int64(id)) }
func (id OutputID) String() string { return fmt.Sprintf("out:%d", int64(id)) }
func (id ID) String() string {
	if id.IsInput() {
		return InputID(id).String()
	}
	return OutputID(id).String()
}

// IsInput reports whether id names an input port.
func (id ID) IsInput() bool { return id < 0 }

// IsOutput reports whether id names an output port.
func (id ID) IsOutput() bool { return id > 0 }

// AsInput converts id to an InputID, validating its sign.
func (id ID) AsInput() (InputID, error) {
	if !id.IsInput() {
		return 0, fmt.Errorf("port: %d is not an input port id", int64(id))
	}
	return InputID(id), nil
}

// AsOutput converts id to an OutputID, validating its sign.
func (id ID) AsOutput() (OutputID, error) {
	if !id.IsOutput() {
		return 0, fmt.Errorf("port: %d is not an output port id", int64(id))
	}
	return OutputID(id), nil
}

// Allocator hands out never-recycled, direction-tagged port IDs. The zero
// value is ready to use.
type Allocator struct {
	nextInput  int64 // incremented; input IDs are its negation
	nextOutput int64 // incremented
}

// NextInput allocates a fresh InputID. Never returns the same value twice.
func (a *Allocator) NextInput() InputID {
	return InputID(-atomic.AddInt64(&a.nextInput, 1))
}

// NextOutput allocates a fresh OutputID. Never returns the same value twice.
func (a *Allocator) NextOutput() OutputID {
	return OutputID(atomic.AddInt64(&a.nextOutput, 1))
}
