package port

import (
	"bytes"
	"context"

	"github.com/protoflow-dev/protoflow/message"
)

// Sender is the subset of transport.Transport a typed Output needs. Defined
// here (rather than imported from package transport) to avoid a dependency
// cycle between port and transport.
type Sender interface {
	Send(ctx context.Context, out OutputID, payload []byte) error
	Close(id ID) bool
	State(id ID) State
}

// Receiver is the subset of transport.Transport a typed Input needs.
type Receiver interface {
	Recv(ctx context.Context, in InputID) (payload []byte, eos bool, err error)
	TryRecv(in InputID) (payload []byte, hasMessage bool, eos bool, err error)
	Close(id ID) bool
	State(id ID) State
}

// Output is a typed, move-only handle over an OutputID. Cloning an Output
// value shares the same underlying port: closing via any copy closes the
// port for every copy, since the ID (not any local state) is the identity.
type Output[T any] struct {
	id   OutputID
	sink Sender
}

// NewOutput wraps id as a typed Output backed by sink. Called by the system
// builder; blocks receive an already-constructed Output.
func NewOutput[T any](id OutputID, sink Sender) Output[T] {
	return Output[T]{id: id, sink: sink}
}

// ID returns the underlying port identifier.
func (o Output[T]) ID() OutputID { return o.id }

// State reports the port's current lifecycle state.
func (o Output[T]) State() State { return o.sink.State(o.id.PortID()) }

// Close closes the port. Idempotent; returns true on the transition.
func (o Output[T]) Close() bool { return o.sink.Close(o.id.PortID()) }

// Send encodes value length-delimited and hands the bytes to the transport,
// blocking until accepted.
func (o Output[T]) Send(ctx context.Context, value T) error {
	content, err := message.Encode(value)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := message.WriteFramed(&buf, content); err != nil {
		return err
	}
	return o.sink.Send(ctx, o.id, buf.Bytes())
}

// Input is a typed, move-only handle over an InputID.
type Input[T any] struct {
	id     InputID
	source Receiver
}

// NewInput wraps id as a typed Input backed by source.
func NewInput[T any](id InputID, source Receiver) Input[T] {
	return Input[T]{id: id, source: source}
}

// ID returns the underlying port identifier.
func (i Input[T]) ID() InputID { return i.id }

// State reports the port's current lifecycle state.
func (i Input[T]) State() State { return i.source.State(i.id.PortID()) }

// Close closes the port. Idempotent; returns true on the transition.
func (i Input[T]) Close() bool { return i.source.Close(i.id.PortID()) }

// Recv blocks for the next value, or reports EOS as (zero, false, nil).
func (i Input[T]) Recv(ctx context.Context) (value T, ok bool, err error) {
	raw, eos, err := i.source.Recv(ctx, i.id)
	if err != nil {
		return value, false, err
	}
	if eos {
		return value, false, nil
	}
	return decodeFramed[T](raw)
}

// TryRecv is the non-blocking variant of Recv. hasValue is false with no
// error when nothing is available yet.
func (i Input[T]) TryRecv() (value T, hasValue bool, eos bool, err error) {
	raw, hasMessage, eos, err := i.source.TryRecv(i.id)
	if err != nil || eos || !hasMessage {
		return value, false, eos, err
	}
	value, ok, err := decodeFramed[T](raw)
	return value, ok, false, err
}

func decodeFramed[T any](raw []byte) (value T, ok bool, err error) {
	content, ferr := message.ReadFramed(bytes.NewReader(raw))
	if ferr != nil {
		return value, false, ferr
	}
	if len(content) == 0 {
		// A zero-length payload is re-interpreted as EOS-by-disconnect,
		// per spec §4.2/§4.6.
		return value, false, nil
	}
	value, err = message.Decode[T](content)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}
