// Package transport defines the uniform send/recv/connect/close surface
// implemented by both the in-process channel transport and the cross-process
// pub/sub transport, the way rclone's fs.Fs interface is implemented
// uniformly by every storage backend.
package transport

import (
	"context"

	"github.com/protoflow-dev/protoflow/port"
)

// Transport is the operation surface every backend (in-process, pub/sub)
// must provide.
type Transport interface {
	// OpenInput allocates a fresh input port, initially Open.
	OpenInput() port.InputID
	// OpenOutput allocates a fresh output port, initially Open.
	OpenOutput() port.OutputID
	// Close closes the named port. Returns true on the transition, false if
	// the port was already closed.
	Close(id port.ID) bool
	// Connect binds out to in. Succeeds only if both are currently Open.
	Connect(out port.OutputID, in port.InputID) bool
	// Send blocks until payload is accepted into the connection's buffer
	// (in-process) or acknowledged (pub/sub). Returns an *errs.Error on
	// failure.
	Send(ctx context.Context, out port.OutputID, payload []byte) error
	// Recv blocks until a message arrives or EOS. (payload, false, nil) is a
	// message; (nil, true, nil) is EOS; a non-nil err is a transport error.
	Recv(ctx context.Context, in port.InputID) (payload []byte, eos bool, err error)
	// TryRecv is the non-blocking variant of Recv. hasMessage is false and
	// eos is false when nothing is available yet.
	TryRecv(in port.InputID) (payload []byte, hasMessage bool, eos bool, err error)
	// State reports the current lifecycle state of id.
	State(id port.ID) port.State
}
