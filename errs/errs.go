// Package errs implements the port/transport error taxonomy from the spec,
// in the style of rclone's fs/fserrors wrapper constructors: a call site
// wraps an underlying cause with a Kind, and callers use errors.Is to branch
// on it without caring about the message text.
package errs

import (
	"errors"
	"fmt"

	"github.com/protoflow-dev/protoflow/port"
)

// Kind classifies a transport or block-level error.
type Kind int

const (
	// Other is the catch-all kind for a human-readable message with no
	// more specific classification.
	Other Kind = iota
	// Invalid means a PortID was not allocated by this transport instance.
	Invalid
	// Closed means the local side of the port was closed.
	Closed
	// Disconnected means no peer is, or remains, attached.
	Disconnected
	// RecvFailed is a transport-layer receive I/O error.
	RecvFailed
	// SendFailed is a transport-layer send I/O error.
	SendFailed
	// Decode means a received payload was malformed.
	Decode
	// Terminated means the runtime is shutting down.
	Terminated
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case Closed:
		return "closed"
	case Disconnected:
		return "disconnected"
	case RecvFailed:
		return "recv failed"
	case SendFailed:
		return "send failed"
	case Decode:
		return "decode"
	case Terminated:
		return "terminated"
	default:
		return "other"
	}
}

// Error is a Kind-tagged error, optionally wrapping a cause and naming the
// port it concerns.
type Error struct {
	Kind  Kind
	Port  port.ID
	hasID bool
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.hasID {
		if e.msg != "" {
			return fmt.Sprintf("%s (port %s): %s", e.Kind, e.Port, e.msg)
		}
		return fmt.Sprintf("%s (port %s)", e.Kind, e.Port)
	}
	if e.msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.msg)
	}
	return e.Kind.String()
}

// Unwrap returns the wrapped cause, if any, so errors.Is/As see through it.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same Kind, so callers can
// write errors.Is(err, errs.DisconnectedErr(0)) — see the package-level Is
// helper below for the more common usage.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func newErr(k Kind, cause error, msg string) *Error {
	return &Error{Kind: k, cause: cause, msg: msg}
}

func newPortErr(k Kind, id port.ID, cause error, msg string) *Error {
	return &Error{Kind: k, Port: id, hasID: true, cause: cause, msg: msg}
}

// InvalidPort builds an Invalid error for a port id not owned by the
// transport.
func InvalidPort(id port.ID) *Error { return newPortErr(Invalid, id, nil, "") }

// ClosedErr builds a Closed error naming the offending port.
func ClosedErr(id port.ID) *Error { return newPortErr(Closed, id, nil, "") }

// DisconnectedErr builds a Disconnected error naming the port.
func DisconnectedErr(id port.ID) *Error { return newPortErr(Disconnected, id, nil, "") }

// RecvFailedErr wraps cause as a RecvFailed error.
func RecvFailedErr(id port.ID, cause error) *Error {
	return newPortErr(RecvFailed, id, cause, cause.Error())
}

// SendFailedErr wraps cause as a SendFailed error.
func SendFailedErr(id port.ID, cause error) *Error {
	return newPortErr(SendFailed, id, cause, cause.Error())
}

// DecodeErr wraps cause as a Decode error.
func DecodeErr(cause error) *Error { return newErr(Decode, cause, cause.Error()) }

// TerminatedErr builds the block-level shutdown-requested error.
func TerminatedErr() *Error { return newErr(Terminated, nil, "") }

// Otherf builds a catch-all Other error with a formatted message.
func Otherf(format string, args ...any) *Error {
	return newErr(Other, nil, fmt.Sprintf(format, args...))
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
