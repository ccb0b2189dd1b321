// Package inprocess implements the bounded, capacity-1, channel-backed
// transport described in spec §4.4: one channel per connection, reader-writer
// locks over the port tables, and disconnect-as-close-of-signal-channel
// semantics so a blocked Send or Recv wakes promptly when the peer goes away.
package inprocess

import (
	"context"
	"sync"

	"github.com/protoflow-dev/protoflow/errs"
	"github.com/protoflow-dev/protoflow/metrics"
	"github.com/protoflow-dev/protoflow/port"
)

// connection is the capacity-1 channel backing one output-input pair, plus
// the two close signals used to unblock a peer's pending Send/Recv. Each
// signal channel is closed at most once, by whichever Close call on that
// side wins the race to transition its port's Cell to Closed — so neither
// side ever double-closes a channel.
type connection struct {
	data           chan []byte
	outputClosedCh chan struct{}
	inputClosedCh  chan struct{}
}

func newConnection() *connection {
	return &connection{
		data:           make(chan []byte, 1),
		outputClosedCh: make(chan struct{}),
		inputClosedCh:  make(chan struct{}),
	}
}

type outputPort struct {
	cell   port.Cell
	connMu sync.RWMutex
	conn   *connection
}

type inputPort struct {
	cell   port.Cell
	connMu sync.RWMutex
	conn   *connection
}

// Transport is the in-process, channel-backed Transport implementation.
type Transport struct {
	alloc port.Allocator

	mu      sync.RWMutex
	outputs map[port.OutputID]*outputPort
	inputs  map[port.InputID]*inputPort

	metrics *metrics.Transport
}

// New creates an empty in-process transport.
func New() *Transport {
	return &Transport{
		outputs: make(map[port.OutputID]*outputPort),
		inputs:  make(map[port.InputID]*inputPort),
		metrics: metrics.NewTransport("inprocess"),
	}
}

// OpenInput allocates a fresh input port, initially Open.
func (t *Transport) OpenInput() port.InputID {
	id := t.alloc.NextInput()
	t.mu.Lock()
	t.inputs[id] = &inputPort{}
	t.mu.Unlock()
	t.metrics.PortOpened()
	return id
}

// OpenOutput allocates a fresh output port, initially Open.
func (t *Transport) OpenOutput() port.OutputID {
	id := t.alloc.NextOutput()
	t.mu.Lock()
	t.outputs[id] = &outputPort{}
	t.mu.Unlock()
	t.metrics.PortOpened()
	return id
}

func (t *Transport) output(id port.OutputID) *outputPort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.outputs[id]
}

func (t *Transport) input(id port.InputID) *inputPort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inputs[id]
}

// Close closes id, idempotently. Returns true on the transition. connMu is
// held across the cell transition itself (not just the conn lookup) so that
// Close and Connect on the same port can never interleave and leave a port
// Connected with no conn, or vice versa.
func (t *Transport) Close(id port.ID) bool {
	if id.IsInput() {
		in, _ := id.AsInput()
		ip := t.input(in)
		if ip == nil {
			return false
		}
		ip.connMu.Lock()
		if !ip.cell.Close() {
			ip.connMu.Unlock()
			return false
		}
		conn := ip.conn
		ip.connMu.Unlock()
		if conn != nil {
			close(conn.inputClosedCh)
		}
		t.metrics.PortClosed()
		return true
	}
	out, _ := id.AsOutput()
	op := t.output(out)
	if op == nil {
		return false
	}
	op.connMu.Lock()
	if !op.cell.Close() {
		op.connMu.Unlock()
		return false
	}
	conn := op.conn
	op.connMu.Unlock()
	if conn != nil {
		close(conn.outputClosedCh)
	}
	t.metrics.PortClosed()
	return true
}

// Connect binds out to in. Succeeds only if both are currently Open; on
// failure neither port transitions. Locks output before input, consistently,
// so a concurrent Close on either port can never race a transition here.
func (t *Transport) Connect(out port.OutputID, in port.InputID) bool {
	op := t.output(out)
	ip := t.input(in)
	if op == nil || ip == nil {
		return false
	}
	op.connMu.Lock()
	defer op.connMu.Unlock()
	ip.connMu.Lock()
	defer ip.connMu.Unlock()

	if op.cell.Load() != port.Open || ip.cell.Load() != port.Open {
		return false
	}
	conn := newConnection()
	op.cell.Store(port.Connected)
	ip.cell.Store(port.Connected)
	op.conn = conn
	ip.conn = conn
	t.metrics.Connected()
	return true
}

// Send blocks until payload is accepted into the connection's single buffer
// slot, or fails with Closed (local side already closed), Disconnected (no
// peer, or peer closed), or a context error.
func (t *Transport) Send(ctx context.Context, out port.OutputID, payload []byte) error {
	op := t.output(out)
	if op == nil {
		return errs.InvalidPort(out.PortID())
	}
	if op.cell.Load().IsClosed() {
		return errs.ClosedErr(out.PortID())
	}
	op.connMu.RLock()
	conn := op.conn
	op.connMu.RUnlock()
	if conn == nil {
		return errs.DisconnectedErr(out.PortID())
	}
	select {
	case conn.data <- payload:
		t.metrics.MessageSent(len(payload))
		return nil
	case <-conn.inputClosedCh:
		return errs.DisconnectedErr(out.PortID())
	case <-ctx.Done():
		return errs.SendFailedErr(out.PortID(), ctx.Err())
	}
}

// Recv blocks until a message arrives or EOS (peer closed, local port
// closed, or the port was never connected).
func (t *Transport) Recv(ctx context.Context, in port.InputID) (payload []byte, eos bool, err error) {
	ip := t.input(in)
	if ip == nil {
		return nil, false, errs.InvalidPort(in.PortID())
	}
	if ip.cell.Load().IsClosed() {
		return nil, true, nil
	}
	ip.connMu.RLock()
	conn := ip.conn
	ip.connMu.RUnlock()
	if conn == nil {
		return nil, true, nil
	}
	select {
	case payload := <-conn.data:
		t.metrics.MessageReceived(len(payload))
		return payload, false, nil
	case <-conn.outputClosedCh:
		select {
		case payload := <-conn.data:
			t.metrics.MessageReceived(len(payload))
			return payload, false, nil
		default:
		}
		return nil, true, nil
	case <-ctx.Done():
		return nil, false, errs.RecvFailedErr(in.PortID(), ctx.Err())
	}
}

// TryRecv is the non-blocking variant of Recv.
func (t *Transport) TryRecv(in port.InputID) (payload []byte, hasMessage bool, eos bool, err error) {
	ip := t.input(in)
	if ip == nil {
		return nil, false, false, errs.InvalidPort(in.PortID())
	}
	if ip.cell.Load().IsClosed() {
		return nil, false, true, nil
	}
	ip.connMu.RLock()
	conn := ip.conn
	ip.connMu.RUnlock()
	if conn == nil {
		return nil, false, true, nil
	}
	select {
	case payload := <-conn.data:
		t.metrics.MessageReceived(len(payload))
		return payload, true, false, nil
	case <-conn.outputClosedCh:
		select {
		case payload := <-conn.data:
			t.metrics.MessageReceived(len(payload))
			return payload, true, false, nil
		default:
		}
		return nil, false, true, nil
	default:
		return nil, false, false, nil
	}
}

// State reports the current lifecycle state of id.
func (t *Transport) State(id port.ID) port.State {
	if id.IsInput() {
		in, _ := id.AsInput()
		ip := t.input(in)
		if ip == nil {
			return port.Closed
		}
		return ip.cell.Load()
	}
	out, _ := id.AsOutput()
	op := t.output(out)
	if op == nil {
		return port.Closed
	}
	return op.cell.Load()
}
