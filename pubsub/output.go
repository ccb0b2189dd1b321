package pubsub

import (
	"context"
	"time"

	"github.com/protoflow-dev/protoflow/errs"
	"github.com/protoflow-dev/protoflow/port"
)

type outputCmd interface{ isOutputCmd() }

type cmdOutputConnect struct {
	in     port.InputID
	result chan bool
}

func (cmdOutputConnect) isOutputCmd() {}

type cmdOutputSend struct {
	ctx     context.Context
	payload []byte
	result  chan error
}

func (cmdOutputSend) isOutputCmd() {}

type cmdOutputClose struct {
	result chan bool
}

func (cmdOutputClose) isOutputCmd() {}

// outputPort is the single worker owning all mutable state for one output
// port: its target input (once connected), its next sequence number, and
// the in-flight connect/send retry loop.
type outputPort struct {
	id   port.OutputID
	cell port.Cell

	cmdCh   chan outputCmd
	eventCh chan event

	t *Transport

	targetIn       port.InputID
	hasTarget      bool
	seq            uint64
	disconnectedCh chan struct{}
}

func newOutputPort(t *Transport, id port.OutputID) *outputPort {
	op := &outputPort{
		id:             id,
		cmdCh:          make(chan outputCmd, 16),
		eventCh:        make(chan event, 256),
		t:              t,
		disconnectedCh: make(chan struct{}),
	}
	go op.run()
	return op
}

func (op *outputPort) run() {
	for {
		select {
		case <-op.t.ctx.Done():
			return
		case cmd := <-op.cmdCh:
			switch c := cmd.(type) {
			case cmdOutputConnect:
				op.doConnect(c)
			case cmdOutputSend:
				op.doSend(c)
			case cmdOutputClose:
				op.doClose(c)
			}
		case ev := <-op.eventCh:
			op.handleUnsolicited(ev)
		}
	}
}

func (op *outputPort) handleUnsolicited(ev event) {
	if ev.kind == kindCloseInput {
		op.onPeerClosed()
	}
	// Stray or duplicate acks (retransmitted by our own backoff racing a
	// slow ack) are otherwise harmless to ignore here.
}

func (op *outputPort) onPeerClosed() {
	if op.cell.Close() {
		close(op.disconnectedCh)
		op.t.metrics.Disconnected()
	}
}

func (op *outputPort) doConnect(c cmdOutputConnect) {
	if op.cell.Load() != port.Open {
		c.result <- false
		return
	}
	op.targetIn = c.in
	op.hasTarget = true
	for _, prefix := range subOutputPrefixes(c.in, op.id) {
		op.t.subscribe(prefix)
	}
	op.t.registerInterest(c.in, op.id, op)

	b := newBackoff(op.t.opts.RetryMinSleep, op.t.opts.RetryMaxSleep)
	timer := time.NewTimer(0)
	defer timer.Stop()
	attempts := 0
	firstWait := true
	for {
		select {
		case <-timer.C:
			op.t.publish(topicConnect(c.in, op.id), event{kind: kindConnect, out: op.id, in: c.in})
			attempts++
			if op.t.opts.MaxRetries > 0 && attempts > op.t.opts.MaxRetries {
				op.t.unregisterInterest(c.in, op.id)
				c.result <- false
				return
			}
			// The first retransmit waits the full AckTimeout, since that is
			// how long one attempt is expected to need for its ack; only
			// once that's elapsed without an ack do we fall back to the
			// tighter exponential backoff between further attempts.
			if firstWait {
				timer.Reset(op.t.opts.AckTimeout)
				firstWait = false
			} else {
				timer.Reset(b.next())
			}
		case ev := <-op.eventCh:
			switch ev.kind {
			case kindAckConnection:
				op.cell.ToConnected()
				op.t.metrics.Connected()
				c.result <- true
				return
			case kindCloseInput:
				op.onPeerClosed()
				op.t.unregisterInterest(c.in, op.id)
				c.result <- false
				return
			}
		case <-op.t.ctx.Done():
			c.result <- false
			return
		}
	}
}

func (op *outputPort) doSend(c cmdOutputSend) {
	state := op.cell.Load()
	if state.IsClosed() {
		c.result <- errs.ClosedErr(op.id.PortID())
		return
	}
	if !state.IsConnected() {
		c.result <- errs.DisconnectedErr(op.id.PortID())
		return
	}
	op.seq++
	seq := op.seq

	b := newBackoff(op.t.opts.RetryMinSleep, op.t.opts.RetryMaxSleep)
	timer := time.NewTimer(0)
	defer timer.Stop()
	firstWait := true
	for {
		select {
		case <-timer.C:
			op.t.publish(topicMessage(op.targetIn, op.id, seq), event{kind: kindMessage, out: op.id, in: op.targetIn, seq: seq, payload: c.payload})
			// See doConnect: the first retransmit waits the full AckTimeout
			// before assuming the ack was lost rather than just slow.
			if firstWait {
				timer.Reset(op.t.opts.AckTimeout)
				firstWait = false
			} else {
				timer.Reset(b.next())
			}
		case ev := <-op.eventCh:
			switch {
			case ev.kind == kindAckMessage && ev.seq == seq:
				c.result <- nil
				return
			case ev.kind == kindCloseInput:
				op.onPeerClosed()
				c.result <- errs.DisconnectedErr(op.id.PortID())
				return
			}
			// Anything else (a stale ack for an earlier seq) is ignored.
		case <-c.ctx.Done():
			c.result <- errs.SendFailedErr(op.id.PortID(), c.ctx.Err())
			return
		case <-op.t.ctx.Done():
			c.result <- errs.TerminatedErr()
			return
		}
	}
}

func (op *outputPort) doClose(c cmdOutputClose) {
	if !op.cell.Close() {
		c.result <- false
		return
	}
	if op.hasTarget {
		op.t.publish(topicCloseOutput(op.targetIn, op.id), event{kind: kindCloseOutput, out: op.id, in: op.targetIn})
		op.t.unregisterInterest(op.targetIn, op.id)
		for _, prefix := range subOutputPrefixes(op.targetIn, op.id) {
			op.t.unsubscribe(prefix)
		}
	}
	op.t.metrics.PortClosed()
	c.result <- true
}
