package pubsub

import (
	"github.com/protoflow-dev/protoflow/port"
)

// recvResult is what a queued item or a live wire event resolves to for a
// pending Recv/TryRecv call.
type recvResult struct {
	payload    []byte
	hasMessage bool
	eos        bool
}

type inputCmd interface{ isInputCmd() }

type cmdInputRecv struct {
	result chan recvResult
}

func (cmdInputRecv) isInputCmd() {}

type cmdInputTryRecv struct {
	result chan recvResult
}

func (cmdInputTryRecv) isInputCmd() {}

type cmdInputClose struct {
	result chan bool
}

func (cmdInputClose) isInputCmd() {}

// cmdInputCancelRecv retracts a previously queued cmdInputRecv identified by
// its result channel, used when the caller's context is canceled while
// still waiting.
type cmdInputCancelRecv struct {
	result chan recvResult
}

func (cmdInputCancelRecv) isInputCmd() {}

// inputPort is the single worker owning all mutable state for one input
// port: the connected-output set and the FIFO queue of delivered payloads
// and EOS markers. Every mutation happens inside run, on one goroutine, per
// spec §4.5's "exactly one worker task per port" rule.
type inputPort struct {
	id   port.InputID
	cell port.Cell

	cmdCh   chan inputCmd
	eventCh chan event

	t *Transport

	connected   map[port.OutputID]struct{}
	lastSeq     map[port.OutputID]uint64
	queue       []recvResult
	waitingRecv *cmdInputRecv
}

func newInputPort(t *Transport, id port.InputID) *inputPort {
	ip := &inputPort{
		id:        id,
		cmdCh:     make(chan inputCmd, 16),
		eventCh:   make(chan event, 256),
		t:         t,
		connected: make(map[port.OutputID]struct{}),
		lastSeq:   make(map[port.OutputID]uint64),
	}
	go ip.run()
	return ip
}

func (ip *inputPort) run() {
	for {
		select {
		case <-ip.t.ctx.Done():
			return
		case ev := <-ip.eventCh:
			ip.handleEvent(ev)
		case cmd := <-ip.cmdCh:
			ip.handleCmd(cmd)
		}
	}
}

func (ip *inputPort) handleEvent(ev event) {
	if ip.cell.Load().IsClosed() {
		return
	}
	switch ev.kind {
	case kindConnect:
		if _, ok := ip.connected[ev.out]; !ok {
			ip.connected[ev.out] = struct{}{}
			ip.cell.ToConnected()
			ip.t.metrics.Connected()
		}
		ip.t.publish(topicAckConnection(ip.id, ev.out), event{kind: kindAckConnection, out: ev.out, in: ip.id})
	case kindMessage:
		if _, ok := ip.connected[ev.out]; ok {
			// The sender retransmits the same seq on every ack it misses, so
			// the same Message event can arrive more than once for one
			// logical send. Always ack (the sender needs that to stop
			// retrying) but only deliver to the queue the first time a seq
			// is seen, keyed per output since each output has its own
			// independent sequence.
			if ev.seq > ip.lastSeq[ev.out] {
				ip.lastSeq[ev.out] = ev.seq
				ip.deliver(recvResult{payload: ev.payload, hasMessage: true})
				ip.t.metrics.MessageReceived(len(ev.payload))
			}
			ip.t.publish(topicAckMessage(ip.id, ev.out, ev.seq), event{kind: kindAckMessage, out: ev.out, in: ip.id, seq: ev.seq})
		}
	case kindCloseOutput:
		if _, ok := ip.connected[ev.out]; ok {
			delete(ip.connected, ev.out)
			delete(ip.lastSeq, ev.out)
			ip.t.metrics.Disconnected()
			if len(ip.connected) == 0 {
				ip.deliver(recvResult{eos: true})
			}
		}
	}
}

// deliver hands item to a blocked Recv if one is waiting, otherwise appends
// it to the FIFO queue.
func (ip *inputPort) deliver(item recvResult) {
	if ip.waitingRecv != nil {
		ip.waitingRecv.result <- item
		ip.waitingRecv = nil
		return
	}
	ip.queue = append(ip.queue, item)
}

func (ip *inputPort) handleCmd(cmd inputCmd) {
	switch c := cmd.(type) {
	case cmdInputClose:
		if !ip.cell.Close() {
			c.result <- false
			return
		}
		ip.t.publish(topicCloseInput(ip.id), event{kind: kindCloseInput, in: ip.id})
		for _, prefix := range subInputPrefixes(ip.id) {
			ip.t.unsubscribe(prefix)
		}
		if ip.waitingRecv != nil {
			ip.waitingRecv.result <- recvResult{eos: true}
			ip.waitingRecv = nil
		}
		ip.t.metrics.PortClosed()
		c.result <- true
	case cmdInputRecv:
		if ip.cell.Load().IsClosed() {
			c.result <- recvResult{eos: true}
			return
		}
		if len(ip.queue) > 0 {
			item := ip.queue[0]
			ip.queue = ip.queue[1:]
			c.result <- item
			return
		}
		req := c
		ip.waitingRecv = &req
	case cmdInputTryRecv:
		if ip.cell.Load().IsClosed() {
			c.result <- recvResult{eos: true}
			return
		}
		if len(ip.queue) > 0 {
			item := ip.queue[0]
			ip.queue = ip.queue[1:]
			c.result <- item
			return
		}
		c.result <- recvResult{}
	case cmdInputCancelRecv:
		if ip.waitingRecv != nil && sameChan(ip.waitingRecv.result, c.result) {
			ip.waitingRecv = nil
		}
	}
}

func sameChan(a, b chan recvResult) bool { return a == b }
