package pubsub

import (
	"context"
	"sync"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"

	"github.com/protoflow-dev/protoflow/errs"
	"github.com/protoflow-dev/protoflow/logs"
	"github.com/protoflow-dev/protoflow/metrics"
	"github.com/protoflow-dev/protoflow/port"
)

// Transport implements transport.Transport over a pair of mangos PUB/SUB
// sockets dialed to an external broker (see pubsub/broker), per spec §4.5.
type Transport struct {
	opts Options
	name string

	pubSock mangos.Socket
	subSock mangos.Socket
	pubCh   chan []byte

	alloc port.Allocator

	mu      sync.RWMutex
	inputs  map[port.InputID]*inputPort
	outputs map[port.OutputID]*outputPort

	interestMu sync.Mutex
	interested map[port.InputID]map[port.OutputID]*outputPort

	metrics *metrics.Transport

	ctx    context.Context
	cancel context.CancelFunc
}

// New dials a PUB socket to pubAddr (the broker's XSUB listener) and a SUB
// socket to subAddr (the broker's XPUB listener), then starts the writer
// and reader tasks described in spec §4.5's concurrency section.
func New(name string, opts Options, pubAddr, subAddr string) (*Transport, error) {
	pubSock, err := pub.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := pubSock.Dial(pubAddr); err != nil {
		return nil, err
	}
	subSock, err := sub.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := subSock.Dial(subAddr); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		opts:       opts,
		name:       name,
		pubSock:    pubSock,
		subSock:    subSock,
		pubCh:      make(chan []byte, 256),
		inputs:     make(map[port.InputID]*inputPort),
		outputs:    make(map[port.OutputID]*outputPort),
		interested: make(map[port.InputID]map[port.OutputID]*outputPort),
		metrics:    metrics.NewTransport("pubsub"),
		ctx:        ctx,
		cancel:     cancel,
	}
	go t.writerLoop()
	go t.readerLoop()
	return t, nil
}

// Shutdown stops the writer/reader tasks and closes both sockets. Pending
// Send and Recv calls observe t.ctx and return a Terminated error; a pending
// Connect returns false.
func (t *Transport) Shutdown() {
	t.cancel()
	t.pubSock.Close()
	t.subSock.Close()
}

func (t *Transport) writerLoop() {
	for {
		select {
		case <-t.ctx.Done():
			return
		case buf := <-t.pubCh:
			if err := t.pubSock.Send(buf); err != nil {
				logs.Errorf(t.name, "pub send: %v", err)
			}
		}
	}
}

func (t *Transport) readerLoop() {
	for {
		raw, err := t.subSock.Recv()
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			logs.Errorf(t.name, "sub recv: %v", err)
			continue
		}
		_, body, ok := splitFrame(raw)
		if !ok {
			continue
		}
		ev, err := decodeRecord(body)
		if err != nil {
			logs.Errorf(t.name, "decode record: %v", err)
			continue
		}
		t.dispatch(ev)
	}
}

func (t *Transport) dispatch(ev event) {
	switch ev.kind {
	case kindConnect, kindMessage, kindCloseOutput:
		if ip := t.input(ev.in); ip != nil {
			ip.eventCh <- ev
		}
	case kindAckConnection, kindAckMessage:
		if op := t.output(ev.out); op != nil {
			op.eventCh <- ev
		}
	case kindCloseInput:
		for _, op := range t.interestedOutputs(ev.in) {
			op.eventCh <- ev
		}
	}
}

func (t *Transport) publish(topic string, ev event) {
	buf := encodeEvent(topic, ev)
	select {
	case t.pubCh <- buf:
	case <-t.ctx.Done():
	}
}

func (t *Transport) subscribe(prefix string) {
	if err := t.subSock.SetOption(mangos.OptionSubscribe, []byte(prefix)); err != nil {
		logs.Errorf(t.name, "subscribe %q: %v", prefix, err)
	}
}

func (t *Transport) unsubscribe(prefix string) {
	if err := t.subSock.SetOption(mangos.OptionUnsubscribe, []byte(prefix)); err != nil {
		logs.Errorf(t.name, "unsubscribe %q: %v", prefix, err)
	}
}

func (t *Transport) registerInterest(in port.InputID, out port.OutputID, op *outputPort) {
	t.interestMu.Lock()
	m, ok := t.interested[in]
	if !ok {
		m = make(map[port.OutputID]*outputPort)
		t.interested[in] = m
	}
	m[out] = op
	t.interestMu.Unlock()
}

func (t *Transport) unregisterInterest(in port.InputID, out port.OutputID) {
	t.interestMu.Lock()
	if m, ok := t.interested[in]; ok {
		delete(m, out)
		if len(m) == 0 {
			delete(t.interested, in)
		}
	}
	t.interestMu.Unlock()
}

func (t *Transport) interestedOutputs(in port.InputID) []*outputPort {
	t.interestMu.Lock()
	defer t.interestMu.Unlock()
	m := t.interested[in]
	out := make([]*outputPort, 0, len(m))
	for _, op := range m {
		out = append(out, op)
	}
	return out
}

func (t *Transport) input(id port.InputID) *inputPort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.inputs[id]
}

func (t *Transport) output(id port.OutputID) *outputPort {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.outputs[id]
}

// OpenInput allocates a fresh input port and subscribes it to its own
// connect/message/close-output topics immediately.
func (t *Transport) OpenInput() port.InputID {
	id := t.alloc.NextInput()
	ip := newInputPort(t, id)
	t.mu.Lock()
	t.inputs[id] = ip
	t.mu.Unlock()
	for _, prefix := range subInputPrefixes(id) {
		t.subscribe(prefix)
	}
	t.metrics.PortOpened()
	return id
}

// OpenOutput allocates a fresh output port. It subscribes to nothing until
// Connect names a target input.
func (t *Transport) OpenOutput() port.OutputID {
	id := t.alloc.NextOutput()
	op := newOutputPort(t, id)
	t.mu.Lock()
	t.outputs[id] = op
	t.mu.Unlock()
	t.metrics.PortOpened()
	return id
}

// Connect requests that out start a connection to in, retrying the
// Connect/AckConnection handshake with backoff until acknowledged, the
// input is seen closing, Options.MaxRetries (when non-zero) is exhausted, or
// the transport shuts down.
func (t *Transport) Connect(out port.OutputID, in port.InputID) bool {
	op := t.output(out)
	if op == nil {
		return false
	}
	result := make(chan bool, 1)
	select {
	case op.cmdCh <- cmdOutputConnect{in: in, result: result}:
	case <-t.ctx.Done():
		return false
	}
	return <-result
}

// Close closes id. See inputPort/outputPort's cmdClose handling for the
// wire-level cleanup each performs.
func (t *Transport) Close(id port.ID) bool {
	if id.IsInput() {
		in, _ := id.AsInput()
		ip := t.input(in)
		if ip == nil {
			return false
		}
		result := make(chan bool, 1)
		ip.cmdCh <- cmdInputClose{result: result}
		return <-result
	}
	out, _ := id.AsOutput()
	op := t.output(out)
	if op == nil {
		return false
	}
	result := make(chan bool, 1)
	op.cmdCh <- cmdOutputClose{result: result}
	return <-result
}

// Send blocks until the message is acknowledged by the peer or the peer is
// observed to have closed.
func (t *Transport) Send(ctx context.Context, out port.OutputID, payload []byte) error {
	op := t.output(out)
	if op == nil {
		return errs.InvalidPort(out.PortID())
	}
	result := make(chan error, 1)
	select {
	case op.cmdCh <- cmdOutputSend{ctx: ctx, payload: payload, result: result}:
	case <-ctx.Done():
		return errs.SendFailedErr(out.PortID(), ctx.Err())
	}
	return <-result
}

// Recv blocks until a message or EOS is available for in.
func (t *Transport) Recv(ctx context.Context, in port.InputID) ([]byte, bool, error) {
	ip := t.input(in)
	if ip == nil {
		return nil, false, errs.InvalidPort(in.PortID())
	}
	result := make(chan recvResult, 1)
	select {
	case ip.cmdCh <- cmdInputRecv{result: result}:
	case <-ctx.Done():
		return nil, false, errs.RecvFailedErr(in.PortID(), ctx.Err())
	}
	select {
	case r := <-result:
		return r.payload, r.eos, nil
	case <-ctx.Done():
		ip.cmdCh <- cmdInputCancelRecv{result: result}
		return nil, false, errs.RecvFailedErr(in.PortID(), ctx.Err())
	case <-t.ctx.Done():
		return nil, false, errs.TerminatedErr()
	}
}

// TryRecv is the non-blocking variant of Recv.
func (t *Transport) TryRecv(in port.InputID) ([]byte, bool, bool, error) {
	ip := t.input(in)
	if ip == nil {
		return nil, false, false, errs.InvalidPort(in.PortID())
	}
	result := make(chan recvResult, 1)
	ip.cmdCh <- cmdInputTryRecv{result: result}
	r := <-result
	return r.payload, r.hasMessage, r.eos, nil
}

// State reports the current lifecycle state of id.
func (t *Transport) State(id port.ID) port.State {
	if id.IsInput() {
		in, _ := id.AsInput()
		if ip := t.input(in); ip != nil {
			return ip.cell.Load()
		}
		return port.Closed
	}
	out, _ := id.AsOutput()
	if op := t.output(out); op != nil {
		return op.cell.Load()
	}
	return port.Closed
}
