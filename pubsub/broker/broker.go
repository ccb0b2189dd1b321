// Package broker implements the in-repo relay from SPEC_FULL.md §4.10: an
// XSUB→XPUB proxy that mirrors every frame published by any participant to
// every subscriber, the way a standalone ZeroMQ/nanomsg forwarder device
// does. The original protoflow source relies on an external proxy process;
// this package supplements that so the pub/sub transport is runnable and
// testable without a separate binary.
package broker

import (
	"context"
	"sync"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/xpub"
	"go.nanomsg.org/mangos/v3/protocol/xsub"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"
	_ "go.nanomsg.org/mangos/v3/transport/tcp"

	"github.com/protoflow-dev/protoflow/logs"
)

// Broker relays messages received on its xsub socket (where publishers
// dial) out its xpub socket (where subscribers dial), unmodified and with
// no reordering across a single sender.
type Broker struct {
	xsubSock mangos.Socket
	xpubSock mangos.Socket

	cancel context.CancelFunc
	done   chan struct{}
}

// Listen starts a broker with its xsub socket bound to pubListenAddr
// (publishers dial here) and its xpub socket bound to subListenAddr
// (subscribers dial here).
func Listen(pubListenAddr, subListenAddr string) (*Broker, error) {
	xsubSock, err := xsub.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := xsubSock.Listen(pubListenAddr); err != nil {
		xsubSock.Close()
		return nil, err
	}
	xpubSock, err := xpub.NewSocket()
	if err != nil {
		xsubSock.Close()
		return nil, err
	}
	if err := xpubSock.Listen(subListenAddr); err != nil {
		xsubSock.Close()
		xpubSock.Close()
		return nil, err
	}

	_, cancel := context.WithCancel(context.Background())
	b := &Broker{
		xsubSock: xsubSock,
		xpubSock: xpubSock,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go b.relay()
	return b, nil
}

func (b *Broker) relay() {
	defer close(b.done)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			msg, err := b.xsubSock.Recv()
			if err != nil {
				return
			}
			if err := b.xpubSock.Send(msg); err != nil {
				logs.Errorf("broker", "relay xsub->xpub: %v", err)
			}
		}
	}()
	wg.Wait()
}

// Close shuts the broker down and releases both sockets.
func (b *Broker) Close() {
	b.cancel()
	b.xsubSock.Close()
	b.xpubSock.Close()
	<-b.done
}
