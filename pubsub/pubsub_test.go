package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoflow-dev/protoflow/pubsub"
	"github.com/protoflow-dev/protoflow/pubsub/broker"
)

// TestS4PubSubRoundTrip mirrors scenario S4: a broker mirrors PUB to SUB,
// one participant allocates an output, another allocates an input with the
// same numeric ID the output will target, they connect, and a message
// round-trips end to end.
func TestS4PubSubRoundTrip(t *testing.T) {
	pubAddr := "inproc://protoflow-test-pub"
	subAddr := "inproc://protoflow-test-sub"

	b, err := broker.Listen(pubAddr, subAddr)
	require.NoError(t, err)
	defer b.Close()

	opts := pubsub.DefaultOptions()
	opts.AckTimeout = 200 * time.Millisecond
	opts.RetryMinSleep = 5 * time.Millisecond
	opts.RetryMaxSleep = 50 * time.Millisecond

	sender, err := pubsub.New("sender", opts, pubAddr, subAddr)
	require.NoError(t, err)
	defer sender.Shutdown()

	receiver, err := pubsub.New("receiver", opts, pubAddr, subAddr)
	require.NoError(t, err)
	defer receiver.Shutdown()

	out := sender.OpenOutput()
	in := receiver.OpenInput()

	// Give both SUB sockets a moment to register their subscriptions with
	// the broker before the first Connect attempt fires.
	time.Sleep(50 * time.Millisecond)

	require.True(t, sender.Connect(out, in))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sender.Send(ctx, out, []byte("Hello world!")))

	payload, eos, err := receiver.Recv(ctx, in)
	require.NoError(t, err)
	assert.False(t, eos)
	assert.Equal(t, []byte("Hello world!"), payload)

	require.True(t, sender.Close(out.PortID()))

	_, eos, err = receiver.Recv(ctx, in)
	require.NoError(t, err)
	assert.True(t, eos)
}
