package inprocess

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoflow-dev/protoflow/errs"
	"github.com/protoflow-dev/protoflow/port"
)

func TestConnectRequiresBothOpen(t *testing.T) {
	tr := New()
	out := tr.OpenOutput()
	in := tr.OpenInput()

	require.True(t, tr.Connect(out, in))
	assert.Equal(t, port.Connected, tr.State(out.PortID()))
	assert.Equal(t, port.Connected, tr.State(in.PortID()))

	// Connecting the already-connected output to a fresh input fails and
	// leaves the fresh input Open.
	in2 := tr.OpenInput()
	assert.False(t, tr.Connect(out, in2))
	assert.Equal(t, port.Open, tr.State(in2.PortID()))
}

func TestSendRecvRoundTrip(t *testing.T) {
	tr := New()
	out := tr.OpenOutput()
	in := tr.OpenInput()
	require.True(t, tr.Connect(out, in))

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, tr.Send(ctx, out, []byte("hello")))
	}()

	payload, eos, err := tr.Recv(ctx, in)
	require.NoError(t, err)
	assert.False(t, eos)
	assert.Equal(t, []byte("hello"), payload)
	<-done
}

// TestCloseOutputDeliversEOS exercises the EOS half of S1: closing the output
// while the input is blocked in Recv wakes it with EOS rather than hanging.
func TestCloseOutputDeliversEOS(t *testing.T) {
	tr := New()
	out := tr.OpenOutput()
	in := tr.OpenInput()
	require.True(t, tr.Connect(out, in))

	result := make(chan bool, 1)
	go func() {
		_, eos, err := tr.Recv(context.Background(), in)
		assert.NoError(t, err)
		result <- eos
	}()

	time.Sleep(10 * time.Millisecond)
	require.True(t, tr.Close(out.PortID()))

	select {
	case eos := <-result:
		assert.True(t, eos)
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after peer close")
	}
}

func TestSendOnClosedOutputFails(t *testing.T) {
	tr := New()
	out := tr.OpenOutput()
	require.True(t, tr.Close(out.PortID()))

	err := tr.Send(context.Background(), out, []byte("x"))
	require.Error(t, err)
}

func TestSendOnUnconnectedOutputFailsDisconnected(t *testing.T) {
	tr := New()
	out := tr.OpenOutput()
	err := tr.Send(context.Background(), out, []byte("x"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Disconnected))
}

func TestRecvOnNeverConnectedInputReturnsEOS(t *testing.T) {
	tr := New()
	in := tr.OpenInput()
	_, eos, err := tr.Recv(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, eos)
}

// TestDisconnectMidStream mirrors scenario S3: the receiver closes after
// the first value. This transport's Recv consults the local Cell before
// ever touching the connection channel, so once the receiver has closed, a
// second send landing in the (now orphaned) channel buffer is never
// observed — one of the two outcomes the spec's disjunction allows.
func TestDisconnectMidStream(t *testing.T) {
	tr := New()
	out := tr.OpenOutput()
	in := tr.OpenInput()
	require.True(t, tr.Connect(out, in))

	ctx := context.Background()
	require.NoError(t, tr.Send(ctx, out, []byte{1}))

	v, eos, err := tr.Recv(ctx, in)
	require.NoError(t, err)
	require.False(t, eos)
	assert.Equal(t, []byte{1}, v)

	require.True(t, tr.Close(in.PortID()))

	// The second send either fails Disconnected (its peer just closed) or
	// is accepted into the channel buffer and silently orphaned; either
	// way no duplicate or out-of-order value reaches the receiver.
	_ = tr.Send(ctx, out, []byte{2})

	_, eos, err = tr.Recv(ctx, in)
	require.NoError(t, err)
	assert.True(t, eos)
}

// TestConcurrentClose mirrors scenario S6: a sender loops while the
// receiver closes after N messages; the sender eventually observes
// Disconnected and the receiver's values are a gap-free, duplicate-free
// prefix of what was sent.
func TestConcurrentClose(t *testing.T) {
	const n = 5
	tr := New()
	out := tr.OpenOutput()
	in := tr.OpenInput()
	require.True(t, tr.Connect(out, in))

	ctx := context.Background()
	sendErr := make(chan error, 1)
	go func() {
		i := byte(0)
		for {
			if err := tr.Send(ctx, out, []byte{i}); err != nil {
				sendErr <- err
				return
			}
			i++
		}
	}()

	var received []byte
	for len(received) < n {
		v, eos, err := tr.Recv(ctx, in)
		require.NoError(t, err)
		if eos {
			break
		}
		received = append(received, v...)
	}
	require.True(t, tr.Close(in.PortID()))

	select {
	case err := <-sendErr:
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.Disconnected))
	case <-time.After(2 * time.Second):
		t.Fatal("sender never observed Disconnected after receiver closed")
	}

	for i, v := range received {
		assert.Equal(t, byte(i), v, "gap or reorder at index %d", i)
	}
}

// TestConnectCloseRace is property 6: a concurrent Connect and Close of the
// input never leaves the input Connected while the output is not.
func TestConnectCloseRace(t *testing.T) {
	for i := 0; i < 200; i++ {
		tr := New()
		out := tr.OpenOutput()
		in := tr.OpenInput()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Connect(out, in)
		}()
		go func() {
			defer wg.Done()
			tr.Close(in.PortID())
		}()
		wg.Wait()

		// Connect transitions both sides atomically: input can never end up
		// Connected while its paired output does not, no matter how Close
		// interleaves with Connect.
		if tr.State(in.PortID()) == port.Connected {
			assert.Equal(t, port.Connected, tr.State(out.PortID()))
		}
	}
}
