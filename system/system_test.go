package system

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoflow-dev/protoflow/block"
	"github.com/protoflow-dev/protoflow/port"
	"github.com/protoflow-dev/protoflow/transport/inprocess"
)

// constBlock sends each of Values on Out once, then closes it.
type constBlock struct {
	block.NopPrepare
	Out    port.Output[int]
	Values []int
}

func (b *constBlock) Execute(ctx context.Context, rt block.Runtime) error {
	defer b.Out.Close()
	for _, v := range b.Values {
		if err := b.Out.Send(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// collectBlock drains In into Received until EOS.
type collectBlock struct {
	block.NopPrepare
	In       port.Input[int]
	Received []int
}

func (b *collectBlock) Execute(ctx context.Context, rt block.Runtime) error {
	for {
		v, ok, err := b.In.Recv(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		b.Received = append(b.Received, v)
	}
}

// TestS1ConstToDrop mirrors scenario S1: a source emits 42 once and
// closes; a sink receives it and observes EOS.
func TestS1ConstToDrop(t *testing.T) {
	tr := inprocess.New()
	sys := New("s1", tr)

	out := Output[int](sys)
	in := Input[int](sys)
	require.NoError(t, Connect(sys, out, in))

	source := Block(sys, &constBlock{Out: out, Values: []int{42}})
	sink := Block(sys, &collectBlock{In: in})

	proc, err := sys.Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, proc.Join())

	assert.Equal(t, []int{42}, sink.Received)
	_ = source
}

// stringCounter forwards each value on OutValue and its running count on
// OutCount, then closes both of its outputs on EOS.
type stringCounter struct {
	block.NopPrepare
	In        port.Input[string]
	OutValue  port.Output[string]
	OutCount  port.Output[int]
	seen      int
}

func (b *stringCounter) Execute(ctx context.Context, rt block.Runtime) error {
	defer b.OutValue.Close()
	defer b.OutCount.Close()
	for {
		v, ok, err := b.In.Recv(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		b.seen++
		if err := b.OutValue.Send(ctx, v); err != nil {
			return err
		}
		if err := b.OutCount.Send(ctx, b.seen); err != nil {
			return err
		}
	}
}

type stringSource struct {
	block.NopPrepare
	Out    port.Output[string]
	Values []string
}

func (b *stringSource) Execute(ctx context.Context, rt block.Runtime) error {
	defer b.Out.Close()
	for _, v := range b.Values {
		if err := b.Out.Send(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

type stringCollect struct {
	block.NopPrepare
	In       port.Input[string]
	Received []string
}

func (b *stringCollect) Execute(ctx context.Context, rt block.Runtime) error {
	for {
		v, ok, err := b.In.Recv(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		b.Received = append(b.Received, v)
	}
}

type intCollect struct {
	block.NopPrepare
	In       port.Input[int]
	Received []int
}

func (b *intCollect) Execute(ctx context.Context, rt block.Runtime) error {
	for {
		v, ok, err := b.In.Recv(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		b.Received = append(b.Received, v)
	}
}

// TestS2PipelineWithCounting mirrors scenario S2: source -> counter ->
// {value sink, count sink}.
func TestS2PipelineWithCounting(t *testing.T) {
	tr := inprocess.New()
	sys := New("s2", tr)

	sourceOut := Output[string](sys)
	counterIn := Input[string](sys)
	require.NoError(t, Connect(sys, sourceOut, counterIn))

	valueOut := Output[string](sys)
	valueIn := Input[string](sys)
	require.NoError(t, Connect(sys, valueOut, valueIn))

	countOut := Output[int](sys)
	countIn := Input[int](sys)
	require.NoError(t, Connect(sys, countOut, countIn))

	Block(sys, &stringSource{Out: sourceOut, Values: []string{"a", "b", "c"}})
	Block(sys, &stringCounter{In: counterIn, OutValue: valueOut, OutCount: countOut})
	values := Block(sys, &stringCollect{In: valueIn})
	counts := Block(sys, &intCollect{In: countIn})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	proc, err := sys.Execute(ctx)
	require.NoError(t, err)
	require.NoError(t, proc.Join())

	assert.Equal(t, []string{"a", "b", "c"}, values.Received)
	assert.Equal(t, []int{1, 2, 3}, counts.Received)
}

func TestExecuteTwiceFails(t *testing.T) {
	tr := inprocess.New()
	sys := New("once", tr)
	_, err := sys.Execute(context.Background())
	require.NoError(t, err)
	_, err = sys.Execute(context.Background())
	assert.Error(t, err)
}

func TestConnectRejectsForeignPort(t *testing.T) {
	tr := inprocess.New()
	sys1 := New("a", tr)
	sys2 := New("b", tr)

	out := Output[int](sys1)
	in := Input[int](sys2)
	assert.Error(t, Connect(sys1, out, in))
}
