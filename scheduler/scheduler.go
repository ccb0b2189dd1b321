// Package scheduler maps each registered block onto an independently
// advancing goroutine, the way the teacher fans work out with errgroup in
// backend/azureblob, backend/b2/upload.go, and backend/drive/metadata.go,
// then joins them and surfaces the first error.
package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/protoflow-dev/protoflow/block"
	"github.com/protoflow-dev/protoflow/logs"
	"github.com/protoflow-dev/protoflow/metrics"
	"github.com/protoflow-dev/protoflow/port"
	"github.com/protoflow-dev/protoflow/transport"
)

// BlockEntry pairs a registered block with its dense, insertion-order ID.
type BlockEntry struct {
	ID    int
	Block block.Block
}

// Connection is a queued output-to-input binding, materialized at Start
// before any block runs.
type Connection struct {
	Out port.OutputID
	In  port.InputID
}

// Start materializes conns on tr, then launches one goroutine per entry in
// blocks, running Prepare followed by Execute. It returns once every block
// has been launched; it does not wait for them to finish (see Process.Join).
func Start(ctx context.Context, systemName string, tr transport.Transport, blocks []BlockEntry, conns []Connection) (*Process, error) {
	for _, c := range conns {
		if !tr.Connect(c.Out, c.In) {
			return nil, errConnectFailed(c)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	alive := newAliveFlag()
	go func() {
		select {
		case <-runCtx.Done():
			alive.clear()
		case <-alive.Done():
		}
	}()

	sched := metrics.NewScheduler(systemName)
	g, gctx := errgroup.WithContext(runCtx)
	rt := &runtime{alive: alive}

	for _, entry := range blocks {
		entry := entry
		g.Go(func() error {
			sched.BlockStarted()
			defer sched.BlockStopped()
			if d, ok := entry.Block.(block.Describable); ok {
				logs.Debugf(systemName, "starting block %d (%s)", entry.ID, d.Describe().Name)
			} else {
				logs.Debugf(systemName, "starting block %d", entry.ID)
			}
			if err := entry.Block.Prepare(gctx, rt); err != nil {
				logs.Errorf(systemName, "block %d prepare failed: %v", entry.ID, err)
				return err
			}
			err := entry.Block.Execute(gctx, rt)
			if err != nil {
				logs.Errorf(systemName, "block %d execute failed: %v", entry.ID, err)
			} else {
				logs.Debugf(systemName, "block %d finished", entry.ID)
			}
			return err
		})
	}
	go func() {
		_ = g.Wait()
		alive.clear()
	}()

	return &Process{
		alive:   alive,
		cancels: []func(){cancel},
		wait: func() error {
			err := g.Wait()
			cancel()
			return err
		},
	}, nil
}

func errConnectFailed(c Connection) error {
	return &connectError{conn: c}
}

type connectError struct {
	conn Connection
}

func (e *connectError) Error() string {
	return "scheduler: connect failed: " + e.conn.Out.String() + " -> " + e.conn.In.String()
}
