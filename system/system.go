// Package system implements the builder described in spec §4.8: collect
// blocks, register connections, and materialize execution only once
// Execute is called — the same two-phase "declare, then construct" idiom
// rclone's fs.RegInfo registration uses for backends.
package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/protoflow-dev/protoflow/block"
	"github.com/protoflow-dev/protoflow/logs"
	"github.com/protoflow-dev/protoflow/port"
	"github.com/protoflow-dev/protoflow/scheduler"
	"github.com/protoflow-dev/protoflow/transport"
)

// System collects blocks and pending connections prior to execution. The
// zero value is not usable; construct with New.
type System struct {
	Name string

	transport transport.Transport

	mu          sync.Mutex
	blocks      []scheduler.BlockEntry
	blockSet    map[block.Block]struct{}
	connections []scheduler.Connection
	ownedPorts  map[port.ID]struct{}
	executed    bool
}

// New creates a System backed by tr. name is used only for logging/metrics
// labeling.
func New(name string, tr transport.Transport) *System {
	return &System{
		Name:       name,
		transport:  tr,
		blockSet:   make(map[block.Block]struct{}),
		ownedPorts: make(map[port.ID]struct{}),
	}
}

// Input allocates a typed input port bound to this system's transport.
func Input[T any](s *System) port.Input[T] {
	id := s.transport.OpenInput()
	s.mu.Lock()
	s.ownedPorts[id.PortID()] = struct{}{}
	s.mu.Unlock()
	return port.NewInput[T](id, s.transport)
}

// Output allocates a typed output port bound to this system's transport.
func Output[T any](s *System) port.Output[T] {
	id := s.transport.OpenOutput()
	s.mu.Lock()
	s.ownedPorts[id.PortID()] = struct{}{}
	s.mu.Unlock()
	return port.NewOutput[T](id, s.transport)
}

// Block registers b, in stable insertion order, and returns b so the caller
// can keep referencing its ports. A Block value may only be registered
// once.
func Block[B block.Block](s *System, b B) B {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.blockSet[b]; dup {
		panic("system: block registered twice")
	}
	s.blockSet[b] = struct{}{}
	s.blocks = append(s.blocks, scheduler.BlockEntry{ID: len(s.blocks), Block: b})
	return b
}

// Connect queues a connection from out to in. Both ports must have been
// produced by this same System; the generic type parameter enforces that
// both ends carry the same element type at compile time.
func Connect[T any](s *System, out port.Output[T], in port.Input[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownedPorts[out.ID().PortID()]; !ok {
		return fmt.Errorf("system: output port %s was not produced by this system", out.ID())
	}
	if _, ok := s.ownedPorts[in.ID().PortID()]; !ok {
		return fmt.Errorf("system: input port %s was not produced by this system", in.ID())
	}
	s.connections = append(s.connections, scheduler.Connection{Out: out.ID(), In: in.ID()})
	return nil
}

// Execute materializes every queued connection and starts every registered
// block, each under its own goroutine. It may be called at most once.
func (s *System) Execute(ctx context.Context) (*scheduler.Process, error) {
	s.mu.Lock()
	if s.executed {
		s.mu.Unlock()
		return nil, fmt.Errorf("system: %s already executed", s.Name)
	}
	s.executed = true
	blocks := append([]scheduler.BlockEntry(nil), s.blocks...)
	conns := append([]scheduler.Connection(nil), s.connections...)
	s.mu.Unlock()

	logs.Infof(s.Name, "executing with %d blocks and %d connections", len(blocks), len(conns))
	return scheduler.Start(ctx, s.Name, s.transport, blocks, conns)
}
