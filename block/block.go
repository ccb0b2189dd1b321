// Package block defines the unit of computation in a Protoflow system: a
// Block declares ports and parameters, and is run by the scheduler via
// Prepare then Execute.
package block

import "context"

// Block is implemented by every computational unit registered with a
// System. A Block must not retain any port handle past its own Execute
// return.
type Block interface {
	// Prepare runs once before Execute. The default behavior for a block
	// that has nothing to prepare is to embed NopPrepare.
	Prepare(ctx context.Context, rt Runtime) error
	// Execute runs exactly once, returning when the block is done: either
	// every relevant input observed EOS, or a fatal error occurred. The
	// scheduler does not close any port when Execute returns; each port
	// stays in whatever state the block left it.
	Execute(ctx context.Context, rt Runtime) error
}

// NopPrepare is embeddable by blocks that need no preparation step.
type NopPrepare struct{}

// Prepare is a no-op, satisfying part of the Block interface.
func (NopPrepare) Prepare(context.Context, Runtime) error { return nil }
