package metrics

import (
	"go.uber.org/atomic"
)

// ServerMetrics defines metrics over the entire runtime of the node.
type ServerMetrics struct {
	// The number of total received blocks.
	Blocks atomic.Uint32
	// The number of received blocks which are new.
	NewBlocks atomic.Uint32
	// The number of received blocks which are already known.
	KnownBlocks atomic.Uint32
	// The number of referenced blocks.
	ReferencedBlocks atomic.Uint32
	// The number of blocks with a transaction payload.
	IncludedTransactionBlocks atomic.Uint32
	// The number of blocks without a transaction payload.
	NoTransactionBlocks atomic.Uint32
	// The number of blocks with conflicting transaction payloads.
	ConflictingTransactionBlocks atomic.Uint32
	// The number of received invalid blocks.
	InvalidBlocks atomic.Uint32
	// The number of received valid milestones.
	ValidMilestones atomic.Uint32
	// The number of received invalid milestones.
	InvalidMilestones atomic.Uint32
	// The number of confirmed milestones.
	ConfirmedMilestones atomic.Uint32
}
