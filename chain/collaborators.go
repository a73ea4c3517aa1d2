// Package chain declares the contracts this core consumes from, and emits
// events about, the surrounding chain implementation. Apart from the
// in-memory test fake in chain/chaintest, none of the interfaces here are
// implemented by this module: storage, networking, and the
// Merkle tree internals are external collaborators (C2) whose behavior is
// assumed, not specified.
package chain

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
)

// NoteWitness is an opaque authentication path proving a note's membership
// in the notes tree at some historical size. Its internal shape belongs to
// the tree implementation; callers only ever pass it back to the prover.
type NoteWitness interface {
	// TreeSize is the size of the notes tree the witness was generated
	// against.
	TreeSize() uint64
}

// NoteTree is the append-only Merkle tree over notes (C2). Implementations
// must support producing roots and witnesses as of any historical size the
// tree has passed through, since a spend may reference a past root.
type NoteTree interface {
	// Size returns the current number of leaves in the tree.
	Size() uint64
	// PastRoot returns the root the tree had when it contained exactly
	// size leaves. It errors if size was never a size the tree passed
	// through (including "not yet reached").
	PastRoot(ctx context.Context, size uint64) ([32]byte, error)
	// Witness returns an authentication path for the leaf at position,
	// as of the tree's current size.
	Witness(ctx context.Context, position uint64) (NoteWitness, error)
}

// NullifierTree is the append-only set of spent nullifiers (C2), also
// exposed as a Merkle tree so that connect-time verification can check a
// committed root.
type NullifierTree interface {
	// Size returns the current number of nullifiers recorded.
	Size() uint64
	// Contains reports whether nullifier has been recorded at the tree's
	// current size.
	Contains(ctx context.Context, nullifier [32]byte) (bool, error)
	// ContainsAt reports whether nullifier had been recorded as of the
	// tree's historical size, size.
	ContainsAt(ctx context.Context, nullifier [32]byte, size uint64) (bool, error)
	// PastRoot returns the root the tree had when it contained exactly
	// size leaves.
	PastRoot(ctx context.Context, size uint64) ([32]byte, error)
}

// Head is the canonical tip: its header plus the accumulated proof-of-work
// the verifier and mining manager compare chains by.
type Head struct {
	Header types.BlockHeader
	Work   *uint256.Int
}

// EventKind distinguishes chain-processor events.
type EventKind int

const (
	EventAdd EventKind = iota
	EventRemove
)

// Event is one step of a chain-processor diff: a header being connected to
// or disconnected from the locally-tracked head, carrying its
// transactions so the wallet scanner need not re-fetch them.
type Event struct {
	Kind         EventKind
	Header       types.BlockHeader
	Transactions []*types.Transaction
}

// StreamEnvelopeKind distinguishes the remote follow-chain-stream's
// message types.
type StreamEnvelopeKind int

const (
	StreamConnected StreamEnvelopeKind = iota
	StreamDisconnected
	StreamFork
)

// StreamEnvelope is one message from a remote FollowChainStream. Fork
// envelopes are carried through the type but ignored by the remote chain
// processor.
type StreamEnvelope struct {
	Kind         StreamEnvelopeKind
	Header       types.BlockHeader
	Transactions []*types.Transaction
}

// Blockchain is the full external surface this core needs from the chain
// implementation: head/genesis access, the note and nullifier trees, block
// construction and submission, ancestor lookup, and a stream of canonical
// head transitions for remote consumers.
type Blockchain interface {
	// Head returns the current canonical tip and its accumulated work.
	Head() Head
	// Genesis returns the chain's genesis header.
	Genesis() types.BlockHeader
	// Consensus returns the chain-wide activation parameters.
	Consensus() consensus.Parameters

	Notes() NoteTree
	Nullifiers() NullifierTree

	// AddBlock attempts to extend (or fork) the chain with block. added
	// is false if the block was rejected; isFork is true if added but not
	// onto the previous canonical tip.
	AddBlock(ctx context.Context, block *types.Block) (added bool, isFork bool, err error)
	// NewBlock assembles a candidate block from the given transactions and
	// miner's-fee transaction, computing the header's commitments.
	NewBlock(ctx context.Context, transactions []*types.Transaction, minersFee *types.Transaction, graffiti [32]byte) (*types.Block, error)
	// GetPrevious returns the header preceding header, or an error if it
	// is unknown (including header being genesis).
	GetPrevious(ctx context.Context, header types.BlockHeader) (types.BlockHeader, error)
	// GetHeader resolves hash to its full header, letting a chain
	// processor that only tracks a {hash, sequence} checkpoint (not the
	// full header chain) begin a backward walk from it.
	GetHeader(ctx context.Context, hash [32]byte) (types.BlockHeader, error)
	// GetBlock resolves hash to its full block, used only when a chain
	// processor is about to emit an Add or Remove event and needs the
	// block's transactions; the header-only walk uses GetHeader/
	// GetPrevious instead to avoid fetching bodies it will discard.
	GetBlock(ctx context.Context, hash [32]byte) (*types.Block, error)
	// FollowChainStream returns a channel of canonical head transition
	// envelopes starting at startHash, closing after limit envelopes (0
	// for unbounded) or when ctx is canceled.
	FollowChainStream(ctx context.Context, startHash [32]byte, limit int) (<-chan StreamEnvelope, error)
}
