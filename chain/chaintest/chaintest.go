// Package chaintest provides a minimal in-memory Blockchain, NoteTree, and
// NullifierTree for exercising the verifier, mining manager, chain
// processor, and wallet scanner without a real storage engine.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
)

// witness is a fake authentication path: it carries only the tree size it
// was produced against, since this tree exists to exercise size/root/
// witness plumbing, not real cryptography.
type witness struct{ treeSize uint64 }

func (w witness) TreeSize() uint64 { return w.treeSize }

// Tree is a toy append-only tree: "roots" are just the blake3 hash of the
// leaf count, which is enough to exercise past-root comparisons without
// implementing a real Merkle tree.
type Tree struct {
	mu     sync.RWMutex
	leaves [][32]byte
}

func rootForSize(size uint64) [32]byte {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(size >> (8 * i))
	}
	return types.HashBytes(buf[:])
}

func (t *Tree) Size() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.leaves))
}

func (t *Tree) PastRoot(ctx context.Context, size uint64) ([32]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if size > uint64(len(t.leaves)) {
		return [32]byte{}, fmt.Errorf("chaintest: tree never reached size %d", size)
	}
	return rootForSize(size), nil
}

func (t *Tree) Witness(ctx context.Context, position uint64) (chain.NoteWitness, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if position >= uint64(len(t.leaves)) {
		return nil, fmt.Errorf("chaintest: position %d out of range", position)
	}
	return witness{treeSize: uint64(len(t.leaves))}, nil
}

func (t *Tree) Append(leaf [32]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, leaf)
}

// NullifierTree layers "contains" checks on top of Tree.
type NullifierTree struct {
	Tree
	seen map[[32]byte]uint64 // nullifier -> tree size at insertion
}

func NewNullifierTree() *NullifierTree {
	return &NullifierTree{seen: make(map[[32]byte]uint64)}
}

func (n *NullifierTree) Contains(ctx context.Context, nullifier [32]byte) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.seen[nullifier]
	return ok, nil
}

func (n *NullifierTree) ContainsAt(ctx context.Context, nullifier [32]byte, size uint64) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	insertedAt, ok := n.seen[nullifier]
	return ok && insertedAt <= size, nil
}

func (n *NullifierTree) Append(nullifier [32]byte) {
	n.mu.Lock()
	insertedAt := uint64(len(n.leaves)) + 1
	n.seen[nullifier] = insertedAt
	n.mu.Unlock()
	n.Tree.Append(nullifier)
}

// Chain is a fully in-memory Blockchain implementation: blocks are held in
// a map keyed by header hash, with a single linear canonical chain (no
// real fork choice) sufficient to drive tests of the components that
// consume Blockchain.
type Chain struct {
	mu         sync.RWMutex
	params     consensus.Parameters
	genesis    types.BlockHeader
	headHash   [32]byte
	headWork   *uint256.Int
	byHash     map[[32]byte]*types.Block
	bySequence map[uint32][32]byte
	notes      *Tree
	nullifiers *NullifierTree
}

// New constructs a Chain seeded with genesis as the only block.
func New(params consensus.Parameters, genesis types.BlockHeader) *Chain {
	hash := genesis.Hash(algorithmFor(params, genesis.Sequence))
	c := &Chain{
		params:     params,
		genesis:    genesis,
		headHash:   hash,
		headWork:   genesis.Target.ToDifficulty(),
		byHash:     make(map[[32]byte]*types.Block),
		bySequence: make(map[uint32][32]byte),
		notes:      &Tree{},
		nullifiers: NewNullifierTree(),
	}
	block := &types.Block{Header: genesis}
	c.byHash[hash] = block
	c.bySequence[genesis.Sequence] = hash
	return c
}

func algorithmFor(params consensus.Parameters, sequence uint32) types.HashAlgorithm {
	if consensus.IsActive(params.EnableFishHash, consensus.Sequence(sequence)) {
		return types.HashAlgorithmFishHash
	}
	return types.HashAlgorithmBlake3
}

func (c *Chain) Head() chain.Head {
	c.mu.RLock()
	defer c.mu.RUnlock()
	block := c.byHash[c.headHash]
	return chain.Head{Header: block.Header, Work: c.headWork}
}

func (c *Chain) Genesis() types.BlockHeader      { return c.genesis }
func (c *Chain) Consensus() consensus.Parameters { return c.params }
func (c *Chain) Notes() chain.NoteTree           { return c.notes }
func (c *Chain) Nullifiers() chain.NullifierTree { return c.nullifiers }

func (c *Chain) BlockAt(hash [32]byte) (*types.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.byHash[hash]
	return b, ok
}

func (c *Chain) AddBlock(ctx context.Context, block *types.Block) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := block.Header.Hash(algorithmFor(c.params, block.Header.Sequence))
	if _, exists := c.byHash[hash]; exists {
		return false, false, nil
	}
	if _, ok := c.byHash[block.Header.PreviousHash]; !ok && block.Header.Sequence != 1 {
		return false, false, errors.New("chaintest: unknown previous block")
	}

	for _, tx := range block.Transactions {
		for _, o := range tx.Outputs() {
			c.notes.Append(types.HashBytes(o.EncryptedNote[:]))
		}
		for _, n := range tx.Nullifiers() {
			c.nullifiers.Append(n)
		}
	}

	c.byHash[hash] = block
	isFork := block.Header.PreviousHash != c.headHash

	extendsHead := block.Header.PreviousHash == c.headHash
	if extendsHead {
		c.bySequence[block.Header.Sequence] = hash
		c.headHash = hash
		c.headWork = new(uint256.Int).Add(c.headWork, block.Header.Target.ToDifficulty())
	}
	return true, isFork, nil
}

func (c *Chain) NewBlock(ctx context.Context, transactions []*types.Transaction, minersFee *types.Transaction, graffiti [32]byte) (*types.Block, error) {
	c.mu.RLock()
	prevHeader := c.byHash[c.headHash].Header
	prevHash := c.headHash
	notesSize := c.notes.Size()
	nullifiersSize := c.nullifiers.Size()
	c.mu.RUnlock()

	all := append([]*types.Transaction{minersFee}, transactions...)
	var noteCount uint64
	for _, tx := range all {
		noteCount += uint64(len(tx.Outputs()))
	}

	header := types.BlockHeader{
		Sequence:              prevHeader.Sequence + 1,
		PreviousHash:          prevHash,
		NoteCommitment:        types.Commitment{Root: rootForSize(notesSize + noteCount), Size: notesSize + noteCount},
		NullifierCommitment:   types.Commitment{Root: rootForSize(nullifiersSize), Size: nullifiersSize},
		TransactionCommitment: transactionCommitment(all),
		Target:                prevHeader.Target,
		Graffiti:              graffiti,
		MinersFee:             minersFee.Fee(),
	}
	return &types.Block{Header: header, Transactions: all}, nil
}

func transactionCommitment(txs []*types.Transaction) [32]byte {
	var buf []byte
	for _, tx := range txs {
		h := tx.Hash()
		buf = append(buf, h[:]...)
	}
	return types.HashBytes(buf)
}

func (c *Chain) GetPrevious(ctx context.Context, header types.BlockHeader) (types.BlockHeader, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prev, ok := c.byHash[header.PreviousHash]
	if !ok {
		return types.BlockHeader{}, errors.New("chaintest: previous header unknown")
	}
	return prev.Header, nil
}

func (c *Chain) GetHeader(ctx context.Context, hash [32]byte) (types.BlockHeader, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	block, ok := c.byHash[hash]
	if !ok {
		return types.BlockHeader{}, errors.New("chaintest: header unknown")
	}
	return block.Header, nil
}

func (c *Chain) GetBlock(ctx context.Context, hash [32]byte) (*types.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	block, ok := c.byHash[hash]
	if !ok {
		return nil, errors.New("chaintest: block unknown")
	}
	return block, nil
}

// FollowChainStream is not implemented by the in-memory fake: tests that
// exercise the remote chain processor construct StreamEnvelopes directly.
func (c *Chain) FollowChainStream(ctx context.Context, startHash [32]byte, limit int) (<-chan chain.StreamEnvelope, error) {
	return nil, errors.New("chaintest: FollowChainStream not supported by the in-memory fake")
}
