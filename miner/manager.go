// Package miner implements the Mining Manager: block template assembly
// from the mempool under size/ordering/conflict constraints, and atomic
// submission of mined blocks back to the chain.
package miner

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
	"github.com/veilchain/veil/internal/vlog"
	"github.com/veilchain/veil/mempool"
	"github.com/veilchain/veil/metrics"
	"github.com/veilchain/veil/verifier"
)

// AssetOwnerLookup resolves the recorded owner of a previously minted
// asset. It is nil when no asset registry is wired in, in which case the
// owner-mismatch check in GetNewBlockTransactions is skipped entirely
// (there is nothing to compare a mint's declared owner against).
type AssetOwnerLookup func(asset [32]byte) (owner [32]byte, known bool)

// MinerFeeBuilder produces the miner's-fee transaction for a block paying
// out minersFee (already negative: the amount the block creator is owed).
// Building it requires minting a shielded note, which belongs to the
// wallet/key layer this core does not implement, so it is injected.
type MinerFeeBuilder func(ctx context.Context, sequence uint32, minersFee int64) (*types.Transaction, error)

// SelectionResult is the outcome of a greedy mempool walk.
type SelectionResult struct {
	Selected  []*types.Transaction
	TotalFees int64
	FinalSize int
}

// MinedResult is the closed set of outcomes submitting a mined block
// template can return.
type MinedResult string

const (
	ResultUnknownRequest MinedResult = "UNKNOWN_REQUEST"
	ResultChainChanged   MinedResult = "CHAIN_CHANGED"
	ResultInvalidBlock   MinedResult = "INVALID_BLOCK"
	ResultAddFailed      MinedResult = "ADD_FAILED"
	ResultFork           MinedResult = "FORK"
	ResultSuccess        MinedResult = "SUCCESS"
)

// Manager is the Mining Manager: it owns no shared mutable state beyond
// its template caches, all mutated only from the caller's single driver
// task.
type Manager struct {
	chain    chain.Blockchain
	mempool  *mempool.Pool
	verifier *verifier.Verifier
	buildFee MinerFeeBuilder
	owners   AssetOwnerLookup
	config   Config
	metrics  *metrics.Miner
	log      *vlog.Logger

	fees        *feeCache
	empty       *templateCache
	normal      *templateCache
	preempt     *PreemptiveTemplates
	newBlock    *blockFeed
	blocksMined uint64
}

// New constructs a Manager bound to its collaborators.
func New(bc chain.Blockchain, pool *mempool.Pool, v *verifier.Verifier, buildFee MinerFeeBuilder, owners AssetOwnerLookup, cfg Config, m *metrics.Miner, log *vlog.Logger) *Manager {
	if log == nil {
		log = vlog.Default()
	}
	return &Manager{
		chain:    bc,
		mempool:  pool,
		verifier: v,
		buildFee: buildFee,
		owners:   owners,
		config:   cfg,
		metrics:  m,
		log:      log,
		fees:     newFeeCache(cfg.FeeCacheSize),
		empty:    newTemplateCache(),
		normal:   newTemplateCache(),
		preempt:  &PreemptiveTemplates{},
		newBlock: &blockFeed{},
	}
}

// BlocksMined returns the running count of blocks this manager has
// successfully submitted.
func (m *Manager) BlocksMined() uint64 { return m.blocksMined }

// Subscribe returns a channel of on_new_block events.
func (m *Manager) Subscribe() <-chan *types.Block { return m.newBlock.Subscribe() }

// PreemptiveTemplates exposes the bundled empty/full template state when
// Config.PreemptiveTemplates is enabled; it is always safe to call, and
// simply stays empty otherwise.
func (m *Manager) PreemptiveTemplates() *PreemptiveTemplates { return m.preempt }

// GetNewBlockTransactions greedily selects transactions from the mempool's
// ordered snapshot for a block at nextSequence, honoring size limits,
// expiration, in-block nullifier conflicts, spend validity, mint-owner
// consistency, and the active transaction version.
func (m *Manager) GetNewBlockTransactions(ctx context.Context, nextSequence uint32, startingBlockSize int) (SelectionResult, error) {
	params := m.chain.Consensus()
	activeVersion := params.ActiveTransactionVersion(consensus.Sequence(nextSequence))

	runningSize := startingBlockSize
	seenNullifiers := make(map[[32]byte]struct{})

	var selected []*types.Transaction
	var totalFees int64

	for _, tx := range m.mempool.Ordered() {
		select {
		case <-ctx.Done():
			return SelectionResult{}, ctx.Err()
		default:
		}

		if runningSize+tx.SerializedSize() > int(params.MaxBlockSizeBytes) {
			continue
		}
		if types.Expired(tx.Expiration(), nextSequence) {
			continue
		}
		if conflicts(tx, seenNullifiers) {
			continue
		}
		if res := m.verifier.VerifyTransactionSpends(ctx, tx); !res.IsValid() {
			continue
		}
		if m.owners != nil && consensus.IsActive(params.EnableAssetOwnership, consensus.Sequence(nextSequence)) {
			if mintOwnerMismatch(tx, m.owners) {
				continue
			}
		}
		if consensus.IsActive(params.EnableAssetOwnership, consensus.Sequence(nextSequence)) {
			if tx.Version() != activeVersion {
				continue
			}
		}

		for _, n := range tx.Nullifiers() {
			seenNullifiers[n] = struct{}{}
		}
		runningSize += tx.SerializedSize()
		totalFees += tx.Fee()
		selected = append(selected, tx)
	}

	return SelectionResult{Selected: selected, TotalFees: totalFees, FinalSize: runningSize}, nil
}

func conflicts(tx *types.Transaction, seen map[[32]byte]struct{}) bool {
	for _, n := range tx.Nullifiers() {
		if _, ok := seen[n]; ok {
			return true
		}
	}
	return false
}

func mintOwnerMismatch(tx *types.Transaction, owners AssetOwnerLookup) bool {
	for _, mint := range tx.Mints() {
		owner, known := owners(mint.Asset)
		if known && owner != mint.Owner {
			return true
		}
	}
	return false
}

// CreateEmptyBlockTemplate returns the cached empty-block template for
// prev.Sequence+1 if present, otherwise builds the miner's-fee transaction
// for that sequence via the fee cache and assembles an empty block.
func (m *Manager) CreateEmptyBlockTemplate(ctx context.Context, prev types.BlockHeader) (*types.Block, error) {
	sequence := prev.Sequence + 1
	if block, ok := m.empty.get(sequence); ok {
		return block, nil
	}

	reward := int64(m.chain.Consensus().MiningReward(consensus.Sequence(sequence)))
	minersFee, err := m.fees.get(sequence, func() (*types.Transaction, error) {
		return m.buildFee(ctx, sequence, -reward)
	})
	if err != nil {
		return nil, fmt.Errorf("miner: build empty-block miners fee: %w", err)
	}

	block, err := m.chain.NewBlock(ctx, nil, minersFee, m.config.Graffiti)
	if err != nil {
		return nil, fmt.Errorf("miner: assemble empty block: %w", err)
	}
	m.empty.put(sequence, block)
	if m.config.PreemptiveTemplates {
		m.preempt.setEmpty(block)
	}
	if m.metrics != nil {
		m.metrics.TemplatesBuilt.WithLabelValues("empty").Inc()
	}
	return block, nil
}

// CreateNewBlockTemplate builds a full block template: a miner's fee sized
// for the greedily selected transactions' total fees, then reassembles and
// caches the block.
func (m *Manager) CreateNewBlockTemplate(ctx context.Context, prev types.BlockHeader) (*types.Block, error) {
	sequence := prev.Sequence + 1
	if block, ok := m.normal.get(sequence); ok {
		return block, nil
	}

	selectCtx := ctx
	if m.config.TemplateTimeout > 0 {
		var cancel context.CancelFunc
		selectCtx, cancel = context.WithTimeout(ctx, m.config.TemplateTimeout)
		defer cancel()
	}
	selection, err := m.GetNewBlockTransactions(selectCtx, sequence, 0)
	if err != nil {
		return nil, err
	}

	reward := int64(m.chain.Consensus().MiningReward(consensus.Sequence(sequence)))
	minersFeeAmount := -(reward + selection.TotalFees)
	minersFee, err := m.buildFee(ctx, sequence, minersFeeAmount)
	if err != nil {
		return nil, fmt.Errorf("miner: build block miners fee: %w", err)
	}

	block, err := m.chain.NewBlock(ctx, selection.Selected, minersFee, m.config.Graffiti)
	if err != nil {
		return nil, fmt.Errorf("miner: assemble block: %w", err)
	}
	if block.TotalSerializedSize() != selection.FinalSize+minersFee.SerializedSize() {
		return nil, errors.New("miner: assembled block size disagrees with selection")
	}

	m.normal.put(sequence, block)
	if m.config.PreemptiveTemplates {
		m.preempt.setFull(block)
	}
	if m.metrics != nil {
		m.metrics.TemplatesBuilt.WithLabelValues("full").Inc()
	}
	return block, nil
}

// SubmitBlockTemplate validates and submits a mined block template,
// returning the outcome of a closed six-state submission machine.
func (m *Manager) SubmitBlockTemplate(ctx context.Context, block *types.Block) MinedResult {
	if block == nil {
		return ResultUnknownRequest
	}

	head := m.chain.Head()
	if block.Header.PreviousHash != head.Header.Hash(m.headAlgorithm(head.Header.Sequence)) {
		candidateWork := new(uint256.Int).Add(head.Work, block.Header.Target.ToDifficulty())
		if !isHeavier(candidateWork, block.Header.Hash(m.headAlgorithm(block.Header.Sequence)), head.Work, head.Header.Hash(m.headAlgorithm(head.Header.Sequence))) {
			if m.metrics != nil {
				m.metrics.SubmissionResult.WithLabelValues(string(ResultChainChanged)).Inc()
			}
			return ResultChainChanged
		}
	}

	if res := m.verifier.VerifyBlock(ctx, block, verifier.DefaultOptions()); !res.IsValid() {
		m.log.Warn("rejected mined block template", "reason", res.Reason())
		if m.metrics != nil {
			m.metrics.SubmissionResult.WithLabelValues(string(ResultInvalidBlock)).Inc()
		}
		return ResultInvalidBlock
	}

	added, isFork, err := m.chain.AddBlock(ctx, block)
	if err != nil || !added {
		if m.metrics != nil {
			m.metrics.SubmissionResult.WithLabelValues(string(ResultAddFailed)).Inc()
		}
		return ResultAddFailed
	}
	if isFork {
		if m.metrics != nil {
			m.metrics.SubmissionResult.WithLabelValues(string(ResultFork)).Inc()
		}
		return ResultFork
	}

	m.blocksMined++
	m.empty.purgeBelow(block.Header.Sequence)
	m.normal.purgeBelow(block.Header.Sequence)
	m.fees.purgeBelow(block.Header.Sequence)
	m.newBlock.emit(block)
	if m.metrics != nil {
		m.metrics.BlocksMined.Inc()
		m.metrics.SubmissionResult.WithLabelValues(string(ResultSuccess)).Inc()
	}
	return ResultSuccess
}

func (m *Manager) headAlgorithm(sequence uint32) types.HashAlgorithm {
	if consensus.IsActive(m.chain.Consensus().EnableFishHash, consensus.Sequence(sequence)) {
		return types.HashAlgorithmFishHash
	}
	return types.HashAlgorithmBlake3
}

// isHeavier decides fork choice: greater accumulated work wins; equal
// work is broken by the lexicographically smaller hash.
func isHeavier(aWork *uint256.Int, aHash [32]byte, bWork *uint256.Int, bHash [32]byte) bool {
	switch aWork.Cmp(bWork) {
	case 1:
		return true
	case -1:
		return false
	default:
		return bytes.Compare(aHash[:], bHash[:]) < 0
	}
}
