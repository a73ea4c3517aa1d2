// Package verifier implements the stateless, contextual, and connect-time
// block and transaction validation that the mempool, mining manager, and
// chain consult before admitting a transaction or extending the chain.
package verifier

import (
	"context"
	"time"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
	"github.com/veilchain/veil/internal/vlog"
	"github.com/veilchain/veil/metrics"
	"github.com/veilchain/veil/workerpool"
)

// notesLengthFlushThreshold is the running note count at which a batch of
// transactions is flushed to the worker pool, rather than accumulating
// indefinitely while scanning the block's transaction list.
const notesLengthFlushThreshold = 10

// minersFeeFixedSize is subtracted from maxBlockSizeBytes when sizing a
// non-miners-fee transaction for mempool admission, reserving room for the
// miner's-fee transaction every block must carry.
const minersFeeFixedSize = 8 + 275 + 64

// Options configures verification behavior that differs between
// production and test/replay contexts.
type Options struct {
	// VerifyTarget gates whether a header's proof-of-work is checked
	// against its target. DefaultOptions sets it to true; the zero Options
	// leaves it false, so the check is skipped.
	VerifyTarget bool
	// Now returns the current time; defaults to time.Now if nil, and is
	// overridable so tests can exercise TOO_FAR_IN_FUTURE deterministically.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// DefaultOptions is the production configuration: target verification on.
func DefaultOptions() Options {
	return Options{VerifyTarget: true}
}

// Verifier is a pure function over (Block, Blockchain, Consensus); it owns
// no long-lived state beyond handles to its collaborators.
type Verifier struct {
	chain   chain.Blockchain
	pool    *workerpool.Pool
	log     *vlog.Logger
	params  consensus.Parameters
	metrics *metrics.Verifier
}

// New constructs a Verifier bound to bc and pool. m is optional; when nil,
// VerifyBlock records no metrics.
func New(bc chain.Blockchain, pool *workerpool.Pool, m *metrics.Verifier, log *vlog.Logger) *Verifier {
	if log == nil {
		log = vlog.Default()
	}
	return &Verifier{chain: bc, pool: pool, log: log, params: bc.Consensus(), metrics: m}
}

// VerifyBlockHeader performs stateless header checks: PoW target and
// future-timestamp tolerance. ReasonGraffiti is part of the taxonomy for
// wire-level deserialization (a malformed length never reaches this
// struct, since Graffiti is a fixed [32]byte here); a collaborator
// deserializing a header off the wire returns it before construction.
func (v *Verifier) VerifyBlockHeader(header types.BlockHeader, opts Options) Result {
	if opts.VerifyTarget {
		algo := v.hashAlgorithm(header.Sequence)
		if !header.VerifyTarget(algo) {
			return Invalid(ReasonHashNotMeetTarget)
		}
	}
	if header.Timestamp.After(opts.now().Add(time.Duration(v.params.AllowedBlockFutureSeconds) * time.Second)) {
		return Invalid(ReasonTooFarInFuture)
	}
	return Valid
}

func (v *Verifier) hashAlgorithm(sequence uint32) types.HashAlgorithm {
	if consensus.IsActive(v.params.EnableFishHash, consensus.Sequence(sequence)) {
		return types.HashAlgorithmFishHash
	}
	return types.HashAlgorithmBlake3
}

// VerifyBlock performs stateless validation over the whole block: size,
// header, transaction commitment, per-transaction expiration and proof
// verification (batched to the worker pool), and fee accounting.
func (v *Verifier) VerifyBlock(ctx context.Context, block *types.Block, opts Options) Result {
	if v.metrics != nil {
		start := time.Now()
		defer func() { v.metrics.VerifyDuration.Observe(time.Since(start).Seconds()) }()
	}

	res := v.verifyBlock(ctx, block, opts)
	if v.metrics != nil {
		if res.IsValid() {
			v.metrics.BlocksValid.Inc()
		} else {
			v.metrics.BlocksInvalid.WithLabelValues(string(res.Reason())).Inc()
		}
	}
	return res
}

func (v *Verifier) verifyBlock(ctx context.Context, block *types.Block, opts Options) Result {
	if consensus.IsActive(v.params.V2MaxBlockSize, consensus.Sequence(block.Header.Sequence)) {
		if uint32(block.TotalSerializedSize()) > v.params.MaxBlockSizeBytes {
			return Invalid(ReasonMaxBlockSizeExceeded)
		}
	}

	if res := v.VerifyBlockHeader(block.Header, opts); !res.IsValid() {
		return res
	}

	if transactionCommitment(block.Transactions) != block.Header.TransactionCommitment {
		return Invalid(ReasonInvalidTransactionCommitment)
	}

	if res := v.verifyTransactionBatches(ctx, block); !res.IsValid() {
		return res
	}

	return v.verifyFees(block)
}

func transactionCommitment(txs []*types.Transaction) [32]byte {
	var buf []byte
	for _, tx := range txs {
		h := tx.Hash()
		buf = append(buf, h[:]...)
	}
	return types.HashBytes(buf)
}

func (v *Verifier) verifyTransactionBatches(ctx context.Context, block *types.Block) Result {
	var batch []*types.Transaction
	notesInBatch := 0

	flush := func() Result {
		if len(batch) == 0 {
			return Valid
		}
		if err := v.pool.VerifyTransactions(ctx, batch); err != nil {
			return Invalid(ReasonVerifyTransaction)
		}
		if v.metrics != nil {
			v.metrics.Transactions.Add(float64(len(batch)))
		}
		batch = nil
		notesInBatch = 0
		return Valid
	}

	for _, tx := range block.Transactions {
		if types.Expired(tx.Expiration(), block.Header.Sequence) {
			return Invalid(ReasonTransactionExpired)
		}
		batch = append(batch, tx)
		notesInBatch += len(tx.Outputs())
		if notesInBatch >= notesLengthFlushThreshold {
			if res := flush(); !res.IsValid() {
				return res
			}
		}
	}
	return flush()
}

func (v *Verifier) verifyFees(block *types.Block) Result {
	if len(block.Transactions) == 0 {
		return Invalid(ReasonMinersFeeExpected)
	}

	var totalFees int64
	var minersFee int64
	for i, tx := range block.Transactions {
		if i == 0 {
			if tx.Fee() > 0 {
				return Invalid(ReasonMinersFeeExpected)
			}
			minersFee += tx.Fee()
			continue
		}
		if tx.Fee() < 0 {
			return Invalid(ReasonInvalidTransactionFee)
		}
		totalFees += tx.Fee()
	}

	want := -(int64(v.params.MiningReward(consensus.Sequence(block.Header.Sequence))) + totalFees)
	if minersFee != want {
		return Invalid(ReasonInvalidMinersFee)
	}
	if block.Header.MinersFee != minersFee {
		return Invalid(ReasonMinersFeeMismatch)
	}
	return Valid
}

// VerifyBlockHeaderContextual checks current against its claimed previous
// header: hash linkage, timestamp monotonicity, sequence contiguity, and
// (if target verification is enabled) the recomputed difficulty target.
func (v *Verifier) VerifyBlockHeaderContextual(current, previous types.BlockHeader, opts Options) Result {
	prevHash := previous.Hash(v.hashAlgorithm(previous.Sequence))
	if current.PreviousHash != prevHash {
		return Invalid(ReasonPrevHashMismatch)
	}

	tolerance := time.Duration(v.params.AllowedBlockFutureSeconds) * time.Second
	if current.Timestamp.Before(previous.Timestamp.Add(-tolerance)) {
		return Invalid(ReasonBlockTooOld)
	}
	if consensus.IsActive(v.params.EnforceSequentialBlockTime, consensus.Sequence(current.Sequence)) {
		if current.Timestamp.Before(previous.Timestamp) {
			return Invalid(ReasonBlockTooOld)
		}
	}

	if current.Sequence != previous.Sequence+1 {
		return Invalid(ReasonSequenceOutOfOrder)
	}

	if opts.VerifyTarget {
		bucketMax := v.params.DifficultyBucketMax(consensus.Sequence(current.Sequence))
		want := types.CalculateTarget(
			current.Timestamp.Unix(), previous.Timestamp.Unix(), previous.Target,
			v.params.TargetBlockTimeSeconds, v.params.TargetBucketTimeSeconds, bucketMax,
		)
		if current.Target != want {
			return Invalid(ReasonInvalidTarget)
		}
	}
	return Valid
}

// VerifyBlockAdd validates block against its claimed previous header
// (absent only for genesis), checking commitment growth before delegating
// to the contextual and stateless checks.
func (v *Verifier) VerifyBlockAdd(ctx context.Context, block *types.Block, previous *types.BlockHeader, opts Options) Result {
	if block.Header.Sequence == 1 {
		return Valid
	}
	if previous == nil {
		return Invalid(ReasonPrevHashNull)
	}

	var notesInBlock, nullifiersInBlock uint64
	for _, tx := range block.Transactions {
		notesInBlock += uint64(len(tx.Outputs()))
		nullifiersInBlock += uint64(len(tx.Nullifiers()))
	}
	if block.Header.NoteCommitment.Size != previous.NoteCommitment.Size+notesInBlock {
		return Invalid(ReasonNoteCommitmentSize)
	}
	if block.Header.NullifierCommitment.Size != previous.NullifierCommitment.Size+nullifiersInBlock {
		return Invalid(ReasonNullifierCommitmentSize)
	}

	if res := v.VerifyBlockHeaderContextual(block.Header, *previous, opts); !res.IsValid() {
		return res
	}
	return v.VerifyBlock(ctx, block, opts)
}

// VerifyNewTransaction admits tx to the mempool: size bound, worker-pool
// proof verification, and a double-spend check against the current
// nullifier tree. It deliberately does not require a spend's note-root to
// match the current note-root; that is deferred to connect time.
func (v *Verifier) VerifyNewTransaction(ctx context.Context, tx *types.Transaction) Result {
	var maxSize uint32
	if v.params.MaxBlockSizeBytes > minersFeeFixedSize {
		maxSize = v.params.MaxBlockSizeBytes - minersFeeFixedSize
	}
	if uint32(tx.SerializedSize()) > maxSize {
		return Invalid(ReasonMaxTransactionSizeExceeded)
	}

	if err := v.pool.Verify(ctx, tx); err != nil {
		return Invalid(ReasonVerifyTransaction)
	}

	for _, nullifier := range tx.Nullifiers() {
		present, err := v.chain.Nullifiers().Contains(ctx, nullifier)
		if err != nil {
			return Invalid(ReasonError)
		}
		if present {
			return Invalid(ReasonDoubleSpend)
		}
	}
	return Valid
}

// VerifyTransactionSpends checks every spend in tx against the current
// live chain state: nullifier-tree membership and the note tree's current
// historical root. This is the snapshot check the Mining Manager runs
// while greedily selecting mempool transactions for a new block template,
// distinct from VerifyConnectedSpends' in-block accumulation.
func (v *Verifier) VerifyTransactionSpends(ctx context.Context, tx *types.Transaction) Result {
	notesSize := v.chain.Notes().Size()
	for _, spend := range tx.Spends() {
		present, err := v.chain.Nullifiers().Contains(ctx, spend.Nullifier)
		if err != nil {
			return Invalid(ReasonError)
		}
		if present {
			return Invalid(ReasonDoubleSpend)
		}
		if res := v.VerifySpend(ctx, spend, notesSize); !res.IsValid() {
			return res
		}
	}
	return Valid
}

// VerifyConnectedSpends checks each spend in block, in serialized order,
// against an in-block seen set, then the current nullifier tree, then its
// historical note-root, stopping at the first spend that fails.
func (v *Verifier) VerifyConnectedSpends(ctx context.Context, block *types.Block) Result {
	seen := make(map[[32]byte]struct{})
	previousNotesSize := block.Header.NoteCommitment.Size
	for _, tx := range block.Transactions {
		previousNotesSize -= uint64(len(tx.Outputs()))
	}

	for _, tx := range block.Transactions {
		for _, spend := range tx.Spends() {
			if _, dup := seen[spend.Nullifier]; dup {
				return Invalid(ReasonDoubleSpend)
			}
			seen[spend.Nullifier] = struct{}{}

			present, err := v.chain.Nullifiers().Contains(ctx, spend.Nullifier)
			if err != nil {
				return Invalid(ReasonError)
			}
			if present {
				return Invalid(ReasonDoubleSpend)
			}

			if res := v.VerifySpend(ctx, spend, previousNotesSize); !res.IsValid() {
				return res
			}
		}
		previousNotesSize += uint64(len(tx.Outputs()))
	}
	return Valid
}

// VerifySpend checks a single spend's tree-size bound and historical root.
func (v *Verifier) VerifySpend(ctx context.Context, spend types.Spend, notesSizeAtSpend uint64) Result {
	if uint64(spend.TreeSize) > notesSizeAtSpend {
		return Invalid(ReasonNoteCommitmentSizeTooLarge)
	}
	root, err := v.chain.Notes().PastRoot(ctx, uint64(spend.TreeSize))
	if err != nil {
		return Invalid(ReasonError)
	}
	if root != spend.Commitment {
		return Invalid(ReasonInvalidSpend)
	}
	return Valid
}

// VerifyConnectedBlock checks block's committed roots and sizes against
// the live trees, then verifies every spend.
func (v *Verifier) VerifyConnectedBlock(ctx context.Context, block *types.Block) Result {
	notes := v.chain.Notes()
	nullifiers := v.chain.Nullifiers()

	if notes.Size() < block.Header.NoteCommitment.Size {
		return Invalid(ReasonNoteCommitmentSize)
	}
	if nullifiers.Size() < block.Header.NullifierCommitment.Size {
		return Invalid(ReasonNullifierCommitmentSize)
	}

	noteRoot, err := notes.PastRoot(ctx, block.Header.NoteCommitment.Size)
	if err != nil {
		return Invalid(ReasonError)
	}
	if noteRoot != block.Header.NoteCommitment.Root {
		return Invalid(ReasonNoteCommitment)
	}

	nullifierRoot, err := nullifiers.PastRoot(ctx, block.Header.NullifierCommitment.Size)
	if err != nil {
		return Invalid(ReasonError)
	}
	if nullifierRoot != block.Header.NullifierCommitment.Root {
		return Invalid(ReasonNullifierCommitment)
	}

	return v.VerifyConnectedSpends(ctx, block)
}
