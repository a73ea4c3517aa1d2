// Package consensus holds the chain-wide configuration record consulted by
// every other component: the verifier, the mining manager, and the mempool
// admission path. It is deliberately a plain, immutable value; all
// conditional behavior elsewhere routes through IsActive so that tests can
// drive the activation schedule by constructing alternate Parameters.
package consensus

// Sequence is a block height. Genesis is sequence 1.
type Sequence uint32

// never is the sequence a Never gate carries. Whether a gate is disabled
// is recorded by Gate.enabled, not by this value: At(never) is an enabled
// gate that is active from genesis.
const never Sequence = 0

// Gate is a single forkable rule's activation height, or Never.
type Gate struct {
	sequence Sequence
	enabled  bool
}

// Never returns a gate that is never active.
func Never() Gate { return Gate{} }

// At returns a gate that activates at the given sequence.
func At(seq Sequence) Gate { return Gate{sequence: seq, enabled: true} }

// Checkpoint pins the main chain at a known (sequence, hash) pair.
type Checkpoint struct {
	Sequence Sequence
	Hash     [32]byte
}

// Parameters is the full consensus configuration record: activation gates,
// checkpoints, and chain-wide constants.
type Parameters struct {
	AllowedBlockFutureSeconds uint32
	GenesisSupplyInIron       uint64
	TargetBlockTimeSeconds    uint32
	TargetBucketTimeSeconds   uint32
	MaxBlockSizeBytes         uint32
	MinFee                    uint64

	EnableAssetOwnership            Gate
	EnforceSequentialBlockTime      Gate
	EnableFishHash                  Gate
	EnableIncreasedDifficultyChange Gate
	V2MaxBlockSize                  Gate

	Checkpoints []Checkpoint
}

// Default returns the parameter set used for a freshly initialized chain
// with every activation gate already enabled from genesis, the way
// params.MantleLocalUpgradeConfig wires every Mantle fork on from block 0
// for local development chains.
func Default() Parameters {
	return Parameters{
		AllowedBlockFutureSeconds:       15,
		GenesisSupplyInIron:             42_000_000 * 100_000_000,
		TargetBlockTimeSeconds:          60,
		TargetBucketTimeSeconds:         10,
		MaxBlockSizeBytes:               2_000_000,
		MinFee:                          1,
		EnableAssetOwnership:            At(1),
		EnforceSequentialBlockTime:      At(1),
		EnableFishHash:                  At(1),
		EnableIncreasedDifficultyChange: At(1),
		V2MaxBlockSize:                  At(1),
	}
}

// Mainnet returns the parameter set with every activation gate scheduled at
// its historical sequence, mirroring params.MantleMainnetUpgradeConfig's
// per-fork timestamps.
func Mainnet() Parameters {
	p := Default()
	p.EnableAssetOwnership = At(500_000)
	p.EnforceSequentialBlockTime = At(1)
	p.EnableFishHash = At(920_000)
	p.EnableIncreasedDifficultyChange = At(920_000)
	p.V2MaxBlockSize = At(500_000)
	return p
}

// NewForTest builds Parameters from Default with the given overrides
// applied, a single entry point so tests can drive the activation
// schedule directly.
func NewForTest(overrides func(*Parameters)) Parameters {
	p := Default()
	if overrides != nil {
		overrides(&p)
	}
	return p
}

// IsActive reports whether gate is active at sequence. A sequence below 1
// is treated as 1, and a gate that is Never is never active.
func IsActive(gate Gate, sequence Sequence) bool {
	if !gate.enabled {
		return false
	}
	if sequence < 1 {
		sequence = 1
	}
	return sequence >= gate.sequence
}

// TransactionVersion is the wire format a transaction must use.
type TransactionVersion uint8

const (
	TransactionVersionV1 TransactionVersion = 1
	TransactionVersionV2 TransactionVersion = 2
)

// ActiveTransactionVersion returns the transaction version required at
// sequence: V2 once asset ownership (mints/burns with owners) is active.
func (p Parameters) ActiveTransactionVersion(sequence Sequence) TransactionVersion {
	if IsActive(p.EnableAssetOwnership, sequence) {
		return TransactionVersionV2
	}
	return TransactionVersionV1
}

// DifficultyBucketMax returns the maximum number of difficulty buckets
// used by the target-adjustment algorithm at sequence.
func (p Parameters) DifficultyBucketMax(sequence Sequence) int {
	if IsActive(p.EnableIncreasedDifficultyChange, sequence) {
		return 200
	}
	return 99
}

// MiningReward is the block subsidy at sequence: GenesisSupplyInIron /
// 1,000,000, halved once for every 2,000,000 sequences after genesis.
func (p Parameters) MiningReward(sequence Sequence) uint64 {
	halvings := (uint64(sequence) - 1) / 2_000_000
	reward := p.GenesisSupplyInIron / 1_000_000
	for i := uint64(0); i < halvings && reward > 0; i++ {
		reward /= 2
	}
	return reward
}

// CheckpointAt returns the checkpoint pinned at sequence, if any.
func (p Parameters) CheckpointAt(sequence Sequence) (Checkpoint, bool) {
	for _, c := range p.Checkpoints {
		if c.Sequence == sequence {
			return c, true
		}
	}
	return Checkpoint{}, false
}
