package types

import (
	"encoding/binary"
	"time"

	"lukechampine.com/blake3"
)

// Commitment is a Merkle root over a tree of a given size: the notes tree
// or the nullifier tree, each committed at the size it had after the
// block that references it.
type Commitment struct {
	Root [32]byte
	Size uint64
}

// HashAlgorithm names the header-hashing function a block was sealed with.
// The chain switches from Blake3 to FishHash at an activation sequence, so
// the header itself carries no algorithm tag; the caller derives it from
// the consensus parameters and the header's sequence.
type HashAlgorithm int

const (
	HashAlgorithmBlake3 HashAlgorithm = iota
	HashAlgorithmFishHash
)

// BlockHeader is the fixed-size portion of a block: everything except the
// transaction list itself.
type BlockHeader struct {
	Sequence              uint32
	PreviousHash          [32]byte
	Timestamp             time.Time
	NoteCommitment        Commitment
	NullifierCommitment   Commitment
	TransactionCommitment [32]byte
	Target                Target
	Randomness            uint64
	Graffiti              [32]byte
	MinersFee             int64
}

// SerializeForHash concatenates the header fields in the exact order the
// hash input is defined: sequence | previous_hash | note_root | note_size |
// nullifier_root | nullifier_size | tx_commitment | target | randomness |
// timestamp | graffiti.
func (h *BlockHeader) SerializeForHash() []byte {
	buf := make([]byte, 0, 4+32+32+8+32+8+32+32+8+8+32)
	var tmp [8]byte

	binary.LittleEndian.PutUint32(tmp[:4], h.Sequence)
	buf = append(buf, tmp[:4]...)
	buf = append(buf, h.PreviousHash[:]...)
	buf = append(buf, h.NoteCommitment.Root[:]...)
	binary.LittleEndian.PutUint64(tmp[:], h.NoteCommitment.Size)
	buf = append(buf, tmp[:]...)
	buf = append(buf, h.NullifierCommitment.Root[:]...)
	binary.LittleEndian.PutUint64(tmp[:], h.NullifierCommitment.Size)
	buf = append(buf, tmp[:]...)
	buf = append(buf, h.TransactionCommitment[:]...)
	buf = append(buf, h.Target[:]...)
	binary.LittleEndian.PutUint64(tmp[:], h.Randomness)
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(h.Timestamp.Unix()))
	buf = append(buf, tmp[:]...)
	buf = append(buf, h.Graffiti[:]...)
	return buf
}

// Hash returns the block header's proof-of-work hash using the given
// algorithm. Blake3 is the default; FishHash is a second activation-gated
// algorithm (see the consensus package's EnableFishHash gate).
//
// This module has no access to the real memory-hard FishHash dataset
// generator (no pack dependency provides one, and it is out of this core's
// scope the way the zero-knowledge proving system is), so FishHash here is
// a deterministic stand-in: a second domain-separated Blake3 digest. Chains
// that need the real algorithm supply their own HashAlgorithm and wire it
// at the call sites in verifier and miner instead of this helper.
func (h *BlockHeader) Hash(algo HashAlgorithm) [32]byte {
	input := h.SerializeForHash()
	switch algo {
	case HashAlgorithmFishHash:
		domainSeparated := append([]byte("veil-fishhash-placeholder-v1:"), input...)
		return blake3.Sum256(domainSeparated)
	default:
		return blake3.Sum256(input)
	}
}

// VerifyTarget reports whether the header's hash meets its own target
// under the given algorithm.
func (h *BlockHeader) VerifyTarget(algo HashAlgorithm) bool {
	return h.Target.MeetsTarget(h.Hash(algo))
}
