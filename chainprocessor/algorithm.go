// Package chainprocessor computes the ordered Add/Remove diff that takes a
// tracked {hash, sequence} checkpoint to the chain's current canonical
// head, and streams it as a bounded, cancellable sequence of events.
package chainprocessor

import (
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
)

func hashAlgorithm(params consensus.Parameters, sequence uint32) types.HashAlgorithm {
	if consensus.IsActive(params.EnableFishHash, consensus.Sequence(sequence)) {
		return types.HashAlgorithmFishHash
	}
	return types.HashAlgorithmBlake3
}

func headerHash(params consensus.Parameters, header types.BlockHeader) [32]byte {
	return header.Hash(hashAlgorithm(params, header.Sequence))
}
