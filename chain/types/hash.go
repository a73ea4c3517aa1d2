package types

import "lukechampine.com/blake3"

// hashTransactionBytes is the canonical transaction identifier: the blake3
// digest of its raw serialized form.
func hashTransactionBytes(raw []byte) [32]byte {
	return blake3.Sum256(raw)
}

// HashBytes is the blake3 digest used wherever this core needs a generic
// content hash (e.g. deriving a transaction commitment from transaction
// hashes). Exported for collaborators building their own Blockchain
// implementations against the same primitive.
func HashBytes(data []byte) [32]byte {
	return blake3.Sum256(data)
}
