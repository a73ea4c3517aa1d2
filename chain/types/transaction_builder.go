package types

import "encoding/binary"

// TransactionBuilder assembles the binary layout described by the wire
// format (V1 or V2) and produces a Transaction. It exists so that the
// mining manager can construct miner's-fee transactions and so tests can
// build fixtures without hand-rolling byte slices.
type TransactionBuilder struct {
	version    TransactionVersion
	fee        int64
	expiration uint32
	pubkey     [pubkeyLen]byte
	randomness [32]byte
	spends     []Spend
	outputs    []Output
	mints      []Mint
	burns      []Burn
	binding    [bindingSigLen]byte
}

func NewTransactionBuilder(version TransactionVersion) *TransactionBuilder {
	return &TransactionBuilder{version: version}
}

func (b *TransactionBuilder) SetFee(fee int64) *TransactionBuilder { b.fee = fee; return b }
func (b *TransactionBuilder) SetExpiration(seq uint32) *TransactionBuilder {
	b.expiration = seq
	return b
}
func (b *TransactionBuilder) AddSpend(s Spend) *TransactionBuilder {
	if len(s.Proof) != spendProofLen {
		s.Proof = make([]byte, spendProofLen)
	}
	b.spends = append(b.spends, s)
	return b
}
func (b *TransactionBuilder) AddOutput(o Output) *TransactionBuilder {
	if len(o.Proof) != outputProofLen {
		o.Proof = make([]byte, outputProofLen)
	}
	b.outputs = append(b.outputs, o)
	return b
}
func (b *TransactionBuilder) AddMint(m Mint) *TransactionBuilder {
	if len(m.Proof) != mintProofLen {
		m.Proof = make([]byte, mintProofLen)
	}
	b.mints = append(b.mints, m)
	return b
}
func (b *TransactionBuilder) AddBurn(burn Burn) *TransactionBuilder {
	b.burns = append(b.burns, burn)
	return b
}
func (b *TransactionBuilder) SetBindingSignature(sig [bindingSigLen]byte) *TransactionBuilder {
	b.binding = sig
	return b
}

// Build serializes the accumulated fields and parses the result back into a
// Transaction, guaranteeing the builder and the parser agree on layout.
func (b *TransactionBuilder) Build() (*Transaction, error) {
	var buf []byte
	putU64 := func(v uint64) {
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}
	putU32 := func(v uint32) {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}

	if b.version == TransactionVersionV2 {
		buf = append(buf, byte(TransactionVersionV2))
	}
	putU64(uint64(len(b.spends)))
	putU64(uint64(len(b.outputs)))
	if b.version == TransactionVersionV2 {
		putU64(uint64(len(b.mints)))
		putU64(uint64(len(b.burns)))
	}
	putU64(uint64(b.fee))
	putU32(b.expiration)
	if b.version == TransactionVersionV2 {
		buf = append(buf, b.pubkey[:]...)
		buf = append(buf, b.randomness[:]...)
	}

	for _, s := range b.spends {
		buf = append(buf, s.Pubkey[:]...)
		buf = append(buf, s.Proof...)
		buf = append(buf, s.ValueCommitment[:]...)
		buf = append(buf, s.Commitment[:]...)
		putU32(s.TreeSize)
		buf = append(buf, s.Nullifier[:]...)
		buf = append(buf, s.Signature[:]...)
	}
	for _, o := range b.outputs {
		buf = append(buf, o.Proof...)
		buf = append(buf, o.EncryptedNote[:]...)
	}
	if b.version == TransactionVersionV2 {
		for _, m := range b.mints {
			buf = append(buf, m.Pubkey[:]...)
			buf = append(buf, m.Proof...)
			buf = append(buf, m.Asset[:]...)
			putU64(m.Value)
			buf = append(buf, m.Owner[:]...)
			if m.TransferTo != nil {
				buf = append(buf, 1)
				buf = append(buf, m.TransferTo[:]...)
			} else {
				buf = append(buf, 0)
			}
			buf = append(buf, m.Signature[:]...)
		}
		for _, burn := range b.burns {
			buf = append(buf, burn.AssetID[:]...)
			putU64(burn.Value)
		}
	}
	buf = append(buf, b.binding[:]...)

	return parseTransactionAs(buf, b.version)
}
