package types

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed field widths from the binary layout.
const (
	spendProofLen    = 192
	spendSigLen      = 64
	outputProofLen   = 192
	encryptedNoteLen = 275
	mintProofLen     = 192
	mintSigLen       = 64
	bindingSigLen    = 64
	pubkeyLen        = 32
	assetLen         = 32
)

// Spend is evidence that a previously committed note is being consumed.
type Spend struct {
	Pubkey          [pubkeyLen]byte
	Proof           []byte // length spendProofLen; zero-knowledge payload
	ValueCommitment [32]byte
	TreeSize        uint32
	Commitment      [32]byte // notes-tree root at the time of spend
	Nullifier       [32]byte
	Signature       [spendSigLen]byte
}

// Output is an encrypted note paired with its zero-knowledge proof.
type Output struct {
	Proof         []byte // length outputProofLen
	EncryptedNote [encryptedNoteLen]byte
}

// Mint issues new units of an asset; Owner/TransferTo are only present on
// V2 transactions (asset ownership).
type Mint struct {
	Pubkey     [pubkeyLen]byte
	Proof      []byte // length mintProofLen
	Asset      [assetLen]byte
	Value      uint64
	Owner      [pubkeyLen]byte
	TransferTo *[pubkeyLen]byte
	Signature  [mintSigLen]byte
}

// Burn destroys units of a previously minted asset.
type Burn struct {
	AssetID [32]byte
	Value   uint64
}

// Transaction is a self-describing bag of spends, outputs, mints and burns.
// The backing buffer is owned exclusively by the Transaction; every field is
// parsed once, when the Transaction is constructed, and the zero-knowledge
// proof bytes of Spends/Outputs/Mints are subslices of that buffer rather
// than copies.
type Transaction struct {
	raw     []byte
	version TransactionVersion

	fee        int64
	expiration uint32

	spends  []Spend
	outputs []Output
	mints   []Mint
	burns   []Burn

	bindingSignature [bindingSigLen]byte

	parsed bool
}

// TransactionVersion mirrors consensus.TransactionVersion without importing
// the consensus package, keeping chain/types free of a dependency on the
// component that interprets activation gates.
type TransactionVersion uint8

const (
	TransactionVersionV1 TransactionVersion = 1
	TransactionVersionV2 TransactionVersion = 2
)

// ParseTransaction wraps raw transaction bytes and parses every field.
// V2 transactions are tagged with a leading version byte; V1 is not, so
// the version is guessed from the first byte: a buffer starting with 2 is
// read as V2. A V1 buffer whose spend count has 2 as its low byte is
// therefore misread; callers that know the version (TransactionBuilder)
// parse with it explicitly instead.
func ParseTransaction(raw []byte) (*Transaction, error) {
	version := TransactionVersionV1
	if len(raw) > 0 && TransactionVersion(raw[0]) == TransactionVersionV2 {
		version = TransactionVersionV2
	}
	return parseTransactionAs(raw, version)
}

func parseTransactionAs(raw []byte, version TransactionVersion) (*Transaction, error) {
	t := &Transaction{raw: raw, version: version}
	if err := t.parseHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transaction) parseHeader() error {
	if len(t.raw) < 1 {
		return errors.New("transaction: empty buffer")
	}

	// Only V2 carries a leading version byte; any other version is read
	// with the V1 layout.
	off := 0
	if t.version == TransactionVersionV2 {
		off = 1
	} else {
		t.version = TransactionVersionV1
	}

	readU64 := func() (uint64, error) {
		if len(t.raw) < off+8 {
			return 0, errors.New("transaction: truncated u64")
		}
		v := binary.LittleEndian.Uint64(t.raw[off:])
		off += 8
		return v, nil
	}

	spendsLen, err := readU64()
	if err != nil {
		return err
	}
	notesLen, err := readU64()
	if err != nil {
		return err
	}
	var mintsLen, burnsLen uint64
	if t.version == TransactionVersionV2 {
		if mintsLen, err = readU64(); err != nil {
			return err
		}
		if burnsLen, err = readU64(); err != nil {
			return err
		}
	}

	if len(t.raw) < off+8 {
		return errors.New("transaction: truncated fee")
	}
	t.fee = int64(binary.LittleEndian.Uint64(t.raw[off:]))
	off += 8

	if len(t.raw) < off+4 {
		return errors.New("transaction: truncated expiration")
	}
	t.expiration = binary.LittleEndian.Uint32(t.raw[off:])
	off += 4

	if t.version == TransactionVersionV2 {
		// pubkey[32] | randomness[32] precede the spend list.
		off += pubkeyLen + 32
	}

	spendSize := pubkeyLen + spendProofLen + 32 + 32 + 4 + 32 + spendSigLen
	outputSize := outputProofLen + encryptedNoteLen
	burnSize := 32 + 8

	t.spends = make([]Spend, 0, spendsLen)
	for i := uint64(0); i < spendsLen; i++ {
		if len(t.raw) < off+spendSize {
			return fmt.Errorf("transaction: truncated spend %d", i)
		}
		s := Spend{}
		copy(s.Pubkey[:], t.raw[off:off+pubkeyLen])
		off += pubkeyLen
		s.Proof = t.raw[off : off+spendProofLen]
		off += spendProofLen
		copy(s.ValueCommitment[:], t.raw[off:off+32])
		off += 32
		copy(s.Commitment[:], t.raw[off:off+32])
		off += 32
		s.TreeSize = binary.LittleEndian.Uint32(t.raw[off:])
		off += 4
		copy(s.Nullifier[:], t.raw[off:off+32])
		off += 32
		copy(s.Signature[:], t.raw[off:off+spendSigLen])
		off += spendSigLen
		t.spends = append(t.spends, s)
	}

	t.outputs = make([]Output, 0, notesLen)
	for i := uint64(0); i < notesLen; i++ {
		if len(t.raw) < off+outputSize {
			return fmt.Errorf("transaction: truncated output %d", i)
		}
		o := Output{}
		o.Proof = t.raw[off : off+outputProofLen]
		off += outputProofLen
		copy(o.EncryptedNote[:], t.raw[off:off+encryptedNoteLen])
		off += encryptedNoteLen
		t.outputs = append(t.outputs, o)
	}

	if t.version == TransactionVersionV2 {
		t.mints = make([]Mint, 0, mintsLen)
		for i := uint64(0); i < mintsLen; i++ {
			fixed := pubkeyLen + mintProofLen + assetLen + 8 + pubkeyLen + 1
			if len(t.raw) < off+fixed {
				return fmt.Errorf("transaction: truncated mint %d", i)
			}
			m := Mint{}
			copy(m.Pubkey[:], t.raw[off:off+pubkeyLen])
			off += pubkeyLen
			m.Proof = t.raw[off : off+mintProofLen]
			off += mintProofLen
			copy(m.Asset[:], t.raw[off:off+assetLen])
			off += assetLen
			m.Value = binary.LittleEndian.Uint64(t.raw[off:])
			off += 8
			copy(m.Owner[:], t.raw[off:off+pubkeyLen])
			off += pubkeyLen
			hasTransfer := t.raw[off]
			off++
			if hasTransfer != 0 {
				if len(t.raw) < off+pubkeyLen+mintSigLen {
					return fmt.Errorf("transaction: truncated mint transfer %d", i)
				}
				var to [pubkeyLen]byte
				copy(to[:], t.raw[off:off+pubkeyLen])
				off += pubkeyLen
				m.TransferTo = &to
			}
			if len(t.raw) < off+mintSigLen {
				return fmt.Errorf("transaction: truncated mint signature %d", i)
			}
			copy(m.Signature[:], t.raw[off:off+mintSigLen])
			off += mintSigLen
			t.mints = append(t.mints, m)
		}

		t.burns = make([]Burn, 0, burnsLen)
		for i := uint64(0); i < burnsLen; i++ {
			if len(t.raw) < off+burnSize {
				return fmt.Errorf("transaction: truncated burn %d", i)
			}
			b := Burn{}
			copy(b.AssetID[:], t.raw[off:off+32])
			off += 32
			b.Value = binary.LittleEndian.Uint64(t.raw[off:])
			off += 8
			t.burns = append(t.burns, b)
		}
	}

	if len(t.raw) < off+bindingSigLen {
		return errors.New("transaction: truncated binding signature")
	}
	copy(t.bindingSignature[:], t.raw[off:off+bindingSigLen])
	off += bindingSigLen

	t.parsed = true
	return nil
}

func (t *Transaction) Version() TransactionVersion { return t.version }
func (t *Transaction) Fee() int64                  { return t.fee }
func (t *Transaction) Expiration() uint32          { return t.expiration }
func (t *Transaction) Spends() []Spend             { return t.spends }
func (t *Transaction) Outputs() []Output           { return t.outputs }
func (t *Transaction) Mints() []Mint               { return t.mints }
func (t *Transaction) Burns() []Burn               { return t.burns }
func (t *Transaction) Bytes() []byte               { return t.raw }
func (t *Transaction) SerializedSize() int         { return len(t.raw) }

// IsMinersFee reports whether t has zero spends, exactly one output, and a
// non-positive fee: the definition of a miner's-fee transaction.
func (t *Transaction) IsMinersFee() bool {
	return len(t.spends) == 0 && len(t.outputs) == 1 && t.fee <= 0
}

// Expired reports whether t is expired at currentSequence: an expiration of
// 0 never expires, otherwise the transaction expires once the chain
// reaches that sequence.
func Expired(expiration uint32, currentSequence uint32) bool {
	return expiration != 0 && currentSequence >= expiration
}

// Nullifiers returns the nullifiers of every spend, in order.
func (t *Transaction) Nullifiers() [][32]byte {
	out := make([][32]byte, len(t.spends))
	for i, s := range t.spends {
		out[i] = s.Nullifier
	}
	return out
}

// Hash returns the transaction's identifying hash: the blake3 digest of its
// raw serialized bytes.
func (t *Transaction) Hash() [32]byte {
	return hashTransactionBytes(t.raw)
}
