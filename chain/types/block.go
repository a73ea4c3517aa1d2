package types

import "errors"

// Block pairs a header with its transaction list. By convention the first
// transaction is always the miner's-fee transaction that pays the block
// reward plus the fees of every other transaction in the block.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// MinersFeeTransaction returns transactions[0], or an error if the block has
// no transactions at all (never valid, but callers should not index blindly).
func (b *Block) MinersFeeTransaction() (*Transaction, error) {
	if len(b.Transactions) == 0 {
		return nil, errors.New("block: no transactions")
	}
	return b.Transactions[0], nil
}

// StandardTransactions returns every transaction after the miner's-fee
// transaction.
func (b *Block) StandardTransactions() []*Transaction {
	if len(b.Transactions) <= 1 {
		return nil
	}
	return b.Transactions[1:]
}

// TotalSerializedSize sums the serialized size of the header's fixed fields
// is not tracked here; this returns the sum of every transaction's
// serialized size, the part that matters for MaxBlockSizeBytes enforcement.
func (b *Block) TotalSerializedSize() int {
	total := 0
	for _, tx := range b.Transactions {
		total += tx.SerializedSize()
	}
	return total
}

// Fees sums the fee of every transaction, miner's-fee included (which is
// zero or negative so it nets out of the total correctly).
func (b *Block) Fees() int64 {
	var total int64
	for _, tx := range b.Transactions {
		total += tx.Fee()
	}
	return total
}
