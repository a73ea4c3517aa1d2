package types

import "time"

// MempoolEntry wraps a transaction with the bookkeeping the mempool orders
// on: when it arrived, and its fee rate, since fee alone does not account
// for larger transactions consuming more of a block's size budget.
type MempoolEntry struct {
	Transaction *Transaction
	ReceivedAt  time.Time
}

// FeeRate is the transaction's fee per serialized byte, the figure the
// mempool sorts candidates by. Zero-size transactions (should not occur)
// are treated as rate zero rather than dividing by zero.
func (e *MempoolEntry) FeeRate() float64 {
	size := e.Transaction.SerializedSize()
	if size == 0 {
		return 0
	}
	return float64(e.Transaction.Fee()) / float64(size)
}

// Hash identifies the entry by the blake3 hash of its raw transaction bytes.
func (e *MempoolEntry) Hash() [32]byte {
	return hashTransactionBytes(e.Transaction.Bytes())
}
