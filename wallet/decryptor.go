package wallet

import (
	"context"

	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/workerpool"
)

// BackgroundNoteDecryptor dispatches note decryption for an attached
// account's block through the shared worker pool.
type BackgroundNoteDecryptor struct {
	pool *workerpool.Pool
}

// NewBackgroundNoteDecryptor wraps pool.
func NewBackgroundNoteDecryptor(pool *workerpool.Pool) *BackgroundNoteDecryptor {
	return &BackgroundNoteDecryptor{pool: pool}
}

// Decrypt attempts to decrypt every output in outputs under key, returning
// the subset that succeeded with their original positions preserved.
func (d *BackgroundNoteDecryptor) Decrypt(ctx context.Context, outputs []types.Output, key []byte) ([]DecryptedNote, error) {
	if len(outputs) == 0 {
		return nil, nil
	}
	indices, err := d.pool.DecryptNotes(ctx, outputs, [][]byte{key})
	if err != nil {
		return nil, err
	}
	notes := make([]DecryptedNote, len(indices))
	for i, idx := range indices {
		notes[i] = DecryptedNote{Output: outputs[idx], Position: idx}
	}
	return notes, nil
}

// blockOutputs flattens every output across a block's transactions, in
// the order note positions are assigned (miner's fee plus standard
// transactions, in block order).
func blockOutputs(txs []*types.Transaction) []types.Output {
	var outputs []types.Output
	for _, tx := range txs {
		outputs = append(outputs, tx.Outputs()...)
	}
	return outputs
}
