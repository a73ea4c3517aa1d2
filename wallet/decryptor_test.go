package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veilchain/veil/chain/types"
)

func TestBackgroundNoteDecryptorReturnsOnlyMatchingNotes(t *testing.T) {
	d := testDecryptor()

	match := types.Output{}
	match.EncryptedNote[0] = 0xAB
	miss := types.Output{}
	miss.EncryptedNote[0] = 0x01

	notes, err := d.Decrypt(context.Background(), []types.Output{miss, match}, []byte{0xAB})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, 1, notes[0].Position)
	require.Equal(t, match, notes[0].Output)
}

func TestBackgroundNoteDecryptorEmptyOutputsShortCircuits(t *testing.T) {
	d := testDecryptor()
	notes, err := d.Decrypt(context.Background(), nil, []byte{0xAB})
	require.NoError(t, err)
	require.Nil(t, notes)
}
