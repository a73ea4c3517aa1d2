package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildMinersFee(t *testing.T, version TransactionVersion) *Transaction {
	t.Helper()
	tx, err := NewTransactionBuilder(version).
		SetFee(-2_000_000_000).
		AddOutput(Output{}).
		Build()
	require.NoError(t, err)
	return tx
}

func TestParseTransactionV1RoundTrip(t *testing.T) {
	tx := buildMinersFee(t, TransactionVersionV1)
	require.Equal(t, TransactionVersionV1, tx.Version())
	require.True(t, tx.IsMinersFee())
	require.Empty(t, tx.Spends())
	require.Len(t, tx.Outputs(), 1)
	require.Empty(t, tx.Mints())
	require.Empty(t, tx.Burns())
}

func TestParseTransactionV2RoundTripWithMintAndBurn(t *testing.T) {
	asset := [32]byte{9}
	tx, err := NewTransactionBuilder(TransactionVersionV2).
		SetFee(100).
		SetExpiration(500).
		AddSpend(Spend{Nullifier: [32]byte{1}, TreeSize: 7}).
		AddOutput(Output{}).
		AddMint(Mint{Asset: asset, Value: 5}).
		AddBurn(Burn{AssetID: asset, Value: 2}).
		Build()
	require.NoError(t, err)

	require.Equal(t, TransactionVersionV2, tx.Version())
	require.EqualValues(t, 100, tx.Fee())
	require.EqualValues(t, 500, tx.Expiration())
	require.Len(t, tx.Spends(), 1)
	require.Equal(t, [32]byte{1}, tx.Spends()[0].Nullifier)
	require.EqualValues(t, 7, tx.Spends()[0].TreeSize)
	require.Len(t, tx.Mints(), 1)
	require.Nil(t, tx.Mints()[0].TransferTo)
	require.Len(t, tx.Burns(), 1)
	require.False(t, tx.IsMinersFee())
}

func TestParseTransactionV2MintWithTransfer(t *testing.T) {
	to := [32]byte{4, 4, 4}
	tx, err := NewTransactionBuilder(TransactionVersionV2).
		AddMint(Mint{TransferTo: &to}).
		Build()
	require.NoError(t, err)
	require.Len(t, tx.Mints(), 1)
	require.NotNil(t, tx.Mints()[0].TransferTo)
	require.Equal(t, to, *tx.Mints()[0].TransferTo)
}

func TestParseTransactionRejectsTruncatedBuffer(t *testing.T) {
	_, err := ParseTransaction([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestParseTransactionRejectsEmptyBuffer(t *testing.T) {
	_, err := ParseTransaction(nil)
	require.Error(t, err)
}

func TestExpired(t *testing.T) {
	require.False(t, Expired(0, 1_000_000))
	require.False(t, Expired(100, 99))
	require.True(t, Expired(100, 100))
	require.True(t, Expired(100, 101))
}

func TestNullifiers(t *testing.T) {
	tx, err := NewTransactionBuilder(TransactionVersionV1).
		AddSpend(Spend{Nullifier: [32]byte{1}}).
		AddSpend(Spend{Nullifier: [32]byte{2}}).
		Build()
	require.NoError(t, err)
	require.Equal(t, [][32]byte{{1}, {2}}, tx.Nullifiers())
}

func TestTransactionHashIsStableAndContentAddressed(t *testing.T) {
	a := buildMinersFee(t, TransactionVersionV1)
	b := buildMinersFee(t, TransactionVersionV1)
	require.Equal(t, a.Hash(), b.Hash())

	other, err := NewTransactionBuilder(TransactionVersionV1).
		SetFee(-1).
		AddOutput(Output{}).
		Build()
	require.NoError(t, err)
	require.NotEqual(t, a.Hash(), other.Hash())
}
