package chaintest

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
)

func genesisHeader() types.BlockHeader {
	maxTarget := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	return types.BlockHeader{
		Sequence: 1,
		Target:   types.TargetFromBigInt(maxTarget),
	}
}

func TestNewSeedsGenesisAsHead(t *testing.T) {
	params := consensus.Default()
	c := New(params, genesisHeader())

	head := c.Head()
	require.Equal(t, uint32(1), head.Header.Sequence)
	require.NotNil(t, head.Work)
}

func TestAddBlockExtendsHead(t *testing.T) {
	params := consensus.Default()
	c := New(params, genesisHeader())
	ctx := context.Background()

	minersFee, err := types.NewTransactionBuilder(types.TransactionVersionV1).
		SetFee(-1).
		AddOutput(types.Output{}).
		Build()
	require.NoError(t, err)

	block, err := c.NewBlock(ctx, nil, minersFee, [32]byte{})
	require.NoError(t, err)

	added, isFork, err := c.AddBlock(ctx, block)
	require.NoError(t, err)
	require.True(t, added)
	require.False(t, isFork)

	head := c.Head()
	require.Equal(t, uint32(2), head.Header.Sequence)
}

func TestAddBlockRejectsUnknownPrevious(t *testing.T) {
	params := consensus.Default()
	c := New(params, genesisHeader())
	ctx := context.Background()

	orphan := &types.Block{Header: types.BlockHeader{Sequence: 5, PreviousHash: [32]byte{9, 9, 9}}}
	_, _, err := c.AddBlock(ctx, orphan)
	require.Error(t, err)
}

func TestGetPreviousResolvesParent(t *testing.T) {
	params := consensus.Default()
	c := New(params, genesisHeader())
	ctx := context.Background()

	minersFee, err := types.NewTransactionBuilder(types.TransactionVersionV1).
		SetFee(-1).
		AddOutput(types.Output{}).
		Build()
	require.NoError(t, err)
	block, err := c.NewBlock(ctx, nil, minersFee, [32]byte{})
	require.NoError(t, err)
	_, _, err = c.AddBlock(ctx, block)
	require.NoError(t, err)

	prev, err := c.GetPrevious(ctx, block.Header)
	require.NoError(t, err)
	require.Equal(t, uint32(1), prev.Sequence)
}

func TestNullifierTreeContainsAt(t *testing.T) {
	tree := NewNullifierTree()
	n := [32]byte{1, 2, 3}
	tree.Append(n)

	ctx := context.Background()
	ok, err := tree.Contains(ctx, n)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tree.ContainsAt(ctx, n, 0)
	require.NoError(t, err)
	require.False(t, ok, "nullifier inserted at size 1 must not be contained at size 0")

	ok, err = tree.ContainsAt(ctx, n, 1)
	require.NoError(t, err)
	require.True(t, ok)
}

var _ chain.Blockchain = (*Chain)(nil)
var _ chain.NoteTree = (*Tree)(nil)
var _ chain.NullifierTree = (*NullifierTree)(nil)
