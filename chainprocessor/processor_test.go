package chainprocessor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/chaintest"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
)

func maxTarget() types.Target {
	v := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	return types.TargetFromBigInt(v)
}

func minersFeeTx(t *testing.T, fee int64) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransactionBuilder(types.TransactionVersionV1).
		SetFee(fee).
		AddOutput(types.Output{}).
		Build()
	require.NoError(t, err)
	return tx
}

func newTestChain(t *testing.T) *chaintest.Chain {
	t.Helper()
	params := consensus.NewForTest(func(p *consensus.Parameters) {
		p.TargetBlockTimeSeconds = 60
		p.TargetBucketTimeSeconds = 15
	})
	genesis := types.BlockHeader{Sequence: 1, Target: maxTarget(), Timestamp: time.Now().Add(-time.Hour)}
	return chaintest.New(params, genesis)
}

// extend builds a block on top of previousHead (which must be the chain's
// current head) tagged with graffiti, without adding it.
func extend(t *testing.T, c *chaintest.Chain, graffiti byte) *types.Block {
	t.Helper()
	reward := int64(c.Consensus().MiningReward(consensus.Sequence(c.Head().Header.Sequence + 1)))
	block, err := c.NewBlock(context.Background(), nil, minersFeeTx(t, -reward), [32]byte{graffiti})
	require.NoError(t, err)
	block.Header.Timestamp = c.Head().Header.Timestamp.Add(time.Minute)
	block.Header.Target = c.Head().Header.Target
	return block
}

func drain(t *testing.T, ch <-chan chain.Event) []chain.Event {
	t.Helper()
	var events []chain.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for chain processor events")
		}
	}
}

func TestDiffFromNoHeadAddsEveryBlockIncludingGenesis(t *testing.T) {
	c := newTestChain(t)
	a1 := extend(t, c, 1)
	_, _, err := c.AddBlock(context.Background(), a1)
	require.NoError(t, err)
	a2 := extend(t, c, 2)
	_, _, err = c.AddBlock(context.Background(), a2)
	require.NoError(t, err)

	p := New(c, DefaultConfig, nil)
	events := drain(t, p.Diff(context.Background(), types.NoHead))

	require.Len(t, events, 3)
	require.Equal(t, chain.EventAdd, events[0].Kind)
	require.EqualValues(t, 1, events[0].Header.Sequence)
	require.Equal(t, chain.EventAdd, events[1].Kind)
	require.EqualValues(t, 2, events[1].Header.Sequence)
	require.Equal(t, chain.EventAdd, events[2].Kind)
	require.EqualValues(t, 3, events[2].Header.Sequence)
}

func TestDiffFromPartialCheckpointAddsRemainder(t *testing.T) {
	c := newTestChain(t)
	a1 := extend(t, c, 1)
	_, _, err := c.AddBlock(context.Background(), a1)
	require.NoError(t, err)
	checkpoint := types.Head{Hash: headerHash(c.Consensus(), a1.Header), Sequence: a1.Header.Sequence}

	a2 := extend(t, c, 2)
	_, _, err = c.AddBlock(context.Background(), a2)
	require.NoError(t, err)

	p := New(c, DefaultConfig, nil)
	events := drain(t, p.Diff(context.Background(), checkpoint))

	require.Len(t, events, 1)
	require.Equal(t, chain.EventAdd, events[0].Kind)
	require.EqualValues(t, 3, events[0].Header.Sequence)
}

func TestDiffAcrossReorgRemovesThenAdds(t *testing.T) {
	c := newTestChain(t)

	b1 := extend(t, c, 0xB) // extends genesis, held back from the canonical chain
	a1 := extend(t, c, 0xA)
	_, _, err := c.AddBlock(context.Background(), a1)
	require.NoError(t, err)
	a2 := extend(t, c, 0xA2)
	_, _, err = c.AddBlock(context.Background(), a2)
	require.NoError(t, err)

	added, isFork, err := c.AddBlock(context.Background(), b1)
	require.NoError(t, err)
	require.True(t, added)
	require.True(t, isFork)

	checkpoint := types.Head{Hash: headerHash(c.Consensus(), b1.Header), Sequence: b1.Header.Sequence}
	p := New(c, DefaultConfig, nil)
	events := drain(t, p.Diff(context.Background(), checkpoint))

	require.Len(t, events, 3)
	require.Equal(t, chain.EventRemove, events[0].Kind)
	require.Equal(t, headerHash(c.Consensus(), b1.Header), headerHash(c.Consensus(), events[0].Header))
	require.Equal(t, chain.EventAdd, events[1].Kind)
	require.Equal(t, headerHash(c.Consensus(), a1.Header), headerHash(c.Consensus(), events[1].Header))
	require.Equal(t, chain.EventAdd, events[2].Kind)
	require.Equal(t, headerHash(c.Consensus(), a2.Header), headerHash(c.Consensus(), events[2].Header))
}

func TestDiffCancelledContextStopsEarly(t *testing.T) {
	c := newTestChain(t)
	a1 := extend(t, c, 1)
	_, _, err := c.AddBlock(context.Background(), a1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(c, Config{MaxQueueSize: 1}, nil)
	ch := p.Diff(ctx, types.NoHead)

	select {
	case _, ok := <-ch:
		_ = ok
	case <-time.After(time.Second):
		t.Fatal("diff did not observe cancellation")
	}
}

func TestRemoteDiffTranslatesEnvelopes(t *testing.T) {
	c := newTestChain(t)
	env := make(chan chain.StreamEnvelope, 2)
	env <- chain.StreamEnvelope{Kind: chain.StreamFork, Header: types.BlockHeader{Sequence: 9}}
	env <- chain.StreamEnvelope{Kind: chain.StreamConnected, Header: types.BlockHeader{Sequence: 2}}
	close(env)

	r := NewRemote(&streamChain{Chain: c, envelopes: env}, nil)
	ch, err := r.Diff(context.Background(), types.NoHead, 0)
	require.NoError(t, err)

	events := drain(t, ch)
	require.Len(t, events, 1)
	require.Equal(t, chain.EventAdd, events[0].Kind)
	require.EqualValues(t, 2, events[0].Header.Sequence)
}

// streamChain wraps chaintest.Chain to serve a fixed FollowChainStream,
// since the in-memory fake has no real stream implementation.
type streamChain struct {
	*chaintest.Chain
	envelopes <-chan chain.StreamEnvelope
}

func (s *streamChain) FollowChainStream(ctx context.Context, startHash [32]byte, limit int) (<-chan chain.StreamEnvelope, error) {
	return s.envelopes, nil
}
