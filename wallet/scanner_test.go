package wallet

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veilchain/veil/chain/chaintest"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/consensus"
	"github.com/veilchain/veil/metrics"
	"github.com/veilchain/veil/workerpool"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeAccount struct {
	id        [32]byte
	viewKey   []byte
	enabled   bool
	head      types.Head
	createdAt uint32
}

func (a *fakeAccount) ID() [32]byte              { return a.id }
func (a *fakeAccount) IncomingViewKey() []byte   { return a.viewKey }
func (a *fakeAccount) ScanningEnabled() bool     { return a.enabled }
func (a *fakeAccount) Head() types.Head          { return a.head }
func (a *fakeAccount) CreatedAt() uint32         { return a.createdAt }

type connectCall struct {
	account [32]byte
	header  types.BlockHeader
	notes   []DecryptedNote
}

type fakeStore struct {
	mu sync.Mutex

	accounts []Account
	connects []connectCall
	empties  []connectCall
	removes  []connectCall
}

func (s *fakeStore) ScanningAccounts(ctx context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

func (s *fakeStore) ConnectBlockForAccount(ctx context.Context, account Account, header types.BlockHeader, notes []DecryptedNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects = append(s.connects, connectCall{account: account.ID(), header: header, notes: notes})
	return nil
}

func (s *fakeStore) ConnectBlockEmptyForAccount(ctx context.Context, account Account, header types.BlockHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.empties = append(s.empties, connectCall{account: account.ID(), header: header})
	return nil
}

func (s *fakeStore) DisconnectBlockForAccount(ctx context.Context, account Account, header types.BlockHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes = append(s.removes, connectCall{account: account.ID(), header: header})
	return nil
}

func testDecryptor() *BackgroundNoteDecryptor {
	pool := workerpool.New(workerpool.Options{
		Concurrency: 4,
		Verify:      func(ctx context.Context, tx *types.Transaction) error { return nil },
		Decrypt: func(ctx context.Context, note types.Output, key []byte) (bool, error) {
			return len(key) > 0 && note.EncryptedNote[0] == key[0], nil
		},
	})
	return NewBackgroundNoteDecryptor(pool)
}

func maxTarget() types.Target {
	v := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	return types.TargetFromBigInt(v)
}

func minersFeeTx(t *testing.T, fee int64, noteTag byte) *types.Transaction {
	t.Helper()
	out := types.Output{}
	out.EncryptedNote[0] = noteTag
	tx, err := types.NewTransactionBuilder(types.TransactionVersionV1).
		SetFee(fee).
		AddOutput(out).
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

func extend(t *testing.T, c *chaintest.Chain, noteTag byte) *types.Block {
	t.Helper()
	reward := int64(c.Consensus().MiningReward(consensus.Sequence(c.Head().Header.Sequence + 1)))
	block, err := c.NewBlock(context.Background(), nil, minersFeeTx(t, -reward, noteTag), [32]byte{})
	require.NoError(t, err)
	block.Header.Timestamp = c.Head().Header.Timestamp.Add(time.Minute)
	block.Header.Target = c.Head().Header.Target
	added, _, err := c.AddBlock(context.Background(), block)
	require.NoError(t, err)
	require.True(t, added)
	return block
}

func TestAttachedAcceptsNeverScannedAndExtendingHeads(t *testing.T) {
	unscanned := &fakeAccount{head: types.NoHead}
	require.True(t, attached(unscanned, types.BlockHeader{}))

	scanned := &fakeAccount{head: types.Head{Hash: [32]byte{9}, Sequence: 5}}
	require.True(t, attached(scanned, types.BlockHeader{PreviousHash: [32]byte{9}}))
	require.False(t, attached(scanned, types.BlockHeader{PreviousHash: [32]byte{1}}))
}

func TestEarliestHeadReturnsNoHeadWhenAnyAccountUnsynced(t *testing.T) {
	accounts := []Account{
		&fakeAccount{head: types.Head{Sequence: 10}},
		&fakeAccount{head: types.NoHead},
	}
	require.Equal(t, types.NoHead, earliestHead(accounts))
}

func TestEarliestHeadReturnsMinimumSequence(t *testing.T) {
	accounts := []Account{
		&fakeAccount{head: types.Head{Sequence: 10}},
		&fakeAccount{head: types.Head{Sequence: 3}},
	}
	require.EqualValues(t, 3, earliestHead(accounts).Sequence)
}

func TestAccountsChangedDetectsAddedAccount(t *testing.T) {
	before := []Account{&fakeAccount{id: [32]byte{1}}}
	after := []Account{&fakeAccount{id: [32]byte{1}}, &fakeAccount{id: [32]byte{2}}}
	require.True(t, accountsChanged(before, after))
	require.False(t, accountsChanged(before, before))
}

func TestHandleAddFastPathsAccountCreatedAfterHeader(t *testing.T) {
	c := newTestChain(t)
	store := &fakeStore{}
	s := New(c, store, testDecryptor(), DefaultConfig, nil, nil)

	account := &fakeAccount{id: [32]byte{1}, enabled: true, head: types.NoHead, createdAt: 100}
	header := types.BlockHeader{Sequence: 2}

	err := s.handleAdd(context.Background(), header, nil, []Account{account})
	require.NoError(t, err)
	require.Len(t, store.empties, 1)
	require.Empty(t, store.connects)
}

func TestHandleAddDecryptsAndConnectsAttachedAccount(t *testing.T) {
	c := newTestChain(t)
	store := &fakeStore{}
	s := New(c, store, testDecryptor(), DefaultConfig, metrics.NewWallet(prometheus.NewRegistry()), nil)

	account := &fakeAccount{id: [32]byte{1}, enabled: true, head: types.NoHead, createdAt: 1, viewKey: []byte{7}}
	tx := minersFeeTx(t, -1, 7)
	header := types.BlockHeader{Sequence: 2}

	err := s.handleAdd(context.Background(), header, []*types.Transaction{tx}, []Account{account})
	require.NoError(t, err)
	require.Len(t, store.connects, 1)
	require.Len(t, store.connects[0].notes, 1)
}

func TestHandleAddSkipsUnattachedAccount(t *testing.T) {
	c := newTestChain(t)
	store := &fakeStore{}
	s := New(c, store, testDecryptor(), DefaultConfig, nil, nil)

	account := &fakeAccount{id: [32]byte{1}, enabled: true, head: types.Head{Hash: [32]byte{99}, Sequence: 5}}
	header := types.BlockHeader{Sequence: 6, PreviousHash: [32]byte{1}}

	err := s.handleAdd(context.Background(), header, nil, []Account{account})
	require.NoError(t, err)
	require.Empty(t, store.connects)
	require.Empty(t, store.empties)
}

func TestHandleRemoveDisconnectsAccountAtHead(t *testing.T) {
	c := newTestChain(t)
	store := &fakeStore{}
	s := New(c, store, testDecryptor(), DefaultConfig, nil, nil)

	header := types.BlockHeader{Sequence: 3}
	hash := headerHash(c.Consensus(), header)
	account := &fakeAccount{id: [32]byte{1}, head: types.Head{Hash: hash, Sequence: 3}}

	err := s.handleRemove(context.Background(), header, []Account{account})
	require.NoError(t, err)
	require.Len(t, store.removes, 1)
}

func TestScanOnceCatchesUpUnsyncedAccount(t *testing.T) {
	c := newTestChain(t)
	extend(t, c, 1)
	extend(t, c, 2)

	store := &fakeStore{accounts: []Account{
		&fakeAccount{id: [32]byte{1}, enabled: true, head: types.NoHead, createdAt: 1, viewKey: []byte{0xFF}},
	}}
	s := New(c, store, testDecryptor(), DefaultConfig, nil, nil)

	changed, err := s.ScanOnce(context.Background(), NewScanState())
	require.NoError(t, err)
	require.False(t, changed)
	require.Len(t, store.connects, 3) // genesis + two mined blocks
}
