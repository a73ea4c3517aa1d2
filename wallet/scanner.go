package wallet

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/chainprocessor"
	"github.com/veilchain/veil/consensus"
	"github.com/veilchain/veil/internal/vlog"
	"github.com/veilchain/veil/metrics"
)

// Scanner drives the chain-following scan loop: snapshot the scanning
// account set, diff the chain from their shared earliest head, and
// connect or disconnect each attached account as events arrive.
type Scanner struct {
	chain     chain.Blockchain
	store     AccountStore
	decryptor *BackgroundNoteDecryptor
	config    Config
	metrics   *metrics.Wallet
	log       *vlog.Logger
}

// New constructs a Scanner bound to its collaborators.
func New(bc chain.Blockchain, store AccountStore, decryptor *BackgroundNoteDecryptor, cfg Config, m *metrics.Wallet, log *vlog.Logger) *Scanner {
	if log == nil {
		log = vlog.Default()
	}
	if cfg.ReSnapshotEvents <= 0 {
		cfg = DefaultConfig
	}
	return &Scanner{chain: bc, store: store, decryptor: decryptor, config: cfg, metrics: m, log: log}
}

// Run repeatedly scans to the canonical head until state is aborted or ctx
// is canceled, re-snapshotting the account set whenever ScanOnce reports a
// change was detected mid-pass.
func (s *Scanner) Run(ctx context.Context, state *ScanState) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-state.Done():
			return nil
		default:
		}

		_, err := s.ScanOnce(ctx, state)
		if err != nil {
			return err
		}
		if state.Aborted() {
			return nil
		}
	}
}

// ScanOnce performs one pass of steps 1-6 of the scan loop: snapshot
// accounts, compute the shared earliest head, diff the chain from there,
// and dispatch each event until the chain processor catches up, the
// account set changes, or state is aborted. changed reports whether the
// pass stopped early because the account set changed underneath it,
// signaling the caller to snapshot again immediately.
func (s *Scanner) ScanOnce(ctx context.Context, state *ScanState) (changed bool, err error) {
	accounts, err := s.store.ScanningAccounts(ctx)
	if err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.AccountsScanned.Inc()
	}

	earliest := earliestHead(accounts)
	if s.metrics != nil {
		s.metrics.ScanLag.Set(float64(s.chain.Head().Header.Sequence) - float64(earliest.Sequence))
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	proc := chainprocessor.New(s.chain, chainprocessor.DefaultConfig, s.log)
	events := proc.Diff(runCtx, earliest)

	processed := 0
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-state.Done():
			return false, nil
		case ev, ok := <-events:
			if !ok {
				return false, nil
			}
			switch ev.Kind {
			case chain.EventAdd:
				if err := s.handleAdd(runCtx, ev.Header, ev.Transactions, accounts); err != nil {
					return false, err
				}
			case chain.EventRemove:
				if err := s.handleRemove(runCtx, ev.Header, accounts); err != nil {
					return false, err
				}
			}

			processed++
			if processed%s.config.ReSnapshotEvents == 0 {
				current, err := s.store.ScanningAccounts(ctx)
				if err != nil {
					return false, err
				}
				if accountsChanged(accounts, current) {
					return true, nil
				}
			}
		}
	}
}

func (s *Scanner) handleAdd(ctx context.Context, header types.BlockHeader, txs []*types.Transaction, accounts []Account) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		account := account
		if !attached(account, header) {
			continue
		}

		if account.CreatedAt() > header.Sequence {
			g.Go(func() error {
				return s.store.ConnectBlockEmptyForAccount(gctx, account, header)
			})
			continue
		}

		g.Go(func() error {
			notes, err := s.decryptor.Decrypt(gctx, blockOutputs(txs), account.IncomingViewKey())
			if err != nil {
				return err
			}
			if err := s.store.ConnectBlockForAccount(gctx, account, header, notes); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.NotesDecrypted.Add(float64(len(notes)))
				s.metrics.HeadsAdvanced.Inc()
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Scanner) handleRemove(ctx context.Context, header types.BlockHeader, accounts []Account) error {
	hash := headerHash(s.chain.Consensus(), header)

	g, gctx := errgroup.WithContext(ctx)
	for _, account := range accounts {
		account := account
		if account.Head().Hash != hash {
			continue
		}
		g.Go(func() error {
			return s.store.DisconnectBlockForAccount(gctx, account, header)
		})
	}
	return g.Wait()
}

// attached reports whether header connects onto account's current
// position: either the account has never been scanned, or header extends
// its stored head.
func attached(account Account, header types.BlockHeader) bool {
	head := account.Head()
	return head.IsNone() || head.Hash == header.PreviousHash
}

// earliestHead returns the lowest-sequence head across accounts, or
// types.NoHead if any account is unsynced (forcing the diff to start from
// genesis).
func earliestHead(accounts []Account) types.Head {
	var earliest types.Head
	set := false
	for _, a := range accounts {
		head := a.Head()
		if head.IsNone() {
			return types.NoHead
		}
		if !set || head.Sequence < earliest.Sequence {
			earliest = head
			set = true
		}
	}
	if !set {
		return types.NoHead
	}
	return earliest
}

func accountsChanged(before, after []Account) bool {
	if len(before) != len(after) {
		return true
	}
	seen := make(map[[32]byte]struct{}, len(before))
	for _, a := range before {
		seen[a.ID()] = struct{}{}
	}
	for _, a := range after {
		if _, ok := seen[a.ID()]; !ok {
			return true
		}
	}
	return false
}

func hashAlgorithm(params consensus.Parameters, sequence uint32) types.HashAlgorithm {
	if consensus.IsActive(params.EnableFishHash, consensus.Sequence(sequence)) {
		return types.HashAlgorithmFishHash
	}
	return types.HashAlgorithmBlake3
}

func headerHash(params consensus.Parameters, header types.BlockHeader) [32]byte {
	return header.Hash(hashAlgorithm(params, header.Sequence))
}
