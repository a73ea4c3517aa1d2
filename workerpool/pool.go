// Package workerpool provides the concrete worker pool the verifier and
// wallet scanner dispatch zero-knowledge proof verification and note
// decryption to (C3). The proof-verification and decryption primitives
// themselves remain opaque, injected collaborators: this package owns only
// the bounded-concurrency fan-out around them.
package workerpool

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/veilchain/veil/chain/types"
)

// ErrSaturated is for callers that check Saturated before submitting work
// and choose to back off instead. No method of Pool returns it.
var ErrSaturated = errors.New("workerpool: pool saturated")

// Verifier is the opaque zero-knowledge proof verification primitive. A
// real implementation calls into the proving system; tests supply a fake.
type Verifier func(ctx context.Context, tx *types.Transaction) error

// Decryptor is the opaque keyed note-decryption primitive.
type Decryptor func(ctx context.Context, note types.Output, key []byte) (decrypted bool, err error)

// Pool is an errgroup/semaphore-backed bounded worker pool: at most
// Concurrency proof verifications or decryptions run at once, with
// in-flight work canceled cooperatively when ctx is done.
type Pool struct {
	verify   Verifier
	decrypt  Decryptor
	sem      *semaphore.Weighted
	capacity int64
}

// Options configures a Pool.
type Options struct {
	// Concurrency bounds the number of in-flight proof verifications or
	// decryptions. Must be at least 1.
	Concurrency int
	Verify      Verifier
	Decrypt     Decryptor
}

// New constructs a Pool. It panics if opts.Concurrency is non-positive or
// either primitive is nil, since both are required for the pool's only
// purpose.
func New(opts Options) *Pool {
	if opts.Concurrency < 1 {
		panic("workerpool: Concurrency must be positive")
	}
	if opts.Verify == nil || opts.Decrypt == nil {
		panic("workerpool: Verify and Decrypt are required")
	}
	return &Pool{
		verify:   opts.Verify,
		decrypt:  opts.Decrypt,
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		capacity: int64(opts.Concurrency),
	}
}

// Saturated reports whether every worker slot is currently occupied. This
// is a snapshot, not a promise the next call will succeed immediately.
func (p *Pool) Saturated() bool {
	if !p.sem.TryAcquire(1) {
		return true
	}
	p.sem.Release(1)
	return false
}

// Verify verifies a single transaction's proofs.
func (p *Pool) Verify(ctx context.Context, tx *types.Transaction) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return p.verify(ctx, tx)
}

// VerifyTransactions verifies a batch of transactions concurrently,
// returning the first error encountered (if any); other in-flight
// verifications in the batch are canceled once one fails.
func (p *Pool) VerifyTransactions(ctx context.Context, txs []*types.Transaction) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, tx := range txs {
		tx := tx
		g.Go(func() error {
			return p.Verify(gctx, tx)
		})
	}
	return g.Wait()
}

// TransactionFee computes a transaction's fee. This is a cheap accessor
// today (Transaction.Fee is parsed eagerly), but it is dispatched through
// the pool because a future fee model may need to consult the worker
// pool's proof-verification primitive to compute change amounts.
func (p *Pool) TransactionFee(_ context.Context, tx *types.Transaction) (int64, error) {
	return tx.Fee(), nil
}

// DecryptNotes attempts to decrypt each of notes with each of keys,
// bounded by the pool's concurrency, returning the indices of notes that
// decrypted successfully under some key.
func (p *Pool) DecryptNotes(ctx context.Context, notes []types.Output, keys [][]byte) ([]int, error) {
	results := make([]bool, len(notes))
	g, gctx := errgroup.WithContext(ctx)

	for i, note := range notes {
		i, note := i, note
		g.Go(func() error {
			if err := p.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer p.sem.Release(1)

			for _, key := range keys {
				ok, err := p.decrypt(gctx, note, key)
				if err != nil {
					return err
				}
				if ok {
					results[i] = true
					break
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var decrypted []int
	for i, ok := range results {
		if ok {
			decrypted = append(decrypted, i)
		}
	}
	return decrypted, nil
}
