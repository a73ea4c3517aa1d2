// Package mempool implements the ordering contract for C7's pending
// transaction set. Admission, eviction, and persistence belong to a
// surrounding storage layer (external collaborator); this package owns
// only how pending transactions are held and returned in priority order.
package mempool

import (
	"sort"
	"sync"
	"time"

	"github.com/veilchain/veil/chain/types"
)

// entry pairs a transaction with its arrival time, mirroring the
// mutex-guarded map+slice shape of a FIFO transaction set, but ordered on
// demand by fee-rate rather than insertion order.
type entry struct {
	tx         *types.Transaction
	receivedAt time.Time
}

// Pool is an ordered-by-fee-rate set of pending transactions: fee-rate
// (fee/serialized-size) descending, then received-at ascending. It is the
// concrete default for C7; a surrounding service that persists transactions
// to disk can embed or wrap it instead of using it standalone.
type Pool struct {
	mu      sync.Mutex
	byHash  map[[32]byte]*entry
	ordered []*entry // kept sorted lazily; see Ordered
	dirty   bool
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{byHash: make(map[[32]byte]*entry)}
}

// Add inserts tx into the pool, or replaces the existing entry for the
// same hash (keeping the original received-at time, since re-adding a
// transaction already in the pool should not let it jump the ordering).
func (p *Pool) Add(tx *types.Transaction, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := tx.Hash()
	if existing, ok := p.byHash[hash]; ok {
		existing.tx = tx
		p.dirty = true
		return
	}

	e := &entry{tx: tx, receivedAt: now}
	p.byHash[hash] = e
	p.ordered = append(p.ordered, e)
	p.dirty = true
}

// Contains reports whether hash is present in the pool.
func (p *Pool) Contains(hash [32]byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byHash[hash]
	return ok
}

// Get returns the transaction for hash, or nil if absent.
func (p *Pool) Get(hash [32]byte) *types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.byHash[hash]; ok {
		return e.tx
	}
	return nil
}

// Remove evicts hash from the pool, if present.
func (p *Pool) Remove(hash [32]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byHash[hash]; !ok {
		return
	}
	delete(p.byHash, hash)
	for i, e := range p.ordered {
		if e.tx.Hash() == hash {
			p.ordered = append(p.ordered[:i], p.ordered[i+1:]...)
			break
		}
	}
}

// Len returns the number of transactions currently in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byHash)
}

// Clear empties the pool.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byHash = make(map[[32]byte]*entry)
	p.ordered = nil
	p.dirty = false
}

// Ordered returns every transaction in priority order: fee-rate descending,
// received-at ascending as a tiebreak. The mining manager walks this slice
// greedily when assembling a block template.
func (p *Pool) Ordered() []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dirty {
		sort.SliceStable(p.ordered, func(i, j int) bool {
			a, b := p.ordered[i], p.ordered[j]
			rateA, rateB := feeRate(a.tx), feeRate(b.tx)
			if rateA != rateB {
				return rateA > rateB
			}
			return a.receivedAt.Before(b.receivedAt)
		})
		p.dirty = false
	}

	out := make([]*types.Transaction, len(p.ordered))
	for i, e := range p.ordered {
		out[i] = e.tx
	}
	return out
}

func feeRate(tx *types.Transaction) float64 {
	size := tx.SerializedSize()
	if size == 0 {
		return 0
	}
	return float64(tx.Fee()) / float64(size)
}
