package miner

import (
	"sync"

	"github.com/veilchain/veil/chain/types"
)

// PreemptiveTemplates bundles the most recently built empty and full block
// templates and fans each new full template out to subscribers: a caller
// whose full template turns out invalid can fall back to the latest empty
// one without waiting on a rebuild.
type PreemptiveTemplates struct {
	mu    sync.RWMutex
	empty *types.Block
	full  *types.Block

	subsMu sync.Mutex
	subs   []chan *types.Block
}

// Latest returns the most recent empty and full templates, either of
// which may be nil if none has been built yet.
func (p *PreemptiveTemplates) Latest() (empty, full *types.Block) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.empty, p.full
}

func (p *PreemptiveTemplates) setEmpty(block *types.Block) {
	p.mu.Lock()
	p.empty = block
	p.mu.Unlock()
}

func (p *PreemptiveTemplates) setFull(block *types.Block) {
	p.mu.Lock()
	p.full = block
	p.mu.Unlock()
	p.broadcast(block)
}

// Subscribe returns a channel of full-template replacements. The channel
// is never closed by PreemptiveTemplates; callers that stop listening
// should simply drop the reference.
func (p *PreemptiveTemplates) Subscribe() <-chan *types.Block {
	ch := make(chan *types.Block, 1)
	p.subsMu.Lock()
	p.subs = append(p.subs, ch)
	p.subsMu.Unlock()
	return ch
}

func (p *PreemptiveTemplates) broadcast(block *types.Block) {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- block:
		default:
			// Slow subscriber: drop rather than block template assembly.
		}
	}
}

// blockFeed is a minimal broadcast channel for new-block notifications.
type blockFeed struct {
	mu   sync.Mutex
	subs []chan *types.Block
}

func (f *blockFeed) Subscribe() <-chan *types.Block {
	ch := make(chan *types.Block, 1)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch
}

func (f *blockFeed) emit(block *types.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- block:
		default:
		}
	}
}
