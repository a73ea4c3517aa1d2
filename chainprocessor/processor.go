package chainprocessor

import (
	"context"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/internal/vlog"
)

// Processor walks an in-process Blockchain's header chain to compute the
// diff between a tracked checkpoint and the canonical head.
type Processor struct {
	chain  chain.Blockchain
	config Config
	log    *vlog.Logger
}

// New constructs a Processor over bc.
func New(bc chain.Blockchain, cfg Config, log *vlog.Logger) *Processor {
	if log == nil {
		log = vlog.Default()
	}
	if cfg.MaxQueueSize <= 0 {
		cfg = DefaultConfig
	}
	return &Processor{chain: bc, config: cfg, log: log}
}

// Diff starts a background walk transforming currentHead into the chain's
// canonical head and returns a channel of the Add/Remove events that
// perform that transformation, oldest first. The channel is closed when
// the walk completes, ctx is canceled, or an ancestor lookup fails (logged
// and treated as a reason to stop, since the walk has no way to recover
// from a broken header chain).
//
// currentHead.IsNone() means "nothing processed yet": the diff walks all
// the way back to genesis and emits Add for every header on the canonical
// chain.
func (p *Processor) Diff(ctx context.Context, currentHead types.Head) <-chan chain.Event {
	out := make(chan chain.Event, p.config.MaxQueueSize)
	go p.walk(ctx, currentHead, out)
	return out
}

func (p *Processor) walk(ctx context.Context, currentHead types.Head, out chan<- chain.Event) {
	defer close(out)
	params := p.chain.Consensus()

	newHeader := p.chain.Head().Header
	var oldHeader types.BlockHeader
	haveOld := !currentHead.IsNone()
	if haveOld {
		h, err := p.chain.GetHeader(ctx, currentHead.Hash)
		if err != nil {
			p.log.Warn("chainprocessor: resolve checkpoint header", "error", err)
			return
		}
		oldHeader = h
	}

	var fork []types.BlockHeader

	// Step 1: collect new-side headers strictly ahead of the checkpoint.
	// oldHeader.Sequence is 0 when there is no checkpoint yet, so this
	// also covers the "walk all the way to genesis" case.
	for newHeader.Sequence > oldHeader.Sequence {
		fork = append(fork, newHeader)
		if newHeader.Sequence == 1 {
			newHeader = types.BlockHeader{}
			break
		}
		prev, err := p.chain.GetPrevious(ctx, newHeader)
		if err != nil {
			p.log.Warn("chainprocessor: walk new chain", "error", err)
			return
		}
		newHeader = prev
	}

	// Step 2: the checkpoint is ahead of (or on a now-abandoned branch at
	// the same height as) the walked-back new pointer; remove down to the
	// same sequence before looking for a common ancestor.
	for haveOld && oldHeader.Sequence > newHeader.Sequence {
		block, err := p.chain.GetBlock(ctx, headerHash(params, oldHeader))
		if err != nil {
			p.log.Warn("chainprocessor: load block to remove", "error", err)
			return
		}
		if !send(ctx, out, chain.Event{Kind: chain.EventRemove, Header: oldHeader, Transactions: block.Transactions}) {
			return
		}
		if oldHeader.Sequence == 1 {
			haveOld = false
			break
		}
		prev, err := p.chain.GetPrevious(ctx, oldHeader)
		if err != nil {
			p.log.Warn("chainprocessor: walk old chain", "error", err)
			return
		}
		oldHeader = prev
	}

	// Step 3: walk both pointers back together until they agree, removing
	// the stale branch and extending fork with the new one.
	for haveOld && newHeader.Sequence > 0 && headerHash(params, oldHeader) != headerHash(params, newHeader) {
		block, err := p.chain.GetBlock(ctx, headerHash(params, oldHeader))
		if err != nil {
			p.log.Warn("chainprocessor: load block to remove", "error", err)
			return
		}
		if !send(ctx, out, chain.Event{Kind: chain.EventRemove, Header: oldHeader, Transactions: block.Transactions}) {
			return
		}
		fork = append(fork, newHeader)

		if oldHeader.Sequence == 1 || newHeader.Sequence == 1 {
			haveOld = false
			break
		}
		prevOld, err := p.chain.GetPrevious(ctx, oldHeader)
		if err != nil {
			p.log.Warn("chainprocessor: walk old chain", "error", err)
			return
		}
		prevNew, err := p.chain.GetPrevious(ctx, newHeader)
		if err != nil {
			p.log.Warn("chainprocessor: walk new chain", "error", err)
			return
		}
		oldHeader = prevOld
		newHeader = prevNew
	}

	// Step 4: emit Add for every fork header, oldest first.
	for i := len(fork) - 1; i >= 0; i-- {
		header := fork[i]
		block, err := p.chain.GetBlock(ctx, headerHash(params, header))
		if err != nil {
			p.log.Warn("chainprocessor: load block to add", "error", err)
			return
		}
		if !send(ctx, out, chain.Event{Kind: chain.EventAdd, Header: header, Transactions: block.Transactions}) {
			return
		}
	}
}

// send delivers ev on out, honoring cancellation instead of blocking
// forever against a full or abandoned queue.
func send(ctx context.Context, out chan<- chain.Event, ev chain.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
