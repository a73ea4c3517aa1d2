package miner

import (
	"sync"

	"github.com/veilchain/veil/chain/types"
)

// templateCache holds at most a handful of in-flight block templates
// keyed by sequence: the empty_block_cache and normal_block_cache from the
// spec's Mining Manager state. Unlike feeCache it is not LRU-bounded: the
// manager purges everything below a block's sequence when
// SubmitBlockTemplate adds that block, and holds entries until then.
type templateCache struct {
	mu    sync.Mutex
	byseq map[uint32]*types.Block
}

func newTemplateCache() *templateCache {
	return &templateCache{byseq: make(map[uint32]*types.Block)}
}

func (c *templateCache) get(sequence uint32) (*types.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.byseq[sequence]
	return b, ok
}

func (c *templateCache) put(sequence uint32, block *types.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byseq[sequence] = block
}

func (c *templateCache) purgeBelow(sequence uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq := range c.byseq {
		if seq < sequence {
			delete(c.byseq, seq)
		}
	}
}
