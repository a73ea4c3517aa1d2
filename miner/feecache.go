package miner

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/veilchain/veil/chain/types"
)

// feeCache memoizes the miner's-fee transaction built for a sequence. A
// singleflight.Group collapses concurrent builders for the same sequence
// into one call: the in-flight call itself is the cached "promise", and
// the LRU only ever holds resolved values.
type feeCache struct {
	cache *lru.Cache[uint32, *types.Transaction]
	group singleflight.Group
}

func newFeeCache(size int) *feeCache {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[uint32, *types.Transaction](size)
	if err != nil {
		panic(err)
	}
	return &feeCache{cache: c}
}

// get returns the cached miner's-fee transaction for sequence, building it
// with build if absent. Concurrent calls for the same sequence share one
// build invocation.
func (f *feeCache) get(sequence uint32, build func() (*types.Transaction, error)) (*types.Transaction, error) {
	if tx, ok := f.cache.Get(sequence); ok {
		return tx, nil
	}
	v, err, _ := f.group.Do(strconv.FormatUint(uint64(sequence), 10), func() (interface{}, error) {
		if tx, ok := f.cache.Get(sequence); ok {
			return tx, nil
		}
		tx, err := build()
		if err != nil {
			return nil, err
		}
		f.cache.Add(sequence, tx)
		return tx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Transaction), nil
}

// purgeBelow evicts every cached sequence below sequence, called once
// SubmitBlockTemplate has added a block at sequence.
func (f *feeCache) purgeBelow(sequence uint32) {
	for _, key := range f.cache.Keys() {
		if key < sequence {
			f.cache.Remove(key)
		}
	}
}
