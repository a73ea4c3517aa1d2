package chainprocessor

import (
	"context"

	"github.com/veilchain/veil/chain"
	"github.com/veilchain/veil/chain/types"
	"github.com/veilchain/veil/internal/vlog"
)

// RemoteProcessor adapts a remote FollowChainStream (used by a wallet that
// has no in-process chain to walk) into the same Add/Remove event shape
// Processor produces. Fork envelopes are ignored: the remote side only
// needs to tell the caller what to connect or disconnect.
type RemoteProcessor struct {
	chain chain.Blockchain
	log   *vlog.Logger
}

// NewRemote constructs a RemoteProcessor over bc's FollowChainStream.
func NewRemote(bc chain.Blockchain, log *vlog.Logger) *RemoteProcessor {
	if log == nil {
		log = vlog.Default()
	}
	return &RemoteProcessor{chain: bc, log: log}
}

// Diff opens a FollowChainStream starting at currentHead and translates it
// into Add/Remove events until ctx is canceled or the stream closes.
// limit bounds the number of stream envelopes consumed (0 for unbounded),
// passed straight through to FollowChainStream.
func (r *RemoteProcessor) Diff(ctx context.Context, currentHead types.Head, limit int) (<-chan chain.Event, error) {
	envelopes, err := r.chain.FollowChainStream(ctx, currentHead.Hash, limit)
	if err != nil {
		return nil, err
	}

	out := make(chan chain.Event, DefaultConfig.MaxQueueSize)
	go r.relay(ctx, envelopes, out)
	return out, nil
}

func (r *RemoteProcessor) relay(ctx context.Context, envelopes <-chan chain.StreamEnvelope, out chan<- chain.Event) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			switch env.Kind {
			case chain.StreamFork:
				continue
			case chain.StreamConnected:
				if !send(ctx, out, chain.Event{Kind: chain.EventAdd, Header: env.Header, Transactions: env.Transactions}) {
					return
				}
			case chain.StreamDisconnected:
				if !send(ctx, out, chain.Event{Kind: chain.EventRemove, Header: env.Header, Transactions: env.Transactions}) {
					return
				}
			default:
				r.log.Warn("chainprocessor: unknown stream envelope kind", "kind", env.Kind)
			}
		}
	}
}
