package miner

import (
	"fmt"
	"time"
)

// DefaultConfig is the production configuration: preemptive templates on,
// a fee cache sized for a few minutes of block production at the default
// target block time.
var DefaultConfig = Config{
	PreemptiveTemplates: true,
	FeeCacheSize:        5,
	TemplateTimeout:     5 * time.Second,
}

// Config configures the Mining Manager's caching and template-assembly
// behavior.
type Config struct {
	// PreemptiveTemplates, when true, keeps the most recent empty-block
	// template available through PreemptiveTemplates.Latest alongside the
	// full one, so a caller whose full template turns out invalid has a
	// fallback ready without waiting on a rebuild.
	PreemptiveTemplates bool
	// FeeCacheSize bounds the number of sequences the miner's-fee cache
	// holds before evicting the least recently used entry.
	FeeCacheSize int
	// TemplateTimeout bounds how long CreateNewBlockTemplate waits on
	// mempool spend verification before giving up on a candidate block.
	TemplateTimeout time.Duration
	// Graffiti is stamped into every block template this manager builds.
	Graffiti [32]byte
}

func (c Config) String() string {
	return fmt.Sprintf(
		"PreemptiveTemplates: %t, FeeCacheSize: %d, TemplateTimeout: %s",
		c.PreemptiveTemplates, c.FeeCacheSize, c.TemplateTimeout,
	)
}
