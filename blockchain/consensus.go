// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/embersuite/emberd/chaincfg"
)

// Config is a descriptor which specifies the consensus instance
// configuration.
type Config struct {
	// ChainParams identifies which chain parameters validation is
	// associated with.
	ChainParams *chaincfg.Params

	// TimeSource defines the function to use to obtain the current time.
	// It is consulted by the future-drift timestamp rule.  When nil,
	// time.Now is used.
	TimeSource func() time.Time

	// BlockSource defines an optional source used to lazily materialize
	// block bodies during full-chain validation.  When nil, every block
	// in a validated chain must already carry its body.
	BlockSource BlockSource

	// Balances defines an optional source of address balances used by
	// the per-transaction balance rule.  When nil, balance checks are
	// skipped.
	Balances BalanceSource
}

// Consensus provides block, transaction, and chain validation against a set
// of chain parameters.  It holds no chain state of its own: every function
// is pure over the blocks passed to it and safe for concurrent use provided
// the caller externally synchronizes concurrent chain mutation.
type Consensus struct {
	chainParams *chaincfg.Params
	timeSource  func() time.Time
	blockSource BlockSource
	balances    BalanceSource
}

// New returns a Consensus instance using the provided configuration.
func New(cfg *Config) *Consensus {
	timeSource := cfg.TimeSource
	if timeSource == nil {
		timeSource = time.Now
	}
	return &Consensus{
		chainParams: cfg.ChainParams,
		timeSource:  timeSource,
		blockSource: cfg.BlockSource,
		balances:    cfg.Balances,
	}
}
