// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/btcsuite/btcd/btcutil"

	"github.com/embersuite/emberd/wire"
)

// BlockSource materializes block bodies from storage.  FetchBlock returns
// (nil, nil) when no block exists at the given index.  Implementations may
// block on I/O; callers needing concurrency must use worker goroutines.
type BlockSource interface {
	FetchBlock(index uint64) (*wire.Block, error)
}

// BalanceSource reports the spendable balance of an address as of the chain
// state the caller is validating against.
type BalanceSource interface {
	Balance(addr string) (btcutil.Amount, error)
}
