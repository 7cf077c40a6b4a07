// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters for the supported
// ember networks.
package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// Params defines an ember network by its consensus parameters.  These
// parameters are consumed by the blockchain and mempool packages and must
// match across all nodes validating the same chain.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// MedianTimeSpan is the number of previous blocks over which the
	// median time past is calculated when validating block timestamps.
	MedianTimeSpan int

	// MaxFutureDrift is the maximum amount a block timestamp is allowed
	// to be ahead of the validator's clock.
	MaxFutureDrift time.Duration

	// AllowedHeaderVersions is the closed set of block header versions
	// accepted by consensus.  Blocks carrying any other version are
	// rejected outright.
	AllowedHeaderVersions []uint32

	// BaseSubsidy is the block subsidy paid to the miner of a block at
	// height zero, before any halvings are applied.
	BaseSubsidy btcutil.Amount

	// SubsidyHalvingInterval is the number of blocks between subsidy
	// halvings.  A value of zero disables halving.
	SubsidyHalvingInterval uint64

	// GenesisTimestamp is the timestamp of the genesis block and serves
	// as the median time past when no blocks are available.
	GenesisTimestamp time.Time
}

// IsHeaderVersionAllowed returns whether the passed header version is in the
// allowed set for the network.
func (p *Params) IsHeaderVersionAllowed(version uint32) bool {
	for _, v := range p.AllowedHeaderVersions {
		if v == version {
			return true
		}
	}
	return false
}

// MainNetParams defines the network parameters for the main ember network.
var MainNetParams = Params{
	Name:                   "mainnet",
	MedianTimeSpan:         11,
	MaxFutureDrift:         2 * time.Hour,
	AllowedHeaderVersions:  []uint32{1, 2},
	BaseSubsidy:            50 * btcutil.SatoshiPerBitcoin,
	SubsidyHalvingInterval: 210000,
	GenesisTimestamp:       time.Unix(1718000000, 0),
}

// RegressionNetParams defines the network parameters for the regression test
// network.  The small median time span and disabled halving make consensus
// behavior easy to exercise from tests.
var RegressionNetParams = Params{
	Name:                  "regtest",
	MedianTimeSpan:        11,
	MaxFutureDrift:        2 * time.Hour,
	AllowedHeaderVersions: []uint32{1, 2},
	BaseSubsidy:           50 * btcutil.SatoshiPerBitcoin,
	GenesisTimestamp:      time.Unix(1718000000, 0),
}
