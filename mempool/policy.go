// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"
)

const (
	// DefaultMaxPoolSize is the default maximum number of transactions
	// held in the main pool.
	DefaultMaxPoolSize = 5000

	// DefaultMaxPerSender is the default cap on pending transactions
	// from a single sender.
	DefaultMaxPerSender = 64

	// DefaultMaxTxAge is the default duration after which an unmined
	// transaction is pruned from the pool.
	DefaultMaxTxAge = 24 * time.Hour

	// DefaultMaxOrphanTxs is the default maximum number of orphan
	// transactions queued while their inputs are unknown.
	DefaultMaxOrphanTxs = 100

	// DefaultInvalidThreshold is the default number of invalid
	// submissions within the strike window that triggers a sender ban.
	DefaultInvalidThreshold = 5

	// DefaultInvalidWindow is the default width of the strike-counting
	// window.
	DefaultInvalidWindow = 10 * time.Minute

	// DefaultBanDuration is the default length of a sender ban.
	DefaultBanDuration = time.Hour

	// maxRejectedTxns is the number of recently rejected transaction ids
	// remembered to short-circuit repeat submissions.
	maxRejectedTxns = 1000
)

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.  Zero values fall back to the defaults above.
type Policy struct {
	// MaxPoolSize is the maximum number of transactions in the main
	// pool.  Admission beyond it evicts the lowest fee-rate entry when
	// the newcomer pays a strictly higher rate.
	MaxPoolSize int

	// MaxPerSender caps the pending transactions of a single sender.
	MaxPerSender int

	// MaxTxAge is how long an unmined transaction may stay pooled.
	// Expired entries are pruned at the start of every admission.
	MaxTxAge time.Duration

	// MaxOrphanTxs bounds the orphan pool.  The oldest orphan is evicted
	// first when the bound is hit.
	MaxOrphanTxs int

	// InvalidThreshold is the number of invalid submissions within
	// InvalidWindow that bans a sender.
	InvalidThreshold int

	// InvalidWindow is the width of the strike-counting window.
	InvalidWindow time.Duration

	// BanDuration is how long a ban lasts once triggered.
	BanDuration time.Duration
}

// normalized returns a copy of the policy with zero values replaced by the
// package defaults.
func (p Policy) normalized() Policy {
	if p.MaxPoolSize == 0 {
		p.MaxPoolSize = DefaultMaxPoolSize
	}
	if p.MaxPerSender == 0 {
		p.MaxPerSender = DefaultMaxPerSender
	}
	if p.MaxTxAge == 0 {
		p.MaxTxAge = DefaultMaxTxAge
	}
	if p.MaxOrphanTxs == 0 {
		p.MaxOrphanTxs = DefaultMaxOrphanTxs
	}
	if p.InvalidThreshold == 0 {
		p.InvalidThreshold = DefaultInvalidThreshold
	}
	if p.InvalidWindow == 0 {
		p.InvalidWindow = DefaultInvalidWindow
	}
	if p.BanDuration == 0 {
		p.BanDuration = DefaultBanDuration
	}
	return p
}
