// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mempool provides a policy-enforced pool of unmined ember
transactions.

A key responsibility of the ember network is mining transactions into
blocks.  In order to facilitate this, the mining process relies on having a
readily-available source of transactions to include in a block that is
being solved.  At a high level, this package satisfies that requirement by
providing an in-memory pool of fully validated transactions that can also
optionally be further filtered based upon a configurable policy.

The pool enforces double-spend prevention against its own contents,
supports opt-in replacement of pending transactions by higher fee-rate
versions from the same sender, evicts the lowest fee-rate entry when full,
prunes entries that outstay the configured maximum age, queues transactions
whose inputs are not yet known as orphans, and temporarily bans senders who
repeatedly submit invalid transactions.

All admission decisions happen under a single lock, so the pool is safe for
concurrent access.  Rejections are returned as RuleError values carrying a
RejectCode describing the reason.
*/
package mempool
