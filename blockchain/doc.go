// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package blockchain implements ember block and chain validation.

The validation rules fall into a few groups: block-local checks (stored
hash recomputation, header version allow-list, proof of work), contextual
checks against the chain being extended (linkage, height, the timestamp
rules including median time past), transaction checks within a block
(ordering and nonce sequencing, coinbase value, signatures, balances), and
whole-chain operations (full validation walks, integrity sweeps, and fork
resolution).

All functions here are stateless and operate on the chains passed to them;
callers own persistence and synchronization.  Chains may be supplied with
header-only blocks, in which case bodies are materialized lazily through
the BlockSource interface.

# Errors

Errors returned by this package are either the underlying error from a
collaborator or a RuleError indicating which consensus rule a block broke.
Use IsRuleErrorCode to test for a specific rule violation.
*/
package blockchain
