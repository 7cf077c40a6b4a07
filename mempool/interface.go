// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"errors"

	"github.com/embersuite/emberd/wire"
)

// ErrMissingInputs is the sentinel a TxValidator implementation wraps when
// a transaction fails validation solely because one or more of its inputs
// reference unknown unspent outputs.  The pool treats such transactions as
// orphans rather than counting a strike against the sender.
var ErrMissingInputs = errors.New("transaction references unknown inputs")

// UtxoSource provides access to the unspent transaction output set and its
// lock bookkeeping.  The pool reserves outputs for admitted transactions
// and releases them again when a transaction leaves the pool unmined.
type UtxoSource interface {
	// UtxosForAddress returns the spendable outputs owned by an address.
	UtxosForAddress(addr string) []*wire.Utxo

	// UnspentOutput returns the unspent output for the passed outpoint
	// or nil when it is unknown.  When excludePending is true, outputs
	// locked by pending transactions are treated as unknown.
	UnspentOutput(op wire.OutPoint, excludePending bool) *wire.Utxo

	// UnlockOutputs releases the locks the pool holds on the passed
	// outpoints.
	UnlockOutputs(ops []wire.OutPoint)
}

// NonceSource tracks the per-sender transaction sequence.
type NonceSource interface {
	// NextNonce returns the next expected nonce for an address.
	NextNonce(addr string) uint64

	// ReserveNonce marks a nonce as taken by a pending transaction.
	ReserveNonce(addr string, nonce uint64)
}

// TxValidator performs the structural, signature, and balance checks on a
// candidate transaction.  A failure caused only by unknown inputs must wrap
// ErrMissingInputs so the pool can classify the transaction as an orphan.
type TxValidator interface {
	ValidateTransaction(tx *wire.Transaction) error
}
