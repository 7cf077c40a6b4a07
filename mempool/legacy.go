// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/embersuite/emberd/wire"
)

// populateLegacyInputs selects inputs and synthesizes outputs for an
// unsigned, inputless transaction submitted through the legacy path.
// Spendable outputs are taken from the sender's utxo set in the order the
// source returns them, skipping any already claimed by a pooled
// transaction or no longer reported unspent, until the amount plus fee is
// covered.  A change output back to the sender is added when the selection
// overshoots, and the nonce is assigned from the sender's nonce tracker.
//
// The transaction id is recomputed afterwards since the synthesized fields
// change the hash.  The amount and fee have already passed the value
// sanity checks, so the required sum cannot wrap.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) populateLegacyInputs(tx *wire.Transaction) error {
	required := tx.Amount + tx.Fee

	var total btcutil.Amount
	var inputs []wire.TxInput
	for _, utxo := range mp.cfg.Utxos.UtxosForAddress(tx.Sender) {
		if _, claimed := mp.outpoints[utxo.OutPoint]; claimed {
			continue
		}
		// The address index can lag; confirm the output is still
		// unspent and not locked by another pending transaction.
		if mp.cfg.Utxos.UnspentOutput(utxo.OutPoint, true) == nil {
			continue
		}
		inputs = append(inputs, wire.TxInput{
			PreviousOutPoint: utxo.OutPoint,
		})
		total += utxo.Amount
		if total >= required {
			break
		}
	}
	if total < required {
		str := fmt.Sprintf("sender %s has %v spendable but needs %v",
			tx.Sender, total, required)
		return txRuleError(RejectInsufficientFunds, str)
	}

	tx.Inputs = inputs
	tx.Outputs = []wire.TxOutput{{
		Address: tx.Recipient,
		Amount:  tx.Amount,
	}}
	if change := total - required; change > 0 {
		tx.Outputs = append(tx.Outputs, wire.TxOutput{
			Address: tx.Sender,
			Amount:  change,
		})
	}
	if mp.cfg.Nonces != nil {
		tx.Nonce = mp.cfg.Nonces.NextNonce(tx.Sender)
	}
	tx.TxID = tx.TxHash()
	return nil
}
