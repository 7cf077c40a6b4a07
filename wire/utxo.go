// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"github.com/btcsuite/btcd/btcutil"
)

// Utxo describes an unspent transaction output as reported by a utxo set
// manager: the outpoint that identifies it, the address it pays, and its
// value.
type Utxo struct {
	OutPoint OutPoint
	Address  string
	Amount   btcutil.Amount
}
