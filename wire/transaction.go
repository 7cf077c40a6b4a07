// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxKind identifies the class of a transaction.  It is a closed set; any
// value outside the constants below is invalid.
type TxKind uint8

const (
	// KindNormal is an ordinary value transfer funded by the sender's
	// unspent outputs and subject to signature and balance checks.
	KindNormal TxKind = iota

	// KindCoinbase is the miner reward transaction.  At most one may
	// appear in a block and only at position zero.
	KindCoinbase

	// KindSystem is a protocol-generated transaction.  System transactions
	// are exempt from signature and nonce-ordering checks.
	KindSystem

	// KindAirdrop is a distribution transaction with the same exemptions
	// as KindSystem.
	KindAirdrop
)

// txKindStrings maps TxKind values back to their constant names.
var txKindStrings = map[TxKind]string{
	KindNormal:   "KindNormal",
	KindCoinbase: "KindCoinbase",
	KindSystem:   "KindSystem",
	KindAirdrop:  "KindAirdrop",
}

// String returns the TxKind as a human-readable name.
func (k TxKind) String() string {
	if s, ok := txKindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown TxKind (%d)", uint8(k))
}

// IsExemptFromOrdering returns whether transactions of this kind are exempt
// from the per-sender nonce ordering rules.
func (k TxKind) IsExemptFromOrdering() bool {
	return k == KindSystem || k == KindAirdrop || k == KindCoinbase
}

// OutPoint defines an ember data type that is used to track previous
// transaction outputs.
type OutPoint struct {
	TxID  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new ember transaction outpoint with the provided
// hash and index.
func NewOutPoint(txid *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{
		TxID:  *txid,
		Index: index,
	}
}

// String returns the OutPoint in the human-readable form "txid:index".
func (o OutPoint) String() string {
	return fmt.Sprintf("%v:%d", o.TxID, o.Index)
}

// TxInput defines an ember transaction input, a reference to an unspent
// output of a previous transaction.
type TxInput struct {
	PreviousOutPoint OutPoint
}

// TxOutput defines an ember transaction output.
type TxOutput struct {
	Address string
	Amount  btcutil.Amount
}

// Transaction describes an ember transaction.  The account-style fields
// (Sender, Recipient, Amount, Fee, Nonce) describe intent while Inputs and
// Outputs carry the UTXO funding of that intent.
type Transaction struct {
	// TxID is the transaction identifier.  It must equal TxHash over the
	// remaining fields; a zero TxID is populated on admission.
	TxID chainhash.Hash

	Sender    string
	Recipient string
	Amount    btcutil.Amount
	Fee       btcutil.Amount
	Nonce     uint64

	Inputs  []TxInput
	Outputs []TxOutput

	// Timestamp is the sender-declared creation time in Unix seconds.
	Timestamp int64

	// Signature is a DER-encoded secp256k1 signature over TxHash and
	// SenderPubKey is the compressed public key that produced it.  Both
	// are empty for system-generated transactions.
	Signature    []byte
	SenderPubKey []byte

	Kind TxKind

	// RBFEnabled marks the transaction as replaceable while unconfirmed.
	RBFEnabled bool

	// ReplacesTxID, when non-nil, names the in-pool transaction this one
	// intends to replace via the replace-by-fee protocol.
	ReplacesTxID *chainhash.Hash

	// GasSponsor, when non-empty, names the account to debit for the fee
	// instead of the sender.  Sponsorship is best effort.
	GasSponsor string
}

// serializeForHash writes the canonical byte representation of the
// transaction used for hashing and signing.  TxID and Signature are
// excluded: the former is derived from this data and the latter signs it.
func (tx *Transaction) serializeForHash(w *bytes.Buffer) {
	writeString(w, tx.Sender)
	writeString(w, tx.Recipient)
	writeUint64(w, uint64(tx.Amount))
	writeUint64(w, uint64(tx.Fee))
	writeUint64(w, tx.Nonce)
	writeUint64(w, uint64(tx.Timestamp))
	w.WriteByte(byte(tx.Kind))
	if tx.RBFEnabled {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
	if tx.ReplacesTxID != nil {
		w.Write(tx.ReplacesTxID[:])
	}
	writeString(w, tx.GasSponsor)
	writeBytes(w, tx.SenderPubKey)

	writeUint64(w, uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		op := &tx.Inputs[i].PreviousOutPoint
		w.Write(op.TxID[:])
		writeUint32(w, op.Index)
	}
	writeUint64(w, uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		writeString(w, tx.Outputs[i].Address)
		writeUint64(w, uint64(tx.Outputs[i].Amount))
	}
}

// TxHash generates the hash of the transaction.  The signature is not part
// of the hashed data since it signs this hash.
func (tx *Transaction) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	tx.serializeForHash(&buf)
	return chainhash.HashH(buf.Bytes())
}

// SerializeSize returns the number of bytes the transaction occupies in its
// canonical serialization, including the signature.  This is the size used
// for fee-rate calculations.
func (tx *Transaction) SerializeSize() int {
	var buf bytes.Buffer
	tx.serializeForHash(&buf)
	return buf.Len() + 8 + len(tx.Signature)
}

// FeeRate returns the fee rate of the transaction in satoshi per kilobyte
// of serialized size.  Fee rate, never absolute fee, is the unit of block
// space priority.
func (tx *Transaction) FeeRate() int64 {
	size := int64(tx.SerializeSize())
	if size == 0 {
		return 0
	}
	return int64(tx.Fee) * 1000 / size
}

// IsCoinbase returns whether the transaction is a coinbase.
func (tx *Transaction) IsCoinbase() bool {
	return tx.Kind == KindCoinbase
}

func writeString(w *bytes.Buffer, s string) {
	writeUint64(w, uint64(len(s)))
	w.WriteString(s)
}

func writeBytes(w *bytes.Buffer, b []byte) {
	writeUint64(w, uint64(len(b)))
	w.Write(b)
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeUint64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}
