// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeader defines information about a block and is hashed to produce the
// proof-of-work commitment.
type BlockHeader struct {
	// Index is the height of the block in the chain.
	Index uint64

	// PrevHash is the hash of the previous block header in the chain.
	PrevHash chainhash.Hash

	// TxRoot commits to the ordered set of transaction ids in the block.
	TxRoot chainhash.Hash

	// Timestamp is the block creation time in Unix seconds.
	Timestamp int64

	// Difficulty is the proof-of-work difficulty the block claims to
	// satisfy.  The target threshold is derived from it.
	Difficulty uint64

	// Nonce is the value varied by miners to satisfy the target.
	Nonce uint64

	// Version is the block header version.
	Version uint32

	// Miner is the address credited by the coinbase transaction.
	Miner string
}

// BlockHash computes the block identifier hash for the header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	writeUint64(&buf, h.Index)
	buf.Write(h.PrevHash[:])
	buf.Write(h.TxRoot[:])
	writeUint64(&buf, uint64(h.Timestamp))
	writeUint64(&buf, h.Difficulty)
	writeUint64(&buf, h.Nonce)
	writeUint32(&buf, h.Version)
	writeString(&buf, h.Miner)
	return chainhash.HashH(buf.Bytes())
}

// Block defines an ember block: a header, the stored header hash, and the
// transaction body.  A nil Transactions slice indicates the body has not
// been materialized from storage; an empty non-nil slice is an empty block.
type Block struct {
	Header BlockHeader

	// Hash is the stored block hash.  Validation recomputes the header
	// hash and rejects the block when they differ.
	Hash chainhash.Hash

	Transactions []*Transaction
}

// HasBody returns whether the transaction body of the block has been
// materialized.
func (b *Block) HasBody() bool {
	return b.Transactions != nil
}

// CalcTxRoot computes the transaction commitment over the ordered
// transaction ids.  It is order sensitive so transaction reordering breaks
// the header commitment and with it the proof of work.
func CalcTxRoot(txns []*Transaction) chainhash.Hash {
	var buf bytes.Buffer
	for _, tx := range txns {
		h := tx.TxHash()
		buf.Write(h[:])
	}
	return chainhash.HashH(buf.Bytes())
}
