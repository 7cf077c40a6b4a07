// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// oneLsh256 is 1 shifted left 256 bits.  It is defined here to avoid the
// overhead of creating it multiple times.
var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// HashToBig converts a chainhash.Hash into a big.Int that can be used to
// perform math comparisons.
func HashToBig(hash *chainhash.Hash) *big.Int {
	// A Hash is in little-endian, but the big package wants the bytes in
	// big-endian, so reverse them.
	buf := *hash
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}

	return new(big.Int).SetBytes(buf[:])
}

// CalcBlockTarget derives the numeric proof-of-work target from an integer
// difficulty: target = 2^256 / difficulty.  A block hash must be strictly
// below the target to be validly mined at that difficulty.
func CalcBlockTarget(difficulty uint64) *big.Int {
	if difficulty == 0 {
		return nil
	}
	return new(big.Int).Div(oneLsh256, new(big.Int).SetUint64(difficulty))
}

// CountLeadingHexZeros returns the number of leading zero hex characters of
// the hash in its canonical string form.  It is a coarse proxy for the
// amount of work the hash represents.
func CountLeadingHexZeros(hash *chainhash.Hash) int {
	zeros := 0
	// The string form prints the bytes in reverse order, so walk from the
	// end of the array, high nibble first.
	for i := len(hash) - 1; i >= 0; i-- {
		b := hash[i]
		if b>>4 != 0 {
			return zeros
		}
		zeros++
		if b&0x0f != 0 {
			return zeros
		}
		zeros++
	}
	return zeros
}

// targetLeadingHexZeros returns the number of leading zero hex characters
// any hash below the passed target necessarily has.  It backs the cheap
// string-prefix pre-filter in the proof-of-work check; the numeric
// comparison remains authoritative since the zero count alone is ambiguous
// exactly at target boundaries.
func targetLeadingHexZeros(target *big.Int) int {
	// 256 bits is 64 hex characters; each hex character the target loses
	// off the front is one the hash must have as zero.
	bits := target.BitLen()
	if bits >= 256 {
		return 0
	}
	return (256 - bits) / 4
}
