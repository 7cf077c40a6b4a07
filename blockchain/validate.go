// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/embersuite/emberd/wire"
)

// zeroHash is the zero value for a chainhash.Hash and is the previous hash
// required of a genesis block.
var zeroHash chainhash.Hash

// CalcBlockSubsidy returns the subsidy amount a block at the provided height
// should have.  The subsidy starts at the configured base and halves every
// SubsidyHalvingInterval blocks; an interval of zero disables halving.
func (c *Consensus) CalcBlockSubsidy(height uint64) btcutil.Amount {
	if c.chainParams.SubsidyHalvingInterval == 0 {
		return c.chainParams.BaseSubsidy
	}

	// Equivalent to: baseSubsidy / 2^(height/SubsidyHalvingInterval)
	return c.chainParams.BaseSubsidy >>
		(height / c.chainParams.SubsidyHalvingInterval)
}

// CheckTransactionSanity performs context-free checks on the value fields
// of a transaction.  The amount, fee, and every output value must be
// non-negative and no larger than the maximum money supply, and the sums
// the later balance and fee rules compute must stay in range.  Bounding
// the individual values here is what keeps that downstream arithmetic free
// of int64 wraparound.
func CheckTransactionSanity(tx *wire.Transaction) error {
	if tx.Amount < 0 || tx.Amount > btcutil.MaxSatoshi {
		str := fmt.Sprintf("transaction amount of %v is out of range "+
			"(0 to %v)", tx.Amount,
			btcutil.Amount(btcutil.MaxSatoshi))
		return ruleError(ErrBadTxValue, str)
	}
	if tx.Fee < 0 || tx.Fee > btcutil.MaxSatoshi {
		str := fmt.Sprintf("transaction fee of %v is out of range "+
			"(0 to %v)", tx.Fee, btcutil.Amount(btcutil.MaxSatoshi))
		return ruleError(ErrBadTxValue, str)
	}
	// Both terms are bounded above, so the sum cannot wrap.
	if tx.Amount+tx.Fee > btcutil.MaxSatoshi {
		str := fmt.Sprintf("transaction amount %v plus fee %v exceeds "+
			"the maximum value of %v", tx.Amount, tx.Fee,
			btcutil.Amount(btcutil.MaxSatoshi))
		return ruleError(ErrBadTxValue, str)
	}

	var totalOut btcutil.Amount
	for i, out := range tx.Outputs {
		if out.Amount < 0 || out.Amount > btcutil.MaxSatoshi {
			str := fmt.Sprintf("transaction output %d value of %v "+
				"is out of range (0 to %v)", i, out.Amount,
				btcutil.Amount(btcutil.MaxSatoshi))
			return ruleError(ErrBadTxValue, str)
		}
		totalOut += out.Amount
		if totalOut > btcutil.MaxSatoshi {
			str := fmt.Sprintf("total value of transaction outputs "+
				"exceeds the maximum value of %v",
				btcutil.Amount(btcutil.MaxSatoshi))
			return ruleError(ErrBadTxValue, str)
		}
	}

	return nil
}

// checkProofOfWork ensures the block hash satisfies the claimed difficulty:
// it must carry the leading zero hex characters the derived target implies
// and be numerically below target = 2^256 / difficulty.  The numeric
// comparison is authoritative; the prefix check is only a cheap pre-filter
// since a zero count alone is ambiguous exactly at target boundaries.
func checkProofOfWork(header *wire.BlockHeader, hash *chainhash.Hash) error {
	// The claimed difficulty must be larger than zero or no target can be
	// derived from it.
	target := CalcBlockTarget(header.Difficulty)
	if target == nil {
		str := fmt.Sprintf("block difficulty of %d is too low",
			header.Difficulty)
		return ruleError(ErrUnexpectedDifficulty, str)
	}

	if CountLeadingHexZeros(hash) < targetLeadingHexZeros(target) {
		str := fmt.Sprintf("block hash %v has fewer than %d leading "+
			"zeros required by difficulty %d", hash,
			targetLeadingHexZeros(target), header.Difficulty)
		return ruleError(ErrHighHash, str)
	}

	hashNum := HashToBig(hash)
	if hashNum.Cmp(target) >= 0 {
		str := fmt.Sprintf("block hash of %064x is higher than "+
			"expected max of %064x", hashNum, target)
		return ruleError(ErrHighHash, str)
	}

	return nil
}

// calcPastMedianTime calculates the median timestamp of up to
// MedianTimeSpan blocks at the end of the passed history.  It returns false
// when no blocks are available to compute a median from.
//
// For an even number of timestamps the median is the average of the two
// middle values, so a single adversarial block can never move it.
func (c *Consensus) calcPastMedianTime(history []*wire.Block) (int64, bool) {
	if len(history) == 0 {
		return 0, false
	}

	span := c.chainParams.MedianTimeSpan
	if span <= 0 {
		span = 11
	}
	if len(history) < span {
		span = len(history)
	}

	timestamps := make([]int64, span)
	for i := 0; i < span; i++ {
		timestamps[i] = history[len(history)-1-i].Header.Timestamp
	}
	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i] < timestamps[j]
	})

	if span%2 == 0 {
		return (timestamps[span/2-1] + timestamps[span/2]) / 2, true
	}
	return timestamps[span/2], true
}

// checkBlockTimestamps enforces the block timestamp rules against the
// previous block and the recent history:
//
//  1. The timestamp must be strictly after the previous block's timestamp.
//  2. The timestamp must not be further ahead of the current time than the
//     configured maximum future drift.
//  3. The timestamp must be strictly after the median time past.  When no
//     history is available to compute a median from, the network's genesis
//     timestamp anchors it instead.
func (c *Consensus) checkBlockTimestamps(header *wire.BlockHeader,
	prev *wire.Block, history []*wire.Block) error {

	if prev != nil && header.Timestamp <= prev.Header.Timestamp {
		str := fmt.Sprintf("block timestamp %d is not after previous "+
			"block timestamp %d", header.Timestamp,
			prev.Header.Timestamp)
		return ruleError(ErrTimeNotAfterPrevious, str)
	}

	maxTimestamp := c.timeSource().Add(c.chainParams.MaxFutureDrift)
	if header.Timestamp > maxTimestamp.Unix() {
		str := fmt.Sprintf("block timestamp of %d is too far in the "+
			"future", header.Timestamp)
		return ruleError(ErrTimeTooNew, str)
	}

	medianTime, ok := c.calcPastMedianTime(history)
	if !ok && !c.chainParams.GenesisTimestamp.IsZero() {
		// With no history to draw a median from, the genesis timestamp
		// anchors the median time past.
		medianTime, ok = c.chainParams.GenesisTimestamp.Unix(), true
	}
	if ok {
		if header.Timestamp <= medianTime {
			str := fmt.Sprintf("block timestamp of %d is not "+
				"after median time %d", header.Timestamp,
				medianTime)
			return ruleError(ErrTimeNotPastMedian, str)
		}
	}

	return nil
}

// CheckBlock performs contextual validation of a block header and its
// proof of work:
//
//  1. The stored hash must match the hash recomputed from the header.
//  2. The header version must be in the configured allow-list.
//  3. The hash must satisfy the proof-of-work target for the claimed
//     difficulty.
//  4. When prev is non-nil the block must link to it by hash and index and
//     pass the timestamp rules over the passed history.  When prev is nil
//     and history is non-empty, the block index must equal the current
//     chain height.
//
// The history slice, when provided, is the chain ending at prev and is only
// consulted for the median-time-past rule and the height check.
func (c *Consensus) CheckBlock(block, prev *wire.Block,
	history []*wire.Block) error {

	header := &block.Header

	recomputed := header.BlockHash()
	if block.Hash != recomputed {
		str := fmt.Sprintf("block %d stored hash %v does not match "+
			"computed hash %v", header.Index, block.Hash, recomputed)
		return ruleError(ErrHashMismatch, str)
	}

	if block.HasBody() {
		txRoot := wire.CalcTxRoot(block.Transactions)
		if header.TxRoot != txRoot {
			str := fmt.Sprintf("block %d transaction root %v does "+
				"not match computed root %v", header.Index,
				header.TxRoot, txRoot)
			return ruleError(ErrBadTxRoot, str)
		}
	}

	if !c.chainParams.IsHeaderVersionAllowed(header.Version) {
		str := fmt.Sprintf("block version %d is not supported",
			header.Version)
		return ruleError(ErrUnsupportedVersion, str)
	}

	if err := checkProofOfWork(header, &block.Hash); err != nil {
		return err
	}

	if prev != nil {
		if header.PrevHash != prev.Hash {
			str := fmt.Sprintf("block %d previous hash %v does "+
				"not match expected %v", header.Index,
				header.PrevHash, prev.Hash)
			return ruleError(ErrLinkageMismatch, str)
		}
		if header.Index != prev.Header.Index+1 {
			str := fmt.Sprintf("block index %d does not follow "+
				"previous index %d", header.Index,
				prev.Header.Index)
			return ruleError(ErrIndexMismatch, str)
		}
		if err := c.checkBlockTimestamps(header, prev, history); err != nil {
			return err
		}
	} else if len(history) > 0 {
		if header.Index != uint64(len(history)) {
			str := fmt.Sprintf("block index %d does not match "+
				"chain height %d", header.Index, len(history))
			return ruleError(ErrIndexMismatch, str)
		}
	}

	return nil
}

// checkTransactionSignature verifies the secp256k1 signature of a
// transaction against its hash and sender public key.  The distinct error
// codes let callers tell a missing signature, a malformed signature or key,
// and a signature that simply does not verify apart.
func checkTransactionSignature(tx *wire.Transaction) error {
	if len(tx.Signature) == 0 {
		str := fmt.Sprintf("transaction %v carries no signature",
			tx.TxID)
		return ruleError(ErrMissingSignature, str)
	}
	if len(tx.SenderPubKey) == 0 {
		str := fmt.Sprintf("transaction %v carries a signature but "+
			"no sender public key", tx.TxID)
		return ruleError(ErrSignatureCheck, str)
	}

	pubKey, err := btcec.ParsePubKey(tx.SenderPubKey)
	if err != nil {
		str := fmt.Sprintf("transaction %v sender public key is "+
			"malformed: %v", tx.TxID, err)
		return ruleError(ErrSignatureEncoding, str)
	}
	sig, err := ecdsa.ParseDERSignature(tx.Signature)
	if err != nil {
		str := fmt.Sprintf("transaction %v signature is malformed: %v",
			tx.TxID, err)
		return ruleError(ErrSignatureEncoding, str)
	}

	txHash := tx.TxHash()
	if !sig.Verify(txHash[:], pubKey) {
		str := fmt.Sprintf("transaction %v signature verification "+
			"failed", tx.TxID)
		return ruleError(ErrInvalidSignature, str)
	}

	return nil
}

// CheckBlockTransactions validates the transaction set of a block:
//
//  1. Every transaction must pass the value sanity checks.
//  2. Ordering rules: a coinbase may only occupy position zero, no
//     transaction id may repeat, and each sender's transactions must appear
//     in strictly ascending, gapless nonce order.  System and airdrop
//     transactions are exempt from the nonce rule.  Any violation is a hard
//     rejection.
//  3. The coinbase value must not exceed the block subsidy plus the fees of
//     the remaining transactions.
//  4. Every non-system transaction must carry a valid signature, and normal
//     transactions must be covered by the sender's balance.
func (c *Consensus) CheckBlockTransactions(block *wire.Block) error {
	txns := block.Transactions

	seen := make(map[chainhash.Hash]struct{}, len(txns))
	lastNonce := make(map[string]uint64)
	var totalFees btcutil.Amount
	var coinbase *wire.Transaction

	for i, tx := range txns {
		if err := CheckTransactionSanity(tx); err != nil {
			return err
		}

		txHash := tx.TxHash()
		if _, ok := seen[txHash]; ok {
			str := fmt.Sprintf("block %d contains duplicate "+
				"transaction %v", block.Header.Index, txHash)
			return ruleError(ErrTxOrderInvalid, str)
		}
		seen[txHash] = struct{}{}

		if tx.IsCoinbase() {
			if i != 0 {
				str := fmt.Sprintf("block %d contains a "+
					"coinbase at position %d",
					block.Header.Index, i)
				return ruleError(ErrTxOrderInvalid, str)
			}
			coinbase = tx
			continue
		}
		totalFees += tx.Fee
		if totalFees > btcutil.MaxSatoshi {
			str := fmt.Sprintf("total fees in block %d exceed the "+
				"maximum value of %v", block.Header.Index,
				btcutil.Amount(btcutil.MaxSatoshi))
			return ruleError(ErrBadTxValue, str)
		}

		if !tx.Kind.IsExemptFromOrdering() {
			if last, ok := lastNonce[tx.Sender]; ok {
				if tx.Nonce != last+1 {
					str := fmt.Sprintf("block %d sender "+
						"%s nonce %d does not follow "+
						"%d", block.Header.Index,
						tx.Sender, tx.Nonce, last)
					return ruleError(ErrTxOrderInvalid, str)
				}
			}
			lastNonce[tx.Sender] = tx.Nonce
		}
	}

	if coinbase != nil {
		maxReward := c.CalcBlockSubsidy(block.Header.Index) + totalFees
		if coinbase.Amount > maxReward {
			str := fmt.Sprintf("coinbase value of %v is more than "+
				"expected value of %v", coinbase.Amount,
				maxReward)
			return ruleError(ErrBadCoinbaseValue, str)
		}
	}

	for _, tx := range txns {
		if tx.Kind == wire.KindSystem || tx.Kind == wire.KindAirdrop ||
			tx.IsCoinbase() {

			continue
		}

		if err := checkTransactionSignature(tx); err != nil {
			return err
		}

		if tx.Kind == wire.KindNormal && c.balances != nil {
			balance, err := c.balances.Balance(tx.Sender)
			if err != nil {
				return fmt.Errorf("balance lookup for %s: %w",
					tx.Sender, err)
			}
			if balance < tx.Amount+tx.Fee {
				str := fmt.Sprintf("sender %s balance %v does "+
					"not cover amount %v plus fee %v",
					tx.Sender, balance, tx.Amount, tx.Fee)
				return ruleError(ErrInsufficientBalance, str)
			}
		}
	}

	return nil
}
