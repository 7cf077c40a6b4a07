// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"

	"github.com/embersuite/emberd/blockchain"
	"github.com/embersuite/emberd/wire"
)

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related
	// to policy.
	Policy Policy

	// Utxos defines the unspent transaction output source consulted for
	// input lookups, legacy input selection, and lock bookkeeping.
	Utxos UtxoSource

	// Nonces defines the per-sender nonce tracker.  Admitted
	// transactions reserve their nonce through it.
	Nonces NonceSource

	// Validator defines the external transaction validator run on every
	// candidate before admission.
	Validator TxValidator

	// DebitSponsor, when non-nil, is invoked after admission for
	// transactions naming a gas sponsor.  The deduction is best effort:
	// a failure is logged and does not undo the admission.
	DebitSponsor func(sponsor string, fee btcutil.Amount,
		txid chainhash.Hash) error

	// TimeSource defines the function to use to obtain the current
	// time.  When nil, time.Now is used.
	TimeSource func() time.Time
}

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *wire.Transaction

	// Added is the time when the entry was added to the pool.
	Added time.Time

	// Fee is the total fee the transaction pays.
	Fee btcutil.Amount

	// FeeRate is the fee the transaction pays in satoshi per kilobyte
	// of serialized size.
	FeeRate int64
}

// TxPool is used as a source of transactions that need to be mined into
// blocks.  It is safe for concurrent access: one exclusive lock spans every
// admission decision from the duplicate and ban pre-checks through the
// final index writes, which closes the window between the input
// availability check and insertion.
type TxPool struct {
	// lastUpdated must only be used atomically.
	lastUpdated int64 // last time pool was updated

	mtx sync.RWMutex
	cfg Config

	// pool preserves admission order; the remaining maps index it.  The
	// four structures are always mutated together and fully rebuilt on
	// every pruning pass to guard against incremental drift.
	pool        []*TxDesc
	index       map[chainhash.Hash]*TxDesc
	outpoints   map[wire.OutPoint]*wire.Transaction
	senderCount map[string]int

	bans    *banTracker
	orphans *orphanPool

	// rejected remembers recently rejected transaction ids so repeat
	// submissions are refused without re-running validation.
	rejected lru.Cache
}

// New returns a new memory pool for validating and storing standalone
// transactions until they are mined into a block.
func New(cfg *Config) *TxPool {
	cfg.Policy = cfg.Policy.normalized()
	if cfg.TimeSource == nil {
		cfg.TimeSource = time.Now
	}
	return &TxPool{
		cfg:         *cfg,
		pool:        make([]*TxDesc, 0),
		index:       make(map[chainhash.Hash]*TxDesc),
		outpoints:   make(map[wire.OutPoint]*wire.Transaction),
		senderCount: make(map[string]int),
		bans:        newBanTracker(&cfg.Policy),
		orphans:     newOrphanPool(cfg.Policy.MaxOrphanTxs),
		rejected:    lru.NewCache(maxRejectedTxns),
	}
}

func (mp *TxPool) now() time.Time {
	return mp.cfg.TimeSource()
}

// inputOutpoints returns the outpoints referenced by the transaction's
// inputs.
func inputOutpoints(tx *wire.Transaction) []wire.OutPoint {
	if len(tx.Inputs) == 0 {
		return nil
	}
	ops := make([]wire.OutPoint, len(tx.Inputs))
	for i := range tx.Inputs {
		ops[i] = tx.Inputs[i].PreviousOutPoint
	}
	return ops
}

// pruneExpired drops entries older than the configured maximum age.  All
// four pool structures are rebuilt from the survivors rather than patched
// incrementally, and the pruned entries' outputs are unlocked.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) pruneExpired(now time.Time) {
	if len(mp.pool) == 0 {
		return
	}

	cutoff := now.Add(-mp.cfg.Policy.MaxTxAge)
	survivors := make([]*TxDesc, 0, len(mp.pool))
	var prunedOutpoints []wire.OutPoint
	for _, desc := range mp.pool {
		if desc.Added.Before(cutoff) {
			prunedOutpoints = append(prunedOutpoints,
				inputOutpoints(desc.Tx)...)
			continue
		}
		survivors = append(survivors, desc)
	}

	pruned := len(mp.pool) - len(survivors)
	if pruned == 0 {
		return
	}

	mp.pool = survivors
	mp.index = make(map[chainhash.Hash]*TxDesc, len(survivors))
	mp.outpoints = make(map[wire.OutPoint]*wire.Transaction)
	mp.senderCount = make(map[string]int)
	for _, desc := range survivors {
		mp.index[desc.Tx.TxID] = desc
		for _, op := range inputOutpoints(desc.Tx) {
			mp.outpoints[op] = desc.Tx
		}
		mp.senderCount[desc.Tx.Sender]++
	}

	if len(prunedOutpoints) > 0 {
		mp.cfg.Utxos.UnlockOutputs(prunedOutpoints)
	}
	atomic.StoreInt64(&mp.lastUpdated, now.Unix())
	log.Debugf("Pruned %d expired transactions (remaining: %d)", pruned,
		len(survivors))
}

// removeTransaction removes the passed transaction from the pool and every
// index, optionally releasing the locks on its inputs.  Locks are kept when
// the transaction is mined (its inputs are spent for good) or replaced (the
// locks pass to the replacement).
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(txid chainhash.Hash,
	unlockInputs bool) (*TxDesc, bool) {

	desc, ok := mp.index[txid]
	if !ok {
		return nil, false
	}

	delete(mp.index, txid)
	for _, op := range inputOutpoints(desc.Tx) {
		if mp.outpoints[op] == desc.Tx {
			delete(mp.outpoints, op)
		}
	}
	if mp.senderCount[desc.Tx.Sender]--; mp.senderCount[desc.Tx.Sender] <= 0 {
		delete(mp.senderCount, desc.Tx.Sender)
	}
	for i, entry := range mp.pool {
		if entry == desc {
			mp.pool = append(mp.pool[:i], mp.pool[i+1:]...)
			break
		}
	}

	if unlockInputs {
		if ops := inputOutpoints(desc.Tx); len(ops) > 0 {
			mp.cfg.Utxos.UnlockOutputs(ops)
		}
	}
	atomic.StoreInt64(&mp.lastUpdated, mp.now().Unix())
	return desc, true
}

// lowestFeeRate returns the pool entry with the lowest fee rate, or nil for
// an empty pool.  Ties resolve to the oldest entry.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) lowestFeeRate() *TxDesc {
	var lowest *TxDesc
	for _, desc := range mp.pool {
		if lowest == nil || desc.FeeRate < lowest.FeeRate {
			lowest = desc
		}
	}
	return lowest
}

// validateReplacement enforces the replace-by-fee protocol against the
// transaction named by ReplacesTxID.  The target must be pooled, have opted
// in, share the sender, pay a strictly lower fee rate than the newcomer,
// and share at least one input with it.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) validateReplacement(tx *wire.Transaction) error {
	targetID := *tx.ReplacesTxID
	target, ok := mp.index[targetID]
	if !ok {
		str := fmt.Sprintf("replacement target %v is not in the pool",
			targetID)
		return txRuleError(RejectReplacement, str)
	}
	if !target.Tx.RBFEnabled {
		str := fmt.Sprintf("replacement target %v did not opt in to "+
			"replacement", targetID)
		return txRuleError(RejectReplacement, str)
	}
	if target.Tx.Sender != tx.Sender {
		str := fmt.Sprintf("replacement sender %s does not match "+
			"target sender %s", tx.Sender, target.Tx.Sender)
		return txRuleError(RejectReplacement, str)
	}
	if tx.FeeRate() <= target.FeeRate {
		str := fmt.Sprintf("replacement fee rate %d does not exceed "+
			"target fee rate %d", tx.FeeRate(), target.FeeRate)
		return txRuleError(RejectReplacement, str)
	}

	targetInputs := make(map[wire.OutPoint]struct{}, len(target.Tx.Inputs))
	for _, op := range inputOutpoints(target.Tx) {
		targetInputs[op] = struct{}{}
	}
	for _, op := range inputOutpoints(tx) {
		if _, shared := targetInputs[op]; shared {
			return nil
		}
	}
	str := fmt.Sprintf("replacement %v shares no input with target %v",
		tx.TxID, targetID)
	return txRuleError(RejectReplacement, str)
}

// maybeAcceptTransaction is the internal function which implements the
// public ProcessTransaction.  See the comment for ProcessTransaction for
// more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptTransaction(tx *wire.Transaction) error {
	now := mp.now()

	// Expired entries are pruned before every admission decision so the
	// checks below run against live state only.
	mp.pruneExpired(now)

	if tx == nil {
		return txRuleError(RejectInvalid, "nil transaction")
	}

	var zeroHash chainhash.Hash
	if tx.TxID == zeroHash {
		tx.TxID = tx.TxHash()
	}
	txid := tx.TxID

	// Quick checks first: duplicates and banned senders are refused
	// before any validation work is spent on them.
	if _, exists := mp.index[txid]; exists {
		str := fmt.Sprintf("already have transaction %v", txid)
		return txRuleError(RejectDuplicate, str)
	}
	if mp.orphans.contains(txid) {
		str := fmt.Sprintf("already have orphan transaction %v", txid)
		return txRuleError(RejectDuplicate, str)
	}
	if mp.bans.isBanned(tx.Sender, now) {
		str := fmt.Sprintf("sender %s is banned", tx.Sender)
		return txRuleError(RejectBanned, str)
	}
	if mp.rejected.Contains(txid) {
		str := fmt.Sprintf("transaction %v was recently rejected", txid)
		return txRuleError(RejectDuplicate, str)
	}

	// Value sanity comes before any funding or fee arithmetic so
	// overflowing or negative amounts can never slip past the
	// insufficient-funds and eviction rules.
	if err := blockchain.CheckTransactionSanity(tx); err != nil {
		mp.rejected.Add(txid)
		if mp.bans.registerStrike(tx.Sender, now) {
			log.Warnf("Sender %s banned after repeated invalid "+
				"submissions", tx.Sender)
		}
		return txRuleError(RejectInvalid, err.Error())
	}

	// Compatibility shim: unsigned, inputless transactions have their
	// inputs selected and outputs synthesized from the sender's utxos.
	if len(tx.Signature) == 0 && len(tx.Inputs) == 0 &&
		tx.Kind == wire.KindNormal {

		if err := mp.populateLegacyInputs(tx); err != nil {
			return err
		}
		txid = tx.TxID
		if _, exists := mp.index[txid]; exists {
			str := fmt.Sprintf("already have transaction %v", txid)
			return txRuleError(RejectDuplicate, str)
		}
	}

	if err := mp.cfg.Validator.ValidateTransaction(tx); err != nil {
		if errors.Is(err, ErrMissingInputs) {
			// Unknown inputs make this an orphan, not an offense.
			// Any locks taken on its behalf are released while it
			// waits for its parents.
			mp.orphans.add(txid, tx)
			if ops := inputOutpoints(tx); len(ops) > 0 {
				mp.cfg.Utxos.UnlockOutputs(ops)
			}
			log.Debugf("Stored orphan transaction %v (total: %d)",
				txid, mp.orphans.count())
			str := fmt.Sprintf("transaction %v references unknown "+
				"inputs", txid)
			return txRuleError(RejectOrphan, str)
		}

		mp.rejected.Add(txid)
		if mp.bans.registerStrike(tx.Sender, now) {
			log.Warnf("Sender %s banned after repeated invalid "+
				"submissions", tx.Sender)
		}
		str := fmt.Sprintf("transaction %v failed validation: %v",
			txid, err)
		return txRuleError(RejectValidation, str)
	}

	// The transaction may not use any of the same outputs as other
	// transactions already in the pool unless it is a valid replacement
	// of the transaction holding them.
	for _, op := range inputOutpoints(tx) {
		spender, exists := mp.outpoints[op]
		if !exists {
			continue
		}
		if tx.ReplacesTxID == nil || *tx.ReplacesTxID != spender.TxID {
			str := fmt.Sprintf("output %v already spent by "+
				"transaction %v in the memory pool", op,
				spender.TxID)
			return txRuleError(RejectDoubleSpend, str)
		}
	}

	if tx.ReplacesTxID != nil {
		if err := mp.validateReplacement(tx); err != nil {
			return err
		}
		// The target's utxo locks pass to the replacement, so its
		// inputs are deliberately not unlocked here.
		mp.removeTransaction(*tx.ReplacesTxID, false)
		log.Debugf("Replaced transaction %v with %v", *tx.ReplacesTxID,
			txid)
	}

	if mp.senderCount[tx.Sender] >= mp.cfg.Policy.MaxPerSender {
		str := fmt.Sprintf("sender %s already has %d pending "+
			"transactions", tx.Sender, mp.senderCount[tx.Sender])
		return txRuleError(RejectSenderLimit, str)
	}

	feeRate := tx.FeeRate()
	if len(mp.pool) >= mp.cfg.Policy.MaxPoolSize {
		lowest := mp.lowestFeeRate()
		if lowest == nil {
			return txRuleError(RejectPoolFull, "mempool is full")
		}
		if feeRate <= lowest.FeeRate {
			str := fmt.Sprintf("mempool is full and fee rate %d "+
				"does not beat the minimum %d", feeRate,
				lowest.FeeRate)
			return txRuleError(RejectPoolFull, str)
		}
		mp.removeTransaction(lowest.Tx.TxID, true)
		log.Debugf("Evicted transaction %v (fee rate %d) for %v "+
			"(fee rate %d)", lowest.Tx.TxID, lowest.FeeRate, txid,
			feeRate)
	}

	// Atomic insert: every index is updated under the same lock
	// acquisition that performed the checks above.
	desc := &TxDesc{
		Tx:      tx,
		Added:   now,
		Fee:     tx.Fee,
		FeeRate: feeRate,
	}
	mp.pool = append(mp.pool, desc)
	mp.index[txid] = desc
	for _, op := range inputOutpoints(tx) {
		mp.outpoints[op] = tx
	}
	mp.senderCount[tx.Sender]++
	if mp.cfg.Nonces != nil {
		mp.cfg.Nonces.ReserveNonce(tx.Sender, tx.Nonce)
	}
	mp.bans.clear(tx.Sender)

	if tx.GasSponsor != "" && mp.cfg.DebitSponsor != nil {
		err := mp.cfg.DebitSponsor(tx.GasSponsor, tx.Fee, txid)
		if err != nil {
			// Best effort only; the admission stands.
			log.Warnf("Sponsorship deduction from %s for %v "+
				"failed: %v", tx.GasSponsor, txid, err)
		}
	}

	atomic.StoreInt64(&mp.lastUpdated, now.Unix())
	log.Debugf("Accepted transaction %v (pool size: %d)", txid,
		len(mp.pool))
	return nil
}

// ProcessTransaction is the main workhorse for handling insertion of new
// free-standing transactions into the memory pool.  It prunes expired
// entries, rejects duplicates and banned senders, enforces the transaction
// value sanity rules, synthesizes inputs for legacy unsigned transactions,
// runs the external validator, enforces the
// double-spend, replace-by-fee, and capacity rules, and finally inserts the
// transaction into every pool index under a single lock acquisition.
//
// A nil return means the transaction was admitted.  Every rejection is a
// RuleError carrying a RejectCode; nothing here panics on adversarial
// input.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessTransaction(tx *wire.Transaction) (err error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	// Malformed data that escapes the typed checks must surface as a
	// rejection, never as a panic crossing the public API.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic processing "+
				"transaction: %v", r)
			err = txRuleError(RejectInvalid,
				fmt.Sprintf("unprocessable transaction: %v", r))
		}
	}()

	return mp.maybeAcceptTransaction(tx)
}

// ProcessOrphans retries every queued orphan against the full admission
// path, accepting those whose inputs have since become known.  Orphans that
// are still missing inputs re-enter the orphan queue; orphans that fail for
// any other reason are dropped and count a strike against their sender.
//
// It returns the descriptors of the transactions moved into the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessOrphans() []*TxDesc {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	var accepted []*TxDesc
	for _, tx := range mp.orphans.all() {
		mp.orphans.remove(tx.TxID)
		if err := mp.maybeAcceptTransaction(tx); err == nil {
			accepted = append(accepted, mp.index[tx.TxID])
		}
	}
	return accepted
}

// RemoveTransaction removes the transaction with the passed id from the
// pool, releasing the locks on its inputs.  When banSender is set the
// sender is additionally banned for the configured duration.  It returns
// the removed entry's descriptor, or false when no such transaction is
// pooled.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(txid chainhash.Hash,
	banSender bool) (*TxDesc, bool) {

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	desc, ok := mp.removeTransaction(txid, true)
	if !ok {
		return nil, false
	}
	if banSender {
		mp.bans.ban(desc.Tx.Sender, mp.now())
		log.Infof("Banned sender %s on explicit removal of %v",
			desc.Tx.Sender, txid)
	}
	return desc, true
}

// RemoveMinedTransactions removes the transactions of an externally
// accepted block from the pool.  Their input locks are kept since the
// outputs are now spent for good, while any remaining pool transactions
// that conflict with the block are removed and unlocked.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveMinedTransactions(block *wire.Block) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, tx := range block.Transactions {
		txid := tx.TxHash()
		mp.removeTransaction(txid, false)
		mp.orphans.remove(txid)

		// Remaining spenders of the block's inputs are double spends
		// of the now-confirmed transactions.
		for _, op := range inputOutpoints(tx) {
			if spender, ok := mp.outpoints[op]; ok {
				mp.removeTransaction(spender.TxID, true)
			}
		}
	}
}

// RemoveExpired prunes transactions older than the configured maximum age
// and releases the locks on their inputs.  Pruning also happens
// automatically at the start of every admission; this entry point exists
// for callers that run it on a timer.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveExpired() {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	mp.pruneExpired(mp.now())
}

// Count returns the number of transactions in the main pool.  It does not
// include the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	return len(mp.pool)
}

// OrphanCount returns the number of queued orphan transactions.
//
// This function is safe for concurrent access.
func (mp *TxPool) OrphanCount() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	return mp.orphans.count()
}

// HaveTransaction returns whether the passed transaction already exists in
// the main pool or in the orphan pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(txid chainhash.Hash) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	if _, exists := mp.index[txid]; exists {
		return true
	}
	return mp.orphans.contains(txid)
}

// FetchTransaction returns the requested transaction from the transaction
// pool.  This only fetches from the main pool and does not include orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTransaction(txid chainhash.Hash) (*wire.Transaction,
	error) {

	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	if desc, exists := mp.index[txid]; exists {
		return desc.Tx, nil
	}
	return nil, fmt.Errorf("transaction is not in the pool")
}

// TxDescs returns a slice of descriptors for all the transactions in the
// pool in admission order.  The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	descs := make([]*TxDesc, len(mp.pool))
	copy(descs, mp.pool)
	return descs
}

// TxIDs returns the ids of all transactions in the main pool in admission
// order.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxIDs() []chainhash.Hash {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	ids := make([]chainhash.Hash, len(mp.pool))
	for i, desc := range mp.pool {
		ids[i] = desc.Tx.TxID
	}
	return ids
}

// LastUpdated returns the last time a transaction was added to or removed
// from the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}
