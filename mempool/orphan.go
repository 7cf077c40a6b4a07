// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"container/list"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/embersuite/emberd/wire"
)

// orphanPool holds transactions whose referenced inputs are not yet known,
// deduplicated by transaction id and bounded in size.  When the bound is
// hit the oldest orphan is evicted first.
//
// The pool mutex guards all access; orphanPool itself is not safe for
// concurrent use.
type orphanPool struct {
	maxOrphans int
	order      *list.List // oldest at the front
	byID       map[chainhash.Hash]*list.Element
}

func newOrphanPool(maxOrphans int) *orphanPool {
	return &orphanPool{
		maxOrphans: maxOrphans,
		order:      list.New(),
		byID:       make(map[chainhash.Hash]*list.Element),
	}
}

// add queues the transaction as an orphan.  Duplicates are ignored, and the
// oldest orphan is evicted when the pool is full.  It returns whether the
// transaction was newly added.
func (o *orphanPool) add(txid chainhash.Hash, tx *wire.Transaction) bool {
	if o.maxOrphans <= 0 {
		return false
	}
	if _, exists := o.byID[txid]; exists {
		return false
	}

	if o.order.Len() >= o.maxOrphans {
		front := o.order.Front()
		evicted := o.order.Remove(front).(*wire.Transaction)
		delete(o.byID, evicted.TxID)
		log.Debugf("Evicted oldest orphan %v (pool full)", evicted.TxID)
	}

	o.byID[txid] = o.order.PushBack(tx)
	return true
}

// remove deletes the orphan with the passed id, reporting whether it was
// present.
func (o *orphanPool) remove(txid chainhash.Hash) bool {
	elem, ok := o.byID[txid]
	if !ok {
		return false
	}
	o.order.Remove(elem)
	delete(o.byID, txid)
	return true
}

// contains returns whether an orphan with the passed id is queued.
func (o *orphanPool) contains(txid chainhash.Hash) bool {
	_, ok := o.byID[txid]
	return ok
}

// all returns the queued orphans in arrival order.
func (o *orphanPool) all() []*wire.Transaction {
	orphans := make([]*wire.Transaction, 0, o.order.Len())
	for e := o.order.Front(); e != nil; e = e.Next() {
		orphans = append(orphans, e.Value.(*wire.Transaction))
	}
	return orphans
}

// count returns the number of queued orphans.
func (o *orphanPool) count() int {
	return o.order.Len()
}
