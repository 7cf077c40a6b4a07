// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sort"

	"github.com/embersuite/emberd/wire"
)

// TemplateTxs returns up to count pooled transactions for inclusion in a
// block template.  Transactions are grouped by sender and each group is
// sorted by ascending nonce; selection then repeatedly takes the group head
// with the highest fee rate.  Higher-paying transactions therefore come
// first overall without ever emitting a sender's transactions out of nonce
// order, which block validation requires to be gapless and ascending.
//
// Ties between group heads resolve by sender so the ordering is
// deterministic for a given pool state.
//
// This function is safe for concurrent access.
func (mp *TxPool) TemplateTxs(count int) []*wire.Transaction {
	if count <= 0 {
		return nil
	}

	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	groups := make(map[string][]*TxDesc)
	for _, desc := range mp.pool {
		groups[desc.Tx.Sender] = append(groups[desc.Tx.Sender], desc)
	}
	senders := make([]string, 0, len(groups))
	for sender, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Tx.Nonce < group[j].Tx.Nonce
		})
		senders = append(senders, sender)
	}
	sort.Strings(senders)

	if count > len(mp.pool) {
		count = len(mp.pool)
	}
	result := make([]*wire.Transaction, 0, count)
	for len(result) < count {
		var best string
		var bestRate int64
		found := false
		for _, sender := range senders {
			group := groups[sender]
			if len(group) == 0 {
				continue
			}
			if !found || group[0].FeeRate > bestRate {
				best = sender
				bestRate = group[0].FeeRate
				found = true
			}
		}
		if !found {
			break
		}
		result = append(result, groups[best][0].Tx)
		groups[best] = groups[best][1:]
	}
	return result
}
