// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/embersuite/emberd/wire"
)

// ChainWork returns the approximate cumulative work of a chain as the sum
// of the leading zero hex characters of each block hash.
//
// This is an approximation, not true cumulative difficulty: a hash one bit
// below a power-of-sixteen boundary counts the same as one far below it.
// The proxy is consensus-critical and must match peer implementations
// byte-for-byte, so it is deliberately left as specified.  It is only
// consulted to break ties between equal-length chains.
func ChainWork(chain []*wire.Block) int {
	work := 0
	for _, block := range chain {
		work += CountLeadingHexZeros(&block.Hash)
	}
	return work
}

// ResolveForks validates all candidate chains, discards the invalid ones,
// and picks a winner strictly by length.  The returned bool reports whether
// the winning length was shared by more than one valid candidate, in which
// case the first such chain is returned and the caller may wish to defer to
// other criteria.  A nil chain is returned when no candidate validates.
func (c *Consensus) ResolveForks(chains [][]*wire.Block) ([]*wire.Block, bool) {
	var best []*wire.Block
	tie := false

	for i, chain := range chains {
		if len(chain) == 0 {
			continue
		}
		if err := c.CheckChain(chain); err != nil {
			log.Warnf("Discarding fork candidate %d: %v", i, err)
			continue
		}

		switch {
		case best == nil || len(chain) > len(best):
			best = chain
			tie = false
		case len(chain) == len(best):
			tie = true
		}
	}

	if best == nil {
		log.Warnf("No valid chain among %d fork candidates", len(chains))
		return nil, false
	}
	if tie {
		log.Infof("Fork resolution tie at length %d", len(best))
	}
	return best, tie
}

// ShouldReplaceChain reports whether the candidate chain should replace the
// current one.  The candidate must fully validate; it wins outright when it
// is strictly longer, and an equal-length candidate wins only with strictly
// greater cumulative work.  The returned error carries the validation
// failure when the candidate is invalid and is nil otherwise.
func (c *Consensus) ShouldReplaceChain(current,
	candidate []*wire.Block) (bool, error) {

	if err := c.CheckChain(candidate); err != nil {
		return false, err
	}

	switch {
	case len(candidate) > len(current):
		return true, nil
	case len(candidate) < len(current):
		return false, nil
	}

	// Equal length: fall back to cumulative work, strictly greater wins.
	candidateWork := ChainWork(candidate)
	currentWork := ChainWork(current)
	log.Debugf("Equal-length chains, comparing work: candidate %d vs "+
		"current %d", candidateWork, currentWork)
	return candidateWork > currentWork, nil
}
