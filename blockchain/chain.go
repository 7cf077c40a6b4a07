// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/embersuite/emberd/wire"
)

// materializeBody returns a block guaranteed to carry its transaction body,
// loading it through the configured block source when needed.  Loaded bodies
// are cached in the passed map for the duration of a single chain
// validation only.
func (c *Consensus) materializeBody(block *wire.Block,
	cache map[uint64]*wire.Block) (*wire.Block, error) {

	if block.HasBody() {
		return block, nil
	}
	if cached, ok := cache[block.Header.Index]; ok {
		return cached, nil
	}
	if c.blockSource == nil {
		return nil, fmt.Errorf("block %d has no body and no block "+
			"source is configured", block.Header.Index)
	}

	loaded, err := c.blockSource.FetchBlock(block.Header.Index)
	if err != nil {
		return nil, fmt.Errorf("loading block %d: %w",
			block.Header.Index, err)
	}
	if loaded == nil {
		return nil, fmt.Errorf("block %d is not present in storage",
			block.Header.Index)
	}
	if loaded.Hash != block.Hash {
		str := fmt.Sprintf("stored block %d hash %v does not match "+
			"chain hash %v", block.Header.Index, loaded.Hash,
			block.Hash)
		return nil, ruleError(ErrHashMismatch, str)
	}

	cache[block.Header.Index] = loaded
	return loaded, nil
}

// checkGenesisBlock validates the shape of the first block of a chain: it
// must sit at index zero and link to the zero hash.
func (c *Consensus) checkGenesisBlock(genesis *wire.Block) error {
	if genesis.Header.Index != 0 {
		str := fmt.Sprintf("genesis block has index %d",
			genesis.Header.Index)
		return ruleError(ErrBadGenesis, str)
	}
	if genesis.Header.PrevHash != zeroHash {
		str := fmt.Sprintf("genesis block previous hash %v is not "+
			"zero", genesis.Header.PrevHash)
		return ruleError(ErrBadGenesis, str)
	}
	if recomputed := genesis.Header.BlockHash(); genesis.Hash != recomputed {
		str := fmt.Sprintf("genesis stored hash %v does not match "+
			"computed hash %v", genesis.Hash, recomputed)
		return ruleError(ErrBadGenesis, str)
	}
	return nil
}

// CheckChain validates an entire chain from its genesis block forward:
// genesis shape, per-block linkage, proof of work, timestamps, and the
// transaction rules of every block.  It short-circuits on the first failing
// block and wraps the underlying rule error with its position.
//
// Blocks whose bodies have not been materialized are loaded through the
// configured block source; loaded bodies are cached only for the duration
// of this call.
func (c *Consensus) CheckChain(chain []*wire.Block) error {
	if len(chain) == 0 {
		return nil
	}

	if err := c.checkGenesisBlock(chain[0]); err != nil {
		return err
	}

	bodyCache := make(map[uint64]*wire.Block)
	for i := 1; i < len(chain); i++ {
		prev := chain[i-1]
		if err := c.CheckBlock(chain[i], prev, chain[:i]); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}

		block, err := c.materializeBody(chain[i], bodyCache)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if err := c.CheckBlockTransactions(block); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}

// CheckChainIntegrity performs a defense-in-depth sweep over a chain that
// is assumed to have already passed full validation: it detects index gaps
// and re-derives a spent-output map across all blocks to catch on-chain
// double spends.
func (c *Consensus) CheckChainIntegrity(chain []*wire.Block) error {
	spent := make(map[wire.OutPoint]uint64)

	for i, block := range chain {
		if block.Header.Index != uint64(i) {
			str := fmt.Sprintf("block at position %d carries "+
				"index %d", i, block.Header.Index)
			return ruleError(ErrIndexMismatch, str)
		}
		if !block.HasBody() {
			continue
		}

		for _, tx := range block.Transactions {
			if tx.IsCoinbase() {
				continue
			}
			for j := range tx.Inputs {
				op := tx.Inputs[j].PreviousOutPoint
				if spender, ok := spent[op]; ok {
					str := fmt.Sprintf("output %v spent "+
						"in block %d is spent again "+
						"in block %d", op, spender, i)
					return ruleError(ErrDoubleSpend, str)
				}
				spent[op] = uint64(i)
			}
		}
	}

	log.Debugf("Chain integrity verified across %d blocks (%d spent "+
		"outputs)", len(chain), len(spent))
	return nil
}
