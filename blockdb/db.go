// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdb provides a persistent block store backed by leveldb.
package blockdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/embersuite/emberd/wire"
)

// blockKeyPrefix namespaces block records so other record kinds can share
// the database later.
var blockKeyPrefix = []byte("blk")

// Store persists blocks keyed by height.  It satisfies the block source
// interface consumed by chain validation, so a header-only chain walk can
// materialize bodies lazily from disk.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the block store at the passed path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open block store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// blockKey returns the database key for the block at the passed height.
// Heights are encoded big endian so the natural key order is height order.
func blockKey(index uint64) []byte {
	key := make([]byte, len(blockKeyPrefix)+8)
	copy(key, blockKeyPrefix)
	binary.BigEndian.PutUint64(key[len(blockKeyPrefix):], index)
	return key
}

// PutBlock stores the passed block, overwriting any block already stored at
// its height.
func (s *Store) PutBlock(block *wire.Block) error {
	value, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", block.Header.Index, err)
	}
	err = s.db.Put(blockKey(block.Header.Index), value, nil)
	if err != nil {
		return fmt.Errorf("store block %d: %w", block.Header.Index, err)
	}
	log.Debugf("Stored block %d (%v)", block.Header.Index, block.Hash)
	return nil
}

// FetchBlock returns the block stored at the passed height.  A nil block
// with a nil error means no block is stored there.
func (s *Store) FetchBlock(index uint64) (*wire.Block, error) {
	value, err := s.db.Get(blockKey(index), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch block %d: %w", index, err)
	}
	var block wire.Block
	if err := json.Unmarshal(value, &block); err != nil {
		return nil, fmt.Errorf("decode block %d: %w", index, err)
	}
	return &block, nil
}

// TipHeight returns the height of the highest stored block.  The second
// return is false when the store is empty.
func (s *Store) TipHeight() (uint64, bool, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var best uint64
	found := false
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(blockKeyPrefix)+8 {
			continue
		}
		height := binary.BigEndian.Uint64(key[len(blockKeyPrefix):])
		if !found || height > best {
			best = height
			found = true
		}
	}
	if err := iter.Error(); err != nil {
		return 0, false, fmt.Errorf("scan block store: %w", err)
	}
	return best, found, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
