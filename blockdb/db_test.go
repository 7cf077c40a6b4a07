// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embersuite/emberd/wire"
)

func testBlock(index uint64, miner string) *wire.Block {
	header := wire.BlockHeader{
		Index:      index,
		Timestamp:  1718200000 + int64(index)*600,
		Difficulty: 1,
		Version:    1,
		Miner:      miner,
	}
	return &wire.Block{
		Header: header,
		Hash:   header.BlockHash(),
		Transactions: []*wire.Transaction{{
			Sender: "alice",
			Amount: 1000,
			Fee:    10,
			Kind:   wire.KindNormal,
		}},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	// Empty store: no tip, no block.
	_, found, err := store.TipHeight()
	require.NoError(t, err)
	require.False(t, found)
	block, err := store.FetchBlock(0)
	require.NoError(t, err)
	require.Nil(t, block)

	want := testBlock(7, "miner-a")
	require.NoError(t, store.PutBlock(want))

	got, err := store.FetchBlock(7)
	require.NoError(t, err)
	require.Equal(t, want.Hash, got.Hash)
	require.Equal(t, want.Header, got.Header)
	require.Len(t, got.Transactions, 1)

	// Overwriting a height replaces the stored block.
	replacement := testBlock(7, "miner-b")
	require.NoError(t, store.PutBlock(replacement))
	got, err = store.FetchBlock(7)
	require.NoError(t, err)
	require.Equal(t, "miner-b", got.Header.Miner)
}

func TestStoreTipHeight(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	for _, index := range []uint64{3, 0, 12, 5} {
		require.NoError(t, store.PutBlock(testBlock(index, "miner-a")))
	}

	tip, found, err := store.TipHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 12, tip)
}
