// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testBanTracker() *banTracker {
	return newBanTracker(&Policy{
		InvalidThreshold: 3,
		InvalidWindow:    10 * time.Minute,
		BanDuration:      time.Hour,
	})
}

func TestBanTrackerThreshold(t *testing.T) {
	tracker := testBanTracker()
	now := time.Unix(1718200000, 0)

	require.False(t, tracker.registerStrike("alice", now))
	require.False(t, tracker.registerStrike("alice", now.Add(time.Minute)))
	require.False(t, tracker.isBanned("alice", now.Add(time.Minute)))

	// The third strike within the window trips the ban.
	require.True(t, tracker.registerStrike("alice", now.Add(2*time.Minute)))
	require.True(t, tracker.isBanned("alice", now.Add(3*time.Minute)))

	// Bans expire on their own.
	require.False(t, tracker.isBanned("alice", now.Add(2*time.Hour)))
}

func TestBanTrackerWindowReset(t *testing.T) {
	tracker := testBanTracker()
	now := time.Unix(1718200000, 0)

	require.False(t, tracker.registerStrike("alice", now))
	require.False(t, tracker.registerStrike("alice", now.Add(time.Minute)))

	// A strike outside the window starts a fresh count, so two more
	// strikes are still short of the threshold.
	later := now.Add(11 * time.Minute)
	require.False(t, tracker.registerStrike("alice", later))
	require.False(t, tracker.registerStrike("alice", later.Add(time.Minute)))
	require.False(t, tracker.isBanned("alice", later.Add(time.Minute)))

	require.True(t, tracker.registerStrike("alice", later.Add(2*time.Minute)))
}

func TestBanTrackerExplicitBanAndClear(t *testing.T) {
	tracker := testBanTracker()
	now := time.Unix(1718200000, 0)

	tracker.ban("alice", now)
	require.True(t, tracker.isBanned("alice", now.Add(59*time.Minute)))
	require.False(t, tracker.isBanned("alice", now.Add(61*time.Minute)))

	// clear wipes both strikes and an active ban.
	tracker.ban("bobby", now)
	require.True(t, tracker.isBanned("bobby", now))
	tracker.clear("bobby")
	require.False(t, tracker.isBanned("bobby", now))
	require.False(t, tracker.registerStrike("bobby", now))
}
