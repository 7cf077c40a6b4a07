// Copyright (c) 2024-2025 The embersuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"
)

// senderStrikes tracks the invalid-submission state of a single sender.  A
// sender moves through three states: clear (no entry in the tracker),
// strike counting, and banned.
type senderStrikes struct {
	count       int
	windowStart time.Time
	bannedUntil time.Time
}

// banTracker implements the windowed strike counter behind sender bans.
// It is not safe for concurrent access; the pool mutex guards it.
type banTracker struct {
	invalidThreshold int
	invalidWindow    time.Duration
	banDuration      time.Duration

	strikes map[string]*senderStrikes
}

func newBanTracker(policy *Policy) *banTracker {
	return &banTracker{
		invalidThreshold: policy.InvalidThreshold,
		invalidWindow:    policy.InvalidWindow,
		banDuration:      policy.BanDuration,
		strikes:          make(map[string]*senderStrikes),
	}
}

// isBanned returns whether the sender is currently serving a ban.
func (b *banTracker) isBanned(sender string, now time.Time) bool {
	entry, ok := b.strikes[sender]
	return ok && now.Before(entry.bannedUntil)
}

// registerStrike records an invalid submission for the sender.  Reaching
// the threshold within the window triggers a ban and resets the counter so
// the next window starts clean when the ban expires.  It returns whether
// this strike caused a ban.
func (b *banTracker) registerStrike(sender string, now time.Time) bool {
	entry, ok := b.strikes[sender]
	if !ok {
		entry = &senderStrikes{windowStart: now}
		b.strikes[sender] = entry
	}

	if now.Sub(entry.windowStart) > b.invalidWindow {
		entry.count = 0
		entry.windowStart = now
	}

	entry.count++
	if entry.count >= b.invalidThreshold {
		entry.bannedUntil = now.Add(b.banDuration)
		entry.count = 0
		entry.windowStart = now
		return true
	}
	return false
}

// ban places an explicit ban on the sender regardless of strike state.
func (b *banTracker) ban(sender string, now time.Time) {
	entry, ok := b.strikes[sender]
	if !ok {
		entry = &senderStrikes{windowStart: now}
		b.strikes[sender] = entry
	}
	entry.bannedUntil = now.Add(b.banDuration)
	entry.count = 0
}

// clear removes all strike and ban state for the sender.  A single
// successful admission returns the sender to the clear state.
func (b *banTracker) clear(sender string) {
	delete(b.strikes, sender)
}
