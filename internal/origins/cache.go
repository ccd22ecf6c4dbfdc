// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"sync"
	"time"

	"github.com/tomtom215/votarena/internal/models"
)

// memoCache is the aggregator's TTL memo for by-id and by-name lookups.
// sync.Map keeps store/load atomic per key without serializing unrelated
// lookups behind a single lock. Expiry is lazy: an expired entry is deleted
// on the read that discovers it.
type memoCache struct {
	entries sync.Map // string -> cacheEntry
	ttl     time.Duration
	clock   Clock
}

type cacheEntry struct {
	character *models.Character
	expiresAt time.Time
}

func newMemoCache(ttl time.Duration, clock Clock) *memoCache {
	return &memoCache{ttl: ttl, clock: clock}
}

// get returns the live entry for key, deleting and missing on expiry.
func (c *memoCache) get(key string) (*models.Character, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := v.(cacheEntry)
	if !c.clock.Now().Before(entry.expiresAt) {
		c.entries.Delete(key)
		return nil, false
	}
	return entry.character, true
}

// set stores character under key with a fresh TTL.
func (c *memoCache) set(key string, character *models.Character) {
	c.entries.Store(key, cacheEntry{
		character: character,
		expiresAt: c.clock.Now().Add(c.ttl),
	})
}
