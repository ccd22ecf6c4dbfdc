// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package models

import "time"

// VotingSession is the ephemeral per-browser exclusion state. VotedIDs grows
// monotonically as the caller votes; the whole record becomes invisible once
// ExpiresAt has passed, whether or not the sweeper has removed it yet.
type VotingSession struct {
	SessionID      string    `json:"sessionId"`
	VotedIDs       []string  `json:"votedCharacterIds"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *VotingSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
