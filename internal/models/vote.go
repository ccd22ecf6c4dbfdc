// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package models

import (
	"fmt"
	"time"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
)

// ParseVoteType validates a raw vote type string.
func ParseVoteType(raw string) (VoteType, error) {
	switch VoteType(raw) {
	case VoteLike:
		return VoteLike, nil
	case VoteDislike:
		return VoteDislike, nil
	}
	return "", fmt.Errorf("unknown vote type %q", raw)
}

// Vote is one row of the persisted vote ledger. CharacterName and Source are
// denormalized from the character at vote time so aggregate statistics survive
// character refreshes.
type Vote struct {
	ID            string   `json:"id"`
	CharacterID   string   `json:"characterId"`
	CharacterName string   `json:"characterName"`
	Source        Source   `json:"source"`
	VoteType      VoteType `json:"voteType"`

	VotedAt time.Time `json:"votedAt"`
}

// VoteCounts aggregates the ledger for a single character.
type VoteCounts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// VoteEvent is the payload published on the vote.recorded topic and broadcast
// to live feed subscribers.
type VoteEvent struct {
	VoteID        string    `json:"voteId"`
	CharacterID   string    `json:"characterId"`
	CharacterName string    `json:"characterName"`
	Source        Source    `json:"source"`
	VoteType      VoteType  `json:"voteType"`
	SessionID     string    `json:"sessionId,omitempty"`
	VotedAt       time.Time `json:"votedAt"`
}
