// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package models

import "time"

// APIResponse is the envelope for every JSON API response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response bookkeeping for the frontend and monitoring.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMs int64     `json:"query_time_ms,omitempty"`
}

// APIError is the machine-readable error body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CharacterResponse is the wire shape of a stored character.
type CharacterResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Source     Source `json:"source"`
	ImageURL   string `json:"imageUrl"`
}

// NewCharacterResponse converts a stored character to its wire shape.
func NewCharacterResponse(c *StoredCharacter) CharacterResponse {
	return CharacterResponse{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Name:       c.Name,
		Source:     c.Source,
		ImageURL:   c.ImageURL,
	}
}

// SessionResponse is returned on session creation.
type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MostVotedResponse pairs a character with its winning vote count.
type MostVotedResponse struct {
	Character CharacterResponse `json:"character"`
	Likes     int               `json:"likes,omitempty"`
	Dislikes  int               `json:"dislikes,omitempty"`
}

// LastEvaluatedResponse describes the most recent vote in the ledger.
type LastEvaluatedResponse struct {
	Vote LastEvaluatedVote `json:"vote"`
}

// LastEvaluatedVote is the inner payload of LastEvaluatedResponse.
type LastEvaluatedVote struct {
	ID        string                 `json:"id"`
	Character LastEvaluatedCharacter `json:"character"`
	VoteType  VoteType               `json:"voteType"`
	VotedAt   time.Time              `json:"votedAt"`
}

// LastEvaluatedCharacter is the denormalized character slice of a vote.
type LastEvaluatedCharacter struct {
	Name     string `json:"name"`
	Source   Source `json:"source"`
	ImageURL string `json:"imageUrl"`
}

// NamedCharacterStats reports the vote history of one character looked up by
// display name (the frontend's "Pikachu card").
type NamedCharacterStats struct {
	Character  NamedCharacterRef `json:"character"`
	Statistics *NamedVoteStats   `json:"statistics,omitempty"`
}

// NamedCharacterRef identifies the character the stats refer to.
type NamedCharacterRef struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
	Exists bool   `json:"exists"`
}

// NamedVoteStats is the aggregate block of NamedCharacterStats.
type NamedVoteStats struct {
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
	NetScore    int       `json:"netScore"`
	TotalVotes  int       `json:"totalVotes"`
	FirstVoteAt time.Time `json:"firstVoteAt"`
	LastVoteAt  time.Time `json:"lastVoteAt"`
}
