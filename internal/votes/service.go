// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package votes records votes against stored characters and feeds the
// vote.recorded event stream.
package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/votarena/internal/database"
	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/models"
	"github.com/tomtom215/votarena/internal/origins"
)

// ErrCharacterNotFound reports a vote against an id or name with no stored
// character behind it.
var ErrCharacterNotFound = errors.New("character not found")

// Publisher emits vote events after successful ledger writes.
type Publisher interface {
	PublishVote(ctx context.Context, event models.VoteEvent) error
}

// NameSource resolves characters by display name at an origin, used by
// manual votes to create the record being voted on.
type NameSource interface {
	GetByName(ctx context.Context, source models.Source, name string) (*models.Character, error)
}

// Service is the vote ledger front. Every successful vote is ledgered first,
// then best-effort: session exclusion recorded and the event published. A
// failure past the ledger write never fails the vote.
type Service struct {
	store     *database.DB
	origins   NameSource
	publisher Publisher
}

// New builds the vote service.
func New(store *database.DB, nameSource NameSource, publisher Publisher) *Service {
	return &Service{store: store, origins: nameSource, publisher: publisher}
}

// CreateRequest is a vote against a known stored character.
type CreateRequest struct {
	CharacterID string
	VoteType    models.VoteType
	SessionID   string
}

// Create records one vote. The character must already exist in the store.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Vote, error) {
	c, err := s.store.GetCharacter(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("character %q: %w", req.CharacterID, ErrCharacterNotFound)
	}
	return s.record(ctx, c, req.VoteType, req.SessionID)
}

// ManualRequest is a vote by character name, for characters the voter knows
// without having drawn them.
type ManualRequest struct {
	Name      string
	Source    models.Source
	VoteType  models.VoteType
	SessionID string
}

// Manual records a vote by display name, creating the character on first
// reference. Resolution order: the store (case-insensitive), then the named
// origin's name lookup, then a synthetic record keyed by the lowercased name
// so the vote is never lost to an origin outage.
func (s *Service) Manual(ctx context.Context, req ManualRequest) (*models.Vote, error) {
	c, err := s.store.GetCharacterByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	if c == nil {
		c, err = s.materialize(ctx, req.Name, req.Source)
		if err != nil {
			return nil, err
		}
	}

	return s.record(ctx, c, req.VoteType, req.SessionID)
}

// materialize creates the stored character a manual vote refers to.
func (s *Service) materialize(ctx context.Context, name string, source models.Source) (*models.StoredCharacter, error) {
	fetched, err := s.origins.GetByName(ctx, source, name)
	if err == nil {
		return s.store.UpsertCharacter(ctx, fetched)
	}
	if origins.IsNotFound(err) {
		return nil, fmt.Errorf("character %q at %s: %w", name, source, ErrCharacterNotFound)
	}

	// Origin down or without name search: store a minimal record under the
	// lowercased-name natural key so repeats of this vote dedupe.
	logging.Warn().Err(err).Str("name", name).Str("source", string(source)).
		Msg("manual vote falling back to synthetic character record")
	return s.store.UpsertCharacter(ctx, &models.Character{
		ExternalID: strings.ToLower(strings.TrimSpace(name)),
		Name:       name,
		Source:     source,
	})
}

func (s *Service) record(ctx context.Context, c *models.StoredCharacter, voteType models.VoteType, sessionID string) (*models.Vote, error) {
	v, err := s.store.InsertVote(ctx, c.ID, c.Name, c.Source, voteType)
	if err != nil {
		return nil, err
	}

	if sessionID != "" {
		if err := s.store.RecordVoted(ctx, sessionID, c.ID); err != nil {
			logging.Error().Err(err).Str("session_id", sessionID).Str("character_id", c.ID).
				Msg("failed to record session exclusion for vote")
		}
	}

	if s.publisher != nil {
		event := models.VoteEvent{
			VoteID:        v.ID,
			CharacterID:   v.CharacterID,
			CharacterName: v.CharacterName,
			Source:        v.Source,
			VoteType:      v.VoteType,
			SessionID:     sessionID,
			VotedAt:       v.VotedAt,
		}
		if err := s.publisher.PublishVote(ctx, event); err != nil {
			logging.Error().Err(err).Str("vote_id", v.ID).Msg("failed to publish vote event")
		}
	}

	return v, nil
}

// Counts tallies the ledger for one stored character.
func (s *Service) Counts(ctx context.Context, characterID string) (*models.VoteCounts, error) {
	c, err := s.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("character %q: %w", characterID, ErrCharacterNotFound)
	}
	return s.store.GetVoteCounts(ctx, characterID)
}
