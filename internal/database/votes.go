// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// InsertVote appends one vote to the ledger. Votes are append-only; there is
// no dedup across a session here, exclusion is the session's concern.
func (db *DB) InsertVote(ctx context.Context, characterID, characterName string, source models.Source, voteType models.VoteType) (*models.Vote, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("insert_vote").Observe(time.Since(start).Seconds())
	}()

	v := &models.Vote{
		ID:            uuid.NewString(),
		CharacterID:   characterID,
		CharacterName: characterName,
		Source:        source,
		VoteType:      voteType,
		VotedAt:       db.nowFn().UTC(),
	}

	query := `INSERT INTO votes (id, character_id, character_name, source, vote_type, voted_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query,
		v.ID, v.CharacterID, v.CharacterName, string(v.Source), string(v.VoteType), v.VotedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}

	metrics.VotesRecorded.WithLabelValues(string(source), string(voteType)).Inc()
	return v, nil
}

// ListVotesByCharacter returns every ledger entry for one character, oldest
// first.
func (db *DB) ListVotesByCharacter(ctx context.Context, characterID string) ([]models.Vote, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("list_votes").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, character_id, character_name, source, vote_type, voted_at
		FROM votes WHERE character_id = ? ORDER BY voted_at`

	rows, err := db.conn.QueryContext(ctx, query, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var ledger []models.Vote
	for rows.Next() {
		var v models.Vote
		var source, voteType string
		if err := rows.Scan(&v.ID, &v.CharacterID, &v.CharacterName, &source, &voteType, &v.VotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.Source = models.Source(source)
		v.VoteType = models.VoteType(voteType)
		ledger = append(ledger, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}
	return ledger, nil
}

// GetVoteCounts tallies likes and dislikes for one character.
func (db *DB) GetVoteCounts(ctx context.Context, characterID string) (*models.VoteCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("vote_counts").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT
		COUNT(*) FILTER (WHERE vote_type = 'like') AS likes,
		COUNT(*) FILTER (WHERE vote_type = 'dislike') AS dislikes
	FROM votes WHERE character_id = ?`

	var counts models.VoteCounts
	if err := db.conn.QueryRowContext(ctx, query, characterID).Scan(&counts.Likes, &counts.Dislikes); err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	return &counts, nil
}
