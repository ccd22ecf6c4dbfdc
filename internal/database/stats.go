// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// GetMostVoted returns the stored character with the most votes of the given
// type, with the count. Returns nil without error when the ledger holds no
// such votes. Ties break toward the earlier voter.
func (db *DB) GetMostVoted(ctx context.Context, voteType models.VoteType) (*models.StoredCharacter, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("most_voted").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT c.id, c.external_id, c.name, c.source, c.image_url, c.created_at, c.updated_at,
			COUNT(*) AS vote_count
		FROM votes v
		JOIN characters c ON c.id = v.character_id
		WHERE v.vote_type = ?
		GROUP BY c.id, c.external_id, c.name, c.source, c.image_url, c.created_at, c.updated_at
		ORDER BY vote_count DESC, MIN(v.voted_at) ASC
		LIMIT 1`

	var c models.StoredCharacter
	var source string
	var count int
	err := db.conn.QueryRowContext(ctx, query, string(voteType)).Scan(
		&c.ID, &c.ExternalID, &c.Name, &source, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query most voted: %w", err)
	}
	c.Source = models.Source(source)
	return &c, count, nil
}

// GetLastVote returns the most recent ledger entry, or nil when the ledger
// is empty.
func (db *DB) GetLastVote(ctx context.Context) (*models.Vote, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT id, character_id, character_name, source, vote_type, voted_at
		FROM votes
		ORDER BY voted_at DESC
		LIMIT 1`

	var v models.Vote
	var source, voteType string
	err := db.conn.QueryRowContext(ctx, query).Scan(
		&v.ID, &v.CharacterID, &v.CharacterName, &source, &voteType, &v.VotedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last vote: %w", err)
	}
	v.Source = models.Source(source)
	v.VoteType = models.VoteType(voteType)
	return &v, nil
}

// GetNamedVoteStats aggregates the ledger for one character display name,
// case-insensitive, across all characters carrying it. Returns nil without
// error when no votes reference the name.
func (db *DB) GetNamedVoteStats(ctx context.Context, name string) (*models.NamedVoteStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT
			COUNT(*) FILTER (WHERE vote_type = 'like') AS likes,
			COUNT(*) FILTER (WHERE vote_type = 'dislike') AS dislikes,
			COUNT(*) AS total,
			MIN(voted_at) AS first_vote,
			MAX(voted_at) AS last_vote
		FROM votes
		WHERE LOWER(character_name) = LOWER(?)
		HAVING COUNT(*) > 0`

	var stats models.NamedVoteStats
	err := db.conn.QueryRowContext(ctx, query, name).Scan(
		&stats.Likes, &stats.Dislikes, &stats.TotalVotes, &stats.FirstVoteAt, &stats.LastVoteAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query named vote stats: %w", err)
	}
	stats.NetScore = stats.Likes - stats.Dislikes
	return &stats, nil
}
