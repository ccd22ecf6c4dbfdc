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

	"github.com/google/uuid"

	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// CreateSession opens a new voting session valid for ttl.
func (db *DB) CreateSession(ctx context.Context, ttl time.Duration) (*models.VotingSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := db.nowFn().UTC()
	s := &models.VotingSession{
		SessionID:      uuid.NewString(),
		VotedIDs:       []string{},
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}

	query := `INSERT INTO voting_sessions (session_id, created_at, last_activity_at, expires_at)
		VALUES (?, ?, ?, ?)`
	if _, err := db.conn.ExecContext(ctx, query, s.SessionID, s.CreatedAt, s.LastActivityAt, s.ExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	return s, nil
}

// GetSession retrieves one voting session with its voted character ids.
// Returns nil without error when the session is unknown or already expired.
func (db *DB) GetSession(ctx context.Context, sessionID string) (*models.VotingSession, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var s models.VotingSession
	query := `SELECT session_id, created_at, last_activity_at, expires_at
		FROM voting_sessions WHERE session_id = ?`
	err := db.conn.QueryRowContext(ctx, query, sessionID).Scan(
		&s.SessionID, &s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if s.Expired(db.nowFn().UTC()) {
		return nil, nil
	}

	s.VotedIDs, err = db.sessionVotedIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetVotedIDs returns the character ids already voted in a session. An
// unknown or expired session yields an empty set rather than an error, so a
// stale session id degrades to "no exclusions".
func (db *DB) GetVotedIDs(ctx context.Context, sessionID string) ([]string, error) {
	s, err := db.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	return s.VotedIDs, nil
}

func (db *DB) sessionVotedIDs(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT character_id FROM session_characters WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session characters: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session character: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session characters: %w", err)
	}
	return ids, nil
}

// RecordVoted appends a character to a session's voted set, if absent, and
// refreshes the session's activity timestamp. A vote against an unknown or
// expired session is logged and dropped, never failed: the vote itself has
// already been ledgered.
func (db *DB) RecordVoted(ctx context.Context, sessionID, characterID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	s, err := db.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s == nil {
		logging.Warn().Str("session_id", sessionID).Msg("vote for unknown or expired session, exclusion not recorded")
		return nil
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO session_characters (session_id, character_id) VALUES (?, ?)
		ON CONFLICT (session_id, character_id) DO NOTHING`,
		sessionID, characterID)
	if err != nil {
		return fmt.Errorf("failed to record session character: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE voting_sessions SET last_activity_at = ? WHERE session_id = ?`,
		db.nowFn().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// DeleteSession removes a session and its voted set. Deleting an unknown
// session is a no-op.
func (db *DB) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM session_characters WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session characters: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM voting_sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SweepExpiredSessions removes all sessions past their expiry, returning the
// number removed.
func (db *DB) SweepExpiredSessions(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := db.nowFn().UTC()
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM session_characters WHERE session_id IN
			(SELECT session_id FROM voting_sessions WHERE expires_at <= ?)`, now); err != nil {
		return 0, fmt.Errorf("failed to sweep session characters: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM voting_sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}

	swept, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // sweep succeeded, count is best-effort
	}
	metrics.SessionsSwept.Add(float64(swept))
	return int(swept), nil
}
