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

	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// CharacterFilter narrows character queries. A zero filter matches all rows.
type CharacterFilter struct {
	// Source restricts to one origin when non-empty.
	Source models.Source
	// ExcludeIDs removes specific stored characters from the result set.
	ExcludeIDs []string
}

func (f CharacterFilter) conditions() (string, []interface{}) {
	where := "1=1"
	var args []interface{}
	if f.Source != "" {
		where += " AND source = ?"
		args = append(args, string(f.Source))
	}
	if len(f.ExcludeIDs) > 0 {
		placeholders, excludeArgs := buildInClause(f.ExcludeIDs)
		where += fmt.Sprintf(" AND id NOT IN (%s)", placeholders)
		args = append(args, excludeArgs...)
	}
	return where, args
}

const characterColumns = "id, external_id, name, source, image_url, created_at, updated_at"

func scanCharacter(row interface{ Scan(...interface{}) error }) (*models.StoredCharacter, error) {
	var c models.StoredCharacter
	var source string
	err := row.Scan(&c.ID, &c.ExternalID, &c.Name, &source, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Source = models.Source(source)
	return &c, nil
}

// UpsertCharacter inserts a character or refreshes name and image on natural
// key collision (external_id, source). The stored row is returned either way,
// so repeated upserts of the same origin record are idempotent.
// Uses per-key locking plus retry with exponential backoff for DuckDB
// transaction conflicts.
func (db *DB) UpsertCharacter(ctx context.Context, c *models.Character) (*models.StoredCharacter, error) {
	mu := db.acquireKeyLock(c.NaturalKey())
	defer db.releaseKeyLock(mu)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.doUpsertCharacter(ctx, c)
		if err == nil {
			metrics.CharactersStored.WithLabelValues(string(c.Source)).Inc()
			return db.GetCharacterByNaturalKey(ctx, c.ExternalID, c.Source)
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}
		if isInternalError(err) {
			return nil, fmt.Errorf("FATAL: DuckDB internal error (this should not happen with per-key locking): %w", err)
		}

		if isTransactionConflict(err) {
			if attempt < maxRetries-1 {
				backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}

		return nil, err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (db *DB) doUpsertCharacter(ctx context.Context, c *models.Character) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("upsert_character").Observe(time.Since(start).Seconds())
	}()

	now := db.nowFn().UTC()
	query := `INSERT INTO characters (id, external_id, name, source, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id, source) DO UPDATE SET
			name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at`

	_, err := db.conn.ExecContext(ctx, query,
		uuid.NewString(), c.ExternalID, c.Name, string(c.Source), c.ImageURL, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert character: %w", err)
	}
	return nil
}

// GetCharacter retrieves one stored character by internal id. Returns nil
// without error when the id is unknown.
func (db *DB) GetCharacter(ctx context.Context, id string) (*models.StoredCharacter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + characterColumns + ` FROM characters WHERE id = ?`
	c, err := scanCharacter(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	return c, nil
}

// GetCharacterByNaturalKey retrieves one stored character by its origin
// identity. Returns nil without error when absent.
func (db *DB) GetCharacterByNaturalKey(ctx context.Context, externalID string, source models.Source) (*models.StoredCharacter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + characterColumns + ` FROM characters WHERE external_id = ? AND source = ?`
	c, err := scanCharacter(db.conn.QueryRowContext(ctx, query, externalID, string(source)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character by natural key: %w", err)
	}
	return c, nil
}

// GetCharacterByName retrieves one stored character by case-insensitive
// display name. With multiple matches across origins the oldest row wins,
// keeping the answer stable. Returns nil without error when absent.
func (db *DB) GetCharacterByName(ctx context.Context, name string) (*models.StoredCharacter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + characterColumns + ` FROM characters
		WHERE LOWER(name) = LOWER(?)
		ORDER BY created_at ASC
		LIMIT 1`
	c, err := scanCharacter(db.conn.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character by name: %w", err)
	}
	return c, nil
}

// CountCharacters counts stored characters matching the filter.
func (db *DB) CountCharacters(ctx context.Context, filter CharacterFilter) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("count_characters").Observe(time.Since(start).Seconds())
	}()

	where, args := filter.conditions()
	query := `SELECT COUNT(*) FROM characters WHERE ` + where

	var count int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count characters: %w", err)
	}
	return count, nil
}

// SampleCharacter draws one uniformly random stored character matching the
// filter, sampled in-database. Returns nil without error when nothing
// matches.
func (db *DB) SampleCharacter(ctx context.Context, filter CharacterFilter) (*models.StoredCharacter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("sample_character").Observe(time.Since(start).Seconds())
	}()

	where, args := filter.conditions()
	query := `SELECT ` + characterColumns + ` FROM characters
		WHERE ` + where + `
		ORDER BY random()
		LIMIT 1`

	c, err := scanCharacter(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sample character: %w", err)
	}
	return c, nil
}

// ListCharacters returns all stored characters matching the filter, newest
// first.
func (db *DB) ListCharacters(ctx context.Context, filter CharacterFilter) ([]models.StoredCharacter, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := filter.conditions()
	query := `SELECT ` + characterColumns + ` FROM characters
		WHERE ` + where + `
		ORDER BY created_at DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	var out []models.StoredCharacter
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating characters: %w", err)
	}
	return out, nil
}
