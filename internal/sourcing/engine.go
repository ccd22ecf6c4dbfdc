// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package sourcing implements the hybrid cache-vs-origin character selection
// policy. Per random-character request it decides whether to draw from the
// durable local cache or from a live origin, honors per-session and explicit
// exclusions, and keeps the cache warm without duplicates.
package sourcing

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/votarena/internal/config"
	"github.com/tomtom215/votarena/internal/database"
	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
	"github.com/tomtom215/votarena/internal/origins"
)

// ErrNoCharactersAvailable is returned only when every path is exhausted:
// nothing usable in the cache and no reachable origin.
var ErrNoCharactersAvailable = errors.New("no characters available")

// RandomSource is the slice of the origin aggregator the engine consumes.
type RandomSource interface {
	GetRandom(ctx context.Context, source models.Source) (*models.Character, error)
}

// Request is one random-character draw.
type Request struct {
	// Source restricts the draw to one origin when non-empty.
	Source models.Source
	// ExcludeIDs are caller-supplied stored character ids to avoid.
	ExcludeIDs []string
	// SessionID merges the session's voted set into the exclusions when set.
	SessionID string
}

// Engine runs the sourcing policy. Requests are independent and run
// concurrently; all cross-request consistency lives in the store's natural
// key constraint.
type Engine struct {
	store   *database.DB
	origins RandomSource
	cfg     config.SourcingConfig
	rng     origins.Rand
}

// New builds an engine over the durable store and the origin aggregator.
func New(store *database.DB, randomSource RandomSource, cfg config.SourcingConfig, rng origins.Rand) *Engine {
	return &Engine{store: store, origins: randomSource, cfg: cfg, rng: rng}
}

// RandomCharacter draws one character.
//
// The policy, in exactly this order:
//  1. effective exclusion set = explicit ids ∪ session voted ids
//  2. n = count of cached characters passing the filter
//  3. draw from origin when n == 0, or n < MinCacheSize, or with
//     probability OriginProbability; otherwise sample the cache
//  4. a failed origin draw falls back to the cache sample when it has
//     anything to offer; an empty cache sample falls back to the origin
//     unconditionally
//
// Origin draws are upserted, so every draw warms the cache. When an origin
// draw collides with an excluded stored character it is returned anyway:
// exclusion of the exact origin draw is a soft guarantee, the engine does not
// spend more origin calls searching around it.
func (e *Engine) RandomCharacter(ctx context.Context, req Request) (*models.StoredCharacter, error) {
	excluded, err := e.effectiveExclusions(ctx, req)
	if err != nil {
		return nil, err
	}

	filter := database.CharacterFilter{Source: req.Source, ExcludeIDs: excluded}
	n, err := e.store.CountCharacters(ctx, filter)
	if err != nil {
		return nil, err
	}

	fetchFromOrigin := n == 0 || n < e.cfg.MinCacheSize || e.rng.Float64() < e.cfg.OriginProbability

	if fetchFromOrigin {
		c, originErr := e.fromOrigin(ctx, req.Source, excluded)
		if originErr == nil {
			metrics.SourcingDecisions.WithLabelValues("origin", "hit").Inc()
			return c, nil
		}
		if isStoreError(originErr) {
			return nil, originErr
		}

		// Origin down. The cache, if non-empty, still serves.
		logging.Warn().Err(originErr).Str("source", string(req.Source)).Msg("origin draw failed, trying cache")
		if n > 0 {
			cached, sampleErr := e.store.SampleCharacter(ctx, filter)
			if sampleErr != nil {
				return nil, sampleErr
			}
			if cached != nil {
				metrics.SourcingDecisions.WithLabelValues("fallback_cache", "hit").Inc()
				return cached, nil
			}
		}
		metrics.SourcingDecisions.WithLabelValues("origin", "error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrNoCharactersAvailable, originErr)
	}

	cached, err := e.store.SampleCharacter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		metrics.SourcingDecisions.WithLabelValues("cache", "hit").Inc()
		return cached, nil
	}

	// Every cached record is excluded. Last resort: the origin,
	// unconditionally.
	c, originErr := e.fromOrigin(ctx, req.Source, excluded)
	if originErr == nil {
		metrics.SourcingDecisions.WithLabelValues("fallback_origin", "hit").Inc()
		return c, nil
	}
	if isStoreError(originErr) {
		return nil, originErr
	}
	metrics.SourcingDecisions.WithLabelValues("fallback_origin", "error").Inc()
	return nil, fmt.Errorf("%w: %w", ErrNoCharactersAvailable, originErr)
}

// effectiveExclusions merges explicit excludes with the session's voted set.
// A stale or unknown session contributes nothing rather than failing the
// request.
func (e *Engine) effectiveExclusions(ctx context.Context, req Request) ([]string, error) {
	if req.SessionID == "" {
		return req.ExcludeIDs, nil
	}

	votedIDs, err := e.store.GetVotedIDs(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if len(votedIDs) == 0 {
		return req.ExcludeIDs, nil
	}

	seen := make(map[string]struct{}, len(req.ExcludeIDs)+len(votedIDs))
	merged := make([]string, 0, len(req.ExcludeIDs)+len(votedIDs))
	for _, id := range req.ExcludeIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	for _, id := range votedIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged, nil
}

// fromOrigin draws from a live origin and lands the result in the store.
// With active exclusions an existing non-excluded stored record for the
// drawn natural key is preferred, keeping repeat draws of the same origin
// character from surfacing as new rows.
func (e *Engine) fromOrigin(ctx context.Context, source models.Source, excluded []string) (*models.StoredCharacter, error) {
	c, err := e.origins.GetRandom(ctx, source)
	if err != nil {
		return nil, err
	}

	if len(excluded) > 0 {
		existing, err := e.store.GetCharacterByNaturalKey(ctx, c.ExternalID, c.Source)
		if err != nil {
			return nil, &storeError{err}
		}
		if existing != nil && !contains(excluded, existing.ID) {
			return existing, nil
		}
		// Excluded collision falls through to the upsert and is returned
		// anyway: soft exclusion.
	}

	stored, err := e.store.UpsertCharacter(ctx, c)
	if err != nil {
		return nil, &storeError{err}
	}
	return stored, nil
}

// storeError tags durable-store failures on the origin path so they surface
// as-is instead of being mistaken for an origin outage.
type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func isStoreError(err error) bool {
	var se *storeError
	return errors.As(err, &se)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
