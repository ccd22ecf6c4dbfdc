// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// randomSourceAttempts is the fixed retry budget for source-unspecified
// random draws. Each attempt picks a source uniformly at random, with
// replacement; a draw against a downed origin consumes an attempt.
const randomSourceAttempts = 3

// Aggregator fronts all registered origin adapters behind one API. Point
// lookups (by id, by name) are memoized with a TTL so repeated hits on the
// same character do not re-fetch from the provider; random draws are never
// memoized.
type Aggregator struct {
	adapters map[models.Source]Adapter
	sources  []models.Source
	cache    *memoCache
	rng      Rand
}

// NewAggregator builds an aggregator over the given adapters. The iteration
// order of sources for random draws follows the order of the adapters slice.
func NewAggregator(adapters []Adapter, cacheTTL time.Duration, clock Clock, rng Rand) *Aggregator {
	byCat := make(map[models.Source]Adapter, len(adapters))
	sources := make([]models.Source, 0, len(adapters))
	for _, a := range adapters {
		byCat[a.Source()] = a
		sources = append(sources, a.Source())
	}
	return &Aggregator{
		adapters: byCat,
		sources:  sources,
		cache:    newMemoCache(cacheTTL, clock),
		rng:      rng,
	}
}

// Sources lists the registered origins in registration order.
func (g *Aggregator) Sources() []models.Source {
	out := make([]models.Source, len(g.sources))
	copy(out, g.sources)
	return out
}

// adapter resolves a source or fails with an UnavailableError for unknown
// registrations.
func (g *Aggregator) adapter(source models.Source) (Adapter, error) {
	a, ok := g.adapters[source]
	if !ok {
		return nil, &UnavailableError{Source: source, Reason: "no adapter registered"}
	}
	return a, nil
}

// GetRandom draws a random character. With a named source it is a single
// attempt against that origin. With source == "" it spends up to
// randomSourceAttempts uniform draws across all origins and returns
// ErrAllOriginsExhausted once the budget is gone.
func (g *Aggregator) GetRandom(ctx context.Context, source models.Source) (*models.Character, error) {
	if source != "" {
		a, err := g.adapter(source)
		if err != nil {
			return nil, err
		}
		return a.FetchRandom(ctx)
	}

	var lastErr error
	for attempt := 0; attempt < randomSourceAttempts; attempt++ {
		picked := g.sources[g.rng.Intn(len(g.sources))]
		c, err := g.adapters[picked].FetchRandom(ctx)
		if err == nil {
			return c, nil
		}
		lastErr = err
		logging.Debug().
			Err(err).
			Str("source", string(picked)).
			Int("attempt", attempt+1).
			Msg("random draw failed, retrying on another origin")
	}

	return nil, fmt.Errorf("%w: %w", ErrAllOriginsExhausted, lastErr)
}

// GetByID resolves one character by origin-assigned id, memoized.
func (g *Aggregator) GetByID(ctx context.Context, source models.Source, id string) (*models.Character, error) {
	a, err := g.adapter(source)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s:byId:%s", source, id)
	if c, ok := g.cache.get(key); ok {
		metrics.CacheHits.WithLabelValues("by_id").Inc()
		return c, nil
	}
	metrics.CacheMisses.WithLabelValues("by_id").Inc()

	c, err := a.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g.cache.set(key, c)
	return c, nil
}

// GetByName resolves one character by display name, memoized under the
// lowercased name. Origins without name search fail fast with
// ErrNameLookupUnsupported.
func (g *Aggregator) GetByName(ctx context.Context, source models.Source, name string) (*models.Character, error) {
	a, err := g.adapter(source)
	if err != nil {
		return nil, err
	}
	if !a.SupportsNameLookup() {
		return nil, fmt.Errorf("%s lookup of %q: %w", source, name, ErrNameLookupUnsupported)
	}

	key := fmt.Sprintf("%s:byName:%s", source, strings.ToLower(name))
	if c, ok := g.cache.get(key); ok {
		metrics.CacheHits.WithLabelValues("by_name").Inc()
		return c, nil
	}
	metrics.CacheMisses.WithLabelValues("by_name").Inc()

	c, err := a.FetchByName(ctx, name)
	if err != nil {
		return nil, err
	}
	g.cache.set(key, c)
	return c, nil
}
