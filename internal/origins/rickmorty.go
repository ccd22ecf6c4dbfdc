// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/models"
)

// rickMortyListResponse is the paginated character listing; only the total
// count is consumed here.
type rickMortyListResponse struct {
	Info struct {
		Count int `json:"count"`
	} `json:"info"`
}

// rickMortyCharacter is the per-character payload.
type rickMortyCharacter struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// RickMortyAdapter serves the animated-series origin. The population size is
// derived from the first listing call and memoized for the process lifetime;
// the upstream catalog only ever grows, so a stale count merely narrows the
// random range slightly.
type RickMortyAdapter struct {
	baseURL string
	client  *originClient
	rng     Rand

	mu    sync.Mutex
	count int
}

// NewRickMortyAdapter builds the animated-series adapter.
func NewRickMortyAdapter(baseURL string, client *originClient, rng Rand) *RickMortyAdapter {
	return &RickMortyAdapter{baseURL: baseURL, client: client, rng: rng}
}

// Source implements Adapter.
func (a *RickMortyAdapter) Source() models.Source { return models.SourceRickMorty }

// SupportsNameLookup implements Adapter. The provider's filter search is
// paginated fuzzy matching, not the exact lookup the aggregator cache needs.
func (a *RickMortyAdapter) SupportsNameLookup() bool { return false }

// FetchRandom implements Adapter.
func (a *RickMortyAdapter) FetchRandom(ctx context.Context) (*models.Character, error) {
	count, err := a.population(ctx)
	if err != nil {
		return nil, err
	}
	id := a.rng.Intn(count) + 1
	return a.FetchByID(ctx, strconv.Itoa(id))
}

// FetchByID implements Adapter.
func (a *RickMortyAdapter) FetchByID(ctx context.Context, id string) (*models.Character, error) {
	var dto rickMortyCharacter
	url := fmt.Sprintf("%s/character/%s", a.baseURL, id)
	if err := a.client.getJSON(ctx, a.Source(), url, id, &dto); err != nil {
		return nil, err
	}
	return &models.Character{
		ExternalID: strconv.Itoa(dto.ID),
		Name:       dto.Name,
		Source:     models.SourceRickMorty,
		ImageURL:   dto.Image,
	}, nil
}

// FetchByName implements Adapter.
func (a *RickMortyAdapter) FetchByName(_ context.Context, name string) (*models.Character, error) {
	return nil, fmt.Errorf("%s lookup of %q: %w", a.Source(), name, ErrNameLookupUnsupported)
}

// population returns the memoized catalog size, deriving it from the first
// page of the character listing on first use.
func (a *RickMortyAdapter) population(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count > 0 {
		return a.count, nil
	}

	var list rickMortyListResponse
	url := a.baseURL + "/character"
	if err := a.client.getJSON(ctx, a.Source(), url, "character-count", &list); err != nil {
		return 0, err
	}
	if list.Info.Count <= 0 {
		return 0, &UnavailableError{Source: a.Source(), Reason: "origin reported empty catalog"}
	}

	a.count = list.Info.Count
	logging.Debug().Int("count", a.count).Str("source", string(a.Source())).Msg("origin population derived")
	return a.count, nil
}
