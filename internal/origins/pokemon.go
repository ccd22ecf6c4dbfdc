// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/votarena/internal/models"
)

// firstGenPokemonCount bounds random draws to the original 151 creatures;
// later generations have sparse artwork upstream.
const firstGenPokemonCount = 151

// pokemonResponse is the subset of the creature payload we consume.
type pokemonResponse struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Other        struct {
			OfficialArtwork struct {
				FrontDefault string `json:"front_default"`
			} `json:"official-artwork"`
		} `json:"other"`
	} `json:"sprites"`
}

// PokemonAdapter serves the creature-collection origin. Population is a fixed
// constant and the endpoint accepts ids and lowercased names interchangeably,
// which makes it the one NetworkPerCall origin with real name lookup.
type PokemonAdapter struct {
	baseURL string
	client  *originClient
	rng     Rand
}

// NewPokemonAdapter builds the creature-collection adapter.
func NewPokemonAdapter(baseURL string, client *originClient, rng Rand) *PokemonAdapter {
	return &PokemonAdapter{baseURL: baseURL, client: client, rng: rng}
}

// Source implements Adapter.
func (a *PokemonAdapter) Source() models.Source { return models.SourcePokemon }

// SupportsNameLookup implements Adapter.
func (a *PokemonAdapter) SupportsNameLookup() bool { return true }

// FetchRandom implements Adapter.
func (a *PokemonAdapter) FetchRandom(ctx context.Context) (*models.Character, error) {
	id := a.rng.Intn(firstGenPokemonCount) + 1
	return a.FetchByID(ctx, strconv.Itoa(id))
}

// FetchByID implements Adapter.
func (a *PokemonAdapter) FetchByID(ctx context.Context, id string) (*models.Character, error) {
	return a.fetch(ctx, id)
}

// FetchByName implements Adapter. The upstream endpoint requires lowercase
// names.
func (a *PokemonAdapter) FetchByName(ctx context.Context, name string) (*models.Character, error) {
	return a.fetch(ctx, strings.ToLower(name))
}

func (a *PokemonAdapter) fetch(ctx context.Context, idOrName string) (*models.Character, error) {
	var dto pokemonResponse
	url := fmt.Sprintf("%s/pokemon/%s", a.baseURL, idOrName)
	if err := a.client.getJSON(ctx, a.Source(), url, idOrName, &dto); err != nil {
		return nil, err
	}

	imageURL := dto.Sprites.Other.OfficialArtwork.FrontDefault
	if imageURL == "" {
		imageURL = dto.Sprites.FrontDefault
	}

	return &models.Character{
		ExternalID: strconv.Itoa(dto.ID),
		Name:       capitalize(dto.Name),
		Source:     models.SourcePokemon,
		ImageURL:   imageURL,
	}, nil
}

// capitalize upper-cases the first byte; upstream names are ASCII lowercase.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
