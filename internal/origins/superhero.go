// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomtom215/votarena/internal/models"
)

// superheroCount is the fixed catalog size of the comic-hero provider.
const superheroCount = 731

// superheroResponse is the per-character payload. The provider signals
// failures in-band with a 200 status and Response=="error".
type superheroResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    struct {
		URL string `json:"url"`
	} `json:"image"`
}

// SuperheroAdapter serves the comic-hero origin. Access is token-gated: the
// credential is a path segment, not a header. A missing token fails every
// operation immediately without network I/O.
type SuperheroAdapter struct {
	baseURL string
	token   string
	client  *originClient
	rng     Rand
}

// NewSuperheroAdapter builds the comic-hero adapter. token may be empty, in
// which case all fetches report the origin unavailable.
func NewSuperheroAdapter(baseURL, token string, client *originClient, rng Rand) *SuperheroAdapter {
	return &SuperheroAdapter{baseURL: baseURL, token: token, client: client, rng: rng}
}

// Source implements Adapter.
func (a *SuperheroAdapter) Source() models.Source { return models.SourceSuperhero }

// SupportsNameLookup implements Adapter. The provider's search endpoint
// returns fuzzy multi-result matches, not the exact lookup callers need.
func (a *SuperheroAdapter) SupportsNameLookup() bool { return false }

// FetchRandom implements Adapter.
func (a *SuperheroAdapter) FetchRandom(ctx context.Context) (*models.Character, error) {
	if a.token == "" {
		return nil, a.missingToken()
	}
	id := a.rng.Intn(superheroCount) + 1
	return a.FetchByID(ctx, strconv.Itoa(id))
}

// FetchByID implements Adapter.
func (a *SuperheroAdapter) FetchByID(ctx context.Context, id string) (*models.Character, error) {
	if a.token == "" {
		return nil, a.missingToken()
	}

	var dto superheroResponse
	url := fmt.Sprintf("%s/%s/%s", a.baseURL, a.token, id)
	if err := a.client.getJSON(ctx, a.Source(), url, id, &dto); err != nil {
		return nil, err
	}
	if dto.Response == "error" {
		return nil, &NotFoundError{Source: a.Source(), Key: id}
	}

	return &models.Character{
		ExternalID: dto.ID,
		Name:       dto.Name,
		Source:     models.SourceSuperhero,
		ImageURL:   dto.Image.URL,
	}, nil
}

// FetchByName implements Adapter.
func (a *SuperheroAdapter) FetchByName(_ context.Context, name string) (*models.Character, error) {
	return nil, fmt.Errorf("%s lookup of %q: %w", a.Source(), name, ErrNameLookupUnsupported)
}

func (a *SuperheroAdapter) missingToken() error {
	return &UnavailableError{Source: a.Source(), Reason: "SUPERHERO_API_TOKEN not configured"}
}
