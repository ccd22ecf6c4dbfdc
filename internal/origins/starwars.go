// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// starWarsIDPattern extracts the numeric id from a record's canonical URL;
// the provider does not expose ids as a field.
var starWarsIDPattern = regexp.MustCompile(`people/(\d+)/?`)

// starWarsPage is one page of the people listing.
type starWarsPage struct {
	Next    *string `json:"next"`
	Results []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"results"`
}

// StarWarsAdapter is the SnapshotBacked origin. The provider has no random or
// by-id convenience endpoints worth paging against per request, so the whole
// people catalog is loaded once into an immutable in-memory snapshot and all
// lookups are served from it. A failed load leaves the snapshot empty and the
// next call retries; a successful load is final for the process lifetime.
type StarWarsAdapter struct {
	baseURL         string
	imageURLPattern string
	client          *originClient
	rng             Rand
	snapshotTimeout time.Duration

	mu       sync.RWMutex
	snapshot []models.Character
}

// NewStarWarsAdapter builds the space-opera adapter. snapshotTimeout bounds
// the full multi-page catalog load, independent of the per-call timeout used
// by other adapters.
func NewStarWarsAdapter(baseURL string, client *originClient, rng Rand, snapshotTimeout time.Duration) *StarWarsAdapter {
	return &StarWarsAdapter{
		baseURL:         baseURL,
		imageURLPattern: "https://starwars-visualguide.com/assets/img/characters/%s.jpg",
		client:          client,
		rng:             rng,
		snapshotTimeout: snapshotTimeout,
	}
}

// Source implements Adapter.
func (a *StarWarsAdapter) Source() models.Source { return models.SourceStarWars }

// SupportsNameLookup implements Adapter.
func (a *StarWarsAdapter) SupportsNameLookup() bool { return true }

// FetchRandom implements Adapter.
func (a *StarWarsAdapter) FetchRandom(ctx context.Context) (*models.Character, error) {
	snap, err := a.catalog(ctx)
	if err != nil {
		return nil, err
	}
	c := snap[a.rng.Intn(len(snap))]
	return &c, nil
}

// FetchByID implements Adapter.
func (a *StarWarsAdapter) FetchByID(ctx context.Context, id string) (*models.Character, error) {
	snap, err := a.catalog(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snap {
		if snap[i].ExternalID == id {
			c := snap[i]
			return &c, nil
		}
	}
	return nil, &NotFoundError{Source: a.Source(), Key: id}
}

// FetchByName implements Adapter. Exact case-insensitive match wins; a
// single-token substring match is accepted as a fallback so "luke" resolves.
func (a *StarWarsAdapter) FetchByName(ctx context.Context, name string) (*models.Character, error) {
	snap, err := a.catalog(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range snap {
		if strings.ToLower(snap[i].Name) == needle {
			c := snap[i]
			return &c, nil
		}
	}
	for i := range snap {
		if strings.Contains(strings.ToLower(snap[i].Name), needle) {
			c := snap[i]
			return &c, nil
		}
	}
	return nil, &NotFoundError{Source: a.Source(), Key: name}
}

// Warm loads the catalog eagerly. Called from the supervisor at startup so
// the first user request does not pay the multi-page load.
func (a *StarWarsAdapter) Warm(ctx context.Context) error {
	_, err := a.catalog(ctx)
	return err
}

// catalog returns the loaded snapshot, loading it on first use. Concurrent
// first callers serialize on the write lock; losers observe the winner's
// snapshot and return without a second load.
func (a *StarWarsAdapter) catalog(ctx context.Context) ([]models.Character, error) {
	a.mu.RLock()
	snap := a.snapshot
	a.mu.RUnlock()
	if len(snap) > 0 {
		return snap, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.snapshot) > 0 {
		return a.snapshot, nil
	}

	loaded, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	a.snapshot = loaded
	metrics.SnapshotSize.WithLabelValues(string(a.Source())).Set(float64(len(loaded)))
	logging.Info().
		Str("source", string(a.Source())).
		Int("characters", len(loaded)).
		Msg("origin catalog snapshot loaded")
	return a.snapshot, nil
}

// load pages through the people listing until the provider reports no next
// page. Any page failure aborts the whole load; partial snapshots are never
// installed.
func (a *StarWarsAdapter) load(ctx context.Context) ([]models.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, a.snapshotTimeout)
	defer cancel()

	var out []models.Character
	url := a.baseURL + "/people"
	for url != "" {
		var page starWarsPage
		if err := a.client.getJSON(ctx, a.Source(), url, "catalog", &page); err != nil {
			return nil, err
		}

		for _, r := range page.Results {
			m := starWarsIDPattern.FindStringSubmatch(r.URL)
			if m == nil {
				logging.Warn().
					Str("source", string(a.Source())).
					Str("url", r.URL).
					Msg("record url missing numeric id, skipping")
				continue
			}
			out = append(out, models.Character{
				ExternalID: m[1],
				Name:       r.Name,
				Source:     models.SourceStarWars,
				ImageURL:   fmt.Sprintf(a.imageURLPattern, m[1]),
			})
		}

		if page.Next == nil {
			break
		}
		url = *page.Next
	}

	if len(out) == 0 {
		return nil, &UnavailableError{Source: a.Source(), Reason: "catalog load produced no records"}
	}
	return out, nil
}
