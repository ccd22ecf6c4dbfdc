// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"github.com/tomtom215/votarena/internal/config"
	"github.com/tomtom215/votarena/internal/logging"
)

// BuildAdapters constructs the full adapter set from configuration, each
// wrapped in its own circuit breaker. The star-wars adapter is returned
// separately as well so the supervisor can schedule its catalog warm-up.
func BuildAdapters(cfg *config.OriginsConfig, rng Rand) (adapters []Adapter, starWars *StarWarsAdapter) {
	client := newOriginClient(cfg.Timeout, cfg.RequestsPerSecond, cfg.Burst)

	if cfg.Superhero.Token == "" {
		logging.Warn().Msg("superhero origin token not configured, origin will report unavailable")
	}

	// The catalog load spans many pages; its client is bounded by the
	// snapshot timeout, not the per-call timeout the other adapters share.
	snapshotClient := newOriginClient(cfg.StarWars.SnapshotTimeout, cfg.RequestsPerSecond, cfg.Burst)
	starWars = NewStarWarsAdapter(cfg.StarWars.URL, snapshotClient, rng, cfg.StarWars.SnapshotTimeout)

	adapters = []Adapter{
		NewBreakerAdapter(NewRickMortyAdapter(cfg.RickMorty.URL, client, rng)),
		NewBreakerAdapter(NewPokemonAdapter(cfg.Pokemon.URL, client, rng)),
		NewBreakerAdapter(NewSuperheroAdapter(cfg.Superhero.URL, cfg.Superhero.Token, client, rng)),
		NewBreakerAdapter(starWars),
	}
	return adapters, starWars
}
