// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package models defines the shared data types exchanged between the origin
// adapters, the character store, the sourcing engine, and the HTTP API.
package models

import (
	"fmt"
	"time"
)

// Source identifies one external character data provider.
type Source string

// The fixed origin catalog. There is no dynamic registration: every component
// that switches on Source handles exactly these four values.
const (
	SourceRickMorty Source = "rick-morty"
	SourcePokemon   Source = "pokemon"
	SourceSuperhero Source = "superhero"
	SourceStarWars  Source = "star-wars"
)

// AllSources lists every known origin in a stable order.
var AllSources = []Source{SourceRickMorty, SourcePokemon, SourceSuperhero, SourceStarWars}

// ParseSource validates a raw source string. The empty string is rejected;
// callers that treat "no source" as "any source" check for emptiness first.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	for _, known := range AllSources {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", raw)
}

// Character is the normalized unit of exchange between every component.
// (ExternalID, Source) is the natural key: the durable identity of a character
// independent of any local storage id.
type Character struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Source     Source `json:"source"`
	ImageURL   string `json:"imageUrl"`
}

// NaturalKey returns the provider-independent identity of the character.
func (c *Character) NaturalKey() string {
	return string(c.Source) + ":" + c.ExternalID
}

// StoredCharacter is a Character that has been persisted by the character
// store. ID is store-assigned and opaque. CreatedAt is set on first upsert and
// never changes; UpdatedAt moves on every later upsert of the same natural key.
type StoredCharacter struct {
	Character

	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
