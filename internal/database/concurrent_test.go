// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/tomtom215/votarena/internal/models"
)

// TestConcurrent_SameNaturalKeyUpsert races many upserts of one
// (external_id, source) pair. Exactly one row may exist afterwards and every
// caller must see the same stored id.
// NOT parallel - tests concurrency explicitly.
func TestConcurrent_SameNaturalKeyUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const numGoroutines = 16

	var wg sync.WaitGroup
	errCh := make(chan error, numGoroutines)
	idCh := make(chan string, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := db.UpsertCharacter(ctx, testCharacter("25", models.SourcePokemon, "Pikachu"))
			if err != nil {
				errCh <- err
				return
			}
			idCh <- stored.ID
		}()
	}

	wg.Wait()
	close(errCh)
	close(idCh)

	for err := range errCh {
		t.Errorf("UpsertCharacter() error = %v", err)
	}

	var canonical string
	for id := range idCh {
		if canonical == "" {
			canonical = id
			continue
		}
		if id != canonical {
			t.Errorf("upsert returned id %s, want %s", id, canonical)
		}
	}

	count, err := db.CountCharacters(ctx, CharacterFilter{})
	if err != nil {
		t.Fatalf("CountCharacters() error = %v", err)
	}
	if count != 1 {
		t.Errorf("character count = %d, want 1", count)
	}
}

// TestConcurrent_DistinctKeyUpsert upserts distinct natural keys in parallel
// and expects one row per key.
// NOT parallel - tests concurrency explicitly.
func TestConcurrent_DistinctKeyUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const numGoroutines = 16

	var wg sync.WaitGroup
	errCh := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("%d", n)
			if _, err := db.UpsertCharacter(ctx, testCharacter(id, models.SourceRickMorty, "Citizen "+id)); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("UpsertCharacter() error = %v", err)
	}

	count, err := db.CountCharacters(ctx, CharacterFilter{})
	if err != nil {
		t.Fatalf("CountCharacters() error = %v", err)
	}
	if count != numGoroutines {
		t.Errorf("character count = %d, want %d", count, numGoroutines)
	}
}
