// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/votarena/internal/models"
)

// fakeClock is a settable Clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAdapter is a scriptable in-memory Adapter.
type fakeAdapter struct {
	source      models.Source
	nameLookup  bool
	fetchErr    error
	fetches     atomic.Int32
	randomCalls atomic.Int32
}

func (f *fakeAdapter) Source() models.Source    { return f.source }
func (f *fakeAdapter) SupportsNameLookup() bool { return f.nameLookup }

func (f *fakeAdapter) character(id, name string) *models.Character {
	return &models.Character{ExternalID: id, Name: name, Source: f.source, ImageURL: "https://img.example/" + id}
}

func (f *fakeAdapter) FetchRandom(context.Context) (*models.Character, error) {
	f.randomCalls.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.character("1", "Random "+string(f.source)), nil
}

func (f *fakeAdapter) FetchByID(_ context.Context, id string) (*models.Character, error) {
	f.fetches.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.character(id, "ByID "+id), nil
}

func (f *fakeAdapter) FetchByName(_ context.Context, name string) (*models.Character, error) {
	f.fetches.Add(1)
	if !f.nameLookup {
		return nil, ErrNameLookupUnsupported
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.character("7", name), nil
}

func newTestAggregator(ttl time.Duration, clock Clock, rng Rand, adapters ...Adapter) *Aggregator {
	return NewAggregator(adapters, ttl, clock, rng)
}

func TestAggregatorSources(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(time.Hour, SystemClock(), stubRand{},
		&fakeAdapter{source: models.SourcePokemon},
		&fakeAdapter{source: models.SourceRickMorty},
	)

	got := agg.Sources()
	want := []models.Source{models.SourcePokemon, models.SourceRickMorty}
	if len(got) != len(want) {
		t.Fatalf("Sources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sources()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// Callers get a copy; mutating it must not disturb registration order.
	got[0] = models.SourceStarWars
	if again := agg.Sources(); again[0] != models.SourcePokemon {
		t.Errorf("Sources() after mutation = %v, want pokemon first", again)
	}
}

func TestAggregatorGetRandomNamedSource(t *testing.T) {
	t.Parallel()

	healthy := &fakeAdapter{source: models.SourcePokemon}
	down := &fakeAdapter{source: models.SourceRickMorty, fetchErr: &UnavailableError{Source: models.SourceRickMorty, Reason: "down"}}
	agg := newTestAggregator(time.Hour, SystemClock(), stubRand{}, healthy, down)

	c, err := agg.GetRandom(context.Background(), models.SourcePokemon)
	if err != nil {
		t.Fatalf("GetRandom(pokemon) error = %v", err)
	}
	if c.Source != models.SourcePokemon {
		t.Errorf("Source = %q, want pokemon", c.Source)
	}

	// A named source gets exactly one attempt, no failover.
	if _, err := agg.GetRandom(context.Background(), models.SourceRickMorty); !IsUnavailable(err) {
		t.Errorf("GetRandom(rick-morty) error = %v, want UnavailableError", err)
	}
	if got := down.randomCalls.Load(); got != 1 {
		t.Errorf("down origin attempted %d times, want 1", got)
	}
}

func TestAggregatorGetRandomExhaustsBudget(t *testing.T) {
	t.Parallel()

	down := &fakeAdapter{source: models.SourceRickMorty, fetchErr: &UnavailableError{Source: models.SourceRickMorty, Reason: "down"}}
	agg := newTestAggregator(time.Hour, SystemClock(), stubRand{}, down)

	_, err := agg.GetRandom(context.Background(), "")
	if !errors.Is(err, ErrAllOriginsExhausted) {
		t.Fatalf("GetRandom() error = %v, want ErrAllOriginsExhausted", err)
	}
	if !IsUnavailable(err) {
		t.Errorf("exhaustion error should wrap the last origin failure, got %v", err)
	}
	if got := down.randomCalls.Load(); got != randomSourceAttempts {
		t.Errorf("origin attempted %d times, want %d", got, randomSourceAttempts)
	}
}

func TestAggregatorGetRandomRecoversWithinBudget(t *testing.T) {
	t.Parallel()

	// Two sources, uniform picks alternate via the seeded generator. With
	// one origin down, three attempts nearly always land on the healthy one.
	down := &fakeAdapter{source: models.SourceRickMorty, fetchErr: &UnavailableError{Source: models.SourceRickMorty, Reason: "down"}}
	healthy := &fakeAdapter{source: models.SourcePokemon}
	agg := newTestAggregator(time.Hour, SystemClock(), NewRand(42), down, healthy)

	var succeeded bool
	for i := 0; i < 10; i++ {
		if c, err := agg.GetRandom(context.Background(), ""); err == nil {
			succeeded = true
			if c.Source != models.SourcePokemon {
				t.Errorf("Source = %q, want pokemon", c.Source)
			}
			break
		}
	}
	if !succeeded {
		t.Error("no draw succeeded across 10 budgeted attempts with a healthy origin present")
	}
}

func TestAggregatorGetByIDMemoized(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	a := &fakeAdapter{source: models.SourcePokemon, nameLookup: true}
	agg := newTestAggregator(time.Hour, clock, stubRand{}, a)

	for i := 0; i < 3; i++ {
		if _, err := agg.GetByID(context.Background(), models.SourcePokemon, "25"); err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
	}
	if got := a.fetches.Load(); got != 1 {
		t.Errorf("origin fetched %d times within TTL, want 1", got)
	}

	// Entries expire lazily once the TTL elapses.
	clock.Advance(time.Hour + time.Second)
	if _, err := agg.GetByID(context.Background(), models.SourcePokemon, "25"); err != nil {
		t.Fatalf("GetByID() after expiry error = %v", err)
	}
	if got := a.fetches.Load(); got != 2 {
		t.Errorf("origin fetched %d times after expiry, want 2", got)
	}
}

func TestAggregatorGetByNameCaseInsensitiveKey(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{source: models.SourcePokemon, nameLookup: true}
	agg := newTestAggregator(time.Hour, SystemClock(), stubRand{}, a)

	if _, err := agg.GetByName(context.Background(), models.SourcePokemon, "Pikachu"); err != nil {
		t.Fatalf("GetByName(Pikachu) error = %v", err)
	}
	if _, err := agg.GetByName(context.Background(), models.SourcePokemon, "PIKACHU"); err != nil {
		t.Fatalf("GetByName(PIKACHU) error = %v", err)
	}
	if got := a.fetches.Load(); got != 1 {
		t.Errorf("origin fetched %d times for case variants, want 1", got)
	}
}

func TestAggregatorGetByNameUnsupportedOrigin(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{source: models.SourceRickMorty, nameLookup: false}
	agg := newTestAggregator(time.Hour, SystemClock(), stubRand{}, a)

	_, err := agg.GetByName(context.Background(), models.SourceRickMorty, "Rick")
	if !errors.Is(err, ErrNameLookupUnsupported) {
		t.Errorf("GetByName() error = %v, want ErrNameLookupUnsupported", err)
	}
	if got := a.fetches.Load(); got != 0 {
		t.Errorf("origin fetched %d times for unsupported lookup, want 0", got)
	}
}

func TestAggregatorUnknownSource(t *testing.T) {
	t.Parallel()

	agg := newTestAggregator(time.Hour, SystemClock(), stubRand{})
	if _, err := agg.GetByID(context.Background(), models.SourceStarWars, "1"); !IsUnavailable(err) {
		t.Errorf("GetByID() error = %v, want UnavailableError", err)
	}
}

func TestBreakerAdapterPassesNotFound(t *testing.T) {
	t.Parallel()

	inner := &fakeAdapter{source: models.SourcePokemon, nameLookup: true, fetchErr: &NotFoundError{Source: models.SourcePokemon, Key: "x"}}
	b := NewBreakerAdapter(inner)

	// Well past the trip threshold; not-found answers must never open the
	// circuit because the origin is answering.
	for i := 0; i < 30; i++ {
		if _, err := b.FetchByID(context.Background(), "x"); !IsNotFound(err) {
			t.Fatalf("attempt %d: error = %v, want NotFoundError", i, err)
		}
	}
}

func TestBreakerAdapterOpensOnUnavailable(t *testing.T) {
	t.Parallel()

	inner := &fakeAdapter{source: models.SourceRickMorty, fetchErr: &UnavailableError{Source: models.SourceRickMorty, Reason: "down"}}
	b := NewBreakerAdapter(inner)

	var sawRejection bool
	for i := 0; i < 30; i++ {
		_, err := b.FetchRandom(context.Background())
		if err == nil {
			t.Fatal("expected failure")
		}
		var ua *UnavailableError
		if errors.As(err, &ua) && ua.Reason == "circuit breaker open" {
			sawRejection = true
			break
		}
	}
	if !sawRejection {
		t.Error("breaker never opened under sustained failure")
	}

	// Once open, the underlying origin stops being consulted.
	before := inner.randomCalls.Load()
	if _, err := b.FetchRandom(context.Background()); !IsUnavailable(err) {
		t.Errorf("error = %v, want UnavailableError", err)
	}
	if inner.randomCalls.Load() != before {
		t.Error("open breaker still consulted the origin")
	}
}
