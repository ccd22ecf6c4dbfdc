// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package origins contains one adapter per external character provider plus
// the aggregator that fronts them all.
//
// Adapters come in two variants:
//   - NetworkPerCall: every operation is a bounded HTTP round trip
//     (rick-morty, pokemon, superhero)
//   - SnapshotBacked: a one-time bulk catalog load at startup (or lazily on
//     first use), after which all operations are served from the immutable
//     in-memory snapshot (star-wars)
//
// Every adapter owns its provider's quirks: population sizing, random index
// selection, name search support, credential handling. Errors are classified
// into NotFoundError and UnavailableError so the aggregator and the sourcing
// engine can tell "this id does not exist" from "this origin is down".
package origins

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tomtom215/votarena/internal/models"
)

// Adapter is the per-origin contract. Implementations are safe for
// concurrent use.
type Adapter interface {
	// Source identifies the origin this adapter serves.
	Source() models.Source

	// FetchRandom resolves a uniformly random identifier within the origin's
	// known population.
	FetchRandom(ctx context.Context) (*models.Character, error)

	// FetchByID resolves one origin-assigned identifier.
	FetchByID(ctx context.Context, id string) (*models.Character, error)

	// FetchByName resolves a character by display name, case-insensitive.
	// Origins without name search return ErrNameLookupUnsupported; callers
	// can avoid the call entirely via SupportsNameLookup.
	FetchByName(ctx context.Context, name string) (*models.Character, error)

	// SupportsNameLookup reports whether FetchByName is a real capability of
	// this origin.
	SupportsNameLookup() bool
}

// NotFoundError reports that the origin has no record for the requested
// id or name.
type NotFoundError struct {
	Source models.Source
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("character %q not found at origin %s", e.Key, e.Source)
}

// UnavailableError reports that an origin could not be consulted: timeout,
// transport failure, upstream error, or missing credential.
type UnavailableError struct {
	Source models.Source
	Reason string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("origin %s unavailable: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("origin %s unavailable: %s", e.Source, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// ErrAllOriginsExhausted is returned by the aggregator when the random-source
// retry budget is spent without a successful draw.
var ErrAllOriginsExhausted = errors.New("all origins exhausted")

// ErrNameLookupUnsupported is returned by adapters whose origin has no name
// search capability.
var ErrNameLookupUnsupported = errors.New("name lookup not supported by origin")

// IsNotFound reports whether err is an origin not-found.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUnavailable reports whether err is an origin availability failure.
func IsUnavailable(err error) bool {
	var ua *UnavailableError
	return errors.As(err, &ua)
}

// Rand is the randomness source injected into adapters, the aggregator, and
// the sourcing engine. Injecting it keeps random-index selection and the
// hybrid fetch coin flip deterministic under test.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// NewRand returns a concurrency-safe seeded Rand.
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))} //nolint:gosec // not used for security
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Clock abstracts wall-clock reads so TTL behavior is testable without
// sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
