// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package origins

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/metrics"
	"github.com/tomtom215/votarena/internal/models"
)

// BreakerAdapter wraps an Adapter with a circuit breaker so a failing origin
// is cut off instead of burning the sourcing engine's retry budget on it.
//
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
//
// A NotFoundError counts as success: the origin answered, the record just
// does not exist. Only availability failures feed the trip ratio.
type BreakerAdapter struct {
	inner Adapter
	cb    *gobreaker.CircuitBreaker[*models.Character]
	name  string
}

// NewBreakerAdapter wraps inner with circuit breaker protection.
func NewBreakerAdapter(inner Adapter) *BreakerAdapter {
	name := "origin-" + string(inner.Source())

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[*models.Character](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || IsNotFound(err) || errors.Is(err, ErrNameLookupUnsupported)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerAdapter{inner: inner, cb: cb, name: name}
}

// Source implements Adapter.
func (b *BreakerAdapter) Source() models.Source { return b.inner.Source() }

// SupportsNameLookup implements Adapter.
func (b *BreakerAdapter) SupportsNameLookup() bool { return b.inner.SupportsNameLookup() }

// FetchRandom implements Adapter.
func (b *BreakerAdapter) FetchRandom(ctx context.Context) (*models.Character, error) {
	return b.execute(func() (*models.Character, error) {
		return b.inner.FetchRandom(ctx)
	})
}

// FetchByID implements Adapter.
func (b *BreakerAdapter) FetchByID(ctx context.Context, id string) (*models.Character, error) {
	return b.execute(func() (*models.Character, error) {
		return b.inner.FetchByID(ctx, id)
	})
}

// FetchByName implements Adapter.
func (b *BreakerAdapter) FetchByName(ctx context.Context, name string) (*models.Character, error) {
	return b.execute(func() (*models.Character, error) {
		return b.inner.FetchByName(ctx, name)
	})
}

// execute runs fn through the breaker and maps breaker rejections into the
// origin error taxonomy so callers see a regular UnavailableError.
func (b *BreakerAdapter) execute(fn func() (*models.Character, error)) (*models.Character, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, &UnavailableError{Source: b.Source(), Reason: "circuit breaker open", Err: err}
		case IsNotFound(err), errors.Is(err, ErrNameLookupUnsupported):
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
			return nil, err
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
			return nil, err
		}
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
