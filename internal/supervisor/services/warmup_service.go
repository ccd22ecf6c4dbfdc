// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package services

import (
	"context"
	"time"

	"github.com/tomtom215/votarena/internal/logging"
)

// Warmer matches an origin's one-time catalog load.
type Warmer interface {
	Warm(ctx context.Context) error
}

// WarmupService loads an origin's catalog snapshot at startup. Failures are
// retried with a fixed backoff so a slow upstream delays warm-up instead of
// crash-looping the data layer; draws against the origin stay degraded until
// the snapshot lands. After a successful load the service idles until
// shutdown.
type WarmupService struct {
	warmer  Warmer
	backoff time.Duration
	name    string
}

// NewWarmupService creates the snapshot warmup service.
func NewWarmupService(name string, warmer Warmer, backoff time.Duration) *WarmupService {
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	return &WarmupService{
		warmer:  warmer,
		backoff: backoff,
		name:    name,
	}
}

// Serve implements suture.Service.
func (s *WarmupService) Serve(ctx context.Context) error {
	for {
		err := s.warmer.Warm(ctx)
		if err == nil {
			logging.Info().Str("service", s.name).Msg("origin snapshot warmed")
			<-ctx.Done()
			return ctx.Err()
		}

		logging.Warn().Err(err).Str("service", s.name).
			Dur("retry_in", s.backoff).Msg("origin snapshot warmup failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *WarmupService) String() string {
	return s.name
}
