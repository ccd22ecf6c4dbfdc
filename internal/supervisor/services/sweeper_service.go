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

// SessionSweeper matches the store's expired-session removal method.
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context) (int, error)
}

// SweeperService periodically removes expired voting sessions. A sweep
// failure is logged and retried on the next tick; only context cancellation
// stops the service.
type SweeperService struct {
	store    SessionSweeper
	interval time.Duration
	name     string
}

// NewSweeperService creates the session sweeper.
func NewSweeperService(store SessionSweeper, interval time.Duration) *SweeperService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweeperService{
		store:    store,
		interval: interval,
		name:     "session-sweeper",
	}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			swept, err := s.store.SweepExpiredSessions(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("session sweep failed")
				continue
			}
			if swept > 0 {
				logging.Info().Int("sessions", swept).Msg("swept expired voting sessions")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *SweeperService) String() string {
	return s.name
}
