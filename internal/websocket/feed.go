// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package websocket

import (
	"context"

	"github.com/tomtom215/votarena/internal/events"
	"github.com/tomtom215/votarena/internal/logging"
)

// VoteFeed bridges the event bus to the hub: every vote.recorded message is
// decoded and broadcast to connected clients.
type VoteFeed struct {
	bus *events.Bus
	hub *Hub
}

// NewVoteFeed builds the bridge.
func NewVoteFeed(bus *events.Bus, hub *Hub) *VoteFeed {
	return &VoteFeed{bus: bus, hub: hub}
}

// Serve consumes vote events until ctx is canceled. Designed for suture
// supervision; a decode failure is logged and the message acked, since
// redelivery cannot fix a malformed payload.
func (f *VoteFeed) Serve(ctx context.Context) error {
	ch, err := f.bus.SubscribeVotes(ctx)
	if err != nil {
		return err
	}

	logging.Info().Msg("vote feed started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "vote-feed").Msg("vote feed stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				logging.Info().Str("component", "vote-feed").Msg("vote feed subscription closed")
				return ctx.Err()
			}

			event, err := events.DecodeVote(msg)
			if err != nil {
				logging.Error().Err(err).Msg("dropping undecodable vote event")
				msg.Ack()
				continue
			}
			f.hub.BroadcastVote(event)
			msg.Ack()
		}
	}
}
