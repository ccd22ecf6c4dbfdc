// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package events is the in-process event bus carrying vote events from the
// vote service to live subscribers (the WebSocket hub). Watermill's gochannel
// Pub/Sub keeps the wiring broker-free for a single-process deployment while
// leaving the publisher/subscriber seam in place.
package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/models"
)

// TopicVoteRecorded carries one message per ledgered vote.
const TopicVoteRecorded = "vote.recorded"

// Bus wraps the gochannel Pub/Sub.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus builds the in-process bus. Buffering keeps slow subscribers from
// stalling vote requests.
func NewBus() *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, zerologWatermillAdapter{})
	return &Bus{pubsub: pubsub}
}

// PublishVote emits one vote event.
func (b *Bus) PublishVote(_ context.Context, event models.VoteEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal vote event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("source", string(event.Source))
	msg.Metadata.Set("vote_type", string(event.VoteType))

	if err := b.pubsub.Publish(TopicVoteRecorded, msg); err != nil {
		return fmt.Errorf("publish vote event: %w", err)
	}
	return nil
}

// SubscribeVotes opens a subscription on the vote topic. The channel closes
// when ctx is done or the bus shuts down.
func (b *Bus) SubscribeVotes(ctx context.Context) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, TopicVoteRecorded)
	if err != nil {
		return nil, fmt.Errorf("subscribe vote events: %w", err)
	}
	return ch, nil
}

// DecodeVote unmarshals a bus message back into its event.
func DecodeVote(msg *message.Message) (*models.VoteEvent, error) {
	var event models.VoteEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode vote event %s: %w", msg.UUID, err)
	}
	return &event, nil
}

// Close shuts the bus down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// zerologWatermillAdapter routes Watermill's internal logging through the
// application logger.
type zerologWatermillAdapter struct {
	fields watermill.LogFields
}

func (a zerologWatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.event(logging.Error(), fields).Err(err).Msg(msg)
}

func (a zerologWatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.event(logging.Debug(), fields).Msg(msg) // watermill info is noise at our info level
}

func (a zerologWatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.event(logging.Debug(), fields).Msg(msg)
}

func (a zerologWatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.event(logging.Debug(), fields).Msg(msg)
}

func (a zerologWatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return zerologWatermillAdapter{fields: a.fields.Add(fields)}
}

func (a zerologWatermillAdapter) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range a.fields {
		e = e.Interface(k, v)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
