// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/votarena/internal/events"
	"github.com/tomtom215/votarena/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("hub did not stop")
		}
	})
	return hub, cancel
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.GetClientCount(), want)
}

func TestHubRegisterAndBroadcast(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	hub.Register <- client
	waitForClients(t, hub, 1)

	event := &models.VoteEvent{VoteID: "v1", CharacterName: "Pikachu", VoteType: models.VoteLike}
	hub.BroadcastVote(event)

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeVote {
			t.Errorf("message type = %q, want %q", msg.Type, MessageTypeVote)
		}
		got, ok := msg.Data.(*models.VoteEvent)
		if !ok || got.VoteID != "v1" {
			t.Errorf("message data = %#v", msg.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)

	client := NewClient(hub, nil)
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("send channel delivered after unregister, want closed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send channel not closed after unregister")
	}
}

func TestHubShutdownClosesAllClients(t *testing.T) {
	hub, cancel := startHub(t)

	first := NewClient(hub, nil)
	second := NewClient(hub, nil)
	hub.Register <- first
	hub.Register <- second
	waitForClients(t, hub, 2)

	cancel()

	for _, client := range []*Client{first, second} {
		select {
		case _, ok := <-client.send:
			if ok {
				t.Error("send channel delivered after shutdown, want closed")
			}
		case <-time.After(5 * time.Second):
			t.Fatal("send channel not closed after shutdown")
		}
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := NewClient(hub, nil)
	hub.Register <- slow
	waitForClients(t, hub, 1)

	// Never drain slow.send; once its buffer is full the hub must evict it
	// instead of blocking the broadcast loop.
	for i := 0; i < cap(slow.send)+8; i++ {
		hub.BroadcastVote(&models.VoteEvent{VoteID: "flood"})
	}
	waitForClients(t, hub, 0)
}

func TestVoteFeedBridgesBusToHub(t *testing.T) {
	hub, _ := startHub(t)

	bus := events.NewBus()
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewVoteFeed(bus, hub)
	go func() { _ = feed.Serve(ctx) }()

	client := NewClient(hub, nil)
	hub.Register <- client
	waitForClients(t, hub, 1)

	// Give the feed a moment to establish its subscription.
	time.Sleep(50 * time.Millisecond)

	if err := bus.PublishVote(ctx, models.VoteEvent{VoteID: "v9", CharacterName: "Ditto"}); err != nil {
		t.Fatalf("PublishVote() error = %v", err)
	}

	select {
	case msg := <-client.send:
		got, ok := msg.Data.(*models.VoteEvent)
		if !ok || got.VoteID != "v9" {
			t.Errorf("message data = %#v", msg.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for bridged vote event")
	}
}
