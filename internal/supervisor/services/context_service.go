// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package services

import "context"

// ContextHub matches *websocket.Hub's RunWithContext method without
// importing the websocket package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService wraps the WebSocket hub as a supervised service. The
// hub's RunWithContext already follows the suture.Service pattern, so this
// wrapper only supplies a name for logging.
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService creates the hub service wrapper.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{hub: hub, name: "websocket-hub"}
}

// Serve implements suture.Service.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	return w.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (w *WebSocketHubService) String() string {
	return w.name
}

// ContextServer matches the vote feed's Serve method.
type ContextServer interface {
	Serve(ctx context.Context) error
}

// VoteFeedService wraps the bus-to-hub vote feed as a supervised service.
type VoteFeedService struct {
	feed ContextServer
	name string
}

// NewVoteFeedService creates the vote feed service wrapper.
func NewVoteFeedService(feed ContextServer) *VoteFeedService {
	return &VoteFeedService{feed: feed, name: "vote-feed"}
}

// Serve implements suture.Service.
func (v *VoteFeedService) Serve(ctx context.Context) error {
	return v.feed.Serve(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (v *VoteFeedService) String() string {
	return v.name
}
