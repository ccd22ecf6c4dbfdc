// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package api provides the HTTP surface: character draws, the vote ledger,
// voting sessions, statistics, the live WebSocket feed and health probes.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/votarena/internal/config"
	"github.com/tomtom215/votarena/internal/database"
	"github.com/tomtom215/votarena/internal/models"
	"github.com/tomtom215/votarena/internal/sourcing"
	"github.com/tomtom215/votarena/internal/votes"
	ws "github.com/tomtom215/votarena/internal/websocket"
)

// pikachuName is the fixed subject of the named-character statistics card.
const pikachuName = "Pikachu"

// Handler holds the services the HTTP endpoints delegate to.
type Handler struct {
	db     *database.DB
	engine *sourcing.Engine
	votes  *votes.Service
	wsHub  *ws.Hub
	cfg    *config.Config
}

// NewHandler creates the API handler.
func NewHandler(db *database.DB, engine *sourcing.Engine, voteService *votes.Service, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		db:     db,
		engine: engine,
		votes:  voteService,
		wsHub:  hub,
		cfg:    cfg,
	}
}

// RandomCharacter draws one character through the sourcing engine.
//
// Query parameters: source (optional origin restriction), excludeIds
// (comma-separated stored character ids), sessionId (merges the session's
// voted set into the exclusions).
func (h *Handler) RandomCharacter(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	req := sourcing.Request{
		ExcludeIDs: parseCommaSeparated(r.URL.Query().Get("excludeIds")),
		SessionID:  r.URL.Query().Get("sessionId"),
	}

	if raw := r.URL.Query().Get("source"); raw != "" {
		source, err := models.ParseSource(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "source must be a known origin source", nil)
			return
		}
		req.Source = source
	}

	character, err := h.engine.RandomCharacter(r.Context(), req)
	if err != nil {
		if errors.Is(err, sourcing.ErrNoCharactersAvailable) {
			respondError(w, http.StatusServiceUnavailable, "NO_CHARACTERS_AVAILABLE",
				"No characters available from the cache or any origin", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to draw a character", err)
		return
	}

	resp := models.NewCharacterResponse(character)
	respondSuccess(w, http.StatusOK, &resp, started)
}

// ListCharacters returns the stored characters, optionally restricted to one
// source, newest first.
func (h *Handler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var filter database.CharacterFilter
	if raw := r.URL.Query().Get("source"); raw != "" {
		source, err := models.ParseSource(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "source must be a known origin source", nil)
			return
		}
		filter.Source = source
	}

	characters, err := h.db.ListCharacters(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list characters", err)
		return
	}

	resp := make([]models.CharacterResponse, len(characters))
	for i := range characters {
		resp[i] = models.NewCharacterResponse(&characters[i])
	}
	respondSuccess(w, http.StatusOK, resp, started)
}

// voteRequest is the POST /votes body.
type voteRequest struct {
	CharacterID string `json:"characterId" validate:"required,uuid"`
	VoteType    string `json:"voteType" validate:"required,votetype"`
	SessionID   string `json:"sessionId" validate:"omitempty,uuid"`
}

// CreateVote records a vote against a stored character.
func (h *Handler) CreateVote(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req voteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	vote, err := h.votes.Create(r.Context(), votes.CreateRequest{
		CharacterID: req.CharacterID,
		VoteType:    models.VoteType(req.VoteType),
		SessionID:   req.SessionID,
	})
	if err != nil {
		if errors.Is(err, votes.ErrCharacterNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Character not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record vote", err)
		return
	}

	respondSuccess(w, http.StatusCreated, vote, started)
}

// manualVoteRequest is the POST /votes/manual body.
type manualVoteRequest struct {
	CharacterName string `json:"characterName" validate:"required,max=200"`
	Source        string `json:"source" validate:"required,source"`
	VoteType      string `json:"voteType" validate:"required,votetype"`
	SessionID     string `json:"sessionId" validate:"omitempty,uuid"`
}

// ManualVote records a vote by character name, creating the character record
// on first reference.
func (h *Handler) ManualVote(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req manualVoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	vote, err := h.votes.Manual(r.Context(), votes.ManualRequest{
		Name:      req.CharacterName,
		Source:    models.Source(req.Source),
		VoteType:  models.VoteType(req.VoteType),
		SessionID: req.SessionID,
	})
	if err != nil {
		if errors.Is(err, votes.ErrCharacterNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Character not found at the requested origin", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record vote", err)
		return
	}

	respondSuccess(w, http.StatusCreated, vote, started)
}

// VoteCounts tallies the ledger for one stored character.
func (h *Handler) VoteCounts(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	characterID := chi.URLParam(r, "characterId")
	counts, err := h.votes.Counts(r.Context(), characterID)
	if err != nil {
		if errors.Is(err, votes.ErrCharacterNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Character not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count votes", err)
		return
	}

	respondSuccess(w, http.StatusOK, counts, started)
}

// CreateSession starts a new voting session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	session, err := h.db.CreateSession(r.Context(), h.cfg.Sessions.TTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session", err)
		return
	}

	respondSuccess(w, http.StatusCreated, &models.SessionResponse{
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt,
	}, started)
}

// DeleteSession removes a voting session and its exclusion set. Deleting an
// unknown session succeeds; the caller's goal state is already reached.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	sessionID := chi.URLParam(r, "sessionId")
	if err := h.db.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete session", err)
		return
	}

	respondSuccess(w, http.StatusOK, nil, started)
}

// MostLiked returns the character with the most likes.
func (h *Handler) MostLiked(w http.ResponseWriter, r *http.Request) {
	h.mostVoted(w, r, models.VoteLike)
}

// MostDisliked returns the character with the most dislikes.
func (h *Handler) MostDisliked(w http.ResponseWriter, r *http.Request) {
	h.mostVoted(w, r, models.VoteDislike)
}

func (h *Handler) mostVoted(w http.ResponseWriter, r *http.Request, voteType models.VoteType) {
	started := time.Now()

	character, count, err := h.db.GetMostVoted(r.Context(), voteType)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query vote statistics", err)
		return
	}
	if character == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No votes recorded yet", nil)
		return
	}

	resp := models.MostVotedResponse{Character: models.NewCharacterResponse(character)}
	if voteType == models.VoteLike {
		resp.Likes = count
	} else {
		resp.Dislikes = count
	}
	respondSuccess(w, http.StatusOK, &resp, started)
}

// LastEvaluated returns the most recent vote in the ledger.
func (h *Handler) LastEvaluated(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	vote, err := h.db.GetLastVote(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query vote statistics", err)
		return
	}
	if vote == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No votes recorded yet", nil)
		return
	}

	imageURL := ""
	if c, err := h.db.GetCharacter(r.Context(), vote.CharacterID); err == nil && c != nil {
		imageURL = c.ImageURL
	}

	respondSuccess(w, http.StatusOK, &models.LastEvaluatedResponse{
		Vote: models.LastEvaluatedVote{
			ID: vote.ID,
			Character: models.LastEvaluatedCharacter{
				Name:     vote.CharacterName,
				Source:   vote.Source,
				ImageURL: imageURL,
			},
			VoteType: vote.VoteType,
			VotedAt:  vote.VotedAt,
		},
	}, started)
}

// PikachuStats reports the vote history of Pikachu by display name. The
// response always succeeds; Exists and the statistics block tell the caller
// whether Pikachu has ever been stored or voted on.
func (h *Handler) PikachuStats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	ref := models.NamedCharacterRef{Name: pikachuName, Source: models.SourcePokemon}

	character, err := h.db.GetCharacterByName(r.Context(), pikachuName)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query vote statistics", err)
		return
	}
	if character != nil {
		ref.Exists = true
		ref.Source = character.Source
	}

	stats, err := h.db.GetNamedVoteStats(r.Context(), pikachuName)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to query vote statistics", err)
		return
	}

	respondSuccess(w, http.StatusOK, &models.NamedCharacterStats{
		Character:  ref,
		Statistics: stats,
	}, started)
}

// Health reports overall service health including the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	overall, dbStatus := "healthy", "up"
	status := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		overall, dbStatus = "degraded", "down"
		status = http.StatusServiceUnavailable
	}

	respondSuccess(w, status, map[string]interface{}{
		"status":   overall,
		"database": dbStatus,
	}, started)
}

// HealthLive is the liveness probe; it succeeds whenever the process serves
// requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady is the readiness probe; it fails while the database is
// unreachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database not available", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, started)
}
