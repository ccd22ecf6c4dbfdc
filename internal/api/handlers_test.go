// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/votarena/internal/config"
	"github.com/tomtom215/votarena/internal/database"
	"github.com/tomtom215/votarena/internal/models"
	"github.com/tomtom215/votarena/internal/origins"
	"github.com/tomtom215/votarena/internal/sourcing"
	"github.com/tomtom215/votarena/internal/votes"
)

// stubOrigins serves both the engine's random draws and the vote service's
// name lookups from canned values.
type stubOrigins struct {
	character *models.Character
	err       error
}

func (s *stubOrigins) GetRandom(_ context.Context, _ models.Source) (*models.Character, error) {
	return s.character, s.err
}

func (s *stubOrigins) GetByName(_ context.Context, _ models.Source, _ string) (*models.Character, error) {
	return s.character, s.err
}

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func newTestAPI(t *testing.T, stub *stubOrigins) (http.Handler, *database.DB) {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 2})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Sessions: config.SessionsConfig{TTL: time.Hour},
		API:      config.APIConfig{CORSOrigins: []string{"*"}},
	}

	engine := sourcing.New(db, stub, config.SourcingConfig{MinCacheSize: 0, OriginProbability: 0}, origins.NewRand(1))
	voteService := votes.New(db, stub, nil)

	handler := NewHandler(db, engine, voteService, nil, cfg)
	return NewRouter(handler, cfg).Setup(), db
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response %q is not an API envelope: %v", rec.Body.String(), err)
	}
	return rec, env
}

func seedCharacter(t *testing.T, db *database.DB, externalID, name string, source models.Source) *models.StoredCharacter {
	t.Helper()

	stored, err := db.UpsertCharacter(context.Background(), &models.Character{
		ExternalID: externalID,
		Name:       name,
		Source:     source,
		ImageURL:   "https://img.example/" + externalID + ".png",
	})
	if err != nil {
		t.Fatalf("UpsertCharacter() error = %v", err)
	}
	return stored
}

func TestRandomCharacterFromOrigin(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{character: &models.Character{
		ExternalID: "25",
		Name:       "Pikachu",
		Source:     models.SourcePokemon,
		ImageURL:   "https://img.example/25.png",
	}})

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/characters/random", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got models.CharacterResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("data decode error = %v", err)
	}
	if got.ExternalID != "25" || got.Source != models.SourcePokemon || got.ID == "" {
		t.Errorf("character = %+v", got)
	}
}

func TestRandomCharacterUnknownSource(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{})

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/characters/random?source=narnia", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestRandomCharacterNothingAvailable(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{err: &origins.UnavailableError{Source: models.SourcePokemon, Reason: "down"}})

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/characters/random", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "NO_CHARACTERS_AVAILABLE" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestRandomCharacterFallsBackToCache(t *testing.T) {
	router, db := newTestAPI(t, &stubOrigins{err: &origins.UnavailableError{Source: models.SourcePokemon, Reason: "down"}})
	seedCharacter(t, db, "1", "Rick Sanchez", models.SourceRickMorty)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/characters/random", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got models.CharacterResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("data decode error = %v", err)
	}
	if got.Name != "Rick Sanchez" {
		t.Errorf("character = %+v", got)
	}
}

func TestListCharacters(t *testing.T) {
	router, db := newTestAPI(t, &stubOrigins{})
	seedCharacter(t, db, "1", "Rick Sanchez", models.SourceRickMorty)
	seedCharacter(t, db, "25", "Pikachu", models.SourcePokemon)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/characters?source=pokemon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got []models.CharacterResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("data decode error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "Pikachu" {
		t.Errorf("characters = %+v", got)
	}
}

func TestCreateVoteAndCounts(t *testing.T) {
	router, db := newTestAPI(t, &stubOrigins{})
	stored := seedCharacter(t, db, "25", "Pikachu", models.SourcePokemon)

	body := fmt.Sprintf(`{"characterId":%q,"voteType":"like"}`, stored.ID)
	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/votes", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var vote models.Vote
	if err := json.Unmarshal(env.Data, &vote); err != nil {
		t.Fatalf("data decode error = %v", err)
	}
	if vote.CharacterID != stored.ID || vote.VoteType != models.VoteLike {
		t.Errorf("vote = %+v", vote)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/votes/"+stored.ID+"/counts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("counts status = %d", rec.Code)
	}
	var counts models.VoteCounts
	if err := json.Unmarshal(env.Data, &counts); err != nil {
		t.Fatalf("counts decode error = %v", err)
	}
	if counts.Likes != 1 || counts.Dislikes != 0 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestCreateVoteValidation(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{})

	tests := []struct {
		name string
		body string
		want int
		code string
	}{
		{
			name: "garbage body",
			body: "{not json",
			want: http.StatusBadRequest,
			code: "INVALID_BODY",
		},
		{
			name: "missing character id",
			body: `{"voteType":"like"}`,
			want: http.StatusBadRequest,
			code: "VALIDATION_ERROR",
		},
		{
			name: "bad vote type",
			body: `{"characterId":"7e57d004-2b97-44e7-8f00-29f0a27b522a","voteType":"meh"}`,
			want: http.StatusBadRequest,
			code: "VALIDATION_ERROR",
		},
		{
			name: "unknown character",
			body: `{"characterId":"7e57d004-2b97-44e7-8f00-29f0a27b522a","voteType":"like"}`,
			want: http.StatusNotFound,
			code: "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, router, http.MethodPost, "/api/v1/votes", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestManualVoteMaterializes(t *testing.T) {
	router, db := newTestAPI(t, &stubOrigins{character: &models.Character{
		ExternalID: "70",
		Name:       "Batman",
		Source:     models.SourceSuperhero,
	}})

	body := `{"characterName":"Batman","source":"superhero","voteType":"like"}`
	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/votes/manual", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var vote models.Vote
	if err := json.Unmarshal(env.Data, &vote); err != nil {
		t.Fatalf("data decode error = %v", err)
	}

	stored, err := db.GetCharacterByName(context.Background(), "Batman")
	if err != nil || stored == nil {
		t.Fatalf("GetCharacterByName() = %v, %v", stored, err)
	}
	if vote.CharacterID != stored.ID {
		t.Errorf("vote character id = %q, want %q", vote.CharacterID, stored.ID)
	}
}

func TestManualVoteNotFoundAtOrigin(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{err: &origins.NotFoundError{Source: models.SourcePokemon, Key: "missingno"}})

	body := `{"characterName":"MissingNo","source":"pokemon","voteType":"dislike"}`
	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/votes/manual", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{})

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	var session models.SessionResponse
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("data decode error = %v", err)
	}
	if session.SessionID == "" || !session.ExpiresAt.After(time.Now()) {
		t.Errorf("session = %+v", session)
	}

	rec, _ = doRequest(t, router, http.MethodDelete, "/api/v1/sessions/"+session.SessionID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}

	// Deleting again is a no-op, not an error.
	rec, _ = doRequest(t, router, http.MethodDelete, "/api/v1/sessions/"+session.SessionID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("second delete status = %d", rec.Code)
	}
}

func TestSessionExclusionViaRandomDraw(t *testing.T) {
	router, db := newTestAPI(t, &stubOrigins{err: &origins.UnavailableError{Source: models.SourcePokemon, Reason: "down"}})
	liked := seedCharacter(t, db, "25", "Pikachu", models.SourcePokemon)
	other := seedCharacter(t, db, "1", "Bulbasaur", models.SourcePokemon)

	_, env := doRequest(t, router, http.MethodPost, "/api/v1/sessions", "")
	var session models.SessionResponse
	if err := json.Unmarshal(env.Data, &session); err != nil {
		t.Fatalf("session decode error = %v", err)
	}

	body := fmt.Sprintf(`{"characterId":%q,"voteType":"like","sessionId":%q}`, liked.ID, session.SessionID)
	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/votes", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("vote status = %d", rec.Code)
	}

	// Every draw under the session must avoid the voted character.
	for i := 0; i < 10; i++ {
		rec, env := doRequest(t, router, http.MethodGet, "/api/v1/characters/random?sessionId="+session.SessionID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("draw status = %d", rec.Code)
		}
		var got models.CharacterResponse
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("data decode error = %v", err)
		}
		if got.ID != other.ID {
			t.Fatalf("draw %d returned %q, want %q", i, got.ID, other.ID)
		}
	}
}

func TestStatistics(t *testing.T) {
	router, db := newTestAPI(t, &stubOrigins{})

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/statistics/most-liked", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty most-liked status = %d, want 404", rec.Code)
	}
	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/statistics/last-evaluated", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty last-evaluated status = %d, want 404", rec.Code)
	}

	pikachu := seedCharacter(t, db, "25", "Pikachu", models.SourcePokemon)
	vader := seedCharacter(t, db, "4", "Darth Vader", models.SourceStarWars)

	for i := 0; i < 2; i++ {
		body := fmt.Sprintf(`{"characterId":%q,"voteType":"like"}`, pikachu.ID)
		if rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/votes", body); rec.Code != http.StatusCreated {
			t.Fatalf("vote status = %d", rec.Code)
		}
	}
	body := fmt.Sprintf(`{"characterId":%q,"voteType":"dislike"}`, vader.ID)
	if rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/votes", body); rec.Code != http.StatusCreated {
		t.Fatalf("vote status = %d", rec.Code)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/statistics/most-liked", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("most-liked status = %d", rec.Code)
	}
	var most models.MostVotedResponse
	if err := json.Unmarshal(env.Data, &most); err != nil {
		t.Fatalf("most-liked decode error = %v", err)
	}
	if most.Character.Name != "Pikachu" || most.Likes != 2 {
		t.Errorf("most-liked = %+v", most)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/statistics/most-disliked", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("most-disliked status = %d", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &most); err != nil {
		t.Fatalf("most-disliked decode error = %v", err)
	}
	if most.Character.Name != "Darth Vader" || most.Dislikes != 1 {
		t.Errorf("most-disliked = %+v", most)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/statistics/last-evaluated", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("last-evaluated status = %d", rec.Code)
	}
	var last models.LastEvaluatedResponse
	if err := json.Unmarshal(env.Data, &last); err != nil {
		t.Fatalf("last-evaluated decode error = %v", err)
	}
	if last.Vote.Character.Name != "Darth Vader" || last.Vote.VoteType != models.VoteDislike {
		t.Errorf("last-evaluated = %+v", last)
	}

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/statistics/pikachu", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pikachu status = %d", rec.Code)
	}
	var named models.NamedCharacterStats
	if err := json.Unmarshal(env.Data, &named); err != nil {
		t.Fatalf("pikachu decode error = %v", err)
	}
	if !named.Character.Exists || named.Statistics == nil {
		t.Fatalf("pikachu = %+v", named)
	}
	if named.Statistics.Likes != 2 || named.Statistics.NetScore != 2 {
		t.Errorf("pikachu statistics = %+v", named.Statistics)
	}
}

func TestPikachuStatsWithoutVotes(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{})

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/statistics/pikachu", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var named models.NamedCharacterStats
	if err := json.Unmarshal(env.Data, &named); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if named.Character.Exists || named.Statistics != nil {
		t.Errorf("stats = %+v, want exists=false and no statistics", named)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{})

	for _, target := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		rec, env := doRequest(t, router, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", target, rec.Code)
		}
		if env.Status != "success" {
			t.Errorf("%s envelope status = %q", target, env.Status)
		}
	}
}

func TestWebSocketUnavailableWithoutHub(t *testing.T) {
	router, _ := newTestAPI(t, &stubOrigins{})

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/ws", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	cfg := &config.Config{API: config.APIConfig{CORSOrigins: []string{"https://votarena.example"}}}
	handler := &Handler{cfg: cfg}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{name: "no origin header", origin: "", want: true},
		{name: "allowed origin", origin: "https://votarena.example", want: true},
		{name: "rejected origin", origin: "https://evil.example", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := handler.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("wildcard allows anything", func(t *testing.T) {
		wildcard := &Handler{cfg: &config.Config{API: config.APIConfig{CORSOrigins: []string{"*"}}}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		if !wildcard.checkWebSocketOrigin(req) {
			t.Error("checkWebSocketOrigin() = false, want true for wildcard")
		}
	})
}
