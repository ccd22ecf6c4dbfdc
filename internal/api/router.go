// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/votarena/internal/config"
	"github.com/tomtom215/votarena/internal/middleware"
)

// healthRateLimit is deliberately permissive so monitoring probes are never
// throttled by the API limit.
const (
	healthRateLimit       = 1000
	healthRateLimitWindow = time.Minute
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler form.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires the HTTP surface.
type Router struct {
	handler *Handler
	cfg     *config.Config
}

// NewRouter creates the router around the handler.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes. CORS is global so OPTIONS
	// preflight requests are handled before routing.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.API.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(healthRateLimit, healthRateLimitWindow))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/characters/random", router.handler.RandomCharacter)
		r.Get("/characters", router.handler.ListCharacters)

		r.Post("/votes", router.handler.CreateVote)
		r.Post("/votes/manual", router.handler.ManualVote)
		r.Get("/votes/{characterId}/counts", router.handler.VoteCounts)

		r.Post("/sessions", router.handler.CreateSession)
		r.Delete("/sessions/{sessionId}", router.handler.DeleteSession)

		r.Get("/statistics/most-liked", router.handler.MostLiked)
		r.Get("/statistics/most-disliked", router.handler.MostDisliked)
		r.Get("/statistics/last-evaluated", router.handler.LastEvaluated)
		r.Get("/statistics/pikachu", router.handler.PikachuStats)

		r.Get("/ws", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit builds the per-IP API rate limiter; zero configured requests
// disables limiting.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	reqs := router.cfg.API.RateLimitReqs
	window := router.cfg.API.RateLimitWindow
	if reqs <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(reqs, window)
}
