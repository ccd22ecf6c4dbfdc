// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Command server runs the Votarena HTTP server: multi-origin character
// sourcing, the vote ledger and the live WebSocket feed, under a suture
// supervision tree.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/votarena/internal/api"
	"github.com/tomtom215/votarena/internal/config"
	"github.com/tomtom215/votarena/internal/database"
	"github.com/tomtom215/votarena/internal/events"
	"github.com/tomtom215/votarena/internal/logging"
	"github.com/tomtom215/votarena/internal/origins"
	"github.com/tomtom215/votarena/internal/sourcing"
	"github.com/tomtom215/votarena/internal/supervisor"
	"github.com/tomtom215/votarena/internal/supervisor/services"
	"github.com/tomtom215/votarena/internal/votes"
	ws "github.com/tomtom215/votarena/internal/websocket"
)

const warmupBackoff = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting votarena server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	// Origin adapters share one rand source; draws and breaker wrapping are
	// built by the factory.
	rng := origins.NewRand(time.Now().UnixNano())
	adapters, starWars := origins.BuildAdapters(&cfg.Origins, rng)
	aggregator := origins.NewAggregator(adapters, cfg.Origins.CacheTTL, origins.SystemClock(), rng)

	engine := sourcing.New(db, aggregator, cfg.Sourcing, rng)

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close event bus")
		}
	}()

	voteService := votes.New(db, aggregator, bus)

	hub := ws.NewHub()
	feed := ws.NewVoteFeed(bus, hub)

	handler := api.NewHandler(db, engine, voteService, hub, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router.Setup(),
		// Read/write deadlines would kill long-lived WebSocket connections;
		// only the header read is bounded here.
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewSweeperService(db, cfg.Sessions.SweepInterval))
	tree.AddDataService(services.NewWarmupService("star-wars-warmup", starWars, warmupBackoff))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewVoteFeedService(feed))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := tree.ServeBackground(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()

		select {
		case err := <-errCh:
			if err != nil && err != context.Canceled {
				logging.Error().Err(err).Msg("Supervisor stopped with error")
			}
		case <-time.After(cfg.Server.ShutdownTimeout + 5*time.Second):
			if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
				for _, svc := range report {
					logging.Error().Str("service", svc.Name).Msg("Service failed to stop")
				}
			}
			logging.Error().Msg("Shutdown timed out")
		}

	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logging.Error().Err(err).Msg("Supervisor stopped unexpectedly")
			os.Exit(1)
		}
	}

	logging.Info().Msg("Server stopped")
}
