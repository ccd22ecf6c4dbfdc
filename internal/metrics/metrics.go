// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package metrics provides Prometheus metrics collection for observability.
// Metrics are exposed at the /metrics endpoint in Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Origin adapter metrics

	// OriginRequests counts outbound origin calls by source and outcome
	// (success, not_found, unavailable).
	OriginRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origin_requests_total",
			Help: "Total origin API calls by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// OriginRequestDuration tracks origin call latency by source.
	OriginRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "origin_request_duration_seconds",
			Help:    "Origin API call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// SnapshotSize reports the loaded catalog snapshot size per source.
	SnapshotSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "origin_snapshot_size",
			Help: "Number of records in a loaded origin catalog snapshot",
		},
		[]string{"source"},
	)

	// Circuit breaker metrics

	// CircuitBreakerState reports breaker state per origin
	// (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts state transitions per origin.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// CircuitBreakerRequests counts requests through each breaker by result
	// (success, failure, rejected).
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by result",
		},
		[]string{"name", "result"},
	)

	// Aggregator memo cache metrics

	// CacheHits counts memo cache hits by lookup kind (by_id, by_name).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origin_cache_hits_total",
			Help: "Aggregator memo cache hits",
		},
		[]string{"kind"},
	)

	// CacheMisses counts memo cache misses by lookup kind.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origin_cache_misses_total",
			Help: "Aggregator memo cache misses",
		},
		[]string{"kind"},
	)

	// Sourcing engine metrics

	// SourcingDecisions counts engine outcomes by path
	// (origin, cache, fallback_origin) and result (hit, error).
	SourcingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sourcing_decisions_total",
			Help: "Sourcing engine path decisions",
		},
		[]string{"path", "result"},
	)

	// CharactersStored counts successful character upserts by source.
	CharactersStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "characters_stored_total",
			Help: "Character upserts by source",
		},
		[]string{"source"},
	)

	// Vote metrics

	// VotesRecorded counts ledger writes by source and vote type.
	VotesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_recorded_total",
			Help: "Votes recorded by source and type",
		},
		[]string{"source", "vote_type"},
	)

	// Session metrics

	// SessionsCreated counts voting session creations.
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voting_sessions_created_total",
			Help: "Voting sessions created",
		},
	)

	// SessionsSwept counts sessions removed by the expiry sweeper.
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voting_sessions_swept_total",
			Help: "Expired voting sessions removed by the sweeper",
		},
	)

	// HTTP metrics

	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration tracks HTTP request latency by method and endpoint.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Database metrics

	// DBQueryDuration tracks query latency by operation.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation"},
	)

	// WebSocket metrics

	// WSConnections reports currently connected live feed clients.
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Active WebSocket connections",
		},
	)

	// WSMessagesSent counts broadcast messages delivered to clients.
	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "WebSocket messages sent to clients",
		},
	)
)
