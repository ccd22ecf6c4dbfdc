// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package config defines the application configuration and its loading rules.
// Configuration is loaded via Koanf v2 with layered sources (highest priority
// wins): environment variables > optional YAML config file > built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Votarena server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Origins  OriginsConfig  `koanf:"origins"`
	Sourcing SourcingConfig `koanf:"sourcing"`
	Sessions SessionsConfig `koanf:"sessions"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path, or ":memory:" for an in-memory database.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads limits DuckDB worker threads; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// OriginEndpointConfig configures a single external origin endpoint.
type OriginEndpointConfig struct {
	URL string `koanf:"url"`
}

// SuperheroConfig configures the token-gated superhero origin. An empty token
// disables the origin gracefully instead of failing startup.
type SuperheroConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
}

// StarWarsConfig configures the snapshot-backed sci-fi origin. The snapshot
// timeout covers the bulk catalog load, which walks every page of the
// upstream people listing.
type StarWarsConfig struct {
	URL             string        `koanf:"url"`
	SnapshotTimeout time.Duration `koanf:"snapshot_timeout"`
}

// OriginsConfig groups all external origin settings.
type OriginsConfig struct {
	// Timeout bounds every per-call origin request.
	Timeout time.Duration `koanf:"timeout"`
	// CacheTTL is the lifetime of aggregator memo cache entries.
	CacheTTL time.Duration `koanf:"cache_ttl"`
	// RequestsPerSecond throttles outbound calls per origin; 0 disables.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	RickMorty OriginEndpointConfig `koanf:"rick_morty"`
	Pokemon   OriginEndpointConfig `koanf:"pokemon"`
	Superhero SuperheroConfig      `koanf:"superhero"`
	StarWars  StarWarsConfig       `koanf:"star_wars"`
}

// SourcingConfig tunes the hybrid cache-vs-origin fetch policy.
type SourcingConfig struct {
	// MinCacheSize forces origin draws until the (filtered) cache holds at
	// least this many characters.
	MinCacheSize int `koanf:"min_cache_size"`
	// OriginProbability is the chance of an origin draw once the cache is
	// warm, in [0,1].
	OriginProbability float64 `koanf:"origin_probability"`
}

// SessionsConfig tunes voting session expiry.
type SessionsConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at
// runtime rather than fail fast.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Origins.Timeout <= 0 {
		return fmt.Errorf("origins.timeout must be positive, got %s", c.Origins.Timeout)
	}
	if c.Origins.CacheTTL <= 0 {
		return fmt.Errorf("origins.cache_ttl must be positive, got %s", c.Origins.CacheTTL)
	}
	if c.Sourcing.MinCacheSize < 0 {
		return fmt.Errorf("sourcing.min_cache_size must not be negative, got %d", c.Sourcing.MinCacheSize)
	}
	if c.Sourcing.OriginProbability < 0 || c.Sourcing.OriginProbability > 1 {
		return fmt.Errorf("sourcing.origin_probability must be in [0,1], got %g", c.Sourcing.OriginProbability)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be positive, got %s", c.Sessions.TTL)
	}
	for name, url := range map[string]string{
		"origins.rick_morty.url": c.Origins.RickMorty.URL,
		"origins.pokemon.url":    c.Origins.Pokemon.URL,
		"origins.superhero.url":  c.Origins.Superhero.URL,
		"origins.star_wars.url":  c.Origins.StarWars.URL,
	} {
		if url == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}
