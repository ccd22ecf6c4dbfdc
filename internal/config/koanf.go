// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/votarena/config.yaml",
	"/etc/votarena/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are applied
// first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/votarena.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Origins: OriginsConfig{
			Timeout:           5 * time.Second,
			CacheTTL:          time.Hour,
			RequestsPerSecond: 10,
			Burst:             5,
			RickMorty: OriginEndpointConfig{
				URL: "https://rickandmortyapi.com/api",
			},
			Pokemon: OriginEndpointConfig{
				URL: "https://pokeapi.co/api/v2",
			},
			Superhero: SuperheroConfig{
				URL:   "https://superheroapi.com/api",
				Token: "", // Empty token disables the origin gracefully
			},
			StarWars: StarWarsConfig{
				URL:             "https://swapi.dev/api",
				SnapshotTimeout: 10 * time.Second,
			},
		},
		Sourcing: SourcingConfig{
			MinCacheSize:      10,
			OriginProbability: 0.3,
		},
		Sessions: SessionsConfig{
			TTL:           time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		API: APIConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values above
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Legacy names from earlier deployments of the voting backend are kept so
// existing .env files continue to work.
//
// Examples:
//   - RICK_AND_MORTY_API_URL -> origins.rick_morty.url
//   - SUPERHERO_API_TOKEN    -> origins.superhero.token
//   - HTTP_PORT              -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Origin endpoints (legacy names kept from the original deployment)
		"rick_and_morty_api_url":     "origins.rick_morty.url",
		"pokemon_api_url":            "origins.pokemon.url",
		"superhero_api_url":          "origins.superhero.url",
		"superhero_api_token":        "origins.superhero.token",
		"star_wars_api_url":          "origins.star_wars.url",
		"star_wars_snapshot_timeout": "origins.star_wars.snapshot_timeout",
		"origin_timeout":             "origins.timeout",
		"origin_cache_ttl":           "origins.cache_ttl",

		// Sourcing policy
		"sourcing_min_cache_size":     "sourcing.min_cache_size",
		"sourcing_origin_probability": "sourcing.origin_probability",

		// Sessions
		"session_ttl":            "sessions.ttl",
		"session_sweep_interval": "sessions.sweep_interval",

		// Server / database
		"http_host":         "server.host",
		"http_port":         "server.port",
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// API
		"cors_origins":      "api.cors_origins",
		"rate_limit_reqs":   "api.rate_limit_reqs",
		"rate_limit_window": "api.rate_limit_window",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown variables are ignored rather than mapped heuristically; a stray
	// HOSTNAME or PATH must not leak into the config tree.
	return ""
}
