// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

// Package database provides the DuckDB-backed durable store: the deduplicated
// character cache, the vote ledger, and voting session state.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/votarena/internal/config"
	"github.com/tomtom215/votarena/internal/logging"
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// Per-natural-key write locks for concurrent character UPSERTs. DuckDB
	// raises INTERNAL errors on concurrent upserts against the same row.
	keyLocks sync.Map

	// nowFn is swapped in tests to control timestamps.
	nowFn func() time.Time
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "512MB"
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network
	// environments; no extensions are required by this schema.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:  conn,
		cfg:   cfg,
		nowFn: time.Now,
	}

	// DuckDB is an embedded single-writer engine; a small pool suffices and
	// avoids write-write conflicts under load.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(0)

	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("database initialized")
	return db, nil
}

// createTables creates the schema if absent. All statements are idempotent.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS characters (
			id VARCHAR PRIMARY KEY,
			external_id VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			source VARCHAR NOT NULL,
			image_url VARCHAR,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (external_id, source)
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id VARCHAR PRIMARY KEY,
			character_id VARCHAR NOT NULL,
			character_name VARCHAR NOT NULL,
			source VARCHAR NOT NULL,
			vote_type VARCHAR NOT NULL,
			voted_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS voting_sessions (
			session_id VARCHAR PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			last_activity_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_characters (
			session_id VARCHAR NOT NULL,
			character_id VARCHAR NOT NULL,
			PRIMARY KEY (session_id, character_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_characters_name ON characters (name)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_character ON votes (character_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_voted_at ON votes (voted_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// Close checkpoints and closes the database connection. The checkpoint
// flushes the WAL so the next startup does not replay it.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}

	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// SetNowFuncForTesting overrides the timestamp source. Testing only.
func (db *DB) SetNowFuncForTesting(nowFn func() time.Time) {
	db.nowFn = nowFn
}

// ensureContext attaches a default timeout when the caller's context has no
// deadline, preventing indefinite hangs on a wedged connection.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 30*time.Second)
}

// acquireKeyLock locks writes for one character natural key.
func (db *DB) acquireKeyLock(key string) *sync.Mutex {
	v, _ := db.keyLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

func (db *DB) releaseKeyLock(mu *sync.Mutex) {
	mu.Unlock()
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update")
}

// isInternalError checks if an error is a DuckDB INTERNAL error.
func isInternalError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "INTERNAL Error")
}

// buildInClause builds placeholders and args for a parameterized IN clause.
func buildInClause(items []string) (string, []interface{}) {
	placeholders := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = item
	}
	return strings.Join(placeholders, ","), args
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
