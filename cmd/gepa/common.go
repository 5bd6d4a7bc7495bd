package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/longregen/gepa/internal/gepa"
)

// initPostgres opens a connection pool for the optional Postgres run-store
// and ensures its schema exists.
func initPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.PostgresURL == "" {
		return nil, fmt.Errorf("postgres store requested but no URL configured; set GEPA_POSTGRES_URL")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

// loadRunState reads a run's persisted State directly from its run
// directory's state file, the same msgpack-encoded format postgres.GEPAStore
// shares via gepa.EncodeState/DecodeState.
func loadRunState(runDir string) (*gepa.State, error) {
	data, err := os.ReadFile(filepath.Join(runDir, "gepa_state.msgpack"))
	if err != nil {
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}
	return gepa.DecodeState(data)
}

// maskSecret masks a secret string for display.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// boolStatus returns a status string for a boolean.
func boolStatus(b bool) string {
	if b {
		return "configured"
	}
	return "not configured"
}
