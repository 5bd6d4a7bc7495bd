package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// getTestDatabaseURL resolves the integration-test database DSN, falling
// back to nix-shell-style PG* environment variables when TEST_DATABASE_URL
// isn't set directly.
func getTestDatabaseURL() string {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	pgHost := os.Getenv("PGHOST")
	pgPort := os.Getenv("PGPORT")
	pgUser := os.Getenv("PGUSER")
	pgDatabase := os.Getenv("PGDATABASE")

	if pgHost == "" {
		pgHost = "localhost"
	}
	if pgPort == "" {
		pgPort = "5432"
	}
	if pgUser == "" {
		pgUser = "postgres"
	}
	if pgDatabase == "" {
		pgDatabase = "gepa_test"
	}

	if len(pgHost) > 0 && pgHost[0] == '/' {
		return fmt.Sprintf("postgres://%s@:%s/%s?host=%s&sslmode=disable", pgUser, pgPort, pgDatabase, pgHost)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable", pgUser, pgHost, pgPort, pgDatabase)
}

// setupTestDB connects to the integration-test database, ensures GEPAStore's
// schema exists, and registers cleanup of any run rows the test created.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := getTestDatabaseURL()
	if os.Getenv("TEST_DATABASE_URL") == "" && os.Getenv("PGHOST") == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	store := NewGEPAStore(pool)
	if err := store.EnsureSchema(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("failed to ensure schema: %v", err)
	}

	cleanupTestRuns(t, pool)
	t.Cleanup(func() {
		cleanupTestRuns(t, pool)
		pool.Close()
	})

	return pool
}

func cleanupTestRuns(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	if _, err := pool.Exec(ctx, `DELETE FROM gepa_runs WHERE id LIKE 'run_test%'`); err != nil {
		t.Logf("cleanup warning: %v", err)
	}
}
