// Package dbtest provides the integration-test harness for packages that
// need a real Postgres connection: internal/persistence's tests, chiefly.
// It is gated on TEST_DATABASE_URL exactly like the teacher pack's
// e2e suite gates on GATEWAY_URL — tests that need a live dependency skip
// rather than fail when that dependency isn't configured.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"reconciliation-engine/internal/migrations"
)

// envKey is the environment variable naming the test database's DSN.
const envKey = "TEST_DATABASE_URL"

// Pool opens a pool against TEST_DATABASE_URL, migrates it to the latest
// schema, and truncates both tables so the caller starts from an empty
// database. It skips the test (not fails it) when TEST_DATABASE_URL is
// unset, so `go test ./...` stays green without Postgres available.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(envKey)
	if dsn == "" {
		t.Skipf("%s not set; skipping database-backed test", envKey)
	}

	if err := migrations.Up(dsn); err != nil {
		t.Fatalf("dbtest: migrate up: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("dbtest: open pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("dbtest: ping: %v", err)
	}

	truncate(t, pool)
	t.Cleanup(pool.Close)
	return pool
}

// truncate empties both tables between tests, respecting the foreign key
// from transactions to reconciliation_runs.
func truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE transactions, reconciliation_runs"); err != nil {
		t.Fatalf("dbtest: truncate: %v", err)
	}
}
