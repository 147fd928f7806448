package pgguard_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rickchristie/govner/pgflock/client"
	"github.com/rs/zerolog"

	pgguard "github.com/fuzzybassoon/pgguard"
)

const (
	pgflockLockerPort = 9776
	pgflockPassword   = "pgflock"
)

func acquireTestDB(t *testing.T) string {
	t.Helper()
	connStr, err := client.Lock(pgflockLockerPort, t.Name(), pgflockPassword)
	if err != nil {
		t.Fatalf("Failed to acquire test database: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Unlock(pgflockLockerPort, pgflockPassword, connStr)
	})
	return connStr
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultTestConfig() pgguard.Config {
	return pgguard.Config{
		Policy: pgguard.PolicyConfig{
			MaxRows:             1000,
			QueryTimeoutSeconds: 30,
			BlockedSchemas:      []string{"pg_catalog", "information_schema"},
			AuditEnabled:        true,
		},
		Pool: pgguard.PoolConfig{
			MinConns:        0,
			MaxConns:        5,
			MaxConnIdleTime: "300s",
		},
		Connection: pgguard.ConnectionConfig{User: "tester", Host: "localhost"},
	}
}

// newTestGuard acquires a test database and builds a Guard on it.
func newTestGuard(t *testing.T, config pgguard.Config, opts ...pgguard.Option) (*pgguard.Guard, string) {
	t.Helper()
	connStr := acquireTestDB(t)
	ctx := context.Background()
	g, err := pgguard.New(ctx, connStr, config, testLogger(), opts...)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}
	t.Cleanup(func() { g.Close(ctx) })
	return g, connStr
}

// setupTables runs DDL/DML on a direct connection. The guard's own pool
// is read-only, so fixtures go in through the side door.
func setupTables(t *testing.T, connStr string, stmts ...string) {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("setup connection failed: %v", err)
	}
	defer conn.Close(ctx)
	for _, sql := range stmts {
		if _, err := conn.Exec(ctx, sql); err != nil {
			t.Fatalf("setup statement failed: %v\nsql: %s", err, sql)
		}
	}
}
