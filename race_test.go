package pgguard

import (
	"sync"
	"testing"
	"time"
)

// The pre-execution pipeline is shared state behind every concurrent
// request; it must hold up under the race detector.
func TestVet_ConcurrentRequests(t *testing.T) {
	t.Parallel()
	cfg := defaultUnitPolicy()
	cfg.AllowedTables = []string{"users", "orders"}
	cfg.AuditEnabled = false
	g := newUnitTestGuard(cfg, nil)

	queries := []string{
		"SELECT * FROM users",
		"SELECT * FROM orders LIMIT 5",
		"SELECT * FROM payments",
		"SELECT * FROM pg_catalog.pg_tables",
		"DROP TABLE users",
		"SELECT * FROM updated_log",
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, sql := range queries {
			wg.Add(1)
			go func(sql string) {
				defer wg.Done()
				g.vet(sql, time.Now())
			}(sql)
		}
	}
	wg.Wait()
}

func TestSecurityConfig_ConcurrentReads(t *testing.T) {
	t.Parallel()
	g := newUnitTestGuard(defaultUnitPolicy(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sc := g.SecurityConfig()
			// Returned slices are copies; mutating them must not leak.
			if len(sc.BlockedSchemas) > 0 {
				sc.BlockedSchemas[0] = "mutated"
			}
		}()
	}
	wg.Wait()

	if g.policy.BlockedSchemas()[0] != "information_schema" {
		t.Fatal("policy snapshot leaked a mutable slice")
	}
}
