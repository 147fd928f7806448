package access

import (
	"strings"
	"testing"
)

func assertAllowed(t *testing.T, g *Guard, refs []Ref) {
	t.Helper()
	d := g.Check(refs)
	if !d.Allowed {
		t.Fatalf("expected refs %v to be allowed, got denial: %s", refs, d.Reason)
	}
}

func assertDenied(t *testing.T, g *Guard, refs []Ref, reasonContains string) {
	t.Helper()
	d := g.Check(refs)
	if d.Allowed {
		t.Fatalf("expected refs %v to be denied", refs)
	}
	if !strings.Contains(d.Reason, reasonContains) {
		t.Fatalf("expected reason containing %q, got %q", reasonContains, d.Reason)
	}
}

func TestCheck_EmptyRulesAllowEverything(t *testing.T) {
	t.Parallel()
	g := NewGuard(nil, nil)
	assertAllowed(t, g, []Ref{{Schema: "public", Table: "anything"}})
}

func TestCheck_BlockedSchema(t *testing.T) {
	t.Parallel()
	g := NewGuard(nil, []string{"pg_catalog", "information_schema"})
	assertDenied(t, g, []Ref{{Schema: "pg_catalog", Table: "pg_tables"}}, "access to schema 'pg_catalog' is not allowed")
}

func TestCheck_BlockedSchemaBeatsAllowlist(t *testing.T) {
	t.Parallel()
	// A table on the allowlist in a blocked schema is still denied, and
	// the reason names the schema rule.
	g := NewGuard(allowlist("pg_catalog.pg_tables"), []string{"pg_catalog"})
	assertDenied(t, g, []Ref{{Schema: "pg_catalog", Table: "pg_tables"}}, "access to schema 'pg_catalog' is not allowed")
}

func TestCheck_AllowlistDeniesUnlisted(t *testing.T) {
	t.Parallel()
	g := NewGuard(allowlist("users", "orders"), nil)
	assertDenied(t, g, []Ref{{Schema: "public", Table: "payments"}},
		"access to table 'public.payments' is not allowed; allowed tables: orders, users")
}

func TestCheck_AllowlistBareNameMatches(t *testing.T) {
	t.Parallel()
	g := NewGuard(allowlist("users"), nil)
	assertAllowed(t, g, []Ref{{Schema: "public", Table: "users"}})
	assertAllowed(t, g, []Ref{{Schema: "archive", Table: "users"}})
}

func TestCheck_AllowlistQualifiedMatchesExactly(t *testing.T) {
	t.Parallel()
	g := NewGuard(allowlist("public.users"), nil)
	assertAllowed(t, g, []Ref{{Schema: "public", Table: "users"}})
	assertDenied(t, g, []Ref{{Schema: "archive", Table: "users"}}, "access to table 'archive.users' is not allowed")
}

func TestCheck_ShortCircuitsOnFirstViolation(t *testing.T) {
	t.Parallel()
	g := NewGuard(allowlist("users"), []string{"secret"})
	d := g.Check([]Ref{
		{Schema: "secret", Table: "vault"},
		{Schema: "public", Table: "not_listed"},
	})
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if !strings.Contains(d.Reason, "schema 'secret'") {
		t.Fatalf("expected the first violation to win, got %q", d.Reason)
	}
}

func TestCheck_EmptyRefsTriviallyAllowed(t *testing.T) {
	t.Parallel()
	g := NewGuard(allowlist("users"), []string{"pg_catalog"})
	d := g.Check(nil)
	if !d.Allowed || d.Reason != "table access validated" {
		t.Fatalf("expected trivial allow, got %+v", d)
	}
}

func TestNewGuard_NormalizesEntries(t *testing.T) {
	t.Parallel()
	g := NewGuard([]string{" Users ", "", "ORDERS"}, []string{" PG_CATALOG "})
	assertAllowed(t, g, []Ref{{Schema: "public", Table: "users"}})
	assertAllowed(t, g, []Ref{{Schema: "public", Table: "orders"}})
	assertDenied(t, g, []Ref{{Schema: "pg_catalog", Table: "pg_class"}}, "schema 'pg_catalog'")
}

func TestCheckTable(t *testing.T) {
	t.Parallel()
	g := NewGuard(allowlist("users"), []string{"pg_catalog"})
	if d := g.CheckTable("public", "users"); !d.Allowed {
		t.Fatalf("expected allow, got %s", d.Reason)
	}
	if d := g.CheckTable("PG_CATALOG", "pg_class"); d.Allowed {
		t.Fatal("expected denial for blocked schema")
	}
	if d := g.CheckTable("public", "payments"); d.Allowed {
		t.Fatal("expected denial for unlisted table")
	}
}

func TestSchemaBlocked(t *testing.T) {
	t.Parallel()
	g := NewGuard(nil, []string{"pg_catalog"})
	if !g.SchemaBlocked("pg_catalog") || !g.SchemaBlocked("PG_CATALOG") {
		t.Fatal("expected pg_catalog to be blocked regardless of case")
	}
	if g.SchemaBlocked("public") {
		t.Fatal("expected public to be unblocked")
	}
}

func TestTableAllowed(t *testing.T) {
	t.Parallel()
	g := NewGuard(allowlist("users", "analytics.events"), nil)
	if !g.TableAllowed("public", "users") {
		t.Fatal("expected bare-name allowlist match")
	}
	if !g.TableAllowed("analytics", "events") {
		t.Fatal("expected qualified allowlist match")
	}
	if g.TableAllowed("public", "events") {
		t.Fatal("expected qualified entry not to match other schemas")
	}
	open := NewGuard(nil, nil)
	if !open.TableAllowed("any", "thing") {
		t.Fatal("expected empty allowlist to allow everything")
	}
}

func allowlist(tables ...string) []string {
	return tables
}
