package tables

import (
	"reflect"
	"testing"
)

func assertRefs(t *testing.T, sql string, want []Ref) {
	t.Helper()
	got := Extract(sql)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract(%q) = %v, want %v", sql, got, want)
	}
}

func TestExtract_SimpleFrom(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM users", []Ref{{Schema: "public", Table: "users"}})
}

func TestExtract_SchemaQualified(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM analytics.events", []Ref{{Schema: "analytics", Table: "events"}})
}

func TestExtract_CaseNormalized(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM Analytics.Events", []Ref{{Schema: "analytics", Table: "events"}})
}

func TestExtract_Join(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM orders o JOIN customers c ON o.cid = c.id", []Ref{
		{Schema: "public", Table: "orders"},
		{Schema: "public", Table: "customers"},
	})
}

func TestExtract_Deduplicates(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM t JOIN t ON true", []Ref{{Schema: "public", Table: "t"}})
}

func TestExtract_Subquery(t *testing.T) {
	t.Parallel()
	// FROM ( yields no direct reference; the inner FROM still counts.
	assertRefs(t, "SELECT * FROM (SELECT * FROM inner_t) x", []Ref{{Schema: "public", Table: "inner_t"}})
}

func TestExtract_NoTables(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT 1", nil)
}

func TestExtract_TrailingFrom(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM", nil)
}

func TestExtract_UnscannableYieldsNothing(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM users WHERE x = 'unterminated", nil)
}

func TestExtract_TableNameInStringIgnored(t *testing.T) {
	t.Parallel()
	assertRefs(t, "SELECT * FROM t WHERE note = 'from secrets'", []Ref{{Schema: "public", Table: "t"}})
}

func TestRef_String(t *testing.T) {
	t.Parallel()
	r := Ref{Schema: "public", Table: "users"}
	if r.String() != "public.users" {
		t.Fatalf("expected public.users, got %s", r.String())
	}
}
