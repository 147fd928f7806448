// Package access evaluates extracted table references against the
// configured schema blocklist and table allowlist.
package access

import (
	"fmt"
	"sort"
	"strings"
)

// Ref is a normalized (schema, table) pair to evaluate.
type Ref struct {
	Schema string
	Table  string
}

func (r Ref) String() string {
	return r.Schema + "." + r.Table
}

// Decision is the allow/deny outcome for one request. It is produced once
// per request and never cached or reused.
type Decision struct {
	Allowed bool
	Reason  string
}

// Guard holds the immutable access rules for the process lifetime.
type Guard struct {
	blockedSchemas map[string]bool
	allowedTables  map[string]bool
	allowedSorted  []string
}

// NewGuard builds a Guard from the policy's allowed-table and
// blocked-schema lists. Entries are lower-cased; an empty allowlist means
// unrestricted. Allowlist entries may be "schema.table" or a bare table
// name.
func NewGuard(allowedTables, blockedSchemas []string) *Guard {
	g := &Guard{
		blockedSchemas: make(map[string]bool, len(blockedSchemas)),
		allowedTables:  make(map[string]bool, len(allowedTables)),
	}
	for _, s := range blockedSchemas {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			g.blockedSchemas[s] = true
		}
	}
	for _, t := range allowedTables {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			g.allowedTables[t] = true
		}
	}
	g.allowedSorted = make([]string, 0, len(g.allowedTables))
	for t := range g.allowedTables {
		g.allowedSorted = append(g.allowedSorted, t)
	}
	sort.Strings(g.allowedSorted)
	return g
}

// Check evaluates each reference, short-circuiting on the first
// violation. The blocked-schema rule is evaluated before the allowlist
// rule. An empty ref set trivially passes: extraction is heuristic and a
// miss must not turn into a spurious denial.
func (g *Guard) Check(refs []Ref) Decision {
	for _, ref := range refs {
		if g.blockedSchemas[ref.Schema] {
			return Decision{Reason: fmt.Sprintf("access to schema '%s' is not allowed", ref.Schema)}
		}
		if len(g.allowedTables) > 0 && !g.allowedTables[ref.String()] && !g.allowedTables[ref.Table] {
			return Decision{Reason: fmt.Sprintf(
				"access to table '%s' is not allowed; allowed tables: %s",
				ref.String(), strings.Join(g.allowedSorted, ", "))}
		}
	}
	return Decision{Allowed: true, Reason: "table access validated"}
}

// CheckTable evaluates a single explicitly named table, for operations
// that take a table argument instead of query text.
func (g *Guard) CheckTable(schema, table string) Decision {
	return g.Check([]Ref{{Schema: strings.ToLower(schema), Table: strings.ToLower(table)}})
}

// SchemaBlocked reports whether the schema is on the blocklist.
func (g *Guard) SchemaBlocked(schema string) bool {
	return g.blockedSchemas[strings.ToLower(schema)]
}

// TableAllowed reports whether the table passes the allowlist filter.
// Always true when the allowlist is empty.
func (g *Guard) TableAllowed(schema, table string) bool {
	if len(g.allowedTables) == 0 {
		return true
	}
	schema = strings.ToLower(schema)
	table = strings.ToLower(table)
	return g.allowedTables[schema+"."+table] || g.allowedTables[table]
}
