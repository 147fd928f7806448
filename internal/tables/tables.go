// Package tables extracts schema-qualified table references from query
// text. It is a best-effort lexical scan over FROM/JOIN keyword adjacency
// in the sqlscan token stream, not a grammar-driven parse: subqueries,
// CTE aliases, and comma-separated join lists are not resolved, so it can
// both under- and over-match.
package tables

import (
	"strings"

	"github.com/fuzzybassoon/pgguard/internal/sqlscan"
)

// Ref is a normalized (schema, table) pair. Both parts are lower-cased,
// so equality is case-insensitive by construction.
type Ref struct {
	Schema string
	Table  string
}

func (r Ref) String() string {
	return r.Schema + "." + r.Table
}

// Extract returns the deduplicated table references found after FROM and
// JOIN keywords, in order of first appearance. The schema defaults to
// "public" when the reference is unqualified. Text the scanner rejects
// yields no references; the access layer documents that an empty result
// trivially passes.
func Extract(sql string) []Ref {
	toks, err := sqlscan.Scan(sql)
	if err != nil {
		return nil
	}

	seen := make(map[Ref]bool)
	var refs []Ref
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != sqlscan.Word || t.Quoted {
			continue
		}
		up := strings.ToUpper(t.Text)
		if up != "FROM" && up != "JOIN" {
			continue
		}
		if i+1 >= len(toks) || toks[i+1].Kind != sqlscan.Word {
			continue // FROM ( subquery ), or trailing FROM
		}

		ref := Ref{Schema: "public", Table: strings.ToLower(toks[i+1].Text)}
		i++
		if i+2 < len(toks) && toks[i+1].Kind == sqlscan.Symbol && toks[i+1].Text == "." &&
			toks[i+2].Kind == sqlscan.Word {
			ref = Ref{
				Schema: ref.Table,
				Table:  strings.ToLower(toks[i+2].Text),
			}
			i += 2
		}

		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
