// Package rewrite bounds result cardinality by appending a LIMIT clause
// when the query carries none. The check is textual and deliberately
// positional-blind: a LIMIT token anywhere, including inside a subquery,
// suppresses injection.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/fuzzybassoon/pgguard/internal/sqlscan"
)

// EnsureLimit returns the query with a trailing LIMIT clause appended
// when no LIMIT token is present. A single trailing semicolon is stripped
// before appending. Idempotent: applying it to its own output never adds
// a second clause.
func EnsureLimit(sql string, maxRows int) string {
	if hasLimit(sql) {
		return sql
	}
	trimmed := strings.TrimRight(sql, " \t\r\n")
	trimmed = strings.TrimSuffix(trimmed, ";")
	trimmed = strings.TrimRight(trimmed, " \t\r\n")
	return fmt.Sprintf("%s LIMIT %d", trimmed, maxRows)
}

// hasLimit looks for a LIMIT word token in the stream. Text the scanner
// rejects falls back to substring containment, which over-matches but
// never injects into a query that already has a limit.
func hasLimit(sql string) bool {
	toks, err := sqlscan.Scan(sql)
	if err != nil {
		return strings.Contains(strings.ToUpper(sql), "LIMIT")
	}
	for _, t := range toks {
		if t.Kind == sqlscan.Word && !t.Quoted && strings.EqualFold(t.Text, "LIMIT") {
			return true
		}
	}
	return false
}
