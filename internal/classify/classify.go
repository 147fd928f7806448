// Package classify decides whether a query text is an allowed read-only
// kind. It works on the flat token stream from sqlscan, so write keywords
// are matched as whole tokens: identifiers like updated_log or keywords
// inside string literals do not trip it. When the text cannot be scanned
// at all, it falls back to whole-string substring containment, keeping
// the conservative rejection bias for malformed input.
package classify

import (
	"fmt"
	"strings"

	"github.com/fuzzybassoon/pgguard/internal/sqlscan"
)

var readKinds = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"WITH":     true,
}

var writeKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE",
	"ALTER", "CREATE", "GRANT", "REVOKE", "REPLACE", "MERGE",
}

const readKindsReason = "only SELECT, SHOW, EXPLAIN, DESCRIBE, and WITH queries are allowed"

// Check returns nil if the query is an allowed read-only kind, or a
// descriptive error naming the violation. Pure function, no side effects.
func Check(sql string) error {
	toks, err := sqlscan.Scan(sql)
	if err != nil {
		return checkRaw(sql)
	}
	if len(toks) == 0 {
		return fmt.Errorf("%s", readKindsReason)
	}

	first := toks[0]
	if first.Kind != sqlscan.Word || first.Quoted || !readKinds[strings.ToUpper(first.Text)] {
		return fmt.Errorf("%s", readKindsReason)
	}

	for _, t := range toks {
		if t.Kind != sqlscan.Word || t.Quoted {
			continue
		}
		up := strings.ToUpper(t.Text)
		for _, kw := range writeKeywords {
			if up == kw {
				return fmt.Errorf("write operation '%s' is not allowed in read-only mode", kw)
			}
		}
	}
	return nil
}

// checkRaw is the containment fallback for text the scanner rejects.
// It can false-positive on identifiers containing a write keyword; for
// unscannable input that bias is the point.
func checkRaw(sql string) error {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	allowed := false
	for kind := range readKinds {
		if strings.HasPrefix(upper, kind) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%s", readKindsReason)
	}

	for _, kw := range writeKeywords {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("write operation '%s' is not allowed in read-only mode", kw)
		}
	}
	return nil
}
