package classify

import (
	"strings"
	"testing"
)

func assertAllowed(t *testing.T, sql string) {
	t.Helper()
	if err := Check(sql); err != nil {
		t.Fatalf("expected query to be allowed: %q, got error: %v", sql, err)
	}
}

func assertBlocked(t *testing.T, sql, errContains string) {
	t.Helper()
	err := Check(sql)
	if err == nil {
		t.Fatalf("expected error containing %q for query %q, got nil", errContains, sql)
	}
	if !strings.Contains(err.Error(), errContains) {
		t.Fatalf("expected error containing %q, got %q", errContains, err.Error())
	}
}

func TestCheck_SelectAllowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "SELECT * FROM users")
}

func TestCheck_LowercaseSelect(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "select 1")
}

func TestCheck_LeadingWhitespace(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "   \n\tSELECT 1")
}

func TestCheck_ShowAllowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "SHOW search_path")
}

func TestCheck_ExplainAllowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "EXPLAIN SELECT * FROM users")
}

func TestCheck_WithAllowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "WITH t AS (SELECT 1) SELECT * FROM t")
}

func TestCheck_InsertBlocked(t *testing.T) {
	t.Parallel()
	assertBlocked(t, "INSERT INTO users VALUES (1)", "only SELECT, SHOW, EXPLAIN, DESCRIBE, and WITH queries are allowed")
}

func TestCheck_UpdateKeywordInsideSelect(t *testing.T) {
	t.Parallel()
	assertBlocked(t, "SELECT * FROM users FOR UPDATE", "write operation 'UPDATE' is not allowed in read-only mode")
}

func TestCheck_ExplainWrappingWrite(t *testing.T) {
	t.Parallel()
	assertBlocked(t, "EXPLAIN DELETE FROM users", "write operation 'DELETE' is not allowed in read-only mode")
}

func TestCheck_CTEWrappingWrite(t *testing.T) {
	t.Parallel()
	assertBlocked(t, "WITH x AS (DELETE FROM users RETURNING *) SELECT * FROM x", "write operation 'DELETE' is not allowed")
}

func TestCheck_EmptyQuery(t *testing.T) {
	t.Parallel()
	assertBlocked(t, "", "only SELECT, SHOW, EXPLAIN, DESCRIBE, and WITH queries are allowed")
}

func TestCheck_WhitespaceOnly(t *testing.T) {
	t.Parallel()
	assertBlocked(t, "  \n ", "only SELECT, SHOW, EXPLAIN, DESCRIBE, and WITH queries are allowed")
}

// Identifiers that merely contain a write keyword are legal reads.
func TestCheck_IdentifierContainingKeyword(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "SELECT * FROM updated_log")
	assertAllowed(t, "SELECT created_at, deleted_flag FROM audit_trail")
}

// Write keywords inside string literals carry no statement semantics.
func TestCheck_KeywordInStringLiteral(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "SELECT * FROM notes WHERE body = 'please DROP me a line'")
}

func TestCheck_KeywordInQuotedIdentifier(t *testing.T) {
	t.Parallel()
	assertAllowed(t, `SELECT "DELETE" FROM actions`)
}

func TestCheck_KeywordInComment(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "SELECT 1 -- TRUNCATE nothing\n")
}

// Unscannable text falls back to the conservative substring check.
func TestCheck_UnscannableInputRejectsOnContainment(t *testing.T) {
	t.Parallel()
	assertBlocked(t, "SELECT updated_log FROM t WHERE x = 'unterminated", "write operation 'UPDATE' is not allowed")
}

func TestCheck_UnscannableReadStillAllowed(t *testing.T) {
	t.Parallel()
	assertAllowed(t, "SELECT name FROM t WHERE x = 'unterminated")
}

func TestCheck_AllWriteKeywordsBlocked(t *testing.T) {
	t.Parallel()
	for _, kw := range writeKeywords {
		assertBlocked(t, "SELECT 1 "+kw, "write operation '"+kw+"' is not allowed in read-only mode")
	}
}

func TestCheck_FirstTokenQuotedIdentRejected(t *testing.T) {
	t.Parallel()
	assertBlocked(t, `"SELECT" 1`, "only SELECT, SHOW, EXPLAIN, DESCRIBE, and WITH queries are allowed")
}
