package pgguard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fuzzybassoon/pgguard/internal/audit"
)

const listTablesAllSQL = `
SELECT schemaname, tablename
FROM pg_catalog.pg_tables
WHERE schemaname <> ALL($1)
ORDER BY schemaname, tablename;
`

const listTablesSchemaSQL = `
SELECT schemaname, tablename
FROM pg_catalog.pg_tables
WHERE schemaname = $1
ORDER BY schemaname, tablename;
`

// ListTables enumerates base tables visible under the policy. Without a
// schema argument it lists everything outside the blocked schemas; with
// one it lists that schema after checking it against the blocklist. The
// allowlist filter always applies, so the listing never names a table
// QueryDatabase would refuse.
func (g *Guard) ListTables(ctx context.Context, input ListTablesInput) (*ListTablesOutput, error) {
	startTime := time.Now()

	var (
		sql  string
		args []any
	)
	if input.Schema != "" {
		schema := strings.ToLower(input.Schema)
		if g.access.SchemaBlocked(schema) {
			reason := fmt.Sprintf("access to schema '%s' is not allowed", schema)
			g.audit.Record(audit.Event{
				Type:          audit.AccessDenied,
				Query:         "list_tables " + schema,
				Error:         reason,
				ExecutionTime: time.Since(startTime),
			})
			return nil, newError(AccessDenied, reason)
		}
		sql = listTablesSchemaSQL
		args = []any{schema}
	} else {
		sql = listTablesAllSQL
		args = []any{g.policy.BlockedSchemas()}
	}

	queryCtx, cancel := context.WithTimeout(ctx, g.policy.QueryTimeout())
	defer cancel()

	if err := g.acquireSlot(queryCtx, "list_tables", startTime); err != nil {
		return nil, err
	}
	defer func() { <-g.semaphore }()

	conn, err := g.pool.Acquire(queryCtx)
	if err != nil {
		return nil, g.queryFailure(queryCtx, "list_tables", startTime, err)
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, sql, args...)
	if err != nil {
		return nil, g.queryFailure(queryCtx, "list_tables", startTime, err)
	}
	defer rows.Close()

	tables := []TableIdent{}
	for rows.Next() {
		var ident TableIdent
		if err := rows.Scan(&ident.Schema, &ident.Table); err != nil {
			return nil, g.queryFailure(queryCtx, "list_tables", startTime, err)
		}
		if !g.access.TableAllowed(ident.Schema, ident.Table) {
			continue
		}
		tables = append(tables, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, g.queryFailure(queryCtx, "list_tables", startTime, err)
	}

	g.audit.Record(audit.Event{
		Type:          audit.ListTables,
		Query:         "list_tables",
		Success:       true,
		RowsReturned:  len(tables),
		ExecutionTime: time.Since(startTime),
	})
	g.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("tables listed")

	return &ListTablesOutput{Tables: tables}, nil
}
