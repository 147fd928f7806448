// Package pgguard provides read-only PostgreSQL access for AI agents
// through the Model Context Protocol (MCP), with policy enforcement in
// front of every request.
//
// It exposes four tools — query_database, get_table_schema, list_tables,
// and get_security_config. Each query passes through a fixed pipeline:
// classification (only SELECT, SHOW, EXPLAIN, DESCRIBE, and WITH query
// kinds are admitted), table extraction, schema blocklist and table
// allowlist checks, and LIMIT injection to cap result cardinality.
// Every terminal outcome produces one structured audit event.
//
// Parameter binding uses the pgx extended query protocol
// (QueryExecModeExec), and every pooled session runs with
// default_transaction_read_only set, so the lexical classifier is a
// policy layer rather than the only line of defense.
//
// # Library Usage
//
//	config, err := pgguard.FromEnv()
//	if err != nil {
//		log.Fatal(err)
//	}
//	guard, err := pgguard.New(ctx, config.Connection.ConnString(), *config, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer guard.Close(ctx)
//
//	// Use directly
//	result, err := guard.QueryDatabase(ctx, pgguard.QueryInput{
//		SQL:    "SELECT * FROM users WHERE id = $1",
//		Params: []any{42},
//	})
//
//	// Or register as MCP tools
//	pgguard.RegisterMCPTools(mcpServer, guard)
//
// Failures carry a typed [*Error]; use [KindOf] to branch on whether a
// request was rejected by validation, denied by the access policy, timed
// out, or failed in execution.
package pgguard
