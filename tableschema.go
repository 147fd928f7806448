package pgguard

import (
	"context"
	"time"

	"github.com/fuzzybassoon/pgguard/internal/audit"
)

const tableSchemaSQL = `
SELECT
    column_name,
    data_type,
    character_maximum_length,
    is_nullable,
    column_default
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position;
`

// GetTableSchema describes the columns of one table. The target is
// checked against the access policy first; the catalog query itself is
// fixed text with the table name bound as a parameter, so it never goes
// through the classifier pipeline.
func (g *Guard) GetTableSchema(ctx context.Context, input TableSchemaInput) (*TableSchemaOutput, error) {
	startTime := time.Now()

	schema := input.Schema
	if schema == "" {
		schema = "public"
	}
	target := schema + "." + input.Table

	if input.Table == "" {
		err := newError(ValidationRejected, "table name is required")
		g.audit.Record(audit.Event{
			Type:          audit.SchemaQuery,
			Query:         target,
			Error:         err.Reason,
			ExecutionTime: time.Since(startTime),
		})
		return nil, err
	}

	if decision := g.access.CheckTable(schema, input.Table); !decision.Allowed {
		g.audit.Record(audit.Event{
			Type:          audit.AccessDenied,
			Query:         target,
			Error:         decision.Reason,
			ExecutionTime: time.Since(startTime),
		})
		return nil, newError(AccessDenied, decision.Reason)
	}

	queryCtx, cancel := context.WithTimeout(ctx, g.policy.QueryTimeout())
	defer cancel()

	if err := g.acquireSlot(queryCtx, target, startTime); err != nil {
		return nil, err
	}
	defer func() { <-g.semaphore }()

	conn, err := g.pool.Acquire(queryCtx)
	if err != nil {
		return nil, g.queryFailure(queryCtx, target, startTime, err)
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, tableSchemaSQL, schema, input.Table)
	if err != nil {
		return nil, g.queryFailure(queryCtx, target, startTime, err)
	}
	defer rows.Close()

	var columns []ColumnDescriptor
	for rows.Next() {
		var (
			col        ColumnDescriptor
			maxLength  *int
			isNullable string
			defExpr    *string
		)
		if err := rows.Scan(&col.Name, &col.DataType, &maxLength, &isNullable, &defExpr); err != nil {
			return nil, g.queryFailure(queryCtx, target, startTime, err)
		}
		col.MaxLength = maxLength
		col.Nullable = isNullable == "YES"
		if defExpr != nil {
			col.DefaultExpr = *defExpr
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, g.queryFailure(queryCtx, target, startTime, err)
	}

	if columns == nil {
		columns = []ColumnDescriptor{}
	}

	g.audit.Record(audit.Event{
		Type:          audit.SchemaQuery,
		Query:         target,
		Success:       true,
		RowsReturned:  len(columns),
		ExecutionTime: time.Since(startTime),
	})
	g.logger.Info().
		Str("table", target).
		Dur("duration", time.Since(startTime)).
		Int("column_count", len(columns)).
		Msg("table schema fetched")

	return &TableSchemaOutput{
		Schema:  schema,
		Table:   input.Table,
		Columns: columns,
	}, nil
}
