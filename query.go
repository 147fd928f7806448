package pgguard

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fuzzybassoon/pgguard/internal/access"
	"github.com/fuzzybassoon/pgguard/internal/audit"
	"github.com/fuzzybassoon/pgguard/internal/classify"
)

// QueryDatabase runs the full enforcement pipeline on input and executes
// the (possibly rewritten) query. Each request goes through classify,
// extract, access check, and limit rewrite before touching a connection;
// every exit, success or failure, produces exactly one audit event.
func (g *Guard) QueryDatabase(ctx context.Context, input QueryInput) (*QueryResult, error) {
	startTime := time.Now()

	// The policy deadline covers the whole request, admission included, so
	// a saturated semaphore cannot queue a request indefinitely.
	queryCtx, cancel := context.WithTimeout(ctx, g.policy.QueryTimeout())
	defer cancel()

	if err := g.acquireSlot(queryCtx, input.SQL, startTime); err != nil {
		return nil, err
	}
	defer func() { <-g.semaphore }()

	sql, err := g.vet(input.SQL, startTime)
	if err != nil {
		return nil, err
	}

	conn, err := g.pool.Acquire(queryCtx)
	if err != nil {
		return nil, g.queryFailure(queryCtx, input.SQL, startTime, err)
	}
	defer conn.Release()

	rows, err := conn.Query(queryCtx, sql, input.Params...)
	if err != nil {
		return nil, g.queryFailure(queryCtx, input.SQL, startTime, err)
	}

	columns, resultRows, err := collectRows(rows)
	if err != nil {
		return nil, g.queryFailure(queryCtx, input.SQL, startTime, err)
	}

	elapsed := time.Since(startTime)
	g.audit.Record(audit.Event{
		Type:          audit.QuerySuccess,
		Query:         input.SQL,
		Success:       true,
		RowsReturned:  len(resultRows),
		ExecutionTime: elapsed,
	})
	g.logger.Info().
		Str("sql", truncateForLog(sql, 200)).
		Dur("duration", elapsed).
		Int("row_count", len(resultRows)).
		Msg("query executed")

	return &QueryResult{
		RowCount:        len(resultRows),
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000.0,
		Columns:         columns,
		Rows:            resultRows,
		Restrictions: Restrictions{
			MaxRows:        g.policy.MaxRows(),
			TimeoutSeconds: int(g.policy.QueryTimeout() / time.Second),
		},
	}, nil
}

// acquireSlot waits for an admission slot under the queryCtx deadline.
// Deadline expiry while queued is the policy timeout firing; caller
// cancellation is reported as such so the audit trail does not misstate
// pool pressure. Either way the failure is audited here.
func (g *Guard) acquireSlot(queryCtx context.Context, sql string, startTime time.Time) error {
	select {
	case g.semaphore <- struct{}{}:
		return nil
	case <-queryCtx.Done():
	}

	if queryCtx.Err() == context.DeadlineExceeded {
		reason := fmt.Sprintf(
			"failed to acquire query slot: all %d connection slots are in use; query exceeded timeout limit of %s",
			cap(g.semaphore), g.policy.QueryTimeout())
		g.audit.Record(audit.Event{
			Type:          audit.QueryTimeout,
			Query:         sql,
			Error:         reason,
			ExecutionTime: time.Since(startTime),
		})
		return wrapError(TimeoutExceeded, reason, queryCtx.Err())
	}

	reason := fmt.Sprintf(
		"failed to acquire query slot: all %d connection slots are in use, context cancelled while waiting",
		cap(g.semaphore))
	g.audit.Record(audit.Event{
		Type:          audit.Error,
		Query:         sql,
		Error:         reason,
		ExecutionTime: time.Since(startTime),
	})
	return wrapError(ExecutionFailed, reason, queryCtx.Err())
}

// vet runs the pre-execution stages: classification, table extraction,
// access check, and limit rewrite. Returns the query text to execute.
// Rejections are audited here before being returned.
func (g *Guard) vet(sql string, startTime time.Time) (string, error) {
	if err := classify.Check(sql); err != nil {
		g.audit.Record(audit.Event{
			Type:          audit.QueryBlocked,
			Query:         sql,
			Error:         err.Error(),
			ExecutionTime: time.Since(startTime),
		})
		return "", newError(ValidationRejected, err.Error())
	}

	refs := g.extractor.Extract(sql)
	accessRefs := make([]access.Ref, len(refs))
	for i, r := range refs {
		accessRefs[i] = access.Ref{Schema: r.Schema, Table: r.Table}
	}
	if decision := g.access.Check(accessRefs); !decision.Allowed {
		g.audit.Record(audit.Event{
			Type:          audit.AccessDenied,
			Query:         sql,
			Error:         decision.Reason,
			ExecutionTime: time.Since(startTime),
		})
		return "", newError(AccessDenied, decision.Reason)
	}

	return g.rewriter.EnsureLimit(sql, g.policy.MaxRows()), nil
}

// queryFailure classifies an execution-phase error, audits it, and wraps
// it in the gateway error taxonomy. A deadline-expired queryCtx means the
// policy timeout fired, regardless of the driver error's surface shape.
func (g *Guard) queryFailure(queryCtx context.Context, sql string, startTime time.Time, err error) error {
	if queryCtx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		reason := fmt.Sprintf("query exceeded timeout limit of %s", g.policy.QueryTimeout())
		g.audit.Record(audit.Event{
			Type:          audit.QueryTimeout,
			Query:         sql,
			Error:         reason,
			ExecutionTime: time.Since(startTime),
		})
		return wrapError(TimeoutExceeded, reason, err)
	}

	g.audit.Record(audit.Event{
		Type:          audit.Error,
		Query:         sql,
		Error:         err.Error(),
		ExecutionTime: time.Since(startTime),
	})
	return wrapError(ExecutionFailed, "query execution failed", err)
}

// collectRows reads all rows and returns column names plus materialized
// row maps.
func collectRows(rows pgx.Rows) ([]string, []map[string]any, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return columns, resultRows, nil
}

// convertValue converts a pgx-returned value to a JSON-friendly Go type.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		if math.IsNaN(float64(val)) {
			return "NaN"
		}
		if math.IsInf(float64(val), 1) {
			return "Infinity"
		}
		if math.IsInf(float64(val), -1) {
			return "-Infinity"
		}
		return val
	case float64:
		if math.IsNaN(val) {
			return "NaN"
		}
		if math.IsInf(val, 1) {
			return "Infinity"
		}
		if math.IsInf(val, -1) {
			return "-Infinity"
		}
		return val
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.NaN {
			return "NaN"
		}
		if val.InfinityModifier == pgtype.Infinity {
			return "Infinity"
		}
		if val.InfinityModifier == pgtype.NegativeInfinity {
			return "-Infinity"
		}
		b, err := val.MarshalJSON()
		if err != nil {
			return nil
		}
		return string(b)
	case [16]byte:
		// UUID
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	case []byte:
		// bytea, xml
		return base64.StdEncoding.EncodeToString(val)
	case string:
		return val
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertValue(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertValue(v)
		}
		return result
	default:
		return val
	}
}

// truncateForLog cuts sql to maxLen runes for log lines, marking the cut.
func truncateForLog(sql string, maxLen int) string {
	runes := []rune(sql)
	if len(runes) <= maxLen {
		return sql
	}
	return strings.TrimRight(string(runes[:maxLen]), " ") + "..."
}
