package pgguard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/fuzzybassoon/pgguard/internal/access"
	"github.com/fuzzybassoon/pgguard/internal/audit"
	"github.com/fuzzybassoon/pgguard/internal/rewrite"
	"github.com/fuzzybassoon/pgguard/internal/tables"
)

// Guard is the policy-enforcement engine in front of the database. It
// provides the QueryDatabase, GetTableSchema, ListTables, and
// SecurityConfig operations. All exported methods are safe for
// concurrent use from multiple goroutines; the connection pool is the
// only shared resource.
type Guard struct {
	policy    *Policy
	pool      *pgxpool.Pool
	semaphore chan struct{}
	extractor TableExtractor
	rewriter  LimitRewriter
	access    *access.Guard
	audit     *audit.Recorder
	logger    zerolog.Logger
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	auditLogger *zerolog.Logger
	extractor   TableExtractor
	rewriter    LimitRewriter
}

// WithAuditLogger directs audit events to a dedicated logger (typically
// an append-only file sink). Without it, audit events share the process
// logger.
func WithAuditLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.auditLogger = &logger
	}
}

// WithTableExtractor substitutes the table-reference extractor.
func WithTableExtractor(e TableExtractor) Option {
	return func(o *options) {
		o.extractor = e
	}
}

// WithLimitRewriter substitutes the row-limit rewriter.
func WithLimitRewriter(r LimitRewriter) Option {
	return func(o *options) {
		o.rewriter = r
	}
}

// New creates a Guard and its connection pool. connString is the
// PostgreSQL connection string (must include credentials). Panics on
// invalid config; returns an error only for runtime failures such as
// pool creation.
func New(ctx context.Context, connString string, config Config, logger zerolog.Logger, opts ...Option) (*Guard, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if connString == "" {
		panic("pgguard: connString must be non-empty")
	}
	if config.Policy.MaxRows <= 0 {
		panic("pgguard: policy.max_rows_limit must be > 0")
	}
	if config.Policy.QueryTimeoutSeconds <= 0 {
		panic("pgguard: policy.query_timeout_seconds must be > 0")
	}
	if config.Pool.MaxConns <= 0 {
		panic("pgguard: pool.max_conns must be > 0")
	}
	if config.Pool.MinConns < 0 || config.Pool.MinConns > config.Pool.MaxConns {
		panic("pgguard: pool.min_conns must be between 0 and pool.max_conns")
	}
	if config.Pool.MaxConnQueries < 0 {
		panic("pgguard: pool.max_conn_queries must be >= 0")
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.Pool.MaxConns)
	poolConfig.MinConns = int32(config.Pool.MinConns)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	if config.Pool.MaxConnIdleTime != "" {
		d, err := time.ParseDuration(config.Pool.MaxConnIdleTime)
		if err != nil {
			panic(fmt.Sprintf("pgguard: invalid pool.max_conn_idle_time %q: %v", config.Pool.MaxConnIdleTime, err))
		}
		poolConfig.MaxConnIdleTime = d
	}

	// Session-level read-only guard behind the classifier: even a query
	// the lexical layer misjudges cannot write.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "SET default_transaction_read_only = on"); err != nil {
			return fmt.Errorf("failed to SET default_transaction_read_only: %w", err)
		}
		return nil
	}

	// pgxpool has no per-connection use counter, so the recycle
	// threshold is enforced by counting releases and evicting.
	if config.Pool.MaxConnQueries > 0 {
		var mu sync.Mutex
		counts := make(map[*pgx.Conn]int64)
		threshold := config.Pool.MaxConnQueries
		poolConfig.AfterRelease = func(conn *pgx.Conn) bool {
			mu.Lock()
			defer mu.Unlock()
			counts[conn]++
			if counts[conn] >= threshold {
				delete(counts, conn)
				return false
			}
			return true
		}
		poolConfig.BeforeClose = func(conn *pgx.Conn) {
			mu.Lock()
			delete(counts, conn)
			mu.Unlock()
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	policy := NewPolicy(config.Policy)

	auditLogger := logger
	if o.auditLogger != nil {
		auditLogger = *o.auditLogger
	}
	extractor := o.extractor
	if extractor == nil {
		extractor = lexicalExtractor{}
	}
	rewriter := o.rewriter
	if rewriter == nil {
		rewriter = limitRewriter{}
	}

	return &Guard{
		policy:    policy,
		pool:      pool,
		semaphore: make(chan struct{}, config.Pool.MaxConns),
		extractor: extractor,
		rewriter:  rewriter,
		access:    access.NewGuard(policy.AllowedTables(), policy.BlockedSchemas()),
		audit:     audit.NewRecorder(auditLogger, policy.AuditEnabled(), config.Connection.User, config.Connection.Host),
		logger:    logger,
	}, nil
}

// Ping verifies database connectivity through the pool.
func (g *Guard) Ping(ctx context.Context) error {
	return g.pool.Ping(ctx)
}

// Close closes the connection pool. Accepts context for API
// forward-compatibility; pgxpool.Pool.Close() does not support
// context-based shutdown.
func (g *Guard) Close(ctx context.Context) {
	g.pool.Close()
}

// SecurityConfig returns the operator-visible policy snapshot. No side
// effects, no database access.
func (g *Guard) SecurityConfig() SecurityConfigOutput {
	return SecurityConfigOutput{
		MaxRows:             g.policy.MaxRows(),
		QueryTimeoutSeconds: int(g.policy.QueryTimeout() / time.Second),
		AllowedTables:       g.policy.AllowedTables(),
		BlockedSchemas:      g.policy.BlockedSchemas(),
		AuditEnabled:        g.policy.AuditEnabled(),
		AllowedOperations:   []string{"SELECT", "SHOW", "EXPLAIN", "DESCRIBE", "WITH"},
		BlockedOperations: []string{
			"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE",
			"ALTER", "CREATE", "GRANT", "REVOKE", "REPLACE", "MERGE",
		},
	}
}

// lexicalExtractor is the default TableExtractor, backed by the
// FROM/JOIN token scan in internal/tables.
type lexicalExtractor struct{}

func (lexicalExtractor) Extract(sql string) []TableRef {
	found := tables.Extract(sql)
	refs := make([]TableRef, len(found))
	for i, r := range found {
		refs[i] = TableRef{Schema: r.Schema, Table: r.Table}
	}
	return refs
}

// limitRewriter is the default LimitRewriter, backed by the textual
// LIMIT injection in internal/rewrite.
type limitRewriter struct{}

func (limitRewriter) EnsureLimit(sql string, maxRows int) string {
	return rewrite.EnsureLimit(sql, maxRows)
}
