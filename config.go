package pgguard

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Environment variable names read by FromEnv.
const (
	EnvMaxRows        = "MAX_ROWS_LIMIT"
	EnvQueryTimeout   = "QUERY_TIMEOUT_SECONDS"
	EnvAllowedTables  = "ALLOWED_TABLES"
	EnvBlockedSchemas = "BLOCKED_SCHEMAS"
	EnvAuditEnabled   = "ENABLE_AUDIT_LOG"
	EnvHost           = "POSTGRES_HOST"
	EnvPort           = "POSTGRES_PORT"
	EnvDatabase       = "POSTGRES_DATABASE"
	EnvUser           = "POSTGRES_USER"
	EnvPassword       = "POSTGRES_PASSWORD"
	EnvSSLMode        = "POSTGRES_SSL"
	EnvLogLevel       = "PGGUARD_LOG_LEVEL"
	EnvLogFormat      = "PGGUARD_LOG_FORMAT"
	EnvAuditPath      = "PGGUARD_AUDIT_PATH"
	EnvHTTPPort       = "PGGUARD_HTTP_PORT"
)

// Config is the full gateway configuration assembled at startup.
type Config struct {
	Policy     PolicyConfig
	Pool       PoolConfig
	Connection ConnectionConfig
	Logging    LoggingConfig
	AuditPath  string
	HTTPPort   int
}

// PolicyConfig is the serializable form of the security policy.
type PolicyConfig struct {
	MaxRows             int      `json:"max_rows_limit"`
	QueryTimeoutSeconds int      `json:"query_timeout_seconds"`
	AllowedTables       []string `json:"allowed_tables"`
	BlockedSchemas      []string `json:"blocked_schemas"`
	AuditEnabled        bool     `json:"audit_logging"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MinConns        int    `json:"min_conns"`
	MaxConns        int    `json:"max_conns"`
	MaxConnIdleTime string `json:"max_conn_idle_time"`
	// MaxConnQueries recycles a connection after this many uses.
	// 0 disables recycling.
	MaxConnQueries int64 `json:"max_conn_queries"`
}

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"-"`
	SSLMode  string `json:"sslmode"`
}

// ConnString renders the config as a keyword/value pgx connection string.
func (c ConnectionConfig) ConnString() string {
	var parts []string
	if c.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", c.Host))
	}
	if c.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", c.Port))
	}
	if c.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", c.Database))
	}
	if c.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", c.User))
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}
	if c.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", c.SSLMode))
	}
	return strings.Join(parts, " ")
}

// LoggingConfig holds process logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, stderr, or file path
}

// Policy is the immutable access-control and resource-limit snapshot for
// the process lifetime. Constructed once at startup; all reads return
// copies, so the snapshot cannot be mutated afterwards.
type Policy struct {
	maxRows        int
	queryTimeout   time.Duration
	allowedTables  map[string]bool
	blockedSchemas map[string]bool
	auditEnabled   bool
}

// NewPolicy builds a Policy from its serializable form. Table and schema
// entries are lower-cased and blank entries are dropped.
func NewPolicy(cfg PolicyConfig) *Policy {
	p := &Policy{
		maxRows:        cfg.MaxRows,
		queryTimeout:   time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		allowedTables:  make(map[string]bool, len(cfg.AllowedTables)),
		blockedSchemas: make(map[string]bool, len(cfg.BlockedSchemas)),
		auditEnabled:   cfg.AuditEnabled,
	}
	for _, t := range cfg.AllowedTables {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			p.allowedTables[t] = true
		}
	}
	for _, s := range cfg.BlockedSchemas {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			p.blockedSchemas[s] = true
		}
	}
	return p
}

// MaxRows is the row cap injected into unbounded queries.
func (p *Policy) MaxRows() int { return p.maxRows }

// QueryTimeout is the per-request execution deadline.
func (p *Policy) QueryTimeout() time.Duration { return p.queryTimeout }

// AuditEnabled reports whether audit events are recorded.
func (p *Policy) AuditEnabled() bool { return p.auditEnabled }

// AllowedTables returns the sorted allowlist. Empty means unrestricted.
func (p *Policy) AllowedTables() []string { return sortedKeys(p.allowedTables) }

// BlockedSchemas returns the sorted schema blocklist.
func (p *Policy) BlockedSchemas() []string { return sortedKeys(p.blockedSchemas) }

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FromEnv reads the gateway configuration from environment variables,
// applying documented defaults for anything unset. Malformed numeric or
// boolean values are errors: a policy limit that silently fell back to a
// default would hide a misconfiguration.
func FromEnv() (*Config, error) {
	maxRows, err := envInt(EnvMaxRows, 1000)
	if err != nil {
		return nil, err
	}
	timeoutSec, err := envInt(EnvQueryTimeout, 30)
	if err != nil {
		return nil, err
	}
	auditEnabled, err := envBool(EnvAuditEnabled, true)
	if err != nil {
		return nil, err
	}
	port, err := envInt(EnvPort, 5432)
	if err != nil {
		return nil, err
	}
	httpPort, err := envInt(EnvHTTPPort, 0)
	if err != nil {
		return nil, err
	}

	return &Config{
		Policy: PolicyConfig{
			MaxRows:             maxRows,
			QueryTimeoutSeconds: timeoutSec,
			AllowedTables:       envList(EnvAllowedTables, nil),
			BlockedSchemas:      envList(EnvBlockedSchemas, []string{"pg_catalog", "information_schema"}),
			AuditEnabled:        auditEnabled,
		},
		Pool: PoolConfig{
			MinConns:        2,
			MaxConns:        10,
			MaxConnIdleTime: "300s",
			MaxConnQueries:  50000,
		},
		Connection: ConnectionConfig{
			Host:     envString(EnvHost, "localhost"),
			Port:     port,
			Database: envString(EnvDatabase, "postgres"),
			User:     envString(EnvUser, "postgres"),
			Password: os.Getenv(EnvPassword),
			SSLMode:  envString(EnvSSLMode, "prefer"),
		},
		Logging: LoggingConfig{
			Level:  envString(EnvLogLevel, "info"),
			Format: envString(EnvLogFormat, "json"),
			Output: "stderr",
		},
		AuditPath: envString(EnvAuditPath, "pgguard_audit.log"),
		HTTPPort:  httpPort,
	}, nil
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return n, nil
}

func envBool(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return b, nil
}

func envList(name string, def []string) []string {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
