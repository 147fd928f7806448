package pgguard

// TableRef is a normalized (schema, table) pair referenced by a query.
// Both parts are lower-cased; schema defaults to "public" when the
// source text leaves it unqualified.
type TableRef struct {
	Schema string
	Table  string
}

func (r TableRef) String() string {
	return r.Schema + "." + r.Table
}

// TableExtractor produces the table references a query text mentions.
// The default implementation is a lexical FROM/JOIN scan; stricter
// parsing can be substituted without touching the rest of the pipeline.
type TableExtractor interface {
	Extract(sql string) []TableRef
}

// LimitRewriter bounds result cardinality. The default implementation is
// a textual LIMIT injection; a plan-inspecting implementation could be
// substituted without changing the executor contract.
type LimitRewriter interface {
	EnsureLimit(sql string, maxRows int) string
}

// QueryInput is the input for QueryDatabase. Params are positional
// values bound to $1, $2, ... placeholders. Inputs are never mutated:
// rewriting produces new query text.
type QueryInput struct {
	SQL    string `json:"query"`
	Params []any  `json:"params,omitempty"`
}

// Restrictions echoes the policy limits applied to a query.
type Restrictions struct {
	MaxRows        int `json:"max_rows_limit"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// QueryResult is the materialized output of a successful query.
type QueryResult struct {
	RowCount        int              `json:"row_count"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
	Columns         []string         `json:"columns"`
	Rows            []map[string]any `json:"rows"`
	Restrictions    Restrictions     `json:"restrictions"`
}

// TableSchemaInput is the input for GetTableSchema. Schema defaults to
// "public" when empty.
type TableSchemaInput struct {
	Table  string `json:"table"`
	Schema string `json:"schema"`
}

// ColumnDescriptor describes a single column of a table.
type ColumnDescriptor struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	MaxLength   *int   `json:"max_length,omitempty"`
	Nullable    bool   `json:"nullable"`
	DefaultExpr string `json:"default_expr,omitempty"`
}

// TableSchemaOutput is the output of GetTableSchema.
type TableSchemaOutput struct {
	Schema  string             `json:"schema"`
	Table   string             `json:"table"`
	Columns []ColumnDescriptor `json:"columns"`
}

// ListTablesInput is the input for ListTables. Schema narrows the
// listing to one schema when set.
type ListTablesInput struct {
	Schema string `json:"schema,omitempty"`
}

// TableIdent identifies one listed table.
type TableIdent struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// ListTablesOutput is the output of ListTables.
type ListTablesOutput struct {
	Tables []TableIdent `json:"tables"`
}

// SecurityConfigOutput is the operator-visible policy snapshot.
type SecurityConfigOutput struct {
	MaxRows             int      `json:"max_rows_limit"`
	QueryTimeoutSeconds int      `json:"query_timeout_seconds"`
	AllowedTables       []string `json:"allowed_tables"` // empty = unrestricted
	BlockedSchemas      []string `json:"blocked_schemas"`
	AuditEnabled        bool     `json:"audit_logging"`
	AllowedOperations   []string `json:"allowed_operations"`
	BlockedOperations   []string `json:"blocked_operations"`
}
