// Package audit emits one structured record per pipeline decision point.
// Events are append-only and never read back by the gateway; recording
// never fails the request that produced the event.
package audit

import (
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies the pipeline decision point an event records.
type EventType string

const (
	QueryBlocked EventType = "QUERY_BLOCKED"
	AccessDenied EventType = "ACCESS_DENIED"
	QueryTimeout EventType = "QUERY_TIMEOUT"
	QuerySuccess EventType = "QUERY_SUCCESS"
	SchemaQuery  EventType = "SCHEMA_QUERY"
	ListTables   EventType = "LIST_TABLES"
	Error        EventType = "ERROR"
)

// Event is one audit record. Query text is truncated to 500 characters
// when recorded.
type Event struct {
	Type          EventType
	Query         string
	Success       bool
	Error         string
	RowsReturned  int
	ExecutionTime time.Duration
}

// Recorder writes audit events as single-line JSON records via zerolog.
type Recorder struct {
	logger  zerolog.Logger
	enabled bool
	user    string
	host    string
}

// NewRecorder creates a Recorder writing through the given logger.
// user and host identify the configured database identity and are
// stamped on every event. When enabled is false, Record is a no-op.
func NewRecorder(logger zerolog.Logger, enabled bool, user, host string) *Recorder {
	return &Recorder{
		logger:  logger.With().Timestamp().Logger(),
		enabled: enabled,
		user:    user,
		host:    host,
	}
}

// Enabled reports whether events are being recorded.
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// Record emits one event. Successful outcomes log at info level, failures
// at warn. Never returns an error: a logging failure must not affect the
// decision already made.
func (r *Recorder) Record(ev Event) {
	if !r.enabled {
		return
	}
	logEvent := r.logger.Info()
	if !ev.Success {
		logEvent = r.logger.Warn()
	}
	logEvent.
		Str("event_type", string(ev.Type)).
		Str("query", truncate(ev.Query, 500)).
		Bool("success", ev.Success).
		Str("error", ev.Error).
		Int("rows_returned", ev.RowsReturned).
		Float64("execution_time_ms", float64(ev.ExecutionTime.Microseconds())/1000.0).
		Str("user", r.user).
		Str("host", r.host).
		Msg("audit")
}

// truncate cuts s to at most maxChars runes.
func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
