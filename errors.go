package pgguard

import "errors"

// ErrorKind identifies the terminal failure class of a request. Every
// rejection or failure is one of exactly four kinds; none are retried
// internally.
type ErrorKind string

const (
	// ValidationRejected means the classifier refused the query text.
	ValidationRejected ErrorKind = "validation_rejected"
	// AccessDenied means the access guard refused a table reference.
	AccessDenied ErrorKind = "access_denied"
	// TimeoutExceeded means the execution deadline elapsed.
	TimeoutExceeded ErrorKind = "timeout_exceeded"
	// ExecutionFailed covers driver, pool, and connection errors.
	ExecutionFailed ErrorKind = "execution_failed"
)

// Error is the gateway's terminal request error. The audit sink records
// Reason before the error is returned; nothing is swallowed silently.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err, unwrapping as needed.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func newError(kind ErrorKind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func wrapError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}
