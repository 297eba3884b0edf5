package garminconnect

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode categorizes client errors. Every error returned by this package
// carries exactly one of these codes, so callers can branch on the predicate
// helpers without inspecting statuses or messages.
type ErrorCode string

const (
	// ErrConnection covers transport failures, timeouts, and requests the
	// service refused at the network edge.
	ErrConnection ErrorCode = "connection"
	// ErrAuthentication covers rejected credentials and sessions the service
	// no longer accepts.
	ErrAuthentication ErrorCode = "authentication"
	// ErrTooManyRequests reports a rate limit. The client never retries
	// these; pacing is the caller's job.
	ErrTooManyRequests ErrorCode = "too_many_requests"
	// ErrUnknown covers unexpected response statuses and payloads that fail
	// to parse.
	ErrUnknown ErrorCode = "unknown"
	// ErrConfiguration reports invalid local input detected before any
	// network traffic.
	ErrConfiguration ErrorCode = "configuration"
)

// Error provides rich context for client consumers. Credential values never
// appear in Message or in the wrapped error.
type Error struct {
	Code       ErrorCode
	Message    string
	Status     int           // HTTP status when produced from a response
	RetryAfter time.Duration // backoff hint from a rate-limit response
	wrapped    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.wrapped != nil && e.Message != e.wrapped.Error() {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// newError builds an Error explicitly.
func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// wrapError classifies err under code unless it already carries a
// classification, which is kept.
func wrapError(err error, code ErrorCode) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Code: code, Message: err.Error(), wrapped: err}
}

func classify(code ErrorCode) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		var ce *Error
		if errors.As(err, &ce) {
			return ce.Code == code
		}
		return false
	}
}

// Helper predicates for the error kinds a caller can branch on.
var (
	IsConnectionError      = classify(ErrConnection)
	IsAuthenticationError  = classify(ErrAuthentication)
	IsTooManyRequestsError = classify(ErrTooManyRequests)
	IsUnknownError         = classify(ErrUnknown)
	IsConfigurationError   = classify(ErrConfiguration)
)

// RetryAfterHint extracts the backoff hint from a rate-limit error. It
// returns zero when the service sent none.
func RetryAfterHint(err error) time.Duration {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.RetryAfter
	}
	return 0
}
