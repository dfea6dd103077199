package oboe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Error types carried by APIError.Type.
const (
	ErrorTypeNetwork     = "Network"
	ErrorTypeTimeout     = "Timeout"
	ErrorTypeCanceled    = "Canceled"
	ErrorTypeHTTP        = "HTTP"
	ErrorTypeEnvelope    = "Envelope"
	ErrorTypeInterceptor = "Interceptor"
	ErrorTypeValidation  = "Validation"
	ErrorTypeRateLimit   = "RateLimit"
)

// Codes filled in when the server does not supply one.
const (
	CodeNetwork     = "NETWORK_ERROR"
	CodeTimeout     = "TIMEOUT"
	CodeCanceled    = "CANCELED"
	CodeEnvelope    = "MALFORMED_ENVELOPE"
	CodeInterceptor = "INTERCEPTOR_ERROR"
	CodeValidation  = "INVALID_CONFIGURATION"
	CodeRateLimit   = "RATE_LIMITED"
	CodeDisabled    = "QUERY_DISABLED"
)

var (
	// ErrMalformedEnvelope is the cause of an Envelope error: the body was not
	// JSON or had no "data" member.
	ErrMalformedEnvelope = errors.New("oboe: malformed response envelope")

	// ErrQueryDisabled is returned by a query whose enablement condition is off.
	ErrQueryDisabled = errors.New("oboe: query disabled")

	// ErrNoBaseURL is reported when a client is built without a base URL.
	ErrNoBaseURL = errors.New("oboe: base URL not configured")
)

// APIError is the normalized failure every transport and adapter call
// surfaces. Message, Status and Code form the wire shape; the remaining
// fields are diagnostics and are never serialized.
type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`

	Type      string        `json:"-"`
	Method    string        `json:"-"`
	URL       string        `json:"-"`
	RequestID string        `json:"-"`
	Timestamp time.Time     `json:"-"`
	Duration  time.Duration `json:"-"`
	Cause     error         `json:"-"`
}

// Error implements error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *APIError by Type, and by Status when the target sets one.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	if t.Type != "" && t.Type != e.Type {
		return false
	}
	if t.Status != 0 && t.Status != e.Status {
		return false
	}
	return t.Type != "" || t.Status != 0
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *APIError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.Status > 0 {
		info += fmt.Sprintf("Status: %d\n", e.Status)
	}
	if e.Code != "" {
		info += fmt.Sprintf("Code: %s\n", e.Code)
	}
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// AsAPIError normalizes any error into an *APIError. An *APIError anywhere in
// the chain is returned as is; context and net timeouts become Timeout,
// cancellation becomes Canceled and everything else is a Network failure.
// It returns nil for a nil error.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	e := &APIError{Cause: err, Timestamp: time.Now()}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Type, e.Code, e.Message = ErrorTypeTimeout, CodeTimeout, "request timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Type, e.Code, e.Message = ErrorTypeTimeout, CodeTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		e.Type, e.Code, e.Message = ErrorTypeCanceled, CodeCanceled, "request canceled"
	default:
		e.Type, e.Code, e.Message = ErrorTypeNetwork, CodeNetwork, "network request failed"
	}
	return e
}

// IsTransient reports whether err is the kind of failure that can succeed on
// a later attempt: network errors, timeouts, rate limiting, 5xx and 429.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	case ErrorTypeHTTP:
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsUnauthorized reports whether err is an HTTP 401 failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeHTTP && apiErr.Status == http.StatusUnauthorized
}
