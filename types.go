package oboe

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Envelope is the wrapper every successful API response uses.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"status"`
}

// Request describes an outgoing call before it is turned into an
// *http.Request. Path is resolved against the client base URL. Body is sent
// raw when it is a []byte or io.Reader and JSON encoded otherwise.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Clone returns a copy that interceptors can change without affecting the
// caller's descriptor. Body is shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Header != nil {
		clone.Header = r.Header.Clone()
	}
	if r.Query != nil {
		clone.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			clone.Query[k] = append([]string(nil), v...)
		}
	}
	return &clone
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Request    *Request
	RequestID  string
	Duration   time.Duration
}

// QueryKey identifies a cached read. Keys are opaque to the transport.
type QueryKey []string

// Hash returns the cache identity of the key. Distinct keys never collide.
func (k QueryKey) Hash() string {
	// Marshalling a []string cannot fail.
	b, _ := json.Marshal([]string(k))
	return string(b)
}

// HasPrefix reports whether prefix matches the leading segments of k. An
// empty prefix matches every key.
func (k QueryKey) HasPrefix(prefix QueryKey) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// String renders the key for logs.
func (k QueryKey) String() string {
	return "[" + strings.Join(k, " ") + "]"
}

// Scope returns the first key element, the label used by query metrics.
// Later elements usually carry ids and are left out to bound cardinality.
func (k QueryKey) Scope() string {
	if len(k) == 0 || k[0] == "" {
		return "unknown"
	}
	return k[0]
}

// Status is the lifecycle state shared by queries and mutations.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

// String returns the lowercase state name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Middleware wraps the network round trip. It sees the final *http.Request,
// after request interceptors ran.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option represents a configuration option
type Option func(*Client)
