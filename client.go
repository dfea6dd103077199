package oboe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every call made through a Client.
const DefaultTimeout = 10 * time.Second

// Client issues API requests against a fixed base URL with shared defaults
// and a single place to intercept every request and response. Each call is
// a single attempt. It is safe for concurrent use.
type Client struct {
	httpClient           *http.Client
	rawBaseURL           string
	baseURL              *url.URL
	timeout              time.Duration
	headers              http.Header
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	errorInterceptors    []ErrorInterceptor
	middleware           []Middleware
	limiter              *rate.Limiter
	metrics              *MetricsCollector
	debug                *DebugConfig
	logger               Logger
	validationError      error
}

// New constructs a Client using the provided functional options. A best effort
// validation is performed; an invalid client reports the problem from
// ValidationError and from every call.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		timeout: DefaultTimeout,
		headers: http.Header{
			"Content-Type": []string{"application/json"},
			"User-Agent":   []string{UserAgent()},
		},
		debug: DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string {
	return c.rawBaseURL
}

// Timeout returns the per-call ceiling.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Metrics returns the collector in use, or nil.
func (c *Client) Metrics() *MetricsCollector {
	return c.metrics
}

// Get performs a GET against path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
}

// Delete performs a DELETE against path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// Post performs a POST with body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT with body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH with body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Do runs req through the request interceptors, sends it once and runs the
// result through the response or error interceptors. Any failure is returned
// as an *APIError; a non-2xx status is always a failure.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	requestID := c.newRequestID()

	if req == nil {
		return nil, c.fail(ctx, newValidationError("nil request", nil), nil, requestID, start)
	}
	if c.validationError != nil {
		return nil, c.fail(ctx, newValidationError("invalid client configuration", c.validationError), req, requestID, start)
	}

	current := req.Clone()
	if current.Method == "" {
		current.Method = http.MethodGet
	}

	for _, intercept := range c.requestInterceptors {
		next, err := intercept(ctx, current)
		if err != nil {
			return nil, c.fail(ctx, interceptorError("request interceptor failed", err), current, requestID, start)
		}
		if next != nil {
			current = next
		}
	}

	httpReq, err := c.buildHTTPRequest(ctx, current)
	if err != nil {
		return nil, c.fail(ctx, newValidationError("cannot build request", err), current, requestID, start)
	}

	endpoint := getEndpointFromRequest(httpReq)
	c.metrics.RecordRequestStart(httpReq.Method, endpoint)
	defer c.metrics.RecordRequestEnd(httpReq.Method, endpoint)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			apiErr := &APIError{Type: ErrorTypeRateLimit, Code: CodeRateLimit, Message: "rate limit wait aborted", Cause: err}
			return nil, c.fail(ctx, apiErr, current, requestID, start)
		}
	}

	c.logDebug(logRequests, "Starting request", "requestID", requestID, "method", httpReq.Method, "url", httpReq.URL.String())

	httpResp, err := c.executeMiddleware(httpReq)
	if err != nil {
		c.metrics.RecordRequest(httpReq.Method, endpoint, 0, time.Since(start))
		return nil, c.fail(ctx, AsAPIError(err), current, requestID, start)
	}

	body, err := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()
	if err != nil {
		c.metrics.RecordRequest(httpReq.Method, endpoint, httpResp.StatusCode, time.Since(start))
		return nil, c.fail(ctx, AsAPIError(err), current, requestID, start)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
		Request:    current,
		RequestID:  requestID,
		Duration:   time.Since(start),
	}
	c.metrics.RecordRequest(httpReq.Method, endpoint, resp.StatusCode, resp.Duration)

	c.logDebug(logRequests, "Request completed", "requestID", requestID, "status", resp.StatusCode, "duration", resp.Duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(ctx, httpError(resp), current, requestID, start)
	}

	for _, intercept := range c.responseInterceptors {
		next, err := intercept(ctx, resp)
		if err != nil {
			return nil, c.fail(ctx, interceptorError("response interceptor failed", err), current, requestID, start)
		}
		if next != nil {
			resp = next
		}
	}

	return resp, nil
}

// fail completes apiErr with request context, passes it through the error
// interceptors and records it.
func (c *Client) fail(ctx context.Context, apiErr *APIError, req *Request, requestID string, start time.Time) error {
	c.annotate(apiErr, req, requestID, start)

	for _, intercept := range c.errorInterceptors {
		err := intercept(ctx, apiErr)
		if err == nil {
			continue
		}
		apiErr = interceptorError("error interceptor failed", err)
		c.annotate(apiErr, req, requestID, start)
	}

	method, endpoint := "", "unknown"
	if req != nil {
		method = req.Method
		if u, err := c.resolveURL(req.Path, nil); err == nil {
			endpoint = getEndpointFromRequest(&http.Request{URL: u})
		}
	}
	c.metrics.RecordError(apiErr.Type, method, endpoint)

	c.logDebug(logRequests, "Request failed", "requestID", requestID, "type", apiErr.Type, "status", apiErr.Status, "error", apiErr.Message)

	return apiErr
}

func (c *Client) annotate(apiErr *APIError, req *Request, requestID string, start time.Time) {
	if apiErr.RequestID == "" {
		apiErr.RequestID = requestID
	}
	if apiErr.Timestamp.IsZero() {
		apiErr.Timestamp = time.Now()
	}
	if apiErr.Duration == 0 {
		apiErr.Duration = time.Since(start)
	}
	if req != nil {
		if apiErr.Method == "" {
			apiErr.Method = req.Method
		}
		if apiErr.URL == "" {
			if u, err := c.resolveURL(req.Path, req.Query); err == nil {
				apiErr.URL = u.String()
			} else {
				apiErr.URL = req.Path
			}
		}
	}
}

func (c *Client) newRequestID() string {
	if c.debug != nil && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return ""
}

func (c *Client) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u, err := c.resolveURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}

	for key, values := range c.headers {
		httpReq.Header[key] = append([]string(nil), values...)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	return httpReq, nil
}

// resolveURL appends path to the base path. Absolute URLs are used as given.
func (c *Client) resolveURL(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}

	var u url.URL
	if ref.IsAbs() {
		u = *ref
	} else {
		if c.baseURL == nil {
			return nil, ErrNoBaseURL
		}
		u = *c.baseURL
		u.RawPath = ""
		u.Fragment = ""
		if ref.Path != "" {
			u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
		}
		u.RawQuery = ref.RawQuery
	}

	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return &u, nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// httpError builds the failure for a non-2xx response. A body shaped like
// APIError supplies message and code.
func httpError(resp *Response) *APIError {
	apiErr := &APIError{
		Type:   ErrorTypeHTTP,
		Status: resp.StatusCode,
	}

	var shape struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &shape) == nil {
		apiErr.Message = shape.Message
		apiErr.Code = shape.Code
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return apiErr
}

func newValidationError(message string, cause error) *APIError {
	return &APIError{Type: ErrorTypeValidation, Code: CodeValidation, Message: message, Cause: cause}
}

func interceptorError(message string, cause error) *APIError {
	var apiErr *APIError
	if errors.As(cause, &apiErr) {
		return apiErr
	}
	return &APIError{Type: ErrorTypeInterceptor, Code: CodeInterceptor, Message: message, Cause: cause}
}

func getEndpointFromRequest(req *http.Request) string {
	if req.URL == nil {
		return "unknown"
	}

	host := req.URL.Host
	path := req.URL.Path

	var builder strings.Builder
	builder.WriteString(host)

	if path != "" && path != "/" {
		builder.WriteString(path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
