package oboe

import (
	"context"
	"net/http"
)

// RequestInterceptor receives the outgoing descriptor and returns the one to
// send. Returning nil keeps the current descriptor; returning an error aborts
// the call before anything reaches the network.
type RequestInterceptor func(ctx context.Context, req *Request) (*Request, error)

// ResponseInterceptor receives every 2xx response and returns the one handed
// to the caller. Returning nil keeps the current response; returning an error
// turns the call into a failure.
type ResponseInterceptor func(ctx context.Context, resp *Response) (*Response, error)

// ErrorInterceptor observes every failure. A non-nil return replaces the
// error seen by later interceptors and the caller; nil keeps it. An error
// interceptor cannot turn a failure into a success.
type ErrorInterceptor func(ctx context.Context, err *APIError) error

// UnauthorizedHandler is called for every 401 failure.
type UnauthorizedHandler func(ctx context.Context, err *APIError)

// UnauthorizedInterceptor calls handler for 401 failures and forwards every
// error unchanged. A nil handler makes it inert.
func UnauthorizedInterceptor(handler UnauthorizedHandler) ErrorInterceptor {
	return func(ctx context.Context, err *APIError) error {
		if handler != nil && err.Type == ErrorTypeHTTP && err.Status == http.StatusUnauthorized {
			handler(ctx, err)
		}
		return nil
	}
}

// HeaderInterceptor sets a header on every outgoing request, overriding the
// client defaults.
func HeaderInterceptor(key, value string) RequestInterceptor {
	return func(_ context.Context, req *Request) (*Request, error) {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set(key, value)
		return req, nil
	}
}
