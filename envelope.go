package oboe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Invoke sends req and decodes the response envelope. Data is returned
// exactly as the server sent it.
func Invoke[T any](ctx context.Context, c *Client, req *Request) (*Envelope[T], error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	env, err := DecodeEnvelope[T](resp)
	if err != nil {
		apiErr := AsAPIError(err)
		c.logDebug(logRequests, "Malformed envelope", "requestID", resp.RequestID, "error", err)
		// Resolved by fail so the URL matches transport errors.
		apiErr.URL = ""
		return nil, c.fail(ctx, apiErr, resp.Request, resp.RequestID, time.Now().Add(-resp.Duration))
	}
	return env, nil
}

// GetEnvelope issues a GET and decodes the envelope.
func GetEnvelope[T any](ctx context.Context, c *Client, path string) (*Envelope[T], error) {
	return Invoke[T](ctx, c, &Request{Method: http.MethodGet, Path: path})
}

// DeleteEnvelope issues a DELETE and decodes the envelope.
func DeleteEnvelope[T any](ctx context.Context, c *Client, path string) (*Envelope[T], error) {
	return Invoke[T](ctx, c, &Request{Method: http.MethodDelete, Path: path})
}

// PostEnvelope issues a POST and decodes the envelope.
func PostEnvelope[T any](ctx context.Context, c *Client, path string, body any) (*Envelope[T], error) {
	return Invoke[T](ctx, c, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// PutEnvelope issues a PUT and decodes the envelope.
func PutEnvelope[T any](ctx context.Context, c *Client, path string, body any) (*Envelope[T], error) {
	return Invoke[T](ctx, c, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// PatchEnvelope issues a PATCH and decodes the envelope.
func PatchEnvelope[T any](ctx context.Context, c *Client, path string, body any) (*Envelope[T], error) {
	return Invoke[T](ctx, c, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// DecodeEnvelope parses resp.Body as an Envelope. A body that is not JSON,
// lacks a "data" member or whose data does not fit T is an Envelope error.
func DecodeEnvelope[T any](resp *Response) (*Envelope[T], error) {
	var raw struct {
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
		Status  int             `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, envelopeError(resp, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err))
	}
	if raw.Data == nil {
		return nil, envelopeError(resp, fmt.Errorf("%w: missing data", ErrMalformedEnvelope))
	}

	env := &Envelope[T]{Message: raw.Message, Status: raw.Status}
	if err := json.Unmarshal(raw.Data, &env.Data); err != nil {
		return nil, envelopeError(resp, fmt.Errorf("%w: decode data: %v", ErrMalformedEnvelope, err))
	}
	return env, nil
}

func envelopeError(resp *Response, cause error) *APIError {
	apiErr := &APIError{
		Type:      ErrorTypeEnvelope,
		Code:      CodeEnvelope,
		Message:   "malformed response envelope",
		Status:    resp.StatusCode,
		RequestID: resp.RequestID,
		Duration:  resp.Duration,
		Timestamp: time.Now(),
		Cause:     cause,
	}
	if resp.Request != nil {
		apiErr.Method = resp.Request.Method
		apiErr.URL = resp.Request.Path
	}
	return apiErr
}
