package oboe

import (
	"context"
	"time"
)

// HealthPath is the backend liveness endpoint.
const HealthPath = "/health"

// HealthStatus is the outcome of one liveness probe.
type HealthStatus struct {
	OK         bool
	StatusCode int
	Latency    time.Duration
	CheckedAt  time.Time
	Err        *APIError
}

// Indicator renders the status for display.
func (h HealthStatus) Indicator() string {
	if h.OK {
		return "✅ backend reachable"
	}
	return "❌ backend unreachable"
}

// CheckHealth probes HealthPath. Any 2xx body counts as healthy; failures,
// timeouts included, are reported in the result and never returned as errors.
func (c *Client) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()
	status := HealthStatus{CheckedAt: start}

	resp, err := c.Get(ctx, HealthPath)
	status.Latency = time.Since(start)
	if err != nil {
		status.Err = AsAPIError(err)
		status.StatusCode = status.Err.Status
		if c.logger != nil {
			c.logger.Warn("Health check failed", "baseURL", c.rawBaseURL, "error", err)
		}
		return status
	}

	status.OK = true
	status.StatusCode = resp.StatusCode
	return status
}
