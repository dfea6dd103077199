package oboe

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// WithBaseURL sets the address every relative path is appended to
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.rawBaseURL = baseURL
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithHeader adds a default header sent with every request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Set(key, value)
	}
}

// WithHTTPClient sends requests through a copy of client, so the client's
// own Timeout is never changed.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client == nil {
			c.httpClient = nil
			return
		}
		copied := *client
		if c.timeout != 0 {
			copied.Timeout = c.timeout
		}
		c.httpClient = &copied
	}
}

// WithRequestInterceptor appends request interceptors, run in order
func WithRequestInterceptor(interceptors ...RequestInterceptor) Option {
	return func(c *Client) {
		c.requestInterceptors = append(c.requestInterceptors, interceptors...)
	}
}

// WithResponseInterceptor appends response interceptors, run in order
func WithResponseInterceptor(interceptors ...ResponseInterceptor) Option {
	return func(c *Client) {
		c.responseInterceptors = append(c.responseInterceptors, interceptors...)
	}
}

// WithErrorInterceptor appends error interceptors, run in order
func WithErrorInterceptor(interceptors ...ErrorInterceptor) Option {
	return func(c *Client) {
		c.errorInterceptors = append(c.errorInterceptors, interceptors...)
	}
}

// WithUnauthorizedHandler installs handler for 401 failures. The failure is
// still returned to the caller.
func WithUnauthorizedHandler(handler UnauthorizedHandler) Option {
	return WithErrorInterceptor(UnauthorizedInterceptor(handler))
}

// WithMiddleware adds middleware around the network round trip
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithTracing records an OpenTelemetry client span per request. A nil
// provider uses the global one.
func WithTracing(tp trace.TracerProvider) Option {
	return WithMiddleware(TracingMiddleware(tp))
}

// WithRateLimit makes every call wait for a token before it is sent
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithMetrics enables Prometheus metrics collection on the default registerer
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// ValidateConfiguration validates the client configuration and returns an error if invalid.
// A valid base URL is parsed and kept for request resolution.
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateBaseURL()...)
	errors = append(errors, c.validateTransportConfig()...)
	errors = append(errors, c.validateInterceptorConfig()...)
	errors = append(errors, c.validateDebugConfig()...)

	if len(errors) > 0 {
		return &APIError{
			Type:    ErrorTypeValidation,
			Code:    CodeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

func (c *Client) validateBaseURL() []string {
	if strings.TrimSpace(c.rawBaseURL) == "" {
		return []string{ErrNoBaseURL.Error()}
	}

	u, err := url.Parse(c.rawBaseURL)
	if err != nil {
		return []string{fmt.Sprintf("base URL %q is invalid: %v", c.rawBaseURL, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{fmt.Sprintf("base URL %q must use http or https", c.rawBaseURL)}
	}
	if u.Host == "" {
		return []string{fmt.Sprintf("base URL %q has no host", c.rawBaseURL)}
	}

	c.baseURL = u
	return nil
}

func (c *Client) validateTransportConfig() []string {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	if c.timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}
	if c.timeout > 10*time.Minute {
		errors = append(errors, "timeout > 10m may cause requests to hang for too long")
	}
	if c.limiter != nil && c.limiter.Burst() <= 0 && c.limiter.Limit() != rate.Inf {
		errors = append(errors, "rate limit burst must be positive")
	}

	return errors
}

func (c *Client) validateInterceptorConfig() []string {
	var errors []string

	for i, interceptor := range c.requestInterceptors {
		if interceptor == nil {
			errors = append(errors, fmt.Sprintf("requestInterceptor[%d] cannot be nil", i))
		}
	}
	for i, interceptor := range c.responseInterceptors {
		if interceptor == nil {
			errors = append(errors, fmt.Sprintf("responseInterceptor[%d] cannot be nil", i))
		}
	}
	for i, interceptor := range c.errorInterceptors {
		if interceptor == nil {
			errors = append(errors, fmt.Sprintf("errorInterceptor[%d] cannot be nil", i))
		}
	}
	for i, middleware := range c.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errors
}

func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled && c.logger == nil {
		errors = append(errors, "logger must be set when debug is enabled")
	}

	return errors
}
