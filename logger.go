package oboe

import (
	"github.com/google/uuid"
)

// Logger receives structured debug output. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DebugConfig selects which lifecycle events are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogQueries   bool
	LogMutations bool
	RequestIDGen func() string
}

// DefaultDebugConfig logs everything once enabled and tags requests with
// random UUIDs.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogQueries:   true,
		LogMutations: true,
		RequestIDGen: generateRequestID,
	}
}

func generateRequestID() string {
	return "req_" + uuid.NewString()
}

func (c *Client) logDebug(flag func(*DebugConfig) bool, msg string, args ...any) {
	if c.logger == nil || c.debug == nil || !c.debug.Enabled || !flag(c.debug) {
		return
	}
	c.logger.Debug(msg, args...)
}

func logRequests(d *DebugConfig) bool  { return d.LogRequests }
func logQueries(d *DebugConfig) bool   { return d.LogQueries }
func logMutations(d *DebugConfig) bool { return d.LogMutations }
