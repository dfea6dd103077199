package oboe

import (
	"context"
	"sync"
	"time"
)

// MutationFunc performs one write through the transport and returns its
// envelope.
type MutationFunc[TData, TVars any] func(ctx context.Context, vars TVars) (*Envelope[TData], error)

// MutationState is a snapshot of the latest trigger.
type MutationState[TData, TVars any] struct {
	Status      Status
	Data        *Envelope[TData]
	Err         *APIError
	Variables   TVars
	SubmittedAt time.Time
	SettledAt   time.Time
}

type mutationConfig[TData, TVars any] struct {
	name      string
	onMutate  func(ctx context.Context, vars TVars) error
	onSuccess func(ctx context.Context, env *Envelope[TData], vars TVars)
	onError   func(ctx context.Context, err *APIError, vars TVars)
	onSettled func(ctx context.Context, env *Envelope[TData], err *APIError, vars TVars)
	metrics   *MetricsCollector
	logger    Logger
	client    *Client
}

// MutationOption configures a Mutation.
type MutationOption[TData, TVars any] func(*mutationConfig[TData, TVars])

// OnMutate runs before the write. A non-nil error aborts the trigger
// without calling the write function.
func OnMutate[TData, TVars any](fn func(ctx context.Context, vars TVars) error) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.onMutate = fn
	}
}

// OnSuccess runs after a successful write.
func OnSuccess[TData, TVars any](fn func(ctx context.Context, env *Envelope[TData], vars TVars)) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.onSuccess = fn
	}
}

// OnError runs after a failed write.
func OnError[TData, TVars any](fn func(ctx context.Context, err *APIError, vars TVars)) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.onError = fn
	}
}

// OnSettled runs after every write, after OnSuccess or OnError.
func OnSettled[TData, TVars any](fn func(ctx context.Context, env *Envelope[TData], err *APIError, vars TVars)) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.onSettled = fn
	}
}

// WithMutationName labels the mutation in metrics and logs.
func WithMutationName[TData, TVars any](name string) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.name = name
	}
}

// WithMutationMetrics records settled mutations on mc.
func WithMutationMetrics[TData, TVars any](mc *MetricsCollector) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.metrics = mc
	}
}

// WithMutationLogger logs each trigger at debug level.
func WithMutationLogger[TData, TVars any](logger Logger) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.logger = logger
	}
}

// WithMutationClient logs through c's logger when its debug config enables
// mutation logging, and records on c's metrics collector unless
// WithMutationMetrics set one.
func WithMutationClient[TData, TVars any](c *Client) MutationOption[TData, TVars] {
	return func(cfg *mutationConfig[TData, TVars]) {
		cfg.client = c
	}
}

// Mutation triggers a write function. Every Mutate call runs the function
// exactly once: calls are never coalesced, retried or deferred, and no
// cache is touched unless a callback does it.
type Mutation[TData, TVars any] struct {
	fn  MutationFunc[TData, TVars]
	cfg mutationConfig[TData, TVars]

	mu    sync.Mutex
	seq   uint64
	state MutationState[TData, TVars]
}

// NewMutation wraps fn.
func NewMutation[TData, TVars any](fn MutationFunc[TData, TVars], opts ...MutationOption[TData, TVars]) *Mutation[TData, TVars] {
	m := &Mutation[TData, TVars]{
		fn:  fn,
		cfg: mutationConfig[TData, TVars]{name: "mutation"},
	}
	for _, opt := range opts {
		opt(&m.cfg)
	}
	if m.cfg.metrics == nil && m.cfg.client != nil {
		m.cfg.metrics = m.cfg.client.metrics
	}
	return m
}

// Mutate runs the write once with vars and returns the full envelope, or
// the failure as an *APIError.
func (m *Mutation[TData, TVars]) Mutate(ctx context.Context, vars TVars) (*Envelope[TData], error) {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.state = MutationState[TData, TVars]{
		Status:      StatusPending,
		Variables:   vars,
		SubmittedAt: time.Now(),
	}
	m.mu.Unlock()

	m.debug("Mutation started")

	env, apiErr := m.execute(ctx, vars)

	m.mu.Lock()
	if seq == m.seq {
		m.state.SettledAt = time.Now()
		if apiErr != nil {
			m.state.Status = StatusError
			m.state.Err = apiErr
		} else {
			m.state.Status = StatusSuccess
			m.state.Data = env
		}
	}
	m.mu.Unlock()

	if apiErr != nil {
		m.cfg.metrics.RecordMutation(m.cfg.name, "error")
		m.debug("Mutation failed", "type", apiErr.Type, "status", apiErr.Status, "error", apiErr.Message)
		if m.cfg.onError != nil {
			m.cfg.onError(ctx, apiErr, vars)
		}
	} else {
		m.cfg.metrics.RecordMutation(m.cfg.name, "success")
		m.debug("Mutation succeeded")
		if m.cfg.onSuccess != nil {
			m.cfg.onSuccess(ctx, env, vars)
		}
	}
	if m.cfg.onSettled != nil {
		m.cfg.onSettled(ctx, env, apiErr, vars)
	}

	if apiErr != nil {
		return nil, apiErr
	}
	return env, nil
}

func (m *Mutation[TData, TVars]) execute(ctx context.Context, vars TVars) (*Envelope[TData], *APIError) {
	if m.cfg.onMutate != nil {
		if err := m.cfg.onMutate(ctx, vars); err != nil {
			return nil, interceptorError("mutation aborted by OnMutate", err)
		}
	}

	env, err := m.fn(ctx, vars)
	if err != nil {
		return nil, AsAPIError(err)
	}
	if env == nil {
		return nil, &APIError{Type: ErrorTypeEnvelope, Code: CodeEnvelope, Message: "mutation returned no envelope", Cause: ErrMalformedEnvelope, Timestamp: time.Now()}
	}
	return env, nil
}

// State returns a snapshot of the latest trigger. Before any trigger, or
// after Reset, it is idle.
func (m *Mutation[TData, TVars]) State() MutationState[TData, TVars] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the mutation to idle. A trigger still running no longer
// updates the state when it settles.
func (m *Mutation[TData, TVars]) Reset() {
	m.mu.Lock()
	m.seq++
	m.state = MutationState[TData, TVars]{}
	m.mu.Unlock()
}

func (m *Mutation[TData, TVars]) debug(msg string, args ...any) {
	args = append([]any{"mutation", m.cfg.name}, args...)
	if m.cfg.logger != nil {
		m.cfg.logger.Debug(msg, args...)
	}
	if m.cfg.client != nil {
		m.cfg.client.logDebug(logMutations, msg, args...)
	}
}
