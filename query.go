package oboe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JustHoIt/oboe-vintage/internal/backoff"
	"github.com/JustHoIt/oboe-vintage/internal/singleflight"
)

// DefaultGCTime is how long a settled query entry is kept after its last update.
const DefaultGCTime = 5 * time.Minute

// StaleNever passed to WithStaleTime keeps cached data fresh until it is
// invalidated or collected.
const StaleNever time.Duration = -1

// QueryClient owns the query cache and coalesces concurrent fetches that
// share a key. It is safe for concurrent use.
type QueryClient struct {
	client   *Client
	cache    *queryCache
	group    *singleflight.Group
	defaults []QueryOption
}

// QueryClientOption configures a QueryClient.
type QueryClientOption func(*QueryClient)

// WithDefaultQueryOptions applies opts to every query before its own options.
func WithDefaultQueryOptions(opts ...QueryOption) QueryClientOption {
	return func(qc *QueryClient) {
		qc.defaults = append(qc.defaults, opts...)
	}
}

// WithQueryCacheShards sets the number of cache shards.
func WithQueryCacheShards(n int) QueryClientOption {
	return func(qc *QueryClient) {
		qc.cache = newQueryCache(n)
	}
}

// NewQueryClient creates a QueryClient reading through c.
func NewQueryClient(c *Client, opts ...QueryClientOption) *QueryClient {
	qc := &QueryClient{
		client: c,
		cache:  newQueryCache(defaultQueryCacheShards),
		group:  singleflight.New(),
	}
	for _, opt := range opts {
		opt(qc)
	}
	return qc
}

type queryConfig struct {
	staleTime      time.Duration
	gcTime         time.Duration
	retry          int
	retryDelay     backoff.Strategy
	retryCondition func(err error) bool
	enabled        bool
}

// QueryOption configures a single query.
type QueryOption func(*queryConfig)

// WithStaleTime sets how long fetched data is served without refetching.
// Zero means every Fetch goes to the network; StaleNever disables staleness.
func WithStaleTime(d time.Duration) QueryOption {
	return func(cfg *queryConfig) {
		cfg.staleTime = d
	}
}

// WithGCTime sets how long a settled entry stays cached.
func WithGCTime(d time.Duration) QueryOption {
	return func(cfg *queryConfig) {
		cfg.gcTime = d
	}
}

// WithRetry sets how many extra attempts a failing fetch gets.
func WithRetry(n int) QueryOption {
	return func(cfg *queryConfig) {
		if n < 0 {
			n = 0
		}
		cfg.retry = n
	}
}

// WithRetryDelay sets the wait before retry attempt n (zero based).
func WithRetryDelay(fn func(attempt int) time.Duration) QueryOption {
	return func(cfg *queryConfig) {
		if fn != nil {
			cfg.retryDelay = backoff.Func(fn)
		}
	}
}

// WithRetryCondition decides which failures are retried. The default
// retries transient failures only.
func WithRetryCondition(fn func(err error) bool) QueryOption {
	return func(cfg *queryConfig) {
		if fn != nil {
			cfg.retryCondition = fn
		}
	}
}

// WithEnabled turns the query on or off. A disabled query never fetches.
func WithEnabled(enabled bool) QueryOption {
	return func(cfg *queryConfig) {
		cfg.enabled = enabled
	}
}

func (qc *QueryClient) config(opts []QueryOption) queryConfig {
	cfg := queryConfig{
		gcTime:         DefaultGCTime,
		retryDelay:     backoff.Default(),
		retryCondition: IsTransient,
		enabled:        true,
	}
	for _, opt := range qc.defaults {
		opt(&cfg)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// QueryState is a snapshot of a query key.
type QueryState[T any] struct {
	Status         Status
	Data           T
	HasData        bool
	Err            *APIError
	UpdatedAt      time.Time
	ErrorUpdatedAt time.Time
	FetchCount     int
	FailureCount   int
	IsStale        bool
	IsFetching     bool
}

// Query is a cached, deduplicated GET of one resource. Queries built with
// equal keys share state.
type Query[T any] struct {
	qc   *QueryClient
	key  QueryKey
	hash string
	path string
	cfg  queryConfig
}

// NewQuery binds key to the resource at path.
func NewQuery[T any](qc *QueryClient, key QueryKey, path string, opts ...QueryOption) *Query[T] {
	return &Query[T]{
		qc:   qc,
		key:  append(QueryKey(nil), key...),
		hash: key.Hash(),
		path: path,
		cfg:  qc.config(opts),
	}
}

// FetchQuery is the one-shot form of NewQuery(...).Fetch.
func FetchQuery[T any](ctx context.Context, qc *QueryClient, key QueryKey, path string, opts ...QueryOption) (T, error) {
	return NewQuery[T](qc, key, path, opts...).Fetch(ctx)
}

// Key returns the query key.
func (q *Query[T]) Key() QueryKey {
	return q.key
}

// Fetch returns fresh cached data when there is some and otherwise reads
// the resource, joining a fetch already in flight for the same key.
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	var zero T
	if !q.cfg.enabled {
		return zero, q.disabledError()
	}

	if entry, ok := q.qc.cache.get(q.hash); ok && !q.cfg.isStale(entry, time.Now()) {
		if data, ok := dataAs[T](entry.data); ok {
			q.qc.client.metrics.RecordQueryCacheHit(q.key.Scope())
			q.qc.client.logDebug(logQueries, "Query cache hit", "key", q.key.String())
			return data, nil
		}
	}

	return q.fetch(ctx)
}

// Refetch reads the resource regardless of freshness.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	var zero T
	if !q.cfg.enabled {
		return zero, q.disabledError()
	}
	return q.fetch(ctx)
}

func (q *Query[T]) disabledError() *APIError {
	return &APIError{
		Type:      ErrorTypeValidation,
		Code:      CodeDisabled,
		Message:   fmt.Sprintf("query %s is disabled", q.key),
		Timestamp: time.Now(),
		Cause:     ErrQueryDisabled,
	}
}

// Invalidate marks the key stale so the next Fetch reads the resource.
func (q *Query[T]) Invalidate() {
	q.qc.cache.markStale(q.hash)
}

// State returns a snapshot of the key. A key never fetched is idle.
func (q *Query[T]) State() QueryState[T] {
	state := QueryState[T]{Status: StatusIdle, IsStale: true}

	entry, ok := q.qc.cache.get(q.hash)
	if !ok {
		state.IsFetching = q.qc.group.InFlight(q.hash)
		return state
	}

	state.Status = entry.status
	state.Err = entry.err
	state.UpdatedAt = entry.updatedAt
	state.ErrorUpdatedAt = entry.errorUpdatedAt
	state.FetchCount = entry.fetchCount
	state.FailureCount = entry.failureCount
	state.IsStale = q.cfg.isStale(entry, time.Now())
	state.IsFetching = q.qc.group.InFlight(q.hash)
	if data, ok := dataAs[T](entry.data); ok && entry.hasData {
		state.Data = data
		state.HasData = true
	}
	return state
}

func (q *Query[T]) fetch(ctx context.Context) (T, error) {
	var zero T

	q.qc.client.metrics.RecordQueryCacheMiss(q.key.Scope())

	// The shared fetch must not die with whichever caller started it.
	detached := context.WithoutCancel(ctx)
	v, err, shared := q.qc.group.Do(ctx, q.hash, func() (interface{}, error) {
		return q.run(detached)
	})
	if shared {
		q.qc.client.metrics.RecordQueryDedupHit(q.key.Scope())
		q.qc.client.logDebug(logQueries, "Query joined in-flight fetch", "key", q.key.String())
	}
	if err != nil {
		return zero, AsAPIError(err)
	}

	data, ok := dataAs[T](v)
	if !ok {
		return zero, &APIError{
			Type:    ErrorTypeValidation,
			Code:    CodeValidation,
			Message: fmt.Sprintf("query %s holds %T, not %T", q.key, v, zero),
		}
	}
	return data, nil
}

// run fetches with retries. The whole run, attempts and waits included, is
// bounded so a detached fetch cannot outlive its retry plan.
func (q *Query[T]) run(parent context.Context) (interface{}, error) {
	delays := make([]time.Duration, q.cfg.retry)
	budget := time.Duration(q.cfg.retry+1) * q.qc.client.Timeout()
	for i := range delays {
		delays[i] = q.cfg.retryDelay.Delay(i)
		budget += delays[i]
	}
	ctx, cancel := context.WithTimeout(parent, budget)
	defer cancel()

	started := q.update(func(e *queryEntry) {
		e.status = StatusPending
	})
	q.qc.client.logDebug(logQueries, "Query fetch started", "key", q.key.String(), "path", q.path)

	for attempt := 0; ; attempt++ {
		env, err := Invoke[T](ctx, q.qc.client, &Request{Method: http.MethodGet, Path: q.path})
		if err == nil {
			q.update(func(e *queryEntry) {
				e.status = StatusSuccess
				e.data = env.Data
				e.hasData = true
				e.err = nil
				e.updatedAt = time.Now()
				if e.invalidations == started.invalidations {
					e.invalidated = false
				}
				e.fetchCount++
				e.failureCount = 0
			})
			q.qc.client.logDebug(logQueries, "Query fetch succeeded", "key", q.key.String(), "attempts", attempt+1)
			return env.Data, nil
		}

		apiErr := AsAPIError(err)
		q.update(func(e *queryEntry) {
			e.failureCount++
		})
		if attempt >= q.cfg.retry || !q.cfg.retryCondition(apiErr) {
			return nil, q.settleError(apiErr, attempt+1)
		}

		delay := delays[attempt]
		q.qc.client.logDebug(logQueries, "Query fetch retry scheduled", "key", q.key.String(), "attempt", attempt+1, "delay", delay)
		if sleep(ctx, delay) != nil {
			return nil, q.settleError(apiErr, attempt+1)
		}
	}
}

// settleError stores the final failure. Every failed attempt is already
// counted in failureCount.
func (q *Query[T]) settleError(apiErr *APIError, attempts int) *APIError {
	q.update(func(e *queryEntry) {
		e.status = StatusError
		e.err = apiErr
		e.errorUpdatedAt = time.Now()
		e.fetchCount++
	})
	q.qc.client.logDebug(logQueries, "Query fetch failed", "key", q.key.String(), "attempts", attempts, "error", apiErr.Message)
	return apiErr
}

func (q *Query[T]) update(fn func(e *queryEntry)) queryEntry {
	entry := q.qc.cache.update(q.hash, q.key, q.cfg.gcTime, fn)
	q.qc.client.metrics.RecordQueryCacheSize(q.qc.cache.size())
	return entry
}

func (cfg queryConfig) isStale(e queryEntry, now time.Time) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	if cfg.staleTime < 0 {
		return false
	}
	return now.Sub(e.updatedAt) >= cfg.staleTime
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InvalidateQueries marks every key starting with prefix stale and returns
// how many entries matched. An empty prefix matches all keys.
func (qc *QueryClient) InvalidateQueries(prefix QueryKey) int {
	n := qc.cache.invalidate(prefix)
	qc.client.logDebug(logQueries, "Queries invalidated", "prefix", prefix.String(), "matched", n)
	return n
}

// RemoveQueries drops every key starting with prefix from the cache.
func (qc *QueryClient) RemoveQueries(prefix QueryKey) int {
	n := qc.cache.remove(prefix)
	qc.client.metrics.RecordQueryCacheSize(qc.cache.size())
	return n
}

// Clear empties the cache.
func (qc *QueryClient) Clear() {
	qc.cache.clear()
	qc.client.metrics.RecordQueryCacheSize(0)
}

// Size returns the number of cached keys.
func (qc *QueryClient) Size() int {
	return qc.cache.size()
}

// GetQueryData returns the cached data for key, if any of type T.
func GetQueryData[T any](qc *QueryClient, key QueryKey) (T, bool) {
	var zero T
	entry, ok := qc.cache.get(key.Hash())
	if !ok || !entry.hasData {
		return zero, false
	}
	return dataAs[T](entry.data)
}

// dataAs converts cached data back to T. A nil value is the zero T, which
// is what a null payload decodes to for interface types.
func dataAs[T any](v any) (T, bool) {
	if v == nil {
		var zero T
		return zero, true
	}
	data, ok := v.(T)
	return data, ok
}

// SetQueryData stores data for key as a successful, freshly updated read.
func SetQueryData[T any](qc *QueryClient, key QueryKey, data T) {
	cfg := qc.config(nil)
	qc.cache.update(key.Hash(), key, cfg.gcTime, func(e *queryEntry) {
		e.status = StatusSuccess
		e.data = data
		e.hasData = true
		e.err = nil
		e.updatedAt = time.Now()
		e.invalidated = false
	})
	qc.client.metrics.RecordQueryCacheSize(qc.cache.size())
}

// PrefetchQuery warms the cache for key. It does nothing when the data is
// fresh or a fetch for key is already in flight.
func PrefetchQuery[T any](ctx context.Context, qc *QueryClient, key QueryKey, path string, opts ...QueryOption) error {
	q := NewQuery[T](qc, key, path, opts...)
	if !q.cfg.enabled {
		return nil
	}
	if entry, ok := qc.cache.get(q.hash); ok && !q.cfg.isStale(entry, time.Now()) {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	_, err, ok := qc.group.TryDo(ctx, q.hash, func() (interface{}, error) {
		return q.run(detached)
	})
	if !ok && errors.Is(err, singleflight.ErrInProgress) {
		return nil
	}
	if err != nil {
		return AsAPIError(err)
	}
	return nil
}
