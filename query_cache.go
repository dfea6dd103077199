package oboe

import (
	"hash/fnv"
	"sync"
	"time"
)

const defaultQueryCacheShards = 16

// queryEntry is the shared state of one query key. Entries handed out of the
// cache are copies.
type queryEntry struct {
	key            QueryKey
	status         Status
	data           any
	hasData        bool
	err            *APIError
	updatedAt      time.Time
	errorUpdatedAt time.Time
	invalidated    bool
	invalidations  uint64
	fetchCount     int
	failureCount   int
	gcTime         time.Duration
	expiresAt      time.Time
}

// queryCache is a sharded map of query entries. An entry is dropped once it
// has been settled for longer than its gcTime; pending entries never expire.
type queryCache struct {
	shards    []*queryCacheShard
	numShards int
}

type queryCacheShard struct {
	mu    sync.RWMutex
	store map[string]*queryEntry
}

func newQueryCache(numShards int) *queryCache {
	if numShards <= 0 {
		numShards = defaultQueryCacheShards
	}
	shards := make([]*queryCacheShard, numShards)
	for i := range shards {
		shards[i] = &queryCacheShard{
			store: make(map[string]*queryEntry),
		}
	}
	return &queryCache{
		shards:    shards,
		numShards: numShards,
	}
}

func (c *queryCache) getShard(hash string) *queryCacheShard {
	h := fnv.New32a()
	h.Write([]byte(hash))
	return c.shards[h.Sum32()%uint32(c.numShards)]
}

func (c *queryCache) get(hash string) (queryEntry, bool) {
	shard := c.getShard(hash)
	now := time.Now()

	shard.mu.RLock()
	entry, exists := shard.store[hash]
	if !exists {
		shard.mu.RUnlock()
		return queryEntry{}, false
	}
	if !entry.expired(now) {
		snapshot := *entry
		shard.mu.RUnlock()
		return snapshot, true
	}
	shard.mu.RUnlock()

	shard.mu.Lock()
	if entry, exists := shard.store[hash]; exists && entry.expired(now) {
		delete(shard.store, hash)
	}
	shard.mu.Unlock()
	return queryEntry{}, false
}

// update applies fn to the entry for hash, creating it first when missing,
// and returns a copy of the result.
func (c *queryCache) update(hash string, key QueryKey, gcTime time.Duration, fn func(e *queryEntry)) queryEntry {
	shard := c.getShard(hash)
	now := time.Now()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, exists := shard.store[hash]
	if !exists || entry.expired(now) {
		entry = &queryEntry{key: append(QueryKey(nil), key...)}
		shard.store[hash] = entry
	}
	entry.gcTime = gcTime
	fn(entry)

	if entry.status == StatusPending {
		entry.expiresAt = time.Time{}
	} else {
		entry.expiresAt = now.Add(entry.gcTime)
	}
	return *entry
}

// markStale invalidates the single entry for hash.
func (c *queryCache) markStale(hash string) bool {
	shard := c.getShard(hash)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, exists := shard.store[hash]
	if !exists {
		return false
	}
	entry.invalidate()
	return true
}

// invalidate marks every entry whose key starts with prefix as stale.
func (c *queryCache) invalidate(prefix QueryKey) int {
	return c.each(prefix, func(shard *queryCacheShard, hash string, e *queryEntry) {
		e.invalidate()
	})
}

// remove deletes every entry whose key starts with prefix.
func (c *queryCache) remove(prefix QueryKey) int {
	return c.each(prefix, func(shard *queryCacheShard, hash string, e *queryEntry) {
		delete(shard.store, hash)
	})
}

func (c *queryCache) each(prefix QueryKey, fn func(shard *queryCacheShard, hash string, e *queryEntry)) int {
	matched := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		for hash, entry := range shard.store {
			if entry.key.HasPrefix(prefix) {
				fn(shard, hash, entry)
				matched++
			}
		}
		shard.mu.Unlock()
	}
	return matched
}

func (c *queryCache) clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = make(map[string]*queryEntry)
		shard.mu.Unlock()
	}
}

func (c *queryCache) size() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

// invalidate marks the entry stale and bumps its generation so a fetch that
// started earlier cannot mark it fresh again.
func (e *queryEntry) invalidate() {
	e.invalidated = true
	e.invalidations++
}

func (e *queryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
