// Package singleflight coalesces concurrent calls that share a key.
package singleflight

import (
	"context"
	"sync"
)

// Group manages a set of in-flight calls keyed by string.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

type call struct {
	done chan struct{}
	val  interface{}
	err  error
}

// New creates an empty Group.
func New() *Group {
	return &Group{
		m: make(map[string]*call),
	}
}

// Do runs fn once for all callers that arrive while a call for key is in
// flight. fn runs on its own goroutine and is not stopped when ctx ends; each
// caller stops waiting when its own ctx is done. shared reports whether the
// caller joined a call started by someone else.
func (g *Group) Do(ctx context.Context, key string, fn func() (interface{}, error)) (v interface{}, err error, shared bool) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		v, err = c.wait(ctx)
		return v, err, true
	}
	c := g.start(key, fn)
	g.mu.Unlock()

	v, err = c.wait(ctx)
	return v, err, false
}

// TryDo behaves like Do but returns ErrInProgress without waiting when a
// call for key is already running. ok is false in that case.
func (g *Group) TryDo(ctx context.Context, key string, fn func() (interface{}, error)) (v interface{}, err error, ok bool) {
	g.mu.Lock()
	if _, exists := g.m[key]; exists {
		g.mu.Unlock()
		return nil, ErrInProgress, false
	}
	c := g.start(key, fn)
	g.mu.Unlock()

	v, err = c.wait(ctx)
	return v, err, true
}

// InFlight reports whether a call for key is currently running.
func (g *Group) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

// ForgetKey drops key so the next call starts fresh even if the current one
// has not finished. Callers already waiting still get its result.
func (g *Group) ForgetKey(key string) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// start must be called with g.mu held.
func (g *Group) start(key string, fn func() (interface{}, error)) *call {
	c := &call{done: make(chan struct{})}
	g.m[key] = c

	go func() {
		c.val, c.err = fn()

		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()

		close(c.done)
	}()

	return c
}

func (c *call) wait(ctx context.Context) (interface{}, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
