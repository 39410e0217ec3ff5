package pool

import (
	"context"
	"sync"
)

// LoadFunc produces the pool. It is called at most once per successful load.
type LoadFunc func(ctx context.Context) (*GlyphPool, error)

// Loader loads the pool lazily and caches it for the life of the process.
// Concurrent callers share one in-flight load. A failed load is forgotten so
// the next caller tries again.
type Loader struct {
	load LoadFunc

	mu   sync.Mutex
	pool *GlyphPool
	call *loadCall
}

type loadCall struct {
	done chan struct{}
	pool *GlyphPool
	err  error
}

// NewLoader returns a Loader around fn.
func NewLoader(fn LoadFunc) *Loader {
	return &Loader{load: fn}
}

// FileLoader returns a Loader reading the artifact at path.
func FileLoader(path string) *Loader {
	return NewLoader(func(context.Context) (*GlyphPool, error) {
		return ReadFile(path)
	})
}

// Load returns the cached pool, joins an in-flight load, or starts one.
// Waiting callers give up when ctx is done; the load itself keeps going.
func (l *Loader) Load(ctx context.Context) (*GlyphPool, error) {
	l.mu.Lock()
	if l.pool != nil {
		p := l.pool
		l.mu.Unlock()
		return p, nil
	}
	if c := l.call; c != nil {
		l.mu.Unlock()
		select {
		case <-c.done:
			return c.pool, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &loadCall{done: make(chan struct{})}
	l.call = c
	l.mu.Unlock()

	c.pool, c.err = l.load(ctx)

	l.mu.Lock()
	if c.err == nil {
		l.pool = c.pool
	}
	l.call = nil
	l.mu.Unlock()
	close(c.done)

	return c.pool, c.err
}

// Loaded reports whether the pool is cached.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pool != nil
}
