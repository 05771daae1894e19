// Package resource defers renderer mutations to a commit phase. Resources record their changes while the render
// thread runs, enqueue themselves on a Context, and are committed in enqueue order once the caller holds
// renderer access.
package resource

import (
	"sync"

	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Resource is a renderer object with staged changes.
type Resource interface {
	// Commit applies the staged changes.
	//
	// Parameters:
	//   - ed: the renderer editor, proving the render thread is stopped
	//
	// Returns:
	//   - bool: whether anything changed on the renderer side
	Commit(ed *renderer.Editor) bool
}

// kinded resources report a label for the commit counter.
type kinded interface {
	Kind() string
}

// Context is the queue of resources waiting for a commit. The queue holds each resource once, at the position
// of its first Enqueue. All methods are safe for concurrent use.
type Context struct {
	mu *sync.Mutex

	pending []Resource
	queued  map[Resource]struct{}

	commits *prometheus.CounterVec
	log     *zap.Logger
}

// NewContext creates an empty commit queue.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - *Context: the queue
func NewContext(options ...ContextOption) *Context {
	c := &Context{
		mu:     &sync.Mutex{},
		queued: make(map[Resource]struct{}),
		log:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Enqueue appends r unless it is already pending.
//
// Parameters:
//   - r: the resource to commit
func (c *Context) Enqueue(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.queued[r]; ok {
		return
	}
	c.queued[r] = struct{}{}
	c.pending = append(c.pending, r)
}

// Pending returns the number of queued resources.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// IsPending reports whether r is queued.
func (c *Context) IsPending(r Resource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.queued[r]
	return ok
}

// Flush commits every pending resource in enqueue order, including resources enqueued by a Commit.
// The queue is left intact; call Reset once the commit cycle is over.
//
// Parameters:
//   - ed: the renderer editor
//
// Returns:
//   - bool: whether any resource changed
func (c *Context) Flush(ed *renderer.Editor) bool {
	changed := false
	for i := 0; ; i++ {
		c.mu.Lock()
		if i >= len(c.pending) {
			c.mu.Unlock()
			break
		}
		r := c.pending[i]
		c.mu.Unlock()

		if r.Commit(ed) {
			changed = true
			if c.commits != nil {
				kind := "resource"
				if k, ok := r.(kinded); ok {
					kind = k.Kind()
				}
				c.commits.WithLabelValues(kind).Inc()
			}
		}
	}
	return changed
}

// Reset empties the queue.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	clear(c.queued)
}
