package renderer

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// IterateFunc runs one render iteration and reports whether rendering converged.
// A converged render thread idles until StartRender is called again.
type IterateFunc func() (converged bool)

// RenderThread runs progressive render iterations on a dedicated goroutine.
// Mutating renderer state is only allowed while holding an Access returned by Acquire.
type RenderThread struct {
	mu   *sync.Mutex
	cond *sync.Cond

	iterate IterateFunc
	log     *zap.Logger
	onStop  func()

	started   bool
	quit      bool
	wantRun   bool
	converged bool
	rendering bool
	holders   int

	iterations   atomic.Uint64
	stopRequests atomic.Uint64
	done         chan struct{}
}

// Access is an exclusive hold on renderer state. While any Access is held no render iteration runs.
// Release resumes rendering once the outermost hold is released.
type Access struct {
	thread   *RenderThread
	released atomic.Bool
}

// NewRenderThread creates a stopped render thread. Call Run to start the render goroutine.
//
// Parameters:
//   - iterate: the work of one render iteration
//   - options: functional options
//
// Returns:
//   - *RenderThread: the render thread
func NewRenderThread(iterate IterateFunc, options ...RenderThreadOption) *RenderThread {
	mu := &sync.Mutex{}
	t := &RenderThread{
		mu:      mu,
		cond:    sync.NewCond(mu),
		iterate: iterate,
		log:     zap.NewNop(),
		done:    make(chan struct{}),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Run starts the render goroutine. Calling Run twice is a no-op.
func (t *RenderThread) Run() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()
	go t.loop()
}

// Close stops the render goroutine and waits for the current iteration to finish.
func (t *RenderThread) Close() {
	t.mu.Lock()
	started := t.started
	t.quit = true
	t.cond.Broadcast()
	t.mu.Unlock()
	if started {
		<-t.done
	}
}

// StartRender asks the render goroutine to resume iterating.
func (t *RenderThread) StartRender() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wantRun = true
	t.converged = false
	t.cond.Broadcast()
}

// StopRender blocks until the in-flight iteration completes and keeps the thread stopped until StartRender.
// Stopping a stopped thread is a no-op.
func (t *RenderThread) StopRender() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wantRun {
		t.stopRequests.Add(1)
		if t.onStop != nil {
			t.onStop()
		}
	}
	t.wantRun = false
	for t.rendering {
		t.cond.Wait()
	}
}

// Acquire blocks until no iteration is in flight and returns an exclusive hold.
// Holds nest: rendering resumes when the last one is released.
//
// Returns:
//   - *Access: the hold, which must be released exactly once
func (t *RenderThread) Acquire() *Access {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.holders++
	if t.holders == 1 {
		t.stopRequests.Add(1)
		if t.onStop != nil {
			t.onStop()
		}
	}
	for t.rendering {
		t.cond.Wait()
	}
	return &Access{thread: t}
}

// Release gives up the hold. Extra calls are ignored.
func (a *Access) Release() {
	if a == nil || !a.released.CompareAndSwap(false, true) {
		return
	}
	t := a.thread
	t.mu.Lock()
	defer t.mu.Unlock()
	t.holders--
	if t.holders == 0 {
		t.cond.Broadcast()
	}
}

// Thread returns the render thread the hold belongs to.
func (a *Access) Thread() *RenderThread {
	return a.thread
}

// IsRendering reports whether StartRender is in effect and the render has not converged.
func (t *RenderThread) IsRendering() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wantRun && !t.converged
}

// IsHeld reports whether any Access is outstanding.
func (t *RenderThread) IsHeld() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.holders > 0
}

// Iterations returns the number of completed iterations.
func (t *RenderThread) Iterations() uint64 {
	return t.iterations.Load()
}

// StopRequests returns how many times a running or idle render was paused through StopRender or Acquire.
func (t *RenderThread) StopRequests() uint64 {
	return t.stopRequests.Load()
}

// WaitConverged blocks until the render converges, is stopped, or the thread quits.
//
// Returns:
//   - bool: true if the render converged
func (t *RenderThread) WaitConverged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.wantRun && !t.converged && !t.quit {
		t.cond.Wait()
	}
	return t.converged
}

func (t *RenderThread) loop() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("render goroutine recovered from panic", zap.Any("panic", r))
			t.mu.Lock()
			t.rendering = false
			t.wantRun = false
			t.cond.Broadcast()
			t.mu.Unlock()
		}
	}()

	for {
		t.mu.Lock()
		for !t.quit && (!t.wantRun || t.converged || t.holders > 0) {
			t.cond.Wait()
		}
		if t.quit {
			t.mu.Unlock()
			return
		}
		t.rendering = true
		t.mu.Unlock()

		converged := t.iterate()
		t.iterations.Add(1)

		t.mu.Lock()
		t.rendering = false
		if converged {
			t.converged = true
		}
		t.cond.Broadcast()
		t.mu.Unlock()
	}
}
