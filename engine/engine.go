// Package engine ties the scene delegate, the render pass and an optional window into a tick loop.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/hdrpr/engine/renderpass"
	"github.com/Carmen-Shannon/hdrpr/engine/window"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Coordinates the tick goroutine and the window message loop.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
	err         error

	window window.Window

	delegate *Delegate
	pass     *renderpass.RenderPass
	frames   FrameSource

	engineTickRate  time.Duration
	tickCallback    func(deltaTime float32)
	quitOnConverged bool
	ticks           atomic.Uint64

	log *zap.Logger
}

// Engine runs the sync and render cycle at a fixed tick rate.
// Each tick calls the tick callback, syncs the scene delegate and executes the render pass with the
// frame source's current state.
type Engine interface {
	// Window returns the window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Delegate returns the scene delegate synced every tick.
	//
	// Returns:
	//   - *Delegate: the delegate
	Delegate() *Delegate

	// RenderPass returns the render pass executed every tick.
	//
	// Returns:
	//   - *renderpass.RenderPass: the render pass
	RenderPass() *renderpass.RenderPass

	// SetTickRate sets the tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the start of each tick, before the scene syncs.
	// Use this to edit the scene.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// Ticks returns how many ticks completed.
	//
	// Returns:
	//   - uint64: the tick count
	Ticks() uint64

	// Run starts the tick loop and blocks until Quit is called, ctx is cancelled or the window closes.
	// With a window, Run must be called from the main goroutine.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: the panic recovered from a tick, if any
	Run(ctx context.Context) error

	// Quit signals the tick loop to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates an engine driving delegate and pass.
//
// Parameters:
//   - delegate: the scene delegate
//   - pass: the render pass
//   - frames: the source of each tick's render state
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(delegate *Delegate, pass *renderpass.RenderPass, frames FrameSource, options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		delegate:        delegate,
		pass:            pass,
		frames:          frames,
		engineTickRate:  time.Second / 60,
		log:             zap.NewNop(),
	}

	for _, opt := range options {
		opt(e)
	}
	e.log = e.log.Named("engine")

	if e.window != nil {
		if r, ok := frames.(Resizer); ok {
			e.window.SetResizeCallback(r.Resize)
			r.Resize(e.window.Width(), e.window.Height())
		}
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Delegate() *Delegate {
	return e.delegate
}

func (e *engine) RenderPass() *renderpass.RenderPass {
	return e.pass
}

func (e *engine) Ticks() uint64 {
	return e.ticks.Load()
}

func (e *engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()

	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit(ctx)

	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				if err := e.window.Close(); err != nil {
					e.log.Warn("failed to close window", zap.Error(err))
				}
			default:
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
		if err := e.window.Close(); err != nil && !errors.Is(err, window.ErrNotInitialized) {
			e.log.Warn("failed to close window", zap.Error(err))
		}
	}

	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	return e.err
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel and exits when the quit channel is closed.
// Recovers from panics inside a tick and signals quit on recovery.
func (e *engine) handleEngine() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("tick recovered from panic", zap.Any("panic", r))
			e.mu.Lock()
			e.err = errors.Errorf("tick panicked: %v", r)
			e.mu.Unlock()
			e.signalQuit()
		}
	}()

	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tick(dt) {
				e.log.Info("render converged", zap.Uint64("ticks", e.ticks.Load()))
				e.signalQuit()
				return
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// tick runs one sync and render cycle. It reports whether the engine should stop instead because the
// render started by an earlier tick converged.
func (e *engine) tick(dt float32) bool {
	if e.quitOnConverged && e.ticks.Load() > 0 && e.pass.IsConverged() {
		return true
	}

	e.mu.Lock()
	callback := e.tickCallback
	e.mu.Unlock()
	if callback != nil {
		callback(dt)
	}

	if e.delegate != nil {
		e.delegate.Sync()
	}
	e.pass.Execute(e.frames.Frame())
	e.ticks.Add(1)
	return false
}

// handleQuit blocks until the quit channel or ctx is closed.
func (e *engine) handleQuit(ctx context.Context) {
	defer e.wg.Done()
	select {
	case <-ctx.Done():
		e.signalQuit()
	case <-e.quitChannel:
	}
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	if !running {
		e.engineTickRate = newRate
	}
	e.mu.Unlock()
	if !running {
		return
	}

	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}
