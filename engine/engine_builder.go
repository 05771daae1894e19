package engine

import (
	"time"

	"github.com/Carmen-Shannon/hdrpr/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLogger sets the engine logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(log *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow runs the engine inside a window. Resizes are forwarded to the frame source when it
// implements Resizer, and closing the window stops the engine.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithQuitOnConverged stops the engine on the first tick that finds the render pass converged.
//
// Parameters:
//   - enabled: if true, the engine stops on convergence
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithQuitOnConverged(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.quitOnConverged = enabled
	}
}
