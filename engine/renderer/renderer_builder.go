package renderer

import "go.uber.org/zap"

// RenderThreadOption is a functional option for configuring a RenderThread.
type RenderThreadOption func(*RenderThread)

// WithThreadLogger sets the logger used by the render goroutine.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - RenderThreadOption: option function to apply
func WithThreadLogger(log *zap.Logger) RenderThreadOption {
	return func(t *RenderThread) {
		t.log = log
	}
}

// WithStopHook registers a callback invoked whenever rendering is paused.
// The hook runs with the thread lock held and must not call back into the thread.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - RenderThreadOption: option function to apply
func WithStopHook(fn func()) RenderThreadOption {
	return func(t *RenderThread) {
		t.onStop = fn
	}
}

// MemoryContextOption is a functional option for configuring the in-memory backend.
type MemoryContextOption func(*MemoryContext)

// WithPluginType sets the plugin type reported in the context metadata.
//
// Parameters:
//   - p: the plugin type
//
// Returns:
//   - MemoryContextOption: option function to apply
func WithPluginType(p PluginType) MemoryContextOption {
	return func(c *MemoryContext) {
		c.metadata.PluginType = p
	}
}

// WithRenderDevice sets the device name reported in the context metadata.
//
// Parameters:
//   - device: the device name
//
// Returns:
//   - MemoryContextOption: option function to apply
func WithRenderDevice(device string) MemoryContextOption {
	return func(c *MemoryContext) {
		c.metadata.RenderDeviceType = device
	}
}
