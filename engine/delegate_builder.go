package engine

import (
	"github.com/Carmen-Shannon/hdrpr/engine/image"
	"github.com/Carmen-Shannon/hdrpr/engine/profiler"
	"go.uber.org/zap"
)

// DelegateBuilderOption is a functional option for configuring a Delegate.
type DelegateBuilderOption func(*Delegate)

// WithDelegateLogger sets the logger passed down to every sync prim.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - DelegateBuilderOption: option function to apply
func WithDelegateLogger(log *zap.Logger) DelegateBuilderOption {
	return func(d *Delegate) {
		if log != nil {
			d.log = log
		}
	}
}

// WithSyncWorkers sets how many meshes sync concurrently. Values below 1 are ignored.
//
// Parameters:
//   - n: the worker count (default 4)
//
// Returns:
//   - DelegateBuilderOption: option function to apply
func WithSyncWorkers(n int) DelegateBuilderOption {
	return func(d *Delegate) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLightSegments sets the tessellation of the sphere, disk and cylinder light meshes.
//
// Parameters:
//   - segments: segments around the light axis
//
// Returns:
//   - DelegateBuilderOption: option function to apply
func WithLightSegments(segments int) DelegateBuilderOption {
	return func(d *Delegate) {
		d.segments = segments
	}
}

// WithImageWatcher invalidates cached textures when their files change on disk.
//
// Parameters:
//   - w: the watcher, run by the caller
//
// Returns:
//   - DelegateBuilderOption: option function to apply
func WithImageWatcher(w *image.Watcher) DelegateBuilderOption {
	return func(d *Delegate) {
		d.watcher = w
	}
}

// WithMetrics exports commit counts, pool occupancy, texture requests and sync durations.
//
// Parameters:
//   - m: the registered metrics
//
// Returns:
//   - DelegateBuilderOption: option function to apply
func WithMetrics(m *profiler.Metrics) DelegateBuilderOption {
	return func(d *Delegate) {
		d.metrics = m
	}
}
