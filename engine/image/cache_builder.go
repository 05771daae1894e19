package image

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// CacheOption configures a Cache during construction.
type CacheOption func(*Cache)

// WithLogger is an option builder that sets the cache logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - CacheOption: a function that applies the logger option to a Cache
func WithLogger(log *zap.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithLoader is an option builder that replaces the file decoder.
//
// Parameters:
//   - load: the decoder
//
// Returns:
//   - CacheOption: a function that applies the loader option to a Cache
func WithLoader(load Loader) CacheOption {
	return func(c *Cache) {
		if load != nil {
			c.load = load
		}
	}
}

// WithRequestCounter is an option builder that counts GetImage results by label "result" (hit, miss, error).
func WithRequestCounter(counter *prometheus.CounterVec) CacheOption {
	return func(c *Cache) {
		c.requests = counter
	}
}

// WithWatcher is an option builder that registers every loaded path with w.
func WithWatcher(w *Watcher) CacheOption {
	return func(c *Cache) {
		c.watcher = w
	}
}
