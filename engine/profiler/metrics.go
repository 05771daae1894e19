package profiler

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the engine reports to.
type Metrics struct {
	// Commits counts committed resources by kind.
	Commits *prometheus.CounterVec
	// SyncDuration observes one full Sync pass over the dirty prims.
	SyncDuration prometheus.Histogram
	// PoolObjects tracks live and garbage objects per pool category.
	PoolObjects *prometheus.GaugeVec
	// ImageRequests counts image cache lookups by result.
	ImageRequests *prometheus.CounterVec
	// RenderIterations counts completed render iterations.
	RenderIterations prometheus.Counter
	// RenderStops counts render thread stop requests.
	RenderStops prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
//
// Parameters:
//   - reg: the registerer, e.g. prometheus.NewRegistry()
//
// Returns:
//   - *Metrics: the registered collectors
//   - error: when a collector is already registered
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdrpr",
			Name:      "commits_total",
			Help:      "Resources committed to the renderer.",
		}, []string{"kind"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hdrpr",
			Name:      "sync_duration_seconds",
			Help:      "Duration of one sync pass over dirty prims.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		PoolObjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hdrpr",
			Name:      "pool_objects",
			Help:      "Pooled renderer objects by category and state.",
		}, []string{"category", "state"}),
		ImageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hdrpr",
			Name:      "image_cache_requests_total",
			Help:      "Image cache lookups by result.",
		}, []string{"result"}),
		RenderIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdrpr",
			Name:      "render_iterations_total",
			Help:      "Completed render iterations.",
		}),
		RenderStops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hdrpr",
			Name:      "render_stops_total",
			Help:      "Render thread stop requests.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.Commits, m.SyncDuration, m.PoolObjects, m.ImageRequests, m.RenderIterations, m.RenderStops,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register metrics")
		}
	}
	return m, nil
}
