package profiler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewMetricsRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Commits.WithLabelValues("mesh").Add(3)
	m.PoolObjects.WithLabelValues("lights/disk", "live").Set(2)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Commits.WithLabelValues("mesh")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PoolObjects))

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestProfilerLogsEveryInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	now := time.Unix(0, 0)
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	p := NewProfiler(
		WithLogger(zap.New(core)),
		WithInterval(time.Second),
		WithIterationCounter(m.RenderIterations),
		withClock(func() time.Time { return now }),
	)

	for i := 0; i < 9; i++ {
		now = now.Add(100 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	now = now.Add(100 * time.Millisecond)
	assert.True(t, p.Tick())

	entries := logs.FilterMessage("render stats").All()
	require.Len(t, entries, 1)
	assert.InDelta(t, 10, entries[0].ContextMap()["iterations_per_second"], 1e-9)
	assert.Equal(t, float64(10), testutil.ToFloat64(m.RenderIterations))
}
