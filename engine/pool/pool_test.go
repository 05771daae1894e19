package pool

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type object struct {
	id       int
	attached bool
}

type recorder struct {
	created   int
	destroyed []int
}

func newTestPool(t *testing.T, categories int, options ...Option) (*ObjectPool[*object], *recorder) {
	rec := &recorder{}
	hooks := Hooks[*object]{
		Create: func(category int) (*object, error) {
			rec.created++
			return &object{id: rec.created, attached: true}, nil
		},
		Destroy: func(_ int, o *object) {
			rec.destroyed = append(rec.destroyed, o.id)
		},
		OnReuse: func(_ int, o *object) {
			o.attached = true
		},
		OnRelease: func(_ int, o *object) {
			o.attached = false
		},
	}
	options = append([]Option{WithLogger(zaptest.NewLogger(t))}, options...)
	return NewObjectPool("test", categories, hooks, options...), rec
}

func TestPoolReusesReleasedObject(t *testing.T) {
	p, rec := newTestPool(t, 2)

	h1, o1, ok := p.Acquire(1)
	require.True(t, ok)
	p.Release(h1)
	assert.False(t, o1.attached)

	h2, o2, ok := p.Acquire(1)
	require.True(t, ok)
	assert.Equal(t, h1, h2)
	assert.Same(t, o1, o2)
	assert.True(t, o2.attached)
	assert.Equal(t, 1, rec.created)
}

func TestPoolCategoriesDoNotShareGarbage(t *testing.T) {
	p, rec := newTestPool(t, 2)

	h, _, _ := p.Acquire(0)
	p.Release(h)
	_, _, ok := p.Acquire(1)
	require.True(t, ok)

	assert.Equal(t, 2, rec.created)
	assert.Equal(t, 1, p.GarbageCount())
	assert.Equal(t, 1, p.LiveCount())
}

func TestPoolGarbageCollectEmptyDoesNothing(t *testing.T) {
	p, rec := newTestPool(t, 1)
	thread := renderer.NewRenderThread(func() bool { return true })

	_, _, _ = p.Acquire(0)
	assert.Equal(t, 0, p.GarbageCollect(thread))
	assert.Empty(t, rec.destroyed)
	assert.Zero(t, thread.StopRequests())
}

func TestPoolGarbageCollectDestroysAndInvalidates(t *testing.T) {
	p, rec := newTestPool(t, 1)
	thread := renderer.NewRenderThread(func() bool { return true })

	h1, _, _ := p.Acquire(0)
	h2, _, _ := p.Acquire(0)
	p.Release(h1)

	assert.Equal(t, 1, p.GarbageCollect(thread))
	assert.Equal(t, []int{1}, rec.destroyed)
	assert.Equal(t, uint64(1), thread.StopRequests())
	assert.False(t, thread.IsHeld())

	_, ok := p.Get(h1)
	assert.False(t, ok)
	_, ok = p.Get(h2)
	assert.True(t, ok)

	// the freed slot is reused with a new generation
	h3, o3, ok := p.Acquire(0)
	require.True(t, ok)
	assert.Equal(t, h1.Slot, h3.Slot)
	assert.NotEqual(t, h1.Generation, h3.Generation)
	assert.Equal(t, 3, o3.id)
}

func TestPoolUnknownReleaseIsIgnored(t *testing.T) {
	p, _ := newTestPool(t, 1)

	h, _, _ := p.Acquire(0)
	p.Release(h)
	p.Release(h)
	p.Release(Handle{Category: 0, Slot: 7, Generation: 1})
	p.Release(NullHandle)

	assert.Equal(t, 1, p.GarbageCount())
}

func TestPoolCategoryOutOfRange(t *testing.T) {
	p, rec := newTestPool(t, 1)

	h, o, ok := p.Acquire(3)
	assert.False(t, ok)
	assert.Nil(t, o)
	assert.True(t, h.IsNull())
	assert.True(t, p.Insert(-1, &object{}).IsNull())
	assert.Zero(t, rec.created)
}

func TestPoolFactoryFailure(t *testing.T) {
	p := NewObjectPool("failing", 1, Hooks[*object]{
		Create: func(int) (*object, error) { return nil, errors.New("out of memory") },
	}, WithLogger(zaptest.NewLogger(t)))

	h, _, ok := p.Acquire(0)
	assert.False(t, ok)
	assert.True(t, h.IsNull())
	assert.Zero(t, p.LiveCount())
}

func TestPoolGauges(t *testing.T) {
	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "objects"}, []string{"category", "state"})
	p, _ := newTestPool(t, 1, WithGauges(gauges))

	h, _, _ := p.Acquire(0)
	_, _, _ = p.Acquire(0)
	p.Release(h)

	assert.Equal(t, float64(1), testutil.ToFloat64(gauges.WithLabelValues("test/0", "live")))
	assert.Equal(t, float64(1), testutil.ToFloat64(gauges.WithLabelValues("test/0", "garbage")))
}
