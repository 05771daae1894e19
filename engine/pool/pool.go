// Package pool keeps renderer objects alive between uses so that releasing and re-acquiring an object of the
// same category does not round-trip through the renderer. Released objects sit in a garbage partition until
// the render thread is stopped and they can be destroyed.
package pool

import (
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Handle identifies a pooled object: its category, its slot within the category and the
// generation of that slot. A handle becomes stale once its slot is garbage collected.
type Handle struct {
	Category   int
	Slot       int
	Generation uint32
}

// NullHandle is returned when no object could be provided.
var NullHandle = Handle{Category: -1, Slot: -1}

// IsNull reports whether h refers to no object.
func (h Handle) IsNull() bool {
	return h.Slot < 0 || h.Generation == 0
}

// Gate stops the render thread for the duration of an Access.
// *renderer.RenderThread satisfies it.
type Gate interface {
	Acquire() *renderer.Access
}

type slotState int

const (
	slotFree slotState = iota
	slotLive
	slotGarbage
)

type slot[T any] struct {
	value      T
	state      slotState
	generation uint32
}

// Hooks are the category-specific callbacks of a pool.
type Hooks[T any] struct {
	// Create builds a new object of the category. Required.
	Create func(category int) (T, error)
	// Destroy deletes the renderer object. Called only while the render thread is stopped.
	Destroy func(category int, value T)
	// OnReuse runs when a garbage object is handed out again, typically to re-attach it.
	OnReuse func(category int, value T)
	// OnRelease runs when a live object moves to garbage, typically to hide it.
	OnRelease func(category int, value T)
}

// ObjectPool is a per-category arena of reusable objects.
// All methods are safe for concurrent use.
type ObjectPool[T any] struct {
	mu *sync.Mutex

	name    string
	slots   [][]slot[T]
	garbage [][]int
	free    [][]int
	hooks   Hooks[T]

	log    *zap.Logger
	gauges *prometheus.GaugeVec
}

// NewObjectPool creates an empty pool with the given number of categories.
//
// Parameters:
//   - name: pool name used in logs and metrics
//   - categories: number of categories, categories are [0, categories)
//   - hooks: object factory and lifecycle callbacks
//   - options: functional options
//
// Returns:
//   - *ObjectPool[T]: the pool
func NewObjectPool[T any](name string, categories int, hooks Hooks[T], options ...Option) *ObjectPool[T] {
	if hooks.Create == nil {
		panic("pool: Create hook is required")
	}

	cfg := defaultSettings()
	for _, opt := range options {
		opt(&cfg)
	}

	p := &ObjectPool[T]{
		mu:      &sync.Mutex{},
		name:    name,
		slots:   make([][]slot[T], categories),
		garbage: make([][]int, categories),
		free:    make([][]int, categories),
		hooks:   hooks,
		log:     cfg.log.Named("pool").With(zap.String("pool", name)),
		gauges:  cfg.gauges,
	}
	return p
}

func (p *ObjectPool[T]) validCategory(category int) bool {
	return category >= 0 && category < len(p.slots)
}

// Acquire returns a live object of the category, preferring one from the garbage partition.
// Reuse performs no renderer call besides OnReuse. A category out of range, or a failing factory,
// returns NullHandle.
//
// Parameters:
//   - category: the object category
//
// Returns:
//   - Handle: the object's handle
//   - T: the object
//   - bool: whether an object was returned
func (p *ObjectPool[T]) Acquire(category int) (Handle, T, bool) {
	var zero T

	p.mu.Lock()
	if !p.validCategory(category) {
		p.mu.Unlock()
		p.log.DPanic("category out of range", zap.Int("category", category))
		return NullHandle, zero, false
	}

	if g := p.garbage[category]; len(g) > 0 {
		idx := g[len(g)-1]
		p.garbage[category] = g[:len(g)-1]
		s := &p.slots[category][idx]
		s.state = slotLive
		h := Handle{Category: category, Slot: idx, Generation: s.generation}
		value := s.value
		p.updateGauges(category)
		p.mu.Unlock()

		if p.hooks.OnReuse != nil {
			p.hooks.OnReuse(category, value)
		}
		return h, value, true
	}
	p.mu.Unlock()

	// construct outside the lock, the factory may call into the renderer
	value, err := p.hooks.Create(category)
	if err != nil {
		p.log.Error("failed to create pooled object", zap.Int("category", category), zap.Error(err))
		return NullHandle, zero, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.insertLocked(category, value), value, true
}

// Insert adds an externally created object to the live partition.
//
// Parameters:
//   - category: the object category
//   - value: the object
//
// Returns:
//   - Handle: the new handle, or NullHandle for a category out of range
func (p *ObjectPool[T]) Insert(category int, value T) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.validCategory(category) {
		p.log.DPanic("category out of range", zap.Int("category", category))
		return NullHandle
	}
	return p.insertLocked(category, value)
}

func (p *ObjectPool[T]) insertLocked(category int, value T) Handle {
	var idx int
	if f := p.free[category]; len(f) > 0 {
		idx = f[len(f)-1]
		p.free[category] = f[:len(f)-1]
	} else {
		p.slots[category] = append(p.slots[category], slot[T]{})
		idx = len(p.slots[category]) - 1
	}

	s := &p.slots[category][idx]
	s.value = value
	s.state = slotLive
	s.generation++
	p.updateGauges(category)
	return Handle{Category: category, Slot: idx, Generation: s.generation}
}

func (p *ObjectPool[T]) lookupLocked(h Handle) (*slot[T], bool) {
	if h.IsNull() || !p.validCategory(h.Category) || h.Slot >= len(p.slots[h.Category]) {
		return nil, false
	}
	s := &p.slots[h.Category][h.Slot]
	if s.generation != h.Generation || s.state == slotFree {
		return nil, false
	}
	return s, true
}

// Get returns the live object behind h.
//
// Parameters:
//   - h: the handle
//
// Returns:
//   - T: the object
//   - bool: false when h is stale, null or released
func (p *ObjectPool[T]) Get(h Handle) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var zero T
	s, ok := p.lookupLocked(h)
	if !ok || s.state != slotLive {
		return zero, false
	}
	return s.value, true
}

// Release moves the object behind h to the garbage partition without destroying it.
// Releasing an unknown or already released handle is logged and ignored.
//
// Parameters:
//   - h: the handle to release
func (p *ObjectPool[T]) Release(h Handle) {
	p.mu.Lock()
	s, ok := p.lookupLocked(h)
	if !ok || s.state != slotLive {
		p.mu.Unlock()
		p.log.DPanic("release of unknown pooled object",
			zap.Int("category", h.Category), zap.Int("slot", h.Slot), zap.Uint32("generation", h.Generation))
		return
	}
	s.state = slotGarbage
	p.garbage[h.Category] = append(p.garbage[h.Category], h.Slot)
	value := s.value
	p.updateGauges(h.Category)
	p.mu.Unlock()

	if p.hooks.OnRelease != nil {
		p.hooks.OnRelease(h.Category, value)
	}
}

// GarbageCount returns the number of released objects waiting for collection.
func (p *ObjectPool[T]) GarbageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, g := range p.garbage {
		n += len(g)
	}
	return n
}

// LiveCount returns the number of objects currently handed out.
func (p *ObjectPool[T]) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for c := range p.slots {
		n += len(p.slots[c]) - len(p.garbage[c]) - len(p.free[c])
	}
	return n
}

// GarbageCollect destroys every garbage object. With an empty garbage partition it does nothing;
// otherwise it stops the render thread through gate for the duration of the destruction.
// Handles of collected objects become stale.
//
// Parameters:
//   - gate: the render-thread stop gate
//
// Returns:
//   - int: the number of destroyed objects
func (p *ObjectPool[T]) GarbageCollect(gate Gate) int {
	if p.GarbageCount() == 0 {
		return 0
	}

	access := gate.Acquire()
	defer access.Release()
	return p.collect()
}

// GarbageCollectWith destroys every garbage object under an access the caller already holds.
//
// Parameters:
//   - access: a held render-thread access
//
// Returns:
//   - int: the number of destroyed objects
func (p *ObjectPool[T]) GarbageCollectWith(access *renderer.Access) int {
	if access == nil {
		p.log.DPanic("garbage collection without renderer access")
		return 0
	}
	return p.collect()
}

type doomed[T any] struct {
	category int
	value    T
}

func (p *ObjectPool[T]) collect() int {
	p.mu.Lock()
	var victims []doomed[T]
	for c, g := range p.garbage {
		for _, idx := range g {
			s := &p.slots[c][idx]
			victims = append(victims, doomed[T]{category: c, value: s.value})
			var zero T
			s.value = zero
			s.state = slotFree
			s.generation++
			p.free[c] = append(p.free[c], idx)
		}
		p.garbage[c] = p.garbage[c][:0]
		p.updateGauges(c)
	}
	p.mu.Unlock()

	if p.hooks.Destroy != nil {
		for _, v := range victims {
			p.hooks.Destroy(v.category, v.value)
		}
	}
	if len(victims) > 0 {
		p.log.Debug("collected pooled objects", zap.Int("count", len(victims)))
	}
	return len(victims)
}

func (p *ObjectPool[T]) updateGauges(category int) {
	if p.gauges == nil {
		return
	}
	c := strconv.Itoa(category)
	live := len(p.slots[category]) - len(p.garbage[category]) - len(p.free[category])
	p.gauges.WithLabelValues(p.name+"/"+c, "live").Set(float64(live))
	p.gauges.WithLabelValues(p.name+"/"+c, "garbage").Set(float64(len(p.garbage[category])))
}
