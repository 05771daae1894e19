package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/hdrpr/engine/image"
	"github.com/Carmen-Shannon/hdrpr/engine/light"
	"github.com/Carmen-Shannon/hdrpr/engine/mesh"
	"github.com/Carmen-Shannon/hdrpr/engine/profiler"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer/material"
	"github.com/Carmen-Shannon/hdrpr/engine/resource"
	"github.com/Carmen-Shannon/hdrpr/engine/scene"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnknownPrimType is returned when inserting a prim type no sync prim handles.
var ErrUnknownPrimType = errors.New("unknown prim type")

// Delegate owns every sync prim of a scene and runs the sync and commit phases against one renderer API.
type Delegate struct {
	// mu serializes Sync, InsertPrim, RemovePrim and Finalize.
	mu *sync.Mutex
	// primsMu guards the prim maps for lookups made while a Sync holds mu.
	primsMu *sync.RWMutex

	api     *renderer.API
	scene   scene.Delegate
	tracker scene.ChangeTracker

	commits *resource.Context
	lights  *light.Pool
	images  *image.Cache

	meshes     map[scene.PathID]*mesh.Mesh
	lightPrims map[scene.PathID]*light.Light
	materials  map[scene.PathID]*material.Prim

	workers  int
	segments int
	pool     worker.DynamicWorkerPool
	watcher  *image.Watcher
	metrics  *profiler.Metrics
	log      *zap.Logger
}

var _ mesh.MaterialLookup = &Delegate{}

// NewDelegate creates a delegate syncing sd into api. The shared resources (commit queue, light pool and
// image cache) are created on the API's context.
//
// Parameters:
//   - api: the renderer API
//   - sd: the scene delegate prims are read from
//   - tracker: the change tracker holding their dirty bits
//   - options: functional options
//
// Returns:
//   - *Delegate: the delegate, with no prims
func NewDelegate(api *renderer.API, sd scene.Delegate, tracker scene.ChangeTracker, options ...DelegateBuilderOption) *Delegate {
	d := &Delegate{
		mu:         &sync.Mutex{},
		primsMu:    &sync.RWMutex{},
		api:        api,
		scene:      sd,
		tracker:    tracker,
		meshes:     make(map[scene.PathID]*mesh.Mesh),
		lightPrims: make(map[scene.PathID]*light.Light),
		materials:  make(map[scene.PathID]*material.Prim),
		workers:    4,
		segments:   light.DefaultSegments,
		log:        zap.NewNop(),
	}
	for _, opt := range options {
		opt(d)
	}
	d.log = d.log.Named("delegate")

	commitOptions := []resource.ContextOption{resource.WithLogger(d.log)}
	poolOptions := []light.PoolOption{light.WithPoolLogger(d.log), light.WithSegments(d.segments)}
	cacheOptions := []image.CacheOption{image.WithLogger(d.log)}
	if d.metrics != nil {
		commitOptions = append(commitOptions, resource.WithCommitCounter(d.metrics.Commits))
		poolOptions = append(poolOptions, light.WithPoolGauges(d.metrics.PoolObjects))
		cacheOptions = append(cacheOptions, image.WithRequestCounter(d.metrics.ImageRequests))
	}
	if d.watcher != nil {
		cacheOptions = append(cacheOptions, image.WithWatcher(d.watcher))
	}

	ed := api.AcquireForEdit()
	defer ed.Release()
	d.commits = resource.NewContext(commitOptions...)
	d.lights = light.NewPool(ed.Context(), ed.Scene(), d.commits, poolOptions...)
	d.images = image.NewCache(ed.Context(), cacheOptions...)

	// queue size of 256 covers a frame's dirty meshes; workers idle out after a second
	d.pool = worker.NewDynamicWorkerPool(d.workers, 256, time.Second)
	return d
}

// Images returns the texture cache shared by the material prims.
func (d *Delegate) Images() *image.Cache {
	return d.images
}

// InsertPrim creates the sync prim for a scene prim.
//
// Parameters:
//   - id: the prim path
//   - primType: the scene prim type
//
// Returns:
//   - error: ErrUnknownPrimType for types without a sync prim
func (d *Delegate) InsertPrim(id scene.PathID, primType scene.Token) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.primsMu.Lock()
	defer d.primsMu.Unlock()

	switch primType {
	case scene.PrimTypeMesh:
		d.meshes[id] = mesh.NewMesh(id,
			mesh.WithLogger(d.log),
			mesh.WithCommitQueue(d.commits),
			mesh.WithMaterials(d),
		)
		return nil
	case scene.PrimTypeMaterial:
		d.materials[id] = material.NewPrim(id, d.images, d.log)
		return nil
	}
	if kind, ok := light.KindFromPrimType(primType); ok {
		d.lightPrims[id] = light.NewLight(id, kind, d.lights, light.WithLogger(d.log))
		return nil
	}
	return errors.Wrapf(ErrUnknownPrimType, "%s (%s)", id, primType)
}

// RemovePrim finalizes and forgets a prim. Meshes bound to a removed material fall back on their next Sync.
//
// Parameters:
//   - id: the prim path
func (d *Delegate) RemovePrim(id scene.PathID) {
	ed := d.api.AcquireForEdit()
	defer ed.Release()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.primsMu.Lock()
	defer d.primsMu.Unlock()

	if m, ok := d.meshes[id]; ok {
		m.Finalize(ed)
		delete(d.meshes, id)
	}
	if l, ok := d.lightPrims[id]; ok {
		l.Finalize()
		delete(d.lightPrims, id)
	}
	if p, ok := d.materials[id]; ok {
		p.Finalize(ed)
		delete(d.materials, id)
		d.markMaterialUsersLocked(id)
	}
	ed.MarkChanged()
}

// MaterialPrim returns the material prim at id, or nil.
func (d *Delegate) MaterialPrim(id scene.PathID) *material.Prim {
	d.primsMu.RLock()
	defer d.primsMu.RUnlock()
	return d.materials[id]
}

// Mesh returns the mesh prim at id, or nil.
func (d *Delegate) Mesh(id scene.PathID) *mesh.Mesh {
	d.primsMu.RLock()
	defer d.primsMu.RUnlock()
	return d.meshes[id]
}

// Light returns the light prim at id, or nil.
func (d *Delegate) Light(id scene.PathID) *light.Light {
	d.primsMu.RLock()
	defer d.primsMu.RUnlock()
	return d.lightPrims[id]
}

// markMaterialUsersLocked dirties the material binding of every mesh bound to id.
func (d *Delegate) markMaterialUsersLocked(id scene.PathID) {
	for meshID, m := range d.meshes {
		for _, bound := range m.BoundMaterials() {
			if bound == id {
				d.tracker.MarkDirty(meshID, scene.DirtyMaterialID)
				break
			}
		}
	}
}

func sortedIDs[T any](prims map[scene.PathID]T) []scene.PathID {
	ids := make([]scene.PathID, 0, len(prims))
	for id := range prims {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sync runs one sync and commit cycle:
//
//  1. dirty materials sync and commit, dirtying the binding of every mesh that uses them
//  2. dirty meshes sync in parallel on the worker pool without touching the renderer
//  3. with the render thread stopped, dirty lights sync, the commit queue is flushed and the light pool
//     and image cache are garbage collected
//
// Returns:
//   - bool: whether the renderer scene changed
func (d *Delegate) Sync() bool {
	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	changed := d.syncMaterialsLocked()
	d.syncMeshesLocked()

	ed := d.api.AcquireForEdit()
	defer ed.Release()

	for _, id := range sortedIDs(d.lightPrims) {
		l := d.lightPrims[id]
		if d.tracker.DirtyBits(id) == scene.Clean && l.IsBuilt() {
			continue
		}
		l.Sync(d.scene, d.tracker, ed)
		changed = true
	}

	if d.commits.Flush(ed) {
		changed = true
	}
	d.commits.Reset()

	if n := d.lights.GarbageCollectWith(ed.Access()); n > 0 {
		d.log.Debug("collected light objects", zap.Int("count", n))
	}
	if n := d.images.GarbageCollectIfNeeded(ed.Access()); n > 0 {
		d.log.Debug("collected images", zap.Int("count", n))
	}

	if changed {
		ed.MarkChanged()
	}
	if d.metrics != nil {
		d.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}
	return changed
}

func (d *Delegate) syncMaterialsLocked() bool {
	var pending []scene.PathID
	for _, id := range sortedIDs(d.materials) {
		if d.tracker.DirtyBits(id) == scene.Clean {
			continue
		}
		if d.materials[id].Sync(d.scene, d.tracker) {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return false
	}

	ed := d.api.AcquireForEdit()
	defer ed.Release()
	for _, id := range pending {
		if d.materials[id].Commit(ed) {
			d.markMaterialUsersLocked(id)
		}
	}
	return true
}

func (d *Delegate) syncMeshesLocked() {
	meta := d.api.Metadata()

	var wg sync.WaitGroup
	taskID := 0
	for _, id := range sortedIDs(d.meshes) {
		if d.tracker.DirtyBits(id) == scene.Clean {
			continue
		}
		m := d.meshes[id]
		wg.Add(1)
		d.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				m.Sync(d.scene, d.tracker, meta)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
}

// Finalize releases every prim and collects the pooled objects. The delegate is empty afterwards.
func (d *Delegate) Finalize() {
	ed := d.api.AcquireForEdit()
	defer ed.Release()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.primsMu.Lock()
	for _, m := range d.meshes {
		m.Finalize(ed)
	}
	for _, l := range d.lightPrims {
		l.Finalize()
	}
	for _, p := range d.materials {
		p.Finalize(ed)
	}
	clear(d.meshes)
	clear(d.lightPrims)
	clear(d.materials)
	d.primsMu.Unlock()

	// light meshes released above are still queued for their hidden-state commit
	d.commits.Flush(ed)
	d.commits.Reset()
	d.lights.GarbageCollectWith(ed.Access())
	d.images.RequireGarbageCollection()
	d.images.GarbageCollectIfNeeded(ed.Access())
	ed.MarkChanged()
}
