package light

import (
	"github.com/Carmen-Shannon/hdrpr/engine/pool"
	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/Carmen-Shannon/hdrpr/engine/resource"
	"go.uber.org/zap"
)

// DefaultSegments is the default tessellation of disk, sphere and cylinder light meshes.
const DefaultSegments = 32

// Pool hands out light meshes by kind and directional lights, reusing released objects.
// Released light meshes are hidden until they are reused or collected; released directional
// lights are detached from the scene.
type Pool struct {
	meshes  *pool.ObjectPool[*resource.MeshPrototype]
	distant *pool.ObjectPool[renderer.Light]

	log *zap.Logger
}

// NewPool creates the light pools.
//
// Parameters:
//   - ctx: renderer context directional lights are created in
//   - rscene: scene directional lights are attached to
//   - commits: queue the light meshes commit through
//   - options: functional options
//
// Returns:
//   - *Pool: the pool
func NewPool(ctx renderer.Context, rscene renderer.Scene, commits *resource.Context, options ...PoolOption) *Pool {
	cfg := defaultPoolSettings()
	for _, opt := range options {
		opt(&cfg)
	}
	log := cfg.log.Named("light")

	poolOptions := []pool.Option{pool.WithLogger(cfg.log)}
	if cfg.gauges != nil {
		poolOptions = append(poolOptions, pool.WithGauges(cfg.gauges))
	}

	meshes := pool.NewObjectPool("lightMesh", geometryKinds, pool.Hooks[*resource.MeshPrototype]{
		Create: func(category int) (*resource.MeshPrototype, error) {
			data := kinds[category].mesh(cfg.segments)
			return resource.NewMeshPrototype(commits, data, resource.WithMeshLogger(log)), nil
		},
		Destroy: func(_ int, mesh *resource.MeshPrototype) {
			mesh.Delete()
		},
		OnReuse: func(_ int, mesh *resource.MeshPrototype) {
			mesh.SetVisibility(renderer.VisibleAll)
		},
		OnRelease: func(_ int, mesh *resource.MeshPrototype) {
			mesh.SetVisibility(renderer.VisibleNone)
			mesh.SetMaterial(nil)
		},
	}, poolOptions...)

	distant := pool.NewObjectPool("distantLight", 1, pool.Hooks[renderer.Light]{
		Create: func(int) (renderer.Light, error) {
			l, status := ctx.CreateDirectionalLight()
			if err := renderer.Check(status, "failed to create directional light"); err != nil {
				return nil, err
			}
			if err := renderer.Check(rscene.AttachLight(l), "failed to attach directional light"); err != nil {
				renderer.ErrorCheck(log, l.Delete(), "failed to delete directional light")
				return nil, err
			}
			return l, nil
		},
		Destroy: func(_ int, l renderer.Light) {
			renderer.ErrorCheck(log, l.Delete(), "failed to delete directional light")
		},
		OnReuse: func(_ int, l renderer.Light) {
			renderer.ErrorCheck(log, rscene.AttachLight(l), "failed to attach directional light")
		},
		OnRelease: func(_ int, l renderer.Light) {
			renderer.ErrorCheck(log, rscene.DetachLight(l), "failed to detach directional light")
		},
	}, poolOptions...)

	return &Pool{meshes: meshes, distant: distant, log: log}
}

// CreateLightMesh returns a unit light mesh for a geometry kind. Requesting a distant or unknown
// kind is a coding error and returns a null handle.
//
// Parameters:
//   - kind: the light kind
//
// Returns:
//   - pool.Handle: the mesh handle, null on failure
//   - *resource.MeshPrototype: the mesh, nil on failure
func (p *Pool) CreateLightMesh(kind Kind) (pool.Handle, *resource.MeshPrototype) {
	if !kind.IsGeometry() {
		p.log.DPanic("light kind has no mesh", zap.Stringer("kind", kind))
		return pool.NullHandle, nil
	}
	h, mesh, ok := p.meshes.Acquire(int(kind))
	if !ok {
		return pool.NullHandle, nil
	}
	return h, mesh
}

// ReleaseLightMesh returns a light mesh to the pool.
func (p *Pool) ReleaseLightMesh(h pool.Handle) {
	p.meshes.Release(h)
}

// CreateDistantLight returns a directional light attached to the scene.
//
// Returns:
//   - pool.Handle: the light handle, null on failure
//   - renderer.Light: the light, nil on failure
func (p *Pool) CreateDistantLight() (pool.Handle, renderer.Light) {
	h, l, ok := p.distant.Acquire(0)
	if !ok {
		return pool.NullHandle, nil
	}
	return h, l
}

// ReleaseDistantLight returns a directional light to the pool.
func (p *Pool) ReleaseDistantLight(h pool.Handle) {
	p.distant.Release(h)
}

// GarbageCount returns the number of released objects awaiting collection.
func (p *Pool) GarbageCount() int {
	return p.meshes.GarbageCount() + p.distant.GarbageCount()
}

// GarbageCollectIfNeeded destroys released objects, stopping the render thread through gate only
// if there is garbage.
//
// Returns:
//   - int: the number of objects destroyed
func (p *Pool) GarbageCollectIfNeeded(gate pool.Gate) int {
	return p.meshes.GarbageCollect(gate) + p.distant.GarbageCollect(gate)
}

// GarbageCollectWith destroys released objects under an access the caller already holds.
func (p *Pool) GarbageCollectWith(access *renderer.Access) int {
	return p.meshes.GarbageCollectWith(access) + p.distant.GarbageCollectWith(access)
}
